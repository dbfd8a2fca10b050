// Package balancer implements BalancerMap, a bounded cache mapping an
// address list's identity to the persistent RoundRobinBalancer cursor that
// must survive across requests for round-robin and PickModulo fallback to
// rotate correctly (spec.md §4.4).
//
// Grounded on quarry/proxy/selector.go's Selector.pools map[string]*poolState
// (a mutex-guarded map from pool identity to per-pool rotation state) plus
// the source's BalancerMap/StaticCache, which bounds the same map to a fixed
// capacity with LRU eviction instead of growing it forever as clusters and
// their address lists come and go (Zeroconf churn in particular).
package balancer

import (
	"container/list"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/justapithecus/waystation/hashring"
	"github.com/justapithecus/waystation/selector"
)

// DefaultCapacity bounds the number of distinct address lists a BalancerMap
// will track balancers for, mirroring the source's StaticCache<..., 2048, ...>.
const DefaultCapacity = 2048

// HashKey identifies an address list by the steady parts of its members,
// order-independent in content but order-sensitive in computation (two
// lists with the same members in a different order hash differently,
// matching GetHashKey's sequential fold in the source).
type HashKey uint64

// KeyOf computes the HashKey for a set of members, folding each member's
// steady part into a single running hash.
func KeyOf(members []hashring.Member) HashKey {
	h := xxhash.New()
	for _, m := range members {
		_, _ = h.Write(m.SteadyPart())
	}
	return HashKey(h.Sum64())
}

// Map is a bounded, LRU-evicted cache of RoundRobinBalancer instances keyed
// by HashKey. Safe for concurrent use.
type Map struct {
	mu       sync.Mutex
	capacity int
	entries  map[HashKey]*list.Element
	order    *list.List // front = most recently used
}

type mapEntry struct {
	key     HashKey
	balance *selector.RoundRobinBalancer
}

// New constructs a Map with DefaultCapacity.
func New() *Map {
	return NewWithCapacity(DefaultCapacity)
}

// NewWithCapacity constructs a Map bounded to capacity entries. A
// non-positive capacity is treated as unbounded (no eviction).
func NewWithCapacity(capacity int) *Map {
	return &Map{
		capacity: capacity,
		entries:  make(map[HashKey]*list.Element),
		order:    list.New(),
	}
}

// MakeRoundRobinBalancer returns the RoundRobinBalancer for key, creating
// one (and evicting the least-recently-used entry if at capacity) if this
// is the first request for key.
func (m *Map) MakeRoundRobinBalancer(key HashKey) *selector.RoundRobinBalancer {
	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.entries[key]; ok {
		m.order.MoveToFront(elem)
		return elem.Value.(*mapEntry).balance
	}

	if m.capacity > 0 && len(m.entries) >= m.capacity {
		m.evictOldest()
	}

	entry := &mapEntry{key: key, balance: &selector.RoundRobinBalancer{}}
	elem := m.order.PushFront(entry)
	m.entries[key] = elem
	return entry.balance
}

func (m *Map) evictOldest() {
	oldest := m.order.Back()
	if oldest == nil {
		return
	}
	m.order.Remove(oldest)
	delete(m.entries, oldest.Value.(*mapEntry).key)
}

// Len reports the number of distinct address lists currently tracked.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
