// Package cluster binds a cluster configuration (static members or
// Zeroconf-discovered ones), the shared FailureManager, and the selection
// primitives into the single entry point request dispatch uses to pick a
// backend (spec.md §4.6).
//
// Grounded on quarry/runtime/executor.go's single-struct-owns-everything
// composition root (there: an Executor owning a policy, a sink, and
// lifecycle state; here: a Cluster owning a FailureManager reference, a
// BalancerMap, an optional StickyCache, and either a static member list or
// a live Zeroconf-discovered member map).
package cluster

import (
	"context"
	"encoding/binary"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/justapithecus/waystation/addrlist"
	"github.com/justapithecus/waystation/balancer"
	"github.com/justapithecus/waystation/failure"
	"github.com/justapithecus/waystation/hashring"
	"github.com/justapithecus/waystation/selector"
	"github.com/justapithecus/waystation/stickycache"
	"github.com/justapithecus/waystation/types"
)

// activeMember is one currently-live Zeroconf member: a stable discovery
// key plus its resolved address.
type activeMember struct {
	key  string
	addr types.SocketAddress
}

func (m activeMember) SteadyPart() []byte { return m.addr.SteadyPart() }

// Cluster selects among a cluster's backend members for one request at a
// time. Safe for concurrent use.
type Cluster struct {
	cfg       types.ClusterConfig
	manager   *failure.Manager
	balancers *balancer.Map
	sticky    stickycache.Store

	mu sync.Mutex

	// static mode
	staticWrapper addrlist.Wrapper

	// zeroconf mode
	byKey  map[string]types.SocketAddress
	active []activeMember
	ring   *hashring.Ring
	dirty  bool
}

// New constructs a Cluster from a validated configuration. balancers and
// sticky may be shared across every Cluster in a worker; sticky is only
// consulted when cfg.StickyMethod == StickyMethodCache. sticky is a
// stickycache.Store so a worker can back it with a plain in-process Cache
// or a Redis-replicated one without Cluster caring which.
func New(cfg types.ClusterConfig, manager *failure.Manager, balancers *balancer.Map, sticky stickycache.Store) (*Cluster, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Cluster{
		cfg:       cfg,
		manager:   manager,
		balancers: balancers,
		sticky:    sticky,
	}

	if cfg.Zeroconf == nil {
		addrs := make([]types.SocketAddress, len(cfg.Members))
		for i, m := range cfg.Members {
			port := m.Port
			if port == 0 {
				port = m.DefaultPort
			}
			addrs[i] = resolveStaticAddress(m.Host, port)
			manager.Make(addrs[i]) // pre-seed a FailureInfo record
		}
		list := types.NewAddressList(cfg.Sticky, addrs...)
		c.staticWrapper = addrlist.New(list, manager)
	} else {
		c.byKey = make(map[string]types.SocketAddress)
		c.dirty = true
	}

	return c, nil
}

// OnNewObject implements zeroconf.Listener: a member was discovered or
// updated (spec.md §4.6 "Discovery callbacks").
func (c *Cluster) OnNewObject(key string, addr types.SocketAddress) {
	c.manager.Make(addr)

	c.mu.Lock()
	c.byKey[key] = addr
	c.dirty = true
	c.mu.Unlock()
}

// OnRemoveObject implements zeroconf.Listener: a member disappeared.
func (c *Cluster) OnRemoveObject(key string) {
	c.mu.Lock()
	delete(c.byKey, key)
	c.dirty = true
	c.mu.Unlock()
}

// Pick selects a backend address for the given sticky hash, per spec.md
// §4.6 (static clusters use the BalancerRequest-style Pick dispatch;
// Zeroconf clusters use PickZeroconf).
func (c *Cluster) Pick(now time.Time, stickyHash uint32) (types.SocketAddress, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.Zeroconf == nil {
		return c.pickStaticLocked(now, stickyHash)
	}
	c.rebuildIfDirtyLocked()
	return c.pickZeroconfLocked(now, stickyHash)
}

// Wrapper exposes the static address list wrapper for callers that want to
// drive dispatch.Run themselves (static clusters only).
func (c *Cluster) Wrapper() addrlist.Wrapper { return c.staticWrapper }

// Manager exposes the shared FailureManager backing this cluster, for
// callers that mark a pick bad after a failed connection attempt
// (dispatch.RunCluster).
func (c *Cluster) Manager() *failure.Manager { return c.manager }

// Size reports the current member count: the static list length for a
// static cluster, or the live active-member count for a Zeroconf one. Used
// to size a retry budget the same way for either mode (spec.md §4.5).
func (c *Cluster) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.Zeroconf == nil {
		return c.staticWrapper.Size()
	}
	return len(c.active)
}

func (c *Cluster) pickStaticLocked(now time.Time, stickyHash uint32) (types.SocketAddress, error) {
	key := balancer.KeyOf(c.staticWrapper.Members())
	rr := c.balancers.MakeRoundRobinBalancer(key)
	idx := selector.Pick(c.staticWrapper, rr, now, stickyHash, c.cfg.Sticky)
	return c.staticWrapper.At(idx), nil
}

// rebuildIfDirtyLocked rebuilds the active-member slice (and, for
// consistent hashing, the Ring) after a Zeroconf membership change
// (spec.md §4.6 "Active-set maintenance").
func (c *Cluster) rebuildIfDirtyLocked() {
	if !c.dirty {
		return
	}

	keys := make([]string, 0, len(c.byKey))
	for k := range c.byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	active := make([]activeMember, len(keys))
	for i, k := range keys {
		active[i] = activeMember{key: k, addr: c.byKey[k]}
	}
	c.active = active

	if c.cfg.StickyMethod == types.StickyMethodConsistentHashing {
		members := make([]hashring.Member, len(active))
		for i, m := range active {
			members[i] = m
		}
		c.ring = hashring.New(members, hashring.DefaultBuckets, hashring.DefaultReplicas)
	}

	c.dirty = false
}

func (c *Cluster) pickZeroconfLocked(now time.Time, stickyHash uint32) (types.SocketAddress, error) {
	if len(c.active) == 0 {
		return types.SocketAddress{}, &types.ClusterEmptyError{Cluster: c.cfg.Name}
	}

	if stickyHash == 0 {
		addr, _ := c.pickNextGoodLocked(now)
		return addr, nil
	}

	switch c.cfg.StickyMethod {
	case types.StickyMethodConsistentHashing:
		return c.pickConsistentLocked(now, stickyHash), nil
	case types.StickyMethodRendezvousHashing:
		return c.pickRendezvousLocked(now, stickyHash), nil
	case types.StickyMethodCache:
		return c.pickCacheLocked(now, stickyHash), nil
	default:
		return types.SocketAddress{}, fmt.Errorf("cluster %q: unreachable sticky method %q", c.cfg.Name, c.cfg.StickyMethod)
	}
}

// pickNextGoodLocked is PickNextGoodZeroconf: round-robin over active
// members, skipping unhealthy ones, backed by a BalancerMap cursor keyed
// by the active member set, so rotation persists across picks while that
// set is unchanged; a membership change switches to the cursor for the new
// set (spec.md §4.6).
func (c *Cluster) pickNextGoodLocked(now time.Time) (types.SocketAddress, string) {
	members := make([]hashring.Member, len(c.active))
	for i, m := range c.active {
		members[i] = m
	}
	key := balancer.KeyOf(members)
	rr := c.balancers.MakeRoundRobinBalancer(key)

	addrs := make([]types.SocketAddress, len(c.active))
	for i, m := range c.active {
		addrs[i] = m.addr
	}
	list := types.NewAddressList(types.StickyNone, addrs...)
	w := addrlist.New(list, c.manager)

	idx := rr.Get(w, now, false)
	return c.active[idx].addr, c.active[idx].key
}

func (c *Cluster) pickConsistentLocked(now time.Time, stickyHash uint32) types.SocketAddress {
	idx := c.ring.Pick(stickyHash)
	if idx >= 0 && c.manager.Check(now, c.active[idx].addr, false) {
		return c.active[idx].addr
	}

	excluded := map[int]bool{}
	if idx >= 0 {
		excluded[idx] = true
	}
	for i := 0; i < len(c.active); i++ {
		next := c.ring.FindNext(stickyHash, func(j int) bool { return excluded[j] })
		if next < 0 {
			break
		}
		if c.manager.Check(now, c.active[next].addr, false) {
			return c.active[next].addr
		}
		excluded[next] = true
	}
	if idx >= 0 {
		return c.active[idx].addr
	}
	return c.active[0].addr
}

// pickRendezvousLocked ranks active members by hash(address_hash XOR
// sticky_hash) ascending and returns the first healthy one, falling back
// to the top-ranked member if none are healthy (spec.md §4.6
// RENDEZVOUS_HASHING). A member's rank depends only on its own address and
// the sticky hash, so relative order among any surviving subset of members
// is stable across membership churn — the stability property spec.md
// requires.
func (c *Cluster) pickRendezvousLocked(now time.Time, stickyHash uint32) types.SocketAddress {
	type ranked struct {
		idx   int
		score uint32
	}
	ranks := make([]ranked, len(c.active))
	for i, m := range c.active {
		h := uint32(xxhash.Sum64(m.addr.SteadyPart()))
		var combined [4]byte
		binary.BigEndian.PutUint32(combined[:], h^stickyHash)
		ranks[i] = ranked{idx: i, score: uint32(xxhash.Sum64(combined[:]))}
	}
	sort.Slice(ranks, func(i, j int) bool { return ranks[i].score < ranks[j].score })

	for _, r := range ranks {
		if c.manager.Check(now, c.active[r.idx].addr, false) {
			return c.active[r.idx].addr
		}
	}
	return c.active[ranks[0].idx].addr
}

func (c *Cluster) pickCacheLocked(now time.Time, stickyHash uint32) types.SocketAddress {
	h := types.StickyHash(stickyHash)
	if key, ok := c.sticky.Get(h); ok {
		if addr, ok := c.byKey[key]; ok && c.manager.Check(now, addr, false) {
			return addr
		}
	}
	addr, key := c.pickNextGoodLocked(now)
	c.sticky.Put(h, key)
	return addr
}

// resolveStaticAddress builds a SocketAddress for a static member. Host is
// treated as a bare IP; DNS names are expected to have been resolved by
// the config loader before reaching ClusterConfig (spec.md §6 "Node
// address format").
func resolveStaticAddress(host string, port uint16) types.SocketAddress {
	addr, err := parseHostAddr(host)
	if err != nil {
		return types.NewLocalAddress(host) // UNIX-domain path fallback
	}
	return types.NewInetAddress(addr, port)
}
