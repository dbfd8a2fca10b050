// Package stickycache implements a bounded StickyHash -> member-key cache,
// letting a cluster remember which backend a sticky hash was last assigned
// to even after that backend temporarily fails (spec.md §4.10).
//
// Grounded on the source's StickyCache.hxx (Cache<sticky_hash_t, std::string,
// 32768, 4093>): a fixed-capacity cache segmented into buckets to keep
// lookup and eviction cheap under concurrent access. Segmenting is
// reproduced here as lock striping across shards, each an independent
// bounded LRU, rather than one global mutex guarding a single map.
package stickycache

import (
	"container/list"
	"sync"

	"github.com/justapithecus/waystation/types"
)

// DefaultCapacity is the total number of sticky assignments retained across
// all shards, matching the source's 32768 slot count.
const DefaultCapacity = 32768

// DefaultShards is the requested number of independent lock-striped
// segments, matching the source's 4093 bucket count. NewWithSize rounds it
// up to a power of two, so a default Cache has 4096 shards.
const DefaultShards = 4093

// Cache is a bounded, sharded LRU mapping types.StickyHash to an opaque
// member key (the caller decides what a "member key" looks like — an
// address string, typically).
type Cache struct {
	shards []*shard
	mask   uint64
}

type shard struct {
	mu       sync.Mutex
	capacity int
	entries  map[types.StickyHash]*list.Element
	order    *list.List
}

type cacheEntry struct {
	key   types.StickyHash
	value string
}

// New constructs a Cache with DefaultCapacity spread across DefaultShards
// segments (4096 after rounding).
func New() *Cache {
	return NewWithSize(DefaultCapacity, DefaultShards)
}

// NewWithSize constructs a Cache with the given total capacity spread
// across numShards segments. numShards is rounded up to a power of two
// internally for fast masking; capacity is divided evenly (at least 1 per
// shard).
func NewWithSize(capacity, numShards int) *Cache {
	if numShards < 1 {
		numShards = 1
	}
	pow2 := 1
	for pow2 < numShards {
		pow2 <<= 1
	}
	perShard := capacity / pow2
	if perShard < 1 {
		perShard = 1
	}

	c := &Cache{
		shards: make([]*shard, pow2),
		mask:   uint64(pow2 - 1),
	}
	for i := range c.shards {
		c.shards[i] = &shard{
			capacity: perShard,
			entries:  make(map[types.StickyHash]*list.Element),
			order:    list.New(),
		}
	}
	return c
}

func (c *Cache) shardFor(h types.StickyHash) *shard {
	return c.shards[uint64(h)&c.mask]
}

// Get returns the member key assigned to h, if any.
func (c *Cache) Get(h types.StickyHash) (string, bool) {
	s := c.shardFor(h)
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.entries[h]
	if !ok {
		return "", false
	}
	s.order.MoveToFront(elem)
	return elem.Value.(*cacheEntry).value, true
}

// Put records that h is assigned to memberKey, evicting the
// least-recently-used entry in h's shard if it is at capacity.
func (c *Cache) Put(h types.StickyHash, memberKey string) {
	s := c.shardFor(h)
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.entries[h]; ok {
		elem.Value.(*cacheEntry).value = memberKey
		s.order.MoveToFront(elem)
		return
	}

	if len(s.entries) >= s.capacity {
		oldest := s.order.Back()
		if oldest != nil {
			s.order.Remove(oldest)
			delete(s.entries, oldest.Value.(*cacheEntry).key)
		}
	}

	entry := &cacheEntry{key: h, value: memberKey}
	elem := s.order.PushFront(entry)
	s.entries[h] = elem
}

// Remove deletes any assignment for h.
func (c *Cache) Remove(h types.StickyHash) {
	s := c.shardFor(h)
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.entries[h]; ok {
		s.order.Remove(elem)
		delete(s.entries, h)
	}
}

// Len returns the total number of assignments tracked across all shards.
func (c *Cache) Len() int {
	total := 0
	for _, s := range c.shards {
		s.mu.Lock()
		total += len(s.entries)
		s.mu.Unlock()
	}
	return total
}
