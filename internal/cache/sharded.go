// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package cache

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
)

const (
	// ShardCount is the number of independently locked shards.
	// Must be a power of 2.
	ShardCount = 16

	shardMask = ShardCount - 1

	// DefaultCapacity is the total capacity used when none is given.
	DefaultCapacity = 1024
)

// EvictFunc is called with each entry dropped to make room. It runs after
// the cache lock is released.
type EvictFunc[K comparable, V any] func(key K, value V)

// Sharded is a string-keyed LRU split into ShardCount shards.
type Sharded[V any] struct {
	shards   [ShardCount]*shard[V]
	perShard int
	onEvict  EvictFunc[string, V]

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type shard[V any] struct {
	mu      sync.Mutex
	entries map[string]*shardEntry[V]
	lru     *lruList[string]
}

type shardEntry[V any] struct {
	value V
	node  *lruNode[string]
}

// NewSharded creates a cache holding about capacity entries in total.
// Capacity is split evenly across shards, rounding up, with at least one
// entry per shard. capacity <= 0 selects DefaultCapacity.
func NewSharded[V any](capacity int, onEvict EvictFunc[string, V]) *Sharded[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &Sharded[V]{
		perShard: max(1, (capacity+ShardCount-1)/ShardCount),
		onEvict:  onEvict,
	}
	for i := range c.shards {
		c.shards[i] = &shard[V]{
			entries: make(map[string]*shardEntry[V]),
			lru:     newLRUList[string](),
		}
	}
	return c
}

func shardIndex(key string) int {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum64() & shardMask)
}

// Get returns the value for key and marks it recently used.
func (c *Sharded[V]) Get(key string) (V, bool) {
	s := c.shards[shardIndex(key)]
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	s.lru.MoveToFront(e.node)
	v := e.value
	s.mu.Unlock()
	c.hits.Add(1)
	return v, true
}

// Peek returns the value for key without touching recency or statistics.
func (c *Sharded[V]) Peek(key string) (V, bool) {
	s := c.shards[shardIndex(key)]
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		return e.value, true
	}
	var zero V
	return zero, false
}

// Set stores value under key, evicting the shard's least recently used
// entries if it is full. Replacing an existing value does not call onEvict.
func (c *Sharded[V]) Set(key string, value V) {
	s := c.shards[shardIndex(key)]
	s.mu.Lock()
	if e, ok := s.entries[key]; ok {
		e.value = value
		s.lru.MoveToFront(e.node)
		s.mu.Unlock()
		return
	}

	var evicted []shardEvicted[V]
	for s.lru.Len() >= c.perShard {
		oldest, ok := s.lru.RemoveOldest()
		if !ok {
			break
		}
		evicted = append(evicted, shardEvicted[V]{oldest, s.entries[oldest].value})
		delete(s.entries, oldest)
	}
	s.entries[key] = &shardEntry[V]{value: value, node: s.lru.PushFront(key)}
	s.mu.Unlock()

	c.evictions.Add(uint64(len(evicted)))
	if c.onEvict != nil {
		for _, e := range evicted {
			c.onEvict(e.key, e.value)
		}
	}
}

type shardEvicted[V any] struct {
	key   string
	value V
}

// Delete removes key. It reports whether the key was present.
func (c *Sharded[V]) Delete(key string) bool {
	s := c.shards[shardIndex(key)]
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return false
	}
	s.lru.Remove(e.node)
	delete(s.entries, key)
	return true
}

// Clear removes every entry without calling onEvict.
func (c *Sharded[V]) Clear() {
	for _, s := range c.shards {
		s.mu.Lock()
		s.entries = make(map[string]*shardEntry[V])
		s.lru.Clear()
		s.mu.Unlock()
	}
}

// Len returns the number of entries across all shards.
func (c *Sharded[V]) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}

// Capacity returns the total capacity across all shards.
func (c *Sharded[V]) Capacity() int { return c.perShard * ShardCount }

// Stats returns a snapshot of the cache counters.
func (c *Sharded[V]) Stats() Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Stats{
		Len:       c.Len(),
		Capacity:  c.Capacity(),
		Hits:      hits,
		Misses:    misses,
		HitRate:   rate,
		Evictions: c.evictions.Load(),
	}
}

// ResetStats zeroes the hit, miss and eviction counters.
func (c *Sharded[V]) ResetStats() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.evictions.Store(0)
}

// Stats contains cache statistics.
type Stats struct {
	Len       int
	Capacity  int
	Hits      uint64
	Misses    uint64
	HitRate   float64
	Evictions uint64
}
