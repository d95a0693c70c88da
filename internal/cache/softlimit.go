// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package cache

import (
	"cmp"
	"slices"
	"sync"
)

// SoftLimit is a small LRU cache with a soft limit. Once it holds more than
// limit entries, the oldest quarter is dropped in one pass, so steady
// insertion does not pay an eviction on every Set.
type SoftLimit[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*softEntry[V]
	limit   int
	tick    int64
	onEvict EvictFunc[K, V]
}

type softEntry[V any] struct {
	value V
	atime int64
}

// NewSoftLimit creates a cache. A limit of 0 means unlimited.
func NewSoftLimit[K comparable, V any](limit int, onEvict EvictFunc[K, V]) *SoftLimit[K, V] {
	return &SoftLimit[K, V]{
		entries: make(map[K]*softEntry[V]),
		limit:   limit,
		onEvict: onEvict,
	}
}

// Get returns the value for key and refreshes its access time.
func (c *SoftLimit[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.tick++
	e.atime = c.tick
	return e.value, true
}

// Set stores value under key. A replaced value is passed to onEvict.
func (c *SoftLimit[K, V]) Set(key K, value V) {
	c.mu.Lock()
	c.tick++
	var dropped []softEvicted[K, V]
	if old, ok := c.entries[key]; ok {
		dropped = append(dropped, softEvicted[K, V]{key, old.value})
	}
	c.entries[key] = &softEntry[V]{value: value, atime: c.tick}
	if c.limit > 0 && len(c.entries) > c.limit {
		dropped = c.evictOldest(dropped)
	}
	c.mu.Unlock()
	c.notify(dropped)
}

// Delete removes key and passes its value to onEvict.
func (c *SoftLimit[K, V]) Delete(key K) bool {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		delete(c.entries, key)
	}
	c.mu.Unlock()
	if ok {
		c.notify([]softEvicted[K, V]{{key, e.value}})
	}
	return ok
}

// Clear removes every entry, passing each to onEvict.
func (c *SoftLimit[K, V]) Clear() {
	c.mu.Lock()
	dropped := make([]softEvicted[K, V], 0, len(c.entries))
	for k, e := range c.entries {
		dropped = append(dropped, softEvicted[K, V]{k, e.value})
	}
	c.entries = make(map[K]*softEntry[V])
	c.tick = 0
	c.mu.Unlock()
	c.notify(dropped)
}

// Len returns the number of entries.
func (c *SoftLimit[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Capacity returns the soft limit.
func (c *SoftLimit[K, V]) Capacity() int { return c.limit }

type softEvicted[K comparable, V any] struct {
	key   K
	value V
}

// evictOldest trims the cache to three quarters of the limit.
// Caller must hold c.mu.
func (c *SoftLimit[K, V]) evictOldest(dropped []softEvicted[K, V]) []softEvicted[K, V] {
	target := max(1, c.limit*3/4)
	n := len(c.entries) - target
	if n <= 0 {
		return dropped
	}
	type aged struct {
		key   K
		atime int64
	}
	all := make([]aged, 0, len(c.entries))
	for k, e := range c.entries {
		all = append(all, aged{k, e.atime})
	}
	slices.SortFunc(all, func(a, b aged) int { return cmp.Compare(a.atime, b.atime) })
	for _, a := range all[:n] {
		dropped = append(dropped, softEvicted[K, V]{a.key, c.entries[a.key].value})
		delete(c.entries, a.key)
	}
	return dropped
}

func (c *SoftLimit[K, V]) notify(dropped []softEvicted[K, V]) {
	if c.onEvict == nil {
		return
	}
	for _, d := range dropped {
		c.onEvict(d.key, d.value)
	}
}
