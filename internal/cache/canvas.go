// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package cache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gogpu/ace/internal/canvas"
)

// DefaultCanvasCapacity is the canvas cache size used when none is given.
const DefaultCanvasCapacity = 128

// CanvasCache holds decoded canvas images keyed by (source, size).
//
// The cache keeps its own clone of every stored image and releases it when
// the entry is evicted or removed. Callers never share a handle with it.
type CanvasCache struct {
	// mu makes lookup+clone atomic with respect to eviction.
	mu  sync.Mutex
	lru *lru.Cache[string, *canvas.CanvasImage]
}

// NewCanvasCache creates a cache holding up to size images.
func NewCanvasCache(size int) *CanvasCache {
	if size <= 0 {
		size = DefaultCanvasCapacity
	}
	// NewWithEvict only fails for size <= 0.
	l, _ := lru.NewWithEvict(size, func(_ string, img *canvas.CanvasImage) {
		img.Release()
	})
	return &CanvasCache{lru: l}
}

// Get returns a new clone of the image cached under key. The caller owns
// the clone and must Release it.
func (c *CanvasCache) Get(key string) (*canvas.CanvasImage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	img, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	return img.Clone(), true
}

// Contains reports whether key is cached without touching recency.
func (c *CanvasCache) Contains(key string) bool { return c.lru.Contains(key) }

// Put stores a clone of img under key. If key is already cached the existing
// image is kept. img remains owned by the caller.
func (c *CanvasCache) Put(key string, img *canvas.CanvasImage) {
	if img == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	clone := img.Clone()
	if ok, _ := c.lru.ContainsOrAdd(key, clone); ok {
		clone.Release()
	}
}

// Remove drops key and releases the cached image.
func (c *CanvasCache) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Remove(key)
}

// Purge releases every cached image.
func (c *CanvasCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// Len returns the number of cached images.
func (c *CanvasCache) Len() int { return c.lru.Len() }
