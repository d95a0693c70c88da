// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package cache provides the thread-safe caches behind the image pipeline.
//
// # Sharded[V]
//
// A 16-shard LRU keyed by cache-key strings, used as the object cache.
// Each shard has its own lock and evicts strictly least recently used.
//
//	objects := cache.NewSharded[*object.Object](1024)
//	objects.Set(src.Key(), obj)
//	obj, ok := objects.Get(src.Key())
//
// # SoftLimit[K, V]
//
// A single-lock cache that drops the oldest quarter of its entries once it
// grows past its limit. Used for the small thumbnail cache.
//
// # CanvasCache
//
// Decoded canvas images keyed by (source, size), backed by
// github.com/hashicorp/golang-lru/v2. The cache owns one clone of each image
// and releases it on eviction; Get hands out fresh clones.
//
// All caches accept an eviction callback, are safe for concurrent use, and
// must not be copied after creation.
package cache
