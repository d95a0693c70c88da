// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package ace is an asynchronous image decode-and-cache pipeline.
//
// # Overview
//
// A consumer describes an image with a Source and asks for it through a
// LoadingContext or Pipeline.Load. The pipeline reads the bytes with a
// loader chosen by source type, parses the header into an image object,
// and decodes the object into a CanvasImage once a target size is known.
//
// Concurrent requests for the same object, or the same object at the same
// size, share one unit of work. Every waiter is notified when it finishes.
//
// # Quick Start
//
//	p, err := ace.New(ace.WithCacheDir(dir))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close()
//
//	img, err := p.Load(ctx, ace.NewSource("photo.jpg"), ace.Size{Width: 256, Height: 256}, false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer img.Release()
//
// # Caches
//
// Three in-memory caches sit in front of the work:
//   - object cache: parsed objects by source key (sharded LRU)
//   - canvas cache: decoded images by source key and size
//   - thumbnail cache: decoded thumbnail:// sources (soft-limit LRU)
//
// Decoded images are also compressed and written to an on-disk store
// ("file" or "bolt") so later decodes at the same size skip the codec.
//
// # Ownership
//
// Caches hold their own reference to every CanvasImage. Each consumer gets
// its own clone and must Release it; releasing never affects other holders.
//
// # Threading
//
// Loads and decodes run on a worker pool. Results are delivered on a single
// UI goroutine owned by the pipeline.
package ace

// Version is the current version of the library.
const Version = "0.1.0"
