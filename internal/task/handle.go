// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package task

import (
	"sync"
	"sync/atomic"
)

var nextHandleID atomic.Uint64

// Handle is a revocable reference to a consumer of task results.
//
// The registry never holds a consumer directly. It holds Waiters, each
// pinned to the generation of its Handle at the time it was taken. Bumping
// the generation makes every outstanding Waiter unresolvable, so a consumer
// can walk away from pending work without deregistering anywhere.
type Handle[C any] struct {
	id uint64

	mu       sync.RWMutex
	gen      uint64
	consumer C
	closed   bool
}

// NewHandle returns a live handle for consumer.
func NewHandle[C any](consumer C) *Handle[C] {
	return &Handle[C]{id: nextHandleID.Add(1), consumer: consumer}
}

// ID returns a process-unique identifier for the handle.
func (h *Handle[C]) ID() uint64 { return h.id }

// Waiter captures the handle at its current generation.
func (h *Handle[C]) Waiter() Waiter[C] {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return Waiter[C]{h: h, gen: h.gen}
}

// Generation returns the current generation.
func (h *Handle[C]) Generation() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.gen
}

// Invalidate advances the generation. Waiters taken before the call no
// longer resolve; the handle itself stays usable.
func (h *Handle[C]) Invalidate() {
	h.mu.Lock()
	h.gen++
	h.mu.Unlock()
}

// Close invalidates the handle for good and drops the consumer reference.
func (h *Handle[C]) Close() {
	h.mu.Lock()
	h.gen++
	h.closed = true
	var zero C
	h.consumer = zero
	h.mu.Unlock()
}

// Closed reports whether Close was called.
func (h *Handle[C]) Closed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.closed
}

// Waiter is a (handle, generation) pair registered against a task key.
// Waiters are comparable; two waiters are equal when they name the same
// handle at the same generation.
type Waiter[C any] struct {
	h   *Handle[C]
	gen uint64
}

// Handle returns the handle the waiter was taken from.
func (w Waiter[C]) Handle() *Handle[C] { return w.h }

// Generation returns the generation the waiter was taken at.
func (w Waiter[C]) Generation() uint64 { return w.gen }

// Resolve returns the consumer if the handle is still at the waiter's
// generation.
func (w Waiter[C]) Resolve() (C, bool) {
	var zero C
	if w.h == nil {
		return zero, false
	}
	w.h.mu.RLock()
	defer w.h.mu.RUnlock()
	if w.h.closed || w.h.gen != w.gen {
		return zero, false
	}
	return w.h.consumer, true
}

// Valid reports whether Resolve would succeed right now.
func (w Waiter[C]) Valid() bool {
	_, ok := w.Resolve()
	return ok
}
