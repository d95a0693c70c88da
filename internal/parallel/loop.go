// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package parallel

import (
	"context"
	"sync"
)

// Loop is a single-consumer callback queue standing in for the UI thread.
//
// Any goroutine may Post. Callbacks run one at a time, in post order, on
// whichever goroutine drives the loop: Run for a dedicated goroutine, or
// RunPending from a host frame loop.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	stopped bool
	done    chan struct{}
}

// NewLoop returns an idle loop.
func NewLoop() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Post queues fn. It never blocks and reports false after Stop.
func (l *Loop) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// RunPending runs the callbacks queued so far on the calling goroutine and
// returns how many ran. Callbacks posted while it runs wait for the next call.
func (l *Loop) RunPending() int {
	l.mu.Lock()
	batch := l.queue
	l.queue = nil
	l.mu.Unlock()
	for _, fn := range batch {
		fn()
	}
	return len(batch)
}

// Run drives the loop until ctx is done or Stop is called. Callbacks still
// queued at Stop are run before Run returns.
func (l *Loop) Run(ctx context.Context) {
	for {
		l.RunPending()
		select {
		case <-l.wake:
		case <-l.done:
			l.RunPending()
			return
		case <-ctx.Done():
			return
		}
	}
}

// Start runs the loop on a new goroutine.
func (l *Loop) Start(ctx context.Context) {
	go l.Run(ctx)
}

// Stop rejects further posts and ends Run. Safe to call multiple times.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return
	}
	l.stopped = true
	close(l.done)
}

// Pending returns the number of queued callbacks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}
