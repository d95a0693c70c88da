// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool is the background executor for decode and load work.
//
// Each worker owns a queue and steals from the others when its own runs dry,
// so one slow decode does not hold back work queued behind it.
//
// WorkerPool is safe for concurrent use.
type WorkerPool struct {
	workers int
	queues  []chan func()
	done    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool

	// mu orders enqueues before Close: an item is only queued under the read
	// lock while the pool is still running, so the final drain sees it.
	mu sync.RWMutex
	// space is signaled whenever a worker takes an item off a queue.
	space chan struct{}

	submitted atomic.Uint64
	completed atomic.Uint64
}

// NewWorkerPool starts a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	queueSize := max(8, workers*4)

	p := &WorkerPool{
		workers: workers,
		queues:  make([]chan func(), workers),
		done:    make(chan struct{}),
		space:   make(chan struct{}, 1),
	}
	for i := range workers {
		p.queues[i] = make(chan func(), queueSize)
	}
	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()
	own := p.queues[id]
	for {
		select {
		case <-p.done:
			p.drain(own)
			return
		case fn := <-own:
			p.run(fn)
			continue
		default:
		}

		if fn := p.steal(id); fn != nil {
			p.run(fn)
			continue
		}

		select {
		case <-p.done:
			p.drain(own)
			return
		case fn := <-own:
			p.run(fn)
		}
	}
}

func (p *WorkerPool) run(fn func()) {
	select {
	case p.space <- struct{}{}:
	default:
	}
	if fn == nil {
		return
	}
	defer p.completed.Add(1)
	fn()
}

func (p *WorkerPool) drain(q chan func()) {
	for {
		select {
		case fn := <-q:
			p.run(fn)
		default:
			return
		}
	}
}

func (p *WorkerPool) steal(self int) func() {
	for i := range p.workers {
		if i == self {
			continue
		}
		select {
		case fn := <-p.queues[i]:
			return fn
		default:
		}
	}
	return nil
}

// Submit queues fn on the worker with the shortest queue. It blocks while
// every queue is full and reports false if the pool is closed. Work accepted
// by Submit always runs, even when Close races with it.
func (p *WorkerPool) Submit(fn func()) bool {
	if fn == nil {
		return false
	}
	for {
		queued, open := p.enqueue(fn, true)
		if queued || !open {
			return queued
		}
		select {
		case <-p.space:
		case <-p.done:
			return false
		}
	}
}

// TrySubmit is Submit without blocking: it reports false when every queue
// is full. Workers use it to queue follow-up work without risking a stall.
func (p *WorkerPool) TrySubmit(fn func()) bool {
	if fn == nil {
		return false
	}
	queued, _ := p.enqueue(fn, false)
	return queued
}

// enqueue makes one non-blocking attempt to queue fn. With shortest it
// targets the shortest queue only; otherwise it tries every queue in turn.
// open is false once the pool is closed.
func (p *WorkerPool) enqueue(fn func(), shortest bool) (queued, open bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.running.Load() {
		return false, false
	}
	queues := p.queues
	if shortest {
		idx := 0
		for i := 1; i < p.workers; i++ {
			if len(p.queues[i]) < len(p.queues[idx]) {
				idx = i
			}
		}
		queues = p.queues[idx : idx+1]
	}
	for _, q := range queues {
		select {
		case q <- fn:
			p.submitted.Add(1)
			return true, true
		default:
		}
	}
	return false, true
}

// Close stops accepting work, runs everything already queued and waits for
// the workers to exit. Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	if !p.running.CompareAndSwap(true, false) {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers.
func (p *WorkerPool) Workers() int { return p.workers }

// IsRunning reports whether the pool accepts work.
func (p *WorkerPool) IsRunning() bool { return p.running.Load() }

// Queued approximates the number of items waiting in the queues.
func (p *WorkerPool) Queued() int {
	n := 0
	for _, q := range p.queues {
		n += len(q)
	}
	return n
}

// Stats returns the number of submitted and completed work items.
func (p *WorkerPool) Stats() (submitted, completed uint64) {
	return p.submitted.Load(), p.completed.Load()
}
