// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package parallel

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPool_Create(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{4, 4},
		{0, runtime.GOMAXPROCS(0)},
		{-5, runtime.GOMAXPROCS(0)},
	}
	for _, tt := range tests {
		p := NewWorkerPool(tt.in)
		if p.Workers() != tt.want {
			t.Errorf("NewWorkerPool(%d).Workers() = %d, want %d", tt.in, p.Workers(), tt.want)
		}
		if !p.IsRunning() {
			t.Error("pool not running after creation")
		}
		p.Close()
	}
}

func TestWorkerPool_Submit(t *testing.T) {
	p := NewWorkerPool(4)
	defer p.Close()

	const n = 200
	var wg sync.WaitGroup
	var count atomic.Int64
	wg.Add(n)
	for range n {
		if !p.Submit(func() {
			count.Add(1)
			wg.Done()
		}) {
			t.Fatal("Submit = false on a running pool")
		}
	}
	wg.Wait()
	if count.Load() != n {
		t.Errorf("count = %d, want %d", count.Load(), n)
	}
}

func TestWorkerPool_CloseDrains(t *testing.T) {
	p := NewWorkerPool(2)
	var count atomic.Int64
	for range 50 {
		p.Submit(func() {
			time.Sleep(100 * time.Microsecond)
			count.Add(1)
		})
	}
	p.Close()
	if count.Load() != 50 {
		t.Errorf("count after Close = %d, want 50", count.Load())
	}
	sub, done := p.Stats()
	if sub != 50 || done != 50 {
		t.Errorf("Stats = %d submitted, %d completed; want 50, 50", sub, done)
	}
}

func TestWorkerPool_SubmitAfterClose(t *testing.T) {
	p := NewWorkerPool(2)
	p.Close()
	p.Close() // idempotent

	if p.Submit(func() { t.Error("work ran after Close") }) {
		t.Error("Submit after Close = true")
	}
	if p.Submit(nil) {
		t.Error("Submit(nil) = true")
	}
}

func TestWorkerPool_Stealing(t *testing.T) {
	p := NewWorkerPool(4)
	defer p.Close()

	// One blocked worker must not stall the rest of the queue.
	block := make(chan struct{})
	p.Submit(func() { <-block })

	var wg sync.WaitGroup
	wg.Add(20)
	for range 20 {
		p.Submit(wg.Done)
	}
	waitOrFail(t, &wg)
	close(block)
}

func waitOrFail(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	ch := make(chan struct{})
	go func() {
		wg.Wait()
		close(ch)
	}()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for work")
	}
}

func TestLoop_RunPendingOrder(t *testing.T) {
	l := NewLoop()
	var got []int
	for i := range 5 {
		l.Post(func() { got = append(got, i) })
	}
	if l.Pending() != 5 {
		t.Errorf("Pending = %d, want 5", l.Pending())
	}
	if n := l.RunPending(); n != 5 {
		t.Errorf("RunPending = %d, want 5", n)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("order = %v, want ascending", got)
		}
	}
}

func TestLoop_PostFromCallbackRunsLater(t *testing.T) {
	l := NewLoop()
	var order []string
	l.Post(func() {
		order = append(order, "first")
		l.Post(func() { order = append(order, "nested") })
	})
	l.RunPending()
	if len(order) != 1 {
		t.Fatalf("nested callback ran in the same batch: %v", order)
	}
	l.RunPending()
	if len(order) != 2 || order[1] != "nested" {
		t.Errorf("order = %v", order)
	}
}

func TestLoop_RunAndStop(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exited := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(exited)
	}()

	var wg sync.WaitGroup
	var count atomic.Int64
	const n = 100
	wg.Add(n)
	for range n {
		go l.Post(func() {
			count.Add(1)
			wg.Done()
		})
	}
	waitOrFail(t, &wg)

	l.Stop()
	l.Stop()
	select {
	case <-exited:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
	if l.Post(func() {}) {
		t.Error("Post after Stop = true")
	}
	if count.Load() != n {
		t.Errorf("count = %d, want %d", count.Load(), n)
	}
}

func TestLoop_ContextCancel(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	exited := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(exited)
	}()
	cancel()
	select {
	case <-exited:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestWorkerPool_TrySubmitFull(t *testing.T) {
	p := NewWorkerPool(1)
	block := make(chan struct{})
	started := make(chan struct{})
	p.Submit(func() {
		close(started)
		<-block
	})
	<-started

	accepted := 0
	for range 100 {
		if p.TrySubmit(func() {}) {
			accepted++
		}
	}
	if accepted != 8 {
		t.Errorf("TrySubmit accepted %d items on a full pool, want 8", accepted)
	}
	close(block)
	p.Close()
	if p.TrySubmit(func() {}) {
		t.Error("TrySubmit after Close = true")
	}
}

func TestWorkerPool_SubmitRacingClose(t *testing.T) {
	for range 200 {
		p := NewWorkerPool(2)
		var accepted, ran atomic.Int64
		var wg sync.WaitGroup
		for range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range 50 {
					if p.Submit(func() { ran.Add(1) }) {
						accepted.Add(1)
					}
					if p.TrySubmit(func() { ran.Add(1) }) {
						accepted.Add(1)
					}
				}
			}()
		}
		runtime.Gosched()
		p.Close()
		wg.Wait()
		if a, r := accepted.Load(), ran.Load(); a != r {
			t.Fatalf("accepted %d items but ran %d", a, r)
		}
	}
}

func TestWorkerPool_SubmitBlocksUntilSpace(t *testing.T) {
	p := NewWorkerPool(1)
	defer p.Close()
	block := make(chan struct{})
	started := make(chan struct{})
	p.Submit(func() {
		close(started)
		<-block
	})
	<-started
	for p.TrySubmit(func() {}) {
	}

	queued := make(chan bool)
	go func() { queued <- p.Submit(func() {}) }()
	select {
	case <-queued:
		t.Fatal("Submit returned while every queue was full")
	case <-time.After(20 * time.Millisecond):
	}
	close(block)
	select {
	case ok := <-queued:
		if !ok {
			t.Error("Submit = false after space freed, want true")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Submit still blocked after the queue drained")
	}
}
