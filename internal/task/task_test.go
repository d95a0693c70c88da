// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package task

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
)

type consumer struct{ name string }

func TestRegisterConcurrentSingleWinner(t *testing.T) {
	const n = 64
	r := NewRegistry[*consumer]()

	var winners atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := NewHandle(&consumer{}).Waiter()
			<-start
			if r.Register("k", w) {
				winners.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := winners.Load(); got != 1 {
		t.Errorf("Register returned true %d times, want 1", got)
	}
	if got := r.Waiters("k"); got != n {
		t.Errorf("Waiters = %d, want %d", got, n)
	}
	if got := len(r.End("k")); got != n {
		t.Errorf("End returned %d waiters, want %d", got, n)
	}
	if got := r.End("k"); got != nil {
		t.Errorf("second End = %v, want nil", got)
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d after End, want 0", r.Len())
	}
}

func TestRegisterSameWaiterOnce(t *testing.T) {
	r := NewRegistry[*consumer]()
	w := NewHandle(&consumer{}).Waiter()
	if !r.Register("k", w) {
		t.Fatal("first Register = false")
	}
	if r.Register("k", w) {
		t.Error("second Register = true")
	}
	if r.Waiters("k") != 1 {
		t.Errorf("Waiters = %d, want 1", r.Waiters("k"))
	}
}

func TestEndThenRegisterStartsNewTask(t *testing.T) {
	r := NewRegistry[*consumer]()
	h := NewHandle(&consumer{})
	r.Register("k", h.Waiter())
	r.End("k")
	if !r.Register("k", h.Waiter()) {
		t.Error("Register after End joined a finished task")
	}
}

func TestCancelPendingLastWaiter(t *testing.T) {
	r := NewRegistry[*consumer]()
	w := NewHandle(&consumer{}).Waiter()
	r.Register("k", w)
	ran := false
	j := NewJob(context.Background(), func(context.Context) { ran = true })
	r.SetJob("k", j)

	if !r.Cancel("k", w) {
		t.Fatal("Cancel of pending job = false")
	}
	if r.Len() != 0 {
		t.Error("canceled task still registered")
	}
	if j.Run() || ran {
		t.Error("canceled job ran")
	}
	if j.State() != Canceled {
		t.Errorf("State = %v, want canceled", j.State())
	}
}

func TestCancelKeepsTaskWithOtherWaiters(t *testing.T) {
	r := NewRegistry[*consumer]()
	a := NewHandle(&consumer{"a"}).Waiter()
	b := NewHandle(&consumer{"b"}).Waiter()
	r.Register("k", a)
	r.Register("k", b)
	j := NewJob(context.Background(), func(context.Context) {})
	r.SetJob("k", j)

	if r.Cancel("k", a) {
		t.Error("Cancel with another waiter left = true")
	}
	if j.State() != Pending {
		t.Errorf("job state = %v, want pending", j.State())
	}
	got := r.End("k")
	if len(got) != 1 || got[0] != b {
		t.Errorf("End = %v, want only b", got)
	}
}

func TestCancelRunningJobLeavesTask(t *testing.T) {
	r := NewRegistry[*consumer]()
	w := NewHandle(&consumer{}).Waiter()
	r.Register("k", w)

	started := make(chan struct{})
	release := make(chan struct{})
	j := NewJob(context.Background(), func(context.Context) {
		close(started)
		<-release
	})
	r.SetJob("k", j)
	done := make(chan struct{})
	go func() {
		j.Run()
		close(done)
	}()
	<-started

	if r.Cancel("k", w) {
		t.Error("Cancel of running job = true")
	}
	if r.Len() != 1 {
		t.Error("task removed while its job was running")
	}
	close(release)
	<-done
	if got := r.End("k"); len(got) != 0 {
		t.Errorf("End = %v, want no waiters", got)
	}
	if j.State() != Done {
		t.Errorf("State = %v, want done", j.State())
	}
}

func TestCancelWithoutJob(t *testing.T) {
	r := NewRegistry[*consumer]()
	w := NewHandle(&consumer{}).Waiter()
	r.Register("k", w)
	if r.Cancel("k", w) {
		t.Error("Cancel without a job = true")
	}
	if r.Cancel("missing", w) {
		t.Error("Cancel of unknown key = true")
	}
	if r.SetJob("missing", NewJob(context.Background(), func(context.Context) {})) {
		t.Error("SetJob of unknown key = true")
	}
}

func TestWaiterGeneration(t *testing.T) {
	c := &consumer{"x"}
	h := NewHandle(c)
	old := h.Waiter()
	if got, ok := old.Resolve(); !ok || got != c {
		t.Fatalf("Resolve = %v, %v; want consumer", got, ok)
	}

	h.Invalidate()
	if old.Valid() {
		t.Error("waiter resolved after Invalidate")
	}
	cur := h.Waiter()
	if cur == old {
		t.Error("waiters from different generations compare equal")
	}
	if !cur.Valid() {
		t.Error("fresh waiter does not resolve")
	}

	h.Close()
	if cur.Valid() || h.Waiter().Valid() {
		t.Error("waiter resolved after Close")
	}
	if !h.Closed() {
		t.Error("Closed = false")
	}
}

func TestStaleWaiterSkippedOnEnd(t *testing.T) {
	r := NewRegistry[*consumer]()
	live := NewHandle(&consumer{"live"})
	gone := NewHandle(&consumer{"gone"})
	r.Register("k", gone.Waiter())
	r.Register("k", live.Waiter())

	gone.Close()

	var delivered []string
	for _, w := range r.End("k") {
		if c, ok := w.Resolve(); ok {
			delivered = append(delivered, c.name)
		}
	}
	if len(delivered) != 1 || delivered[0] != "live" {
		t.Errorf("delivered = %v, want [live]", delivered)
	}
}

func TestJobRunsOnce(t *testing.T) {
	var n atomic.Int32
	var ctxErr error
	j := NewJob(context.Background(), func(ctx context.Context) {
		n.Add(1)
		ctxErr = ctx.Err()
	})
	if !j.Run() {
		t.Fatal("Run = false")
	}
	if j.Run() {
		t.Error("second Run = true")
	}
	if j.Cancel() {
		t.Error("Cancel after Run = true")
	}
	if n.Load() != 1 || ctxErr != nil {
		t.Errorf("ran %d times, ctx err %v", n.Load(), ctxErr)
	}
	if j.State().String() != "done" {
		t.Errorf("State = %v", j.State())
	}
}
