// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package task

import (
	"context"
	"sync/atomic"
)

// State is the lifecycle of a Job.
type State int32

const (
	// Pending jobs have not started and can still be canceled.
	Pending State = iota
	// Running jobs have started; Cancel fails.
	Running
	// Done jobs have returned.
	Done
	// Canceled jobs were stopped before they started and will never run.
	Canceled
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Done:
		return "done"
	case Canceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Job is a cancelable unit of work. It runs at most once.
type Job struct {
	state  atomic.Int32
	fn     func(ctx context.Context)
	ctx    context.Context
	cancel context.CancelFunc
}

// NewJob wraps fn. The context passed to fn is derived from parent and is
// canceled when the job finishes or is canceled.
func NewJob(parent context.Context, fn func(ctx context.Context)) *Job {
	ctx, cancel := context.WithCancel(parent)
	return &Job{fn: fn, ctx: ctx, cancel: cancel}
}

// State returns the current state.
func (j *Job) State() State { return State(j.state.Load()) }

// Run executes the job unless it was canceled or already started.
// It reports whether fn ran.
func (j *Job) Run() bool {
	if !j.state.CompareAndSwap(int32(Pending), int32(Running)) {
		return false
	}
	defer func() {
		j.state.Store(int32(Done))
		j.cancel()
	}()
	j.fn(j.ctx)
	return true
}

// Cancel stops a pending job. It fails once the job has started.
func (j *Job) Cancel() bool {
	if !j.state.CompareAndSwap(int32(Pending), int32(Canceled)) {
		return false
	}
	j.cancel()
	return true
}
