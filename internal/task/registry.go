// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package task deduplicates in-flight work by cache key.
//
// For any key at most one task exists at a time. The first registrant does
// the work; everyone registering while it is in flight joins the waiter set
// and is handed the result by whoever calls End. Every mutation happens
// under a single mutex, so a registrant can never miss an in-flight task or
// start a second one.
package task

import "sync"

type entry[C any] struct {
	waiters []Waiter[C]
	job     *Job
}

// Registry maps cache keys to in-flight tasks. Construct one per pipeline;
// registries are independent of each other.
type Registry[C any] struct {
	mu    sync.Mutex
	tasks map[string]*entry[C]
}

// NewRegistry returns an empty registry.
func NewRegistry[C any]() *Registry[C] {
	return &Registry[C]{tasks: make(map[string]*entry[C])}
}

// Register adds w to the task for key. It returns true when no task existed
// and the caller must now do the work, false when w joined a task that is
// already in flight. Registering the same waiter twice is a no-op join.
func (r *Registry[C]) Register(key string, w Waiter[C]) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.tasks[key]; ok {
		for _, have := range e.waiters {
			if have == w {
				return false
			}
		}
		e.waiters = append(e.waiters, w)
		return false
	}
	r.tasks[key] = &entry[C]{waiters: []Waiter[C]{w}}
	return true
}

// SetJob attaches the cancelable work for key. It reports false when no task
// exists for key.
func (r *Registry[C]) SetJob(key string, j *Job) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.tasks[key]
	if !ok {
		return false
	}
	e.job = j
	return true
}

// End removes the task for key and returns every waiter it collected.
// Only the first End for a task sees its waiters; later calls return nil.
func (r *Registry[C]) End(key string) []Waiter[C] {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.tasks[key]
	if !ok {
		return nil
	}
	delete(r.tasks, key)
	return e.waiters
}

// Cancel removes w from the task for key. If w was the last waiter and the
// job has not started, the job is canceled and the task removed; Cancel then
// returns true. Otherwise the task runs to completion without w.
func (r *Registry[C]) Cancel(key string, w Waiter[C]) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.tasks[key]
	if !ok {
		return false
	}
	for i, have := range e.waiters {
		if have == w {
			e.waiters = append(e.waiters[:i], e.waiters[i+1:]...)
			break
		}
	}
	if len(e.waiters) > 0 || e.job == nil || !e.job.Cancel() {
		return false
	}
	delete(r.tasks, key)
	return true
}

// Len returns the number of in-flight tasks.
func (r *Registry[C]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// Waiters returns the number of waiters on key, or -1 when no task exists.
func (r *Registry[C]) Waiters(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.tasks[key]
	if !ok {
		return -1
	}
	return len(e.waiters)
}
