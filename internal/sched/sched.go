package sched

import (
	"sync"
	"sync/atomic"
	"time"
)

// Scheduler runs timer callbacks and async continuations on a single
// logical thread. Components that only touch their state from callbacks
// handed to a Scheduler never need their own locks.
type Scheduler interface {
	// Every runs fn every d until the returned task is stopped.
	Every(d time.Duration, fn func()) *Task
	// After runs fn once after d unless the task is stopped first.
	After(d time.Duration, fn func()) *Task
	// Go runs work off the scheduler thread. If work returns a non-nil
	// continuation it is run back on the scheduler thread.
	Go(work func() func())
	// Now returns the scheduler's notion of the current time.
	Now() time.Time
}

// Task is a cancellation handle for a scheduled callback.
type Task struct {
	stopped atomic.Bool
	cancel  func()
}

// Stop cancels the task. Safe to call more than once and on a nil task.
func (t *Task) Stop() {
	if t == nil {
		return
	}
	if t.stopped.CompareAndSwap(false, true) && t.cancel != nil {
		t.cancel()
	}
}

// Stopped reports whether the task was stopped or, for one-shot tasks, has fired.
func (t *Task) Stopped() bool {
	return t == nil || t.stopped.Load()
}

// Group collects teardown functions so a whole view can be torn down as a unit.
type Group struct {
	mu     sync.Mutex
	stops  []func()
	closed bool
}

// Add registers a teardown function. If the group is already stopped the
// function runs immediately.
func (g *Group) Add(stop func()) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		stop()
		return
	}
	g.stops = append(g.stops, stop)
	g.mu.Unlock()
}

// Track registers a task with the group and returns it.
func (g *Group) Track(t *Task) *Task {
	g.Add(t.Stop)
	return t
}

// Len returns the number of registered teardown functions.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.stops)
}

// Stop runs every registered teardown in reverse order. Idempotent.
func (g *Group) Stop() {
	g.mu.Lock()
	stops := g.stops
	g.stops = nil
	g.closed = true
	g.mu.Unlock()

	for i := len(stops) - 1; i >= 0; i-- {
		stops[i]()
	}
}
