package sched

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrStopped is returned by Do once the loop has exited.
var ErrStopped = errors.New("sched: loop stopped")

// Loop is a single-goroutine executor. Timer ticks, host commands and
// media events are all posted here, so every callback observes a
// consistent view of tracker state.
type Loop struct {
	ops      chan func()
	done     chan struct{}
	doneOnce sync.Once
}

// NewLoop creates a loop with the given queue depth.
func NewLoop(queue int) *Loop {
	if queue <= 0 {
		queue = 1024
	}
	return &Loop{
		ops:  make(chan func(), queue),
		done: make(chan struct{}),
	}
}

// Run executes posted callbacks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	defer l.doneOnce.Do(func() { close(l.done) })
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.ops:
			fn()
		}
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Post queues fn for execution. Returns false if the loop has exited.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.ops <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrStopped
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
}

// Every implements Scheduler.
func (l *Loop) Every(d time.Duration, fn func()) *Task {
	t := &Task{}
	stop := make(chan struct{})
	t.cancel = func() { close(stop) }

	go func() {
		ticker := time.NewTicker(d)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-l.done:
				return
			case <-ticker.C:
				l.Post(func() {
					if !t.Stopped() {
						fn()
					}
				})
			}
		}
	}()
	return t
}

// After implements Scheduler.
func (l *Loop) After(d time.Duration, fn func()) *Task {
	t := &Task{}
	timer := time.AfterFunc(d, func() {
		l.Post(func() {
			// A one-shot task counts as stopped once it fires.
			if t.stopped.CompareAndSwap(false, true) {
				fn()
			}
		})
	})
	t.cancel = func() { timer.Stop() }
	return t
}

// Go implements Scheduler.
func (l *Loop) Go(work func() func()) {
	go func() {
		if then := work(); then != nil {
			l.Post(then)
		}
	}()
}

// Now implements Scheduler.
func (l *Loop) Now() time.Time {
	return time.Now()
}
