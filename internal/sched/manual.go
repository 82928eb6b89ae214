package sched

import "time"

// Manual is a deterministic Scheduler for tests. Time only moves when
// Advance is called; due callbacks run synchronously in the caller.
// Manual is not safe for concurrent use.
type Manual struct {
	now    time.Time
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	at    time.Time
	every time.Duration
	fn    func()
	task  *Task
	seq   int
}

// NewManual returns a manual scheduler starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Every implements Scheduler.
func (m *Manual) Every(d time.Duration, fn func()) *Task {
	t := &Task{}
	m.add(&manualTimer{at: m.now.Add(d), every: d, fn: fn, task: t})
	return t
}

// After implements Scheduler.
func (m *Manual) After(d time.Duration, fn func()) *Task {
	t := &Task{}
	m.add(&manualTimer{at: m.now.Add(d), fn: fn, task: t})
	return t
}

// Go runs work and its continuation inline.
func (m *Manual) Go(work func() func()) {
	if then := work(); then != nil {
		then()
	}
}

// Now implements Scheduler.
func (m *Manual) Now() time.Time {
	return m.now
}

// Pending returns the number of live timers.
func (m *Manual) Pending() int {
	m.prune()
	return len(m.timers)
}

// Advance moves time forward by d, firing every timer that falls due in
// deadline order. Timers registered by callbacks fire too if they fall
// within the window.
func (m *Manual) Advance(d time.Duration) {
	end := m.now.Add(d)
	for {
		next := m.nextDue(end)
		if next == nil {
			break
		}
		m.now = next.at
		if next.every > 0 {
			next.at = next.at.Add(next.every)
		} else {
			next.task.stopped.Store(true)
		}
		next.fn()
	}
	m.now = end
	m.prune()
}

func (m *Manual) add(t *manualTimer) {
	m.seq++
	t.seq = m.seq
	m.timers = append(m.timers, t)
}

func (m *Manual) nextDue(end time.Time) *manualTimer {
	var best *manualTimer
	for _, t := range m.timers {
		if t.task.Stopped() || t.at.After(end) {
			continue
		}
		if best == nil || t.at.Before(best.at) || (t.at.Equal(best.at) && t.seq < best.seq) {
			best = t
		}
	}
	return best
}

func (m *Manual) prune() {
	live := m.timers[:0]
	for _, t := range m.timers {
		if !t.task.Stopped() {
			live = append(live, t)
		}
	}
	m.timers = live
}
