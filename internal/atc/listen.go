package atc

import (
	"math"
	"time"

	"github.com/satindergrewal/chillatc/internal/playstate"
	"github.com/satindergrewal/chillatc/internal/sched"
)

// ListenTimer accumulates how long the atc source has been playing and
// reports whole seconds once per report interval.
type ListenTimer struct {
	sched      sched.Scheduler
	src        playstate.Reader
	report     func(seconds int)
	tick       time.Duration
	every      time.Duration
	last       time.Time
	cumulative float64
	total      float64
}

// NewListenTimer creates a stopped timer.
func NewListenTimer(s sched.Scheduler, src playstate.Reader, tick, every time.Duration, report func(int)) *ListenTimer {
	if tick <= 0 {
		tick = time.Second
	}
	if every <= 0 {
		every = time.Minute
	}
	return &ListenTimer{sched: s, src: src, report: report, tick: tick, every: every}
}

// Start schedules the accumulate and report tasks and registers them
// with g.
func (l *ListenTimer) Start(g *sched.Group) {
	l.last = l.sched.Now()
	g.Track(l.sched.Every(l.tick, l.Tick))
	g.Track(l.sched.Every(l.every, l.Flush))
}

// Tick adds the time since the previous tick if the source is playing.
func (l *ListenTimer) Tick() {
	now := l.sched.Now()
	if l.src.Playing() {
		d := now.Sub(l.last).Seconds()
		l.cumulative += d
		l.total += d
	}
	l.last = now
}

// Flush reports the accumulated whole seconds and resets the counter.
func (l *ListenTimer) Flush() {
	secs := int(math.Floor(l.cumulative))
	l.cumulative = 0
	if l.report != nil {
		l.report(secs)
	}
}

// Total returns all seconds played since the timer was created.
func (l *ListenTimer) Total() float64 {
	return l.total
}
