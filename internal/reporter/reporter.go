// Package reporter publishes whether both sources are audible at once.
package reporter

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/satindergrewal/chillatc/internal/playstate"
	"github.com/satindergrewal/chillatc/internal/sched"
)

// Reporter samples two trackers and emits the AND of their playing
// states whenever it changes.
type Reporter struct {
	a, b     playstate.Reader
	gate     *playstate.Gate
	interval time.Duration
	log      zerolog.Logger
}

// New returns a reporter over a and b. Interval defaults to 1s.
func New(a, b playstate.Reader, interval time.Duration, emit func(bool), log zerolog.Logger) *Reporter {
	if interval <= 0 {
		interval = time.Second
	}
	r := &Reporter{a: a, b: b, interval: interval, log: log}
	r.gate = playstate.NewGate(func(v bool) {
		r.log.Debug().Bool("both_playing", v).Msg("sync state changed")
		if emit != nil {
			emit(v)
		}
	})
	return r
}

// Tick recomputes the combined state. The first tick always emits.
func (r *Reporter) Tick() {
	r.gate.Set(r.a.Playing() && r.b.Playing())
}

// Playing returns the last computed value.
func (r *Reporter) Playing() bool { return r.gate.Playing() }

// Emitted returns the last value sent downstream, if any.
func (r *Reporter) Emitted() (value, ok bool) { return r.gate.Emitted() }

// Start schedules Tick on s every interval.
func (r *Reporter) Start(s sched.Scheduler) *sched.Task {
	return s.Every(r.interval, r.Tick)
}
