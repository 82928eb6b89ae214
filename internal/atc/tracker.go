// Package atc tracks the broadcast element's transport state.
package atc

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/satindergrewal/chillatc/internal/media"
	"github.com/satindergrewal/chillatc/internal/playstate"
	"github.com/satindergrewal/chillatc/internal/sched"
)

var trackedEvents = []media.Event{
	media.EventPlay,
	media.EventPlaying,
	media.EventPause,
	media.EventEnded,
}

// Options tunes the tracker's timing.
type Options struct {
	PollInterval time.Duration
	GuardWindow  time.Duration
}

// Tracker derives the atc playing state from a media element. Element
// events and a periodic poll both write through one change-only gate.
// All methods must run on the scheduler's thread.
type Tracker struct {
	el    media.Element
	sched sched.Scheduler
	gate  *playstate.Gate
	guard *SwitchGuard
	log   zerolog.Logger
	opts  Options

	attached bool
	offs     []func()
	poll     *sched.Task
}

// NewTracker creates a detached tracker. emit receives every change.
func NewTracker(el media.Element, s sched.Scheduler, emit func(bool), opts Options, log zerolog.Logger) *Tracker {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.GuardWindow <= 0 {
		opts.GuardWindow = 300 * time.Millisecond
	}
	t := &Tracker{
		el:    el,
		sched: s,
		gate:  playstate.NewGate(emit),
		log:   log,
		opts:  opts,
	}
	t.guard = NewSwitchGuard(s, opts.GuardWindow, func() {
		t.log.Debug().Msg("switch guard cleared")
	})
	return t
}

// Attach registers the element listeners and starts the poll. Returns
// false if already attached.
func (t *Tracker) Attach() bool {
	if t.el == nil {
		t.log.Warn().Msg("atc element not found, listeners not attached")
		return false
	}
	if t.attached {
		return false
	}
	t.attached = true
	for _, ev := range trackedEvents {
		ev := ev
		t.offs = append(t.offs, t.el.On(ev, func() { t.observe(string(ev)) }))
	}
	t.poll = t.sched.Every(t.opts.PollInterval, func() { t.observe("poll") })
	t.log.Info().Msg("atc listeners attached")
	return true
}

// Detach removes the listeners and stops the poll.
func (t *Tracker) Detach() {
	if !t.attached {
		return
	}
	for _, off := range t.offs {
		off()
	}
	t.offs = nil
	t.poll.Stop()
	t.poll = nil
	t.guard.Clear()
	t.attached = false
}

// Attached reports whether listeners are registered.
func (t *Tracker) Attached() bool { return t.attached }

// Playing returns the last-known state. Safe from any goroutine.
func (t *Tracker) Playing() bool { return t.gate.Playing() }

// Emitted returns the last value sent downstream, if any.
func (t *Tracker) Emitted() (value, ok bool) { return t.gate.Emitted() }

// Listening reads whether the element is set to play, buffered or not.
// Listening time is counted against it.
func (t *Tracker) Listening() playstate.Reader { return listening{t} }

type listening struct{ t *Tracker }

func (l listening) Playing() bool { return l.t.el != nil && !l.t.el.Paused() }

// Volume returns the element volume. Safe from any goroutine.
func (t *Tracker) Volume() float64 {
	if t.el == nil {
		return 0
	}
	return t.el.Volume()
}

// Guard exposes the switch guard.
func (t *Tracker) Guard() *SwitchGuard { return t.guard }

// Source returns the element's current stream URL.
func (t *Tracker) Source() string {
	if t.el == nil {
		return ""
	}
	return t.el.Source()
}

func (t *Tracker) observe(origin string) {
	playing := media.IsPlaying(t.el)
	if t.guard.Active() {
		t.log.Debug().Str("origin", origin).Bool("playing", playing).Msg("suppressed during stream switch")
		return
	}
	if t.gate.Set(playing) {
		t.log.Debug().
			Str("origin", origin).
			Bool("paused", t.el.Paused()).
			Int("ready_state", int(t.el.ReadyState())).
			Bool("playing", playing).
			Msg("atc state changed")
	}
}

// PlayToggle plays a paused element and pauses a playing one, then
// publishes the resulting state.
func (t *Tracker) PlayToggle() {
	if t.el == nil {
		t.log.Warn().Msg("atc element not found, play toggle ignored")
		return
	}
	if t.el.Paused() {
		if err := t.el.Play(); err != nil {
			t.log.Warn().Err(err).Msg("atc play rejected")
		}
	} else {
		t.el.Pause()
	}
	t.observe("toggle")
}

// SetVolume sets the element volume, clamped to [0,1].
func (t *Tracker) SetVolume(v float64) {
	if t.el == nil {
		return
	}
	t.el.SetVolume(playstate.ClampUnit(v))
}

// UpdateStream swaps the element to url. Element events fired during the
// swap are suppressed for the guard window, and playback resumes if the
// element was playing before.
func (t *Tracker) UpdateStream(url string) error {
	if t.el == nil {
		t.log.Warn().Str("url", url).Msg("atc element not found, switch aborted")
		return media.ErrNoSource
	}
	if url == "" {
		return media.ErrNoSource
	}
	// Unpaused counts as playing even while the element is still buffering.
	wasPlaying := !t.el.Paused()

	t.guard.Activate()
	t.el.SetSource(url)
	t.el.Load()
	if wasPlaying {
		if err := t.el.Play(); err != nil {
			t.log.Warn().Err(err).Str("url", url).Msg("resume after stream switch failed")
		}
	}
	t.log.Info().Str("url", url).Bool("was_playing", wasPlaying).Msg("switching atc stream")
	return nil
}
