package media

import (
	"sync"

	"github.com/satindergrewal/chillatc/internal/playstate"
)

// FakeElement is an in-memory Element for tests. Events fire
// synchronously in the calling goroutine.
type FakeElement struct {
	mu      sync.Mutex
	src     string
	paused  bool
	ready   ReadyState
	loads   int
	playErr error
	volume  *playstate.Volume
	events  listenerSet
}

// NewFakeElement returns a paused element with no data.
func NewFakeElement() *FakeElement {
	return &FakeElement{paused: true, volume: playstate.NewVolume(1)}
}

func (f *FakeElement) Paused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paused
}

func (f *FakeElement) ReadyState() ReadyState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

func (f *FakeElement) Source() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.src
}

func (f *FakeElement) SetSource(url string) {
	f.mu.Lock()
	f.src = url
	f.mu.Unlock()
}

// Load behaves like a browser reload: the element pauses, drops its data
// and fires emptied, pause (if it was playing) and loadstart.
func (f *FakeElement) Load() {
	f.mu.Lock()
	wasPaused := f.paused
	f.paused = true
	f.ready = HaveNothing
	f.loads++
	f.mu.Unlock()

	f.events.fire(EventEmptied)
	if !wasPaused {
		f.events.fire(EventPause)
	}
	f.events.fire(EventLoadStart)
}

func (f *FakeElement) Play() error {
	f.mu.Lock()
	if f.playErr != nil {
		err := f.playErr
		f.mu.Unlock()
		return err
	}
	if f.src == "" {
		f.mu.Unlock()
		return ErrNoSource
	}
	wasPaused := f.paused
	f.paused = false
	ready := f.ready
	f.mu.Unlock()

	if wasPaused {
		f.events.fire(EventPlay)
		if ready >= HaveCurrentData {
			f.events.fire(EventPlaying)
		}
	}
	return nil
}

func (f *FakeElement) Pause() {
	f.mu.Lock()
	wasPaused := f.paused
	f.paused = true
	f.mu.Unlock()
	if !wasPaused {
		f.events.fire(EventPause)
	}
}

func (f *FakeElement) Volume() float64 { return f.volume.Volume() }

func (f *FakeElement) SetVolume(v float64) { f.volume.Set(v) }

func (f *FakeElement) On(ev Event, fn func()) func() {
	return f.events.on(ev, fn)
}

// SetReady moves the ready state. Crossing HaveCurrentData fires canplay
// and, when unpaused, playing.
func (f *FakeElement) SetReady(rs ReadyState) {
	f.mu.Lock()
	prev := f.ready
	f.ready = rs
	paused := f.paused
	f.mu.Unlock()

	if prev < HaveCurrentData && rs >= HaveCurrentData {
		f.events.fire(EventCanPlay)
		if !paused {
			f.events.fire(EventPlaying)
		}
	}
}

// SetPaused changes the paused flag without firing anything, modelling a
// transition whose event never arrived.
func (f *FakeElement) SetPaused(p bool) {
	f.mu.Lock()
	f.paused = p
	f.mu.Unlock()
}

// FailPlay makes subsequent Play calls return err. Nil restores success.
func (f *FakeElement) FailPlay(err error) {
	f.mu.Lock()
	f.playErr = err
	f.mu.Unlock()
}

// Fire emits ev without touching state, modelling a spurious event.
func (f *FakeElement) Fire(ev Event) {
	f.events.fire(ev)
}

// ListenerCount returns the number of listeners registered for ev.
func (f *FakeElement) ListenerCount(ev Event) int {
	return f.events.count(ev)
}

// Loads returns how many times Load was called.
func (f *FakeElement) Loads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
}
