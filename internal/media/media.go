// Package media models the broadcast audio element: a source URL with
// paused/readyState transport state and named events.
package media

import (
	"errors"
	"sync"
)

// ErrNoSource is returned by Play when the element has no source.
var ErrNoSource = errors.New("media: no source")

// ReadyState mirrors the HTML media element readiness levels.
type ReadyState int

const (
	HaveNothing ReadyState = iota
	HaveMetadata
	HaveCurrentData
	HaveFutureData
	HaveEnoughData
)

// Event names an element notification.
type Event string

const (
	EventPlay      Event = "play"
	EventPlaying   Event = "playing"
	EventPause     Event = "pause"
	EventEnded     Event = "ended"
	EventEmptied   Event = "emptied"
	EventLoadStart Event = "loadstart"
	EventCanPlay   Event = "canplay"
	EventError     Event = "error"
)

// Element is a playable audio element. Listener callbacks receive no
// arguments; they read the element's state when they run.
type Element interface {
	Paused() bool
	ReadyState() ReadyState
	Source() string
	SetSource(url string)
	// Load restarts the element on its current source. Any playback stops.
	Load()
	// Play starts playback. Errors model a rejected play attempt.
	Play() error
	Pause()
	// Volume is safe to call from any goroutine.
	Volume() float64
	SetVolume(v float64)
	On(ev Event, fn func()) (off func())
}

// IsPlaying reports whether e is unpaused with enough data to play.
func IsPlaying(e Element) bool {
	return !e.Paused() && e.ReadyState() >= HaveCurrentData
}

type listener struct {
	id int
	fn func()
}

// listenerSet is the event registry shared by the element implementations.
type listenerSet struct {
	mu  sync.Mutex
	seq int
	m   map[Event][]listener
}

func (s *listenerSet) on(ev Event, fn func()) func() {
	s.mu.Lock()
	if s.m == nil {
		s.m = make(map[Event][]listener)
	}
	s.seq++
	id := s.seq
	s.m[ev] = append(s.m[ev], listener{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			ls := s.m[ev]
			for i, l := range ls {
				if l.id == id {
					s.m[ev] = append(ls[:i:i], ls[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *listenerSet) fire(ev Event) {
	s.mu.Lock()
	ls := append([]listener(nil), s.m[ev]...)
	s.mu.Unlock()
	for _, l := range ls {
		l.fn()
	}
}

func (s *listenerSet) count(ev Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m[ev])
}
