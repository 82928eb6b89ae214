package media

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// recorder collects fired events from any goroutine.
type recorder struct {
	mu     sync.Mutex
	events []Event
	ch     chan Event
}

func record(el Element, evs ...Event) *recorder {
	r := &recorder{ch: make(chan Event, 64)}
	for _, ev := range evs {
		ev := ev
		el.On(ev, func() {
			r.mu.Lock()
			r.events = append(r.events, ev)
			r.mu.Unlock()
			r.ch <- ev
		})
	}
	return r
}

func (r *recorder) list() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) waitFor(t *testing.T, want Event) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-r.ch:
			if ev == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q; saw %v", want, r.list())
		}
	}
}

var allEvents = []Event{
	EventPlay, EventPlaying, EventPause, EventEnded,
	EventEmptied, EventLoadStart, EventCanPlay, EventError,
}

// --- IsPlaying ---

func TestIsPlaying(t *testing.T) {
	tests := []struct {
		paused bool
		ready  ReadyState
		want   bool
	}{
		{true, HaveEnoughData, false},
		{false, HaveNothing, false},
		{false, HaveMetadata, false},
		{false, HaveCurrentData, true},
		{false, HaveEnoughData, true},
	}
	for _, tt := range tests {
		f := NewFakeElement()
		f.SetReady(tt.ready)
		f.SetPaused(tt.paused)
		if got := IsPlaying(f); got != tt.want {
			t.Errorf("IsPlaying(paused=%v, ready=%d) = %v, want %v", tt.paused, tt.ready, got, tt.want)
		}
	}
}

// --- listenerSet ---

func TestListenerOffRemovesOnlyItself(t *testing.T) {
	var s listenerSet
	var got []int
	off1 := s.on(EventPlay, func() { got = append(got, 1) })
	s.on(EventPlay, func() { got = append(got, 2) })

	off1()
	off1() // idempotent
	s.fire(EventPlay)

	if len(got) != 1 || got[0] != 2 {
		t.Errorf("fired %v, want [2]", got)
	}
	if s.count(EventPlay) != 1 {
		t.Errorf("count = %d, want 1", s.count(EventPlay))
	}
}

func TestListenerMayUnsubscribeWhileFiring(t *testing.T) {
	var s listenerSet
	calls := 0
	var off func()
	off = s.on(EventPause, func() {
		calls++
		off()
	})
	s.fire(EventPause)
	s.fire(EventPause)
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

// --- FakeElement ---

func TestFakeLoadWhilePlayingFiresPause(t *testing.T) {
	f := NewFakeElement()
	f.SetSource("http://example/a")
	f.SetReady(HaveEnoughData)
	if err := f.Play(); err != nil {
		t.Fatal(err)
	}
	r := record(f, allEvents...)

	f.Load()

	want := []Event{EventEmptied, EventPause, EventLoadStart}
	got := r.list()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if !f.Paused() || f.ReadyState() != HaveNothing {
		t.Error("Load should leave element paused with no data")
	}
	if f.Loads() != 1 {
		t.Errorf("Loads = %d, want 1", f.Loads())
	}
}

func TestFakePlayFiresPlayingOnlyWithData(t *testing.T) {
	f := NewFakeElement()
	f.SetSource("http://example/a")
	r := record(f, EventPlay, EventPlaying, EventCanPlay)

	f.Play()
	if got := r.list(); len(got) != 1 || got[0] != EventPlay {
		t.Fatalf("events = %v, want [play]", got)
	}
	f.SetReady(HaveEnoughData)
	got := r.list()
	if len(got) != 3 || got[1] != EventCanPlay || got[2] != EventPlaying {
		t.Errorf("events = %v, want [play canplay playing]", got)
	}
}

func TestFakePlayErrors(t *testing.T) {
	f := NewFakeElement()
	if err := f.Play(); !errors.Is(err, ErrNoSource) {
		t.Errorf("Play without source = %v, want ErrNoSource", err)
	}

	f.SetSource("http://example/a")
	rejected := errors.New("autoplay blocked")
	f.FailPlay(rejected)
	if err := f.Play(); !errors.Is(err, rejected) {
		t.Errorf("Play = %v, want rejection", err)
	}
	if !f.Paused() {
		t.Error("rejected Play should leave element paused")
	}
}

func TestFakeVolumeClamps(t *testing.T) {
	f := NewFakeElement()
	f.SetVolume(1.7)
	if f.Volume() != 1 {
		t.Errorf("Volume = %v, want 1", f.Volume())
	}
	f.SetVolume(-1)
	if f.Volume() != 0 {
		t.Errorf("Volume = %v, want 0", f.Volume())
	}
}

// --- StreamElement ---

func TestStreamPlayWithoutSource(t *testing.T) {
	e := NewStreamElement(StreamOptions{Log: zerolog.Nop()})
	if err := e.Play(); !errors.Is(err, ErrNoSource) {
		t.Errorf("Play = %v, want ErrNoSource", err)
	}
}

func TestStreamLoadHTTPErrorFiresError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	e := NewStreamElement(StreamOptions{Log: zerolog.Nop()})
	defer e.Close()
	r := record(e, allEvents...)

	e.SetSource(srv.URL + "/kjfk_twr")
	e.Load()
	r.waitFor(t, EventError)

	got := r.list()
	if got[0] != EventEmptied || got[1] != EventLoadStart {
		t.Errorf("events = %v, want emptied, loadstart first", got)
	}
	if e.ReadyState() != HaveNothing || !e.Paused() {
		t.Error("failed load should leave element paused with no data")
	}
}

func TestStreamGarbageBodyFiresError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("this is not an mp3 stream"))
	}))
	defer srv.Close()

	e := NewStreamElement(StreamOptions{Log: zerolog.Nop()})
	defer e.Close()
	r := record(e, EventError)

	e.SetSource(srv.URL)
	e.Load()
	r.waitFor(t, EventError)
}

func TestStreamPlayLoadsAndReloadPauses(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()
	defer close(release)

	var dispatched int
	var mu sync.Mutex
	e := NewStreamElement(StreamOptions{
		Log: zerolog.Nop(),
		Dispatch: func(fn func()) {
			mu.Lock()
			dispatched++
			mu.Unlock()
			fn()
		},
	})
	defer e.Close()
	r := record(e, allEvents...)

	e.SetSource(srv.URL)
	if err := e.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if e.Paused() {
		t.Fatal("Play should unpause while the fetch is pending")
	}
	if e.ReadyState() >= HaveCurrentData {
		t.Fatal("no data yet, ready state should stay low")
	}

	e.Load()
	if !e.Paused() {
		t.Error("Load should pause the element")
	}

	got := r.list()
	want := []Event{EventEmptied, EventLoadStart, EventPlay, EventEmptied, EventPause, EventLoadStart}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	mu.Lock()
	defer mu.Unlock()
	if dispatched != len(want) {
		t.Errorf("dispatched = %d, want every event through Dispatch (%d)", dispatched, len(want))
	}
}
