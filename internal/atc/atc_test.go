package atc

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/satindergrewal/chillatc/internal/media"
	"github.com/satindergrewal/chillatc/internal/sched"
)

var epoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	tr    *Tracker
	el    *media.FakeElement
	clock *sched.Manual
	sent  []bool
	logs  *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		el:    media.NewFakeElement(),
		clock: sched.NewManual(epoch),
		logs:  &bytes.Buffer{},
	}
	log := zerolog.New(h.logs)
	h.tr = NewTracker(h.el, h.clock, func(v bool) { h.sent = append(h.sent, v) }, Options{}, log)
	h.el.SetSource("https://liveatc.example/kjfk_twr")
	return h
}

// startPlaying brings the element to a playing state and clears the record.
func (h *harness) startPlaying(t *testing.T) {
	t.Helper()
	h.el.SetReady(media.HaveEnoughData)
	if err := h.el.Play(); err != nil {
		t.Fatal(err)
	}
	if !h.tr.Playing() {
		t.Fatal("tracker should report playing")
	}
	h.sent = nil
}

func (h *harness) expect(t *testing.T, want ...bool) {
	t.Helper()
	if len(h.sent) != len(want) {
		t.Fatalf("emitted %v, want %v", h.sent, want)
	}
	for i := range want {
		if h.sent[i] != want[i] {
			t.Fatalf("emitted %v, want %v", h.sent, want)
		}
	}
}

func TestAttachIsIdempotent(t *testing.T) {
	h := newHarness(t)
	if !h.tr.Attach() {
		t.Fatal("first Attach should succeed")
	}
	for i := 0; i < 3; i++ {
		if h.tr.Attach() {
			t.Error("repeated Attach should be a no-op")
		}
	}
	for _, ev := range trackedEvents {
		if n := h.el.ListenerCount(ev); n != 1 {
			t.Errorf("%s listeners = %d, want 1", ev, n)
		}
	}
	if h.clock.Pending() != 1 {
		t.Errorf("Pending = %d, want a single poll task", h.clock.Pending())
	}
}

func TestDetachRemovesListenersAndPoll(t *testing.T) {
	h := newHarness(t)
	h.tr.Attach()
	h.tr.Detach()

	for _, ev := range trackedEvents {
		if n := h.el.ListenerCount(ev); n != 0 {
			t.Errorf("%s listeners after Detach = %d", ev, n)
		}
	}
	if h.clock.Pending() != 0 {
		t.Errorf("Pending after Detach = %d", h.clock.Pending())
	}
	if !h.tr.Attach() {
		t.Error("Attach after Detach should succeed")
	}
}

func TestAttachWithoutElement(t *testing.T) {
	tr := NewTracker(nil, sched.NewManual(epoch), nil, Options{}, zerolog.Nop())
	if tr.Attach() {
		t.Error("Attach without element should fail")
	}
	if err := tr.UpdateStream("https://x/y"); !errors.Is(err, media.ErrNoSource) {
		t.Errorf("UpdateStream without element = %v", err)
	}
}

func TestEventsEmitChangesOnly(t *testing.T) {
	h := newHarness(t)
	h.tr.Attach()

	h.el.Play() // no data yet: play fires but state is not playing
	h.expect(t, false)

	h.el.SetReady(media.HaveEnoughData) // playing
	h.expect(t, false, true)

	h.el.Fire(media.EventPlaying)
	h.el.Fire(media.EventPlay)
	h.expect(t, false, true)

	h.el.Pause()
	h.el.Fire(media.EventPause)
	h.el.Fire(media.EventEnded)
	h.expect(t, false, true, false)
}

func TestPollCatchesMissedEvents(t *testing.T) {
	h := newHarness(t)
	h.tr.Attach()
	h.el.SetReady(media.HaveEnoughData)
	h.el.SetPaused(false) // no event

	h.clock.Advance(1999 * time.Millisecond)
	h.expect(t)
	h.clock.Advance(time.Millisecond)
	h.expect(t, true)

	h.clock.Advance(10 * time.Second)
	h.expect(t, true)

	h.el.SetPaused(true)
	h.clock.Advance(2 * time.Second)
	h.expect(t, true, false)
}

func TestEventAndPollNeverDuplicate(t *testing.T) {
	h := newHarness(t)
	h.tr.Attach()
	h.el.SetReady(media.HaveEnoughData)

	for i := 0; i < 5; i++ {
		h.el.Play()
		h.clock.Advance(2 * time.Second)
		h.el.Pause()
		h.clock.Advance(2 * time.Second)
	}
	for i := 1; i < len(h.sent); i++ {
		if h.sent[i] == h.sent[i-1] {
			t.Fatalf("consecutive duplicate at %d: %v", i, h.sent)
		}
	}
	if len(h.sent) != 10 {
		t.Errorf("emissions = %d, want 10", len(h.sent))
	}
}

func TestSwitchWhilePlayingSuppressesAndResumes(t *testing.T) {
	h := newHarness(t)
	h.tr.Attach()
	h.clock.Advance(1900 * time.Millisecond) // next poll lands inside the window
	h.startPlaying(t)

	if err := h.tr.UpdateStream("https://liveatc.example/ksfo_twr"); err != nil {
		t.Fatal(err)
	}
	if !h.tr.Guard().Active() {
		t.Fatal("guard should be active")
	}
	if h.el.Source() != "https://liveatc.example/ksfo_twr" || h.el.Loads() != 1 {
		t.Error("element not switched and reloaded")
	}
	if h.el.Paused() {
		t.Error("element should have resumed after switch")
	}

	// Native events and the poll both fire inside the window.
	h.el.Fire(media.EventPause)
	h.el.Fire(media.EventEnded)
	h.clock.Advance(299 * time.Millisecond)
	h.expect(t)
	if !h.tr.Playing() {
		t.Error("suppressed writes must not change the last-known state")
	}

	h.clock.Advance(time.Millisecond)
	if h.tr.Guard().Active() {
		t.Fatal("guard should clear after the window")
	}

	// Guard is not stuck: the next real transition emits.
	h.el.SetReady(media.HaveEnoughData)
	h.expect(t)
	h.el.Pause()
	h.expect(t, false)
}

func TestSwitchClearsWithoutReloadCompleting(t *testing.T) {
	h := newHarness(t)
	h.tr.Attach()
	h.startPlaying(t)

	h.tr.UpdateStream("https://liveatc.example/egll_app")
	h.clock.Advance(300 * time.Millisecond)
	if h.tr.Guard().Active() {
		t.Fatal("guard must clear even though the element never buffered")
	}
	// Element is unpaused but has no data: the next poll reports stopped.
	h.clock.Advance(2 * time.Second)
	h.expect(t, false)
}

func TestSwitchResumeFailureIsLogged(t *testing.T) {
	h := newHarness(t)
	h.tr.Attach()
	h.startPlaying(t)
	h.el.FailPlay(errors.New("NotAllowedError"))

	if err := h.tr.UpdateStream("https://liveatc.example/klax_twr"); err != nil {
		t.Fatalf("UpdateStream = %v, resume failure must not surface", err)
	}
	if !strings.Contains(h.logs.String(), "resume after stream switch failed") {
		t.Errorf("missing resume failure log: %s", h.logs.String())
	}
	h.clock.Advance(300 * time.Millisecond)
	h.clock.Advance(2 * time.Second)
	h.expect(t, false)
}

func TestSwitchWhilePausedDoesNotPlay(t *testing.T) {
	h := newHarness(t)
	h.tr.Attach()
	h.tr.UpdateStream("https://liveatc.example/klax_twr")
	if !h.el.Paused() {
		t.Error("paused element should stay paused after switch")
	}
}

func TestRepeatedSwitchExtendsWindow(t *testing.T) {
	h := newHarness(t)
	h.tr.Attach()
	h.startPlaying(t)

	h.tr.UpdateStream("https://a/1")
	h.clock.Advance(200 * time.Millisecond)
	h.tr.UpdateStream("https://a/2")
	h.clock.Advance(200 * time.Millisecond)
	if !h.tr.Guard().Active() {
		t.Error("second switch should restart the window")
	}
	if want := epoch.Add(500 * time.Millisecond); !h.tr.Guard().ExpiresAt().Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", h.tr.Guard().ExpiresAt(), want)
	}
	h.clock.Advance(100 * time.Millisecond)
	if h.tr.Guard().Active() {
		t.Error("guard should clear 300ms after the last switch")
	}
}

func TestPlayToggle(t *testing.T) {
	h := newHarness(t)
	h.tr.Attach()
	h.el.SetReady(media.HaveEnoughData)

	h.tr.PlayToggle()
	if h.el.Paused() {
		t.Error("toggle should play a paused element")
	}
	h.tr.PlayToggle()
	if !h.el.Paused() {
		t.Error("toggle should pause a playing element")
	}
	h.expect(t, true, false)
}

func TestPlayToggleEmitsWithoutListeners(t *testing.T) {
	h := newHarness(t)
	h.el.SetReady(media.HaveEnoughData)
	h.tr.PlayToggle()
	h.expect(t, true)
}

func TestSetVolumeClamps(t *testing.T) {
	h := newHarness(t)
	h.tr.SetVolume(0.25)
	if h.tr.Volume() != 0.25 {
		t.Errorf("Volume = %v, want 0.25", h.tr.Volume())
	}
	h.tr.SetVolume(3)
	if h.tr.Volume() != 1 {
		t.Errorf("Volume = %v, want 1", h.tr.Volume())
	}
}

// --- ListenTimer ---

type stubReader struct{ playing bool }

func (s *stubReader) Playing() bool { return s.playing }

func TestListenTimerAccumulatesWhilePlaying(t *testing.T) {
	clock := sched.NewManual(epoch)
	src := &stubReader{}
	var reports []int
	lt := NewListenTimer(clock, src, time.Second, time.Minute, func(s int) { reports = append(reports, s) })
	var g sched.Group
	lt.Start(&g)

	clock.Advance(10 * time.Second) // paused
	src.playing = true
	clock.Advance(25 * time.Second)
	src.playing = false
	clock.Advance(25 * time.Second)

	if len(reports) != 1 || reports[0] != 25 {
		t.Fatalf("reports = %v, want [25]", reports)
	}

	clock.Advance(time.Minute)
	if len(reports) != 2 || reports[1] != 0 {
		t.Errorf("reports = %v, want a zero report after an idle minute", reports)
	}
	if lt.Total() != 25 {
		t.Errorf("Total = %v, want 25", lt.Total())
	}

	g.Stop()
	if clock.Pending() != 0 {
		t.Errorf("Pending after stop = %d", clock.Pending())
	}
}

func TestListeningCountsUnpausedWhileBuffering(t *testing.T) {
	h := newHarness(t)
	var reports []int
	lt := NewListenTimer(h.clock, h.tr.Listening(), time.Second, time.Minute, func(s int) { reports = append(reports, s) })
	var g sched.Group
	lt.Start(&g)
	defer g.Stop()

	h.el.SetPaused(false) // no data yet: not playing, but listening
	h.clock.Advance(20 * time.Second)
	if h.tr.Playing() {
		t.Fatal("unbuffered element should not report playing")
	}
	h.el.SetPaused(true)
	h.clock.Advance(40 * time.Second)

	if len(reports) != 1 || reports[0] != 20 {
		t.Errorf("reports = %v, want [20]", reports)
	}
}

func TestListeningWithoutElement(t *testing.T) {
	tr := NewTracker(nil, sched.NewManual(epoch), nil, Options{}, zerolog.Nop())
	if tr.Listening().Playing() {
		t.Error("no element should never count as listening")
	}
}
