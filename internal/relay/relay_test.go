package relay

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewBroadcaster(t *testing.T) {
	b := NewBroadcaster()
	if b == nil {
		t.Fatal("NewBroadcaster returned nil")
	}
	if b.ListenerCount() != 0 {
		t.Errorf("Initial ListenerCount = %d, want 0", b.ListenerCount())
	}
}

func TestListenerBuffersThreeSeconds(t *testing.T) {
	l := NewBroadcaster().Subscribe()
	if cap(l.C) != 150 {
		t.Errorf("cap = %d, want 150 frames", cap(l.C))
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroadcaster()

	l1 := b.Subscribe()
	l2 := b.Subscribe()
	if b.ListenerCount() != 2 {
		t.Errorf("After 2 subscribes: ListenerCount = %d, want 2", b.ListenerCount())
	}

	b.Unsubscribe(l1)
	b.Unsubscribe(l1) // second call must not panic on the closed channel
	if b.ListenerCount() != 1 {
		t.Errorf("After unsubscribe: ListenerCount = %d, want 1", b.ListenerCount())
	}

	b.Unsubscribe(l2)
	if b.ListenerCount() != 0 {
		t.Errorf("After all unsubscribed: ListenerCount = %d, want 0", b.ListenerCount())
	}
	select {
	case <-l2.Done():
	default:
		t.Error("Listener Done not closed after unsubscribe")
	}
}

func TestPublishDelivers(t *testing.T) {
	b := NewBroadcaster()
	listeners := make([]*Listener, 3)
	for i := range listeners {
		listeners[i] = b.Subscribe()
	}

	b.Publish([]int16{42, -42})

	for i, l := range listeners {
		select {
		case got := <-l.C:
			if got[0] != 42 || got[1] != -42 {
				t.Errorf("Listener %d got %v", i, got)
			}
		default:
			t.Errorf("Listener %d received nothing", i)
		}
	}
	if b.Frames() != 1 {
		t.Errorf("Frames = %d, want 1", b.Frames())
	}
}

func TestPublishDropsForSlowListener(t *testing.T) {
	b := NewBroadcaster()
	slow := b.Subscribe()

	for i := 0; i < 200; i++ {
		b.Publish([]int16{int16(i)})
	}

	if len(slow.C) != cap(slow.C) {
		t.Errorf("slow buffer = %d, want full %d", len(slow.C), cap(slow.C))
	}
	if got := slow.Dropped(); got != 50 {
		t.Errorf("Dropped = %d, want 50", got)
	}
}

func TestHTTPHandlerWithoutEncoder(t *testing.T) {
	b := NewBroadcaster()
	h := NewHTTPHandler(b, "chillatc-no-such-ffmpeg", 0, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/atc.mp3", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("code = %d, want 503", rec.Code)
	}
	if b.ListenerCount() != 0 {
		t.Errorf("ListenerCount = %d, a failed request must not subscribe", b.ListenerCount())
	}
}

func TestHTTPHandlerArgs(t *testing.T) {
	h := NewHTTPHandler(NewBroadcaster(), "", 192, zerolog.Nop())
	if h.ffmpeg != "ffmpeg" {
		t.Errorf("ffmpeg = %q", h.ffmpeg)
	}
	args := strings.Join(h.args(), " ")
	for _, want := range []string{"-ar 48000", "-ac 2", "-b:a 192k", "-f s16le"} {
		if !strings.Contains(args, want) {
			t.Errorf("args %q missing %q", args, want)
		}
	}
}
