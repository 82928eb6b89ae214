package playstate

import (
	"math"
	"testing"
)

func TestGateFirstValueAlwaysEmits(t *testing.T) {
	for _, v := range []bool{false, true} {
		var got []bool
		g := NewGate(func(b bool) { got = append(got, b) })
		if !g.Set(v) {
			t.Errorf("Set(%v) on fresh gate returned false", v)
		}
		if len(got) != 1 || got[0] != v {
			t.Errorf("emitted %v, want [%v]", got, v)
		}
	}
}

func TestGateChangeOnly(t *testing.T) {
	var got []bool
	g := NewGate(func(b bool) { got = append(got, b) })

	for _, v := range []bool{true, true, false, false, false, true, true, false} {
		g.Set(v)
	}
	want := []bool{true, false, true, false}
	if len(got) != len(want) {
		t.Fatalf("emitted %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("emission[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i] == got[i-1] {
			t.Errorf("consecutive duplicate emission at %d", i)
		}
	}
}

func TestGatePlayingTracksLastWrite(t *testing.T) {
	g := NewGate(nil)
	if g.Playing() {
		t.Error("zero gate should report not playing")
	}
	g.Set(true)
	if !g.Playing() {
		t.Error("Playing() = false after Set(true)")
	}
	if v, ok := g.Emitted(); !ok || !v {
		t.Errorf("Emitted() = %v, %v; want true, true", v, ok)
	}
}

func TestVolumeClamp(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{7, 1},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		v := NewVolume(tt.in)
		if got := v.Volume(); got != tt.want {
			t.Errorf("NewVolume(%v).Volume() = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSourceValid(t *testing.T) {
	if !ATC.Valid() || !Streaming.Valid() {
		t.Error("known sources should be valid")
	}
	if Source("radio").Valid() {
		t.Error("unknown source reported valid")
	}
}
