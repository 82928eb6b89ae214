// Package playstate holds the pieces shared by both transport trackers:
// source identity and the change-only emission gate.
package playstate

import (
	"math"
	"sync/atomic"
)

// Source identifies one of the two audio sources.
type Source string

const (
	ATC       Source = "atc"
	Streaming Source = "streaming"
)

// Valid reports whether s names a known source.
func (s Source) Valid() bool {
	return s == ATC || s == Streaming
}

// Reader exposes a tracker's last-known playing state. Safe for
// concurrent use so the renderer can read it from its frame goroutine.
type Reader interface {
	Playing() bool
}

// VolumeReader exposes a tracker's current volume in [0,1].
type VolumeReader interface {
	Volume() float64
}

// Gate is a change-only boolean emitter. Every writer (events, polls)
// goes through Set, so the downstream never sees the same value twice
// in a row. The first value is always emitted.
type Gate struct {
	emit  func(bool)
	known bool
	last  bool
	cur   atomic.Bool
}

// NewGate returns a gate that calls emit on every change.
func NewGate(emit func(bool)) *Gate {
	return &Gate{emit: emit}
}

// Set records v and emits it if it differs from the last emitted value.
// Returns true if an emission happened. Not safe for concurrent writers;
// callers serialise writes on their scheduler.
func (g *Gate) Set(v bool) bool {
	g.cur.Store(v)
	if g.known && g.last == v {
		return false
	}
	g.known = true
	g.last = v
	if g.emit != nil {
		g.emit(v)
	}
	return true
}

// Playing returns the last value written.
func (g *Gate) Playing() bool {
	return g.cur.Load()
}

// Emitted reports the last emitted value and whether anything was emitted yet.
func (g *Gate) Emitted() (value, ok bool) {
	return g.last, g.known
}

// Volume is an atomically readable float in [0,1].
type Volume struct {
	bits atomic.Uint64
}

// NewVolume returns a Volume initialised to v.
func NewVolume(v float64) *Volume {
	vol := &Volume{}
	vol.Set(v)
	return vol
}

// Set stores v clamped to [0,1] and returns the stored value.
func (v *Volume) Set(f float64) float64 {
	f = ClampUnit(f)
	v.bits.Store(math.Float64bits(f))
	return f
}

// Volume returns the stored value.
func (v *Volume) Volume() float64 {
	return math.Float64frombits(v.bits.Load())
}

// ClampUnit clamps f to [0,1]. NaN maps to 0.
func ClampUnit(f float64) float64 {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
