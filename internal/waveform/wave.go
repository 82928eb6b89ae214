// Package waveform draws the two-source ambient wave visualisation.
package waveform

import (
	"math"
	"math/rand"
)

// Params shapes one source's wave. They are re-randomised when the
// source changes stream or playlist.
type Params struct {
	BaseFrequency   float64 `json:"base_frequency"`
	JitterFrequency float64 `json:"jitter_frequency"`
	BaseAmplitude   float64 `json:"base_amplitude"`
	JitterAmplitude float64 `json:"jitter_amplitude"`
	TimeScale       float64 `json:"time_scale"`
}

// NewParams draws a fresh set of parameters for a canvas of the given
// height.
func NewParams(rng *rand.Rand, height int) Params {
	return Params{
		BaseFrequency:   between(rng, 0.1, 0.15),
		JitterFrequency: between(rng, 0.1, 0.2),
		BaseAmplitude:   float64(height) / 4,
		JitterAmplitude: between(rng, 2, 12),
		TimeScale:       between(rng, 4, 10),
	}
}

func between(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// Y returns the wave offset from the centre line at column x and time t
// in seconds. amp and freq are the smoothed scales.
func (p Params) Y(x, t, amp, freq, volume float64) float64 {
	base := p.BaseAmplitude * amp * volume * math.Sin(p.BaseFrequency*freq*x+2*t)
	jitter := p.JitterAmplitude * amp * volume * math.Sin(p.JitterFrequency*freq*x+t*p.TimeScale)
	return base + jitter
}

// Sample evaluates the wave at n columns.
func Sample(p Params, t, amp, freq, volume float64, n int) []float64 {
	out := make([]float64, n)
	for x := range out {
		out[x] = p.Y(float64(x), t, amp, freq, volume)
	}
	return out
}

// Smoother eases the amplitude and frequency scales toward 1 while the
// source plays and toward the idle scales otherwise.
type Smoother struct {
	factor   float64
	idleAmp  float64
	idleFreq float64

	amp, freq float64
	started   bool
}

// NewSmoother returns a smoother moving factor of the remaining distance
// each frame. Out-of-range arguments fall back to 0.05, 0.2 and 0.3.
func NewSmoother(factor, idleAmp, idleFreq float64) *Smoother {
	if factor <= 0 || factor > 1 {
		factor = 0.05
	}
	if idleAmp <= 0 {
		idleAmp = 0.2
	}
	if idleFreq <= 0 {
		idleFreq = 0.3
	}
	return &Smoother{factor: factor, idleAmp: idleAmp, idleFreq: idleFreq}
}

// Step advances one frame and returns the current scales. The first
// step starts at the target.
func (s *Smoother) Step(playing bool) (amp, freq float64) {
	ta, tf := 1.0, 1.0
	if !playing {
		ta, tf = s.idleAmp, s.idleFreq
	}
	if !s.started {
		s.amp, s.freq = ta, tf
		s.started = true
	}
	s.amp += (ta - s.amp) * s.factor
	s.freq += (tf - s.freq) * s.factor
	return s.amp, s.freq
}

// Current returns the scales without advancing.
func (s *Smoother) Current() (amp, freq float64) {
	return s.amp, s.freq
}
