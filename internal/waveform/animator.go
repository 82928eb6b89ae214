package waveform

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Animator drives a Renderer at a fixed frame rate.
type Animator struct {
	r        *Renderer
	interval time.Duration
	epoch    time.Time
	log      zerolog.Logger
}

// NewAnimator returns an animator for r. fps defaults to 60.
func NewAnimator(r *Renderer, fps int, log zerolog.Logger) *Animator {
	if fps <= 0 {
		fps = 60
	}
	return &Animator{
		r:        r,
		interval: time.Second / time.Duration(fps),
		epoch:    time.Now(),
		log:      log,
	}
}

// Renderer returns the driven renderer.
func (a *Animator) Renderer() *Renderer { return a.r }

// Elapsed returns seconds since the animator was created.
func (a *Animator) Elapsed() float64 {
	return time.Since(a.epoch).Seconds()
}

// Run draws frames until ctx is cancelled.
func (a *Animator) Run(ctx context.Context) {
	w, h := a.r.Size()
	a.log.Info().Int("width", w).Int("height", h).Dur("interval", a.interval).Msg("waveform animator started")
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			a.log.Info().Uint64("frames", a.r.Frames()).Msg("waveform animator stopped")
			return
		case now := <-ticker.C:
			a.r.Frame(now.Sub(a.epoch).Seconds())
		}
	}
}
