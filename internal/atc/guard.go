package atc

import (
	"time"

	"github.com/satindergrewal/chillatc/internal/sched"
)

// SwitchGuard suppresses tracker emissions for a short window after the
// stream URL is swapped, while the element fires spurious transitions.
type SwitchGuard struct {
	sched     sched.Scheduler
	window    time.Duration
	active    bool
	expiresAt time.Time
	timer     *sched.Task
	onClear   func()
}

// NewSwitchGuard returns an inactive guard. onClear, if set, runs when
// the window expires.
func NewSwitchGuard(s sched.Scheduler, window time.Duration, onClear func()) *SwitchGuard {
	return &SwitchGuard{sched: s, window: window, onClear: onClear}
}

// Activate opens a fresh suppression window, replacing any running one.
func (g *SwitchGuard) Activate() {
	g.timer.Stop()
	g.active = true
	g.expiresAt = g.sched.Now().Add(g.window)
	g.timer = g.sched.After(g.window, func() {
		g.Clear()
		if g.onClear != nil {
			g.onClear()
		}
	})
}

// Clear closes the window early.
func (g *SwitchGuard) Clear() {
	g.timer.Stop()
	g.timer = nil
	g.active = false
	g.expiresAt = time.Time{}
}

// Active reports whether emissions are currently suppressed.
func (g *SwitchGuard) Active() bool {
	return g.active
}

// ExpiresAt returns when the current window closes, zero if inactive.
func (g *SwitchGuard) ExpiresAt() time.Time {
	return g.expiresAt
}
