package llm

import (
	"time"

	"github.com/gigpipe/gigpipe/internal/config"
)

// Guard cools the client down after a streak of consecutive failures so a
// dead endpoint cannot stall every remaining job in a batch. Stages see
// the cooldown as an ordinary call error and fall back to their
// conservative defaults. MaxFailures <= 0 disables the guard.
type Guard struct {
	maxFailures int
	cooldown    time.Duration

	failures      int
	disabledUntil time.Time
	now           func() time.Time
}

func NewGuard(cfg config.LLMEnv) Guard {
	return Guard{
		maxFailures: cfg.MaxFailures,
		cooldown:    cfg.Cooldown(),
		now:         time.Now,
	}
}

// Allow reports whether a call may proceed. Once a cooldown window has
// passed the failure streak is cleared, so a single new failure does not
// immediately re-trip the guard.
func (g *Guard) Allow() bool {
	if g == nil || g.disabledUntil.IsZero() {
		return true
	}
	if g.now().After(g.disabledUntil) {
		g.failures = 0
		g.disabledUntil = time.Time{}
		return true
	}
	return false
}

func (g *Guard) RecordFailure() {
	if g == nil || g.maxFailures <= 0 {
		return
	}
	g.failures++
	if g.failures >= g.maxFailures {
		g.disabledUntil = g.now().Add(g.cooldown)
	}
}

func (g *Guard) RecordSuccess() {
	if g == nil {
		return
	}
	g.failures = 0
	g.disabledUntil = time.Time{}
}

func (g *Guard) DisabledUntil() time.Time {
	if g == nil {
		return time.Time{}
	}
	return g.disabledUntil
}
