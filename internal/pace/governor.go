// Package pace enforces the cooperative request budgets the remote service
// expects: a short-horizon soft cap with jittered cooldowns and a fixed
// calendar-day budget.
//
// The governor is an explicit state object owned by the driver loop, with an
// injectable clock so both budgets are testable. Single caller only; it is
// not safe for concurrent use.
package pace

import (
	"math/rand"
	"time"
)

// State tells the caller what the returned wait means.
type State int

const (
	// StateOK: proceed after the (possibly zero) pacing delay.
	StateOK State = iota
	// StateCooldown: the short-horizon cap is hit; sleep the wait, after
	// which the window counter has been reset.
	StateCooldown
	// StateDailyLimit: the daily budget is exhausted; the wait runs to the
	// next local midnight.
	StateDailyLimit
)

func (s State) String() string {
	switch s {
	case StateCooldown:
		return "cooldown"
	case StateDailyLimit:
		return "daily_limit"
	default:
		return "ok"
	}
}

// Config holds the governor budgets.
type Config struct {
	// MaxRequests is the soft cap per window; hitting it triggers a
	// randomized cooldown anchored at ResetInterval.
	MaxRequests int
	// ResetInterval is both the inactivity horizon that clears the window
	// counter and the anchor for cooldown waits.
	ResetInterval time.Duration
	// DailyLimit caps requests per calendar day.
	DailyLimit int
	// PacingDelay is the mandatory delay after every allowed request.
	PacingDelay time.Duration
}

// Governor tracks the request window and the daily budget.
type Governor struct {
	cfg Config
	now func() time.Time

	requestsMade int
	lastRequest  time.Time
	dailyCount   int
	currentDate  string
}

// New creates a governor using the wall clock.
func New(cfg Config) *Governor {
	return NewWithClock(cfg, time.Now)
}

// NewWithClock creates a governor with an injected clock.
func NewWithClock(cfg Config, now func() time.Time) *Governor {
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = 25
	}
	if cfg.ResetInterval <= 0 {
		cfg.ResetInterval = time.Minute
	}
	if cfg.DailyLimit <= 0 {
		cfg.DailyLimit = 300
	}
	g := &Governor{cfg: cfg, now: now}
	g.currentDate = dateOf(now())
	return g
}

// Allow reports whether and how long the caller must wait before the next
// request. Only a StateOK response counts the request against the budgets;
// for StateCooldown and StateDailyLimit the caller sleeps the wait and calls
// Allow again. A StateCooldown response resets the window counter, so the
// post-sleep call starts a fresh window.
func (g *Governor) Allow() (time.Duration, State) {
	now := g.now()
	g.rollover(now)

	if g.dailyCount >= g.cfg.DailyLimit {
		return g.untilMidnight(now), StateDailyLimit
	}

	// Inactivity clears the short-horizon window.
	if !g.lastRequest.IsZero() && now.Sub(g.lastRequest) >= g.cfg.ResetInterval {
		g.requestsMade = 0
	}

	if g.requestsMade >= g.cfg.MaxRequests {
		g.requestsMade = 0
		wait := g.cfg.ResetInterval + time.Duration(rand.Int63n(int64(g.cfg.ResetInterval)/2+1))
		return wait, StateCooldown
	}

	g.requestsMade++
	g.dailyCount++
	g.lastRequest = now
	return g.cfg.PacingDelay, StateOK
}

// DailyCount returns requests issued against today's budget.
func (g *Governor) DailyCount() int {
	g.rollover(g.now())
	return g.dailyCount
}

// SetDailyCount seeds today's budget from persisted progress.
func (g *Governor) SetDailyCount(n int, date string) {
	if date == dateOf(g.now()) {
		g.dailyCount = n
	}
}

// rollover resets the daily counter when the local calendar date changes.
func (g *Governor) rollover(now time.Time) {
	if d := dateOf(now); d != g.currentDate {
		g.currentDate = d
		g.dailyCount = 0
		g.requestsMade = 0
	}
}

func (g *Governor) untilMidnight(now time.Time) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	return next.Sub(now)
}

func dateOf(t time.Time) string {
	return t.Format("2006-01-02")
}
