// Package ratelimiter adapts the teacher repo's pkg/ratelimit
// AdaptiveRateLimiter for the webhook sink. The teacher hand-rolled a token
// bucket with its own latency-adaptive refill loop; golang.org/x/time/rate
// already implements the token bucket half of that faithfully, so this
// package keeps the teacher's config shape (initial/min/max RPS and burst,
// a latency target) and drives an *rate.Limiter, adapting RPS within the
// configured bounds based on observed call latency instead of reimplementing
// bucket bookkeeping from scratch.
package ratelimiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config mirrors the teacher's AdaptiveRateLimiter Config.
type Config struct {
	InitialRPS      float64
	MinRPS          float64
	MaxRPS          float64
	Burst           int
	LatencyTargetMS int
}

func (c Config) withDefaults() Config {
	if c.InitialRPS == 0 {
		c.InitialRPS = 5
	}
	if c.MinRPS == 0 {
		c.MinRPS = 1
	}
	if c.MaxRPS == 0 {
		c.MaxRPS = 50
	}
	if c.Burst == 0 {
		c.Burst = int(c.InitialRPS)
		if c.Burst == 0 {
			c.Burst = 1
		}
	}
	if c.LatencyTargetMS == 0 {
		c.LatencyTargetMS = 200
	}
	return c
}

// Limiter wraps golang.org/x/time/rate.Limiter with the teacher's
// latency-adaptive step: after every call it nudges the rate up or down
// depending on whether the observed latency stayed under the target.
type Limiter struct {
	cfg Config

	mu      sync.Mutex
	limiter *rate.Limiter
	rps     float64
}

// New builds a Limiter with cfg's defaults filled in.
func New(cfg Config) *Limiter {
	cfg = cfg.withDefaults()
	return &Limiter{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.InitialRPS), cfg.Burst),
		rps:     cfg.InitialRPS,
	}
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	lim := l.limiter
	l.mu.Unlock()
	return lim.Wait(ctx)
}

// Report feeds back the latency of a completed call so the next Wait can
// adapt: calls faster than the target nudge the rate up toward MaxRPS,
// slower calls nudge it down toward MinRPS.
func (l *Limiter) Report(latency time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	target := time.Duration(l.cfg.LatencyTargetMS) * time.Millisecond
	switch {
	case latency > target && l.rps > l.cfg.MinRPS:
		l.rps = maxFloat(l.rps*0.9, l.cfg.MinRPS)
	case latency <= target && l.rps < l.cfg.MaxRPS:
		l.rps = minFloat(l.rps*1.1, l.cfg.MaxRPS)
	default:
		return
	}
	l.limiter.SetLimit(rate.Limit(l.rps))
}

// CurrentRPS reports the current adapted rate, mainly for tests/metrics.
func (l *Limiter) CurrentRPS() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rps
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
