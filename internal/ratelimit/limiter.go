package ratelimit

import (
	"context"
	"time"
)

// Limiter paces outbound requests to an extract source.
type Limiter interface {
	Wait(ctx context.Context) error
	Allow() bool
	RetryAfter(attempt int) time.Duration
	Reset()
}

// Strategy selects the limiter implementation.
type Strategy string

const (
	StrategyTokenBucket Strategy = "token_bucket"
	StrategyFixedDelay  Strategy = "fixed_delay"
	StrategyFixedWindow Strategy = "fixed_window"
	StrategyNone        Strategy = "none"
)

// NewLimiter creates a rate limiter based on config.
func NewLimiter(cfg Config) Limiter {
	cfg = ApplyDefaults(cfg)
	switch cfg.Strategy {
	case StrategyFixedDelay:
		return NewFixedDelayLimiter(cfg)
	case StrategyFixedWindow:
		return NewFixedWindow(cfg)
	case StrategyNone:
		return Unlimited{cfg: cfg}
	default:
		return NewTokenBucket(cfg)
	}
}

// Unlimited never blocks but still reports backoff for retries.
type Unlimited struct {
	cfg Config
}

func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }
func (Unlimited) Allow() bool                    { return true }
func (Unlimited) Reset()                         {}

func (u Unlimited) RetryAfter(attempt int) time.Duration {
	return CalculateBackoff(attempt, u.cfg)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
