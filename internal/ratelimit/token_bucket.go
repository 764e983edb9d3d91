package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenBucket allows bursts up to Burst and refills at RequestsPerSec.
type TokenBucket struct {
	mu         sync.Mutex
	rate       float64
	burst      float64
	tokens     float64
	lastRefill time.Time
	config     Config
}

// NewTokenBucket creates a full bucket.
func NewTokenBucket(cfg Config) *TokenBucket {
	cfg = ApplyDefaults(cfg)
	return &TokenBucket{
		rate:       cfg.RequestsPerSec,
		burst:      float64(cfg.Burst),
		tokens:     float64(cfg.Burst),
		lastRefill: time.Now(),
		config:     cfg,
	}
}

// Wait takes a token, sleeping until one is available or ctx is done.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		tb.mu.Lock()
		tb.refill(time.Now())
		if tb.tokens >= 1 {
			tb.tokens--
			tb.mu.Unlock()
			return nil
		}
		wait := time.Duration((1-tb.tokens)/tb.rate*float64(time.Second)) + time.Millisecond
		tb.mu.Unlock()

		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Allow takes a token if one is available now.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill(time.Now())
	if tb.tokens < 1 {
		return false
	}
	tb.tokens--
	return true
}

// RetryAfter returns exponential backoff duration.
func (tb *TokenBucket) RetryAfter(attempt int) time.Duration {
	return CalculateBackoff(attempt, tb.config)
}

// Reset refills the bucket.
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.tokens = tb.burst
	tb.lastRefill = time.Now()
}

// refill must be called with mu held.
func (tb *TokenBucket) refill(now time.Time) {
	elapsed := now.Sub(tb.lastRefill)
	if elapsed <= 0 {
		return
	}
	tb.tokens += elapsed.Seconds() * tb.rate
	if tb.tokens > tb.burst {
		tb.tokens = tb.burst
	}
	tb.lastRefill = now
}
