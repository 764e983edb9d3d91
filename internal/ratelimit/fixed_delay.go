package ratelimit

import (
	"context"
	"sync"
	"time"
)

// FixedDelayLimiter spaces requests at least FixedDelay apart.
type FixedDelayLimiter struct {
	mu     sync.Mutex
	delay  time.Duration
	next   time.Time
	config Config
}

// NewFixedDelayLimiter creates a new fixed delay limiter.
func NewFixedDelayLimiter(cfg Config) *FixedDelayLimiter {
	cfg = ApplyDefaults(cfg)
	return &FixedDelayLimiter{delay: cfg.FixedDelay, config: cfg}
}

// Wait claims the next slot and sleeps until it starts.
func (l *FixedDelayLimiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	now := time.Now()
	slot := now
	if l.next.After(now) {
		slot = l.next
	}
	l.next = slot.Add(l.delay)
	l.mu.Unlock()

	return sleep(ctx, slot.Sub(now))
}

// Allow claims the slot only if it is already open.
func (l *FixedDelayLimiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if l.next.After(now) {
		return false
	}
	l.next = now.Add(l.delay)
	return true
}

// RetryAfter returns exponential backoff duration.
func (l *FixedDelayLimiter) RetryAfter(attempt int) time.Duration {
	return CalculateBackoff(attempt, l.config)
}

// Reset opens the next slot immediately.
func (l *FixedDelayLimiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next = time.Time{}
}
