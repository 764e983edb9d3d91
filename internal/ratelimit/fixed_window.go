package ratelimit

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// FixedWindow admits up to RequestsPerSec requests per one-second window.
type FixedWindow struct {
	limit       int
	window      time.Duration
	count       int
	windowStart time.Time
	mu          sync.Mutex
	config      Config
}

// NewFixedWindow creates a new fixed window limiter.
func NewFixedWindow(cfg Config) *FixedWindow {
	cfg = ApplyDefaults(cfg)

	limit := int(cfg.RequestsPerSec)
	if limit < 1 {
		limit = 1
	}
	return &FixedWindow{
		limit:       limit,
		window:      time.Second,
		windowStart: time.Now(),
		config:      cfg,
	}
}

// Wait blocks until the current window has room or ctx is done.
func (fw *FixedWindow) Wait(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if fw.Allow() {
			return nil
		}

		wait := fw.Reserve()
		if wait <= 0 {
			continue
		}
		// jitter spreads callers released by the same window reset
		if q := int64(wait) / 4; q > 0 {
			wait += time.Duration(rand.Int64N(q))
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Allow returns true if request can proceed.
func (fw *FixedWindow) Allow() bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	fw.resetWindowIfNeeded()

	if fw.count < fw.limit {
		fw.count++
		return true
	}
	return false
}

// Reserve returns the time until the next window opens, or zero if the
// current one has room.
func (fw *FixedWindow) Reserve() time.Duration {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	fw.resetWindowIfNeeded()

	if fw.count < fw.limit {
		return 0
	}
	return fw.window - time.Since(fw.windowStart)
}

func (fw *FixedWindow) RetryAfter(attempt int) time.Duration {
	return CalculateBackoff(attempt, fw.config)
}

func (fw *FixedWindow) Reset() {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	fw.count = 0
	fw.windowStart = time.Now()
}

func (fw *FixedWindow) resetWindowIfNeeded() {
	now := time.Now()
	if now.Sub(fw.windowStart) >= fw.window {
		fw.count = 0
		fw.windowStart = now
	}
}
