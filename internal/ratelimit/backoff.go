package ratelimit

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// CalculateBackoff computes exponential backoff with +/-25% jitter, capped at MaxBackoff.
func CalculateBackoff(attempt int, cfg Config) time.Duration {
	if attempt <= 0 {
		return 0
	}
	if attempt > cfg.MaxRetries {
		return cfg.MaxBackoff
	}

	base := float64(cfg.InitialBackoff) * math.Pow(cfg.BackoffMultiplier, float64(attempt-1))
	base = math.Min(base, float64(cfg.MaxBackoff))

	backoff := base + base*0.25*(2*rand.Float64()-1)
	backoff = math.Max(0, math.Min(backoff, float64(cfg.MaxBackoff)))
	return time.Duration(backoff)
}

// RetryableError marks a failure worth another attempt.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err so Do retries it.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// Do calls op after waiting on l, retrying retryable failures up to maxRetries
// times with l's backoff between attempts.
func Do(ctx context.Context, l Limiter, maxRetries int, op func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if werr := sleep(ctx, l.RetryAfter(attempt)); werr != nil {
				return werr
			}
		}
		if werr := l.Wait(ctx); werr != nil {
			return werr
		}

		err = op(ctx)
		var retryable *RetryableError
		if err == nil || !errors.As(err, &retryable) {
			return err
		}
	}
	return err
}
