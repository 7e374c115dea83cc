package resilience

import (
	"context"
	"math/rand"
	"time"
)

// RetryConfig configures exponential backoff with jitter.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Idempotent must be true for Retry to attempt more than once. Non-
	// idempotent operations (e.g. an upsert without a natural dedupe key)
	// should set this false so Retry runs them exactly once, per spec.md
	// §4.3 ("not applied automatically to operations classified as
	// non-idempotent").
	Idempotent bool
}

// DefaultRetryConfig mirrors the teacher's extraction client defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
		MaxDelay:    30 * time.Second,
		Idempotent:  true,
	}
}

// Retry runs op, retrying only errors classified as transient (see
// IsTransient), backing off exponentially with jitter between attempts.
// Non-idempotent configs or permanent errors short-circuit after the first
// attempt.
func Retry(ctx context.Context, cfg RetryConfig, op func(context.Context) error) error {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if !cfg.Idempotent {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) {
			return lastErr
		}
		if attempt == maxAttempts {
			break
		}

		delay := backoffWithJitter(cfg.BaseDelay, cfg.MaxDelay, attempt)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func backoffWithJitter(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	exp := base * time.Duration(1<<uint(attempt-1))
	if max > 0 && exp > max {
		exp = max
	}
	// Full jitter: uniform in [0, exp).
	if exp <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(exp)))
}
