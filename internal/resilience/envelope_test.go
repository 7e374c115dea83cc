package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEnvelopeComposesRetryAroundBreaker(t *testing.T) {
	calls := 0
	env := NewEnvelope("test", EnvelopeConfig{
		Breaker: &BreakerConfig{FailureThreshold: 10, SuccessThreshold: 1, OpenTimeout: time.Hour, ResetWindow: time.Hour},
		Retry:   &RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, Idempotent: true},
		Timeout: time.Second,
	}, nil)

	err := env.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return Transient(errors.New("flaky"))
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestEnvelopeSurfacesCircuitOpen(t *testing.T) {
	env := NewEnvelope("test", EnvelopeConfig{
		Breaker: &BreakerConfig{FailureThreshold: 1, SuccessThreshold: 1, OpenTimeout: time.Hour, ResetWindow: time.Hour},
	}, nil)

	_ = env.Do(context.Background(), func(ctx context.Context) error { return errors.New("boom") })

	err := env.Do(context.Background(), func(ctx context.Context) error { return nil })
	var circuitErr *CircuitOpenError
	require.ErrorAs(t, err, &circuitErr)
}
