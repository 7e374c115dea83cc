package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBreakerOpensAfterFailureThreshold(t *testing.T) {
	b := NewCircuitBreaker(BreakerConfig{
		Name:             "test",
		FailureThreshold: 3,
		SuccessThreshold: 1,
		OpenTimeout:      time.Hour,
		ResetWindow:      time.Minute,
	}, nil)

	boom := errors.New("boom")
	for i := 0; i < 3; i++ {
		err := b.Execute(context.Background(), func(context.Context) error { return boom })
		require.ErrorIs(t, err, boom)
	}

	require.Equal(t, StateOpen, b.State())

	var callRan bool
	err := b.Execute(context.Background(), func(context.Context) error {
		callRan = true
		return nil
	})
	require.Error(t, err)
	var circuitErr *CircuitOpenError
	require.ErrorAs(t, err, &circuitErr)
	require.False(t, callRan, "op must not run while circuit is open")
}

func TestBreakerHalfOpenRecoversAfterTimeout(t *testing.T) {
	b := NewCircuitBreaker(BreakerConfig{
		Name:             "test",
		FailureThreshold: 1,
		SuccessThreshold: 2,
		OpenTimeout:      10 * time.Millisecond,
		ResetWindow:      time.Minute,
	}, nil)

	_ = b.Execute(context.Background(), func(context.Context) error { return errors.New("fail") })
	require.Equal(t, StateOpen, b.State())

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, StateHalfOpen, b.State())

	require.NoError(t, b.Execute(context.Background(), func(context.Context) error { return nil }))
	require.Equal(t, StateHalfOpen, b.State(), "needs SuccessThreshold successes to close")

	require.NoError(t, b.Execute(context.Background(), func(context.Context) error { return nil }))
	require.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := NewCircuitBreaker(BreakerConfig{
		Name:             "test",
		FailureThreshold: 1,
		SuccessThreshold: 2,
		OpenTimeout:      10 * time.Millisecond,
		ResetWindow:      time.Minute,
	}, nil)

	_ = b.Execute(context.Background(), func(context.Context) error { return errors.New("fail") })
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, StateHalfOpen, b.State())

	_ = b.Execute(context.Background(), func(context.Context) error { return errors.New("fail again") })
	require.Equal(t, StateOpen, b.State())
}
