package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), DefaultRetryConfig(), func(context.Context) error {
		calls++
		return errors.New("permanent")
	})
	require.Error(t, err)
	require.Equal(t, 1, calls, "permanent errors must not be retried")
}

func TestRetryRetriesTransientUntilSuccess(t *testing.T) {
	calls := 0
	cfg := RetryConfig{MaxAttempts: 5, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, Idempotent: true}

	err := Retry(context.Background(), cfg, func(context.Context) error {
		calls++
		if calls < 3 {
			return Transient(errors.New("flaky"))
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestRetryHonorsNonIdempotent(t *testing.T) {
	calls := 0
	cfg := RetryConfig{MaxAttempts: 5, BaseDelay: time.Millisecond, Idempotent: false}

	err := Retry(context.Background(), cfg, func(context.Context) error {
		calls++
		return Transient(errors.New("flaky"))
	})

	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestTimeoutAbandonsSlowOperation(t *testing.T) {
	err := WithTimeout(context.Background(), "slow-op", 10*time.Millisecond, func(ctx context.Context) error {
		select {
		case <-time.After(time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	require.Error(t, err)
	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
}
