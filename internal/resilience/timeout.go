package resilience

import (
	"context"
	"time"
)

// WithTimeout races op against a deadline derived from d. On expiry it
// returns a TimeoutError and abandons op by canceling the context passed to
// it — well-behaved operations observe ctx.Done() and return promptly, but
// WithTimeout itself returns to the caller as soon as the deadline fires
// regardless of whether op has actually unwound.
func WithTimeout(ctx context.Context, name string, d time.Duration, op func(context.Context) error) error {
	if d <= 0 {
		return op(ctx)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- op(timeoutCtx)
	}()

	select {
	case err := <-done:
		return err
	case <-timeoutCtx.Done():
		return &TimeoutError{Name: name, Deadline: d.String()}
	}
}
