package resilience

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBulkheadRejectsBeyondQueueCapacity(t *testing.T) {
	bh := NewBulkhead(BulkheadConfig{Name: "test", MaxConcurrent: 1, MaxQueue: 1})

	release := make(chan struct{})
	var wg sync.WaitGroup

	// Occupy the single concurrency slot.
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = bh.Execute(context.Background(), func(context.Context) error {
			<-release
			return nil
		})
	}()

	// Wait until the slot is actually held.
	require.Eventually(t, func() bool { return bh.InFlight() == 1 }, time.Second, time.Millisecond)

	// Fill the one queue slot.
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = bh.Execute(context.Background(), func(context.Context) error { return nil })
	}()
	require.Eventually(t, func() bool { return bh.Queued() == 1 }, time.Second, time.Millisecond)

	// A third arrival must be rejected outright.
	err := bh.Execute(context.Background(), func(context.Context) error { return nil })
	require.Error(t, err)
	var rejected *BulkheadRejectedError
	require.ErrorAs(t, err, &rejected)

	close(release)
	wg.Wait()
}
