package resilience

import (
	"context"
)

// BulkheadConfig bounds concurrency and queuing for a Bulkhead.
type BulkheadConfig struct {
	Name          string
	MaxConcurrent int
	MaxQueue      int
}

// Bulkhead admits up to MaxConcurrent operations, queues up to MaxQueue
// more, and rejects anything beyond that, per spec.md §4.3. Queued arrivals
// are served in arrival order because the underlying primitive is a
// buffered channel used as a ticket queue (FIFO).
type Bulkhead struct {
	name    string
	tickets chan struct{}
	queue   chan struct{}
}

// NewBulkhead creates a Bulkhead. The queue is modeled as a second buffered
// channel representing "waiting room" slots; when both the running-slot
// channel and the waiting-room channel are full, Execute rejects instead of
// blocking.
func NewBulkhead(cfg BulkheadConfig) *Bulkhead {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.MaxQueue < 0 {
		cfg.MaxQueue = 0
	}
	return &Bulkhead{
		name:    cfg.Name,
		tickets: make(chan struct{}, cfg.MaxConcurrent),
		queue:   make(chan struct{}, cfg.MaxQueue),
	}
}

// Execute admits op if a concurrency slot is free; otherwise it takes a
// queue slot and blocks until one frees up, or rejects immediately if the
// queue is also full.
func (bh *Bulkhead) Execute(ctx context.Context, op func(context.Context) error) error {
	select {
	case bh.tickets <- struct{}{}:
		defer func() { <-bh.tickets }()
		return op(ctx)
	default:
	}

	select {
	case bh.queue <- struct{}{}:
	default:
		return &BulkheadRejectedError{Name: bh.name, MaxConcurrent: cap(bh.tickets), MaxQueue: cap(bh.queue)}
	}
	defer func() { <-bh.queue }()

	select {
	case bh.tickets <- struct{}{}:
		defer func() { <-bh.tickets }()
		return op(ctx)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InFlight returns the number of operations currently holding a concurrency
// ticket, for observability.
func (bh *Bulkhead) InFlight() int {
	return len(bh.tickets)
}

// Queued returns the number of operations currently waiting for a ticket.
func (bh *Bulkhead) Queued() int {
	return len(bh.queue)
}
