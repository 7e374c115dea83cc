package resilience

import (
	"context"
	"time"

	"github.com/conceptrag/conceptrag/internal/logging"
)

// EnvelopeConfig assembles the four resilience stages into one resilient
// execution envelope, per spec.md §4.3: "Evaluated innermost-to-outermost:
// timeout ∘ circuit breaker ∘ bulkhead ∘ retry. Order is fixed; only
// individual stages may be disabled."
//
// Reading the composition innermost-first: the call actually made to the
// underlying operation is wrapped first by a timeout, then that is what the
// circuit breaker observes succeed or fail, then the breaker-guarded call is
// what takes a bulkhead ticket, and the whole thing is what Retry re-invokes
// on transient failure.
type EnvelopeConfig struct {
	Breaker  *BreakerConfig // nil disables the circuit breaker stage
	Bulkhead *BulkheadConfig
	Timeout  time.Duration // zero disables the timeout stage
	Retry    *RetryConfig  // nil disables the retry stage
}

// Envelope is a composed resilient execution boundary, built once and reused
// for every call it guards (e.g. one Envelope per remote collaborator: the
// LLM endpoint, the lexical knowledge source).
type Envelope struct {
	name     string
	breaker  *CircuitBreaker
	bulkhead *Bulkhead
	timeout  time.Duration
	retry    *RetryConfig
}

// NewEnvelope builds an Envelope from cfg. name identifies the envelope in
// logs and metrics (e.g. "llm-extractor", "lexical-source"). logger may be
// nil, in which case breaker transitions are logged to a no-op sink.
func NewEnvelope(name string, cfg EnvelopeConfig, logger *logging.Logger) *Envelope {
	env := &Envelope{name: name, timeout: cfg.Timeout, retry: cfg.Retry}
	if cfg.Breaker != nil {
		bc := *cfg.Breaker
		if bc.Name == "" {
			bc.Name = name
		}
		env.breaker = NewCircuitBreaker(bc, logger)
	}
	if cfg.Bulkhead != nil {
		bhc := *cfg.Bulkhead
		if bhc.Name == "" {
			bhc.Name = name
		}
		env.bulkhead = NewBulkhead(bhc)
	}
	return env
}

// Do runs op through every enabled stage in the fixed order.
func (e *Envelope) Do(ctx context.Context, op func(context.Context) error) error {
	inner := op
	if e.timeout > 0 {
		innerCopy := inner
		inner = func(ctx context.Context) error {
			return WithTimeout(ctx, e.name, e.timeout, innerCopy)
		}
	}
	if e.breaker != nil {
		innerCopy := inner
		inner = func(ctx context.Context) error {
			return e.breaker.Execute(ctx, innerCopy)
		}
	}
	if e.bulkhead != nil {
		innerCopy := inner
		inner = func(ctx context.Context) error {
			return e.bulkhead.Execute(ctx, innerCopy)
		}
	}
	if e.retry != nil {
		return Retry(ctx, *e.retry, inner)
	}
	return inner(ctx)
}

// BreakerState exposes the envelope's circuit breaker state for health
// checks and degraded-mode reporting (SPEC_FULL.md §5's concept-search
// diagnostics). Returns StateClosed if no breaker is configured.
func (e *Envelope) BreakerState() BreakerState {
	if e.breaker == nil {
		return StateClosed
	}
	return e.breaker.State()
}
