package resilience

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/conceptrag/conceptrag/internal/logging"
)

// BreakerState is one of closed, open, half-open (spec.md §4.3).
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a CircuitBreaker.
type BreakerConfig struct {
	Name             string
	FailureThreshold int
	SuccessThreshold int
	OpenTimeout      time.Duration
	ResetWindow      time.Duration
}

// CircuitBreaker implements the closed/open/half-open state machine of
// spec.md §4.3. One breaker instance is shared across every call it guards
// (e.g. one breaker for the whole LLM endpoint, so one misbehaving document
// opens the circuit for all of them).
type CircuitBreaker struct {
	cfg    BreakerConfig
	logger *logging.Logger

	mu               sync.Mutex
	state            BreakerState
	failures         int
	successes        int
	windowStart      time.Time
	openedAt         time.Time
}

// NewCircuitBreaker creates a breaker starting in the closed state.
func NewCircuitBreaker(cfg BreakerConfig, logger *logging.Logger) *CircuitBreaker {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.ResetWindow <= 0 {
		cfg.ResetWindow = 60 * time.Second
	}
	return &CircuitBreaker{cfg: cfg, logger: logger, state: StateClosed}
}

// State returns the breaker's current state, accounting for an open->half-open
// transition whose timeout has already elapsed.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeTransitionToHalfOpenLocked()
	return b.state
}

func (b *CircuitBreaker) maybeTransitionToHalfOpenLocked() {
	if b.state == StateOpen && time.Since(b.openedAt) >= b.cfg.OpenTimeout {
		b.state = StateHalfOpen
		b.successes = 0
		b.logger.Info(context.Background(), "circuit breaker transition",
			zap.String("breaker", b.cfg.Name),
			zap.String("from", "open"),
			zap.String("to", "half-open"))
	}
}

// Execute runs op under the breaker's protection. If the breaker is open (and
// its open timeout has not elapsed) it refuses the call with CircuitOpenError
// without running op at all.
//
// While half-open, every concurrent caller is let through rather than a
// single trial call; the shared breaker guarding one named resource trades
// the textbook one-trial semantics for simplicity here.
func (b *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	b.mu.Lock()
	b.maybeTransitionToHalfOpenLocked()
	if b.state == StateOpen {
		b.mu.Unlock()
		return &CircuitOpenError{Name: b.cfg.Name}
	}
	b.mu.Unlock()

	err := op(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.onFailureLocked()
		return err
	}
	b.onSuccessLocked()
	return nil
}

func (b *CircuitBreaker) onFailureLocked() {
	now := time.Now()
	switch b.state {
	case StateHalfOpen:
		b.openLocked(now)
	case StateClosed:
		if b.windowStart.IsZero() || now.Sub(b.windowStart) > b.cfg.ResetWindow {
			b.windowStart = now
			b.failures = 0
		}
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.openLocked(now)
		}
	}
}

func (b *CircuitBreaker) onSuccessLocked() {
	switch b.state {
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.state = StateClosed
			b.failures = 0
			b.successes = 0
			b.logger.Info(context.Background(), "circuit breaker transition",
				zap.String("breaker", b.cfg.Name),
				zap.String("from", "half-open"),
				zap.String("to", "closed"))
		}
	case StateClosed:
		b.failures = 0
	}
}

func (b *CircuitBreaker) openLocked(now time.Time) {
	prev := b.state
	b.state = StateOpen
	b.openedAt = now
	b.failures = 0
	b.successes = 0
	b.logger.Warn(context.Background(), "circuit breaker transition",
		zap.String("breaker", b.cfg.Name),
		zap.String("from", prev.String()),
		zap.String("to", "open"))
}
