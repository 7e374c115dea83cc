// Package telemetry provides the performance instrumentor described in
// spec.md §4.2: it measures scoped operations, logs their outcome, and
// flags slow ones, without altering the outcome it observed.
package telemetry

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/conceptrag/conceptrag/internal/logging"
)

// DefaultSlowThreshold matches spec.md §4.2's default.
const DefaultSlowThreshold = 5000 * time.Millisecond

// Instrumentor measures named operations and logs their duration.
type Instrumentor struct {
	logger         *logging.Logger
	slowThreshold  time.Duration
	metrics        *Metrics
}

// New creates an Instrumentor. A zero slowThreshold uses DefaultSlowThreshold.
func New(logger *logging.Logger, slowThreshold time.Duration, metrics *Metrics) *Instrumentor {
	if slowThreshold <= 0 {
		slowThreshold = DefaultSlowThreshold
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Instrumentor{logger: logger, slowThreshold: slowThreshold, metrics: metrics}
}

// Measure runs op, recording its duration and logging at info (or warn if
// the operation exceeded the slow threshold). The original error return of
// op propagates unchanged; Measure never masks or wraps it.
func Measure(ctx context.Context, in *Instrumentor, name string, op func(context.Context) error) error {
	if in == nil {
		return op(ctx)
	}
	start := time.Now()
	err := op(ctx)
	elapsed := time.Since(start)

	fields := []zap.Field{
		zap.String("operation", name),
		zap.Duration("duration", elapsed),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}

	slow := elapsed > in.slowThreshold
	if slow {
		in.logger.Warn(ctx, "slow operation", fields...)
	} else {
		in.logger.Info(ctx, "operation completed", fields...)
	}

	if in.metrics != nil {
		in.metrics.Observe(name, elapsed, err != nil)
		if slow {
			in.metrics.ObserveSlow(name)
		}
	}

	return err
}

// MeasureValue is Measure's generic counterpart for operations that return a
// value alongside an error. Go methods can't be generic, so this is a free
// function mirroring Measure's semantics.
func MeasureValue[T any](ctx context.Context, in *Instrumentor, name string, op func(context.Context) (T, error)) (T, error) {
	var result T
	err := Measure(ctx, in, name, func(ctx context.Context) error {
		v, err := op(ctx)
		result = v
		return err
	})
	return result, err
}
