// Package trace provides the asynchronous-task-local trace id described in
// spec.md §4.2: entry points mint a fresh id, children inherit it by copying
// the context across suspension points (goroutines, bulkhead queuing).
//
// This is deliberately independent of go.opentelemetry.io/otel/trace: when a
// caller has set up a real OTEL span, internal/logging prefers that span's
// trace id. This package is the fallback for code paths that want trace
// correlation without standing up a full tracer.
package trace

import (
	"context"

	"github.com/google/uuid"
)

type traceIDCtxKey struct{}

// New mints a fresh trace id. Call once per entry point (a tool-boundary
// invocation, a seeder run).
func New() string {
	return uuid.NewString()
}

// With attaches a trace id to ctx, returning the derived context.
func With(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDCtxKey{}, traceID)
}

// FromContext returns the trace id propagated on ctx, if any.
func FromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(traceIDCtxKey{}).(string)
	return v, ok
}

// Ensure returns ctx unchanged if it already carries a trace id, or a
// derived context carrying a freshly minted one otherwise. Entry points use
// this instead of New+With so repeated calls within one request are
// idempotent.
func Ensure(ctx context.Context) context.Context {
	if _, ok := FromContext(ctx); ok {
		return ctx
	}
	return With(ctx, New())
}
