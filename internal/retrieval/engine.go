package retrieval

import (
	"context"

	"github.com/conceptrag/conceptrag/internal/cache"
	"github.com/conceptrag/conceptrag/internal/expander"
	"github.com/conceptrag/conceptrag/internal/logging"
	"github.com/conceptrag/conceptrag/internal/store"
	"github.com/conceptrag/conceptrag/internal/telemetry"
)

// Embedder narrows the engine's dependency on an embedding provider down to
// the single call every retrieval operation needs: turning query text into
// a vector comparable against the store's stored vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// DefaultCandidatePoolMultiplier controls how much larger the vector
// candidate pool is than the number of results an operation ultimately
// returns, per spec.md §4.8's "over-fetch then rerank" shape.
const DefaultCandidatePoolMultiplier = 4

// DefaultCacheCapacity bounds the in-memory search result cache.
const DefaultCacheCapacity = 256

// Engine implements the retrieval and browsing contracts of spec.md §4.8
// on top of a Store, an Embedder, and a query Expander.
type Engine struct {
	store        *store.Store
	embedder     Embedder
	expander     *expander.Expander
	logger       *logging.Logger
	results      *cache.SearchResultCache[any]
	instrumentor *telemetry.Instrumentor
}

// Option configures optional Engine collaborators.
type Option func(*Engine)

// WithInstrumentor measures every retrieval and browsing operation through
// in (spec.md §4.2). Without this option, operations run unmeasured.
func WithInstrumentor(in *telemetry.Instrumentor) Option {
	return func(e *Engine) { e.instrumentor = in }
}

// New constructs a retrieval Engine. A nil logger defaults to a no-op
// logger, and a nil expander defaults to one backed by the built-in
// domain synonym table.
func New(st *store.Store, embedder Embedder, exp *expander.Expander, logger *logging.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	if exp == nil {
		exp = expander.New(nil, logger)
	}
	e := &Engine{
		store:    st,
		embedder: embedder,
		expander: exp,
		logger:   logger,
		results:  cache.NewSearchResultCache[any](DefaultCacheCapacity, 0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
