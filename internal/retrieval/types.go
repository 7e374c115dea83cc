// Package retrieval implements the five retrieval contracts and four
// browsing contracts of spec.md §4.8 on top of internal/store,
// internal/scoring, and internal/expander.
package retrieval

import (
	"github.com/conceptrag/conceptrag/internal/scoring"
	"github.com/conceptrag/conceptrag/internal/store"
)

// CatalogSearchInput is spec.md §4.8's catalog search contract input.
type CatalogSearchInput struct {
	Text  string
	Debug bool
}

// ScoredDocument pairs a document with its fused score and, when the
// caller asked for debug output, the full per-signal breakdown.
type ScoredDocument struct {
	Document  store.Document
	Score     float64
	Breakdown *scoring.Breakdown
}

// ScoredChunk pairs a chunk with its fused score.
type ScoredChunk struct {
	Chunk     store.Chunk
	Score     float64
	Breakdown *scoring.Breakdown
}

// BroadChunkSearchInput is spec.md §4.8's broad chunk search contract input.
type BroadChunkSearchInput struct {
	Text  string
	Limit int
}

// ScopedChunkSearchInput is spec.md §4.8's scoped chunk search contract input.
type ScopedChunkSearchInput struct {
	Text   string
	Source string
	Debug  bool
}

// ConceptSearchInput is spec.md §4.8's concept search contract input.
type ConceptSearchInput struct {
	Concept string
	Limit   int
}

// ConceptSearchOutput reports the resolved concept id (spec.md §4.8:
// "Reports the resolved concept id so callers can distinguish an exact
// match from a fuzzy one"), whether the match was exact, the ranked
// chunks, and the concept's source documents.
type ConceptSearchOutput struct {
	ConceptID  uint32
	ExactMatch bool
	Chunks     []ScoredChunk
	SourceDocs []store.Document
	// ExpansionDegraded is set when at least one of the query expander's
	// lexical source lookups failed during this call (including envelope
	// refusals such as an open circuit or exhausted bulkhead).
	ExpansionDegraded bool
}

// ExtractConceptsInput is spec.md §4.8's extract concepts contract input.
type ExtractConceptsInput struct {
	DocumentQuery  string
	Format         string // "names" (default) or "full"
	IncludeSummary bool
}

// ExtractConceptsOutput carries the resolved document and its concepts,
// formatted per Format.
type ExtractConceptsOutput struct {
	Document store.Document
	Concepts []store.Concept
}

// ListCategoriesInput is spec.md §4.8's list categories contract input.
type ListCategoriesInput struct {
	Substring string
	SortBy    string // "name" (default), "popularity", or "documentCount"
}

// CategoryBrowseInput is spec.md §4.8's category browse contract input.
type CategoryBrowseInput struct {
	Name            string
	IncludeChildren bool
	Limit           int
}

// ConceptToSourcesVariant selects between the two output shapes spec.md
// §4.8's concept→sources contract describes.
type ConceptToSourcesVariant int

const (
	// VariantUnion merges every concept's sources into one ranked list.
	VariantUnion ConceptToSourcesVariant = iota
	// VariantPerConcept returns one source list per input concept, position
	// preserved, empty lists retained.
	VariantPerConcept
)

// UnionSource is one row of the union concept→sources variant: a document
// tagged with which input concept indices matched it.
type UnionSource struct {
	Document       store.Document
	MatchedIndices []int
}
