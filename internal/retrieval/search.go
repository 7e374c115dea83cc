package retrieval

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/conceptrag/conceptrag/internal/cache"
	"github.com/conceptrag/conceptrag/internal/scoring"
	"github.com/conceptrag/conceptrag/internal/store"
	"github.com/conceptrag/conceptrag/internal/telemetry"
)

// DefaultCatalogLimit is spec.md §4.8's fixed catalog search result count.
const DefaultCatalogLimit = 10

// DefaultBroadChunkLimit is the result count returned when the caller
// doesn't specify one.
const DefaultBroadChunkLimit = 10

// DefaultScopedChunkLimit is spec.md §4.8's fixed scoped chunk search
// result count.
const DefaultScopedChunkLimit = 5

// CatalogSearch ranks every document against free text, returning the top
// 10 by fused score (spec.md §4.8).
func (e *Engine) CatalogSearch(ctx context.Context, in CatalogSearchInput) ([]ScoredDocument, error) {
	return telemetry.MeasureValue(ctx, e.instrumentor, "catalog_search", func(ctx context.Context) ([]ScoredDocument, error) {
		return e.catalogSearch(ctx, in)
	})
}

func (e *Engine) catalogSearch(ctx context.Context, in CatalogSearchInput) ([]ScoredDocument, error) {
	key := cache.CanonicalKey("catalog_search", in.Text, map[string]any{"debug": in.Debug})
	if cached, ok := e.results.Get(key); ok {
		if docs, ok := cached.([]ScoredDocument); ok {
			return docs, nil
		}
	}

	queryVector, err := e.embedder.Embed(ctx, in.Text)
	if err != nil {
		return nil, fmt.Errorf("retrieval: embedding query for catalog search: %w", err)
	}
	expanded := e.expander.Expand(ctx, in.Text).All()

	pool, err := e.store.VectorTopK("catalog", queryVector, DefaultCatalogLimit*DefaultCandidatePoolMultiplier, nil)
	if err != nil {
		return nil, fmt.Errorf("retrieval: candidate pool for catalog search: %w", err)
	}

	candidates := make([]scoring.Candidate, 0, len(pool))
	docsByID := make(map[uint32]store.Document, len(pool))
	for _, row := range pool {
		doc, err := e.store.GetDocument(row.ID)
		if err != nil {
			continue
		}
		docsByID[doc.ID] = *doc
		candidates = append(candidates, scoring.Candidate{
			ID:          doc.ID,
			Vector:      doc.Vector,
			TextForBM25: doc.Title + " " + doc.Summary,
			TitleOrPath: doc.Title,
		})
	}

	breakdowns := scoring.Score(queryVector, in.Text, expanded, candidates, scoring.CatalogSearchWeights)
	if len(breakdowns) > DefaultCatalogLimit {
		breakdowns = breakdowns[:DefaultCatalogLimit]
	}

	out := make([]ScoredDocument, len(breakdowns))
	for i, b := range breakdowns {
		sd := ScoredDocument{Document: docsByID[b.ID], Score: b.Score}
		if in.Debug {
			cp := b
			sd.Breakdown = &cp
		}
		out[i] = sd
	}

	e.results.Put(key, out)
	return out, nil
}

// BroadChunkSearch ranks chunks across the entire corpus against free text
// (spec.md §4.8).
func (e *Engine) BroadChunkSearch(ctx context.Context, in BroadChunkSearchInput) ([]ScoredChunk, error) {
	return telemetry.MeasureValue(ctx, e.instrumentor, "broad_chunk_search", func(ctx context.Context) ([]ScoredChunk, error) {
		return e.broadChunkSearch(ctx, in)
	})
}

func (e *Engine) broadChunkSearch(ctx context.Context, in BroadChunkSearchInput) ([]ScoredChunk, error) {
	limit := clampLimit(in.Limit, DefaultBroadChunkLimit, 100)

	queryVector, err := e.embedder.Embed(ctx, in.Text)
	if err != nil {
		return nil, fmt.Errorf("retrieval: embedding query for broad chunk search: %w", err)
	}
	expanded := e.expander.Expand(ctx, in.Text).All()

	pool, err := e.store.VectorTopK("chunks", queryVector, limit*DefaultCandidatePoolMultiplier, nil)
	if err != nil {
		return nil, fmt.Errorf("retrieval: candidate pool for broad chunk search: %w", err)
	}

	candidates, chunksByID := chunkCandidates(e.store, pool)
	breakdowns := scoring.Score(queryVector, in.Text, expanded, candidates, scoring.BroadChunkSearchWeights)
	if len(breakdowns) > limit {
		breakdowns = breakdowns[:limit]
	}
	return toScoredChunks(breakdowns, chunksByID, false), nil
}

// ScopedChunkSearch ranks chunks within a single document against free
// text, matching by exact source path first and falling back to a title
// substring match (spec.md §4.8).
func (e *Engine) ScopedChunkSearch(ctx context.Context, in ScopedChunkSearchInput) ([]ScoredChunk, error) {
	return telemetry.MeasureValue(ctx, e.instrumentor, "scoped_chunk_search", func(ctx context.Context) ([]ScoredChunk, error) {
		return e.scopedChunkSearch(ctx, in)
	})
}

func (e *Engine) scopedChunkSearch(ctx context.Context, in ScopedChunkSearchInput) ([]ScoredChunk, error) {
	doc, err := e.store.GetDocumentBySource(in.Source)
	if err != nil {
		matches, lookupErr := e.store.DocumentsByTitleSubstring(in.Source)
		if lookupErr != nil || len(matches) == 0 {
			return nil, fmt.Errorf("retrieval: no document matches source %q", in.Source)
		}
		e.logger.Info(ctx, "scoped chunk search: source miss, falling back to title substring",
			zap.String("source", in.Source), zap.String("matched_title", matches[0].Title))
		doc = &matches[0]
	}

	chunks, err := e.store.ChunksByCatalogID(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("retrieval: loading chunks for %q: %w", in.Source, err)
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	queryVector, err := e.embedder.Embed(ctx, in.Text)
	if err != nil {
		return nil, fmt.Errorf("retrieval: embedding query for scoped chunk search: %w", err)
	}
	expanded := e.expander.Expand(ctx, in.Text).All()

	candidates := make([]scoring.Candidate, len(chunks))
	chunksByID := make(map[uint32]store.Chunk, len(chunks))
	for i, c := range chunks {
		chunksByID[c.ID] = c
		candidates[i] = scoring.Candidate{ID: c.ID, Vector: c.Vector, TextForBM25: c.Text}
	}

	breakdowns := scoring.Score(queryVector, in.Text, expanded, candidates, scoring.ScopedChunkSearchWeights)
	if len(breakdowns) > DefaultScopedChunkLimit {
		breakdowns = breakdowns[:DefaultScopedChunkLimit]
	}
	return toScoredChunks(breakdowns, chunksByID, in.Debug), nil
}

func chunkCandidates(st *store.Store, pool []store.ScoredRow) ([]scoring.Candidate, map[uint32]store.Chunk) {
	candidates := make([]scoring.Candidate, 0, len(pool))
	chunksByID := make(map[uint32]store.Chunk, len(pool))
	for _, row := range pool {
		c, err := st.GetChunk(row.ID)
		if err != nil {
			continue
		}
		chunksByID[c.ID] = *c
		candidates = append(candidates, scoring.Candidate{ID: c.ID, Vector: c.Vector, TextForBM25: c.Text})
	}
	return candidates, chunksByID
}

func toScoredChunks(breakdowns []scoring.Breakdown, chunksByID map[uint32]store.Chunk, debug bool) []ScoredChunk {
	out := make([]ScoredChunk, len(breakdowns))
	for i, b := range breakdowns {
		sc := ScoredChunk{Chunk: chunksByID[b.ID], Score: b.Score}
		if debug {
			cp := b
			sc.Breakdown = &cp
		}
		out[i] = sc
	}
	return out
}
