package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/conceptrag/conceptrag/internal/concepts"
	"github.com/conceptrag/conceptrag/internal/scoring"
	"github.com/conceptrag/conceptrag/internal/store"
	"github.com/conceptrag/conceptrag/internal/telemetry"
)

// DefaultConceptSearchLimit bounds how many chunks concept search returns
// when the caller doesn't specify a limit.
const DefaultConceptSearchLimit = 10

// MaxFuzzyConceptEditDistance is spec.md §4.8's fuzzy concept lookup
// threshold: a name within this edit distance of the query is treated as
// a match when no exact name exists.
const MaxFuzzyConceptEditDistance = 2

// ConceptSearch resolves a concept by exact name, falling back to the
// closest fuzzy match (edit distance ≤ 2) or, failing that, a nearest
// neighbor in vector space, then ranks the concept's chunks by concept
// density first and fused score second (spec.md §4.8).
func (e *Engine) ConceptSearch(ctx context.Context, in ConceptSearchInput) (ConceptSearchOutput, error) {
	return telemetry.MeasureValue(ctx, e.instrumentor, "concept_search", func(ctx context.Context) (ConceptSearchOutput, error) {
		return e.conceptSearch(ctx, in)
	})
}

func (e *Engine) conceptSearch(ctx context.Context, in ConceptSearchInput) (ConceptSearchOutput, error) {
	limit := clampLimit(in.Limit, DefaultConceptSearchLimit, 100)
	normalized := concepts.Normalize(in.Concept)

	concept, exact, err := e.resolveConcept(ctx, normalized)
	if err != nil {
		return ConceptSearchOutput{}, err
	}

	chunks, err := e.store.ChunksByIDs(concept.ChunkIDs)
	if err != nil {
		return ConceptSearchOutput{}, fmt.Errorf("retrieval: loading chunks for concept %q: %w", concept.Name, err)
	}

	expansion := e.expander.Expand(ctx, in.Concept)
	expanded := expansion.All()
	queryVector, err := e.embedder.Embed(ctx, in.Concept)
	if err != nil {
		return ConceptSearchOutput{}, fmt.Errorf("retrieval: embedding query for concept search: %w", err)
	}

	nameMatch := scoring.NameMatchScore(in.Concept, concept.Name)
	synonymOverlap := scoring.SynonymOverlapScore(expanded, concept.Synonyms)

	candidates := make([]scoring.Candidate, len(chunks))
	for i, c := range chunks {
		candidates[i] = scoring.Candidate{ID: c.ID, Vector: c.Vector, TextForBM25: c.Text}
	}
	// Vector and BM25 signals vary per chunk; title and expansion are
	// replaced by the concept-level name match and synonym overlap, which
	// are constant across every chunk of the same concept.
	partial := scoring.Score(queryVector, in.Concept, nil, candidates, scoring.Weights{
		Vector: scoring.ConceptSearchWeights.Vector,
		BM25:   scoring.ConceptSearchWeights.BM25,
	})

	chunksByID := make(map[uint32]store.Chunk, len(chunks))
	for _, c := range chunks {
		chunksByID[c.ID] = c
	}

	scored := make([]ScoredChunk, len(partial))
	for i, b := range partial {
		fused := b.Score + scoring.ConceptSearchWeights.Title*nameMatch + scoring.ConceptSearchWeights.Expansion*synonymOverlap
		scored[i] = ScoredChunk{Chunk: chunksByID[b.ID], Score: fused}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Chunk.ConceptDensity != scored[j].Chunk.ConceptDensity {
			return scored[i].Chunk.ConceptDensity > scored[j].Chunk.ConceptDensity
		}
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Chunk.ID < scored[j].Chunk.ID
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}

	sourceDocs := make([]store.Document, 0, len(concept.CatalogIDs))
	for _, id := range concept.CatalogIDs {
		if doc, err := e.store.GetDocument(id); err == nil {
			sourceDocs = append(sourceDocs, *doc)
		}
	}

	return ConceptSearchOutput{
		ConceptID:         concept.ID,
		ExactMatch:        exact,
		Chunks:            scored,
		SourceDocs:        sourceDocs,
		ExpansionDegraded: expansion.Degraded,
	}, nil
}

// resolveConcept implements the three-step fallback of spec.md §4.8:
// exact name, then fuzzy name within edit distance 2, then nearest vector
// neighbor among every known concept.
func (e *Engine) resolveConcept(ctx context.Context, normalized string) (*store.Concept, bool, error) {
	if c, err := e.store.FindConceptByName(normalized); err == nil {
		return c, true, nil
	}

	all, err := e.store.AllConcepts()
	if err != nil {
		return nil, false, fmt.Errorf("retrieval: listing concepts for fuzzy lookup: %w", err)
	}
	if len(all) == 0 {
		return nil, false, fmt.Errorf("retrieval: no concepts exist yet")
	}

	best := -1
	bestDistance := MaxFuzzyConceptEditDistance + 1
	for i, c := range all {
		d := scoring.EditDistance(normalized, c.Name)
		if d < bestDistance {
			bestDistance = d
			best = i
		}
	}
	if best >= 0 && bestDistance <= MaxFuzzyConceptEditDistance {
		return &all[best], false, nil
	}

	queryVector, err := e.embedder.Embed(ctx, normalized)
	if err != nil {
		return nil, false, fmt.Errorf("retrieval: embedding query for fuzzy concept fallback: %w", err)
	}
	nearest := -1
	nearestScore := -1.0
	for i, c := range all {
		s := cosineForFallback(queryVector, c.Vector)
		if s > nearestScore {
			nearestScore = s
			nearest = i
		}
	}
	if nearest < 0 {
		return nil, false, fmt.Errorf("retrieval: concept %q not found", normalized)
	}
	return &all[nearest], false, nil
}

func cosineForFallback(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// ExtractConcepts resolves a document by catalog search's top hit and
// returns its concepts, optionally including each concept's summary
// (spec.md §4.8).
func (e *Engine) ExtractConcepts(ctx context.Context, in ExtractConceptsInput) (ExtractConceptsOutput, error) {
	return telemetry.MeasureValue(ctx, e.instrumentor, "extract_concepts", func(ctx context.Context) (ExtractConceptsOutput, error) {
		return e.extractConcepts(ctx, in)
	})
}

func (e *Engine) extractConcepts(ctx context.Context, in ExtractConceptsInput) (ExtractConceptsOutput, error) {
	hits, err := e.CatalogSearch(ctx, CatalogSearchInput{Text: in.DocumentQuery})
	if err != nil {
		return ExtractConceptsOutput{}, err
	}
	if len(hits) == 0 {
		return ExtractConceptsOutput{}, fmt.Errorf("retrieval: no document matches %q", in.DocumentQuery)
	}
	doc := hits[0].Document

	out := make([]store.Concept, 0, len(doc.ConceptIDs))
	for _, id := range doc.ConceptIDs {
		c, err := e.store.GetConcept(id)
		if err != nil {
			continue
		}
		if strings.ToLower(in.Format) != "full" {
			c.Summary = ""
		} else if !in.IncludeSummary {
			c.Summary = ""
		}
		out = append(out, *c)
	}

	return ExtractConceptsOutput{Document: doc, Concepts: out}, nil
}
