// Package scoring implements the hybrid scoring engine of spec.md §4.8: a
// weighted fusion of dense vector similarity, candidate-pool BM25, title
// substring matching, and lexical-expansion overlap.
package scoring

import (
	"math"
	"sort"
	"strings"
)

// Weights is one operation's per-signal weight vector (spec.md §4.8's
// table). The four weights must sum to 1.0 ± 1e-9; callers that construct
// custom weight vectors should verify this themselves (see
// TestWeightVectorsSumToOne in scoring_test.go for the fixed per-operation
// vectors).
type Weights struct {
	Vector    float64 // α
	BM25      float64 // β
	Title     float64 // γ
	Expansion float64 // δ
}

// Standard per-operation weight vectors from spec.md §4.8.
var (
	CatalogSearchWeights     = Weights{Vector: 0.30, BM25: 0.30, Title: 0.25, Expansion: 0.15}
	BroadChunkSearchWeights  = Weights{Vector: 0.40, BM25: 0.40, Title: 0, Expansion: 0.20}
	ScopedChunkSearchWeights = Weights{Vector: 0.40, BM25: 0.40, Title: 0, Expansion: 0.20}
	ConceptSearchWeights     = Weights{Vector: 0.30, BM25: 0.20, Title: 0.40, Expansion: 0.10}
)

// Candidate is one row entering the scoring primitive: spec.md §4.8's
// r_i, carrying a vector, the text BM25 is computed over, and an optional
// title/path for the title score.
type Candidate struct {
	ID          uint32
	Vector      []float32
	TextForBM25 string
	TitleOrPath string
}

// Breakdown is a candidate's fused score plus its per-signal components,
// surfaced to callers when an operation's `debug` flag is set.
type Breakdown struct {
	ID        uint32
	Score     float64
	Vector    float64
	BM25      float64
	Title     float64
	Expansion float64
}

// Score runs the shared scoring primitive over candidates and returns them
// sorted by the tie-break order of spec.md §4.8: higher score, then
// smaller id.
func Score(queryVector []float32, queryText string, expandedTerms []string, candidates []Candidate, weights Weights) []Breakdown {
	if len(candidates) == 0 {
		return nil
	}

	queryTokens := Tokenize(queryText)
	docTokens := make([][]string, len(candidates))
	for i, c := range candidates {
		docTokens[i] = Tokenize(c.TextForBM25)
	}
	bm25Raw := BM25Scores(queryTokens, docTokens)
	bm25Norm := normalizeToUnit(bm25Raw)

	out := make([]Breakdown, len(candidates))
	for i, c := range candidates {
		// A candidate whose vector is missing or of a different length
		// than the query's has no vector signal at all.
		v := 0.0
		if len(c.Vector) == len(queryVector) && len(c.Vector) > 0 {
			v = clampUnit(cosineSimilarity(queryVector, c.Vector))
		}
		title := titleScore(queryTokens, c.TitleOrPath)
		exp := expansionScore(expandedTerms, docTokens[i])

		score := weights.Vector*v + weights.BM25*bm25Norm[i] + weights.Title*title + weights.Expansion*exp
		out[i] = Breakdown{ID: c.ID, Score: score, Vector: v, BM25: bm25Norm[i], Title: title, Expansion: exp}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// titleScore is the length-normalized substring match of spec.md §4.8: the
// fraction of query tokens present in title, 1.0 if all appear, 0 if none.
func titleScore(queryTokens []string, title string) float64 {
	if title == "" || len(queryTokens) == 0 {
		return 0
	}
	lower := strings.ToLower(title)
	matched := 0
	for _, tok := range queryTokens {
		if strings.Contains(lower, tok) {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTokens))
}

// expansionScore is |expanded_terms ∩ tokens(text)| / max(1, |expanded_terms|).
func expansionScore(expandedTerms []string, docTokens []string) float64 {
	if len(expandedTerms) == 0 {
		return 0
	}
	tokenSet := make(map[string]bool, len(docTokens))
	for _, t := range docTokens {
		tokenSet[t] = true
	}
	matched := 0
	for _, term := range expandedTerms {
		if tokenSet[strings.ToLower(term)] {
			matched++
		}
	}
	return float64(matched) / float64(len(expandedTerms))
}

// clampUnit maps cosine similarity in [-1,1] to [0,1].
func clampUnit(cos float64) float64 {
	v := (cos + 1) / 2
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// normalizeToUnit divides every score by the pool's maximum, so BM25's
// unbounded raw scale becomes commensurate with the other [0,1] signals.
// A zero-max pool (no term overlap with the query) normalizes to all zeros.
func normalizeToUnit(raw []float64) []float64 {
	max := 0.0
	for _, v := range raw {
		if v > max {
			max = v
		}
	}
	out := make([]float64, len(raw))
	if max == 0 {
		return out
	}
	for i, v := range raw {
		out[i] = v / max
	}
	return out
}
