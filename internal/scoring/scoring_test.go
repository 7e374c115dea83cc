package scoring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenizeLowercasesAndSplitsOnPunctuation(t *testing.T) {
	require.Equal(t, []string{"the", "decorator", "pattern"}, Tokenize("The Decorator-Pattern!"))
}

func TestTokenizeHandlesEmptyInput(t *testing.T) {
	require.Empty(t, Tokenize(""))
	require.Empty(t, Tokenize("   ---   "))
}

func TestBM25ScoresFavorsHigherTermFrequency(t *testing.T) {
	docs := [][]string{
		{"decorator", "pattern", "wraps", "an", "object"},
		{"decorator", "decorator", "decorator", "pattern"},
		{"observer", "pattern", "notifies", "subscribers"},
	}
	scores := BM25Scores([]string{"decorator"}, docs)
	require.Len(t, scores, 3)
	require.Greater(t, scores[1], scores[0])
	require.Zero(t, scores[2])
}

func TestBM25ScoresIDFIsScopedToCandidatePool(t *testing.T) {
	// "pattern" appears in every document of poolA but only one of poolB;
	// its IDF contribution must differ between the two pools because
	// document frequency is computed per-pool, not against a shared corpus.
	poolA := [][]string{
		{"pattern", "one"},
		{"pattern", "two"},
		{"pattern", "three"},
	}
	poolB := [][]string{
		{"pattern", "one"},
		{"unrelated", "two"},
		{"unrelated", "three"},
	}
	scoresA := BM25Scores([]string{"pattern"}, poolA)
	scoresB := BM25Scores([]string{"pattern"}, poolB)
	require.NotEqual(t, scoresA[0], scoresB[0])
}

func TestBM25ScoresHandlesEmptyPool(t *testing.T) {
	require.Empty(t, BM25Scores([]string{"x"}, nil))
}

func TestScoreOrdersByScoreDescThenIDAsc(t *testing.T) {
	vec := make([]float32, 384)
	vec[0] = 1

	candidates := []Candidate{
		{ID: 3, Vector: vec, TextForBM25: "decorator pattern", TitleOrPath: "Decorator"},
		{ID: 1, Vector: vec, TextForBM25: "decorator pattern", TitleOrPath: "Decorator"},
		{ID: 2, Vector: nil, TextForBM25: "unrelated text", TitleOrPath: "Unrelated"},
	}
	results := Score(vec, "decorator pattern", []string{"decorator"}, candidates, CatalogSearchWeights)
	require.Len(t, results, 3)

	require.Equal(t, uint32(1), results[0].ID)
	require.Equal(t, uint32(3), results[1].ID)
	require.Equal(t, uint32(2), results[2].ID)
	require.Equal(t, results[0].Score, results[1].Score)
}

func TestScoreReturnsNilForEmptyCandidates(t *testing.T) {
	require.Nil(t, Score(nil, "q", nil, nil, CatalogSearchWeights))
}

func TestScoreTitleWeightIsZeroForChunkSearch(t *testing.T) {
	vec := make([]float32, 384)
	candidates := []Candidate{
		{ID: 1, Vector: vec, TextForBM25: "some chunk text", TitleOrPath: "Completely Unrelated Title"},
	}
	results := Score(vec, "some chunk text", nil, candidates, BroadChunkSearchWeights)
	require.Len(t, results, 1)
	// Title signal is still computed for debug breakdowns, but the fused
	// score must not depend on it when the weight is zero.
	require.Zero(t, BroadChunkSearchWeights.Title)
	_ = results[0].Title
}

func TestWeightVectorsSumToOne(t *testing.T) {
	const epsilon = 1e-9
	vectors := map[string]Weights{
		"catalog":      CatalogSearchWeights,
		"broad_chunk":  BroadChunkSearchWeights,
		"scoped_chunk": ScopedChunkSearchWeights,
		"concept":      ConceptSearchWeights,
	}
	for name, w := range vectors {
		sum := w.Vector + w.BM25 + w.Title + w.Expansion
		require.InDelta(t, 1.0, sum, epsilon, "weight vector %q must sum to 1.0", name)
	}
}

func TestNameMatchScoreExactMatchIsOne(t *testing.T) {
	require.Equal(t, 1.0, NameMatchScore("decorator pattern", "decorator pattern"))
}

func TestNameMatchScoreDecaysWithEditDistance(t *testing.T) {
	exact := NameMatchScore("decorator pattern", "decorator pattern")
	close := NameMatchScore("decorator patern", "decorator pattern")
	far := NameMatchScore("completely different", "decorator pattern")
	require.Greater(t, exact, close)
	require.Greater(t, close, far)
}

func TestEditDistanceBasicCases(t *testing.T) {
	require.Equal(t, 0, EditDistance("abc", "abc"))
	require.Equal(t, 1, EditDistance("abc", "abd"))
	require.Equal(t, 3, EditDistance("", "abc"))
}

func TestSynonymOverlapScoreFraction(t *testing.T) {
	synonyms := []string{"wrapper", "decorator", "adapter"}
	score := SynonymOverlapScore([]string{"decorator", "pattern"}, synonyms)
	require.InDelta(t, 1.0/3.0, score, 1e-9)
}

func TestSynonymOverlapScoreHandlesNoSynonyms(t *testing.T) {
	require.Zero(t, SynonymOverlapScore([]string{"anything"}, nil))
}

func TestCosineSimilarityViaScoreHandlesMismatchedLengths(t *testing.T) {
	candidates := []Candidate{
		{ID: 1, Vector: []float32{1, 0}, TextForBM25: "x"},
	}
	results := Score([]float32{1, 0, 0}, "x", nil, candidates, CatalogSearchWeights)
	require.Len(t, results, 1)
	require.Zero(t, results[0].Vector)
}

func TestClampUnitStaysWithinRange(t *testing.T) {
	require.Equal(t, 1.0, clampUnit(1))
	require.Equal(t, 0.0, clampUnit(-1))
	require.InDelta(t, 0.5, clampUnit(0), 1e-9)
}

func TestNormalizeToUnitHandlesAllZero(t *testing.T) {
	out := normalizeToUnit([]float64{0, 0, 0})
	for _, v := range out {
		require.Zero(t, v)
	}
}

func TestNormalizeToUnitDividesByMax(t *testing.T) {
	out := normalizeToUnit([]float64{1, 2, 4})
	require.InDelta(t, 0.25, out[0], 1e-9)
	require.InDelta(t, 0.5, out[1], 1e-9)
	require.InDelta(t, 1.0, out[2], 1e-9)
}

func TestLevenshteinIsSymmetric(t *testing.T) {
	require.Equal(t, EditDistance("kitten", "sitting"), EditDistance("sitting", "kitten"))
}

func TestNameMatchScoreEmptyStringsMatch(t *testing.T) {
	require.Equal(t, 1.0, NameMatchScore("", ""))
}
