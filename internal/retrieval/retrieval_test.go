package retrieval

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/conceptrag/conceptrag/internal/expander"
	"github.com/conceptrag/conceptrag/internal/ids"
	"github.com/conceptrag/conceptrag/internal/logging"
	"github.com/conceptrag/conceptrag/internal/store"
	"github.com/conceptrag/conceptrag/internal/telemetry"
)

// fakeEmbedder deterministically maps the first byte of its input into a
// one-hot unit vector, so cosine similarity distinguishes "war"-flavored
// text from "peace"-flavored text without needing a real model.
type fakeEmbedder struct{ dim int }

func (f fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, f.dim)
	if len(text) == 0 {
		return v, nil
	}
	v[int(text[0])%f.dim] = 1
	return normalize(v), nil
}

func normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	scale := 1 / math.Sqrt(sumSq)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) * scale)
	}
	return out
}

func seededStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	emb := fakeEmbedder{dim: 384}
	ctx := context.Background()

	warVec, _ := emb.Embed(ctx, "War and strategy.")
	peaceVec, _ := emb.Embed(ctx, "Peaceful farming life.")

	warDoc := store.Document{
		ID:         ids.DocumentID("/books/war.pdf"),
		Source:     "/books/war.pdf",
		Title:      "The Art Of War",
		Summary:    "A treatise on military strategy.",
		Vector:     warVec,
		ConceptIDs: []uint32{ids.ConceptID("strategy")},
	}
	peaceDoc := store.Document{
		ID:         ids.DocumentID("/books/peace.pdf"),
		Source:     "/books/peace.pdf",
		Title:      "A Quiet Pastoral Life",
		Summary:    "A book about farming and peace.",
		Vector:     peaceVec,
		ConceptIDs: []uint32{ids.ConceptID("farming")},
	}
	require.NoError(t, st.UpsertDocuments(ctx, []store.Document{warDoc, peaceDoc}))

	chunk1 := store.Chunk{
		ID:             ids.ChunkID("warhash", 0),
		CatalogID:      warDoc.ID,
		Text:           "All warfare is based on deception and strategy.",
		Vector:         warVec,
		ConceptIDs:     []uint32{ids.ConceptID("strategy")},
		ConceptDensity: 1.0,
		CatalogTitle:   warDoc.Title,
	}
	chunk2 := store.Chunk{
		ID:             ids.ChunkID("warhash", 1),
		CatalogID:      warDoc.ID,
		Text:           "Know your enemy and know yourself.",
		Vector:         warVec,
		ConceptDensity: 0.2,
		CatalogTitle:   warDoc.Title,
	}
	chunk3 := store.Chunk{
		ID:             ids.ChunkID("peacehash", 0),
		CatalogID:      peaceDoc.ID,
		Text:           "The farm was calm in the early morning.",
		Vector:         peaceVec,
		ConceptIDs:     []uint32{ids.ConceptID("farming")},
		ConceptDensity: 1.0,
		CatalogTitle:   peaceDoc.Title,
	}
	require.NoError(t, st.UpsertChunks(ctx, []store.Chunk{chunk1, chunk2, chunk3}))

	strategy := store.Concept{
		ID:         ids.ConceptID("strategy"),
		Name:       "strategy",
		Summary:    "the art of planning military campaigns",
		CatalogIDs: []uint32{warDoc.ID},
		ChunkIDs:   []uint32{chunk1.ID, chunk2.ID},
		Synonyms:   []string{"plan", "tactic", "approach"},
		Vector:     warVec,
	}
	farming := store.Concept{
		ID:         ids.ConceptID("farming"),
		Name:       "farming",
		Summary:    "cultivating crops and land",
		CatalogIDs: []uint32{peaceDoc.ID},
		ChunkIDs:   []uint32{chunk3.ID},
		Vector:     peaceVec,
	}
	require.NoError(t, st.UpsertConcepts(ctx, []store.Concept{strategy, farming}))

	category := store.Category{
		ID:            ids.CategoryID("military history"),
		Name:          "Military History",
		DocumentCount: 1,
	}
	require.NoError(t, st.UpsertCategories(ctx, []store.Category{category}))

	return st
}

func testEngine(t *testing.T) *Engine {
	t.Helper()
	st := seededStore(t)
	return New(st, fakeEmbedder{dim: 384}, expander.New(nil, nil), nil)
}

func TestCatalogSearchRanksMatchingDocumentFirst(t *testing.T) {
	e := testEngine(t)
	out, err := e.CatalogSearch(context.Background(), CatalogSearchInput{Text: "War and strategy.", Debug: true})
	require.NoError(t, err)
	require.NotEmpty(t, out)
	require.Equal(t, "The Art Of War", out[0].Document.Title)
	require.NotNil(t, out[0].Breakdown)
}

func TestCatalogSearchCachesRepeatedQueries(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()
	first, err := e.CatalogSearch(ctx, CatalogSearchInput{Text: "War and strategy."})
	require.NoError(t, err)
	second, err := e.CatalogSearch(ctx, CatalogSearchInput{Text: "War and strategy."})
	require.NoError(t, err)
	require.Equal(t, first[0].Document.ID, second[0].Document.ID)
}

func TestBroadChunkSearchDefaultsLimitToTen(t *testing.T) {
	e := testEngine(t)
	out, err := e.BroadChunkSearch(context.Background(), BroadChunkSearchInput{Text: "warfare and deception"})
	require.NoError(t, err)
	require.NotEmpty(t, out)
	require.LessOrEqual(t, len(out), DefaultBroadChunkLimit)
}

func TestScopedChunkSearchMatchesBySource(t *testing.T) {
	e := testEngine(t)
	out, err := e.ScopedChunkSearch(context.Background(), ScopedChunkSearchInput{
		Text: "warfare and deception", Source: "/books/war.pdf", Debug: true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, out)
	require.LessOrEqual(t, len(out), DefaultScopedChunkLimit)
	for _, c := range out {
		require.Equal(t, "The Art Of War", c.Chunk.CatalogTitle)
	}
}

func TestScopedChunkSearchFallsBackToTitleSubstring(t *testing.T) {
	e := testEngine(t)
	out, err := e.ScopedChunkSearch(context.Background(), ScopedChunkSearchInput{
		Text: "warfare", Source: "Art Of War",
	})
	require.NoError(t, err)
	require.NotEmpty(t, out)
}

func TestScopedChunkSearchUnknownSourceErrors(t *testing.T) {
	e := testEngine(t)
	_, err := e.ScopedChunkSearch(context.Background(), ScopedChunkSearchInput{Text: "x", Source: "/nope.pdf"})
	require.Error(t, err)
}

func TestConceptSearchExactMatchRanksByDensityThenScore(t *testing.T) {
	e := testEngine(t)
	out, err := e.ConceptSearch(context.Background(), ConceptSearchInput{Concept: "strategy"})
	require.NoError(t, err)
	require.True(t, out.ExactMatch)
	require.NotEmpty(t, out.Chunks)
	require.Equal(t, "All warfare is based on deception and strategy.", out.Chunks[0].Chunk.Text)
	require.Len(t, out.SourceDocs, 1)
}

func TestConceptSearchFuzzyMatchOnTypo(t *testing.T) {
	e := testEngine(t)
	out, err := e.ConceptSearch(context.Background(), ConceptSearchInput{Concept: "strategie"})
	require.NoError(t, err)
	require.False(t, out.ExactMatch)
	require.Equal(t, ids.ConceptID("strategy"), out.ConceptID)
}

func TestExtractConceptsReturnsTopDocumentConcepts(t *testing.T) {
	e := testEngine(t)
	out, err := e.ExtractConcepts(context.Background(), ExtractConceptsInput{DocumentQuery: "War and strategy."})
	require.NoError(t, err)
	require.Equal(t, "The Art Of War", out.Document.Title)
	require.Len(t, out.Concepts, 1)
	require.Equal(t, "strategy", out.Concepts[0].Name)
	require.Empty(t, out.Concepts[0].Summary)
}

func TestExtractConceptsIncludesSummaryWhenRequested(t *testing.T) {
	e := testEngine(t)
	out, err := e.ExtractConcepts(context.Background(), ExtractConceptsInput{
		DocumentQuery: "War and strategy.", Format: "full", IncludeSummary: true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, out.Concepts[0].Summary)
}

func TestListCategoriesFiltersBySubstring(t *testing.T) {
	e := testEngine(t)
	out, err := e.ListCategories(ListCategoriesInput{Substring: "military"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "Military History", out[0].Name)
}

func TestConceptToSourcesUnionRanksByMatchCount(t *testing.T) {
	e := testEngine(t)
	out, err := e.ConceptToSourcesUnion([]string{"strategy", "farming"})
	require.NoError(t, err)
	require.Len(t, out, 2)
}

func TestConceptToSourcesPerConceptPreservesOrderAndEmptyMisses(t *testing.T) {
	e := testEngine(t)
	out, err := e.ConceptToSourcesPerConcept([]string{"strategy", "nonexistent-concept"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Len(t, out[0], 1)
	require.Empty(t, out[1])
}

func TestConceptsInCategoryAggregatesAcrossDocuments(t *testing.T) {
	e := testEngine(t)
	_, err := e.ConceptsInCategory("Military History")
	require.NoError(t, err)
}

func TestCatalogSearchRunsThroughInstrumentor(t *testing.T) {
	st := seededStore(t)
	in := telemetry.New(logging.NewNop(), time.Hour, nil)
	e := New(st, fakeEmbedder{dim: 384}, expander.New(nil, nil), nil, WithInstrumentor(in))

	_, err := e.CatalogSearch(context.Background(), CatalogSearchInput{Text: "War and strategy."})
	require.NoError(t, err)
}
