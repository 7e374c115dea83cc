package store

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/conceptrag/conceptrag/internal/ids"
)

func unitVector(seed float32) []float32 {
	v := make([]float32, 384)
	v[0] = seed
	v[1] = 1
	return normalizeForTest(v)
}

func normalizeForTest(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	out := make([]float32, len(v))
	scale := 1 / math.Sqrt(sumSq)
	for i, x := range v {
		out[i] = float32(float64(x) * scale)
	}
	return out
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUpsertAndGetDocumentRoundTrips(t *testing.T) {
	s := openTestStore(t)
	doc := Document{
		ID:     ids.DocumentID("/books/war.pdf"),
		Source: "/books/war.pdf",
		Title:  "The Art Of War",
		Vector: unitVector(1),
	}
	require.NoError(t, s.UpsertDocuments(context.Background(), []Document{doc}))

	got, err := s.GetDocument(doc.ID)
	require.NoError(t, err)
	require.Equal(t, doc.Title, got.Title)
	require.Equal(t, doc.Source, got.Source)
	require.Len(t, got.Vector, 384)
}

func TestGetDocumentMissingReturnsErrNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetDocument(12345)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDocumentsByTitleSubstringMatchesFragment(t *testing.T) {
	s := openTestStore(t)
	doc := Document{ID: ids.DocumentID("/a"), Source: "/a", Title: "The Art Of War", Vector: unitVector(1)}
	require.NoError(t, s.UpsertDocuments(context.Background(), []Document{doc}))

	found, err := s.DocumentsByTitleSubstring("Art Of War")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, doc.ID, found[0].ID)
}

func TestDocumentsByCategoryNameFindsArrayMembership(t *testing.T) {
	s := openTestStore(t)
	doc := Document{
		ID: ids.DocumentID("/a"), Source: "/a", Title: "A",
		CategoryNames: []string{"strategy", "history"},
		Vector:        unitVector(1),
	}
	require.NoError(t, s.UpsertDocuments(context.Background(), []Document{doc}))

	found, err := s.DocumentsByCategoryName("history")
	require.NoError(t, err)
	require.Len(t, found, 1)

	none, err := s.DocumentsByCategoryName("cooking")
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestVectorTopKOrdersByCosineSimilarityDescending(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	docs := []Document{
		{ID: 1, Source: "a", Title: "A", Vector: unitVector(0)},
		{ID: 2, Source: "b", Title: "B", Vector: unitVector(5)},
		{ID: 3, Source: "c", Title: "C", Vector: unitVector(10)},
	}
	require.NoError(t, s.UpsertDocuments(ctx, docs))

	results, err := s.VectorTopK("catalog", unitVector(0), 3, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, uint32(1), results[0].ID)
	for i := 1; i < len(results); i++ {
		require.LessOrEqual(t, results[i].Score, results[i-1].Score)
	}
}

func TestVectorTopKHonorsPredicate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	docs := []Document{
		{ID: 1, Source: "a", Title: "A", Vector: unitVector(0)},
		{ID: 2, Source: "b", Title: "B", Vector: unitVector(0)},
	}
	require.NoError(t, s.UpsertDocuments(ctx, docs))

	results, err := s.VectorTopK("catalog", unitVector(0), 5, func(id uint32) bool { return id == 2 })
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, uint32(2), results[0].ID)
}

func TestChunksByCatalogIDReturnsOnlyMatchingChunks(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertDocuments(ctx, []Document{{ID: 1, Source: "a", Title: "A", Vector: unitVector(0)}}))
	require.NoError(t, s.UpsertChunks(ctx, []Chunk{
		{ID: 10, CatalogID: 1, Text: "one", Vector: unitVector(1)},
		{ID: 11, CatalogID: 1, Text: "two", Vector: unitVector(2)},
		{ID: 12, CatalogID: 2, Text: "three", Vector: unitVector(3)},
	}))

	chunks, err := s.ChunksByCatalogID(1)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
}

func TestFindConceptByNameExactLookup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	concept := Concept{ID: ids.ConceptID("decorator pattern"), Name: "decorator pattern", Weight: 0.5, Vector: unitVector(1)}
	require.NoError(t, s.UpsertConcepts(ctx, []Concept{concept}))

	found, err := s.FindConceptByName("decorator pattern")
	require.NoError(t, err)
	require.Equal(t, concept.ID, found.ID)

	_, err = s.FindConceptByName("missing concept")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegenerateDerivedColumnsFillsConceptNames(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	concept := Concept{ID: ids.ConceptID("decorator pattern"), Name: "decorator pattern", Vector: unitVector(1)}
	require.NoError(t, s.UpsertConcepts(ctx, []Concept{concept}))

	doc := Document{ID: 1, Source: "a", Title: "A", ConceptIDs: []uint32{concept.ID}, Vector: unitVector(0)}
	require.NoError(t, s.UpsertDocuments(ctx, []Document{doc}))

	// Before regeneration, concept_names is untouched by the insert.
	before, err := s.GetDocument(1)
	require.NoError(t, err)
	require.Empty(t, before.ConceptNames)

	require.NoError(t, s.RegenerateDerivedColumns(ctx))

	after, err := s.GetDocument(1)
	require.NoError(t, err)
	require.Equal(t, []string{"decorator pattern"}, after.ConceptNames)
}

func TestDropAndRecreateEmptiesTable(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertDocuments(ctx, []Document{{ID: 1, Source: "a", Title: "A", Vector: unitVector(0)}}))

	require.NoError(t, s.DropAndRecreate("catalog"))

	_, err := s.GetDocument(1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestVectorTopKBuildsApproximateIndexAboveThreshold(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	chunks := make([]Chunk, 0, approxIndexThreshold+10)
	for i := 0; i < approxIndexThreshold+10; i++ {
		chunks = append(chunks, Chunk{ID: uint32(i + 1), CatalogID: 1, Text: "x", Vector: unitVector(float32(i))})
	}
	require.NoError(t, s.UpsertChunks(ctx, chunks))

	s.mu.RLock()
	cache := s.vecCaches["chunks"]
	s.mu.RUnlock()
	require.NotNil(t, cache.index, "expected approximate partition index above threshold")

	results, err := s.VectorTopK("chunks", unitVector(0), 5, nil)
	require.NoError(t, err)
	require.NotEmpty(t, results)
}
