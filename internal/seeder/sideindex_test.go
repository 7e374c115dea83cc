package seeder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSideIndexFindsNearestBySimilarity(t *testing.T) {
	idx, err := NewSideIndex()
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, "hash-a", "book-a.txt", "overview a", []float32{1, 0, 0}))
	require.NoError(t, idx.Add(ctx, "hash-b", "book-b.txt", "overview b", []float32{0, 1, 0}))

	matches, err := idx.SimilarDocuments(ctx, []float32{1, 0, 0.01}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "book-a.txt", matches[0].Source)
}

func TestSideIndexSimilarDocumentsOnEmptyIndexReturnsNil(t *testing.T) {
	idx, err := NewSideIndex()
	require.NoError(t, err)

	matches, err := idx.SimilarDocuments(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	require.Empty(t, matches)
}

