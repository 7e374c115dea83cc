package seeder

import (
	"context"
	"fmt"

	chromem "github.com/philippgille/chromem-go"
)

// SideIndex is an optional in-memory mirror of the stage cache's document
// overviews, keyed by content hash, that a caller can query for documents
// similar to one just extracted — useful for spotting near-duplicate books
// mid-seeding run without touching the main catalog store. It is a pure
// debugging aid: nothing in the pipeline depends on it being populated.
type SideIndex struct {
	collection *chromem.Collection
}

// NewSideIndex builds an empty, in-process SideIndex for one seeding run.
// Embeddings are supplied by the caller (Add takes a precomputed vector), so
// the embedding function chromem-go normally calls is never invoked.
func NewSideIndex() (*SideIndex, error) {
	db := chromem.NewDB()
	collection, err := db.GetOrCreateCollection("stage-cache", nil, noopChromemEmbedder)
	if err != nil {
		return nil, fmt.Errorf("seeder: creating side index collection: %w", err)
	}
	return &SideIndex{collection: collection}, nil
}

// Add records one document's overview embedding under its content hash.
func (s *SideIndex) Add(ctx context.Context, contentHash, source, overview string, vector []float32) error {
	doc := chromem.Document{
		ID:        contentHash,
		Content:   overview,
		Metadata:  map[string]string{"source": source},
		Embedding: vector,
	}
	if err := s.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("seeder: adding %s to side index: %w", source, err)
	}
	return nil
}

// SimilarDocuments returns the n closest indexed documents to vector (5
// when n <= 0). No entry is excluded, so a document already indexed under
// its own content hash can match itself.
func (s *SideIndex) SimilarDocuments(ctx context.Context, vector []float32, n int) ([]SideIndexMatch, error) {
	if n <= 0 {
		n = 5
	}
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if n > count {
		n = count
	}

	results, err := s.collection.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("seeder: querying side index: %w", err)
	}

	matches := make([]SideIndexMatch, len(results))
	for i, r := range results {
		matches[i] = SideIndexMatch{
			ContentHash: r.ID,
			Source:      r.Metadata["source"],
			Similarity:  r.Similarity,
		}
	}
	return matches, nil
}

// SideIndexMatch is one result of SideIndex.SimilarDocuments.
type SideIndexMatch struct {
	ContentHash string
	Source      string
	Similarity  float32
}

// noopChromemEmbedder satisfies chromem.EmbeddingFunc's signature for a
// collection that only ever receives precomputed embeddings via
// AddDocument/QueryEmbedding; it is never actually invoked.
func noopChromemEmbedder(context.Context, string) ([]float32, error) {
	return nil, fmt.Errorf("seeder: side index embedding func should never be called, embeddings are precomputed")
}
