package cache

// EmbeddingKey identifies a cached embedding by model id and the content
// hash of the text it was computed from, per spec.md §4.4.
type EmbeddingKey struct {
	ModelID     string
	ContentHash uint32
}

// EmbeddingCache caches embeddings with no TTL; invalidation is only by
// explicit Clear (a model swap, for instance).
type EmbeddingCache struct {
	*Cache[EmbeddingKey, []float32]
}

// NewEmbeddingCache creates an embedding cache bounded to capacity entries.
func NewEmbeddingCache(capacity int) *EmbeddingCache {
	return &EmbeddingCache{Cache: New[EmbeddingKey, []float32](capacity, NewMetrics("embedding"))}
}

// Get returns a defensive copy of the cached vector so a hit can never let a
// caller mutate the cache's backing array.
func (c *EmbeddingCache) Get(key EmbeddingKey) ([]float32, bool) {
	v, ok := c.Cache.Get(key)
	if !ok {
		return nil, false
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out, true
}

// Put stores a defensive copy of vec, with no TTL.
func (c *EmbeddingCache) Put(key EmbeddingKey, vec []float32) {
	stored := make([]float32, len(vec))
	copy(stored, vec)
	c.Cache.Put(key, stored, 0)
}
