package cache

import "testing"

func TestEmbeddingCacheHitDoesNotMutateStoredVector(t *testing.T) {
	c := NewEmbeddingCache(10)
	key := EmbeddingKey{ModelID: "m", ContentHash: 42}
	c.Put(key, []float32{1, 2, 3})

	v, ok := c.Get(key)
	if !ok {
		t.Fatal("expected hit")
	}
	v[0] = 999 // mutate the caller's copy

	v2, ok := c.Get(key)
	if !ok {
		t.Fatal("expected hit")
	}
	if v2[0] != 1 {
		t.Fatalf("cache hit mutation leaked into stored vector: got %v", v2[0])
	}
}

func TestCanonicalKeyIgnoresOptionOrder(t *testing.T) {
	a := CanonicalKey("catalog_search", "war", map[string]any{"limit": 10, "debug": true})
	b := CanonicalKey("catalog_search", "war", map[string]any{"debug": true, "limit": 10})
	if a != b {
		t.Fatalf("canonical keys differ by option order: %q != %q", a, b)
	}
}
