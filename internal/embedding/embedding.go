// Package embedding implements the embedding service of spec.md §4.5: a
// deterministic text-to-vector mapping producing 384-dimensional
// unit-normalized vectors, cached by (model id, content hash).
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sync"

	fastembed "github.com/anush008/fastembed-go"

	"github.com/conceptrag/conceptrag/internal/cache"
	"github.com/conceptrag/conceptrag/internal/ids"
)

// VectorDimension is fixed by spec.md §3.2 invariant 7: every embedding in
// the store is 384 floats.
const VectorDimension = 384

var (
	ErrEmptyInput        = errors.New("embedding: empty input text")
	ErrDimensionMismatch = errors.New("embedding: model did not produce a 384-dimensional vector")
	ErrUnsupportedModel  = errors.New("embedding: unsupported model id")
)

// supportedModels maps the model ids conceptrag accepts in configuration to
// the fastembed-go constants that select the matching ONNX weights. Only
// 384-dim models are listed: the store's vector arena is hardcoded to
// VectorDimension.
var supportedModels = map[string]fastembed.EmbeddingModel{
	"BAAI/bge-small-en-v1.5":                 fastembed.BGESmallENV15,
	"BAAI/bge-small-en":                      fastembed.BGESmallEN,
	"sentence-transformers/all-MiniLM-L6-v2": fastembed.AllMiniLML6V2,
}

// Config configures the local embedding model. The core does not specify
// which model to use (spec.md §4.5); conceptrag pins BAAI/bge-small-en-v1.5,
// a 384-dim model, and records the id in Config.ModelID so it travels with
// every cache key and catalog row.
type Config struct {
	ModelID   string
	CacheDir  string
	MaxLength int
}

// DefaultConfig returns the pinned default model configuration.
func DefaultConfig() Config {
	return Config{
		ModelID:   "BAAI/bge-small-en-v1.5",
		CacheDir:  filepath.Join(".", "conceptrag-cache", "models"),
		MaxLength: 512,
	}
}

// Service generates unit-normalized 384-dim embeddings, transparently
// caching results by (model id, content hash) so repeat text (a re-seeded
// document, a repeated query) skips the model entirely.
type Service struct {
	cfg   Config
	model *fastembed.FlagEmbedding
	cache *cache.EmbeddingCache
	mu    sync.RWMutex
}

// New creates a Service. cacheCapacity bounds the embedding cache's entry
// count; the cache itself has no TTL per spec.md §4.4.
func New(cfg Config, cacheCapacity int) (*Service, error) {
	if cfg.ModelID == "" {
		cfg = DefaultConfig()
	}
	fastembedModel, ok := supportedModels[cfg.ModelID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedModel, cfg.ModelID)
	}
	showProgress := false
	model, err := fastembed.NewFlagEmbedding(&fastembed.InitOptions{
		Model:                fastembedModel,
		CacheDir:             cfg.CacheDir,
		MaxLength:            cfg.MaxLength,
		ShowDownloadProgress: &showProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: initializing model %q: %w", cfg.ModelID, err)
	}
	return &Service{
		cfg:   cfg,
		model: model,
		cache: cache.NewEmbeddingCache(cacheCapacity),
	}, nil
}

// ModelID returns the configured, fixed model identifier.
func (s *Service) ModelID() string {
	return s.cfg.ModelID
}

// Embed returns a unit-normalized 384-dim embedding for text, deterministic
// for this service's model id. Embedding-cache hits return a vector the
// caller can freely mutate without corrupting the cached copy.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	key := cache.EmbeddingKey{ModelID: s.cfg.ModelID, ContentHash: ids.Of(text)}
	if v, ok := s.cache.Get(key); ok {
		return v, nil
	}

	s.mu.RLock()
	raw, err := s.model.QueryEmbed(text)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("embedding: generating embedding: %w", err)
	}

	vec, err := normalize(raw)
	if err != nil {
		return nil, err
	}
	s.cache.Put(key, vec)
	return vec, nil
}

// EmbedBatch embeds texts in one model call, sharing tokenization work per
// spec.md §4.5's recommendation for the batched variant. Individual entries
// still benefit from the embedding cache.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	results := make([][]float32, len(texts))
	var toEmbed []string
	var toEmbedIdx []int
	keys := make([]cache.EmbeddingKey, len(texts))

	for i, t := range texts {
		key := cache.EmbeddingKey{ModelID: s.cfg.ModelID, ContentHash: ids.Of(t)}
		keys[i] = key
		if v, ok := s.cache.Get(key); ok {
			results[i] = v
			continue
		}
		toEmbed = append(toEmbed, t)
		toEmbedIdx = append(toEmbedIdx, i)
	}

	if len(toEmbed) > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		s.mu.RLock()
		raw, err := s.model.PassageEmbed(toEmbed, 256)
		s.mu.RUnlock()
		if err != nil {
			return nil, fmt.Errorf("embedding: generating batch embeddings: %w", err)
		}
		if len(raw) != len(toEmbed) {
			return nil, fmt.Errorf("embedding: model returned %d vectors for %d inputs", len(raw), len(toEmbed))
		}
		for j, idx := range toEmbedIdx {
			vec, err := normalize(raw[j])
			if err != nil {
				return nil, err
			}
			results[idx] = vec
			s.cache.Put(keys[idx], vec)
		}
	}

	return results, nil
}

// Close releases the underlying model's resources.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model != nil {
		return s.model.Destroy()
	}
	return nil
}

// normalize validates dimensionality and returns a unit-L2-norm copy of raw,
// enforcing spec.md §3.2 invariant 7.
func normalize(raw []float32) ([]float32, error) {
	if len(raw) != VectorDimension {
		return nil, fmt.Errorf("%w: got %d dimensions", ErrDimensionMismatch, len(raw))
	}
	var sumSq float64
	for _, v := range raw {
		sumSq += float64(v) * float64(v)
	}
	norm := math.Sqrt(sumSq)
	out := make([]float32, len(raw))
	if norm == 0 {
		copy(out, raw)
		return out, nil
	}
	for i, v := range raw {
		out[i] = float32(float64(v) / norm)
	}
	return out, nil
}

// IsUnitNorm reports whether v is unit-L2-norm within spec.md's 1e-6
// tolerance. Exported for store-layer invariant checks and tests.
func IsUnitNorm(v []float32) bool {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	return math.Abs(math.Sqrt(sumSq)-1) <= 1e-6
}
