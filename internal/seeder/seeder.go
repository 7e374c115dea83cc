package seeder

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/conceptrag/conceptrag/internal/concepts"
	"github.com/conceptrag/conceptrag/internal/logging"
	"github.com/conceptrag/conceptrag/internal/resilience"
	"github.com/conceptrag/conceptrag/internal/store"
	"github.com/conceptrag/conceptrag/internal/telemetry"
)

// DefaultParallel and MaxParallel are spec.md §4.10 step 4's worker-pool
// bounds: "--parallel N, default 10, cap 25".
const (
	DefaultParallel = 10
	MaxParallel     = 25
)

// DefaultLLMRateLimit and DefaultLLMRateBurst throttle outbound LLM calls
// independently of the resilience envelope's failure-handling stages, so a
// wide worker pool cannot hammer a rate-limited endpoint just because every
// worker's circuit is closed.
const (
	DefaultLLMRateLimit = 50.0 / 60.0 // requests per second
	DefaultLLMRateBurst = 5
)

// SideIndexDuplicateThreshold is the cosine similarity above which two
// documents' overview embeddings are reported as likely near-duplicates.
const SideIndexDuplicateThreshold = 0.97

// Config controls one seeding run, mirroring the flags of spec.md §4.10's
// final paragraph.
type Config struct {
	SourceDir          string
	DBDir              string // directory holding the sqlite file and the checkpoint
	StageCacheBaseDir  string // parent directory for <collection-key> stage-cache subdirs

	Overwrite       bool
	Resume          bool
	CleanCheckpoint bool
	MaxDocs         int
	NoCache         bool
	ClearCache      bool
	CacheOnly       bool
	Parallel        int

	// LLMRateLimit and LLMRateBurst configure the token-bucket throttle
	// placed in front of every LLMExtractor.Extract call. Zero values fall
	// back to DefaultLLMRateLimit/DefaultLLMRateBurst.
	LLMRateLimit float64
	LLMRateBurst int

	// SideIndexEnabled builds an in-memory near-duplicate index over every
	// document's overview embedding as it is processed (see SideIndex).
	SideIndexEnabled bool
}

// normalizeParallel clamps Parallel into [1, MaxParallel], defaulting to
// DefaultParallel when unset.
func (c Config) normalizeParallel() int {
	n := c.Parallel
	if n <= 0 {
		n = DefaultParallel
	}
	if n > MaxParallel {
		n = MaxParallel
	}
	return n
}

// Seeder orchestrates a single seeding run against one store.
type Seeder struct {
	cfg Config

	store       *store.Store
	embedder    Embedder
	extractor   TextExtractor
	chunker     Chunker
	llm         LLMExtractor
	llmEnvelope *resilience.Envelope
	llmLimiter  *rate.Limiter
	logger      *logging.Logger

	instrumentor *telemetry.Instrumentor

	stageCache *StageCache
	checkpoint *CheckpointStore
	sideIndex  *SideIndex

	conceptMu sync.Mutex
	builder   *concepts.Builder
}

// Option configures optional Seeder collaborators.
type Option func(*Seeder)

// WithInstrumentor measures the per-document pipeline and every LLM
// extraction call through in (spec.md §4.2). Without this option, the
// pipeline runs unmeasured.
func WithInstrumentor(in *telemetry.Instrumentor) Option {
	return func(s *Seeder) { s.instrumentor = in }
}

// New builds a Seeder. llmEnvelope wraps every LLMExtractor.Extract call
// with the resilient envelope of spec.md §4.3; pass a zero-value envelope
// (no breaker/bulkhead/retry/timeout configured) to run calls unguarded.
func New(cfg Config, st *store.Store, embedder Embedder, extractor TextExtractor, chunker Chunker, llm LLMExtractor, llmEnvelope *resilience.Envelope, logger *logging.Logger, opts ...Option) *Seeder {
	if logger == nil {
		logger = logging.NewNop()
	}
	cfg.Parallel = cfg.normalizeParallel()
	rateLimit := cfg.LLMRateLimit
	if rateLimit <= 0 {
		rateLimit = DefaultLLMRateLimit
	}
	rateBurst := cfg.LLMRateBurst
	if rateBurst <= 0 {
		rateBurst = DefaultLLMRateBurst
	}
	s := &Seeder{
		cfg:         cfg,
		store:       st,
		embedder:    embedder,
		extractor:   extractor,
		chunker:     chunker,
		llm:         llm,
		llmEnvelope: llmEnvelope,
		llmLimiter:  rate.NewLimiter(rate.Limit(rateLimit), rateBurst),
		logger:      logger,
		builder:     concepts.NewBuilder(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SideIndex returns the run's near-duplicate index, or nil if
// Config.SideIndexEnabled was false.
func (s *Seeder) SideIndex() *SideIndex {
	return s.sideIndex
}

// Result summarizes one seeding run's outcome.
type Result struct {
	FilesDiscovered int
	Processed       int
	Skipped         int
	Failed          int
	CollectionKey   string
}

// Run executes the full protocol of spec.md §4.10: discovery, checkpoint
// load, bounded-parallel per-document processing, the post-pass, and
// stage-cache cleanup. ctx cancellation is honored cooperatively: in-flight
// pipelines are allowed to finish their current per-document iteration,
// then Run returns ctx.Err().
func (s *Seeder) Run(ctx context.Context) (Result, error) {
	files, err := DiscoverFiles(s.cfg.SourceDir)
	if err != nil {
		return Result{}, fmt.Errorf("seeder: discovering files: %w", err)
	}
	collectionKey := CollectionKey(files)
	s.stageCache = NewStageCache(s.cfg.StageCacheBaseDir, collectionKey)

	if s.cfg.SideIndexEnabled {
		idx, err := NewSideIndex()
		if err != nil {
			return Result{}, fmt.Errorf("seeder: building side index: %w", err)
		}
		s.sideIndex = idx
	}

	if s.cfg.ClearCache {
		if err := s.stageCache.Clear(); err != nil {
			return Result{}, err
		}
	}

	if s.cfg.Overwrite {
		for _, table := range []string{"catalog", "chunks", "concepts", "categories"} {
			if err := s.store.DropAndRecreate(table); err != nil {
				return Result{}, fmt.Errorf("seeder: overwriting table %q: %w", table, err)
			}
		}
	}

	if s.cfg.CleanCheckpoint {
		cp, err := LoadCheckpoint(s.cfg.DBDir, collectionKey)
		if err != nil {
			return Result{}, err
		}
		if err := cp.Remove(); err != nil {
			return Result{}, err
		}
	}

	checkpoint, err := LoadCheckpoint(s.cfg.DBDir, collectionKey)
	if err != nil {
		return Result{}, fmt.Errorf("seeder: loading checkpoint: %w", err)
	}
	s.checkpoint = checkpoint

	pending := make([]DiscoveredFile, 0, len(files))
	for _, f := range files {
		if s.cfg.Resume && checkpoint.IsCompleted(f.Path) {
			continue
		}
		pending = append(pending, f)
	}
	if s.cfg.MaxDocs > 0 && len(pending) > s.cfg.MaxDocs {
		pending = pending[:s.cfg.MaxDocs]
	}

	result := Result{FilesDiscovered: len(files), CollectionKey: collectionKey, Skipped: len(files) - len(pending)}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Parallel)

	var mu sync.Mutex
	for _, file := range pending {
		file := file
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			docResult, err := s.processDocument(gctx, file)
			if err != nil {
				s.logger.Warn(gctx, "seeder: document pipeline failed, skipping",
					zap.String("source", file.Path), zap.Error(err))
				mu.Lock()
				result.Failed++
				mu.Unlock()
				return nil
			}

			if err := s.mergeDocument(gctx, docResult, file.Path); err != nil {
				return fmt.Errorf("seeder: merging %s: %w", file.Path, err)
			}

			mu.Lock()
			result.Processed++
			mu.Unlock()
			return nil
		})
	}

	runErr := g.Wait()

	if err := s.runPostPass(ctx); err != nil {
		if runErr == nil {
			runErr = err
		}
	}

	if runErr == nil {
		if err := s.maybeCleanupStageCache(collectionKey); err != nil {
			s.logger.Warn(ctx, "seeder: stage cache cleanup failed", zap.Error(err))
		}
	}

	return result, runErr
}

// mergeDocument performs the single-writer steps of spec.md §4.10 step
// 5c-5d: database upsert, concept-builder merge, checkpoint append. Store
// upserts are internally serialized (single sqlite connection); the
// concept builder is guarded here because it is not itself concurrency-safe.
func (s *Seeder) mergeDocument(ctx context.Context, r documentResult, source string) error {
	if len(r.Categories) > 0 {
		if err := s.store.UpsertCategories(ctx, r.Categories); err != nil {
			return fmt.Errorf("upserting categories: %w", err)
		}
	}
	if err := s.store.UpsertDocuments(ctx, []store.Document{r.Document}); err != nil {
		return fmt.Errorf("upserting document: %w", err)
	}
	if len(r.Chunks) > 0 {
		if err := s.store.UpsertChunks(ctx, r.Chunks); err != nil {
			return fmt.Errorf("upserting chunks: %w", err)
		}
	}

	s.conceptMu.Lock()
	s.builder.AddDocument(r.Contribution)
	s.conceptMu.Unlock()

	if s.sideIndex != nil {
		if matches, err := s.sideIndex.SimilarDocuments(ctx, r.Document.Vector, 1); err != nil {
			s.logger.Warn(ctx, "seeder: side index query failed, continuing without it",
				zap.String("source", source), zap.Error(err))
		} else if len(matches) > 0 && matches[0].Similarity >= SideIndexDuplicateThreshold {
			s.logger.Warn(ctx, "seeder: near-duplicate document detected",
				zap.String("source", source),
				zap.String("similar_to", matches[0].Source),
				zap.Float32("similarity", matches[0].Similarity))
		}
		if err := s.sideIndex.Add(ctx, r.Document.ContentHash, r.Document.Source, r.Document.Summary, r.Document.Vector); err != nil {
			s.logger.Warn(ctx, "seeder: side index add failed, continuing without it",
				zap.String("source", source), zap.Error(err))
		}
	}

	if err := s.checkpoint.Append(source); err != nil {
		return fmt.Errorf("appending checkpoint: %w", err)
	}
	return nil
}

// runPostPass implements spec.md §4.10 step 6: recompute adjacency and
// relatedness links, recompute weights, upsert the final concept set, and
// regenerate every derived denormalized column.
func (s *Seeder) runPostPass(ctx context.Context) error {
	s.conceptMu.Lock()
	s.builder.TrimAdjacency()
	s.builder.LinkLexicalRelations()
	s.builder.RecomputeWeights()
	finalConcepts := s.builder.Concepts()
	s.conceptMu.Unlock()

	if len(finalConcepts) > 0 {
		if err := s.store.UpsertConcepts(ctx, finalConcepts); err != nil {
			return fmt.Errorf("seeder: upserting final concept set: %w", err)
		}
	}

	if err := s.store.RegenerateDerivedColumns(ctx); err != nil {
		return fmt.Errorf("seeder: regenerating derived columns: %w", err)
	}
	return nil
}

// maybeCleanupStageCache implements spec.md §4.10 step 7: if the
// checkpoint's completed list is as long as the re-discovered file list,
// the collection's stage cache is cleared. Only the counts are compared,
// not the catalog's contents.
func (s *Seeder) maybeCleanupStageCache(collectionKey string) error {
	completed := s.checkpoint.Completed()
	discovered, err := DiscoverFiles(s.cfg.SourceDir)
	if err != nil {
		return err
	}
	if len(completed) != len(discovered) {
		return nil
	}
	return s.stageCache.Clear()
}
