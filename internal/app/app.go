// Package app assembles conceptrag's process-wide singletons — the store,
// the embedding service, the query expander, the resilience envelopes, and
// the retrieval engine built on top of them — into one root container,
// per spec.md §9's "Global caches" design note: these are created once at
// startup and torn down on shutdown, never referenced as module-level
// mutable state from pure functions.
package app

import (
	"fmt"

	"github.com/conceptrag/conceptrag/internal/config"
	"github.com/conceptrag/conceptrag/internal/embedding"
	"github.com/conceptrag/conceptrag/internal/expander"
	"github.com/conceptrag/conceptrag/internal/logging"
	"github.com/conceptrag/conceptrag/internal/resilience"
	"github.com/conceptrag/conceptrag/internal/retrieval"
	"github.com/conceptrag/conceptrag/internal/store"
	"github.com/conceptrag/conceptrag/internal/telemetry"
)

// Container owns every long-lived collaborator conceptrag needs, wired
// from a single Config.
type Container struct {
	Config *config.Config

	Logger *logging.Logger
	Store  *store.Store

	Embedder *embedding.Service
	Expander *expander.Expander

	LLMEnvelope     *resilience.Envelope
	LexicalEnvelope *resilience.Envelope

	Instrumentor *telemetry.Instrumentor
	Retrieval    *retrieval.Engine
}

// New builds and wires a Container from cfg. The caller owns the returned
// Container and must call Close when done.
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	loggingCfg, err := cfg.Logging.ToLoggingConfig()
	if err != nil {
		return nil, fmt.Errorf("app: building logging config: %w", err)
	}
	logger, err := logging.New(loggingCfg)
	if err != nil {
		return nil, fmt.Errorf("app: building logger: %w", err)
	}

	st, err := store.Open(cfg.Store.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("app: opening store: %w", err)
	}

	embedder, err := embedding.New(embedding.Config{
		ModelID:   cfg.Embedding.ModelID,
		CacheDir:  cfg.Embedding.CacheDir,
		MaxLength: cfg.Embedding.MaxLength,
	}, cfg.Embedding.CacheCapacity)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("app: building embedding service: %w", err)
	}

	llmEnvelope := buildEnvelope("llm-extractor", cfg.Resilience.LLM, logger)
	lexicalEnvelope := buildEnvelope("lexical-source", cfg.Resilience.Lexical, logger)

	exp := expander.New(nil, logger, expander.WithEnvelope(lexicalEnvelope))

	var metrics *telemetry.Metrics
	if cfg.Telemetry.MetricsEnabled {
		metrics = telemetry.NewMetrics()
	}
	instrumentor := telemetry.New(logger, 0, metrics)

	retrievalEngine := retrieval.New(st, embedder, exp, logger, retrieval.WithInstrumentor(instrumentor))

	return &Container{
		Config:          cfg,
		Logger:          logger,
		Store:           st,
		Embedder:        embedder,
		Expander:        exp,
		LLMEnvelope:     llmEnvelope,
		LexicalEnvelope: lexicalEnvelope,
		Instrumentor:    instrumentor,
		Retrieval:       retrievalEngine,
	}, nil
}

// Close releases every resource the container opened: the store's sqlite
// connection, the embedding model, and the buffered log sink.
func (c *Container) Close() error {
	var errs []error
	if err := c.Embedder.Close(); err != nil {
		errs = append(errs, fmt.Errorf("app: closing embedder: %w", err))
	}
	if err := c.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("app: closing store: %w", err))
	}
	if err := c.Logger.Sync(); err != nil {
		errs = append(errs, fmt.Errorf("app: syncing logger: %w", err))
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// buildEnvelope converts the koanf-friendly config.EnvelopeConfig into a
// live resilience.Envelope, wiring in only the stages the config enables.
func buildEnvelope(name string, cfg config.EnvelopeConfig, logger *logging.Logger) *resilience.Envelope {
	var envCfg resilience.EnvelopeConfig
	envCfg.Timeout = cfg.Timeout

	if cfg.BreakerEnabled {
		envCfg.Breaker = &resilience.BreakerConfig{
			Name:             name,
			FailureThreshold: cfg.FailureThreshold,
			SuccessThreshold: cfg.SuccessThreshold,
			OpenTimeout:      cfg.OpenTimeout,
			ResetWindow:      cfg.ResetWindow,
		}
	}
	if cfg.BulkheadEnabled {
		envCfg.Bulkhead = &resilience.BulkheadConfig{
			Name:          name,
			MaxConcurrent: cfg.MaxConcurrent,
			MaxQueue:      cfg.MaxQueue,
		}
	}
	if cfg.RetryEnabled {
		envCfg.Retry = &resilience.RetryConfig{
			MaxAttempts: cfg.MaxAttempts,
			BaseDelay:   cfg.BaseDelay,
			MaxDelay:    cfg.MaxDelay,
			Idempotent:  cfg.Idempotent,
		}
	}
	return resilience.NewEnvelope(name, envCfg, logger)
}
