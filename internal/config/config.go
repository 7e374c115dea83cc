// Package config provides layered configuration loading for conceptrag:
// hardcoded defaults, overridden by an optional YAML file, overridden by
// environment variables, following the teacher's internal/config loader
// shape (koanf.v2 + the env and rawbytes/yaml providers).
package config

import (
	"fmt"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/conceptrag/conceptrag/internal/logging"
)

// Config is the complete conceptrag configuration.
type Config struct {
	Store      StoreConfig      `koanf:"store"`
	Embedding  EmbeddingConfig  `koanf:"embedding"`
	Seeder     SeederConfig     `koanf:"seeder"`
	Retrieval  RetrievalConfig  `koanf:"retrieval"`
	Resilience ResilienceConfig `koanf:"resilience"`
	Logging    LoggingConfig    `koanf:"logging"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
}

// StoreConfig configures the sqlite-backed vector store.
type StoreConfig struct {
	// Path is the sqlite database file. ":memory:" runs with no
	// persistence, used by tests.
	Path string `koanf:"path"`
}

// EmbeddingConfig configures the local fastembed-go model.
type EmbeddingConfig struct {
	ModelID       string `koanf:"model_id"`
	CacheDir      string `koanf:"cache_dir"`
	MaxLength     int    `koanf:"max_length"`
	CacheCapacity int    `koanf:"cache_capacity"`
}

// SeederConfig configures the document ingestion pipeline.
type SeederConfig struct {
	SourceDir         string `koanf:"source_dir"`
	DBDir             string `koanf:"db_dir"`
	StageCacheBaseDir string `koanf:"stage_cache_base_dir"`
	Parallel          int    `koanf:"parallel"`

	// LLMRateLimit and LLMRateBurst throttle outbound LLMExtractor.Extract
	// calls (requests per second, burst size), independent of the
	// resilience envelope wrapped around the same calls.
	LLMRateLimit float64 `koanf:"llm_rate_limit"`
	LLMRateBurst int     `koanf:"llm_rate_burst"`

	// SideIndexEnabled turns on the in-memory near-duplicate index built
	// over document overview embeddings during a seeding run.
	SideIndexEnabled bool `koanf:"side_index_enabled"`
}

// RetrievalConfig holds settings for the search-result cache shared by the
// five retrieval operations. These fields are loaded but not passed to the
// retrieval engine: retrieval.New always builds its cache with
// retrieval.DefaultCacheCapacity and cache.DefaultSearchResultTTL.
type RetrievalConfig struct {
	CacheCapacity int           `koanf:"cache_capacity"`
	CacheTTL      time.Duration `koanf:"cache_ttl"`
}

// ResilienceConfig configures the resilient execution envelopes wrapped
// around the LLM extractor and the lexical expansion source.
type ResilienceConfig struct {
	LLM     EnvelopeConfig `koanf:"llm"`
	Lexical EnvelopeConfig `koanf:"lexical"`
}

// EnvelopeConfig is the koanf-serializable mirror of
// resilience.EnvelopeConfig (that type embeds pointers, which don't
// round-trip cleanly through koanf's env/yaml providers).
type EnvelopeConfig struct {
	Timeout          time.Duration `koanf:"timeout"`
	BreakerEnabled   bool          `koanf:"breaker_enabled"`
	FailureThreshold int           `koanf:"failure_threshold"`
	SuccessThreshold int           `koanf:"success_threshold"`
	OpenTimeout      time.Duration `koanf:"open_timeout"`
	ResetWindow      time.Duration `koanf:"reset_window"`
	BulkheadEnabled  bool          `koanf:"bulkhead_enabled"`
	MaxConcurrent    int           `koanf:"max_concurrent"`
	MaxQueue         int           `koanf:"max_queue"`
	RetryEnabled     bool          `koanf:"retry_enabled"`
	MaxAttempts      int           `koanf:"max_attempts"`
	BaseDelay        time.Duration `koanf:"base_delay"`
	MaxDelay         time.Duration `koanf:"max_delay"`
	Idempotent       bool          `koanf:"idempotent"`
}

// LoggingConfig mirrors logging.Config's shape for koanf unmarshaling; it
// is converted via ToLoggingConfig.
type LoggingConfig struct {
	Level  string            `koanf:"level"`
	Format string            `koanf:"format"`
	Fields map[string]string `koanf:"fields"`
}

// TelemetryConfig controls whether Prometheus metrics collectors are wired
// up (MetricsEnabled). TracingEnabled and ServiceName are loaded but not
// read anywhere; no OpenTelemetry tracer is set up.
type TelemetryConfig struct {
	MetricsEnabled bool   `koanf:"metrics_enabled"`
	TracingEnabled bool   `koanf:"tracing_enabled"`
	ServiceName    string `koanf:"service_name"`
}

// Default returns conceptrag's hardcoded defaults, the lowest layer in the
// config precedence (defaults < YAML file < environment variables).
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Path: "./conceptrag.db",
		},
		Embedding: EmbeddingConfig{
			ModelID:       "BAAI/bge-small-en-v1.5",
			CacheDir:      "./conceptrag-cache/models",
			MaxLength:     512,
			CacheCapacity: 10000,
		},
		Seeder: SeederConfig{
			SourceDir:         "./books",
			DBDir:             "./conceptrag-data",
			StageCacheBaseDir: "./conceptrag-cache/stages",
			Parallel:          10,
			LLMRateLimit:      50.0 / 60.0,
			LLMRateBurst:      5,
		},
		Retrieval: RetrievalConfig{
			CacheCapacity: 256,
			CacheTTL:      5 * time.Minute,
		},
		Resilience: ResilienceConfig{
			LLM: EnvelopeConfig{
				Timeout:          60 * time.Second,
				BreakerEnabled:   true,
				FailureThreshold: 5,
				SuccessThreshold: 2,
				OpenTimeout:      30 * time.Second,
				ResetWindow:      60 * time.Second,
				BulkheadEnabled:  true,
				MaxConcurrent:    10,
				MaxQueue:         20,
				RetryEnabled:     true,
				MaxAttempts:      3,
				BaseDelay:        500 * time.Millisecond,
				MaxDelay:         5 * time.Second,
				Idempotent:       true,
			},
			Lexical: EnvelopeConfig{
				Timeout:         5 * time.Second,
				BulkheadEnabled: true,
				MaxConcurrent:   5,
				MaxQueue:        10,
				RetryEnabled:    true,
				MaxAttempts:     2,
				BaseDelay:       200 * time.Millisecond,
				MaxDelay:        1 * time.Second,
				Idempotent:      true,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Fields: map[string]string{"service": "conceptrag"},
		},
		Telemetry: TelemetryConfig{
			MetricsEnabled: true,
			TracingEnabled: false,
			ServiceName:    "conceptrag",
		},
	}
}

// Validate checks invariants the defaults alone can't guarantee once a
// file or environment layer has overridden them.
func (c *Config) Validate() error {
	if c.Embedding.ModelID == "" {
		return fmt.Errorf("config: embedding.model_id must not be empty")
	}
	if c.Seeder.Parallel < 0 {
		return fmt.Errorf("config: seeder.parallel must be >= 0, got %d", c.Seeder.Parallel)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: logging.format must be 'json' or 'console', got %q", c.Logging.Format)
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("config: logging.level: %w", err)
	}
	return nil
}

// ToLoggingConfig converts the koanf-friendly LoggingConfig into the
// logging package's native Config.
func (c LoggingConfig) ToLoggingConfig() (*logging.Config, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("config: parsing logging.level: %w", err)
	}
	fields := c.Fields
	if fields == nil {
		fields = map[string]string{}
	}
	return &logging.Config{
		Level:  level,
		Format: c.Format,
		Fields: fields,
		Caller: logging.CallerConfig{Enabled: true, Skip: 1},
	}, nil
}
