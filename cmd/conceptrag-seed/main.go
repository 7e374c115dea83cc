// Package main implements the conceptrag-seed CLI, which runs the
// resumable document ingestion pipeline of spec.md §4.10 against a
// directory of source documents.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/conceptrag/conceptrag/internal/app"
	"github.com/conceptrag/conceptrag/internal/config"
	"github.com/conceptrag/conceptrag/internal/seeder"
)

var (
	configPath      string
	sourceDir       string
	overwrite       bool
	resume          bool
	cleanCheckpoint bool
	maxDocs         int
	noCache         bool
	clearCache      bool
	cacheOnly       bool
	parallel        int
	sideIndex       bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "conceptrag-seed",
	Short: "Ingest a directory of documents into a conceptrag catalog",
	Long: `conceptrag-seed walks a source directory, extracts text and concepts
from every supported document, embeds it, and upserts the result into the
conceptrag vector store, resuming where a previous run left off when asked.`,
	RunE: runSeed,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file (optional)")
	rootCmd.Flags().StringVar(&sourceDir, "source", "", "directory of documents to ingest (overrides config)")
	rootCmd.Flags().BoolVar(&overwrite, "overwrite", false, "drop and recreate every table before ingesting")
	rootCmd.Flags().BoolVar(&resume, "resume", true, "skip documents already recorded in the checkpoint")
	rootCmd.Flags().BoolVar(&cleanCheckpoint, "clean-checkpoint", false, "discard the existing checkpoint before ingesting")
	rootCmd.Flags().IntVar(&maxDocs, "max-docs", 0, "stop after this many documents (0 means unbounded)")
	rootCmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the stage cache entirely")
	rootCmd.Flags().BoolVar(&clearCache, "clear-cache", false, "delete the stage cache before ingesting")
	rootCmd.Flags().BoolVar(&cacheOnly, "cache-only", false, "fail any document missing from the stage cache instead of re-extracting it")
	rootCmd.Flags().IntVar(&parallel, "parallel", 0, "worker pool size, default 10, capped at 25 (0 uses the config default)")
	rootCmd.Flags().BoolVar(&sideIndex, "side-index", false, "warn about near-duplicate documents during this run (builds an in-memory index over document overviews)")
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("conceptrag-seed: loading config: %w", err)
	}
	if sourceDir != "" {
		cfg.Seeder.SourceDir = sourceDir
	}
	if parallel > 0 {
		cfg.Seeder.Parallel = parallel
	}
	if sideIndex {
		cfg.Seeder.SideIndexEnabled = true
	}

	container, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("conceptrag-seed: building application container: %w", err)
	}
	defer container.Close()

	s := seeder.New(seeder.Config{
		SourceDir:         cfg.Seeder.SourceDir,
		DBDir:             cfg.Seeder.DBDir,
		StageCacheBaseDir: cfg.Seeder.StageCacheBaseDir,
		Overwrite:         overwrite,
		Resume:            resume,
		CleanCheckpoint:   cleanCheckpoint,
		MaxDocs:           maxDocs,
		NoCache:           noCache,
		ClearCache:        clearCache,
		CacheOnly:         cacheOnly,
		Parallel:          cfg.Seeder.Parallel,
		LLMRateLimit:      cfg.Seeder.LLMRateLimit,
		LLMRateBurst:      cfg.Seeder.LLMRateBurst,
		SideIndexEnabled:  cfg.Seeder.SideIndexEnabled,
	}, container.Store, container.Embedder, noopExtractor{}, noopChunker{}, noopLLM{},
		container.LLMEnvelope, container.Logger, seeder.WithInstrumentor(container.Instrumentor))

	result, err := s.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("conceptrag-seed: seeding run failed: %w", err)
	}

	fmt.Printf("discovered=%d processed=%d skipped=%d failed=%d collection_key=%s\n",
		result.FilesDiscovered, result.Processed, result.Skipped, result.Failed, result.CollectionKey)
	return nil
}

// noopExtractor, noopChunker, and noopLLM are placeholders for the document
// parsing and remote LLM invocation collaborators spec.md §1 and
// SPEC_FULL.md §1 explicitly leave outside this module's ownership: a real
// deployment supplies its own TextExtractor, Chunker, and LLMExtractor
// wired in here instead of these three.
type noopExtractor struct{}

func (noopExtractor) Extract(_ context.Context, path string) (string, error) {
	return "", fmt.Errorf("conceptrag-seed: no TextExtractor configured for %q", path)
}

type noopChunker struct{}

func (noopChunker) Chunk(string) []seeder.Chunk { return nil }

type noopLLM struct{}

func (noopLLM) Extract(context.Context, string) (seeder.ExtractedResult, string, error) {
	return seeder.ExtractedResult{}, "", fmt.Errorf("conceptrag-seed: no LLMExtractor configured")
}
