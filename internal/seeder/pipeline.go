package seeder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/conceptrag/conceptrag/internal/concepts"
	"github.com/conceptrag/conceptrag/internal/filenamemeta"
	"github.com/conceptrag/conceptrag/internal/ids"
	"github.com/conceptrag/conceptrag/internal/store"
	"github.com/conceptrag/conceptrag/internal/telemetry"
)

// documentResult is one document pipeline's output, ready to be merged
// into the store and the concept builder by the orchestrator's single
// writer.
type documentResult struct {
	Document   store.Document
	Chunks     []store.Chunk
	Categories []store.Category
	Contribution concepts.DocumentContribution
}

// processDocument runs the strictly-ordered per-document pipeline of
// spec.md §4.10 step 5 and §5: extract -> chunk -> embed -> LLM ->
// cache-write -> (caller does database-upsert and checkpoint-append).
func (s *Seeder) processDocument(ctx context.Context, file DiscoveredFile) (documentResult, error) {
	return telemetry.MeasureValue(ctx, s.instrumentor, "seeder_process_document", func(ctx context.Context) (documentResult, error) {
		return s.processDocumentUnmeasured(ctx, file)
	})
}

func (s *Seeder) processDocumentUnmeasured(ctx context.Context, file DiscoveredFile) (documentResult, error) {
	cacheKey := file.ContentHash
	var entry StageCacheEntry
	var fromCache bool

	if !s.cfg.NoCache {
		var err error
		entry, fromCache, err = s.stageCache.Lookup(cacheKey)
		if err != nil {
			return documentResult{}, fmt.Errorf("seeder: stage cache lookup for %s: %w", file.Path, err)
		}
	}

	if !fromCache && s.cfg.CacheOnly {
		return documentResult{}, fmt.Errorf("seeder: %s is not cached and --cache-only was set", file.Path)
	}

	text, err := s.extractor.Extract(ctx, file.Path)
	if err != nil {
		return documentResult{}, fmt.Errorf("seeder: extracting %s: %w", file.Path, err)
	}

	chunkSpecs := s.chunker.Chunk(text)
	chunkTexts := make([]string, len(chunkSpecs))
	for i, c := range chunkSpecs {
		chunkTexts[i] = c.Text
	}

	chunkVectors, err := s.embedder.EmbedBatch(ctx, chunkTexts)
	if err != nil {
		return documentResult{}, fmt.Errorf("seeder: embedding chunks of %s: %w", file.Path, err)
	}

	if !fromCache {
		if err := s.llmLimiter.Wait(ctx); err != nil {
			return documentResult{}, fmt.Errorf("seeder: waiting for llm rate limiter for %s: %w", file.Path, err)
		}

		var extracted ExtractedResult
		var overview string
		err := telemetry.Measure(ctx, s.instrumentor, "seeder_llm_extract", func(ctx context.Context) error {
			return s.llmEnvelope.Do(ctx, func(ctx context.Context) error {
				var opErr error
				extracted, overview, opErr = s.llm.Extract(ctx, text)
				return opErr
			})
		})
		if err != nil {
			return documentResult{}, fmt.Errorf("seeder: llm extraction for %s: %w", file.Path, err)
		}
		entry = StageCacheEntry{
			Hash:        cacheKey,
			Source:      file.Path,
			ProcessedAt: time.Now().UTC().Format(time.RFC3339),
			Concepts:    extracted,
			Overview:    overview,
			Metadata:    hintsFromFilename(file.Path),
		}
		if !s.cfg.NoCache {
			if err := s.stageCache.Write(cacheKey, entry); err != nil {
				return documentResult{}, fmt.Errorf("seeder: writing stage cache for %s: %w", file.Path, err)
			}
		}
	}

	return s.buildDocumentResult(ctx, file, text, chunkSpecs, chunkVectors, entry)
}

// buildDocumentResult turns a (document text, chunk vectors, LLM
// extraction) triple into store rows and a concept-builder contribution.
// This step is pure and does not touch the store, so it can be tested
// without a database.
func (s *Seeder) buildDocumentResult(ctx context.Context, file DiscoveredFile, text string, chunkSpecs []Chunk, chunkVectors [][]float32, entry StageCacheEntry) (documentResult, error) {
	docID := ids.DocumentID(file.Path)
	hints := entry.Metadata
	fnMeta := filenamemeta.Parse(file.Path)

	title := firstNonEmpty(hints.Title, fnMeta.Title)
	author := firstNonEmpty(hints.Author, fnMeta.Author)
	year := hints.Year
	if year == 0 {
		year = fnMeta.Year
	}

	summaryVector, err := s.embedder.Embed(ctx, entry.Overview)
	if err != nil {
		return documentResult{}, fmt.Errorf("seeder: embedding summary for %s: %w", file.Path, err)
	}

	normalizedConcepts := make([]string, 0, len(entry.Concepts.PrimaryConcepts))
	for _, c := range entry.Concepts.PrimaryConcepts {
		n := concepts.Normalize(c.Name)
		if n != "" {
			normalizedConcepts = append(normalizedConcepts, n)
		}
	}

	chunkIDsByConcept := make(map[string][]uint32, len(normalizedConcepts))
	chunkRows := make([]store.Chunk, len(chunkSpecs))
	allChunkConceptIDs := make(map[uint32]bool)

	for i, spec := range chunkSpecs {
		chunkID := ids.ChunkID(file.ContentHash, i)
		lowerText := strings.ToLower(spec.Text)

		var chunkConceptIDs []uint32
		for _, name := range normalizedConcepts {
			if strings.Contains(lowerText, name) {
				id := ids.ConceptID(name)
				chunkConceptIDs = append(chunkConceptIDs, id)
				allChunkConceptIDs[id] = true
				chunkIDsByConcept[name] = append(chunkIDsByConcept[name], chunkID)
			}
		}

		wordCount := len(strings.Fields(spec.Text))
		density := float64(len(chunkConceptIDs)) / float64(max1(wordCount/10))

		var vector []float32
		if i < len(chunkVectors) {
			vector = chunkVectors[i]
		}

		chunkRows[i] = store.Chunk{
			ID:             chunkID,
			CatalogID:      docID,
			Text:           spec.Text,
			ContentHash:    file.ContentHash,
			Vector:         vector,
			PageNumber:     spec.PageNumber,
			ConceptIDs:     chunkConceptIDs,
			ConceptDensity: density,
			CatalogTitle:   title,
		}
	}

	conceptIDs := make([]uint32, 0, len(normalizedConcepts))
	seenConceptID := make(map[uint32]bool, len(normalizedConcepts))
	for _, name := range normalizedConcepts {
		id := ids.ConceptID(name)
		if !seenConceptID[id] {
			seenConceptID[id] = true
			conceptIDs = append(conceptIDs, id)
		}
	}

	categoryRows := make([]store.Category, 0, len(entry.Concepts.Categories))
	categoryIDs := make([]uint32, 0, len(entry.Concepts.Categories))
	for _, name := range entry.Concepts.Categories {
		normalized := concepts.Normalize(name)
		if normalized == "" {
			continue
		}
		id := ids.CategoryID(normalized)
		categoryIDs = append(categoryIDs, id)
		categoryRows = append(categoryRows, store.Category{ID: id, Name: normalized})
	}

	doc := store.Document{
		ID:          docID,
		Source:      file.Path,
		Title:       title,
		Author:      author,
		Year:        year,
		Summary:     entry.Overview,
		ContentHash: file.ContentHash,
		Vector:      summaryVector,
		ConceptIDs:  conceptIDs,
		CategoryIDs: categoryIDs,
	}

	contribution := concepts.DocumentContribution{
		CatalogID:         docID,
		CatalogTitle:      title,
		ChunkIDsByConcept: chunkIDsByConcept,
	}
	for _, c := range entry.Concepts.PrimaryConcepts {
		contribution.Concepts = append(contribution.Concepts, concepts.ExtractedConcept{Name: c.Name, Summary: c.Summary})
	}

	return documentResult{
		Document:     doc,
		Chunks:       chunkRows,
		Categories:   categoryRows,
		Contribution: contribution,
	}, nil
}

func hintsFromFilename(path string) DocumentHints {
	m := filenamemeta.Parse(path)
	return DocumentHints{Title: m.Title, Author: m.Author, Year: m.Year}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
