// Package seeder implements the resumable seeding orchestrator of
// spec.md §4.10: discover a source directory's files, process each
// through extraction/chunking/embedding/LLM-concept-extraction with a
// content-addressed stage cache, and upsert the results into the store
// with bounded, resumable, cancellable parallelism.
package seeder

import "time"

// StageCacheEntry is the persisted shape of a stage-cache file, per
// spec.md §6.2.
type StageCacheEntry struct {
	Hash        string          `json:"hash"`
	Source      string          `json:"source"`
	ProcessedAt string          `json:"processed_at"`
	Concepts    ExtractedResult `json:"concepts"`
	Overview    string          `json:"content_overview"`
	Metadata    DocumentHints   `json:"metadata,omitempty"`
}

// ExtractedResult is the LLM extractor's structured response: primary
// concepts with per-document summaries, document categories, plus
// supporting vocabulary used only to enrich the stage-cache record.
type ExtractedResult struct {
	PrimaryConcepts  []ConceptContribution `json:"primary_concepts"`
	Categories       []string              `json:"categories"`
	TechnicalTerms   []string              `json:"technical_terms,omitempty"`
	RelatedConcepts  []string              `json:"related_concepts,omitempty"`
}

// ConceptContribution is one concept as extracted from a single document:
// its name and a summary written in that document's context.
type ConceptContribution struct {
	Name    string `json:"name"`
	Summary string `json:"summary"`
}

// DocumentHints carries optional metadata the LLM or the filename
// convention may have supplied; any field left empty falls back to the
// other source.
type DocumentHints struct {
	Title  string `json:"title,omitempty"`
	Author string `json:"author,omitempty"`
	Year   int    `json:"year,omitempty"`
}

// Checkpoint is the persisted shape of the resume file, per spec.md §6.2.
type Checkpoint struct {
	FileSetHash string    `json:"file_set_hash"`
	Completed   []string  `json:"completed"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StageCacheTTL is the 7-day freshness window spec.md §4.10 step 5a names.
const StageCacheTTL = 7 * 24 * time.Hour

// DiscoveredFile is one file found during discovery, with its content
// hash already computed so the collection key can be derived before any
// per-document work starts.
type DiscoveredFile struct {
	Path        string
	ContentHash string // SHA-256 hex of the raw file bytes
}

// Chunk is one piece of a document's extracted text, produced by the
// external chunker interface before embedding.
type Chunk struct {
	Text       string
	PageNumber int
}
