package seeder

import "context"

// TextExtractor turns a document's raw bytes into plain text. Real
// implementations (PDF/EPUB parsing, OCR fallback) live outside the core
// per spec.md §1's "out of scope (external collaborators)" list; the core
// only depends on this narrow interface.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Chunker splits a document's extracted text into chunks suitable for
// independent embedding.
type Chunker interface {
	Chunk(text string) []Chunk
}

// LLMExtractor calls the remote large-language-model endpoint to obtain
// primary concepts, categories, and a document summary. Implementations
// are responsible for their own request/response marshaling; the core
// only specifies the contract (spec.md §6.2) and wraps every call in the
// resilient envelope (§4.3) before it reaches here.
type LLMExtractor interface {
	Extract(ctx context.Context, documentText string) (ExtractedResult, string, error)
}

// Embedder is the subset of embedding.Service the seeder depends on,
// narrowed to an interface so the pipeline can be exercised with a fake
// in tests without a real ONNX model on disk.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
