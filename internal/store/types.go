// Package store implements the four-table normalized vector store adapter
// of spec.md §3 and §4.6: catalog, chunks, concepts, and categories, each
// carrying native-array fields and derived denormalized text columns on
// top of a modernc.org/sqlite-backed relational schema.
package store

// Document is a catalog entry (spec.md §3.1). Id is FNV-1a of Source.
type Document struct {
	ID            uint32
	Source        string
	Title         string
	Author        string
	Year          int
	Publisher     string
	ISBN          string
	Summary       string
	ContentHash   string
	Vector        []float32
	ConceptIDs    []uint32
	CategoryIDs   []uint32
	ConceptNames  []string
	CategoryNames []string
}

// Chunk is a text segment belonging to a Document. Id is FNV-1a of
// content-hash concatenated with the chunk's index.
type Chunk struct {
	ID             uint32
	CatalogID      uint32
	Text           string
	ContentHash    string
	Vector         []float32
	PageNumber     int
	ConceptIDs     []uint32
	ConceptDensity float64
	CatalogTitle   string
	ConceptNames   []string
}

// Concept is a normalized, lowercase phrase extracted by the LLM stage.
// Id is FNV-1a of the lowercased name.
type Concept struct {
	ID            uint32
	Name          string
	Summary       string
	CatalogIDs    []uint32
	ChunkIDs      []uint32
	AdjacentIDs   []uint32
	RelatedIDs    []uint32
	Synonyms      []string
	BroaderTerms  []string
	NarrowerTerms []string
	Weight        float64
	Vector        []float32
	CatalogTitles []string
}

// Category groups documents under a (possibly hierarchical) label.
// Id is FNV-1a of the lowercased name.
type Category struct {
	ID                  uint32
	Name                string
	Description         string
	Summary             string
	ParentCategoryID    uint32 // 0 means root
	Aliases             []string
	RelatedCategoryIDs  []uint32
	DocumentCount       int
	ChunkCount          int
	ConceptCount        int
	Vector              []float32
}
