package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO

	"github.com/conceptrag/conceptrag/internal/ids"
	"github.com/conceptrag/conceptrag/internal/logging"
)

// ErrNotFound is returned by point-read methods when no row matches the
// requested id, mapping to spec.md §7's RecordNotFound error kind.
var ErrNotFound = fmt.Errorf("store: record not found")

// ScoredRow is one hit from a vector top-K search: the matching row's id
// and its cosine similarity to the query vector.
type ScoredRow struct {
	ID    uint32
	Score float64
}

// Store is the single-writer, embedded vector store adapter of spec.md
// §4.6: four normalized tables over modernc.org/sqlite, each with an
// in-memory vector cache backing approximate top-K search.
type Store struct {
	db     *sql.DB
	logger *logging.Logger

	mu        sync.RWMutex
	vecCaches map[string]*vectorCache
}

// vectorCache holds one table's vectors contiguously, rebuilt wholesale on
// every upsert. conceptrag targets personal document libraries (thousands,
// not millions, of rows), so a full rebuild is cheap relative to the
// robustness of never reconciling a partial in-memory delta against disk.
type vectorCache struct {
	arena *vectorArena
	ids   []uint32
	index *partitionIndex
}

// Open creates or opens the SQLite-backed store at path and applies the
// schema. path may be ":memory:" for ephemeral stores used in tests.
func Open(path string, logger *logging.Logger) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("store: creating directory %s: %w", dir, err)
			}
		}
	}

	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: opening database: %w", err)
	}
	// SQLite has one writer; serialize through a single connection so
	// concurrent goroutines never hit SQLITE_BUSY on writes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: applying schema: %w", err)
	}

	s := &Store{db: db, logger: logger, vecCaches: make(map[string]*vectorCache)}
	for _, table := range []string{"catalog", "chunks", "concepts"} {
		if err := s.reloadVectorCache(table); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: loading %s vector cache: %w", table, err)
		}
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DropAndRecreate drops table and recreates it empty, per spec.md §4.6.
func (s *Store) DropAndRecreate(table string) error {
	if !tableNames[table] {
		return fmt.Errorf("store: unknown table %q", table)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
		return fmt.Errorf("store: dropping %s: %w", table, err)
	}
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("store: recreating schema: %w", err)
	}
	s.vecCaches[table] = &vectorCache{arena: newVectorArena(0)}
	return nil
}

// --- vector cache maintenance ---

func (s *Store) reloadVectorCache(table string) error {
	idCol := "id"
	rows, err := s.db.Query(fmt.Sprintf("SELECT %s, vector FROM %s WHERE vector IS NOT NULL", idCol, table))
	if err != nil {
		return err
	}
	defer rows.Close()

	var rowIDs []uint32
	var vectors [][]float32
	dim := 0
	for rows.Next() {
		var id uint32
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return err
		}
		vec := decodeVector(blob)
		if dim == 0 {
			dim = len(vec)
		}
		rowIDs = append(rowIDs, id)
		vectors = append(vectors, vec)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	arena := newVectorArena(dim)
	for _, v := range vectors {
		arena.append(v)
	}

	cache := &vectorCache{arena: arena, ids: rowIDs}
	if arena.rowCount() > approxIndexThreshold {
		cache.index = buildPartitionIndex(arena)
	}

	s.mu.Lock()
	s.vecCaches[table] = cache
	s.mu.Unlock()
	return nil
}

// VectorTopK returns up to k rows from table sorted by cosine similarity to
// query, restricted to rows for which predicate (if non-nil) returns true.
// Above approxIndexThreshold rows it probes the partition index instead of
// scanning every row, per spec.md §4.6.
func (s *Store) VectorTopK(table string, query []float32, k int, predicate func(id uint32) bool) ([]ScoredRow, error) {
	s.mu.RLock()
	cache, ok := s.vecCaches[table]
	s.mu.RUnlock()
	if !ok || cache.arena.rowCount() == 0 {
		return nil, nil
	}

	var candidates []int
	if cache.index != nil {
		// Probe enough partitions to comfortably exceed k candidates even
		// after the predicate filters some out.
		candidates = cache.index.probe(query, k*8)
	} else {
		candidates = make([]int, cache.arena.rowCount())
		for i := range candidates {
			candidates[i] = i
		}
	}

	type scored struct {
		id    uint32
		score float64
	}
	results := make([]scored, 0, len(candidates))
	for _, idx := range candidates {
		id := cache.ids[idx]
		if predicate != nil && !predicate(id) {
			continue
		}
		sim := cosineSim(query, cache.arena.get(idx))
		results = append(results, scored{id: id, score: clampUnit(sim)})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].id < results[j].id
	})
	if len(results) > k {
		results = results[:k]
	}

	out := make([]ScoredRow, len(results))
	for i, r := range results {
		out[i] = ScoredRow{ID: r.id, Score: r.score}
	}
	return out, nil
}

// clampUnit maps cosine similarity (range [-1,1]) into [0,1] per spec.md
// §4.8's vector-score definition.
func clampUnit(cos float64) float64 {
	v := (cos + 1) / 2
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// --- vector encoding ---

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	n := len(buf) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out
}

// --- JSON array helpers ---

func marshalJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func unmarshalUint32Array(s string) []uint32 {
	var out []uint32
	if s == "" {
		return nil
	}
	_ = json.Unmarshal([]byte(s), &out)
	return out
}

func unmarshalStringArray(s string) []string {
	var out []string
	if s == "" {
		return nil
	}
	_ = json.Unmarshal([]byte(s), &out)
	return out
}

// --- catalog ---

// UpsertDocuments atomically inserts or replaces rows in catalog.
func (s *Store) UpsertDocuments(ctx context.Context, docs []Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO catalog (id, source, title, author, year, publisher, isbn, summary,
			content_hash, vector, concept_ids, category_ids, concept_names, category_names)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			source=excluded.source, title=excluded.title, author=excluded.author,
			year=excluded.year, publisher=excluded.publisher, isbn=excluded.isbn,
			summary=excluded.summary, content_hash=excluded.content_hash,
			vector=excluded.vector, concept_ids=excluded.concept_ids,
			category_ids=excluded.category_ids, concept_names=excluded.concept_names,
			category_names=excluded.category_names`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range docs {
		if _, err := stmt.ExecContext(ctx, d.ID, d.Source, d.Title, d.Author, d.Year,
			d.Publisher, d.ISBN, d.Summary, d.ContentHash, encodeVector(d.Vector),
			marshalJSON(d.ConceptIDs), marshalJSON(d.CategoryIDs),
			marshalJSON(d.ConceptNames), marshalJSON(d.CategoryNames)); err != nil {
			return fmt.Errorf("store: upserting document %d: %w", d.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return s.reloadVectorCache("catalog")
}

// GetDocument is a point read by id.
func (s *Store) GetDocument(id uint32) (*Document, error) {
	row := s.db.QueryRow(`SELECT id, source, title, author, year, publisher, isbn, summary,
		content_hash, vector, concept_ids, category_ids, concept_names, category_names
		FROM catalog WHERE id = ?`, id)
	var d Document
	var vector []byte
	var conceptIDs, categoryIDs, conceptNames, categoryNames string
	if err := row.Scan(&d.ID, &d.Source, &d.Title, &d.Author, &d.Year, &d.Publisher, &d.ISBN,
		&d.Summary, &d.ContentHash, &vector, &conceptIDs, &categoryIDs, &conceptNames, &categoryNames); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: reading document %d: %w", id, err)
	}
	d.Vector = decodeVector(vector)
	d.ConceptIDs = unmarshalUint32Array(conceptIDs)
	d.CategoryIDs = unmarshalUint32Array(categoryIDs)
	d.ConceptNames = unmarshalStringArray(conceptNames)
	d.CategoryNames = unmarshalStringArray(categoryNames)
	return &d, nil
}

// GetDocumentBySource looks a document up by its canonical source path,
// the equality filter spec.md §4.6 requires on a text column.
func (s *Store) GetDocumentBySource(source string) (*Document, error) {
	return s.GetDocument(ids.DocumentID(source))
}

// DocumentsByTitleSubstring is the substring-match filter variant of
// spec.md §4.6, used by scoped chunk search's title fallback.
func (s *Store) DocumentsByTitleSubstring(substr string) ([]Document, error) {
	rows, err := s.db.Query(`SELECT id FROM catalog WHERE title LIKE ?`, "%"+escapeLike(substr)+"%")
	if err != nil {
		return nil, fmt.Errorf("store: querying catalog by title substring: %w", err)
	}
	defer rows.Close()
	var out []Document
	for rows.Next() {
		var id uint32
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		d, err := s.GetDocument(id)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// DocumentsByCategoryName is the "array contains" predicate of spec.md
// §4.6 applied to catalog.category_names.
func (s *Store) DocumentsByCategoryName(name string) ([]Document, error) {
	rows, err := s.db.Query(`SELECT id, category_names FROM catalog`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matchingIDs []uint32
	for rows.Next() {
		var id uint32
		var categoryNamesJSON string
		if err := rows.Scan(&id, &categoryNamesJSON); err != nil {
			return nil, err
		}
		for _, n := range unmarshalStringArray(categoryNamesJSON) {
			if n == name {
				matchingIDs = append(matchingIDs, id)
				break
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]Document, 0, len(matchingIDs))
	for _, id := range matchingIDs {
		d, err := s.GetDocument(id)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, nil
}

// --- chunks ---

// UpsertChunks atomically inserts or replaces rows in chunks.
func (s *Store) UpsertChunks(ctx context.Context, chunks []Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, catalog_id, text, content_hash, vector, page_number,
			concept_ids, concept_density, catalog_title, concept_names)
		VALUES (?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			catalog_id=excluded.catalog_id, text=excluded.text, content_hash=excluded.content_hash,
			vector=excluded.vector, page_number=excluded.page_number, concept_ids=excluded.concept_ids,
			concept_density=excluded.concept_density, catalog_title=excluded.catalog_title,
			concept_names=excluded.concept_names`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.ID, c.CatalogID, c.Text, c.ContentHash,
			encodeVector(c.Vector), c.PageNumber, marshalJSON(c.ConceptIDs), c.ConceptDensity,
			c.CatalogTitle, marshalJSON(c.ConceptNames)); err != nil {
			return fmt.Errorf("store: upserting chunk %d: %w", c.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return s.reloadVectorCache("chunks")
}

// GetChunk is a point read by id.
func (s *Store) GetChunk(id uint32) (*Chunk, error) {
	row := s.db.QueryRow(`SELECT id, catalog_id, text, content_hash, vector, page_number,
		concept_ids, concept_density, catalog_title, concept_names FROM chunks WHERE id = ?`, id)
	var c Chunk
	var vector []byte
	var conceptIDs, conceptNames string
	if err := row.Scan(&c.ID, &c.CatalogID, &c.Text, &c.ContentHash, &vector, &c.PageNumber,
		&conceptIDs, &c.ConceptDensity, &c.CatalogTitle, &conceptNames); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: reading chunk %d: %w", id, err)
	}
	c.Vector = decodeVector(vector)
	c.ConceptIDs = unmarshalUint32Array(conceptIDs)
	c.ConceptNames = unmarshalStringArray(conceptNames)
	return &c, nil
}

// ChunksByCatalogID is the equality filter on chunks.catalog_id used by
// scoped chunk search.
func (s *Store) ChunksByCatalogID(catalogID uint32) ([]Chunk, error) {
	rows, err := s.db.Query(`SELECT id FROM chunks WHERE catalog_id = ?`, catalogID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var chunkIDs []uint32
	for rows.Next() {
		var id uint32
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		chunkIDs = append(chunkIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]Chunk, 0, len(chunkIDs))
	for _, id := range chunkIDs {
		c, err := s.GetChunk(id)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}

// ChunksByIDs resolves a set of chunk ids, preserving no particular order.
func (s *Store) ChunksByIDs(chunkIDs []uint32) ([]Chunk, error) {
	out := make([]Chunk, 0, len(chunkIDs))
	for _, id := range chunkIDs {
		c, err := s.GetChunk(id)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}

// ChunkCount returns the number of rows in chunks. VectorTopK does not use
// it; the approximate index is built from the vector cache's own row count
// (see approxIndexThreshold).
func (s *Store) ChunkCount() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM chunks`).Scan(&n)
	return n, err
}

// --- concepts ---

// UpsertConcepts atomically inserts or replaces rows in concepts.
func (s *Store) UpsertConcepts(ctx context.Context, concepts []Concept) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO concepts (id, name, summary, catalog_ids, chunk_ids, adjacent_ids,
			related_ids, synonyms, broader_terms, narrower_terms, weight, vector, catalog_titles)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, summary=excluded.summary, catalog_ids=excluded.catalog_ids,
			chunk_ids=excluded.chunk_ids, adjacent_ids=excluded.adjacent_ids,
			related_ids=excluded.related_ids, synonyms=excluded.synonyms,
			broader_terms=excluded.broader_terms, narrower_terms=excluded.narrower_terms,
			weight=excluded.weight, vector=excluded.vector, catalog_titles=excluded.catalog_titles`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range concepts {
		if _, err := stmt.ExecContext(ctx, c.ID, c.Name, c.Summary, marshalJSON(c.CatalogIDs),
			marshalJSON(c.ChunkIDs), marshalJSON(c.AdjacentIDs), marshalJSON(c.RelatedIDs),
			marshalJSON(c.Synonyms), marshalJSON(c.BroaderTerms), marshalJSON(c.NarrowerTerms),
			c.Weight, encodeVector(c.Vector), marshalJSON(c.CatalogTitles)); err != nil {
			return fmt.Errorf("store: upserting concept %d: %w", c.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return s.reloadVectorCache("concepts")
}

// GetConcept is a point read by id.
func (s *Store) GetConcept(id uint32) (*Concept, error) {
	row := s.db.QueryRow(`SELECT id, name, summary, catalog_ids, chunk_ids, adjacent_ids,
		related_ids, synonyms, broader_terms, narrower_terms, weight, vector, catalog_titles
		FROM concepts WHERE id = ?`, id)
	return scanConcept(row)
}

// FindConceptByName is the equality lookup concept search performs first
// (spec.md §4.8, step b).
func (s *Store) FindConceptByName(name string) (*Concept, error) {
	row := s.db.QueryRow(`SELECT id, name, summary, catalog_ids, chunk_ids, adjacent_ids,
		related_ids, synonyms, broader_terms, narrower_terms, weight, vector, catalog_titles
		FROM concepts WHERE name = ?`, name)
	return scanConcept(row)
}

func scanConcept(row *sql.Row) (*Concept, error) {
	var c Concept
	var vector []byte
	var catalogIDs, chunkIDs, adjacentIDs, relatedIDs, synonyms, broaderTerms, narrowerTerms, catalogTitles string
	if err := row.Scan(&c.ID, &c.Name, &c.Summary, &catalogIDs, &chunkIDs, &adjacentIDs,
		&relatedIDs, &synonyms, &broaderTerms, &narrowerTerms, &c.Weight, &vector, &catalogTitles); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: reading concept: %w", err)
	}
	c.Vector = decodeVector(vector)
	c.CatalogIDs = unmarshalUint32Array(catalogIDs)
	c.ChunkIDs = unmarshalUint32Array(chunkIDs)
	c.AdjacentIDs = unmarshalUint32Array(adjacentIDs)
	c.RelatedIDs = unmarshalUint32Array(relatedIDs)
	c.Synonyms = unmarshalStringArray(synonyms)
	c.BroaderTerms = unmarshalStringArray(broaderTerms)
	c.NarrowerTerms = unmarshalStringArray(narrowerTerms)
	c.CatalogTitles = unmarshalStringArray(catalogTitles)
	return &c, nil
}

// AllConcepts returns every concept row, used by the post-pass and by
// concepts-in-category aggregation.
func (s *Store) AllConcepts() ([]Concept, error) {
	rows, err := s.db.Query(`SELECT id FROM concepts`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var conceptIDs []uint32
	for rows.Next() {
		var id uint32
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		conceptIDs = append(conceptIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]Concept, 0, len(conceptIDs))
	for _, id := range conceptIDs {
		c, err := s.GetConcept(id)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}

// --- categories ---

// UpsertCategories atomically inserts or replaces rows in categories.
func (s *Store) UpsertCategories(ctx context.Context, categories []Category) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO categories (id, name, description, summary, parent_category_id, aliases,
			related_category_ids, document_count, chunk_count, concept_count, vector)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, description=excluded.description, summary=excluded.summary,
			parent_category_id=excluded.parent_category_id, aliases=excluded.aliases,
			related_category_ids=excluded.related_category_ids, document_count=excluded.document_count,
			chunk_count=excluded.chunk_count, concept_count=excluded.concept_count, vector=excluded.vector`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range categories {
		if _, err := stmt.ExecContext(ctx, c.ID, c.Name, c.Description, c.Summary,
			c.ParentCategoryID, marshalJSON(c.Aliases), marshalJSON(c.RelatedCategoryIDs),
			c.DocumentCount, c.ChunkCount, c.ConceptCount, encodeVector(c.Vector)); err != nil {
			return fmt.Errorf("store: upserting category %d: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// GetCategory is a point read by id.
func (s *Store) GetCategory(id uint32) (*Category, error) {
	row := s.db.QueryRow(`SELECT id, name, description, summary, parent_category_id, aliases,
		related_category_ids, document_count, chunk_count, concept_count, vector
		FROM categories WHERE id = ?`, id)
	var c Category
	var vector []byte
	var aliases, relatedIDs string
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Summary, &c.ParentCategoryID,
		&aliases, &relatedIDs, &c.DocumentCount, &c.ChunkCount, &c.ConceptCount, &vector); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: reading category %d: %w", id, err)
	}
	c.Vector = decodeVector(vector)
	c.Aliases = unmarshalStringArray(aliases)
	c.RelatedCategoryIDs = unmarshalUint32Array(relatedIDs)
	return &c, nil
}

// ListCategories returns all categories whose name contains the optional
// substring filter, unsorted (callers apply spec.md §4.8's sort options).
func (s *Store) ListCategories(substring string) ([]Category, error) {
	query := `SELECT id FROM categories`
	args := []any{}
	if substring != "" {
		query += ` WHERE name LIKE ?`
		args = append(args, "%"+escapeLike(substring)+"%")
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var categoryIDs []uint32
	for rows.Next() {
		var id uint32
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		categoryIDs = append(categoryIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]Category, 0, len(categoryIDs))
	for _, id := range categoryIDs {
		c, err := s.GetCategory(id)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}

// --- derived-column regeneration (spec.md §4.6, §4.10 step 6) ---

// RegenerateDerivedColumns recomputes every denormalized text column from
// its source-of-truth ID arrays. It is a single-writer operation, per
// spec.md §3.3 and §5.
func (s *Store) RegenerateDerivedColumns(ctx context.Context) error {
	if err := s.regenerateCatalogDerivedColumns(ctx); err != nil {
		return err
	}
	if err := s.regenerateChunkDerivedColumns(ctx); err != nil {
		return err
	}
	if err := s.regenerateConceptDerivedColumns(ctx); err != nil {
		return err
	}
	return s.regenerateCategoryCounts(ctx)
}

func (s *Store) regenerateCatalogDerivedColumns(ctx context.Context) error {
	docs, err := s.allDocumentIDs()
	if err != nil {
		return err
	}
	for _, id := range docs {
		d, err := s.GetDocument(id)
		if err != nil {
			return err
		}
		conceptNames, err := s.namesForConceptIDs(d.ConceptIDs)
		if err != nil {
			return err
		}
		categoryNames, err := s.namesForCategoryIDs(d.CategoryIDs)
		if err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx, `UPDATE catalog SET concept_names = ?, category_names = ? WHERE id = ?`,
			marshalJSON(conceptNames), marshalJSON(categoryNames), id); err != nil {
			return fmt.Errorf("store: regenerating catalog derived columns for %d: %w", id, err)
		}
	}
	return nil
}

func (s *Store) regenerateChunkDerivedColumns(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, catalog_id, concept_ids FROM chunks`)
	if err != nil {
		return err
	}
	type row struct {
		id, catalogID uint32
		conceptIDs    []uint32
	}
	var toUpdate []row
	for rows.Next() {
		var r row
		var conceptIDsJSON string
		if err := rows.Scan(&r.id, &r.catalogID, &conceptIDsJSON); err != nil {
			rows.Close()
			return err
		}
		r.conceptIDs = unmarshalUint32Array(conceptIDsJSON)
		toUpdate = append(toUpdate, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, r := range toUpdate {
		doc, err := s.GetDocument(r.catalogID)
		if err != nil && err != ErrNotFound {
			return err
		}
		title := ""
		if doc != nil {
			title = doc.Title
		}
		conceptNames, err := s.namesForConceptIDs(r.conceptIDs)
		if err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx, `UPDATE chunks SET catalog_title = ?, concept_names = ? WHERE id = ?`,
			title, marshalJSON(conceptNames), r.id); err != nil {
			return fmt.Errorf("store: regenerating chunk derived columns for %d: %w", r.id, err)
		}
	}
	return nil
}

func (s *Store) regenerateConceptDerivedColumns(ctx context.Context) error {
	concepts, err := s.AllConcepts()
	if err != nil {
		return err
	}
	for _, c := range concepts {
		titles, err := s.titlesForCatalogIDs(c.CatalogIDs)
		if err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx, `UPDATE concepts SET catalog_titles = ? WHERE id = ?`,
			marshalJSON(titles), c.ID); err != nil {
			return fmt.Errorf("store: regenerating concept derived columns for %d: %w", c.ID, err)
		}
	}
	return nil
}

// regenerateCategoryCounts recomputes document_count, chunk_count, and
// concept_count from the present catalog and chunk contents, per spec.md
// §3.2 invariant 5.
func (s *Store) regenerateCategoryCounts(ctx context.Context) error {
	categories, err := s.ListCategories("")
	if err != nil {
		return err
	}
	for _, cat := range categories {
		docs, err := s.DocumentsByCategoryName(cat.Name)
		if err != nil {
			return err
		}
		chunkCount, conceptSet := 0, map[uint32]bool{}
		for _, d := range docs {
			chunks, err := s.ChunksByCatalogID(d.ID)
			if err != nil {
				return err
			}
			chunkCount += len(chunks)
			for _, cid := range d.ConceptIDs {
				conceptSet[cid] = true
			}
		}
		if _, err := s.db.ExecContext(ctx, `UPDATE categories SET document_count = ?, chunk_count = ?, concept_count = ? WHERE id = ?`,
			len(docs), chunkCount, len(conceptSet), cat.ID); err != nil {
			return fmt.Errorf("store: regenerating category counts for %d: %w", cat.ID, err)
		}
	}
	return nil
}

func (s *Store) namesForConceptIDs(conceptIDs []uint32) ([]string, error) {
	names := make([]string, 0, len(conceptIDs))
	for _, id := range conceptIDs {
		c, err := s.GetConcept(id)
		if err == ErrNotFound {
			names = append(names, "")
			continue
		}
		if err != nil {
			return nil, err
		}
		names = append(names, c.Name)
	}
	return names, nil
}

func (s *Store) namesForCategoryIDs(categoryIDs []uint32) ([]string, error) {
	names := make([]string, 0, len(categoryIDs))
	for _, id := range categoryIDs {
		c, err := s.GetCategory(id)
		if err == ErrNotFound {
			names = append(names, "")
			continue
		}
		if err != nil {
			return nil, err
		}
		names = append(names, c.Name)
	}
	return names, nil
}

func (s *Store) titlesForCatalogIDs(catalogIDs []uint32) ([]string, error) {
	titles := make([]string, 0, len(catalogIDs))
	for _, id := range catalogIDs {
		d, err := s.GetDocument(id)
		if err == ErrNotFound {
			titles = append(titles, "")
			continue
		}
		if err != nil {
			return nil, err
		}
		titles = append(titles, d.Title)
	}
	return titles, nil
}

func (s *Store) allDocumentIDs() ([]uint32, error) {
	rows, err := s.db.Query(`SELECT id FROM catalog`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []uint32
	for rows.Next() {
		var id uint32
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// escapeLike is a hook for callers that need literal % or _ in a substring
// filter; conceptrag's current callers pass plain title/category text so no
// escaping is applied yet.
func escapeLike(s string) string {
	return s
}
