package store

// schemaSQL defines the four normalized tables of spec.md §3. Array-valued
// fields (concept_ids, concept_names, and so on) have no native SQLite
// representation; they are stored as JSON TEXT and decoded on read, the
// same trade-off GonzoDMX's schema_def.go makes for its metadata blobs.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS catalog (
    id             INTEGER PRIMARY KEY,
    source         TEXT NOT NULL UNIQUE,
    title          TEXT,
    author         TEXT,
    year           INTEGER,
    publisher      TEXT,
    isbn           TEXT,
    summary        TEXT,
    content_hash   TEXT,
    vector         BLOB,
    concept_ids    TEXT NOT NULL DEFAULT '[]',
    category_ids   TEXT NOT NULL DEFAULT '[]',
    concept_names  TEXT NOT NULL DEFAULT '[]',
    category_names TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS chunks (
    id              INTEGER PRIMARY KEY,
    catalog_id      INTEGER NOT NULL REFERENCES catalog(id) ON DELETE CASCADE,
    text            TEXT,
    content_hash    TEXT,
    vector          BLOB,
    page_number     INTEGER,
    concept_ids     TEXT NOT NULL DEFAULT '[]',
    concept_density REAL NOT NULL DEFAULT 0,
    catalog_title   TEXT,
    concept_names   TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS concepts (
    id             INTEGER PRIMARY KEY,
    name           TEXT NOT NULL UNIQUE,
    summary        TEXT,
    catalog_ids    TEXT NOT NULL DEFAULT '[]',
    chunk_ids      TEXT NOT NULL DEFAULT '[]',
    adjacent_ids   TEXT NOT NULL DEFAULT '[]',
    related_ids    TEXT NOT NULL DEFAULT '[]',
    synonyms       TEXT NOT NULL DEFAULT '[]',
    broader_terms  TEXT NOT NULL DEFAULT '[]',
    narrower_terms TEXT NOT NULL DEFAULT '[]',
    weight         REAL NOT NULL DEFAULT 0,
    vector         BLOB,
    catalog_titles TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS categories (
    id                    INTEGER PRIMARY KEY,
    name                  TEXT NOT NULL UNIQUE,
    description           TEXT,
    summary               TEXT,
    parent_category_id    INTEGER NOT NULL DEFAULT 0,
    aliases               TEXT NOT NULL DEFAULT '[]',
    related_category_ids  TEXT NOT NULL DEFAULT '[]',
    document_count        INTEGER NOT NULL DEFAULT 0,
    chunk_count           INTEGER NOT NULL DEFAULT 0,
    concept_count         INTEGER NOT NULL DEFAULT 0,
    vector                BLOB
);

CREATE INDEX IF NOT EXISTS idx_chunks_catalog_id ON chunks(catalog_id);
CREATE INDEX IF NOT EXISTS idx_catalog_title ON catalog(title);
CREATE INDEX IF NOT EXISTS idx_categories_parent ON categories(parent_category_id);
`

// tableNames enumerates the four store tables, used by DropAndRecreate to
// reject unknown table names.
var tableNames = map[string]bool{
	"catalog":    true,
	"chunks":     true,
	"concepts":   true,
	"categories": true,
}
