package seeder

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StageCache is the content-addressed on-disk cache of spec.md §4.10 step
// 5a: one JSON file per (collection, content-hash), read before any LLM
// call is made and written atomically after one succeeds.
type StageCache struct {
	root          string // <stage-cache-root>/<collection-key>
	collectionKey string
}

// NewStageCache roots a StageCache under baseDir for the given collection.
func NewStageCache(baseDir, collectionKey string) *StageCache {
	return &StageCache{root: filepath.Join(baseDir, collectionKey), collectionKey: collectionKey}
}

func (c *StageCache) entryPath(contentHash string) string {
	return filepath.Join(c.root, contentHash+".json")
}

// Lookup returns a cached entry for contentHash if present and not older
// than StageCacheTTL. A missing or expired entry is reported as (zero,
// false, nil) — not an error.
func (c *StageCache) Lookup(contentHash string) (StageCacheEntry, bool, error) {
	data, err := os.ReadFile(c.entryPath(contentHash))
	if os.IsNotExist(err) {
		return StageCacheEntry{}, false, nil
	}
	if err != nil {
		return StageCacheEntry{}, false, fmt.Errorf("seeder: reading stage cache entry: %w", err)
	}

	var entry StageCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return StageCacheEntry{}, false, fmt.Errorf("seeder: parsing stage cache entry: %w", err)
	}

	processedAt, err := time.Parse(time.RFC3339, entry.ProcessedAt)
	if err != nil {
		return StageCacheEntry{}, false, nil
	}
	if time.Since(processedAt) > StageCacheTTL {
		return StageCacheEntry{}, false, nil
	}
	return entry, true, nil
}

// Write persists entry for contentHash with a write-temp-then-rename,
// matching the checkpoint's atomicity discipline.
func (c *StageCache) Write(contentHash string, entry StageCacheEntry) error {
	if err := os.MkdirAll(c.root, 0o755); err != nil {
		return fmt.Errorf("seeder: creating stage cache dir: %w", err)
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("seeder: encoding stage cache entry: %w", err)
	}

	tmp, err := os.CreateTemp(c.root, contentHash+"-*.tmp")
	if err != nil {
		return fmt.Errorf("seeder: creating stage cache temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("seeder: writing stage cache temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("seeder: closing stage cache temp file: %w", err)
	}
	if err := os.Rename(tmpPath, c.entryPath(contentHash)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("seeder: renaming stage cache entry into place: %w", err)
	}
	return nil
}

// Clear deletes every entry for this collection.
func (c *StageCache) Clear() error {
	err := os.RemoveAll(c.root)
	if err != nil {
		return fmt.Errorf("seeder: clearing stage cache: %w", err)
	}
	return nil
}
