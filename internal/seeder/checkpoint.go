package seeder

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// CheckpointFileName is spec.md §4.10 step 3's fixed checkpoint path,
// relative to the database directory.
const CheckpointFileName = ".seeding-checkpoint.json"

// CheckpointStore owns a single checkpoint file and serializes every write
// through one mutex, per spec.md §5: "Checkpoint writes are strictly
// serialized through a single writer; each write is atomic."
type CheckpointStore struct {
	path string

	mu         sync.Mutex
	checkpoint Checkpoint
}

// LoadCheckpoint reads dbDir's checkpoint file. If absent, or if its
// file_set_hash does not match collectionKey, it returns a fresh,
// empty checkpoint for that key (spec.md §4.10 step 3: "If the stored
// file-set hash differs from the computed collection key, discard the
// checkpoint.").
func LoadCheckpoint(dbDir, collectionKey string) (*CheckpointStore, error) {
	path := filepath.Join(dbDir, CheckpointFileName)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &CheckpointStore{path: path, checkpoint: Checkpoint{FileSetHash: collectionKey}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("seeder: reading checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("seeder: parsing checkpoint: %w", err)
	}
	if cp.FileSetHash != collectionKey {
		return &CheckpointStore{path: path, checkpoint: Checkpoint{FileSetHash: collectionKey}}, nil
	}
	return &CheckpointStore{path: path, checkpoint: cp}, nil
}

// IsCompleted reports whether source is already recorded as done.
func (c *CheckpointStore) IsCompleted(source string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.checkpoint.Completed {
		if s == source {
			return true
		}
	}
	return false
}

// Completed returns a snapshot of the completed source list.
func (c *CheckpointStore) Completed() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.checkpoint.Completed))
	copy(out, c.checkpoint.Completed)
	return out
}

// Append records source as completed and persists the checkpoint
// atomically (spec.md §4.10 step 5d).
func (c *CheckpointStore) Append(source string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.checkpoint.Completed = append(c.checkpoint.Completed, source)
	c.checkpoint.UpdatedAt = time.Now().UTC()
	return c.persistLocked()
}

func (c *CheckpointStore) persistLocked() error {
	data, err := json.MarshalIndent(c.checkpoint, "", "  ")
	if err != nil {
		return fmt.Errorf("seeder: encoding checkpoint: %w", err)
	}

	dir := filepath.Dir(c.path)
	tmp, err := os.CreateTemp(dir, ".seeding-checkpoint-*.tmp")
	if err != nil {
		return fmt.Errorf("seeder: creating checkpoint temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("seeder: writing checkpoint temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("seeder: closing checkpoint temp file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("seeder: renaming checkpoint into place: %w", err)
	}
	return nil
}

// Remove deletes the checkpoint file (--clean-checkpoint).
func (c *CheckpointStore) Remove() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := os.Remove(c.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
