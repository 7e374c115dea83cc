package seeder

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// SupportedExtensions is the set of file extensions discovery enumerates.
// The core does not parse these formats itself (spec.md §1 names
// text extraction as an external collaborator); this list only bounds
// what the seeder hands to the extractor.
var SupportedExtensions = map[string]bool{
	".pdf":  true,
	".epub": true,
	".txt":  true,
	".md":   true,
}

// DiscoverFiles walks root recursively and returns every file whose
// extension is in SupportedExtensions, each with its content hash already
// computed (spec.md §4.10 step 1).
func DiscoverFiles(root string) ([]DiscoveredFile, error) {
	var files []DiscoveredFile
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !SupportedExtensions[filepath.Ext(path)] {
			return nil
		}
		hash, hashErr := hashFile(path)
		if hashErr != nil {
			return hashErr
		}
		files = append(files, DiscoveredFile{Path: path, ContentHash: hash})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// CollectionKey computes spec.md §4.10 step 2's collection key: sort
// content hashes, concatenate, hash again, take the first 16 hex
// characters.
func CollectionKey(files []DiscoveredFile) string {
	hashes := make([]string, len(files))
	for i, f := range files {
		hashes[i] = f.ContentHash
	}
	sort.Strings(hashes)

	h := sha256.New()
	for _, hash := range hashes {
		h.Write([]byte(hash))
	}
	digest := hex.EncodeToString(h.Sum(nil))
	if len(digest) < 16 {
		return digest
	}
	return digest[:16]
}
