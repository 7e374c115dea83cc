package seeder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiscoverFilesFindsSupportedExtensionsOnly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "hello")
	writeFile(t, filepath.Join(dir, "b.md"), "world")
	writeFile(t, filepath.Join(dir, "ignore.exe"), "binary")
	writeFile(t, filepath.Join(dir, "nested", "c.pdf"), "pdf-bytes")

	files, err := DiscoverFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 3)
	for _, f := range files {
		require.NotEmpty(t, f.ContentHash)
	}
}

func TestDiscoverFilesIsDeterministicallyOrdered(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "z.txt"), "z")
	writeFile(t, filepath.Join(dir, "a.txt"), "a")

	files, err := DiscoverFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.Contains(t, files[0].Path, "a.txt")
	require.Contains(t, files[1].Path, "z.txt")
}

func TestCollectionKeyIsStableAndOrderIndependent(t *testing.T) {
	a := []DiscoveredFile{{ContentHash: "aaa"}, {ContentHash: "bbb"}}
	b := []DiscoveredFile{{ContentHash: "bbb"}, {ContentHash: "aaa"}}
	require.Equal(t, CollectionKey(a), CollectionKey(b))
	require.Len(t, CollectionKey(a), 16)
}

func TestCollectionKeyChangesWithContent(t *testing.T) {
	a := []DiscoveredFile{{ContentHash: "aaa"}}
	b := []DiscoveredFile{{ContentHash: "zzz"}}
	require.NotEqual(t, CollectionKey(a), CollectionKey(b))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
