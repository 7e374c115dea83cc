package seeder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStageCacheMissReturnsFalseNotError(t *testing.T) {
	c := NewStageCache(t.TempDir(), "col1")
	_, found, err := c.Lookup("deadbeef")
	require.NoError(t, err)
	require.False(t, found)
}

func TestStageCacheWriteThenLookupRoundTrips(t *testing.T) {
	c := NewStageCache(t.TempDir(), "col1")
	entry := StageCacheEntry{
		Hash:        "deadbeef",
		Source:      "/books/a.pdf",
		ProcessedAt: time.Now().UTC().Format(time.RFC3339),
		Overview:    "a book about testing",
	}
	require.NoError(t, c.Write("deadbeef", entry))

	got, found, err := c.Lookup("deadbeef")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, entry.Overview, got.Overview)
}

func TestStageCacheExpiredEntryIsTreatedAsMiss(t *testing.T) {
	c := NewStageCache(t.TempDir(), "col1")
	stale := StageCacheEntry{
		Hash:        "deadbeef",
		ProcessedAt: time.Now().UTC().Add(-8 * 24 * time.Hour).Format(time.RFC3339),
	}
	require.NoError(t, c.Write("deadbeef", stale))

	_, found, err := c.Lookup("deadbeef")
	require.NoError(t, err)
	require.False(t, found)
}

func TestStageCacheClearRemovesEntries(t *testing.T) {
	c := NewStageCache(t.TempDir(), "col1")
	require.NoError(t, c.Write("deadbeef", StageCacheEntry{ProcessedAt: time.Now().UTC().Format(time.RFC3339)}))
	require.NoError(t, c.Clear())

	_, found, err := c.Lookup("deadbeef")
	require.NoError(t, err)
	require.False(t, found)
}
