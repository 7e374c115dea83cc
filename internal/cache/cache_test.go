package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPutIdempotentSizeUnchanged(t *testing.T) {
	c := New[string, int](10, nil)
	c.Put("a", 1, 0)
	sizeAfterFirst := c.Len()
	c.Put("a", 1, 0)
	require.Equal(t, sizeAfterFirst, c.Len())
}

func TestLRUPromotionPreventsEviction(t *testing.T) {
	c := New[string, int](2, nil)
	c.Put("a", 1, 0)
	c.Put("b", 2, 0)

	// Promote "a" to most-recently-used.
	_, ok := c.Get("a")
	require.True(t, ok)

	// Inserting a third key must evict "b" (the unpromoted key), not "a".
	c.Put("c", 3, 0)

	_, aStillPresent := c.Get("a")
	_, bStillPresent := c.Get("b")
	require.True(t, aStillPresent, "promoted key must survive eviction")
	require.False(t, bStillPresent, "unpromoted key should have been evicted")
}

func TestExpiredEntryMissesAndIsRemoved(t *testing.T) {
	c := New[string, int](10, nil)
	c.Put("a", 1, time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("a")
	require.False(t, ok)
	require.Equal(t, 0, c.Len())
}

func TestMetricsTrackHitsAndMisses(t *testing.T) {
	m := NewMetrics("test")
	c := New[string, int](10, m)

	_, _ = c.Get("missing")
	c.Put("a", 1, 0)
	_, _ = c.Get("a")

	snap := m.Snapshot()
	require.Equal(t, int64(1), snap.Hits)
	require.Equal(t, int64(1), snap.Misses)
	require.Equal(t, 0.5, snap.HitRate)
}

func TestEvictionIncrementsCounter(t *testing.T) {
	m := NewMetrics("test")
	c := New[string, int](1, m)
	c.Put("a", 1, 0)
	c.Put("b", 2, 0)

	require.Equal(t, int64(1), m.Snapshot().Evictions)
}

func TestDeleteAndClearDoNotCountAsEviction(t *testing.T) {
	m := NewMetrics("test")
	c := New[string, int](2, m)
	c.Put("a", 1, 0)
	c.Put("b", 2, 0)

	c.Delete("a")
	c.Clear()

	require.Equal(t, int64(0), m.Snapshot().Evictions)
}
