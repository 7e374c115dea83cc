package cache

import "sync/atomic"

// Metrics exposes the hit/miss/eviction/size/hit-rate counters spec.md §4.4
// requires of every cache instance. Each Cache[K,V] owns its own Metrics —
// they are not a global singleton, since the embedding cache and the
// search-result cache need independent counters.
type Metrics struct {
	name      string
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
	size      atomic.Int64
}

// NewMetrics creates a Metrics instance labeled name (used only for
// debugging/snapshot output, not a Prometheus label — cache instances are
// few and named explicitly by their callers).
func NewMetrics(name string) *Metrics {
	return &Metrics{name: name}
}

func (m *Metrics) RecordHit()      { m.hits.Add(1) }
func (m *Metrics) RecordMiss()     { m.misses.Add(1) }
func (m *Metrics) RecordEviction() { m.evictions.Add(1) }
func (m *Metrics) SetSize(n int)   { m.size.Store(int64(n)) }

// Snapshot is a point-in-time read of a cache's counters.
type Snapshot struct {
	Name      string
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int64
	HitRate   float64
}

// Snapshot returns the current counter values and the running hit rate
// (hits / (hits + misses), zero if there have been no lookups yet).
func (m *Metrics) Snapshot() Snapshot {
	hits := m.hits.Load()
	misses := m.misses.Load()
	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return Snapshot{
		Name:      m.name,
		Hits:      hits,
		Misses:    misses,
		Evictions: m.evictions.Load(),
		Size:      m.size.Load(),
		HitRate:   hitRate,
	}
}
