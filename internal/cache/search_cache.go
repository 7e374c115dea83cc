package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DefaultSearchResultTTL matches spec.md §4.4's "≈5 minutes" default.
const DefaultSearchResultTTL = 5 * time.Minute

// SearchResultCache caches retrieval operation results keyed by a
// canonicalized (query, options) pair so logically-equivalent requests
// collapse onto the same entry regardless of map iteration order in the
// caller's options.
type SearchResultCache[V any] struct {
	*Cache[string, V]
	ttl time.Duration
}

// NewSearchResultCache creates a search-result cache with the given
// capacity and TTL. A zero ttl uses DefaultSearchResultTTL.
func NewSearchResultCache[V any](capacity int, ttl time.Duration) *SearchResultCache[V] {
	if ttl <= 0 {
		ttl = DefaultSearchResultTTL
	}
	return &SearchResultCache[V]{Cache: New[string, V](capacity, NewMetrics("search_result")), ttl: ttl}
}

// Put stores value under the cache's configured TTL.
func (c *SearchResultCache[V]) Put(key string, value V) {
	c.Cache.Put(key, value, c.ttl)
}

// CanonicalKey builds a stable cache key for an operation name, a query
// string, and an options map, serializing the options in sorted field order
// so {"limit":5,"debug":true} and {"debug":true,"limit":5} collapse to the
// same key.
func CanonicalKey(operation, query string, options map[string]any) string {
	var b strings.Builder
	b.WriteString(operation)
	b.WriteByte('\x00')
	b.WriteString(query)

	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(&b, "\x00%s=%v", k, options[k])
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
