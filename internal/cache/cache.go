// Package cache stores raw playlist bytes keyed by URL so that the same
// manifest is not fetched twice within its TTL.
package cache

import "context"

// EvictCallback is called when an entry is evicted from the cache.
// Providers backed by an external server do not report evictions.
type EvictCallback func(key string, value []byte)

// Cache is a byte-slice key-value store with TTL semantics.
type Cache interface {
	// Get returns the value and true on a hit.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte)

	// Contains reports whether key is present without refreshing it.
	Contains(ctx context.Context, key string) bool

	// Len returns the number of entries currently stored.
	Len() int

	// Close releases any resources held by the cache.
	Close() error
}
