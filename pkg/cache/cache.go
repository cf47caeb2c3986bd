// Package cache provides the analysis cache used to skip re-parsing
// unchanged header files between runs.
//
// Cached values are keyed by a content hash of the file, so a header that
// has not changed on disk hits the cache regardless of path or mtime. The
// cache never affects pipeline output: a hit and a miss produce the same
// SourceUnit, only faster.
//
// # Implementations
//
//   - FileCache: entries stored as files under a directory (CLI usage)
//   - NullCache: no-op cache for tests or --refresh runs
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values with optional expiration.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A ttl of zero means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}

// UnitKey builds the cache key for an analyzed source unit from the
// file's content hash. Bumping the version suffix invalidates all prior
// entries when the analyzer's output format changes.
func UnitKey(contentHash string) string {
	return "unit:v1:" + contentHash
}
