package cache

import "context"

// Key identifies one fixed-size block of a blob. Size is the blob size when
// the block was read; a rewritten blob of another size misses the cache.
type Key struct {
	Path  string
	Size  int64
	Block int64
}

// BlockCache is a byte-oriented cache for immutable blocks.
// Returned slices must be treated as read-only.
type BlockCache interface {
	// Get returns a cached block. ok=false if missing.
	Get(ctx context.Context, key Key) (b []byte, ok bool)
	// Set caches a block. The cache retains b; the caller must not modify it.
	Set(ctx context.Context, key Key, b []byte)
	// Invalidate removes entries matching the predicate.
	Invalidate(predicate func(key Key) bool)
	// Stats returns cache statistics.
	Stats() (hits, misses int64)
	// Close releases any resources.
	Close() error
}
