package cachex

import (
	"context"
	"time"
)

// Cache is a key-value store with optional per-key TTL. Implementations
// must degrade gracefully: errors are returned, never panicked, so
// callers can fall back to their source of truth.
type Cache interface {
	// Get returns the raw bytes for key. ok is false when the key is
	// absent or expired; that is not an error.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set stores value under key. ttl <= 0 means no expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}
