// Package cache defines the port for short-lived in-process caching of
// persisted blobs.
package cache

import (
	"context"
	"time"
)

// Cache is a best-effort key-value cache. Entries may vanish at any time.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
