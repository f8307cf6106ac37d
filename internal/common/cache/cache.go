package cache

import (
	"context"
	"time"
)

// Cache is the key-value store behind the problem catalog read cache.
type Cache interface {
	// Get returns "" with a nil error on a miss.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value; a zero ttl never expires.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	Del(ctx context.Context, keys ...string) error

	// Exists returns how many of keys exist.
	Exists(ctx context.Context, keys ...string) (int64, error)

	TTL(ctx context.Context, key string) (time.Duration, error)

	Ping(ctx context.Context) error
	Close() error
}
