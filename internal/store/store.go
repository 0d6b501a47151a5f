package store

import (
	"context"
	"time"
)

// Store is the key-value store used by the forecast cache. Individual
// operations are atomic per key; no cross-key atomicity is provided.
// Get and TTL report a miss as (zero, false, nil); errors mean the store
// itself was unreachable or misbehaving.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error
	// Expire resets the key's remaining TTL. Returns false when the key
	// does not exist.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// TTL returns the remaining time to live for the key. ok is false when
	// the key is absent or has no expiration.
	TTL(ctx context.Context, key string) (time.Duration, bool, error)
	Ping(ctx context.Context) error
	Close() error
}
