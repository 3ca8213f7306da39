// Package cache wraps Redis access for the journaling services: the
// per-chat activation flag set by /start, the finished-entry cache and
// the duplicate-delivery guard for queue redeliveries.
package cache

import (
	"context"
	"time"
)

// Cache is the store behind the chat-activation, entry and
// dedup keys. Set uses the store's default TTL; SetWithTTL overrides
// it per key.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}) error
	SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Close() error
}
