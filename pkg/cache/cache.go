// Package cache provides the shared cache clients: a Redis-backed
// implementation for production and an in-memory one for single-node
// runs and tests. Callers depend on Service, never on a concrete client.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss reports that a key is absent or expired.
var ErrCacheMiss = errors.New("cache: key not found")

// Service is the cache surface the application uses: small JSON values
// under a TTL and the advisory run lock.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// GenerateKey joins a prefix and an id into one cache key.
func GenerateKey(prefix, id string) string {
	return prefix + ":" + id
}
