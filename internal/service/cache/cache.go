// Package cache holds the byte-oriented response cache the HTTP
// handlers replay marshaled envelopes from.
package cache

import (
	"context"
	"time"
)

// BytesCache stores opaque byte payloads under a TTL. A miss and an
// expired entry read the same; the redis-backed implementation also
// honors ctx cancellation.
type BytesCache interface {
	GetBytes(ctx context.Context, key string) (b []byte, ok bool, err error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
