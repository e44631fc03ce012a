// Package ratelimit holds the keyed token buckets behind the analysis
// endpoints.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter tracks one token bucket per key, created on first use with the
// capacity and refill rate the caller passes.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*tokenBucket
}

type tokenBucket struct {
	level    float64
	limit    float64
	perSec   float64
	filledAt time.Time
}

func New() *Limiter {
	return &Limiter{buckets: make(map[string]*tokenBucket)}
}

// Allow consumes one token for key, reporting whether one was available.
func (l *Limiter) Allow(key string, capacity, refillPerSec float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &tokenBucket{level: capacity, limit: capacity, perSec: refillPerSec, filledAt: time.Now()}
		l.buckets[key] = b
	}
	b.refill(time.Now())
	if b.level < 1 {
		return false
	}
	b.level--
	return true
}

func (b *tokenBucket) refill(now time.Time) {
	elapsed := now.Sub(b.filledAt).Seconds()
	if elapsed <= 0 {
		return
	}
	b.level += elapsed * b.perSec
	if b.level > b.limit {
		b.level = b.limit
	}
	b.filledAt = now
}
