package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

const memoryDefaultTTL = 7 * 24 * time.Hour

// memEntry holds one cached value. Data is the encoded form so reads
// behave the same as against Redis.
type memEntry struct {
	data     []byte
	expireAt time.Time
}

func (e *memEntry) expired(now time.Time) bool { return now.After(e.expireAt) }

// MemoryCache is the single-process Service implementation, used when
// Redis is disabled and in tests. Entries past MaxEntries evict the
// least recently touched; expired entries are swept on an interval.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*memEntry
	touched map[string]time.Time
	max     int
	stop    chan struct{}
	once    sync.Once
}

// NewMemoryCache starts the sweeper goroutine; stop it with Close.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxEntries:    1000,
		SweepInterval: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		entries: make(map[string]*memEntry),
		touched: make(map[string]time.Time),
		max:     cfg.MaxEntries,
		stop:    make(chan struct{}),
	}
	go mc.sweep(cfg.SweepInterval)
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = memoryDefaultTTL
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()
	if len(mc.entries) >= mc.max {
		mc.evictOldest()
	}
	now := time.Now()
	mc.entries[key] = &memEntry{data: data, expireAt: now.Add(ttl)}
	mc.touched[key] = now
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mu.Lock()
	now := time.Now()
	e, ok := mc.entries[key]
	if !ok || e.expired(now) {
		if ok {
			delete(mc.entries, key)
			delete(mc.touched, key)
		}
		mc.mu.Unlock()
		return ErrCacheMiss
	}
	mc.touched[key] = now
	data := e.data
	mc.mu.Unlock()

	if s, ok := dest.(*string); ok {
		*s = string(data)
		return nil
	}
	return json.Unmarshal(data, dest)
}

func (mc *MemoryCache) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	now := time.Now()
	if e, ok := mc.entries[key]; ok && !e.expired(now) {
		return false, nil
	}
	mc.entries[key] = &memEntry{data: []byte("1"), expireAt: now.Add(ttl)}
	mc.touched[key] = now
	return true, nil
}

func (mc *MemoryCache) Unlock(_ context.Context, key string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	delete(mc.entries, key)
	delete(mc.touched, key)
	return nil
}

// evictOldest drops the least recently touched entry. Called with the
// lock held.
func (mc *MemoryCache) evictOldest() {
	var victim string
	var oldest time.Time
	for key, at := range mc.touched {
		if victim == "" || at.Before(oldest) {
			victim, oldest = key, at
		}
	}
	if victim != "" {
		delete(mc.entries, victim)
		delete(mc.touched, victim)
	}
}

func (mc *MemoryCache) sweep(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-mc.stop:
			return
		case <-t.C:
			now := time.Now()
			mc.mu.Lock()
			for key, e := range mc.entries {
				if e.expired(now) {
					delete(mc.entries, key)
					delete(mc.touched, key)
				}
			}
			mc.mu.Unlock()
		}
	}
}

// Close stops the sweeper goroutine.
func (mc *MemoryCache) Close() error {
	mc.once.Do(func() { close(mc.stop) })
	return nil
}
