package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"CoinScope/internal/domain/models"
)

type memTickStore struct {
	mu      sync.Mutex
	single  int
	last    *models.Tick
	batches [][]*models.Tick
	fail    bool
}

func (m *memTickStore) Init(ctx context.Context) error { return nil }

func (m *memTickStore) Store(ctx context.Context, t *models.Tick) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.single++
	m.last = t
	return nil
}

func (m *memTickStore) StoreBatch(ctx context.Context, ticks []*models.Tick) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("store down")
	}
	cp := make([]*models.Tick, len(ticks))
	copy(cp, ticks)
	m.batches = append(m.batches, cp)
	return nil
}

func (m *memTickStore) Health(ctx context.Context) error { return nil }
func (m *memTickStore) Close() error                     { return nil }

func (m *memTickStore) setFail(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = v
}

func (m *memTickStore) stored() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.single
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}

type memPublisher struct {
	mu        sync.Mutex
	published []*models.Tick
}

func (m *memPublisher) Publish(ctx context.Context, t *models.Tick) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, t)
	return nil
}

func (m *memPublisher) PublishBatch(ctx context.Context, ticks []*models.Tick) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, ticks...)
	return nil
}

func (m *memPublisher) Close() error { return nil }

type countMetrics struct {
	mu     sync.Mutex
	errors map[string]int
	sent   int
}

func (c *countMetrics) RecordMessageSent(backend, symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent++
}

func (c *countMetrics) RecordError(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.errors == nil {
		c.errors = map[string]int{}
	}
	c.errors[kind]++
}

func (c *countMetrics) RecordLastPrice(symbol string, price float64) {}
func (c *countMetrics) RecordLatency(op string, seconds float64)     {}

func (c *countMetrics) errCount(kind string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errors[kind]
}

func TestProcessKafkaBackendPublishes(t *testing.T) {
	pub := &memPublisher{}
	p := NewTickProcessor(pub, nil, nil, &countMetrics{}, "kafka", 0, 0)

	base := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	if err := p.Process(context.Background(), tick("BTC", base, 100, 1)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(pub.published) != 1 {
		t.Fatalf("published = %d, want 1", len(pub.published))
	}
}

func TestProcessBatchRoutesPerBackend(t *testing.T) {
	base := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	batch := []*models.Tick{
		tick("BTC", base, 100, 1),
		tick("ETH", base, 3000, 2),
	}

	pub := &memPublisher{}
	m := &countMetrics{}
	kp := NewTickProcessor(pub, nil, nil, m, "kafka", 0, 0)
	if err := kp.ProcessBatch(context.Background(), batch); err != nil {
		t.Fatalf("ProcessBatch kafka: %v", err)
	}
	if len(pub.published) != 2 {
		t.Fatalf("published = %d, want 2", len(pub.published))
	}
	if m.sent != 2 {
		t.Fatalf("sent metric = %d, want one per tick", m.sent)
	}

	store := &memTickStore{}
	cp := NewTickProcessor(nil, store, nil, &countMetrics{}, "clickhouse", 0, 0)
	if err := cp.ProcessBatch(context.Background(), batch); err != nil {
		t.Fatalf("ProcessBatch clickhouse: %v", err)
	}
	if len(store.batches) != 1 || store.stored() != 2 {
		t.Fatalf("store got %d batches / %d ticks, want 1/2", len(store.batches), store.stored())
	}

	if err := cp.ProcessBatch(context.Background(), nil); err != nil {
		t.Fatalf("empty batch should be a no-op, got %v", err)
	}
}

func TestProcessClickhouseFlushesFullBatch(t *testing.T) {
	store := &memTickStore{}
	p := NewTickProcessor(nil, store, nil, &countMetrics{}, "clickhouse", 3, time.Minute)

	base := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := p.Process(ctx, tick("BTC", base.Add(time.Duration(i)*time.Second), 100, 1)); err != nil {
			t.Fatalf("Process: %v", err)
		}
	}
	if got := store.stored(); got != 0 {
		t.Fatalf("stored before batch full = %d, want 0", got)
	}

	if err := p.Process(ctx, tick("BTC", base.Add(2*time.Second), 100, 1)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got := store.stored(); got != 3 {
		t.Fatalf("stored after batch full = %d, want 3", got)
	}
	if len(store.batches) != 1 {
		t.Fatalf("batches = %d, want one batched insert", len(store.batches))
	}
}

func TestProcessClickhouseTimerFlushesPartialBatch(t *testing.T) {
	store := &memTickStore{}
	p := NewTickProcessor(nil, store, nil, &countMetrics{}, "clickhouse", 100, 20*time.Millisecond)

	base := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	if err := p.Process(context.Background(), tick("BTC", base, 100, 1)); err != nil {
		t.Fatalf("Process: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for store.stored() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := store.stored(); got != 1 {
		t.Fatalf("stored after timer = %d, want 1", got)
	}
}

func TestProcessClickhouseRetriesFailedBatch(t *testing.T) {
	store := &memTickStore{}
	store.setFail(true)
	m := &countMetrics{}
	p := NewTickProcessor(nil, store, nil, m, "clickhouse", 2, 10*time.Millisecond)

	base := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()
	// fills the batch, first write fails and the ticks are requeued
	_ = p.Process(ctx, tick("BTC", base, 100, 1))
	_ = p.Process(ctx, tick("BTC", base.Add(time.Second), 101, 1))
	if m.errCount("store_batch") == 0 {
		t.Fatal("failed batch write not recorded")
	}
	if got := store.stored(); got != 0 {
		t.Fatalf("stored while failing = %d, want 0", got)
	}

	store.setFail(false)
	deadline := time.Now().Add(2 * time.Second)
	for store.stored() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := store.stored(); got != 2 {
		t.Fatalf("stored after recovery = %d, want 2", got)
	}
}

func TestCloseFlushesPending(t *testing.T) {
	store := &memTickStore{}
	p := NewTickProcessor(nil, store, nil, &countMetrics{}, "clickhouse", 100, time.Minute)

	base := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()
	_ = p.Process(ctx, tick("BTC", base, 100, 1))
	_ = p.Process(ctx, tick("ETH", base, 3000, 2))

	p.Close()
	if got := store.stored(); got != 2 {
		t.Fatalf("stored after Close = %d, want 2", got)
	}
}

func TestProcessUnknownBackendErrors(t *testing.T) {
	m := &countMetrics{}
	p := NewTickProcessor(nil, nil, nil, m, "sqlite", 0, 0)
	if err := p.Process(context.Background(), tick("BTC", time.Now(), 1, 1)); err == nil {
		t.Fatal("unknown backend accepted")
	}
	if m.errCount("process") != 1 {
		t.Fatalf("process errors = %d, want 1", m.errCount("process"))
	}
}
