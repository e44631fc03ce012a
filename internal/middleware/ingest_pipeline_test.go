package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"CoinScope/internal/domain/models"
)

type stubProc struct {
	mu    sync.Mutex
	ticks []*models.Tick
	fail  bool
}

func (s *stubProc) Process(_ context.Context, t *models.Tick) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("downstream down")
	}
	s.ticks = append(s.ticks, t)
	return nil
}

func (s *stubProc) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ticks)
}

func (s *stubProc) setFail(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = v
}

type stubMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func newStubMetrics() *stubMetrics {
	return &stubMetrics{errors: make(map[string]int)}
}

func (m *stubMetrics) RecordMessageSent(string, string) {}
func (m *stubMetrics) RecordLastPrice(string, float64) {}
func (m *stubMetrics) RecordLatency(string, float64) {}

func (m *stubMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *stubMetrics) errorCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

func validTick(sym string) *models.Tick {
	return &models.Tick{Symbol: sym, Timestamp: time.Now().Unix(), Price: 100, Volume: 1}
}

func TestProcessRejectsInvalidTicks(t *testing.T) {
	proc := &stubProc{}
	metrics := newStubMetrics()
	p := NewIngestPipeline(proc, metrics)

	bad := []*models.Tick{
		nil,
		{Symbol: "", Timestamp: 1, Price: 1, Volume: 1},
		{Symbol: "BTC", Timestamp: 0, Price: 1, Volume: 1},
		{Symbol: "BTC", Timestamp: 1, Price: 0, Volume: 1},
		{Symbol: "BTC", Timestamp: 1, Price: 1, Volume: -1},
	}
	for i, tick := range bad {
		if err := p.Process(context.Background(), tick); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
	if got := proc.count(); got != 0 {
		t.Fatalf("invalid ticks reached downstream: %d", got)
	}
	if metrics.errorCount("pipeline_validate") != len(bad) {
		t.Fatalf("pipeline_validate count = %d, want %d", metrics.errorCount("pipeline_validate"), len(bad))
	}
}

func TestProcessThrottlesPerSymbol(t *testing.T) {
	proc := &stubProc{}
	metrics := newStubMetrics()
	p := NewIngestPipeline(proc, metrics, WithMaxRPS(1))

	// two rapid ticks for the same symbol: second is dropped without error
	if err := p.Process(context.Background(), validTick("BTC")); err != nil {
		t.Fatalf("first tick: %v", err)
	}
	if err := p.Process(context.Background(), validTick("BTC")); err != nil {
		t.Fatalf("throttled tick should not error: %v", err)
	}
	// a different symbol is not affected
	if err := p.Process(context.Background(), validTick("ETH")); err != nil {
		t.Fatalf("other symbol: %v", err)
	}

	if got := proc.count(); got != 2 {
		t.Fatalf("downstream got %d ticks, want 2", got)
	}
	if metrics.errorCount("pipeline_throttle") != 1 {
		t.Fatalf("pipeline_throttle count = %d, want 1", metrics.errorCount("pipeline_throttle"))
	}
}

func TestProcessBuffersOnDownstreamFailure(t *testing.T) {
	proc := &stubProc{}
	metrics := newStubMetrics()
	p := NewIngestPipeline(proc, metrics, WithBufferSize(4))

	proc.setFail(true)
	if err := p.Process(context.Background(), validTick("BTC")); err == nil {
		t.Fatal("expected downstream error")
	}
	if len(p.bufCh) != 1 {
		t.Fatalf("buffer depth = %d, want 1", len(p.bufCh))
	}

	// once downstream recovers, the flusher drains the buffer
	proc.setFail(false)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	deadline := time.After(2 * time.Second)
	for proc.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("buffered tick was never flushed")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestTransformRunsBeforeValidation(t *testing.T) {
	proc := &stubProc{}
	metrics := newStubMetrics()
	p := NewIngestPipeline(proc, metrics, WithTransform(func(t *models.Tick) *models.Tick {
		t.Symbol = ""
		return t
	}))

	if err := p.Process(context.Background(), validTick("BTC")); err == nil {
		t.Fatal("expected transform output to fail validation")
	}
	if metrics.errorCount("pipeline_transform_invalid") != 1 {
		t.Fatal("transform invalid metric not recorded")
	}
}
