package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"CoinScope/internal/domain/models"
	domrepo "CoinScope/internal/domain/repository"
)

const (
	flushBaseDelay = 50 * time.Millisecond
	flushMaxDelay  = 2 * time.Second
)

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, t *models.Tick) error
}

// IngestPipeline sits between the trade stream and the backend.
// It validates, throttles per symbol, optionally transforms, and buffers
// ticks when downstream is unavailable.
type IngestPipeline struct {
	proc    Proc
	metrics domrepo.Metrics
	maxRPS  int
	bufSize int
	bufCh   chan *models.Tick
	stopCh  chan struct{}
	started bool

	mu     sync.Mutex
	window map[string]rpsWindow
	// optional tick rewrite hook (symbol normalization etc.)
	transform func(*models.Tick) *models.Tick
}

// rpsWindow counts ticks accepted for one symbol during one wall-clock second.
type rpsWindow struct {
	sec int64
	n   int
}

type PipelineOption func(*IngestPipeline)

// WithMaxRPS sets the max ticks per second per symbol.
func WithMaxRPS(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the temporary buffer size used when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithTransform sets a rewrite hook applied before validation of the result.
func WithTransform(fn func(*models.Tick) *models.Tick) PipelineOption {
	return func(p *IngestPipeline) { p.transform = fn }
}

// NewIngestPipeline creates a new pipeline.
func NewIngestPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *IngestPipeline {
	p := &IngestPipeline{
		proc:    proc,
		metrics: metrics,
		maxRPS:  20,   // default throttle per symbol
		bufSize: 1000, // default buffer
		stopCh:  make(chan struct{}),
		window:  make(map[string]rpsWindow),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.Tick, p.bufSize)
	return p
}

// Start launches background flushing of buffered ticks.
func (p *IngestPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go p.flushLoop(ctx)
}

// Stop stops the background flushing.
func (p *IngestPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// flushLoop retries buffered ticks against downstream, doubling the delay
// after each failure up to flushMaxDelay. The wait is interruptible so Stop
// never blocks on a sleeping flusher.
func (p *IngestPipeline) flushLoop(ctx context.Context) {
	delay := flushBaseDelay
	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case t := <-p.bufCh:
			if t == nil {
				continue
			}
			if err := p.proc.Process(ctx, t); err == nil {
				delay = flushBaseDelay
				continue
			}
			p.metrics.RecordError("pipeline_flush")
			// put the tick back first so nothing is held across the wait
			select {
			case p.bufCh <- t:
			default:
				p.metrics.RecordError("pipeline_buffer_drop")
			}
			select {
			case <-time.After(delay):
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			}
			if delay < flushMaxDelay {
				delay *= 2
			}
		}
	}
}

// Process validates, throttles, and forwards a tick downstream, buffering on errors.
func (p *IngestPipeline) Process(ctx context.Context, t *models.Tick) error {
	start := time.Now()
	if err := validateTick(t); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if p.transform != nil {
		if t = p.transform(t); validateTick(t) != nil {
			p.metrics.RecordError("pipeline_transform_invalid")
			return fmt.Errorf("transform produced an invalid tick")
		}
	}
	if !p.allow(t.Symbol, start) {
		// throttled; drop without error so the stream keeps flowing
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if err := p.proc.Process(ctx, t); err != nil {
		p.metrics.RecordError("pipeline_process")
		p.buffer(t)
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

// buffer queues t for the flusher without blocking the caller.
func (p *IngestPipeline) buffer(t *models.Tick) {
	select {
	case p.bufCh <- t:
		p.metrics.RecordLatency("pipeline_buffer_depth", float64(len(p.bufCh)))
	default:
		p.metrics.RecordError("pipeline_buffer_full")
	}
}

func validateTick(t *models.Tick) error {
	if t == nil {
		return fmt.Errorf("tick nil")
	}
	if t.Symbol == "" {
		return fmt.Errorf("symbol empty")
	}
	if t.Timestamp <= 0 {
		return fmt.Errorf("timestamp invalid")
	}
	if t.Price <= 0 || t.Volume < 0 {
		return fmt.Errorf("non-positive price or negative volume")
	}
	return nil
}

// allow admits up to maxRPS ticks per symbol in any wall-clock second.
func (p *IngestPipeline) allow(symbol string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	w := p.window[symbol]
	if sec := now.Unix(); w.sec != sec {
		w = rpsWindow{sec: sec}
	}
	if w.n >= p.maxRPS {
		p.window[symbol] = w
		return false
	}
	w.n++
	p.window[symbol] = w
	return true
}
