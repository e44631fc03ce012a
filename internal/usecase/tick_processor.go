package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"CoinScope/internal/domain/models"
	drepo "CoinScope/internal/domain/repository"
)

const storeBatchTimeout = 10 * time.Second

// TickProcessor routes ticks to the configured ingestion backend. With the
// kafka backend ticks are published and the consumer side builds bars; with
// the clickhouse backend ticks are folded into bars in-process and stored in
// micro-batches, since ClickHouse penalizes single-row inserts.
type TickProcessor struct {
	pub     drepo.TickPublisher
	store   drepo.TickStore
	builder *BarBuilder
	metrics drepo.Metrics
	backend string
	batchSz int
	batchTO time.Duration

	mu      sync.Mutex
	pending []*models.Tick
	timer   *time.Timer
	closed  bool
}

// NewTickProcessor creates a new TickProcessor instance. batchSz <= 1
// disables micro-batching and every tick is stored synchronously.
func NewTickProcessor(
	pub drepo.TickPublisher,
	store drepo.TickStore,
	builder *BarBuilder,
	metrics drepo.Metrics,
	backend string,
	batchSz int,
	batchTO time.Duration,
) *TickProcessor {
	if batchTO <= 0 {
		batchTO = 2 * time.Second
	}
	return &TickProcessor{
		pub:     pub,
		store:   store,
		builder: builder,
		metrics: metrics,
		backend: backend,
		batchSz: batchSz,
		batchTO: batchTO,
	}
}

// Process routes a single tick to the configured backend. A tick accepted
// into the store batch counts as processed; batch write failures are retried
// on the next flush rather than surfaced to the caller.
func (p *TickProcessor) Process(ctx context.Context, t *models.Tick) error {
	if t == nil {
		return fmt.Errorf("tick is nil")
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.Publish(ctx, t)
	case "clickhouse":
		if p.builder != nil {
			err = p.builder.Add(ctx, t)
		}
		if err == nil {
			if p.batchSz > 1 {
				p.enqueue(t)
			} else {
				err = p.store.Store(ctx, t)
			}
		}
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process")
		return fmt.Errorf("process tick: %w", err)
	}

	p.metrics.RecordMessageSent(p.backend, t.Symbol)
	p.metrics.RecordLatency("process", time.Since(start).Seconds())

	return nil
}

// ProcessBatch routes multiple ticks in a batch.
func (p *TickProcessor) ProcessBatch(ctx context.Context, ticks []*models.Tick) error {
	if len(ticks) == 0 {
		return nil
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.PublishBatch(ctx, ticks)
	case "clickhouse":
		err = p.store.StoreBatch(ctx, ticks)
		if err == nil && p.builder != nil {
			for _, t := range ticks {
				if addErr := p.builder.Add(ctx, t); addErr != nil && err == nil {
					err = addErr
				}
			}
		}
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process_batch")
		return fmt.Errorf("process batch: %w", err)
	}

	for _, t := range ticks {
		p.metrics.RecordMessageSent(p.backend, t.Symbol)
	}
	p.metrics.RecordLatency("process_batch", time.Since(start).Seconds())

	return nil
}

// enqueue adds a tick to the pending store batch, flushing when the batch is
// full. The timer covers quiet tails where the batch never fills.
func (p *TickProcessor) enqueue(t *models.Tick) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.pending = append(p.pending, t)
	if len(p.pending) >= p.batchSz {
		batch := p.takeLocked()
		p.mu.Unlock()
		p.writeBatch(batch)
		return
	}
	if p.timer == nil {
		p.timer = time.AfterFunc(p.batchTO, p.flushTimer)
	}
	p.mu.Unlock()
}

// takeLocked detaches the pending batch and disarms the timer. Caller holds mu.
func (p *TickProcessor) takeLocked() []*models.Tick {
	batch := p.pending
	p.pending = nil
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	return batch
}

func (p *TickProcessor) flushTimer() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	batch := p.takeLocked()
	p.mu.Unlock()
	p.writeBatch(batch)
}

// writeBatch stores a detached batch. On failure the ticks are requeued in
// front of newer pending ones so a later flush retries them, up to a cap
// that sheds the oldest ticks when the store stays down.
func (p *TickProcessor) writeBatch(batch []*models.Tick) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeBatchTimeout)
	defer cancel()

	start := time.Now()
	if err := p.store.StoreBatch(ctx, batch); err != nil {
		p.metrics.RecordError("store_batch")
		p.requeue(batch)
		return
	}
	p.metrics.RecordLatency("store_batch", time.Since(start).Seconds())
}

func (p *TickProcessor) requeue(batch []*models.Tick) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.pending = append(batch, p.pending...)
	if max := p.batchSz * 8; len(p.pending) > max {
		dropped := len(p.pending) - max
		p.pending = p.pending[dropped:]
		for i := 0; i < dropped; i++ {
			p.metrics.RecordError("store_drop")
		}
	}
	if p.timer == nil {
		p.timer = time.AfterFunc(p.batchTO, p.flushTimer)
	}
}

// Close flushes the pending batch and closes underlying resources.
func (p *TickProcessor) Close() {
	p.mu.Lock()
	batch := p.takeLocked()
	p.closed = true
	p.mu.Unlock()

	if len(batch) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), storeBatchTimeout)
		if err := p.store.StoreBatch(ctx, batch); err != nil {
			p.metrics.RecordError("store_batch")
		}
		cancel()
	}

	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
