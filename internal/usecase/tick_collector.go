package usecase

import (
	"context"

	"CoinScope/internal/domain/models"
	drepo "CoinScope/internal/domain/repository"
	mid "CoinScope/internal/middleware"
)

// TickCollector drives the venue stream: it connects, subscribes, and pumps
// everything the stream delivers into the pipeline until the context ends.
type TickCollector struct {
	stream  drepo.TickStream
	proc    *TickProcessor
	metrics drepo.Metrics
	pipe    *mid.IngestPipeline
}

func NewTickCollector(stream drepo.TickStream, proc *TickProcessor, metrics drepo.Metrics, pipe *mid.IngestPipeline) *TickCollector {
	return &TickCollector{stream: stream, proc: proc, metrics: metrics, pipe: pipe}
}

// IsConnected reports whether the venue connection is up. The health probe
// surfaces it; reconnects happen in the background either way.
func (c *TickCollector) IsConnected() bool { return c.stream.IsConnected() }

// Start connects and subscribes, then consumes in the background until ctx
// ends. A configured pipeline flushes its buffer on the same context.
func (c *TickCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	ticks, errs := c.stream.Read(ctx)
	go c.consume(ctx, ticks, errs)
	return nil
}

func (c *TickCollector) consume(ctx context.Context, ticks <-chan *models.Tick, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				// stream closed its error channel; keep draining ticks
				errs = nil
				continue
			}
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case t, ok := <-ticks:
			if !ok {
				return
			}
			if t == nil {
				continue
			}
			c.dispatch(ctx, t)
		}
	}
}

// dispatch hands the tick to the pipeline when one is configured, otherwise
// straight to the processor. Delivery failures are counted downstream.
func (c *TickCollector) dispatch(ctx context.Context, t *models.Tick) {
	if c.pipe != nil {
		_ = c.pipe.Process(ctx, t)
	} else {
		_ = c.proc.Process(ctx, t)
	}
	c.metrics.RecordLastPrice(t.Symbol, t.Price)
}

// Processor returns the processor so the caller can manage its lifecycle.
func (c *TickCollector) Processor() *TickProcessor { return c.proc }

// Shutdown stops the pipeline and closes the stream.
func (c *TickCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
