package usecase

import (
	"context"
	"sync"
	"time"

	"CoinScope/internal/domain/models"
	domrepo "CoinScope/internal/domain/repository"
	applogger "CoinScope/pkg/logger"
	"CoinScope/pkg/util"
)

// BarBuilder folds ticks into OHLCV buckets at a fixed granularity and
// flushes a symbol's bucket to the store once a newer tick rolls past it.
// Late ticks older than the open bucket are dropped; the replacing engine
// underneath absorbs re-emitted buckets.
type BarBuilder struct {
	mu      sync.Mutex
	step    time.Duration
	tf      domrepo.Timeframe
	store   domrepo.BarStore
	open    map[string]*models.Bar
	metrics domrepo.Metrics
	l       *applogger.Logger
}

func NewBarBuilder(store domrepo.BarStore, tf domrepo.Timeframe, metrics domrepo.Metrics) *BarBuilder {
	step := tf.Duration()
	if step <= 0 {
		step = 30 * time.Minute
		tf = domrepo.TF30m
	}
	return &BarBuilder{
		step:    step,
		tf:      tf,
		store:   store,
		open:    make(map[string]*models.Bar),
		metrics: metrics,
	}
}

// SetLogger injects a structured logger.
func (b *BarBuilder) SetLogger(l *applogger.Logger) { b.l = l }

// Add folds one tick into its bucket, flushing the previous bucket of the
// same symbol when the tick opens a new one.
func (b *BarBuilder) Add(ctx context.Context, t *models.Tick) error {
	if t == nil || t.Symbol == "" || t.Price <= 0 {
		return nil
	}
	bucket := util.Bucket(time.Unix(t.Timestamp, 0), b.step)

	b.mu.Lock()
	cur := b.open[t.Symbol]
	var done *models.Bar
	switch {
	case cur == nil:
		b.open[t.Symbol] = newBar(t, bucket)
	case bucket.After(cur.Bucket):
		done = cur
		b.open[t.Symbol] = newBar(t, bucket)
	case bucket.Before(cur.Bucket):
		// late tick from a closed bucket
		if b.metrics != nil {
			b.metrics.RecordError("late_tick")
		}
	default:
		accumulate(cur, t)
	}
	b.mu.Unlock()

	if done == nil {
		return nil
	}
	return b.flush(ctx, done)
}

// FlushAll writes every open bucket, used on shutdown so partial buckets
// are not lost.
func (b *BarBuilder) FlushAll(ctx context.Context) error {
	b.mu.Lock()
	bars := make([]models.Bar, 0, len(b.open))
	for _, bar := range b.open {
		bars = append(bars, *bar)
	}
	b.open = make(map[string]*models.Bar)
	b.mu.Unlock()

	if len(bars) == 0 {
		return nil
	}
	return b.store.WriteBars(ctx, bars, b.tf)
}

func (b *BarBuilder) flush(ctx context.Context, bar *models.Bar) error {
	err := b.store.WriteBars(ctx, []models.Bar{*bar}, b.tf)
	if err != nil {
		if b.metrics != nil {
			b.metrics.RecordError("bar_flush")
		}
		if b.l != nil {
			b.l.Error("bar flush failed",
				applogger.String("symbol", bar.Symbol),
				applogger.String("tf", string(b.tf)),
				applogger.Error(err),
			)
		}
		return err
	}
	if b.l != nil {
		b.l.Debug("bar flushed",
			applogger.String("symbol", bar.Symbol),
			applogger.String("tf", string(b.tf)),
			applogger.Float64("close", bar.Close),
		)
	}
	return nil
}

func newBar(t *models.Tick, bucket time.Time) *models.Bar {
	return &models.Bar{
		Bucket: bucket,
		Symbol: t.Symbol,
		Open:   t.Price,
		High:   t.Price,
		Low:    t.Price,
		Close:  t.Price,
		Volume: t.Volume,
	}
}

func accumulate(b *models.Bar, t *models.Tick) {
	if t.Price > b.High {
		b.High = t.Price
	}
	if t.Price < b.Low {
		b.Low = t.Price
	}
	b.Close = t.Price
	b.Volume += t.Volume
}
