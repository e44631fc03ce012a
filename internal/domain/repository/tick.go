package repository

import (
	"context"

	"CoinScope/internal/domain/models"
)

// TickStream is a live venue connection delivering trades as they print.
type TickStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	// Read returns the tick and error channels the collector consumes.
	Read(ctx context.Context) (<-chan *models.Tick, <-chan error)
	Reconnect(ctx context.Context) error
	IsConnected() bool
	Close() error
}

// TickPublisher hands ticks to the configured transport backend.
type TickPublisher interface {
	Publish(ctx context.Context, t *models.Tick) error
	PublishBatch(ctx context.Context, ticks []*models.Tick) error
	Close() error
}

// TickStore persists the raw tick series.
type TickStore interface {
	Init(ctx context.Context) error // ensure tables
	Store(ctx context.Context, t *models.Tick) error
	StoreBatch(ctx context.Context, ticks []*models.Tick) error
	Health(ctx context.Context) error
	Close() error
}
