package repository

import (
	"context"

	"CoinScope/internal/domain/models"
)

// AdviceStore persists generated advices and serves the history endpoints.
type AdviceStore interface {
	Init(ctx context.Context) error // ensure tables
	Insert(ctx context.Context, a *models.Advice) (int64, error)
	LastN(ctx context.Context, n int) ([]models.Advice, error)
	Health(ctx context.Context) error
	Close() error
}
