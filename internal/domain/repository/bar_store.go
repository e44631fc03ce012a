package repository

import (
	"context"
	"time"

	"CoinScope/internal/domain/models"
)

// BarStore provides access to OHLCV buckets for analysis and the public API.
type BarStore interface {
	WriteBars(ctx context.Context, bars []models.Bar, tf Timeframe) error
	Bars(ctx context.Context, symbol string, from, to time.Time, tf Timeframe) ([]models.Bar, error)
	LatestBars(ctx context.Context, symbol string, n int, tf Timeframe) ([]models.Bar, error)
}
