package service

import (
	"context"

	"CoinScope/internal/domain/models"
)

// AdvisoryInput is everything the advisor sees for one symbol: the compact
// analysis summaries plus the market stats used for price attribution.
type AdvisoryInput struct {
	Symbol   string
	Summary  string
	Analyses map[string]string
	Stats    *models.Stats24h
	LastBar  *models.ResourceBar
}

// Advisor produces a trading recommendation from an analysis pass.
type Advisor interface {
	Advise(ctx context.Context, in AdvisoryInput) (*models.Advice, error)
}

// AttentionSelector picks the single symbol most worth reviewing out of a
// candidate set.
type AttentionSelector interface {
	SelectAttention(ctx context.Context, candidates []string, summaries map[string]string) (*models.AttentionPick, error)
}

// SentimentScorer scores texts in [-1, 1], one score per input.
type SentimentScorer interface {
	Score(ctx context.Context, texts []string) ([]float64, error)
}
