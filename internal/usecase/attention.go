package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"CoinScope/internal/analysis"
	"CoinScope/internal/domain/models"
	domservice "CoinScope/internal/domain/service"
)

// AttentionUseCase picks the one symbol most worth reviewing out of a
// candidate list, feeding the selector a compact market context per symbol.
type AttentionUseCase struct {
	analysis *analysis.Service
	selector domservice.AttentionSelector
	now      func() time.Time
}

func NewAttentionUseCase(svc *analysis.Service, selector domservice.AttentionSelector) *AttentionUseCase {
	return &AttentionUseCase{analysis: svc, selector: selector, now: time.Now}
}

func (uc *AttentionUseCase) SelectAttention(ctx context.Context, symbols []string) (*models.AttentionResult, error) {
	cleaned := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("no symbols given")
	}

	summaries := make(map[string]string, len(cleaned))
	for _, sym := range cleaned {
		t, err := uc.analysis.Market(ctx, sym, analysis.MarketConcise, analysis.SourceFile)
		if err != nil {
			summaries[sym] = "error: " + err.Error()
			continue
		}
		line := t.Summary()
		if close, ok := t.Last("Close_Price"); ok {
			line = fmt.Sprintf("%s close=%.4f", line, close)
		}
		summaries[sym] = line
	}

	pick, err := uc.selector.SelectAttention(ctx, cleaned, summaries)
	if err != nil {
		return nil, err
	}
	return &models.AttentionResult{
		Selected:    pick,
		GeneratedAt: uc.now().Unix(),
	}, nil
}
