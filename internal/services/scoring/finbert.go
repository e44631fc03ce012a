package scoring

import (
	"context"
	"fmt"
	"strings"

	"CoinScope/pkg/config"
)

// FinBERTScorer scores post texts through an external classifier service
// exposing the FinBERT contract: POST {"texts": [...]} returning one
// positive/neutral/negative probability triple per input. The raw score is
// P_pos - P_neg, so it lands in [-1, 1].
type FinBERTScorer struct {
	*HTTPServiceBase
	attempts int
}

func NewFinBERTScorer(cfg *config.Config) *FinBERTScorer {
	return &FinBERTScorer{
		HTTPServiceBase: NewHTTPServiceBase(cfg.Sentiment.ServiceURL, cfg.Sentiment.Timeout),
		attempts:        3,
	}
}

type scoreRequest struct {
	Texts []string `json:"texts"`
}

type scoreTriple struct {
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
}

type scoreResponse struct {
	Scores []scoreTriple `json:"scores"`
}

// Score returns one score per input text. Blank texts score 0 and are not
// sent to the service; when every text is blank no request is made.
func (s *FinBERTScorer) Score(ctx context.Context, texts []string) ([]float64, error) {
	out := make([]float64, len(texts))

	send := make([]string, 0, len(texts))
	idx := make([]int, 0, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		send = append(send, t)
		idx = append(idx, i)
	}
	if len(send) == 0 {
		return out, nil
	}

	var resp scoreResponse
	if err := s.PostJSONWithRetry(ctx, "/score", scoreRequest{Texts: send}, &resp, s.attempts); err != nil {
		return nil, fmt.Errorf("score texts: %w", err)
	}
	if len(resp.Scores) != len(send) {
		return nil, fmt.Errorf("score texts: got %d scores for %d texts", len(resp.Scores), len(send))
	}
	for j, tr := range resp.Scores {
		out[idx[j]] = tr.Positive - tr.Negative
	}
	return out, nil
}
