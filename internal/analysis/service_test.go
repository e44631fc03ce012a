package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"CoinScope/internal/domain/models"
	domrepo "CoinScope/internal/domain/repository"
	ts "CoinScope/internal/timeseries"
)

func testService(t *testing.T, opts ...Option) (*Service, Config) {
	t.Helper()
	cfg := Config{
		MarketDir:    t.TempDir(),
		ChainDir:     t.TempDir(),
		DeveloperDir: t.TempDir(),
		SocialDir:    t.TempDir(),
	}
	opts = append([]Option{WithValuation(fixedValuation{v: 1.0})}, opts...)
	return NewService(cfg, DefaultWindows(), opts...), cfg
}

func TestServiceRunAllMissingResources(t *testing.T) {
	svc, _ := testService(t)
	bundle := svc.RunAll(context.Background(), "BTC", SourceFile)

	if len(bundle.Errors) != 0 {
		t.Fatalf("missing resources are not errors, got %v", bundle.Errors)
	}
	for name, tab := range map[string]*ts.Table{
		"market": bundle.Market, "chain": bundle.Chain,
		"dev": bundle.Developer, "sentiment": bundle.Sentiment,
	} {
		if tab == nil || !tab.IsEmpty() {
			t.Fatalf("%s: want non-nil empty table, got %v", name, tab)
		}
	}
	if s := bundle.Summary(); !strings.Contains(s, "market: rows=0") {
		t.Fatalf("summary = %q", s)
	}
}

func TestServiceMarketFromFiles(t *testing.T) {
	svc, cfg := testService(t)
	doc := marketDoc(t, 24, trendingBar)
	path := filepath.Join(cfg.MarketDir, "BTC.txt")
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		t.Fatalf("write resource: %v", err)
	}

	// Lowercase symbol resolves to the uppercase resource file.
	tab, err := svc.Market(context.Background(), "btc", MarketConcise, SourceFile)
	if err != nil {
		t.Fatalf("Market: %v", err)
	}
	if tab.Len() != 24 {
		t.Fatalf("rows = %d, want 24", tab.Len())
	}
	for _, col := range []string{"Close_Price", "RSI_14", "VWAP_Dev_Pct"} {
		if !tab.Has(col) {
			t.Fatalf("missing %s in %v", col, tab.Columns())
		}
	}
}

type fakeScorer struct {
	gotTexts []string
	scores   []float64
	err      error
}

func (f *fakeScorer) Score(ctx context.Context, texts []string) ([]float64, error) {
	f.gotTexts = texts
	if f.err != nil {
		return nil, f.err
	}
	return f.scores, nil
}

func TestServiceSentimentScorerMapping(t *testing.T) {
	scorer := &fakeScorer{scores: []float64{0.5, -0.5}}
	svc, cfg := testService(t, WithScorer(scorer))

	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	posts := []models.SocialPost{
		{Content: "good", Timestamp: base},
		{Content: "   ", Timestamp: base.Add(30 * time.Minute)}, // blank, scored neutral
		{Content: "bad", Timestamp: base.Add(time.Hour)},
	}
	doc, _ := json.Marshal(models.SocialDocument{Symbol: "BTC", Posts: posts})
	if err := os.WriteFile(filepath.Join(cfg.SocialDir, "BTC.txt"), doc, 0o644); err != nil {
		t.Fatalf("write resource: %v", err)
	}

	tab, err := svc.Sentiment(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("Sentiment: %v", err)
	}
	if len(scorer.gotTexts) != 2 || scorer.gotTexts[0] != "good" || scorer.gotTexts[1] != "bad" {
		t.Fatalf("scorer received %v, want the two non-blank posts", scorer.gotTexts)
	}
	got, _ := tab.Column("Sentiment_Score")
	if len(got) != 3 || got[0] != 0.5 || got[1] != 0 || got[2] != -0.5 {
		t.Fatalf("scores = %v, want [0.5 0 -0.5]", got)
	}
}

func TestServiceSentimentScorerFailure(t *testing.T) {
	scorer := &fakeScorer{err: fmt.Errorf("model endpoint down")}
	svc, cfg := testService(t, WithScorer(scorer))

	posts := []models.SocialPost{{Content: "x", Timestamp: time.Now().UTC()}}
	doc, _ := json.Marshal(models.SocialDocument{Symbol: "BTC", Posts: posts})
	if err := os.WriteFile(filepath.Join(cfg.SocialDir, "BTC.txt"), doc, 0o644); err != nil {
		t.Fatalf("write resource: %v", err)
	}
	if _, err := svc.Sentiment(context.Background(), "BTC"); err == nil {
		t.Fatalf("scorer failure must surface, got nil error")
	}
}

type fakeBarStore struct {
	bars    []models.Bar
	gotN    int
	gotTF   domrepo.Timeframe
	lastErr error
}

func (f *fakeBarStore) WriteBars(ctx context.Context, bars []models.Bar, tf domrepo.Timeframe) error {
	return nil
}

func (f *fakeBarStore) Bars(ctx context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe) ([]models.Bar, error) {
	return f.bars, f.lastErr
}

func (f *fakeBarStore) LatestBars(ctx context.Context, symbol string, n int, tf domrepo.Timeframe) ([]models.Bar, error) {
	f.gotN = n
	f.gotTF = tf
	return f.bars, f.lastErr
}

func TestServiceMarketStoreMode(t *testing.T) {
	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeBarStore{}
	for i := 0; i < 30; i++ {
		p := 100 + float64(i)
		store.bars = append(store.bars, models.Bar{
			Bucket: base.Add(time.Duration(i) * 30 * time.Minute),
			Symbol: "BTC", Open: p, High: p + 1, Low: p - 1, Close: p, Volume: 10,
		})
	}
	svc, _ := testService(t, WithBarStore(store))

	tab, err := svc.Market(context.Background(), "BTC", MarketFull, SourceStore)
	if err != nil {
		t.Fatalf("Market: %v", err)
	}
	if store.gotN != 600 || store.gotTF != domrepo.TF30m {
		t.Fatalf("store queried with n=%d tf=%s, want 600 and 30m", store.gotN, store.gotTF)
	}
	if tab.Len() != 30 || !tab.Has("RSI_14") || !tab.Has("CHOP_14") {
		t.Fatalf("store-mode table rows=%d cols=%v", tab.Len(), tab.Columns())
	}
}

func TestServiceStoreModeWithoutStore(t *testing.T) {
	svc, _ := testService(t)
	if _, err := svc.Market(context.Background(), "BTC", MarketConcise, SourceStore); err == nil {
		t.Fatalf("store source without a store must fail")
	}
}

func TestServiceStoreErrorPropagates(t *testing.T) {
	store := &fakeBarStore{lastErr: fmt.Errorf("clickhouse unreachable")}
	svc, _ := testService(t, WithBarStore(store))
	_, err := svc.Market(context.Background(), "BTC", MarketConcise, SourceStore)
	if err == nil || !strings.Contains(err.Error(), "load bars") {
		t.Fatalf("err = %v, want wrapped load failure", err)
	}
}
