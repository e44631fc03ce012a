package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"CoinScope/internal/analysis"
	"CoinScope/internal/domain/models"
	domrepo "CoinScope/internal/domain/repository"
	"CoinScope/internal/usecase"
)

type stubBarStore struct {
	bars    []models.Bar
	gotFrom time.Time
	gotTo   time.Time
}

func (s *stubBarStore) WriteBars(context.Context, []models.Bar, domrepo.Timeframe) error { return nil }

func (s *stubBarStore) Bars(_ context.Context, _ string, from, to time.Time, _ domrepo.Timeframe) ([]models.Bar, error) {
	s.gotFrom, s.gotTo = from, to
	return s.bars, nil
}

func (s *stubBarStore) LatestBars(_ context.Context, _ string, n int, _ domrepo.Timeframe) ([]models.Bar, error) {
	if n < len(s.bars) {
		return s.bars[len(s.bars)-n:], nil
	}
	return s.bars, nil
}

func storeBars(n int) []models.Bar {
	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, n)
	for i := range bars {
		px := 100 + float64(i)
		bars[i] = models.Bar{
			Bucket: base.Add(time.Duration(i) * 30 * time.Minute),
			Symbol: "BTC",
			Open:   px,
			High:   px + 1,
			Low:    px - 1,
			Close:  px + 0.5,
			Volume: 10,
		}
	}
	return bars
}

func newAnalysisHandler(t *testing.T, store domrepo.BarStore) *AnalysisHandler {
	t.Helper()
	svc := analysis.NewService(analysis.Config{MarketDir: t.TempDir()}, analysis.DefaultWindows(),
		analysis.WithBarStore(store))
	return NewAnalysisHandler(svc, usecase.NewBarsUseCase(store))
}

func TestMarketFromStoreEnvelope(t *testing.T) {
	h := newAnalysisHandler(t, &stubBarStore{bars: storeBars(48)})

	req := httptest.NewRequest(http.MethodGet, "/api/analysis/market?symbol=BTC&source=store", nil)
	rec := doRequest(h.Market, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var env struct {
		Status int           `json:"status"`
		Data   tableDocument `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Status != http.StatusOK {
		t.Fatalf("inner status = %d", env.Status)
	}
	if env.Data.Symbol != "BTC" {
		t.Fatalf("symbol = %q", env.Data.Symbol)
	}
	if len(env.Data.Rows) != 48 {
		t.Fatalf("rows = %d, want 48", len(env.Data.Rows))
	}
	last := env.Data.Rows[len(env.Data.Rows)-1]
	if _, ok := last.Values["Close_Price"]; !ok {
		t.Fatalf("last row missing Close_Price: %v", last.Values)
	}
	// 48 half-hour buckets give enough history for the indicator layers
	if _, ok := last.Values["RSI_14"]; !ok {
		t.Fatalf("last row missing RSI_14: %v", last.Values)
	}
}

func TestMarketShortHistorySkipsIndicatorColumns(t *testing.T) {
	h := newAnalysisHandler(t, &stubBarStore{bars: storeBars(5)})

	req := httptest.NewRequest(http.MethodGet, "/api/analysis/market?symbol=BTC&source=store", nil)
	rec := doRequest(h.Market, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var env struct {
		Data tableDocument `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if len(env.Data.Rows) != 5 {
		t.Fatalf("rows = %d, want 5", len(env.Data.Rows))
	}
	last := env.Data.Rows[len(env.Data.Rows)-1]
	if _, ok := last.Values["Close_Price"]; !ok {
		t.Fatal("price column must survive short history")
	}
	if _, ok := last.Values["RSI_14"]; ok {
		t.Fatal("indicator columns must be absent below the history threshold")
	}
}

func TestMarketRequiresSymbol(t *testing.T) {
	h := newAnalysisHandler(t, &stubBarStore{})

	rec := doRequest(h.Market, httptest.NewRequest(http.MethodGet, "/api/analysis/market", nil))

	var env struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Status != http.StatusBadRequest {
		t.Fatalf("inner status = %d, want 400", env.Status)
	}
}

func TestBarsEndpoint(t *testing.T) {
	h := newAnalysisHandler(t, &stubBarStore{bars: storeBars(12)})

	req := httptest.NewRequest(http.MethodGet, "/api/bars?symbol=BTC&n=5", nil)
	rec := doRequest(h.Bars, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var env struct {
		Data struct {
			Rows  []models.Bar `json:"rows"`
			Total int64        `json:"total"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Data.Total != 5 || len(env.Data.Rows) != 5 {
		t.Fatalf("total = %d rows = %d, want 5", env.Data.Total, len(env.Data.Rows))
	}
	// latest-N reads come back ascending
	if !env.Data.Rows[0].Bucket.Before(env.Data.Rows[4].Bucket) {
		t.Fatal("bars are not ascending")
	}
}

func TestBarsRangeEndpoint(t *testing.T) {
	store := &stubBarStore{bars: storeBars(12)}
	h := newAnalysisHandler(t, store)

	// from is RFC3339 off a bucket boundary, to is unix seconds
	req := httptest.NewRequest(http.MethodGet,
		"/api/bars?symbol=BTC&from=2024-03-10T01:07:00Z&to=1710046800", nil)
	rec := doRequest(h.Bars, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var env struct {
		Data usecase.GetBarsResult `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Data.Symbol != "BTC" || env.Data.Count != 12 {
		t.Fatalf("symbol = %q count = %d", env.Data.Symbol, env.Data.Count)
	}
	// the queried range snaps down to 30m bucket starts
	wantFrom := time.Date(2024, 3, 10, 1, 0, 0, 0, time.UTC)
	if !store.gotFrom.Equal(wantFrom) {
		t.Fatalf("from = %v, want %v", store.gotFrom, wantFrom)
	}
	if !store.gotTo.Equal(time.Unix(1710046800, 0).UTC().Truncate(30*time.Minute)) {
		t.Fatalf("to = %v not aligned", store.gotTo)
	}
}

func TestChainWithoutResourceIsEmptyTable(t *testing.T) {
	h := newAnalysisHandler(t, &stubBarStore{})

	rec := doRequest(h.Chain, httptest.NewRequest(http.MethodGet, "/api/analysis/chain?symbol=BTC", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var env struct {
		Status int           `json:"status"`
		Data   tableDocument `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	// missing source is a normal condition: empty table, not an error
	if env.Status != http.StatusOK || len(env.Data.Rows) != 0 {
		t.Fatalf("status = %d rows = %d", env.Status, len(env.Data.Rows))
	}
}
