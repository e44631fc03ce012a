package marketdata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"CoinScope/pkg/config"
)

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Kraken.RESTURL = baseURL
	cfg.Kraken.RequestTimeout = 5 * time.Second
	cfg.Analysis.Granularity = 30 * time.Minute
	cfg.Resources.MarketDir = t.TempDir()
	return cfg
}

func krakenHandler(t *testing.T, nBars int, gotQuery *map[string]string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if gotQuery != nil {
			q := map[string]string{}
			for k := range r.URL.Query() {
				q[k] = r.URL.Query().Get(k)
			}
			*gotQuery = q
		}
		base := int64(1700000000)
		rows := make([][]interface{}, 0, nBars)
		for i := 0; i < nBars; i++ {
			ts := base + int64(i)*1800
			// Kraken serves prices as strings.
			rows = append(rows, []interface{}{
				ts, "100.0", "102.0", "99.0", "101.0", "100.5", "12.5", 42,
			})
		}
		resp := map[string]interface{}{
			"error": []string{},
			"result": map[string]interface{}{
				"XXBTZUSD": rows,
				"last":     base + int64(nBars-1)*1800,
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func TestKrakenPairMapping(t *testing.T) {
	c := NewKrakenClient(testConfig(t, "http://unused"))
	if got := c.PairFor("btc"); got != "XBTUSD" {
		t.Fatalf("PairFor(btc) = %q, want XBTUSD", got)
	}
	if got := c.PairFor("ETH"); got != "ETHUSD" {
		t.Fatalf("PairFor(ETH) = %q, want ETHUSD", got)
	}

	eur := NewKrakenClient(testConfig(t, "http://unused"), WithQuote("EUR"))
	if got := eur.PairFor("BTC"); got != "XBTEUR" {
		t.Fatalf("PairFor with quote override = %q, want XBTEUR", got)
	}
}

func TestFetchOHLCTrimsAndComputesStats(t *testing.T) {
	var query map[string]string
	srv := httptest.NewServer(krakenHandler(t, 60, &query))
	defer srv.Close()

	c := NewKrakenClient(testConfig(t, srv.URL))
	res, err := c.FetchOHLC(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("FetchOHLC: %v", err)
	}
	if query["pair"] != "XBTUSD" {
		t.Fatalf("pair query = %q, want XBTUSD", query["pair"])
	}
	if query["interval"] != "30" {
		t.Fatalf("interval query = %q, want 30", query["interval"])
	}
	if len(res.Bars) != 48 {
		t.Fatalf("bars = %d, want trailing 48", len(res.Bars))
	}
	// 60 rows served, trailing 48 kept: first kept row is source index 12.
	wantFirst := (int64(1700000000) + 12*1800) * 1000
	if res.Bars[0].Timestamp != wantFirst {
		t.Fatalf("first bar ts = %d, want %d", res.Bars[0].Timestamp, wantFirst)
	}
	if res.Bars[0].Open != 100.0 || res.Bars[0].Volume != 12.5 {
		t.Fatalf("bar fields not parsed from string prices: %+v", res.Bars[0])
	}
	if res.Stats == nil {
		t.Fatal("stats missing")
	}
	if res.Stats.CloseLatest != 101.0 {
		t.Fatalf("close_latest = %v, want 101.0", res.Stats.CloseLatest)
	}
	if res.Stats.High24h != 102.0 || res.Stats.Low24h != 99.0 {
		t.Fatalf("high/low = %v/%v", res.Stats.High24h, res.Stats.Low24h)
	}
	if res.Stats.Volume24h != 48*12.5 {
		t.Fatalf("volume_24h = %v, want %v", res.Stats.Volume24h, 48*12.5)
	}
	if res.Pair != "BTC/USD" || res.Exchange != "kraken" {
		t.Fatalf("resource identity: %q %q", res.Pair, res.Exchange)
	}
}

func TestRefreshResourceWritesDocument(t *testing.T) {
	srv := httptest.NewServer(krakenHandler(t, 4, nil))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	dir := t.TempDir()
	c := NewKrakenClient(cfg, WithResourceDir(dir))
	if _, err := c.RefreshResource(context.Background(), "eth"); err != nil {
		t.Fatalf("RefreshResource: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "ETH.txt"))
	if err != nil {
		t.Fatalf("resource file: %v", err)
	}
	if !strings.Contains(string(data), `"pair": "ETH/USD"`) {
		t.Fatalf("resource document missing pair: %s", data)
	}

	got, err := c.ReadResource("ETH")
	if err != nil {
		t.Fatalf("ReadResource: %v", err)
	}
	if len(got.Bars) != 4 || got.Bars[3].Close != 101.0 {
		t.Fatalf("round-trip bars = %+v", got.Bars)
	}
}

func TestFetchOHLCAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":["EQuery:Unknown asset pair"],"result":{}}`))
	}))
	defer srv.Close()

	c := NewKrakenClient(testConfig(t, srv.URL))
	if _, err := c.FetchOHLC(context.Background(), "NOPE"); err == nil {
		t.Fatal("want error for kraken API error payload")
	} else if !strings.Contains(err.Error(), "Unknown asset pair") {
		t.Fatalf("error should carry the API message, got %v", err)
	}
}
