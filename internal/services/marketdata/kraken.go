package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"CoinScope/internal/domain/models"
	"CoinScope/pkg/config"
	xhttp "CoinScope/pkg/http"
)

// KrakenClient fetches OHLC history from the Kraken public REST API and
// maintains the per-symbol resource documents the analysis loader reads.
type KrakenClient struct {
	baseURL     string
	quote       string
	granularity time.Duration
	resourceDir string
	client      *xhttp.Client
}

type Option func(*KrakenClient)

// WithQuote overrides the quote currency (default USD).
func WithQuote(q string) Option {
	return func(c *KrakenClient) { c.quote = q }
}

// WithResourceDir overrides where resource documents are written.
func WithResourceDir(dir string) Option {
	return func(c *KrakenClient) { c.resourceDir = dir }
}

func NewKrakenClient(cfg *config.Config, opts ...Option) *KrakenClient {
	timeout := cfg.Kraken.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &KrakenClient{
		baseURL:     strings.TrimRight(cfg.Kraken.RESTURL, "/"),
		quote:       "USD",
		granularity: cfg.Analysis.Granularity,
		resourceDir: cfg.Resources.MarketDir,
		client:      xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.granularity <= 0 {
		c.granularity = 30 * time.Minute
	}
	return c
}

// PairFor maps a base symbol to the Kraken pair name. Kraken lists Bitcoin
// as XBT.
func (c *KrakenClient) PairFor(symbol string) string {
	base := strings.ToUpper(strings.TrimSpace(symbol))
	if base == "BTC" {
		base = "XBT"
	}
	return base + c.quote
}

type krakenOHLCResponse struct {
	Error  []string                   `json:"error"`
	Result map[string]json.RawMessage `json:"result"`
}

// FetchOHLC pulls recent OHLC rows for the symbol, trims them to the
// trailing 24h window and computes the 24h stats.
func (c *KrakenClient) FetchOHLC(ctx context.Context, symbol string) (*models.MarketResource, error) {
	pair := c.PairFor(symbol)
	interval := int(c.granularity / time.Minute)
	if interval <= 0 {
		interval = 30
	}

	var kr krakenOHLCResponse
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/0/public/OHLC",
		QueryParams: map[string][]string{
			"pair":     {pair},
			"interval": {strconv.Itoa(interval)},
		},
	}, &kr)
	if err != nil {
		return nil, fmt.Errorf("kraken ohlc %s: %w", pair, err)
	}
	if len(kr.Error) > 0 {
		return nil, fmt.Errorf("kraken ohlc %s: %s", pair, strings.Join(kr.Error, "; "))
	}

	// The result map carries one key per pair plus "last"; take the pair rows.
	var raw [][]interface{}
	for key, msg := range kr.Result {
		if key == "last" {
			continue
		}
		if err := json.Unmarshal(msg, &raw); err != nil {
			return nil, fmt.Errorf("kraken ohlc %s: decode rows: %w", pair, err)
		}
		break
	}

	bars := make([]models.ResourceBar, 0, len(raw))
	for _, row := range raw {
		// [time, open, high, low, close, vwap, volume, count]
		if len(row) < 7 {
			continue
		}
		ts, ok := asFloat(row[0])
		if !ok || ts <= 0 {
			continue
		}
		b := models.ResourceBar{Timestamp: int64(ts) * 1000}
		if v, ok := asFloat(row[1]); ok {
			b.Open = v
		}
		if v, ok := asFloat(row[2]); ok {
			b.High = v
		}
		if v, ok := asFloat(row[3]); ok {
			b.Low = v
		}
		if v, ok := asFloat(row[4]); ok {
			b.Close = v
		}
		if v, ok := asFloat(row[6]); ok {
			b.Volume = v
		}
		bars = append(bars, b)
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Timestamp < bars[j].Timestamp })

	if lookback := c.lookback(); len(bars) > lookback {
		bars = bars[len(bars)-lookback:]
	}

	res := &models.MarketResource{
		Pair:      strings.ToUpper(strings.TrimSpace(symbol)) + "/" + c.quote,
		Exchange:  "kraken",
		Timeframe: c.granularity.String(),
		Bars:      bars,
		Stats:     buildStats(bars),
		Source:    "kraken.rest",
	}
	return res, nil
}

// RefreshResource fetches fresh bars and rewrites the resource document.
// On fetch failure the existing document is left untouched so callers can
// fall back to stale data.
func (c *KrakenClient) RefreshResource(ctx context.Context, symbol string) (*models.MarketResource, error) {
	res, err := c.FetchOHLC(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if err := c.WriteResource(symbol, res); err != nil {
		return nil, err
	}
	return res, nil
}

// WriteResource persists the document to {dir}/{SYMBOL}.txt, the path the
// analysis loader expects.
func (c *KrakenClient) WriteResource(symbol string, res *models.MarketResource) error {
	if err := os.MkdirAll(c.resourceDir, 0o755); err != nil {
		return fmt.Errorf("resource dir: %w", err)
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal resource: %w", err)
	}
	path := filepath.Join(c.resourceDir, strings.ToUpper(strings.TrimSpace(symbol))+".txt")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write resource: %w", err)
	}
	return nil
}

// ReadResource loads a previously written document, if any.
func (c *KrakenClient) ReadResource(symbol string) (*models.MarketResource, error) {
	path := filepath.Join(c.resourceDir, strings.ToUpper(strings.TrimSpace(symbol))+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var res models.MarketResource
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode resource %s: %w", path, err)
	}
	return &res, nil
}

// lookback is the bar count covering 24 hours at the configured granularity.
func (c *KrakenClient) lookback() int {
	n := int(24 * time.Hour / c.granularity)
	if n <= 0 {
		n = 48
	}
	return n
}

func buildStats(bars []models.ResourceBar) *models.Stats24h {
	if len(bars) == 0 {
		return nil
	}
	s := &models.Stats24h{
		Open24h:     bars[0].Open,
		CloseLatest: bars[len(bars)-1].Close,
		High24h:     bars[0].High,
		Low24h:      bars[0].Low,
	}
	for _, b := range bars {
		if b.High > s.High24h {
			s.High24h = b.High
		}
		if b.Low < s.Low24h {
			s.Low24h = b.Low
		}
		s.Volume24h += b.Volume
	}
	if s.Open24h != 0 {
		s.Change24hAbs = s.CloseLatest - s.Open24h
		s.Change24hPct = s.Change24hAbs / s.Open24h * 100.0
	}
	return s
}

func asFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
