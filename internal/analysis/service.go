package analysis

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"CoinScope/internal/domain/models"
	domrepo "CoinScope/internal/domain/repository"
	domservice "CoinScope/internal/domain/service"
	"CoinScope/internal/timeseries"
	applogger "CoinScope/pkg/logger"
)

// MarketSource selects where market bars come from.
type MarketSource string

const (
	SourceFile  MarketSource = "file"
	SourceStore MarketSource = "store"
)

// NormalizeMarketSource folds unknown sources to file.
func NormalizeMarketSource(s string) MarketSource {
	if MarketSource(s) == SourceStore {
		return SourceStore
	}
	return SourceFile
}

// Config points the service at its resource documents.
type Config struct {
	MarketDir     string
	ChainDir      string
	DeveloperDir  string
	SocialDir     string
	StoreLookback int // bars pulled per store-mode pass
}

// Service runs the domain analyses against resource files and the bar
// store, wrapping the pure builders with I/O and logging.
type Service struct {
	cfg       Config
	windows   Windows
	valuation ValuationProvider
	bars      domrepo.BarStore
	scorer    domservice.SentimentScorer
	log       *applogger.Logger
}

type Option func(*Service)

// WithBarStore enables the store market source.
func WithBarStore(bs domrepo.BarStore) Option {
	return func(s *Service) { s.bars = bs }
}

// WithScorer routes post scoring through an external sentiment service.
func WithScorer(sc domservice.SentimentScorer) Option {
	return func(s *Service) { s.scorer = sc }
}

// WithValuation replaces the synthetic SOPR source.
func WithValuation(vp ValuationProvider) Option {
	return func(s *Service) { s.valuation = vp }
}

// WithLogger injects a structured logger.
func WithLogger(l *applogger.Logger) Option {
	return func(s *Service) { s.log = l }
}

func NewService(cfg Config, w Windows, opts ...Option) *Service {
	if cfg.StoreLookback <= 0 {
		cfg.StoreLookback = 600
	}
	s := &Service{cfg: cfg, windows: w}
	for _, opt := range opts {
		opt(s)
	}
	if s.valuation == nil {
		s.valuation = NewSyntheticValuation(time.Now().UnixNano())
	}
	return s
}

// readResource loads {dir}/{SYMBOL}.txt. Absence is a normal condition and
// yields nil; other read failures are logged and also yield nil, keeping
// loader semantics (no source, empty table).
func (s *Service) readResource(dir, symbol string) []byte {
	if dir == "" {
		return nil
	}
	path := filepath.Join(dir, strings.ToUpper(symbol)+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		if s.log != nil && !os.IsNotExist(err) {
			s.log.Warn("resource read failed",
				applogger.String("path", path),
				applogger.Error(err),
			)
		}
		return nil
	}
	return data
}

// tableFromBars maps store bars onto the canonical market columns. Bars
// arrive ascending; out-of-order or duplicate buckets are dropped.
func tableFromBars(bars []models.Bar) *timeseries.Table {
	index := make([]time.Time, 0, len(bars))
	open := make([]float64, 0, len(bars))
	high := make([]float64, 0, len(bars))
	low := make([]float64, 0, len(bars))
	closes := make([]float64, 0, len(bars))
	volume := make([]float64, 0, len(bars))
	var last time.Time
	for _, b := range bars {
		if len(index) > 0 && !last.Before(b.Bucket) {
			continue
		}
		last = b.Bucket
		index = append(index, b.Bucket)
		open = append(open, b.Open)
		high = append(high, b.High)
		low = append(low, b.Low)
		closes = append(closes, b.Close)
		volume = append(volume, b.Volume)
	}
	t := timeseries.New(index)
	_ = t.Set("open", open)
	_ = t.Set("high", high)
	_ = t.Set("low", low)
	_ = t.Set("close", closes)
	_ = t.Set("volume", volume)
	return t
}

// Market builds the market table from the configured source.
func (s *Service) Market(ctx context.Context, symbol string, mode MarketMode, source MarketSource) (*timeseries.Table, error) {
	start := time.Now()
	var t *timeseries.Table
	switch source {
	case SourceStore:
		if s.bars == nil {
			return nil, fmt.Errorf("market store source: no bar store configured")
		}
		bars, err := s.bars.LatestBars(ctx, symbol, s.cfg.StoreLookback, domrepo.DefaultTimeframe())
		if err != nil {
			return nil, fmt.Errorf("load bars: %w", err)
		}
		t = tableFromBars(bars)
	default:
		t = LoadMarket(s.readResource(s.cfg.MarketDir, symbol))
	}

	out, err := BuildMarket(t, s.windows, mode)
	if err != nil {
		return nil, err
	}
	if s.log != nil {
		s.log.Debug("market analysis built",
			applogger.String("symbol", symbol),
			applogger.String("mode", string(mode)),
			applogger.String("source", string(source)),
			applogger.Int("rows", out.Len()),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

// Chain builds the on-chain table.
func (s *Service) Chain(ctx context.Context, symbol string) (*timeseries.Table, error) {
	t := LoadChain(s.readResource(s.cfg.ChainDir, symbol))
	return BuildChain(t, s.windows, s.valuation)
}

// Developer builds the development-activity table.
func (s *Service) Developer(ctx context.Context, symbol string) (*timeseries.Table, error) {
	t := LoadDeveloper(s.readResource(s.cfg.DeveloperDir, symbol))
	return BuildDeveloper(t, s.windows)
}

// scorePosts resolves one score per post. Without a scorer the embedded
// sentiment is used when present, neutral otherwise. Blank posts never
// reach the scorer.
func (s *Service) scorePosts(ctx context.Context, posts []models.SocialPost) ([]float64, error) {
	scores := make([]float64, len(posts))
	if s.scorer == nil {
		for i, p := range posts {
			if p.Sentiment != nil {
				scores[i] = *p.Sentiment
			}
		}
		return scores, nil
	}
	texts := make([]string, 0, len(posts))
	idx := make([]int, 0, len(posts))
	for i, p := range posts {
		if strings.TrimSpace(p.Content) == "" {
			continue
		}
		texts = append(texts, p.Content)
		idx = append(idx, i)
	}
	if len(texts) == 0 {
		return scores, nil
	}
	got, err := s.scorer.Score(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("score posts: %w", err)
	}
	if len(got) != len(texts) {
		return nil, fmt.Errorf("score posts: %d scores for %d texts", len(got), len(texts))
	}
	for j, i := range idx {
		scores[i] = got[j]
	}
	return scores, nil
}

// Sentiment builds the sentiment table from scored social posts.
func (s *Service) Sentiment(ctx context.Context, symbol string) (*timeseries.Table, error) {
	posts := LoadSocial(s.readResource(s.cfg.SocialDir, symbol))
	if len(posts) == 0 {
		return timeseries.New(nil), nil
	}
	scores, err := s.scorePosts(ctx, posts)
	if err != nil {
		return nil, err
	}
	t := AggregateSentiment(posts, scores, s.windows.Granularity)
	return BuildSentiment(t, s.windows)
}

// runAllTimeout bounds a whole fan-out pass; branches still running when it
// fires are reported as errors, not waited on.
const runAllTimeout = 45 * time.Second

type branchResult struct {
	name string
	t    *timeseries.Table
	err  error
}

// RunAll fans the four analyses out concurrently and collects them into a
// bundle. A failed branch lands in Errors under its domain name; its table
// stays nil, distinguishable from a successful empty result. The collect
// channel is buffered so a branch finishing after the deadline never leaks
// its goroutine.
func (s *Service) RunAll(ctx context.Context, symbol string, source MarketSource) *models.AnalysisBundle {
	start := time.Now()
	bundle := &models.AnalysisBundle{
		Symbol:      symbol,
		GeneratedAt: start.UTC(),
		Errors:      make(map[string]string),
	}

	branches := map[string]func() (*timeseries.Table, error){
		"market":    func() (*timeseries.Table, error) { return s.Market(ctx, symbol, MarketConcise, source) },
		"chain":     func() (*timeseries.Table, error) { return s.Chain(ctx, symbol) },
		"dev":       func() (*timeseries.Table, error) { return s.Developer(ctx, symbol) },
		"sentiment": func() (*timeseries.Table, error) { return s.Sentiment(ctx, symbol) },
	}

	results := make(chan branchResult, len(branches))
	var wg sync.WaitGroup
	wg.Add(len(branches))
	for name, build := range branches {
		go func(name string, build func() (*timeseries.Table, error)) {
			defer wg.Done()
			t, err := build()
			results <- branchResult{name: name, t: t, err: err}
		}(name, build)
	}

	deadline := time.NewTimer(runAllTimeout)
	defer deadline.Stop()
	pending := len(branches)
collect:
	for pending > 0 {
		select {
		case r := <-results:
			pending--
			if r.err != nil {
				bundle.Errors[r.name] = r.err.Error()
				continue
			}
			switch r.name {
			case "market":
				bundle.Market = r.t
			case "chain":
				bundle.Chain = r.t
			case "dev":
				bundle.Developer = r.t
			case "sentiment":
				bundle.Sentiment = r.t
			}
		case <-ctx.Done():
			break collect
		case <-deadline.C:
			break collect
		}
	}
	if pending > 0 {
		for name := range branches {
			if !bundle.Has(name) && bundle.Errors[name] == "" {
				bundle.Errors[name] = "analysis timed out"
			}
		}
	} else {
		wg.Wait()
	}

	if s.log != nil {
		s.log.Info("analysis pass complete",
			applogger.String("symbol", symbol),
			applogger.String("summary", bundle.Summary()),
			applogger.Int("failed_branches", len(bundle.Errors)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return bundle
}
