package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"CoinScope/internal/analysis"
	"CoinScope/internal/domain/models"
	domrepo "CoinScope/internal/domain/repository"
	domservice "CoinScope/internal/domain/service"
	svcmetrics "CoinScope/internal/service/metrics"
	"CoinScope/internal/services/marketdata"
	"CoinScope/internal/timeseries"
	pkgcache "CoinScope/pkg/cache"
	applogger "CoinScope/pkg/logger"
)

// ErrAdviceInProgress reports that another run already holds the advisory
// lock for the symbol.
var ErrAdviceInProgress = errors.New("advice generation already in progress")

// promptTailRows bounds how much table history lands in the prompt.
const promptTailRows = 6

// AdvisoryConfig carries the advisory knobs from the config layer.
type AdvisoryConfig struct {
	LockTTL    time.Duration
	RefreshTTL time.Duration
	SocialDir  string
	Symbols    []string
}

// AdvisoryUseCase runs the full advisory flow for one symbol: lock, resource
// refresh, concurrent analysis pass, LLM call, persistence.
type AdvisoryUseCase struct {
	cfg      AdvisoryConfig
	analysis *analysis.Service
	advisor  domservice.Advisor
	market   *marketdata.KrakenClient
	store    domrepo.AdviceStore
	cache    pkgcache.Service
	l        *applogger.Logger
}

func NewAdvisoryUseCase(
	cfg AdvisoryConfig,
	svc *analysis.Service,
	advisor domservice.Advisor,
	market *marketdata.KrakenClient,
	store domrepo.AdviceStore,
	cache pkgcache.Service,
	l *applogger.Logger,
) *AdvisoryUseCase {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = time.Minute
	}
	return &AdvisoryUseCase{
		cfg:      cfg,
		analysis: svc,
		advisor:  advisor,
		market:   market,
		store:    store,
		cache:    cache,
		l:        l,
	}
}

func lockKey(symbol string) string { return pkgcache.GenerateKey("advise:lock", strings.ToUpper(symbol)) }

func freshKey(symbol string) string { return pkgcache.GenerateKey("md:fresh", strings.ToUpper(symbol)) }

// Advise generates and persists one advice for the symbol.
func (uc *AdvisoryUseCase) Advise(ctx context.Context, symbol string) (*models.Advice, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}

	if uc.cache != nil {
		ok, err := uc.cache.TryLock(ctx, lockKey(symbol), uc.cfg.LockTTL)
		if err != nil {
			return nil, fmt.Errorf("advisory lock: %w", err)
		}
		if !ok {
			svcmetrics.AdvisorySkipped.Inc()
			return nil, ErrAdviceInProgress
		}
		defer func() { _ = uc.cache.Unlock(context.WithoutCancel(ctx), lockKey(symbol)) }()
	}

	resource := uc.refreshResource(ctx, symbol)

	start := time.Now()
	bundle := uc.analysis.RunAll(ctx, symbol, analysis.SourceFile)
	svcmetrics.AnalysisLatency.WithLabelValues("bundle").Observe(time.Since(start).Seconds())
	for domain := range bundle.Errors {
		svcmetrics.AnalysisErrors.WithLabelValues(domain).Inc()
	}

	in := domservice.AdvisoryInput{
		Symbol:   symbol,
		Summary:  bundle.Summary(),
		Analyses: uc.promptSections(bundle),
	}
	if resource != nil {
		in.Stats = resource.Stats
		if n := len(resource.Bars); n > 0 {
			in.LastBar = &resource.Bars[n-1]
		}
	}

	advice, err := uc.advisor.Advise(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("advise %s: %w", symbol, err)
	}

	id, err := uc.store.Insert(ctx, advice)
	if err != nil {
		return nil, fmt.Errorf("persist advice %s: %w", symbol, err)
	}
	advice.ID = id
	if advice.CreatedAt == 0 {
		advice.CreatedAt = time.Now().Unix()
	}
	svcmetrics.AdvicesGenerated.WithLabelValues(symbol, advice.Action).Inc()
	if uc.l != nil {
		uc.l.Info("advice generated",
			applogger.String("symbol", symbol),
			applogger.String("action", advice.Action),
			applogger.String("strength", advice.Strength),
			applogger.Int64("id", id),
		)
	}
	return advice, nil
}

// refreshResource fetches fresh market bars, falling back to the existing
// document when the fetch fails. A freshness marker in the cache skips the
// venue round trip when another run refreshed the symbol within RefreshTTL,
// which matters once the scheduler and manual advise requests overlap.
func (uc *AdvisoryUseCase) refreshResource(ctx context.Context, symbol string) *models.MarketResource {
	if uc.market == nil {
		return nil
	}

	if uc.cache != nil && uc.cfg.RefreshTTL > 0 {
		var refreshedAt int64
		if err := uc.cache.Get(ctx, freshKey(symbol), &refreshedAt); err == nil {
			if res, readErr := uc.market.ReadResource(symbol); readErr == nil {
				if uc.l != nil {
					uc.l.Debug("market resource still fresh",
						applogger.String("symbol", symbol),
						applogger.Int64("refreshed_at", refreshedAt),
					)
				}
				return res
			}
			// marker without a readable document; refetch
		}
	}

	res, err := uc.market.RefreshResource(ctx, symbol)
	if err == nil {
		if uc.cache != nil && uc.cfg.RefreshTTL > 0 {
			_ = uc.cache.Set(ctx, freshKey(symbol), time.Now().Unix(), uc.cfg.RefreshTTL)
		}
		return res
	}
	if uc.l != nil {
		uc.l.Warn("market refresh failed, using stale resource",
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
	}
	stale, readErr := uc.market.ReadResource(symbol)
	if readErr != nil {
		return nil
	}
	return stale
}

// promptSections renders one compact text block per analysis domain:
// the summary line plus the trailing rows, with failures passed through
// verbatim. The social posts feeding the sentiment table are included as
// their own section so the model sees the raw voice, not just the score.
func (uc *AdvisoryUseCase) promptSections(bundle *models.AnalysisBundle) map[string]string {
	sections := make(map[string]string, 5)
	add := func(name string, t *timeseries.Table) {
		if msg, failed := bundle.Errors[name]; failed {
			sections[name] = "error: " + msg
			return
		}
		// an absent domain still gets a section: the model is told there
		// is no data rather than never hearing about the domain
		if t.IsEmpty() {
			sections[name] = "no data"
			return
		}
		rows, err := json.Marshal(t.Tail(promptTailRows).Rows())
		if err != nil {
			sections[name] = t.Summary()
			return
		}
		sections[name] = t.Summary() + " tail=" + string(rows)
	}
	add("market", bundle.Market)
	add("chain", bundle.Chain)
	add("dev", bundle.Developer)
	add("sentiment", bundle.Sentiment)

	if social := uc.socialContext(bundle.Symbol); social != "" {
		sections["social"] = social
	}
	return sections
}

// socialContext joins the latest post texts from the social resource.
func (uc *AdvisoryUseCase) socialContext(symbol string) string {
	if uc.cfg.SocialDir == "" {
		return ""
	}
	path := filepath.Join(uc.cfg.SocialDir, strings.ToUpper(symbol)+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	posts := analysis.LoadSocial(data)
	if len(posts) == 0 {
		return ""
	}
	if len(posts) > 5 {
		posts = posts[len(posts)-5:]
	}
	texts := make([]string, 0, len(posts))
	for _, p := range posts {
		if s := strings.TrimSpace(p.Content); s != "" {
			texts = append(texts, s)
		}
	}
	joined := strings.Join(texts, " | ")
	if len(joined) > 500 {
		joined = joined[:500]
	}
	return joined
}

// LastAdvices returns the n most recent advices, newest first.
func (uc *AdvisoryUseCase) LastAdvices(ctx context.Context, n int) ([]models.Advice, error) {
	return uc.store.LastN(ctx, n)
}

// Symbols returns the configured advisory watch list.
func (uc *AdvisoryUseCase) Symbols() []string { return uc.cfg.Symbols }
