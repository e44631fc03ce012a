package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"CoinScope/internal/analysis"
	"CoinScope/internal/domain/models"
	domrepo "CoinScope/internal/domain/repository"
	icache "CoinScope/internal/service/cache"
	"CoinScope/internal/service/metrics"
	"CoinScope/internal/service/ratelimit"
	"CoinScope/internal/timeseries"
	"CoinScope/internal/usecase"
	xhttp "CoinScope/pkg/http"
	applogger "CoinScope/pkg/logger"

	"github.com/labstack/echo/v4"
)

const defaultAnalysisTTL = 30 * time.Second

// tableDocument is the Data payload for analysis endpoints.
type tableDocument struct {
	Symbol  string           `json:"symbol"`
	Rows    []timeseries.Row `json:"rows"`
	Summary string           `json:"summary"`
}

// AnalysisHandler serves the per-domain analysis tables and the bar reads.
type AnalysisHandler struct {
	svc   *analysis.Service
	bars  *usecase.BarsUseCase
	cache icache.BytesCache
	ttl   time.Duration
	rl    *ratelimit.Limiter
	l     *applogger.Logger
}

func NewAnalysisHandler(svc *analysis.Service, bars *usecase.BarsUseCase) *AnalysisHandler {
	metrics.Register()
	return &AnalysisHandler{svc: svc, bars: bars, ttl: defaultAnalysisTTL, rl: ratelimit.New()}
}

func (h *AnalysisHandler) SetCache(c icache.BytesCache) { h.cache = c }

// SetCacheTTL overrides how long cached envelopes are replayed.
func (h *AnalysisHandler) SetCacheTTL(d time.Duration) {
	if d > 0 {
		h.ttl = d
	}
}

// SetLogger injects a structured logger.
func (h *AnalysisHandler) SetLogger(l *applogger.Logger) { h.l = l }

func (h *AnalysisHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	ga := g.Group("/analysis")
	ga.GET("/market", h.Market)
	ga.GET("/chain", h.Chain)
	ga.GET("/dev", h.Dev)
	ga.GET("/sentiment", h.Sentiment)
	g.GET("/bars", h.Bars)
}

// allow applies the per-IP token bucket for one endpoint.
func (h *AnalysisHandler) allow(c echo.Context, endpoint string, capacity, refill float64) bool {
	if h.rl.Allow(c.RealIP()+":"+endpoint, capacity, refill) {
		return true
	}
	if h.l != nil {
		h.l.Warn("analysis rate_limited",
			applogger.String("endpoint", endpoint),
			applogger.String("remote", c.RealIP()),
		)
	}
	return false
}

// cachedEnvelope replays a previously marshaled envelope when present.
func (h *AnalysisHandler) cachedEnvelope(c echo.Context, key string) (bool, error) {
	if h.cache == nil {
		return false, nil
	}
	b, ok, err := h.cache.GetBytes(c.Request().Context(), key)
	if err != nil {
		if h.l != nil {
			h.l.Warn("analysis cache_get_error", applogger.String("key", key), applogger.Error(err))
		}
		return false, nil
	}
	if !ok {
		return false, nil
	}
	return true, c.JSONBlob(http.StatusOK, b)
}

// respondEnvelope marshals the success envelope once so the bytes can be
// cached and replayed as-is.
func (h *AnalysisHandler) respondEnvelope(c echo.Context, key string, data interface{}) error {
	b, err := json.Marshal(xhttp.APIResponse{
		Status:  http.StatusOK,
		Message: http.StatusText(http.StatusOK),
		Data:    data,
	})
	if err != nil {
		if h.l != nil {
			h.l.Error("analysis marshal_error", applogger.Error(err))
		}
		return xhttp.InternalServerErrorResponse(c)
	}
	if h.cache != nil {
		if err := h.cache.SetBytes(c.Request().Context(), key, b, h.ttl); err != nil && h.l != nil {
			h.l.Warn("analysis cache_set_error", applogger.String("key", key), applogger.Error(err))
		}
	}
	return c.JSONBlob(http.StatusOK, b)
}

func tailDocument(symbol string, t *timeseries.Table, n int) *tableDocument {
	if n > 0 && t.Len() > n {
		t = t.Tail(n)
	}
	return &tableDocument{
		Symbol:  strings.ToUpper(symbol),
		Rows:    t.Rows(),
		Summary: t.Summary(),
	}
}

func (h *AnalysisHandler) Market(c echo.Context) error {
	start := time.Now()
	endpoint := "market"
	defer func() { metrics.AnalysisLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.MarketAnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.allow(c, endpoint, 5, 2) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}
	key := "analysis:market:" + strings.ToUpper(req.Symbol) + ":" + req.Mode + ":" + req.Source
	if done, err := h.cachedEnvelope(c, key); done {
		return err
	}

	t, err := h.svc.Market(c.Request().Context(), req.Symbol,
		analysis.NormalizeMarketMode(req.Mode), analysis.NormalizeMarketSource(req.Source))
	if err != nil {
		metrics.AnalysisErrors.WithLabelValues(endpoint).Inc()
		if h.l != nil {
			h.l.Error("analysis.market error", applogger.String("symbol", req.Symbol), applogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, err)
	}
	return h.respondEnvelope(c, key, tailDocument(req.Symbol, t, req.N))
}

func (h *AnalysisHandler) Chain(c echo.Context) error {
	start := time.Now()
	endpoint := "chain"
	defer func() { metrics.AnalysisLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.AnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.allow(c, endpoint, 5, 2) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}
	key := "analysis:chain:" + strings.ToUpper(req.Symbol)
	if done, err := h.cachedEnvelope(c, key); done {
		return err
	}

	t, err := h.svc.Chain(c.Request().Context(), req.Symbol)
	if err != nil {
		metrics.AnalysisErrors.WithLabelValues(endpoint).Inc()
		if h.l != nil {
			h.l.Error("analysis.chain error", applogger.String("symbol", req.Symbol), applogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, err)
	}
	return h.respondEnvelope(c, key, tailDocument(req.Symbol, t, req.N))
}

func (h *AnalysisHandler) Dev(c echo.Context) error {
	start := time.Now()
	endpoint := "dev"
	defer func() { metrics.AnalysisLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.AnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.allow(c, endpoint, 5, 2) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}
	key := "analysis:dev:" + strings.ToUpper(req.Symbol)
	if done, err := h.cachedEnvelope(c, key); done {
		return err
	}

	t, err := h.svc.Developer(c.Request().Context(), req.Symbol)
	if err != nil {
		metrics.AnalysisErrors.WithLabelValues(endpoint).Inc()
		if h.l != nil {
			h.l.Error("analysis.dev error", applogger.String("symbol", req.Symbol), applogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, err)
	}
	return h.respondEnvelope(c, key, tailDocument(req.Symbol, t, req.N))
}

func (h *AnalysisHandler) Sentiment(c echo.Context) error {
	start := time.Now()
	endpoint := "sentiment"
	defer func() { metrics.AnalysisLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.AnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	// sentiment fans out to the scoring service, keep the bucket smaller
	if !h.allow(c, endpoint, 3, 1) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}
	key := "analysis:sentiment:" + strings.ToUpper(req.Symbol)
	if done, err := h.cachedEnvelope(c, key); done {
		return err
	}

	t, err := h.svc.Sentiment(c.Request().Context(), req.Symbol)
	if err != nil {
		metrics.AnalysisErrors.WithLabelValues(endpoint).Inc()
		if h.l != nil {
			h.l.Error("analysis.sentiment error", applogger.String("symbol", req.Symbol), applogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, err)
	}
	return h.respondEnvelope(c, key, tailDocument(req.Symbol, t, req.N))
}

func (h *AnalysisHandler) Bars(c echo.Context) error {
	req := &models.BarsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.allow(c, "bars", 10, 5) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}
	tf := domrepo.NormalizeTimeframe(req.TF)

	// With from/to this is a range read; times accept RFC3339 or unix
	// seconds, and to defaults to now, from to a day before to.
	if req.From != "" || req.To != "" {
		to := xhttp.ParseTimeDefault(req.To, time.Now().UTC())
		from := xhttp.ParseTimeDefault(req.From, to.Add(-24*time.Hour))
		res, err := h.bars.GetBars(c.Request().Context(), usecase.GetBarsParams{
			Symbol:    req.Symbol,
			From:      from,
			To:        to,
			Timeframe: tf,
			Limit:     req.N,
		})
		if err != nil {
			if h.l != nil {
				h.l.Error("bars range error", applogger.String("symbol", req.Symbol), applogger.Error(err))
			}
			return xhttp.AppErrorResponse(c, err)
		}
		return xhttp.SuccessResponse(c, res)
	}

	bars, err := h.bars.GetLatestBars(c.Request().Context(), req.Symbol, req.N, tf)
	if err != nil {
		if h.l != nil {
			h.l.Error("bars error", applogger.String("symbol", req.Symbol), applogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, bars, int64(len(bars)))
}
