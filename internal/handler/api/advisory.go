package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"CoinScope/internal/domain/models"
	icache "CoinScope/internal/service/cache"
	"CoinScope/internal/service/metrics"
	"CoinScope/internal/usecase"
	xhttp "CoinScope/pkg/http"
	applogger "CoinScope/pkg/logger"

	"github.com/labstack/echo/v4"
)

const lastAdvisesCacheKey = "advises:last10"

// adviceEnqueuer is the slice of the queue the handler needs.
type adviceEnqueuer interface {
	Enqueue(ctx context.Context, msgType string, payload interface{}) error
}

// adviceReader is the slice of the advisory usecase the handler needs.
type adviceReader interface {
	LastAdvices(ctx context.Context, n int) ([]models.Advice, error)
	Symbols() []string
}

// attentionPicker selects one symbol out of a candidate list.
type attentionPicker interface {
	SelectAttention(ctx context.Context, symbols []string) (*models.AttentionResult, error)
}

// AdvisoryHandler serves the advisory endpoints: the preserved legacy
// read contract, job triggering, and attention selection.
type AdvisoryHandler struct {
	uc        adviceReader
	attention attentionPicker
	q         adviceEnqueuer
	cache     icache.BytesCache
	l         *applogger.Logger
}

func NewAdvisoryHandler(uc adviceReader, attention attentionPicker, q adviceEnqueuer) *AdvisoryHandler {
	metrics.Register()
	return &AdvisoryHandler{uc: uc, attention: attention, q: q}
}

func (h *AdvisoryHandler) SetCache(c icache.BytesCache) { h.cache = c }

// SetLogger injects a structured logger.
func (h *AdvisoryHandler) SetLogger(l *applogger.Logger) { h.l = l }

func (h *AdvisoryHandler) RegisterRoutes(e *echo.Echo) {
	// Registered outside the enveloped group: the response body is a bare
	// array, exactly what the pre-rewrite consumers parse.
	e.GET("/api/get_last_10_advises", h.LastAdvises)

	g := e.Group("/api")
	g.POST("/advise", h.Advise)
	g.GET("/attention", h.Attention)
}

// LastAdvises preserves the legacy contract: a bare JSON array, newest
// first, optional fields omitted, Cache-Control no-store. Responses are
// reused for 30 seconds. ?n= overrides the count; only the default 10
// goes through the cache.
func (h *AdvisoryHandler) LastAdvises(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")

	n := xhttp.ParseIntDefault(c.QueryParam("n"), 10)
	if n < 1 {
		n = 1
	}
	if n > 100 {
		n = 100
	}

	if h.cache != nil && n == 10 {
		if b, ok, err := h.cache.GetBytes(c.Request().Context(), lastAdvisesCacheKey); err != nil {
			if h.l != nil {
				h.l.Warn("advises cache_get_error", applogger.Error(err))
			}
		} else if ok {
			return c.Blob(http.StatusOK, "application/json; charset=utf-8", b)
		}
	}

	advs, err := h.uc.LastAdvices(c.Request().Context(), n)
	if err != nil {
		if h.l != nil {
			h.l.Error("advises fetch error", applogger.Error(err))
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error":   "internal_error",
			"message": "unexpected database error",
		})
	}
	if advs == nil {
		advs = []models.Advice{}
	}
	b, err := json.Marshal(advs)
	if err != nil {
		if h.l != nil {
			h.l.Error("advises marshal error", applogger.Error(err))
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error":   "internal_error",
			"message": "unexpected database error",
		})
	}
	if h.cache != nil && n == 10 {
		if err := h.cache.SetBytes(c.Request().Context(), lastAdvisesCacheKey, b, 30*time.Second); err != nil && h.l != nil {
			h.l.Warn("advises cache_set_error", applogger.Error(err))
		}
	}
	return c.Blob(http.StatusOK, "application/json; charset=utf-8", b)
}

// Advise enqueues an advisory job for one symbol and acks immediately;
// generation runs on the queue workers.
func (h *AdvisoryHandler) Advise(c echo.Context) error {
	req := &models.AdviseRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))

	if err := h.q.Enqueue(c.Request().Context(), usecase.AdviseMessageType, usecase.AdvisePayload{Symbol: symbol}); err != nil {
		if h.l != nil {
			h.l.Error("advise enqueue error", applogger.String("symbol", symbol), applogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.DataResponse(c, http.StatusAccepted, map[string]interface{}{
		"symbol":   symbol,
		"enqueued": true,
	})
}

// Attention picks the one symbol most worth reviewing. Candidates come
// from ?symbols=A,B,C (repeated keys also accepted); without the param
// the configured advisory list is used.
func (h *AdvisoryHandler) Attention(c echo.Context) error {
	req := &models.AttentionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	symbols := splitSymbolList(req.Symbols)
	if len(symbols) == 0 {
		symbols = h.uc.Symbols()
	}
	if len(symbols) == 0 {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("no symbols to consider"))
	}

	res, err := h.attention.SelectAttention(c.Request().Context(), symbols)
	if err != nil {
		metrics.AnalysisErrors.WithLabelValues("attention").Inc()
		if h.l != nil {
			h.l.Error("attention error", applogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

// splitSymbolList expands comma-separated entries, since echo binds
// repeated query keys but not the A,B,C form.
func splitSymbolList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
