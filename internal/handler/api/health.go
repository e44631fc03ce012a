package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const probeTimeout = 2 * time.Second

// pinger is the slice of a store the probe needs.
type pinger interface {
	Health(ctx context.Context) error
}

// streamState reports venue connectivity without exposing the stream itself.
type streamState interface {
	IsConnected() bool
}

// HealthHandler answers load balancer probes. Unlike the /api group it
// speaks plain status codes: 200 when every store answers, 503 otherwise.
type HealthHandler struct {
	ticks   pinger
	advices pinger
	stream  streamState
}

func NewHealthHandler(ticks, advices pinger, stream streamState) *HealthHandler {
	return &HealthHandler{ticks: ticks, advices: advices, stream: stream}
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
}

// Health pings each backing store under a short deadline so a hung
// database turns the probe red instead of hanging it. Stream connectivity
// is reported but never flips the status code: the collector reconnects on
// its own, and restarting the process would not fix a venue outage.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), probeTimeout)
	defer cancel()

	status := http.StatusOK
	body := map[string]string{"status": "healthy"}
	for name, p := range map[string]pinger{"ticks": h.ticks, "advices": h.advices} {
		if p == nil {
			continue
		}
		if err := p.Health(ctx); err != nil {
			body[name] = "unhealthy"
			body["status"] = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		body[name] = "healthy"
	}
	if h.stream != nil {
		if h.stream.IsConnected() {
			body["stream"] = "connected"
		} else {
			body["stream"] = "disconnected"
		}
	}
	return c.JSON(status, body)
}
