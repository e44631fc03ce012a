package api

import (
	"github.com/labstack/echo/v4"
)

// Root bundles the API handlers behind the single route registrar the
// server accepts.
type Root struct {
	Advisory *AdvisoryHandler
	Analysis *AnalysisHandler
	Health   *HealthHandler
}

func NewRoot(advisory *AdvisoryHandler, analysis *AnalysisHandler, health *HealthHandler) *Root {
	return &Root{Advisory: advisory, Analysis: analysis, Health: health}
}

func (r *Root) RegisterRoutes(e *echo.Echo) {
	if r.Advisory != nil {
		r.Advisory.RegisterRoutes(e)
	}
	if r.Analysis != nil {
		r.Analysis.RegisterRoutes(e)
	}
	if r.Health != nil {
		r.Health.RegisterRoutes(e)
	}
}
