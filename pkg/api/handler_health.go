package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// healthHandler handles GET /health.
// A degraded service still answers 200; only readiness gates traffic.
func (s *Server) healthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, s.healthChecker.Health())
}

// readinessHandler handles GET /health/readiness.
func (s *Server) readinessHandler(c echo.Context) error {
	report, ready := s.healthChecker.Readiness()
	if !ready {
		return c.JSON(http.StatusServiceUnavailable, report)
	}
	return c.JSON(http.StatusOK, report)
}

// livenessHandler handles GET /health/liveness.
func (s *Server) livenessHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, s.healthChecker.Liveness())
}
