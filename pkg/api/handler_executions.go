package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	defaultExecutionListLimit = 50
	maxExecutionListLimit     = 500
)

// listExecutionsHandler handles GET /agents/executions.
func (s *Server) listExecutionsHandler(c echo.Context) error {
	limit := defaultExecutionListLimit
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxExecutionListLimit {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit: must be between 1 and 500")
		}
		limit = n
	}
	recs := s.agentService.ListExecutions(limit)
	return c.JSON(http.StatusOK, ExecutionListResponse{Executions: recs, Count: len(recs)})
}

// getExecutionHandler handles GET /agents/executions/:id.
func (s *Server) getExecutionHandler(c echo.Context) error {
	rec, err := s.agentService.GetExecution(c.Param("id"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

// cancelExecutionHandler handles POST /agents/executions/:id/cancel.
func (s *Server) cancelExecutionHandler(c echo.Context) error {
	rec, err := s.agentService.Cancel(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

// metricsHandlerFunc handles GET /agents/metrics.
func (s *Server) metricsHandlerFunc(c echo.Context) error {
	return c.JSON(http.StatusOK, MetricsResponse{
		Metrics:       s.agentService.Metrics(),
		UptimeSeconds: s.healthChecker.UptimeSeconds(),
		Timestamp:     time.Now().UTC(),
	})
}

// scheduleHandler handles GET /agents/schedule.
func (s *Server) scheduleHandler(c echo.Context) error {
	if s.scheduler == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "scheduler service not available")
	}
	jobs := s.scheduler.Jobs()
	return c.JSON(http.StatusOK, ScheduleResponse{
		SchedulerRunning: true,
		TotalJobs:        len(jobs),
		Jobs:             jobs,
		Timezone:         s.cfg.Scheduler.Timezone,
	})
}

// runJobHandler handles POST /agents/schedule/:id/run.
func (s *Server) runJobHandler(c echo.Context) error {
	if s.scheduler == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "scheduler service not available")
	}
	rec, err := s.scheduler.Fire(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusAccepted, rec)
}
