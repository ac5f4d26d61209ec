// Package api serves the herald HTTP API.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/codeready-toolchain/herald/pkg/config"
	"github.com/codeready-toolchain/herald/pkg/execution"
	"github.com/codeready-toolchain/herald/pkg/health"
	"github.com/codeready-toolchain/herald/pkg/orchestrator"
	"github.com/codeready-toolchain/herald/pkg/scheduler"
)

// maxBodySize caps request bodies.
const maxBodySize = "1M"

// AgentService is the orchestrator surface the handlers use.
type AgentService interface {
	ListAgents(availableOnly bool) []orchestrator.AgentInfo
	GetAgent(agentID string) (*orchestrator.AgentInfo, error)
	Submit(ctx context.Context, agentID string, params map[string]any, source execution.Source) (*execution.Record, error)
	RunToCompletion(ctx context.Context, agentID string, params map[string]any, source execution.Source) (*execution.Record, error)
	GetExecution(executionID string) (*execution.Record, error)
	ListExecutions(limit int) []*execution.Record
	Cancel(ctx context.Context, executionID string) (*execution.Record, error)
	Metrics() execution.Metrics
}

// Schedule is the scheduler surface the handlers use.
type Schedule interface {
	Jobs() []scheduler.Job
	Fire(ctx context.Context, jobID string) (*execution.Record, error)
}

// Server is the HTTP API server.
type Server struct {
	cfg            *config.Config
	echo           *echo.Echo
	agentService   AgentService
	scheduler      Schedule
	healthChecker  *health.Checker
	metricsHandler http.Handler
}

// Option configures optional server dependencies.
type Option func(*Server)

// WithScheduler exposes scheduled jobs. Without it the schedule endpoints
// answer 503.
func WithScheduler(s Schedule) Option {
	return func(srv *Server) { srv.scheduler = s }
}

// WithMetricsHandler serves Prometheus metrics on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(srv *Server) { srv.metricsHandler = h }
}

// NewServer creates the server and registers every route.
func NewServer(cfg *config.Config, agentService AgentService, checker *health.Checker, opts ...Option) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		cfg:           cfg,
		echo:          e,
		agentService:  agentService,
		healthChecker: checker,
	}
	for _, opt := range opts {
		opt(s)
	}

	e.HTTPErrorHandler = httpErrorHandler
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger())
	e.Use(securityHeaders())
	e.Use(middleware.BodyLimit(maxBodySize))

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	e := s.echo

	e.GET("/health", s.healthHandler)
	e.GET("/health/readiness", s.readinessHandler)
	e.GET("/health/liveness", s.livenessHandler)
	if s.metricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(s.metricsHandler))
	}

	agents := e.Group("/agents")
	agents.GET("", s.listAgentsHandler)
	agents.POST("/execute", s.executeAgentHandler)
	agents.POST("/news/execute", s.executeNewsHandler)
	agents.GET("/executions", s.listExecutionsHandler)
	agents.GET("/executions/:id", s.getExecutionHandler)
	agents.POST("/executions/:id/cancel", s.cancelExecutionHandler)
	agents.GET("/metrics", s.metricsHandlerFunc)
	agents.GET("/schedule", s.scheduleHandler)
	agents.POST("/schedule/:id/run", s.runJobHandler)
	agents.GET("/:id", s.getAgentHandler)
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on addr until Shutdown.
func (s *Server) Start(addr string) error {
	slog.Info("HTTP server listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
