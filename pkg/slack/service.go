package slack

import (
	"context"
	"log/slog"
	"time"
)

// ServiceConfig holds the parameters needed to construct a Service.
type ServiceConfig struct {
	Token        string
	Channel      string
	DashboardURL string
}

// ExecutionNotification describes an execution that reached a terminal status.
type ExecutionNotification struct {
	ExecutionID string
	AgentID     string
	AgentName   string
	Status      string // completed, failed, cancelled
	Source      string // api, schedule, cli
	Duration    time.Duration
	Result      string
	Error       string
}

// Service handles Slack notification delivery.
// Nil-safe: all methods are no-ops when service is nil.
type Service struct {
	client       *Client
	dashboardURL string
	logger       *slog.Logger
}

// NewService creates a new Slack notification service.
// Returns nil if Token or Channel is empty.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Token == "" || cfg.Channel == "" {
		return nil
	}
	return NewServiceWithClient(NewClient(cfg.Token, cfg.Channel), cfg.DashboardURL)
}

// NewServiceWithClient creates a Service backed by a pre-built Client.
// Useful for testing with a mock API server.
func NewServiceWithClient(client *Client, dashboardURL string) *Service {
	return &Service{
		client:       client,
		dashboardURL: dashboardURL,
		logger:       slog.Default().With("component", "slack-service"),
	}
}

// NotifyExecutionCompleted sends a terminal status notification.
// Fail-open: errors are logged, never returned.
func (s *Service) NotifyExecutionCompleted(ctx context.Context, input ExecutionNotification) {
	if s == nil {
		return
	}

	blocks := BuildTerminalMessage(input, s.dashboardURL)
	if err := s.client.PostMessage(ctx, blocks, fallbackText(input), 10*time.Second); err != nil {
		s.logger.Error("Failed to send Slack notification",
			"execution_id", input.ExecutionID,
			"agent_id", input.AgentID,
			"status", input.Status,
			"error", err)
	}
}
