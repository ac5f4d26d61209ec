package config

import (
	"fmt"
	"time"

	"github.com/gorhill/cronexpr"
)

// ConfigValidator validates configuration comprehensively with clear error messages
type ConfigValidator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration
func NewValidator(cfg *Config) *ConfigValidator {
	return &ConfigValidator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast - stops at first error)
func (v *ConfigValidator) ValidateAll() error {
	// Agents first: scheduler jobs reference them.
	if err := v.validateAgents(); err != nil {
		return fmt.Errorf("agent validation failed: %w", err)
	}

	if err := v.validateServer(); err != nil {
		return fmt.Errorf("server validation failed: %w", err)
	}

	if err := v.validateQueue(); err != nil {
		return fmt.Errorf("queue validation failed: %w", err)
	}

	if err := v.validateScheduler(); err != nil {
		return fmt.Errorf("scheduler validation failed: %w", err)
	}

	if err := v.validateProviders(); err != nil {
		return fmt.Errorf("provider validation failed: %w", err)
	}

	if err := v.validateSlack(); err != nil {
		return fmt.Errorf("slack validation failed: %w", err)
	}

	return nil
}

func (v *ConfigValidator) validateAgents() error {
	if v.cfg.AgentRegistry == nil || v.cfg.AgentRegistry.Len() == 0 {
		return NewValidationError("agent", "", "", fmt.Errorf("%w: at least one agent required", ErrMissingRequiredField))
	}

	for id, agent := range v.cfg.AgentRegistry.GetAll() {
		if agent.TimeoutSeconds < 0 {
			return NewValidationError("agent", id, "timeout_seconds", fmt.Errorf("%w: must not be negative", ErrInvalidValue))
		}
		for _, req := range agent.Requires {
			if !req.IsValid() {
				return NewValidationError("agent", id, "requires", fmt.Errorf("%w: unknown requirement %q", ErrInvalidValue, req))
			}
		}
	}

	return nil
}

func (v *ConfigValidator) validateServer() error {
	s := v.cfg.Server
	if s.HTTPPort < 1 || s.HTTPPort > 65535 {
		return NewValidationError("server", "", "http_port", fmt.Errorf("%w: %d out of range 1-65535", ErrInvalidValue, s.HTTPPort))
	}
	if s.GRPCHealthPort < 0 || s.GRPCHealthPort > 65535 {
		return NewValidationError("server", "", "grpc_health_port", fmt.Errorf("%w: %d out of range 0-65535", ErrInvalidValue, s.GRPCHealthPort))
	}
	if s.GRPCHealthPort != 0 && s.GRPCHealthPort == s.HTTPPort {
		return NewValidationError("server", "", "grpc_health_port", fmt.Errorf("%w: must differ from http_port", ErrInvalidValue))
	}
	return nil
}

func (v *ConfigValidator) validateQueue() error {
	q := v.cfg.Queue
	if q.MaxConcurrentRuns < 1 {
		return NewValidationError("queue", "", "max_concurrent_runs", fmt.Errorf("%w: must be at least 1", ErrInvalidValue))
	}
	if q.DefaultTimeout <= 0 {
		return NewValidationError("queue", "", "default_timeout", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if q.GracefulShutdownTimeout <= 0 {
		return NewValidationError("queue", "", "graceful_shutdown_timeout", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}

	r := v.cfg.Retention
	if r.ExecutionMaxAge <= 0 {
		return NewValidationError("retention", "", "execution_max_age", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if r.CleanupInterval <= 0 {
		return NewValidationError("retention", "", "cleanup_interval", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	return nil
}

func (v *ConfigValidator) validateScheduler() error {
	s := v.cfg.Scheduler
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return NewValidationError("scheduler", "", "timezone", fmt.Errorf("%w: %v", ErrInvalidValue, err))
	}

	seen := make(map[string]bool, len(s.Jobs))
	for _, job := range s.Jobs {
		if job.ID == "" {
			return NewValidationError("scheduler_job", "", "id", ErrMissingRequiredField)
		}
		if seen[job.ID] {
			return NewValidationError("scheduler_job", job.ID, "id", fmt.Errorf("%w: duplicate job id", ErrInvalidValue))
		}
		seen[job.ID] = true

		if !v.cfg.AgentRegistry.Has(job.AgentID) {
			return NewValidationError("scheduler_job", job.ID, "agent_id", fmt.Errorf("%w: agent '%s' not found", ErrInvalidReference, job.AgentID))
		}
		if job.Schedule == "" {
			return NewValidationError("scheduler_job", job.ID, "schedule", ErrMissingRequiredField)
		}
		if _, err := cronexpr.Parse(job.Schedule); err != nil {
			return NewValidationError("scheduler_job", job.ID, "schedule", fmt.Errorf("%w: %v", ErrInvalidValue, err))
		}
		if _, err := time.LoadLocation(job.Timezone); err != nil {
			return NewValidationError("scheduler_job", job.ID, "timezone", fmt.Errorf("%w: %v", ErrInvalidValue, err))
		}
	}
	return nil
}

func (v *ConfigValidator) validateProviders() error {
	if v.cfg.LLM.Model == "" {
		return NewValidationError("llm", "", "model", ErrMissingRequiredField)
	}
	if t := v.cfg.LLM.Temperature; t != nil && (*t < 0 || *t > 2) {
		return NewValidationError("llm", "", "temperature", fmt.Errorf("%w: %v out of range 0-2", ErrInvalidValue, *t))
	}
	if v.cfg.LLM.MaxTokens < 0 {
		return NewValidationError("llm", "", "max_tokens", fmt.Errorf("%w: must not be negative", ErrInvalidValue))
	}
	if !v.cfg.Search.Provider.IsValid() {
		return NewValidationError("search", "", "provider", fmt.Errorf("%w: %q", ErrInvalidValue, v.cfg.Search.Provider))
	}
	if !v.cfg.Scrape.Provider.IsValid() {
		return NewValidationError("scrape", "", "provider", fmt.Errorf("%w: %q", ErrInvalidValue, v.cfg.Scrape.Provider))
	}
	if v.cfg.Scrape.MaxChars < 0 {
		return NewValidationError("scrape", "", "max_chars", fmt.Errorf("%w: must not be negative", ErrInvalidValue))
	}
	fc := v.cfg.Scrape.Firecrawl
	if v.cfg.Scrape.Provider == ScrapeProviderFirecrawl && fc.URL == "" && fc.Command == "" {
		return NewValidationError("scrape", "", "firecrawl", fmt.Errorf("%w: command or url required", ErrMissingRequiredField))
	}
	return nil
}

func (v *ConfigValidator) validateSlack() error {
	if v.cfg.Slack.Enabled && v.cfg.Slack.Channel == "" {
		return NewValidationError("slack", "", "channel", fmt.Errorf("%w: required when slack is enabled", ErrMissingRequiredField))
	}
	return nil
}
