// Package orchestrator is the entry point for running agents: it validates
// submissions, tracks them and runs them on the worker pool.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/codeready-toolchain/herald/pkg/config"
	"github.com/codeready-toolchain/herald/pkg/execution"
	"github.com/codeready-toolchain/herald/pkg/metrics"
	"github.com/codeready-toolchain/herald/pkg/pipeline"
	"github.com/codeready-toolchain/herald/pkg/queue"
	"github.com/codeready-toolchain/herald/pkg/slack"
)

// Pool is the subset of queue.WorkerPool the service needs.
type Pool interface {
	Enqueue(job queue.Job) error
	CancelRun(executionID string) bool
}

// Notifier is told about every execution that reaches a terminal status.
type Notifier interface {
	NotifyExecutionCompleted(ctx context.Context, input slack.ExecutionNotification)
}

// Service validates, records and dispatches agent runs.
type Service struct {
	cfg       *config.Config
	pipelines *pipeline.Registry
	tracker   *execution.Tracker
	pool      Pool
	metrics   *metrics.Metrics
	notifier  Notifier
	logger    *slog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithMetrics records execution metrics. Nil is allowed.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithNotifier sets the terminal-status notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// NewService creates a service. AttachPool must be called before Submit.
func NewService(cfg *config.Config, pipelines *pipeline.Registry, tracker *execution.Tracker, opts ...Option) *Service {
	s := &Service{
		cfg:       cfg,
		pipelines: pipelines,
		tracker:   tracker,
		logger:    slog.Default().With("component", "orchestrator"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AttachPool sets the pool jobs are enqueued on. The pool is built with the
// service as its executor, so it can only be attached after construction.
func (s *Service) AttachPool(pool Pool) {
	s.pool = pool
}

// Tracker returns the execution tracker.
func (s *Service) Tracker() *execution.Tracker {
	return s.tracker
}

// Submit validates and enqueues a run and returns the PENDING record.
// Nothing is recorded when validation fails.
func (s *Service) Submit(_ context.Context, agentID string, params map[string]any, source execution.Source) (*execution.Record, error) {
	if s.pool == nil {
		return nil, errors.New("orchestrator has no worker pool attached")
	}

	agentCfg, merged, err := s.prepare(agentID, params)
	if err != nil {
		return nil, err
	}

	rec := s.tracker.Create(agentID, merged, source)
	job := queue.Job{
		ExecutionID: rec.ID,
		AgentID:     agentID,
		Timeout:     s.cfg.AgentTimeout(agentCfg),
	}
	if err := s.pool.Enqueue(job); err != nil {
		if _, cerr := s.tracker.Cancel(rec.ID); cerr != nil {
			s.logger.Warn("Failed to cancel unqueued execution", "execution_id", rec.ID, "error", cerr)
		}
		return nil, fmt.Errorf("failed to enqueue execution: %w", err)
	}

	s.logger.Info("Execution submitted",
		"execution_id", rec.ID,
		"agent_id", agentID,
		"source", source,
		"timeout", job.Timeout)
	return rec, nil
}

// RunToCompletion submits a run and blocks until it is terminal or ctx is
// done. On ctx expiry the latest record is returned with ctx's error; the run
// itself keeps going.
func (s *Service) RunToCompletion(ctx context.Context, agentID string, params map[string]any, source execution.Source) (*execution.Record, error) {
	rec, err := s.Submit(ctx, agentID, params, source)
	if err != nil {
		return nil, err
	}
	return s.Wait(ctx, rec.ID)
}

// Wait blocks until the execution is terminal or ctx is done.
func (s *Service) Wait(ctx context.Context, executionID string) (*execution.Record, error) {
	done, err := s.tracker.Done(executionID)
	if err != nil {
		return nil, err
	}
	select {
	case <-done:
		return s.tracker.Get(executionID)
	case <-ctx.Done():
		rec, err := s.tracker.Get(executionID)
		if err != nil {
			return nil, err
		}
		return rec, ctx.Err()
	}
}

// Cancel cancels a pending or running execution and returns the updated
// record. A running pipeline stops at its next checkpoint; in-flight calls
// see their context cancelled.
func (s *Service) Cancel(ctx context.Context, executionID string) (*execution.Record, error) {
	prev, err := s.tracker.Cancel(executionID)
	if err != nil {
		return nil, err
	}

	if prev == execution.StatusRunning && s.pool != nil {
		s.pool.CancelRun(executionID)
	}

	rec, err := s.tracker.Get(executionID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Execution cancelled", "execution_id", executionID, "previous_status", prev)

	// A running execution reports its own terminal state when the worker
	// returns; a pending one never reaches a worker.
	if prev == execution.StatusPending {
		s.report(ctx, rec)
	}
	return rec, nil
}

// CancelQueued marks jobs left in the queue at shutdown as cancelled.
func (s *Service) CancelQueued(ctx context.Context, jobs []queue.Job) {
	for _, job := range jobs {
		if _, err := s.Cancel(ctx, job.ExecutionID); err != nil && !errors.Is(err, execution.ErrNotCancellable) {
			s.logger.Warn("Failed to cancel queued execution", "execution_id", job.ExecutionID, "error", err)
		}
	}
}

// GetExecution returns a copy of the record.
func (s *Service) GetExecution(executionID string) (*execution.Record, error) {
	return s.tracker.Get(executionID)
}

// ListExecutions returns up to limit records, newest first.
func (s *Service) ListExecutions(limit int) []*execution.Record {
	return s.tracker.List(limit)
}

// Metrics returns aggregate execution metrics.
func (s *Service) Metrics() execution.Metrics {
	return s.tracker.Metrics()
}

// prepare resolves the agent and merges its default parameters under params.
func (s *Service) prepare(agentID string, params map[string]any) (*config.AgentConfig, map[string]any, error) {
	agentCfg, err := s.cfg.GetAgent(agentID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrAgentNotFound, agentID)
	}
	if !agentCfg.IsEnabled() {
		return nil, nil, fmt.Errorf("%w: %s", ErrAgentDisabled, agentID)
	}
	if missing := s.cfg.MissingRequirements(agentCfg); len(missing) > 0 {
		return nil, nil, &RequirementsError{AgentID: agentID, Missing: missing}
	}
	p, ok := s.pipelines.Get(agentID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownPipeline, agentID)
	}

	merged := maps.Clone(agentCfg.DefaultParameters)
	if merged == nil {
		merged = make(map[string]any, len(params))
	}
	maps.Copy(merged, params)

	if err := p.Validate(merged); err != nil {
		return nil, nil, &ValidationError{AgentID: agentID, Err: err}
	}
	return agentCfg, merged, nil
}

// report records metrics and sends the notification for a terminal record.
func (s *Service) report(ctx context.Context, rec *execution.Record) {
	var duration time.Duration
	if rec.DurationSeconds != nil {
		duration = time.Duration(*rec.DurationSeconds * float64(time.Second))
	}
	s.metrics.ObserveExecution(rec.AgentID, string(rec.Status), duration)

	if s.notifier == nil {
		return
	}
	var name string
	if agentCfg, err := s.cfg.GetAgent(rec.AgentID); err == nil {
		name = agentCfg.Name
	}
	s.notifier.NotifyExecutionCompleted(context.WithoutCancel(ctx), slack.ExecutionNotification{
		ExecutionID: rec.ID,
		AgentID:     rec.AgentID,
		AgentName:   name,
		Status:      string(rec.Status),
		Source:      string(rec.Source),
		Duration:    duration,
		Result:      rec.Result,
		Error:       rec.Error,
	})
}
