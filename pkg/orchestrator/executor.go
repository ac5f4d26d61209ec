package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/codeready-toolchain/herald/pkg/execution"
	"github.com/codeready-toolchain/herald/pkg/pipeline"
	"github.com/codeready-toolchain/herald/pkg/queue"
)

// defaultResult is stored when a pipeline succeeds without output.
const defaultResult = "Agent executed successfully"

var _ queue.Executor = (*Service)(nil)

// errCancelled is returned by the checkpoint of a cancelled execution.
var errCancelled = errors.New("execution cancelled")

// Execute runs one queued job to its terminal state. It is called by pool
// workers with a context carrying the agent timeout.
func (s *Service) Execute(ctx context.Context, job queue.Job) {
	log := s.logger.With("execution_id", job.ExecutionID, "agent_id", job.AgentID)

	// 1. PENDING → RUNNING; a record cancelled while queued is skipped
	if err := s.tracker.Start(job.ExecutionID); err != nil {
		log.Info("Skipping execution that is no longer pending", "error", err)
		return
	}
	rec, err := s.tracker.Get(job.ExecutionID)
	if err != nil {
		log.Warn("Execution disappeared after start", "error", err)
		return
	}
	log.Info("Execution started")

	// 2. Run the pipeline
	var result string
	p, ok := s.pipelines.Get(job.AgentID)
	if !ok {
		err = fmt.Errorf("%w: %s", ErrUnknownPipeline, job.AgentID)
	} else {
		result, err = p.Run(ctx, pipeline.Input{
			ExecutionID: job.ExecutionID,
			Parameters:  rec.Parameters,
			Checkpoint:  s.checkpoint(job.ExecutionID),
		})
	}

	// 3. Record the terminal status
	s.finish(ctx, log, job, result, err)

	// 4. Metrics and notification
	final, getErr := s.tracker.Get(job.ExecutionID)
	if getErr != nil {
		log.Warn("Execution swept before completion was reported", "error", getErr)
		return
	}
	log.Info("Execution finished", "status", final.Status)
	s.report(ctx, final)
}

// checkpoint stops the pipeline once the execution is cancelled.
func (s *Service) checkpoint(executionID string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		status, err := s.tracker.Status(executionID)
		if err != nil {
			return err
		}
		if status == execution.StatusCancelled {
			return errCancelled
		}
		return ctx.Err()
	}
}

func (s *Service) finish(ctx context.Context, log *slog.Logger, job queue.Job, result string, runErr error) {
	if runErr == nil {
		if result == "" {
			result = defaultResult
		}
		if err := s.tracker.Complete(job.ExecutionID, result); err != nil {
			// Cancelled while the last stage was finishing.
			log.Warn("Discarding result of execution that is no longer running", "error", err)
		}
		return
	}

	status, err := s.tracker.Status(job.ExecutionID)
	if err == nil && status == execution.StatusCancelled {
		return
	}

	message := runErr.Error()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		message = fmt.Sprintf("agent timed out after %s", job.Timeout)
	}
	log.Error("Execution failed", "error", message)
	if err := s.tracker.Fail(job.ExecutionID, message); err != nil {
		log.Warn("Failed to mark execution failed", "error", err)
	}
}
