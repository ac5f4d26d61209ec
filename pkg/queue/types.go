// Package queue runs pipeline executions on a fixed pool of workers fed by
// an in-memory FIFO.
package queue

import (
	"context"
	"errors"
	"time"
)

// ErrPoolStopped is returned by Enqueue once the pool is shutting down.
var ErrPoolStopped = errors.New("worker pool stopped")

// Job is one queued run.
type Job struct {
	ExecutionID string
	AgentID     string
	// Timeout bounds the run; zero means no deadline.
	Timeout time.Duration
}

// Executor runs a job to its terminal state. The executor owns status
// transitions; the worker only provides the run context and bookkeeping.
type Executor interface {
	Execute(ctx context.Context, job Job)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, job Job)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, job Job) { f(ctx, job) }

// PoolHealth contains health information for the entire worker pool.
type PoolHealth struct {
	IsHealthy     bool           `json:"is_healthy"`
	Stopped       bool           `json:"stopped"`
	ActiveWorkers int            `json:"active_workers"`
	TotalWorkers  int            `json:"total_workers"`
	ActiveRuns    int            `json:"active_runs"`
	QueueDepth    int            `json:"queue_depth"`
	WorkerStats   []WorkerHealth `json:"worker_stats"`
}

// WorkerHealth contains health information for a single worker.
type WorkerHealth struct {
	ID                 string    `json:"id"`
	Status             string    `json:"status"` // "idle" or "working"
	CurrentExecutionID string    `json:"current_execution_id,omitempty"`
	RunsProcessed      int       `json:"runs_processed"`
	LastActivity       time.Time `json:"last_activity"`
}
