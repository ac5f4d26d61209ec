package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// WorkerStatus represents the current state of a worker.
type WorkerStatus string

// Worker status constants.
const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)

// RunRegistry is the subset of WorkerPool used by Worker for run
// registration.
type RunRegistry interface {
	RegisterRun(executionID string, cancel context.CancelFunc)
	UnregisterRun(executionID string)
}

// jobSource hands jobs to a worker; it returns false once the worker must
// exit.
type jobSource interface {
	next() (Job, bool)
}

// Worker is a single queue worker that takes jobs and runs them one at a
// time.
type Worker struct {
	id       string
	executor Executor
	pool     interface {
		RunRegistry
		jobSource
	}
	wg sync.WaitGroup

	// Health tracking
	mu                 sync.RWMutex
	status             WorkerStatus
	currentExecutionID string
	runsProcessed      int
	lastActivity       time.Time
}

// NewWorker creates a new queue worker.
func NewWorker(id string, executor Executor, pool *WorkerPool) *Worker {
	return &Worker{
		id:           id,
		executor:     executor,
		pool:         pool,
		status:       WorkerStatusIdle,
		lastActivity: time.Now(),
	}
}

// Start begins the worker loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop waits for the worker to finish its current job. The pool signals
// the stop; Stop only joins.
func (w *Worker) Stop() {
	w.wg.Wait()
}

// Health returns the current worker health status.
func (w *Worker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID:                 w.id,
		Status:             string(w.status),
		CurrentExecutionID: w.currentExecutionID,
		RunsProcessed:      w.runsProcessed,
		LastActivity:       w.lastActivity,
	}
}

// run is the main worker loop.
func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	log := slog.With("worker_id", w.id)
	log.Info("Worker started")

	for {
		job, ok := w.pool.next()
		if !ok {
			log.Info("Worker shutting down")
			return
		}
		w.process(ctx, job)
	}
}

// process runs one job with its own cancellable, optionally time-bounded
// context.
func (w *Worker) process(ctx context.Context, job Job) {
	log := slog.With("execution_id", job.ExecutionID, "agent_id", job.AgentID, "worker_id", w.id)
	log.Info("Run picked up")

	w.setStatus(WorkerStatusWorking, job.ExecutionID)
	defer w.setStatus(WorkerStatusIdle, "")

	var runCtx context.Context
	var cancelRun context.CancelFunc
	if job.Timeout > 0 {
		runCtx, cancelRun = context.WithTimeout(ctx, job.Timeout)
	} else {
		runCtx, cancelRun = context.WithCancel(ctx)
	}
	defer cancelRun()

	// Register cancel function for API-triggered cancellation
	w.pool.RegisterRun(job.ExecutionID, cancelRun)
	defer w.pool.UnregisterRun(job.ExecutionID)

	start := time.Now()
	w.executor.Execute(runCtx, job)

	w.mu.Lock()
	w.runsProcessed++
	w.mu.Unlock()
	log.Info("Run finished", "duration_ms", time.Since(start).Milliseconds())
}

func (w *Worker) setStatus(status WorkerStatus, executionID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentExecutionID = executionID
	w.lastActivity = time.Now()
}
