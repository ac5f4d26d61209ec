package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// DefaultWorkerCount is used when the configured count is not positive.
const DefaultWorkerCount = 3

// WorkerPool manages a pool of queue workers. Enqueue never blocks or
// rejects while the pool is running; jobs wait in FIFO order.
type WorkerPool struct {
	workerCount int
	executor    Executor
	workers     []*Worker
	stopCh      chan struct{}
	stopOnce    sync.Once
	wake        chan struct{}

	qmu     sync.Mutex
	pending []Job
	stopped bool

	// Run cancel registry: execution_id → cancel function
	activeRuns map[string]context.CancelFunc
	mu         sync.RWMutex
	started    bool
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(workerCount int, executor Executor) *WorkerPool {
	if workerCount <= 0 {
		workerCount = DefaultWorkerCount
	}
	return &WorkerPool{
		workerCount: workerCount,
		executor:    executor,
		workers:     make([]*Worker, 0, workerCount),
		stopCh:      make(chan struct{}),
		wake:        make(chan struct{}, workerCount),
		activeRuns:  make(map[string]context.CancelFunc),
	}
}

// Start spawns worker goroutines. Runs derive their context from ctx.
// It is safe to call multiple times; subsequent calls are no-ops.
func (p *WorkerPool) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		slog.Warn("Worker pool already started, ignoring duplicate Start call")
		return
	}
	p.started = true
	p.mu.Unlock()

	slog.Info("Starting worker pool", "worker_count", p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		worker := NewWorker(fmt.Sprintf("worker-%d", i), p.executor, p)
		p.workers = append(p.workers, worker)
		worker.Start(ctx)
	}
	slog.Info("Worker pool started")
}

// Enqueue appends job to the FIFO.
func (p *WorkerPool) Enqueue(job Job) error {
	p.qmu.Lock()
	if p.stopped {
		p.qmu.Unlock()
		return ErrPoolStopped
	}
	p.pending = append(p.pending, job)
	depth := len(p.pending)
	p.qmu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
	slog.Debug("Job enqueued", "execution_id", job.ExecutionID, "queue_depth", depth)
	return nil
}

// next blocks until a job is available or the pool stops.
func (p *WorkerPool) next() (Job, bool) {
	for {
		p.qmu.Lock()
		if p.stopped {
			p.qmu.Unlock()
			return Job{}, false
		}
		if len(p.pending) > 0 {
			job := p.pending[0]
			p.pending[0] = Job{}
			p.pending = p.pending[1:]
			p.qmu.Unlock()
			return job, true
		}
		p.qmu.Unlock()

		select {
		case <-p.wake:
		case <-p.stopCh:
			return Job{}, false
		}
	}
}

// QueueDepth returns the number of jobs waiting for a worker.
func (p *WorkerPool) QueueDepth() int {
	p.qmu.Lock()
	defer p.qmu.Unlock()
	return len(p.pending)
}

// Stop stops intake, waits for running jobs to finish and returns the jobs
// that never started, in queue order. It is safe to call multiple times.
func (p *WorkerPool) Stop() []Job {
	slog.Info("Stopping worker pool gracefully")

	p.qmu.Lock()
	p.stopped = true
	remaining := p.pending
	p.pending = nil
	p.qmu.Unlock()

	if active := p.getActiveRunIDs(); len(active) > 0 {
		slog.Info("Waiting for active runs to complete",
			"count", len(active),
			"execution_ids", active)
	}

	p.stopOnce.Do(func() { close(p.stopCh) })
	for _, worker := range p.workers {
		worker.Stop()
	}

	slog.Info("Worker pool stopped gracefully", "unstarted_jobs", len(remaining))
	return remaining
}

// RegisterRun stores a cancel function for manual cancellation.
func (p *WorkerPool) RegisterRun(executionID string, cancel context.CancelFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.activeRuns[executionID] = cancel
}

// UnregisterRun removes the cancel function when processing ends.
func (p *WorkerPool) UnregisterRun(executionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.activeRuns, executionID)
}

// CancelRun triggers context cancellation for a running execution.
// Returns true if the execution was found running on this pool.
func (p *WorkerPool) CancelRun(executionID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if cancel, ok := p.activeRuns[executionID]; ok {
		cancel()
		return true
	}
	return false
}

// Health returns the current health status of the pool.
func (p *WorkerPool) Health() *PoolHealth {
	workerStats := make([]WorkerHealth, len(p.workers))
	activeWorkers := 0
	for i, worker := range p.workers {
		stats := worker.Health()
		workerStats[i] = stats
		if stats.Status == string(WorkerStatusWorking) {
			activeWorkers++
		}
	}

	p.qmu.Lock()
	stopped := p.stopped
	depth := len(p.pending)
	p.qmu.Unlock()

	p.mu.RLock()
	activeRuns := len(p.activeRuns)
	p.mu.RUnlock()

	return &PoolHealth{
		IsHealthy:     len(p.workers) > 0 && !stopped,
		Stopped:       stopped,
		ActiveWorkers: activeWorkers,
		TotalWorkers:  len(p.workers),
		ActiveRuns:    activeRuns,
		QueueDepth:    depth,
		WorkerStats:   workerStats,
	}
}

// getActiveRunIDs returns IDs of currently running executions (for logging).
func (p *WorkerPool) getActiveRunIDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]string, 0, len(p.activeRuns))
	for id := range p.activeRuns {
		ids = append(ids, id)
	}
	return ids
}
