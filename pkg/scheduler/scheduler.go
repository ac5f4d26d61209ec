// Package scheduler fires configured agents on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/codeready-toolchain/herald/pkg/config"
	"github.com/codeready-toolchain/herald/pkg/execution"
	"github.com/gorhill/cronexpr"
)

// Firing outcomes reported to the Observer.
const (
	OutcomeSubmitted = "submitted"
	OutcomeSkipped   = "skipped"
	OutcomeLocked    = "locked"
	OutcomeError     = "error"
)

// DefaultLockTTL is used when no per-agent TTL is configured.
const DefaultLockTTL = 10 * time.Minute

const releaseTimeout = 5 * time.Second

var (
	// ErrJobNotFound is returned by Fire for unknown job IDs.
	ErrJobNotFound = errors.New("scheduler job not found")
	// ErrJobRunning is returned when the job's previous run has not finished.
	ErrJobRunning = errors.New("previous run still in progress")
	// ErrJobLocked is returned when another replica holds the job lock.
	ErrJobLocked = errors.New("job lock held by another instance")
)

// Submitter starts runs and waits for them.
type Submitter interface {
	Submit(ctx context.Context, agentID string, params map[string]any, source execution.Source) (*execution.Record, error)
	Wait(ctx context.Context, executionID string) (*execution.Record, error)
	GetExecution(executionID string) (*execution.Record, error)
}

// Observer receives firing outcomes.
type Observer interface {
	ObserveSchedulerFiring(jobID, outcome string)
}

// Job is a read-only view of a scheduled job.
type Job struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	AgentID         string         `json:"agent_id"`
	Schedule        string         `json:"schedule"`
	Timezone        string         `json:"timezone"`
	Parameters      map[string]any `json:"parameters,omitempty"`
	NextRunTime     *time.Time     `json:"next_run_time"`
	LastRun         *time.Time     `json:"last_run,omitempty"`
	LastExecutionID string         `json:"last_execution_id,omitempty"`
	Skipped         int            `json:"skipped"`
	Running         bool           `json:"running"`
}

type job struct {
	cfg  config.JobConfig
	expr *cronexpr.Expression
	loc  *time.Location

	next            time.Time
	lastRun         time.Time
	lastExecutionID string
	skipped         int
	inFlight        bool
}

func (j *job) advance(now time.Time) {
	j.next = j.expr.Next(now.In(j.loc))
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLocker enables the cross-replica lock.
func WithLocker(l Locker) Option {
	return func(s *Scheduler) { s.locker = l }
}

// WithObserver sets the firing observer.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) { s.observer = o }
}

// WithClock overrides time.Now.
func WithClock(clock func() time.Time) Option {
	return func(s *Scheduler) { s.clock = clock }
}

// WithLockTTL sets the lock lifetime per agent ID.
func WithLockTTL(ttl func(agentID string) time.Duration) Option {
	return func(s *Scheduler) { s.lockTTL = ttl }
}

// Scheduler triggers runs at the next cron match of each job. A job never
// has more than one run in flight.
type Scheduler struct {
	submitter Submitter
	locker    Locker
	observer  Observer
	clock     func() time.Time
	lockTTL   func(agentID string) time.Duration
	logger    *slog.Logger

	mu   sync.Mutex
	jobs map[string]*job

	// ctx outlives individual requests so waiters started by a manual Fire
	// keep running after the request returns.
	ctx        context.Context
	stop       context.CancelFunc
	cancelLoop context.CancelFunc
	loopDone   chan struct{}
	waiters    sync.WaitGroup
}

// New parses the enabled jobs. Disabled jobs are dropped.
func New(jobs []config.JobConfig, submitter Submitter, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		submitter: submitter,
		clock:     time.Now,
		lockTTL:   func(string) time.Duration { return DefaultLockTTL },
		logger:    slog.Default().With("component", "scheduler"),
		jobs:      make(map[string]*job, len(jobs)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ctx, s.stop = context.WithCancel(context.Background())

	now := s.clock()
	for _, cfg := range jobs {
		if !cfg.IsEnabled() {
			continue
		}
		expr, err := cronexpr.Parse(cfg.Schedule)
		if err != nil {
			return nil, fmt.Errorf("job %s: invalid schedule %q: %w", cfg.ID, cfg.Schedule, err)
		}
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("job %s: invalid timezone %q: %w", cfg.ID, cfg.Timezone, err)
		}
		if _, dup := s.jobs[cfg.ID]; dup {
			return nil, fmt.Errorf("job %s: duplicate id", cfg.ID)
		}
		j := &job{cfg: cfg, expr: expr, loc: loc}
		j.advance(now)
		s.jobs[cfg.ID] = j
	}
	return s, nil
}

// Start launches the timer loop.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancelLoop = cancel
	s.loopDone = make(chan struct{})

	s.mu.Lock()
	now := s.clock()
	for _, j := range s.jobs {
		j.advance(now)
	}
	s.mu.Unlock()

	go s.run(ctx)
	s.logger.Info("Scheduler started", "jobs", len(s.jobs))
}

// Stop ends the timer loop and waits for run watchers to return.
func (s *Scheduler) Stop() {
	if s.cancelLoop != nil {
		s.cancelLoop()
		<-s.loopDone
	}
	s.stop()
	s.waiters.Wait()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.loopDone)
	for {
		wait, ok := s.untilNext()
		if !ok {
			<-ctx.Done()
			return
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.fireDue(ctx)
		}
	}
}

// untilNext returns the delay to the soonest due job, false when no job has
// a future match.
func (s *Scheduler) untilNext() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var soonest time.Time
	for _, j := range s.jobs {
		if j.next.IsZero() {
			continue
		}
		if soonest.IsZero() || j.next.Before(soonest) {
			soonest = j.next
		}
	}
	if soonest.IsZero() {
		return 0, false
	}
	return max(soonest.Sub(s.clock()), 0), true
}

// fireDue fires every job whose next run has passed and advances it.
func (s *Scheduler) fireDue(ctx context.Context) {
	now := s.clock()
	var due []string
	s.mu.Lock()
	for id, j := range s.jobs {
		if j.next.IsZero() || j.next.After(now) {
			continue
		}
		j.advance(now)
		due = append(due, id)
	}
	s.mu.Unlock()
	sort.Strings(due)

	for _, id := range due {
		// Outcomes are logged and observed inside fire.
		_, _ = s.fire(ctx, id)
	}
}

// Fire triggers a job outside its schedule. The single-run rule still
// applies.
func (s *Scheduler) Fire(ctx context.Context, jobID string) (*execution.Record, error) {
	return s.fire(ctx, jobID)
}

func (s *Scheduler) fire(ctx context.Context, jobID string) (*execution.Record, error) {
	s.mu.Lock()
	j, ok := s.jobs[jobID]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	log := s.logger.With("job_id", jobID, "agent_id", j.cfg.AgentID)
	if s.busyLocked(j) {
		j.skipped++
		skipped, lastID := j.skipped, j.lastExecutionID
		s.mu.Unlock()
		log.Warn("Skipping firing, previous run still in progress",
			"last_execution_id", lastID, "skipped", skipped)
		s.observe(jobID, OutcomeSkipped)
		return nil, fmt.Errorf("%w: job %s", ErrJobRunning, jobID)
	}
	j.inFlight = true
	agentID := j.cfg.AgentID
	params := make(map[string]any, len(j.cfg.Parameters)+1)
	for k, v := range j.cfg.Parameters {
		params[k] = v
	}
	s.mu.Unlock()
	params["scheduled"] = true

	lockKey := LockKeyPrefix + jobID
	locked := false
	if s.locker != nil {
		acquired, err := s.locker.Acquire(ctx, lockKey, s.lockTTL(agentID))
		if err != nil {
			s.clearInFlight(j)
			log.Error("Failed to acquire scheduler lock, skipping firing", "error", err)
			s.observe(jobID, OutcomeError)
			return nil, err
		}
		if !acquired {
			s.mu.Lock()
			j.inFlight = false
			j.skipped++
			s.mu.Unlock()
			log.Info("Scheduler lock held elsewhere, skipping firing")
			s.observe(jobID, OutcomeLocked)
			return nil, fmt.Errorf("%w: job %s", ErrJobLocked, jobID)
		}
		locked = true
	}

	rec, err := s.submitter.Submit(ctx, agentID, params, execution.SourceSchedule)
	if err != nil {
		s.clearInFlight(j)
		if locked {
			s.release(lockKey)
		}
		log.Error("Scheduled submission failed", "error", err)
		s.observe(jobID, OutcomeError)
		return nil, err
	}

	s.mu.Lock()
	j.lastRun = s.clock()
	j.lastExecutionID = rec.ID
	s.mu.Unlock()
	log.Info("Scheduled run submitted", "execution_id", rec.ID)
	s.observe(jobID, OutcomeSubmitted)

	s.waiters.Add(1)
	go s.await(j, rec.ID, lockKey, locked)
	return rec, nil
}

// busyLocked reports whether the job's previous run is still active.
// Caller holds s.mu.
func (s *Scheduler) busyLocked(j *job) bool {
	if j.inFlight {
		return true
	}
	if j.lastExecutionID == "" {
		return false
	}
	rec, err := s.submitter.GetExecution(j.lastExecutionID)
	if err != nil {
		// Swept records are finished by definition.
		return false
	}
	return !rec.Status.Terminal()
}

func (s *Scheduler) await(j *job, executionID, lockKey string, locked bool) {
	defer s.waiters.Done()
	rec, err := s.submitter.Wait(s.ctx, executionID)
	s.clearInFlight(j)
	if locked {
		s.release(lockKey)
	}
	log := s.logger.With("job_id", j.cfg.ID, "execution_id", executionID)
	if err != nil {
		log.Warn("Stopped waiting for scheduled run", "error", err)
		return
	}
	log.Info("Scheduled run finished", "status", rec.Status)
}

func (s *Scheduler) clearInFlight(j *job) {
	s.mu.Lock()
	j.inFlight = false
	s.mu.Unlock()
}

func (s *Scheduler) release(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if err := s.locker.Release(ctx, key); err != nil {
		s.logger.Warn("Failed to release scheduler lock", "key", key, "error", err)
	}
}

func (s *Scheduler) observe(jobID, outcome string) {
	if s.observer != nil {
		s.observer.ObserveSchedulerFiring(jobID, outcome)
	}
}

// Jobs returns a snapshot of every job, ordered by ID.
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		view := Job{
			ID:              j.cfg.ID,
			Name:            j.cfg.Name,
			AgentID:         j.cfg.AgentID,
			Schedule:        j.cfg.Schedule,
			Timezone:        j.cfg.Timezone,
			Parameters:      j.cfg.Parameters,
			LastExecutionID: j.lastExecutionID,
			Skipped:         j.skipped,
			Running:         j.inFlight,
		}
		if !j.next.IsZero() {
			next := j.next
			view.NextRunTime = &next
		}
		if !j.lastRun.IsZero() {
			last := j.lastRun
			view.LastRun = &last
		}
		out = append(out, view)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}

// Len returns the number of enabled jobs.
func (s *Scheduler) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}
