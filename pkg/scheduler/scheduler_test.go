package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/codeready-toolchain/herald/pkg/config"
	"github.com/codeready-toolchain/herald/pkg/execution"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type submission struct {
	AgentID string
	Params  map[string]any
	Source  execution.Source
}

// fakeSubmitter keeps runs pending until finish is called.
type fakeSubmitter struct {
	mu        sync.Mutex
	seq       int
	submitted []submission
	records   map[string]*execution.Record
	done      map[string]chan struct{}
	submitErr error
}

func newFakeSubmitter() *fakeSubmitter {
	return &fakeSubmitter{
		records: make(map[string]*execution.Record),
		done:    make(map[string]chan struct{}),
	}
}

func (f *fakeSubmitter) Submit(_ context.Context, agentID string, params map[string]any, source execution.Source) (*execution.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.seq++
	id := fmt.Sprintf("exec-%d", f.seq)
	f.submitted = append(f.submitted, submission{AgentID: agentID, Params: params, Source: source})
	rec := &execution.Record{ID: id, AgentID: agentID, Status: execution.StatusPending, Source: source}
	f.records[id] = rec
	f.done[id] = make(chan struct{})
	c := *rec
	return &c, nil
}

func (f *fakeSubmitter) Wait(ctx context.Context, id string) (*execution.Record, error) {
	f.mu.Lock()
	ch := f.done[id]
	f.mu.Unlock()
	select {
	case <-ch:
		return f.GetExecution(id)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeSubmitter) GetExecution(id string) (*execution.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return nil, execution.ErrNotFound
	}
	c := *rec
	return &c, nil
}

func (f *fakeSubmitter) finish(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[id].Status = execution.StatusCompleted
	close(f.done[id])
}

func (f *fakeSubmitter) forget(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, id)
}

func (f *fakeSubmitter) submissions() []submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]submission(nil), f.submitted...)
}

type memLocker struct {
	mu       sync.Mutex
	held     map[string]time.Duration
	err      error
	released []string
}

func newMemLocker() *memLocker {
	return &memLocker{held: make(map[string]time.Duration)}
}

func (l *memLocker) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if _, ok := l.held[key]; ok {
		return false, nil
	}
	l.held[key] = ttl
	return true, nil
}

func (l *memLocker) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	l.released = append(l.released, key)
	return nil
}

func (l *memLocker) isHeld(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[key]
	return ok
}

type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (o *outcomeRecorder) ObserveSchedulerFiring(jobID, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, jobID+":"+outcome)
}

func (o *outcomeRecorder) list() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.outcomes...)
}

// 10:00 in Rome (CEST).
var baseTime = time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func builtinJobs() []config.JobConfig {
	return config.GetBuiltinConfig().SchedulerJobs
}

func newTestScheduler(t *testing.T, sub Submitter, opts ...Option) (*Scheduler, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: baseTime}
	s, err := New(builtinJobs(), sub, append([]Option{WithClock(clock.Now)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(s.Stop)
	return s, clock
}

func waitIdle(t *testing.T, s *Scheduler, jobID string) {
	t.Helper()
	require.Eventually(t, func() bool {
		for _, j := range s.Jobs() {
			if j.ID == jobID {
				return !j.Running
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

func TestNew(t *testing.T) {
	disabled := false
	tests := []struct {
		name    string
		jobs    []config.JobConfig
		wantErr string
		wantLen int
	}{
		{name: "builtin jobs", jobs: builtinJobs(), wantLen: 2},
		{
			name: "disabled job dropped",
			jobs: []config.JobConfig{
				{ID: "a", AgentID: "x", Schedule: "0 9 * * *", Timezone: "UTC"},
				{ID: "b", AgentID: "x", Schedule: "0 9 * * *", Timezone: "UTC", Enabled: &disabled},
			},
			wantLen: 1,
		},
		{
			name:    "invalid schedule",
			jobs:    []config.JobConfig{{ID: "a", AgentID: "x", Schedule: "not a cron", Timezone: "UTC"}},
			wantErr: "invalid schedule",
		},
		{
			name:    "invalid timezone",
			jobs:    []config.JobConfig{{ID: "a", AgentID: "x", Schedule: "0 9 * * *", Timezone: "Mars/Olympus"}},
			wantErr: "invalid timezone",
		},
		{
			name: "duplicate id",
			jobs: []config.JobConfig{
				{ID: "a", AgentID: "x", Schedule: "0 9 * * *", Timezone: "UTC"},
				{ID: "a", AgentID: "x", Schedule: "0 10 * * *", Timezone: "UTC"},
			},
			wantErr: "duplicate id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.jobs, newFakeSubmitter())
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLen, s.Len())
		})
	}
}

func TestJobsNextRunTime(t *testing.T) {
	s, _ := newTestScheduler(t, newFakeSubmitter())

	jobs := s.Jobs()
	require.Len(t, jobs, 2)

	assert.Equal(t, "enhanced-daily-news_afternoon", jobs[0].ID)
	require.NotNil(t, jobs[0].NextRunTime)
	assert.True(t, time.Date(2026, 10, 18, 13, 0, 0, 0, time.UTC).Equal(*jobs[0].NextRunTime),
		"15:00 Rome today, got %s", jobs[0].NextRunTime)

	assert.Equal(t, "enhanced-daily-news_morning", jobs[1].ID)
	require.NotNil(t, jobs[1].NextRunTime)
	assert.True(t, time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC).Equal(*jobs[1].NextRunTime),
		"09:00 Rome tomorrow, got %s", jobs[1].NextRunTime)

	assert.Nil(t, jobs[0].LastRun)
	assert.Zero(t, jobs[0].Skipped)
	assert.False(t, jobs[0].Running)
}

func TestFire(t *testing.T) {
	t.Run("submits with scheduled flag", func(t *testing.T) {
		sub := newFakeSubmitter()
		obs := &outcomeRecorder{}
		s, _ := newTestScheduler(t, sub, WithObserver(obs))

		rec, err := s.Fire(context.Background(), "enhanced-daily-news_morning")
		require.NoError(t, err)
		assert.Equal(t, "exec-1", rec.ID)

		got := sub.submissions()
		require.Len(t, got, 1)
		assert.Equal(t, config.AgentDailyNews, got[0].AgentID)
		assert.Equal(t, execution.SourceSchedule, got[0].Source)
		assert.Equal(t, true, got[0].Params["scheduled"])
		assert.Equal(t, []string{"enhanced-daily-news_morning:submitted"}, obs.list())

		job := s.Jobs()[1]
		assert.Equal(t, "exec-1", job.LastExecutionID)
		require.NotNil(t, job.LastRun)
		assert.True(t, baseTime.Equal(*job.LastRun))
		assert.True(t, job.Running)

		sub.finish("exec-1")
		waitIdle(t, s, "enhanced-daily-news_morning")
	})

	t.Run("job parameters are copied", func(t *testing.T) {
		sub := newFakeSubmitter()
		jobs := []config.JobConfig{{
			ID: "j", AgentID: "x", Schedule: "0 9 * * *", Timezone: "UTC",
			Parameters: map[string]any{"max_repos": 5},
		}}
		s, err := New(jobs, sub)
		require.NoError(t, err)
		t.Cleanup(s.Stop)

		_, err = s.Fire(context.Background(), "j")
		require.NoError(t, err)

		got := sub.submissions()[0].Params
		assert.Equal(t, 5, got["max_repos"])
		assert.NotContains(t, jobs[0].Parameters, "scheduled")
		sub.finish("exec-1")
	})

	t.Run("unknown job", func(t *testing.T) {
		s, _ := newTestScheduler(t, newFakeSubmitter())
		_, err := s.Fire(context.Background(), "nope")
		assert.ErrorIs(t, err, ErrJobNotFound)
	})

	t.Run("skips while previous run is active", func(t *testing.T) {
		sub := newFakeSubmitter()
		obs := &outcomeRecorder{}
		s, _ := newTestScheduler(t, sub, WithObserver(obs))
		const id = "enhanced-daily-news_morning"

		_, err := s.Fire(context.Background(), id)
		require.NoError(t, err)

		_, err = s.Fire(context.Background(), id)
		require.ErrorIs(t, err, ErrJobRunning)
		assert.Equal(t, 1, s.Jobs()[1].Skipped)
		assert.Len(t, sub.submissions(), 1)

		sub.finish("exec-1")
		waitIdle(t, s, id)

		_, err = s.Fire(context.Background(), id)
		require.NoError(t, err)
		assert.Len(t, sub.submissions(), 2)
		assert.Equal(t, []string{id + ":submitted", id + ":skipped", id + ":submitted"}, obs.list())
		sub.finish("exec-2")
	})

	t.Run("non-terminal last execution blocks even without flag", func(t *testing.T) {
		sub := newFakeSubmitter()
		s, _ := newTestScheduler(t, sub)
		const id = "enhanced-daily-news_morning"

		_, err := s.Fire(context.Background(), id)
		require.NoError(t, err)
		// Simulate a lost waiter: flag cleared but record still pending.
		s.clearInFlight(s.jobs[id])

		_, err = s.Fire(context.Background(), id)
		require.ErrorIs(t, err, ErrJobRunning)
		sub.finish("exec-1")
	})

	t.Run("swept last execution does not block", func(t *testing.T) {
		sub := newFakeSubmitter()
		s, _ := newTestScheduler(t, sub)
		const id = "enhanced-daily-news_morning"

		_, err := s.Fire(context.Background(), id)
		require.NoError(t, err)
		sub.finish("exec-1")
		waitIdle(t, s, id)
		sub.forget("exec-1")

		_, err = s.Fire(context.Background(), id)
		require.NoError(t, err)
		sub.finish("exec-2")
	})

	t.Run("submit failure clears the flag", func(t *testing.T) {
		sub := newFakeSubmitter()
		sub.submitErr = errors.New("agent requirements not met")
		obs := &outcomeRecorder{}
		s, _ := newTestScheduler(t, sub, WithObserver(obs))
		const id = "enhanced-daily-news_morning"

		_, err := s.Fire(context.Background(), id)
		require.Error(t, err)
		assert.False(t, s.Jobs()[1].Running)
		assert.Equal(t, []string{id + ":error"}, obs.list())
	})
}

func TestFireWithLocker(t *testing.T) {
	const id = "enhanced-daily-news_morning"
	key := LockKeyPrefix + id

	t.Run("lock held for the run and released after", func(t *testing.T) {
		sub := newFakeSubmitter()
		locker := newMemLocker()
		s, _ := newTestScheduler(t, sub, WithLocker(locker),
			WithLockTTL(func(agentID string) time.Duration {
				assert.Equal(t, config.AgentDailyNews, agentID)
				return 7 * time.Minute
			}))

		_, err := s.Fire(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, locker.isHeld(key))
		assert.Equal(t, 7*time.Minute, locker.held[key])

		sub.finish("exec-1")
		require.Eventually(t, func() bool { return !locker.isHeld(key) }, time.Second, 5*time.Millisecond)
	})

	t.Run("lock held elsewhere skips", func(t *testing.T) {
		sub := newFakeSubmitter()
		locker := newMemLocker()
		locker.held[key] = time.Minute
		obs := &outcomeRecorder{}
		s, _ := newTestScheduler(t, sub, WithLocker(locker), WithObserver(obs))

		_, err := s.Fire(context.Background(), id)
		require.ErrorIs(t, err, ErrJobLocked)
		assert.Empty(t, sub.submissions())
		assert.False(t, s.Jobs()[1].Running)
		assert.Equal(t, 1, s.Jobs()[1].Skipped)
		assert.Equal(t, []string{id + ":locked"}, obs.list())
	})

	t.Run("lock error skips", func(t *testing.T) {
		sub := newFakeSubmitter()
		locker := newMemLocker()
		locker.err = errors.New("connection refused")
		s, _ := newTestScheduler(t, sub, WithLocker(locker))

		_, err := s.Fire(context.Background(), id)
		require.Error(t, err)
		assert.Empty(t, sub.submissions())
		assert.False(t, s.Jobs()[1].Running)
	})

	t.Run("submit failure releases the lock", func(t *testing.T) {
		sub := newFakeSubmitter()
		sub.submitErr = errors.New("boom")
		locker := newMemLocker()
		s, _ := newTestScheduler(t, sub, WithLocker(locker))

		_, err := s.Fire(context.Background(), id)
		require.Error(t, err)
		assert.False(t, locker.isHeld(key))
		assert.Equal(t, []string{key}, locker.released)
	})
}

func TestFireDue(t *testing.T) {
	sub := newFakeSubmitter()
	s, clock := newTestScheduler(t, sub)

	// Nothing is due at 10:00 Rome.
	s.fireDue(context.Background())
	assert.Empty(t, sub.submissions())

	// 15:00 Rome: only the afternoon job fires.
	clock.Set(time.Date(2026, 10, 18, 13, 0, 0, 0, time.UTC))
	s.fireDue(context.Background())
	got := sub.submissions()
	require.Len(t, got, 1)

	jobs := s.Jobs()
	assert.Equal(t, "exec-1", jobs[0].LastExecutionID)
	assert.True(t, time.Date(2026, 10, 19, 13, 0, 0, 0, time.UTC).Equal(*jobs[0].NextRunTime))
	assert.True(t, time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC).Equal(*jobs[1].NextRunTime))
	assert.Empty(t, jobs[1].LastExecutionID)
	sub.finish("exec-1")
}

func TestStartFiresOnTimer(t *testing.T) {
	sub := newFakeSubmitter()
	jobs := []config.JobConfig{{ID: "every-minute", AgentID: "x", Schedule: "* * * * * * *", Timezone: "UTC"}}
	s, err := New(jobs, sub)
	require.NoError(t, err)

	s.Start(context.Background())
	require.Eventually(t, func() bool { return len(sub.submissions()) >= 1 }, 3*time.Second, 10*time.Millisecond)

	sub.finish("exec-1")
	s.Stop()
}

func TestStopEndsWaiters(t *testing.T) {
	sub := newFakeSubmitter()
	s, err := New(builtinJobs(), sub)
	require.NoError(t, err)

	_, err = s.Fire(context.Background(), "enhanced-daily-news_morning")
	require.NoError(t, err)

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return while a run was pending")
	}
}
