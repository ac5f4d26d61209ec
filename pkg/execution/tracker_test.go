package execution

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestTrackerLifecycle(t *testing.T) {
	clock := newFakeClock()
	tr := NewTracker(WithClock(clock.Now))

	rec := tr.Create("enhanced-daily-news", map[string]any{"topics": []string{"AI"}}, SourceAPI)
	assert.Equal(t, StatusPending, rec.Status)
	assert.Equal(t, SourceAPI, rec.Source)
	assert.Nil(t, rec.CompletedAt)

	clock.Advance(time.Second)
	require.NoError(t, tr.Start(rec.ID))
	clock.Advance(90 * time.Second)
	require.NoError(t, tr.Complete(rec.ID, "digest"))

	got, err := tr.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, "digest", got.Result)
	require.NotNil(t, got.StartedAt)
	require.NotNil(t, got.CompletedAt)
	require.NotNil(t, got.DurationSeconds)
	assert.Equal(t, got.CompletedAt.Sub(got.CreatedAt).Seconds(), *got.DurationSeconds)
	assert.Equal(t, 91.0, *got.DurationSeconds)

	done, err := tr.Done(rec.ID)
	require.NoError(t, err)
	select {
	case <-done:
	default:
		t.Fatal("done channel not closed after completion")
	}
}

func TestTrackerFail(t *testing.T) {
	tr := NewTracker()
	rec := tr.Create("github-trending", nil, SourceSchedule)
	require.NoError(t, tr.Start(rec.ID))
	require.NoError(t, tr.Fail(rec.ID, "telegram delivery failed: chat not found"))

	got, err := tr.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "telegram delivery failed: chat not found", got.Error)
	assert.NotNil(t, got.DurationSeconds)
}

func TestTrackerTransitionsAreMonotonic(t *testing.T) {
	tr := NewTracker()

	pending := tr.Create("a", nil, SourceAPI)
	assert.ErrorIs(t, tr.Complete(pending.ID, "x"), ErrInvalidTransition)
	assert.ErrorIs(t, tr.Fail(pending.ID, "x"), ErrInvalidTransition)

	done := tr.Create("a", nil, SourceAPI)
	require.NoError(t, tr.Start(done.ID))
	assert.ErrorIs(t, tr.Start(done.ID), ErrInvalidTransition)
	require.NoError(t, tr.Complete(done.ID, "ok"))

	assert.ErrorIs(t, tr.Start(done.ID), ErrInvalidTransition)
	assert.ErrorIs(t, tr.Fail(done.ID, "late"), ErrInvalidTransition)
	assert.ErrorIs(t, tr.Complete(done.ID, "again"), ErrInvalidTransition)

	got, _ := tr.Get(done.ID)
	assert.Equal(t, "ok", got.Result)
	assert.Empty(t, got.Error)

	assert.ErrorIs(t, tr.Start("missing"), ErrNotFound)
}

func TestTrackerCancel(t *testing.T) {
	tr := NewTracker()

	t.Run("pending", func(t *testing.T) {
		rec := tr.Create("a", nil, SourceAPI)
		prev, err := tr.Cancel(rec.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, prev)
		assert.ErrorIs(t, tr.Start(rec.ID), ErrInvalidTransition)
	})

	t.Run("running rejects late completion", func(t *testing.T) {
		rec := tr.Create("a", nil, SourceAPI)
		require.NoError(t, tr.Start(rec.ID))
		prev, err := tr.Cancel(rec.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusRunning, prev)
		assert.ErrorIs(t, tr.Complete(rec.ID, "late"), ErrInvalidTransition)

		got, _ := tr.Get(rec.ID)
		assert.Equal(t, StatusCancelled, got.Status)
		assert.NotNil(t, got.CompletedAt)
	})

	t.Run("terminal is not cancellable", func(t *testing.T) {
		rec := tr.Create("a", nil, SourceAPI)
		require.NoError(t, tr.Start(rec.ID))
		require.NoError(t, tr.Complete(rec.ID, "ok"))
		_, err := tr.Cancel(rec.ID)
		assert.ErrorIs(t, err, ErrNotCancellable)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := tr.Cancel("nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestTrackerGetReturnsCopy(t *testing.T) {
	tr := NewTracker()
	rec := tr.Create("a", map[string]any{"k": "v"}, SourceAPI)

	got, _ := tr.Get(rec.ID)
	got.Status = StatusCompleted
	got.Parameters["k"] = "changed"

	again, _ := tr.Get(rec.ID)
	assert.Equal(t, StatusPending, again.Status)
	assert.Equal(t, "v", again.Parameters["k"])
}

func TestTrackerIDsAreNeverReused(t *testing.T) {
	ids := []string{"id-1", "id-1", "id-2", "id-1", "id-2", "id-3"}
	next := 0
	gen := func() string {
		id := ids[next]
		next++
		return id
	}
	clock := newFakeClock()
	tr := NewTracker(WithClock(clock.Now), WithIDGenerator(gen))

	first := tr.Create("a", nil, SourceAPI)
	second := tr.Create("a", nil, SourceAPI)
	assert.Equal(t, "id-1", first.ID)
	assert.Equal(t, "id-2", second.ID)

	// Swept IDs stay reserved.
	_, _ = tr.Cancel(first.ID)
	clock.Advance(2 * time.Hour)
	assert.Equal(t, 1, tr.Sweep(time.Hour, false))

	third := tr.Create("a", nil, SourceAPI)
	assert.Equal(t, "id-3", third.ID)
}

func TestTrackerUniqueIDsUnderConcurrency(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	ids := make(chan string, 200)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- tr.Create("a", nil, SourceAPI).ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Equal(t, 200, tr.Len())
}

func TestTrackerListAndMetrics(t *testing.T) {
	clock := newFakeClock()
	tr := NewTracker(WithClock(clock.Now))

	var ids []string
	for i := 0; i < 12; i++ {
		agentID := "news"
		if i%3 == 0 {
			agentID = "trending"
		}
		ids = append(ids, tr.Create(agentID, nil, SourceAPI).ID)
		clock.Advance(time.Second)
	}

	// 0..5 complete, 6..7 fail, 8 cancelled, 9 running, 10..11 pending.
	for i := 0; i <= 9; i++ {
		if i == 8 {
			continue
		}
		require.NoError(t, tr.Start(ids[i]))
	}
	for i := 0; i <= 5; i++ {
		require.NoError(t, tr.Complete(ids[i], fmt.Sprintf("r%d", i)))
	}
	require.NoError(t, tr.Fail(ids[6], "boom"))
	require.NoError(t, tr.Fail(ids[7], "boom"))
	_, err := tr.Cancel(ids[8])
	require.NoError(t, err)

	list := tr.List(3)
	require.Len(t, list, 3)
	assert.Equal(t, []string{ids[11], ids[10], ids[9]}, []string{list[0].ID, list[1].ID, list[2].ID})
	assert.Len(t, tr.List(0), 12)

	m := tr.Metrics()
	assert.Equal(t, 12, m.TotalExecutions)
	assert.Equal(t, 6, m.Successful)
	assert.Equal(t, 2, m.Failed)
	assert.Equal(t, 1, m.Cancelled)
	assert.Equal(t, 1, m.Running)
	assert.Equal(t, 2, m.Pending)
	assert.InDelta(t, 50.0, m.SuccessRate, 0.001)
	assert.Len(t, m.Recent, RecentLimit)
	assert.Equal(t, ids[11], m.Recent[0].ID)

	// Records 0..8 finished at now (12s after start); record i was created at i seconds.
	var sum float64
	for i := 0; i <= 8; i++ {
		sum += float64(12 - i)
	}
	assert.InDelta(t, sum/9, m.AverageDurationSeconds, 0.001)

	assert.Equal(t, AgentCounts{Total: 4, Successful: 2, Failed: 1}, m.PerAgent["trending"])
	assert.Equal(t, AgentCounts{Total: 8, Successful: 4, Failed: 1}, m.PerAgent["news"])
}

func TestTrackerSweep(t *testing.T) {
	clock := newFakeClock()
	tr := NewTracker(WithClock(clock.Now))

	old := tr.Create("a", nil, SourceAPI)
	require.NoError(t, tr.Start(old.ID))
	require.NoError(t, tr.Complete(old.ID, "ok"))
	oldRunning := tr.Create("a", nil, SourceAPI)
	require.NoError(t, tr.Start(oldRunning.ID))

	clock.Advance(25 * time.Hour)
	fresh := tr.Create("a", nil, SourceAPI)

	assert.Equal(t, 1, tr.Sweep(24*time.Hour, false))
	_, err := tr.Get(old.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = tr.Get(oldRunning.ID)
	assert.NoError(t, err, "active records survive a default sweep")

	done, _ := tr.Done(oldRunning.ID)
	assert.Equal(t, 1, tr.Sweep(24*time.Hour, true))
	select {
	case <-done:
	default:
		t.Fatal("waiters must be released when an active record is swept")
	}

	_, err = tr.Get(fresh.ID)
	assert.NoError(t, err)
}
