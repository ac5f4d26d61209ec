package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/herald/pkg/config"
	"github.com/codeready-toolchain/herald/pkg/execution"
	"github.com/codeready-toolchain/herald/pkg/pipeline"
	"github.com/codeready-toolchain/herald/pkg/queue"
	"github.com/codeready-toolchain/herald/pkg/slack"
)

type fakePipeline struct {
	id       string
	validate func(params map[string]any) error
	run      func(ctx context.Context, in pipeline.Input) (string, error)
}

func (p *fakePipeline) AgentID() string { return p.id }

func (p *fakePipeline) Validate(params map[string]any) error {
	if p.validate == nil {
		return nil
	}
	return p.validate(params)
}

func (p *fakePipeline) Run(ctx context.Context, in pipeline.Input) (string, error) {
	return p.run(ctx, in)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []slack.ExecutionNotification
}

func (n *recordingNotifier) NotifyExecutionCompleted(_ context.Context, input slack.ExecutionNotification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, input)
}

func (n *recordingNotifier) notifications() []slack.ExecutionNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]slack.ExecutionNotification(nil), n.sent...)
}

type harness struct {
	cfg      *config.Config
	svc      *Service
	pool     *queue.WorkerPool
	notifier *recordingNotifier
	news     *fakePipeline
	trending *fakePipeline
}

func newHarness(t *testing.T, workers int) *harness {
	t.Helper()
	cfg, err := config.Initialize(context.Background(), t.TempDir())
	require.NoError(t, err)
	cfg.Credentials = config.Credentials{OpenAIAPIKey: "sk-test"}

	h := &harness{
		cfg:      cfg,
		notifier: &recordingNotifier{},
		news: &fakePipeline{id: config.AgentDailyNews, run: func(context.Context, pipeline.Input) (string, error) {
			return "digest", nil
		}},
		trending: &fakePipeline{id: config.AgentGitHubTrending, run: func(context.Context, pipeline.Input) (string, error) {
			return "repos", nil
		}},
	}
	h.svc = NewService(cfg, pipeline.NewRegistry(h.news, h.trending), execution.NewTracker(), WithNotifier(h.notifier))
	h.pool = queue.NewWorkerPool(workers, h.svc)
	h.svc.AttachPool(h.pool)
	h.pool.Start(context.Background())
	t.Cleanup(func() { h.pool.Stop() })
	return h
}

func TestListAgents(t *testing.T) {
	h := newHarness(t, 1)

	agents := h.svc.ListAgents(false)
	require.Len(t, agents, 2)

	news := agents[0]
	assert.Equal(t, config.AgentDailyNews, news.ID)
	assert.Equal(t, "Enhanced Daily News Agent", news.Name)
	assert.Equal(t, "news", news.Category)
	assert.True(t, news.Available)
	assert.True(t, news.RequirementsMet)
	assert.Empty(t, news.MissingRequirements)
	assert.Equal(t, 600, news.TimeoutSeconds)
	assert.Contains(t, news.DefaultParameters, "topics")

	trending := agents[1]
	assert.Equal(t, config.AgentGitHubTrending, trending.ID)
	assert.Equal(t, "general", trending.Category)
	assert.False(t, trending.Available)
	assert.Equal(t, []string{"GITHUB_TOKEN is required for this agent"}, trending.MissingRequirements)
	assert.Equal(t, 300, trending.TimeoutSeconds)

	available := h.svc.ListAgents(true)
	require.Len(t, available, 1)
	assert.Equal(t, config.AgentDailyNews, available[0].ID)
}

func TestGetAgentUnknown(t *testing.T) {
	h := newHarness(t, 1)
	_, err := h.svc.GetAgent("weather")
	assert.ErrorIs(t, err, ErrAgentNotFound)
}

func TestCategory(t *testing.T) {
	assert.Equal(t, "news", Category("enhanced-daily-news"))
	assert.Equal(t, "finance", Category("finance-watch"))
	assert.Equal(t, "research", Category("deep-research"))
	assert.Equal(t, "general", Category("github-trending"))
}

func TestSubmitRejections(t *testing.T) {
	h := newHarness(t, 1)

	t.Run("unknown agent", func(t *testing.T) {
		_, err := h.svc.Submit(context.Background(), "weather", nil, execution.SourceAPI)
		assert.ErrorIs(t, err, ErrAgentNotFound)
	})

	t.Run("missing requirements", func(t *testing.T) {
		_, err := h.svc.Submit(context.Background(), config.AgentGitHubTrending, nil, execution.SourceAPI)
		var reqErr *RequirementsError
		require.ErrorAs(t, err, &reqErr)
		assert.Equal(t, []string{"GITHUB_TOKEN is required for this agent"}, reqErr.Missing)
		assert.Contains(t, err.Error(), "agent requirements not met")
	})

	t.Run("invalid parameters", func(t *testing.T) {
		h.news.validate = func(map[string]any) error {
			return &pipeline.ParameterError{Param: "topics", Message: "too many topics"}
		}
		defer func() { h.news.validate = nil }()

		_, err := h.svc.Submit(context.Background(), config.AgentDailyNews, map[string]any{"topics": []string{"x"}}, execution.SourceAPI)
		var valErr *ValidationError
		require.ErrorAs(t, err, &valErr)
		var paramErr *pipeline.ParameterError
		assert.ErrorAs(t, err, &paramErr)
	})

	t.Run("disabled agent", func(t *testing.T) {
		disabled := false
		h.cfg.AgentRegistry = config.NewAgentRegistry(map[string]*config.AgentConfig{
			config.AgentDailyNews: {Name: "News", Enabled: &disabled},
		})
		_, err := h.svc.Submit(context.Background(), config.AgentDailyNews, nil, execution.SourceAPI)
		assert.ErrorIs(t, err, ErrAgentDisabled)
	})

	assert.Zero(t, h.svc.Tracker().Len(), "rejected submissions leave no record")
}

func TestRunToCompletion(t *testing.T) {
	h := newHarness(t, 2)

	var got map[string]any
	h.news.run = func(_ context.Context, in pipeline.Input) (string, error) {
		got = in.Parameters
		return "*News Agent*", nil
	}

	rec, err := h.svc.RunToCompletion(context.Background(), config.AgentDailyNews,
		map[string]any{"max_articles_per_topic": 2}, execution.SourceCLI)
	require.NoError(t, err)

	assert.Equal(t, execution.StatusCompleted, rec.Status)
	assert.Equal(t, "*News Agent*", rec.Result)
	assert.Equal(t, execution.SourceCLI, rec.Source)
	require.NotNil(t, rec.DurationSeconds)

	assert.Equal(t, 2, got["max_articles_per_topic"], "supplied value wins")
	assert.Contains(t, got, "topics", "defaults merged underneath")

	sent := h.notifier.notifications()
	require.Len(t, sent, 1)
	assert.Equal(t, "completed", sent[0].Status)
	assert.Equal(t, "Enhanced Daily News Agent", sent[0].AgentName)
	assert.Equal(t, "cli", sent[0].Source)
}

func TestExecuteOutcomes(t *testing.T) {
	t.Run("empty result gets a default", func(t *testing.T) {
		h := newHarness(t, 1)
		h.news.run = func(context.Context, pipeline.Input) (string, error) { return "", nil }

		rec, err := h.svc.RunToCompletion(context.Background(), config.AgentDailyNews, nil, execution.SourceAPI)
		require.NoError(t, err)
		assert.Equal(t, defaultResult, rec.Result)
	})

	t.Run("pipeline error fails the run", func(t *testing.T) {
		h := newHarness(t, 1)
		h.news.run = func(context.Context, pipeline.Input) (string, error) {
			return "", errors.New("telegram delivery failed: chat not found")
		}

		rec, err := h.svc.RunToCompletion(context.Background(), config.AgentDailyNews, nil, execution.SourceAPI)
		require.NoError(t, err)
		assert.Equal(t, execution.StatusFailed, rec.Status)
		assert.Equal(t, "telegram delivery failed: chat not found", rec.Error)
		assert.Equal(t, "failed", h.notifier.notifications()[0].Status)
	})

	t.Run("deadline becomes a timeout message", func(t *testing.T) {
		h := newHarness(t, 1)
		h.cfg.AgentRegistry = config.NewAgentRegistry(map[string]*config.AgentConfig{
			config.AgentDailyNews: {Name: "News"},
		})
		h.cfg.Queue.DefaultTimeout = 50 * time.Millisecond
		h.news.run = func(ctx context.Context, _ pipeline.Input) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		}

		rec, err := h.svc.RunToCompletion(context.Background(), config.AgentDailyNews, nil, execution.SourceAPI)
		require.NoError(t, err)
		assert.Equal(t, execution.StatusFailed, rec.Status)
		assert.Equal(t, "agent timed out after 50ms", rec.Error)
	})
}

func TestCancelRunning(t *testing.T) {
	h := newHarness(t, 1)

	started := make(chan struct{})
	checkpointErr := make(chan error, 1)
	h.news.run = func(ctx context.Context, in pipeline.Input) (string, error) {
		close(started)
		<-ctx.Done()
		err := in.Checkpoint(ctx)
		checkpointErr <- err
		return "late result", err
	}

	rec, err := h.svc.Submit(context.Background(), config.AgentDailyNews, nil, execution.SourceAPI)
	require.NoError(t, err)
	<-started

	cancelled, err := h.svc.Cancel(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, execution.StatusCancelled, cancelled.Status)

	final, err := h.svc.Wait(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, execution.StatusCancelled, final.Status)
	assert.ErrorIs(t, <-checkpointErr, errCancelled)

	assert.Eventually(t, func() bool { return len(h.notifier.notifications()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "cancelled", h.notifier.notifications()[0].Status)

	_, err = h.svc.Cancel(context.Background(), rec.ID)
	assert.ErrorIs(t, err, execution.ErrNotCancellable)
}

func TestCancelPending(t *testing.T) {
	h := newHarness(t, 1)

	release := make(chan struct{})
	var runs sync.WaitGroup
	runs.Add(1)
	h.trending.run = func(context.Context, pipeline.Input) (string, error) {
		defer runs.Done()
		<-release
		return "repos", nil
	}
	h.cfg.Credentials.GitHubToken = "ghp"

	var newsRuns int
	h.news.run = func(context.Context, pipeline.Input) (string, error) {
		newsRuns++
		return "digest", nil
	}

	blocker, err := h.svc.Submit(context.Background(), config.AgentGitHubTrending, nil, execution.SourceAPI)
	require.NoError(t, err)
	queued, err := h.svc.Submit(context.Background(), config.AgentDailyNews, nil, execution.SourceAPI)
	require.NoError(t, err)

	rec, err := h.svc.Cancel(context.Background(), queued.ID)
	require.NoError(t, err)
	assert.Equal(t, execution.StatusCancelled, rec.Status)

	close(release)
	runs.Wait()
	_, err = h.svc.Wait(context.Background(), blocker.ID)
	require.NoError(t, err)

	h.pool.Stop()
	assert.Zero(t, newsRuns, "cancelled job is skipped by the worker")

	statuses := map[string]string{}
	for _, n := range h.notifier.notifications() {
		statuses[n.ExecutionID] = n.Status
	}
	assert.Equal(t, map[string]string{blocker.ID: "completed", queued.ID: "cancelled"}, statuses)
}

func TestCancelUnknown(t *testing.T) {
	h := newHarness(t, 1)
	_, err := h.svc.Cancel(context.Background(), "missing")
	assert.ErrorIs(t, err, execution.ErrNotFound)
}

func TestCancelQueuedAtShutdown(t *testing.T) {
	h := newHarness(t, 1)

	release := make(chan struct{})
	started := make(chan struct{})
	h.news.run = func(context.Context, pipeline.Input) (string, error) {
		select {
		case <-started:
		default:
			close(started)
		}
		<-release
		return "digest", nil
	}

	first, err := h.svc.Submit(context.Background(), config.AgentDailyNews, nil, execution.SourceSchedule)
	require.NoError(t, err)
	<-started
	second, err := h.svc.Submit(context.Background(), config.AgentDailyNews, nil, execution.SourceSchedule)
	require.NoError(t, err)

	leftover := make(chan []queue.Job, 1)
	go func() { leftover <- h.pool.Stop() }()
	require.Eventually(t, func() bool { return h.pool.QueueDepth() == 0 }, time.Second, 5*time.Millisecond)
	close(release)

	jobs := <-leftover
	require.Len(t, jobs, 1)
	assert.Equal(t, second.ID, jobs[0].ExecutionID)

	h.svc.CancelQueued(context.Background(), jobs)

	rec, err := h.svc.GetExecution(second.ID)
	require.NoError(t, err)
	assert.Equal(t, execution.StatusCancelled, rec.Status)

	rec, err = h.svc.GetExecution(first.ID)
	require.NoError(t, err)
	assert.Equal(t, execution.StatusCompleted, rec.Status)

	_, err = h.svc.Submit(context.Background(), config.AgentDailyNews, nil, execution.SourceAPI)
	assert.ErrorIs(t, err, queue.ErrPoolStopped)
	m := h.svc.Metrics()
	assert.Equal(t, 3, m.TotalExecutions)
	assert.Equal(t, 2, m.Cancelled, "a rejected enqueue is cancelled, not left pending")
	assert.Zero(t, m.Pending)
}

func TestWaitHonoursContext(t *testing.T) {
	h := newHarness(t, 1)

	release := make(chan struct{})
	defer close(release)
	h.news.run = func(context.Context, pipeline.Input) (string, error) {
		<-release
		return "digest", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	rec, err := h.svc.RunToCompletion(ctx, config.AgentDailyNews, nil, execution.SourceAPI)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotNil(t, rec)
	assert.False(t, rec.Status.Terminal())
}
