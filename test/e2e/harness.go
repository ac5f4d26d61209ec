// Package e2e provides end-to-end test infrastructure for herald: a real
// orchestrator, worker pool, scheduler and HTTP API backed by a scripted LLM
// and fake Telegram and GitHub endpoints.
package e2e

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/herald/pkg/agent"
	"github.com/codeready-toolchain/herald/pkg/api"
	"github.com/codeready-toolchain/herald/pkg/config"
	"github.com/codeready-toolchain/herald/pkg/execution"
	"github.com/codeready-toolchain/herald/pkg/github"
	"github.com/codeready-toolchain/herald/pkg/health"
	"github.com/codeready-toolchain/herald/pkg/metrics"
	"github.com/codeready-toolchain/herald/pkg/orchestrator"
	"github.com/codeready-toolchain/herald/pkg/pipeline"
	"github.com/codeready-toolchain/herald/pkg/queue"
	"github.com/codeready-toolchain/herald/pkg/scheduler"
	"github.com/codeready-toolchain/herald/pkg/scrape"
	"github.com/codeready-toolchain/herald/pkg/search"
	"github.com/codeready-toolchain/herald/pkg/telegram"
)

// TestApp boots a complete herald instance for e2e testing.
type TestApp struct {
	// Core
	Config *config.Config

	// Mocks / test wiring
	LLMClient *ScriptedLLMClient
	Telegram  *TelegramServer
	GitHub    *GitHubServer

	// Real infrastructure
	Metrics   *metrics.Metrics
	Service   *orchestrator.Service
	Pool      *queue.WorkerPool
	Scheduler *scheduler.Scheduler
	Server    *api.Server

	// Runtime
	BaseURL string

	t *testing.T
}

// testAppConfig holds options accumulated before creating the TestApp.
type testAppConfig struct {
	llmClient   *ScriptedLLMClient
	repos       []GitHubRepo
	workerCount int
	extraYAML   string
	env         map[string]string
}

// TestAppOption configures the test app.
type TestAppOption func(*testAppConfig)

// WithLLMClient sets a pre-scripted LLM client.
func WithLLMClient(client *ScriptedLLMClient) TestAppOption {
	return func(c *testAppConfig) { c.llmClient = client }
}

// WithGitHubRepos sets the repositories returned by the fake GitHub API.
func WithGitHubRepos(repos ...GitHubRepo) TestAppOption {
	return func(c *testAppConfig) { c.repos = repos }
}

// WithWorkerCount sets the number of concurrent runs.
func WithWorkerCount(n int) TestAppOption {
	return func(c *testAppConfig) { c.workerCount = n }
}

// WithConfigYAML appends top-level sections to the generated herald.yaml.
func WithConfigYAML(yaml string) TestAppOption {
	return func(c *testAppConfig) { c.extraYAML = yaml }
}

// WithEnv overrides an environment variable for the test. An empty value
// unsets the credential.
func WithEnv(key, value string) TestAppOption {
	return func(c *testAppConfig) { c.env[key] = value }
}

// NewTestApp creates and starts a full herald test instance.
// Shutdown is registered via t.Cleanup automatically.
func NewTestApp(t *testing.T, opts ...TestAppOption) *TestApp {
	t.Helper()

	tc := &testAppConfig{
		workerCount: 1,
		env: map[string]string{
			"OPENAI_API_KEY":     "sk-test",
			"TELEGRAM_BOT_TOKEN": "123:test",
			"TELEGRAM_CHAT_ID":   "-1001",
			"GITHUB_TOKEN":       "ghp_test",
			"REDIS_URL":          "",
		},
	}
	for _, opt := range opts {
		opt(tc)
	}
	if tc.llmClient == nil {
		tc.llmClient = NewScriptedLLMClient()
	}
	for k, v := range tc.env {
		t.Setenv(k, v)
	}

	// 1. Fake upstreams.
	tg := NewTelegramServer(t)
	gh := NewGitHubServer(t, tc.repos...)
	unreachable := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(unreachable.Close)

	// 2. Configuration, through the real loader.
	dir := t.TempDir()
	yaml := fmt.Sprintf(`queue:
  max_concurrent_runs: %d
  default_timeout: 30s
  graceful_shutdown_timeout: 10s
telegram:
  api_url: %s
github:
  api_url: %s
market:
  api_url: %s
search:
  url: %s
scheduler:
  timezone: UTC
  jobs:
    - id: trending_daily
      agent_id: github-trending
      schedule: "0 8 * * *"
      parameters:
        max_repos: 3
%s`, tc.workerCount, tg.URL, gh.URL, unreachable.URL, unreachable.URL, tc.extraYAML)
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigFile), []byte(yaml), 0o644))

	ctx := context.Background()
	cfg, err := config.Initialize(ctx, dir)
	require.NoError(t, err)

	// 3. Pipelines.
	m := metrics.New()
	httpClient := &http.Client{Timeout: 5 * time.Second}
	registry := pipeline.NewDefaultRegistry(pipeline.Deps{
		LLM:            tc.llmClient,
		Searcher:       search.NewDuckDuckGo(cfg.Search.URL, httpClient),
		Scraper:        scrape.NewReadability(httpClient, cfg.Scrape.MaxChars),
		ScrapeMaxChars: cfg.Scrape.MaxChars,
		GitHub:         github.NewClient(cfg.GitHub.APIURL, cfg.Credentials.GitHubToken),
		Sender: telegram.NewClient(cfg.Credentials.TelegramBotToken, cfg.Credentials.TelegramChatID,
			telegram.WithAPIURL(cfg.Telegram.APIURL)),
		Delivery: m,
	})

	// 4. Orchestrator and worker pool.
	svc := orchestrator.NewService(cfg, registry, execution.NewTracker(), orchestrator.WithMetrics(m))
	pool := queue.NewWorkerPool(cfg.Queue.MaxConcurrentRuns, svc)
	svc.AttachPool(pool)
	m.RegisterQueueDepth(pool.QueueDepth)
	pool.Start(ctx)

	// 5. Scheduler (timer loop not started; jobs are fired over HTTP).
	sched, err := scheduler.New(cfg.Scheduler.Jobs, svc, scheduler.WithObserver(m))
	require.NoError(t, err)

	// 6. HTTP server.
	checker := health.NewChecker(cfg, svc, pool, sched)
	server := api.NewServer(cfg, svc, checker,
		api.WithScheduler(sched),
		api.WithMetricsHandler(m.Handler()))
	httpSrv := httptest.NewServer(server.Handler())

	app := &TestApp{
		Config:    cfg,
		LLMClient: tc.llmClient,
		Telegram:  tg,
		GitHub:    gh,
		Metrics:   m,
		Service:   svc,
		Pool:      pool,
		Scheduler: sched,
		Server:    server,
		BaseURL:   httpSrv.URL,
		t:         t,
	}

	// Register cleanup in reverse-creation order.
	t.Cleanup(func() {
		httpSrv.Close()
		sched.Stop()
		svc.CancelQueued(context.Background(), pool.Stop())
	})

	return app
}

// ScriptTrending scripts every trending stage. fetched is the fetcher
// stage reply; "[]" forces the REST fallback.
func ScriptTrending(llm *ScriptedLLMClient, fetched, final string) {
	llm.AddRouted(agent.StageRepoSearchCoordinator, LLMScriptEntry{Text: `{"search_query": "stars:>1000 language:go"}`})
	llm.AddRouted(agent.StageRepoFetcher, LLMScriptEntry{Text: fetched})
	llm.AddRouted(agent.StageRepoAnalyzer, LLMScriptEntry{Text: `[{"rank": 1, "full_name": "golang/go", "stars": 120000}]`})
	llm.AddRouted(agent.StageTelegramFormatter, LLMScriptEntry{Text: "Top repositories today"})
	llm.AddRouted(agent.StageTrendingAssembly, LLMScriptEntry{Text: final})
}

