package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte(content), 0o644))
	return dir
}

func TestInitializeWithoutConfigFile(t *testing.T) {
	cfg, err := Initialize(context.Background(), t.TempDir())
	require.NoError(t, err)

	assert.True(t, cfg.AgentRegistry.Has(AgentDailyNews))
	assert.True(t, cfg.AgentRegistry.Has(AgentGitHubTrending))
	assert.Equal(t, []string{AgentDailyNews, AgentGitHubTrending}, cfg.AgentRegistry.IDs())

	assert.Equal(t, 8000, cfg.Server.HTTPPort)
	assert.Equal(t, 9090, cfg.Server.GRPCHealthPort)
	assert.Equal(t, DefaultQueueConfig(), cfg.Queue)
	assert.Equal(t, DefaultRetentionConfig(), cfg.Retention)
	assert.Equal(t, SearchProviderDuckDuckGo, cfg.Search.Provider)
	assert.Equal(t, ScrapeProviderReadability, cfg.Scrape.Provider)
	assert.Equal(t, "OPENAI_API_KEY", cfg.LLM.APIKeyEnv)
	assert.Nil(t, cfg.LLM.Temperature)
	assert.False(t, cfg.Slack.Enabled)

	require.Len(t, cfg.Scheduler.Jobs, 2)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, "enhanced-daily-news_morning", cfg.Scheduler.Jobs[0].ID)
	assert.Equal(t, "0 9 * * *", cfg.Scheduler.Jobs[0].Schedule)
	assert.Equal(t, "Europe/Rome", cfg.Scheduler.Jobs[1].Timezone)

	stats := cfg.Stats()
	assert.Equal(t, Stats{Agents: 2, EnabledAgents: 2, SchedulerJobs: 2}, stats)
}

func TestInitializeFromFile(t *testing.T) {
	t.Setenv("HERALD_TEST_CHAT_ENV", "NEWS_CHAT")
	t.Setenv("NEWS_CHAT", "-100123")
	t.Setenv("TELEGRAM_BOT_TOKEN", "bot-token")

	dir := writeConfig(t, `
server:
  http_port: 8080
  grpc_health_port: 0
queue:
  max_concurrent_runs: 5
  default_timeout: 2m
retention:
  sweep_active: true
scheduler:
  timezone: UTC
  jobs:
    - id: trending_weekly
      agent_id: github-trending
      schedule: "0 8 * * 1"
      parameters:
        max_repos: 5
llm:
  model: gpt-4.1
  temperature: 0.2
  stage_models:
    news_summarizer: gpt-4.1-nano
search:
  provider: brave
scrape:
  provider: firecrawl
  max_chars: 2000
  firecrawl:
    tool: scrape_url
telegram:
  chat_id_env: "{{.HERALD_TEST_CHAT_ENV}}"
system:
  dashboard_url: https://herald.example.com
  slack:
    enabled: true
    channel: C0123
agents:
  github-trending:
    timeout_seconds: 120
  enhanced-daily-news:
    enabled: false
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 0, cfg.Server.GRPCHealthPort)

	assert.Equal(t, 5, cfg.Queue.MaxConcurrentRuns)
	assert.Equal(t, 2*time.Minute, cfg.Queue.DefaultTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Queue.GracefulShutdownTimeout, "unset value keeps the default")
	assert.True(t, cfg.Retention.SweepActive)
	assert.Equal(t, 24*time.Hour, cfg.Retention.ExecutionMaxAge)

	require.Len(t, cfg.Scheduler.Jobs, 1, "user jobs replace the built-in ones")
	job := cfg.Scheduler.Jobs[0]
	assert.Equal(t, "UTC", job.Timezone, "job inherits the scheduler timezone")
	assert.Equal(t, "trending_weekly", job.Name)
	assert.Equal(t, 5, job.Parameters["max_repos"])

	assert.Equal(t, "gpt-4.1", cfg.LLM.Model)
	require.NotNil(t, cfg.LLM.Temperature)
	assert.InDelta(t, 0.2, *cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 2000, cfg.LLM.MaxTokens)
	assert.Equal(t, "gpt-4.1-nano", cfg.LLM.StageModels["news_summarizer"])

	assert.Equal(t, SearchProviderBrave, cfg.Search.Provider)
	assert.Equal(t, "BRAVE_API_KEY", cfg.Search.BraveAPIKeyEnv)
	assert.Equal(t, ScrapeProviderFirecrawl, cfg.Scrape.Provider)
	assert.Equal(t, 2000, cfg.Scrape.MaxChars)
	assert.Equal(t, "scrape_url", cfg.Scrape.Firecrawl.Tool)
	assert.Equal(t, "npx", cfg.Scrape.Firecrawl.Command, "nested defaults survive a partial override")

	assert.Equal(t, "NEWS_CHAT", cfg.Telegram.ChatIDEnv)
	assert.Equal(t, "-100123", cfg.Credentials.TelegramChatID)
	assert.True(t, cfg.Credentials.TelegramConfigured())

	assert.Equal(t, "https://herald.example.com", cfg.DashboardURL)
	assert.True(t, cfg.Slack.Enabled)
	assert.Equal(t, "SLACK_BOT_TOKEN", cfg.Slack.TokenEnv)

	trending, err := cfg.GetAgent(AgentGitHubTrending)
	require.NoError(t, err)
	assert.Equal(t, 120, trending.TimeoutSeconds)
	assert.Equal(t, "GitHub Trending Repositories Agent", trending.Name, "partial override keeps built-in fields")
	assert.Equal(t, []Requirement{RequirementGitHub}, trending.Requires)
	assert.Equal(t, 2*time.Minute, cfg.AgentTimeout(trending))

	news, err := cfg.GetAgent(AgentDailyNews)
	require.NoError(t, err)
	assert.False(t, news.IsEnabled())
	assert.Equal(t, 600*time.Second, news.Timeout(time.Minute))

	assert.Equal(t, Stats{Agents: 2, EnabledAgents: 1, SchedulerJobs: 1}, cfg.Stats())
}

func TestSchedulerTimezoneAppliesToBuiltinJobs(t *testing.T) {
	dir := writeConfig(t, `
scheduler:
  timezone: America/New_York
`)
	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, cfg.Scheduler.Jobs, 2)
	for _, j := range cfg.Scheduler.Jobs {
		assert.Equal(t, "America/New_York", j.Timezone, j.ID)
	}
	assert.Empty(t, GetBuiltinConfig().SchedulerJobs[0].Timezone)
}

func TestInitializeInvalidYAML(t *testing.T) {
	dir := writeConfig(t, "queue: [unclosed")

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidYAML)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ConfigFile, loadErr.File)
}

func TestInitializeValidationFailure(t *testing.T) {
	dir := writeConfig(t, `
scheduler:
  jobs:
    - id: nightly
      agent_id: does-not-exist
      schedule: "0 2 * * *"
`)

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.ErrorIs(t, err, ErrInvalidReference)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "scheduler_job", valErr.Component)
	assert.Equal(t, "nightly", valErr.ID)
	assert.Equal(t, "agent_id", valErr.Field)
}

func TestInitializeAddsUserAgent(t *testing.T) {
	dir := writeConfig(t, `
agents:
  weekly-digest:
    description: Weekly recap
    requires: [telegram]
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	agent, err := cfg.GetAgent("weekly-digest")
	require.NoError(t, err)
	assert.Equal(t, "weekly-digest", agent.Name, "name defaults to the id")
	assert.Equal(t, []Requirement{RequirementTelegram}, agent.Requires)
	assert.Equal(t, 3, cfg.AgentRegistry.Len())
}

func TestBuiltinAgentsNotMutatedByOverrides(t *testing.T) {
	dir := writeConfig(t, `
agents:
  enhanced-daily-news:
    default_parameters:
      max_articles_per_topic: 5
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	news, err := cfg.GetAgent(AgentDailyNews)
	require.NoError(t, err)
	assert.Equal(t, 5, news.DefaultParameters["max_articles_per_topic"])
	assert.NotNil(t, news.DefaultParameters["topics"], "map override merges keys")

	builtin := GetBuiltinConfig().Agents[AgentDailyNews]
	assert.Equal(t, 3, builtin.DefaultParameters["max_articles_per_topic"])
}
