package health

import (
	"context"
	"testing"
	"time"

	"github.com/codeready-toolchain/herald/pkg/config"
	"github.com/codeready-toolchain/herald/pkg/orchestrator"
	"github.com/codeready-toolchain/herald/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticAgents []orchestrator.AgentInfo

func (a staticAgents) ListAgents(availableOnly bool) []orchestrator.AgentInfo {
	var out []orchestrator.AgentInfo
	for _, info := range a {
		if availableOnly && !info.Available {
			continue
		}
		out = append(out, info)
	}
	return out
}

type staticPool struct{ healthy bool }

func (p staticPool) Health() *queue.PoolHealth {
	return &queue.PoolHealth{IsHealthy: p.healthy, TotalWorkers: 1}
}

type jobCount int

func (j jobCount) Len() int { return int(j) }

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Initialize(context.Background(), t.TempDir())
	require.NoError(t, err)
	cfg.Credentials = config.Credentials{OpenAIAPIKey: "sk-test"}
	return cfg
}

var bothAgents = staticAgents{
	{ID: config.AgentDailyNews, Available: true},
	{ID: config.AgentGitHubTrending, Available: false},
}

func TestHealth(t *testing.T) {
	t.Run("healthy with key and pool", func(t *testing.T) {
		cfg := loadConfig(t)
		c := NewChecker(cfg, bothAgents, staticPool{healthy: true}, jobCount(2))

		r := c.Health()
		assert.Equal(t, StatusHealthy, r.Status)
		assert.True(t, r.Checks[CheckAPI])
		assert.True(t, r.Checks[CheckConfiguration])
		assert.True(t, r.Checks[CheckOpenAIKey])
		assert.False(t, r.Checks[CheckTelegram])
		assert.False(t, r.Checks[CheckFirecrawl])
		assert.False(t, r.Checks[CheckGitHubToken])
		assert.True(t, r.Checks[CheckWorkerPool])
		assert.True(t, r.Checks[CheckScheduler])
		assert.Equal(t, "1.0.0", r.Version)
		assert.Nil(t, r.AgentsAvailable)
	})

	t.Run("missing key degrades", func(t *testing.T) {
		cfg := loadConfig(t)
		cfg.Credentials.OpenAIAPIKey = ""
		r := NewChecker(cfg, bothAgents, staticPool{healthy: true}, jobCount(2)).Health()
		assert.Equal(t, StatusDegraded, r.Status)
		assert.False(t, r.Checks[CheckOpenAIKey])
	})

	t.Run("stopped pool degrades", func(t *testing.T) {
		r := NewChecker(loadConfig(t), bothAgents, staticPool{healthy: false}, jobCount(2)).Health()
		assert.Equal(t, StatusDegraded, r.Status)
		assert.False(t, r.Checks[CheckWorkerPool])
	})

	t.Run("optional integrations do not degrade", func(t *testing.T) {
		cfg := loadConfig(t)
		cfg.Credentials.TelegramBotToken = "bot"
		cfg.Credentials.TelegramChatID = "42"
		cfg.Credentials.GitHubToken = "ghp"
		r := NewChecker(cfg, bothAgents, staticPool{healthy: true}, jobCount(2)).Health()
		assert.Equal(t, StatusHealthy, r.Status)
		assert.True(t, r.Checks[CheckTelegram])
		assert.True(t, r.Checks[CheckGitHubToken])
	})

	t.Run("enabled scheduler that is not running", func(t *testing.T) {
		r := NewChecker(loadConfig(t), bothAgents, staticPool{healthy: true}, nil).Health()
		assert.False(t, r.Checks[CheckScheduler])
		assert.Equal(t, StatusHealthy, r.Status)
	})

	t.Run("disabled scheduler is healthy", func(t *testing.T) {
		cfg := loadConfig(t)
		cfg.Scheduler.Enabled = false
		r := NewChecker(cfg, bothAgents, staticPool{healthy: true}, nil).Health()
		assert.True(t, r.Checks[CheckScheduler])
	})
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		agents    staticAgents
		pool      PoolReporter
		wantReady bool
		wantCount int
	}{
		{name: "ready", key: "sk", agents: bothAgents, pool: staticPool{healthy: true}, wantReady: true, wantCount: 1},
		{name: "no key", key: "", agents: bothAgents, pool: staticPool{healthy: true}, wantCount: 1},
		{name: "no pool", key: "sk", agents: bothAgents, pool: nil, wantCount: 1},
		{name: "unhealthy pool", key: "sk", agents: bothAgents, pool: staticPool{healthy: false}, wantCount: 1},
		{
			name: "no available agents", key: "sk", pool: staticPool{healthy: true},
			agents: staticAgents{{ID: config.AgentGitHubTrending, Available: false}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := loadConfig(t)
			cfg.Credentials.OpenAIAPIKey = tt.key
			r, ready := NewChecker(cfg, tt.agents, tt.pool, nil).Readiness()

			assert.Equal(t, tt.wantReady, ready)
			if tt.wantReady {
				assert.Equal(t, StatusReady, r.Status)
			} else {
				assert.Equal(t, StatusNotReady, r.Status)
			}
			require.NotNil(t, r.AgentsAvailable)
			assert.Equal(t, tt.wantCount, *r.AgentsAvailable)
			assert.Equal(t, tt.wantCount > 0, r.Checks[CheckAgentsAvailable])
		})
	}
}

func TestLivenessAndUptime(t *testing.T) {
	c := NewChecker(loadConfig(t), bothAgents, nil, nil)
	start := c.started
	c.clock = func() time.Time { return start.Add(90 * time.Second) }

	l := c.Liveness()
	assert.Equal(t, StatusAlive, l.Status)
	assert.InDelta(t, 90, l.UptimeSeconds, 0.001)
	assert.InDelta(t, 90, c.UptimeSeconds(), 0.001)
}

func TestAgentStatus(t *testing.T) {
	c := NewChecker(loadConfig(t), bothAgents, nil, nil)
	assert.Equal(t, map[string]bool{
		config.AgentDailyNews:      true,
		config.AgentGitHubTrending: false,
	}, c.AgentStatus())
}
