package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissingRequirements(t *testing.T) {
	cfg := loadDefaults(t)
	trending, err := cfg.GetAgent(AgentGitHubTrending)
	require.NoError(t, err)
	news, err := cfg.GetAgent(AgentDailyNews)
	require.NoError(t, err)

	t.Run("nothing configured", func(t *testing.T) {
		cfg.Credentials = Credentials{}
		assert.Equal(t, []string{"OPENAI_API_KEY is required"}, cfg.MissingRequirements(news))
		assert.Equal(t, []string{
			"OPENAI_API_KEY is required",
			"GITHUB_TOKEN is required for this agent",
		}, cfg.MissingRequirements(trending))
	})

	t.Run("all configured", func(t *testing.T) {
		cfg.Credentials = Credentials{OpenAIAPIKey: "sk", GitHubToken: "ghp"}
		assert.Empty(t, cfg.MissingRequirements(news))
		assert.Empty(t, cfg.MissingRequirements(trending))
	})

	t.Run("telegram needs token and chat", func(t *testing.T) {
		cfg.Credentials = Credentials{OpenAIAPIKey: "sk", TelegramBotToken: "bot"}
		agent := &AgentConfig{Requires: []Requirement{RequirementTelegram, RequirementFirecrawl, RequirementBrave}}
		assert.Equal(t, []string{
			"TELEGRAM_CHAT_ID is required for this agent",
			"FIRECRAWL_API_KEY is required for this agent",
			"BRAVE_API_KEY is required for this agent",
		}, cfg.MissingRequirements(agent))
	})
}

func TestResolveCredentialsUsesConfiguredNames(t *testing.T) {
	cfg := loadDefaults(t)
	cfg.LLM.APIKeyEnv = "HERALD_LLM_KEY"
	cfg.Scheduler.RedisURLEnv = ""

	env := map[string]string{
		"HERALD_LLM_KEY":     "sk-test",
		"OPENAI_API_KEY":     "ignored",
		"TELEGRAM_BOT_TOKEN": "bot",
		"REDIS_URL":          "redis://localhost:6379",
	}
	creds := resolveCredentials(cfg, func(k string) string { return env[k] })

	assert.Equal(t, "sk-test", creds.OpenAIAPIKey)
	assert.Equal(t, "bot", creds.TelegramBotToken)
	assert.False(t, creds.TelegramConfigured())
	assert.Empty(t, creds.RedisURL, "empty env name disables the lookup")
}
