package config

// ServerConfig holds resolved listener settings.
type ServerConfig struct {
	HTTPPort       int
	GRPCHealthPort int // 0 disables the gRPC health server
}

// SchedulerConfig holds resolved scheduler settings.
type SchedulerConfig struct {
	Enabled     bool
	Timezone    string // default for jobs without their own timezone
	RedisURLEnv string // env var holding a Redis URL for the cross-replica lock; empty value disables it
	Jobs        []JobConfig
}

// JobConfig is a time-of-day trigger for one agent.
type JobConfig struct {
	ID         string         `yaml:"id"`
	Name       string         `yaml:"name,omitempty"`
	AgentID    string         `yaml:"agent_id"`
	Schedule   string         `yaml:"schedule"` // 5-field cron expression
	Timezone   string         `yaml:"timezone,omitempty"`
	Parameters map[string]any `yaml:"parameters,omitempty"`
	Enabled    *bool          `yaml:"enabled,omitempty"`
}

// IsEnabled reports whether the job should be scheduled. Nil means enabled.
func (j *JobConfig) IsEnabled() bool {
	return j.Enabled == nil || *j.Enabled
}

// LLMConfig configures the chat-completion backend shared by all stages.
type LLMConfig struct {
	Model       string   `yaml:"model,omitempty"`
	BaseURL     string   `yaml:"base_url,omitempty"`
	APIKeyEnv   string   `yaml:"api_key_env,omitempty"`
	Temperature *float64 `yaml:"temperature,omitempty"` // nil keeps the API default
	MaxTokens   int      `yaml:"max_tokens,omitempty"`

	// StageModels overrides the model per stage id, e.g. news_summarizer: gpt-4.1
	StageModels map[string]string `yaml:"stage_models,omitempty"`
}

// DefaultLLMConfig returns the built-in LLM defaults.
func DefaultLLMConfig() *LLMConfig {
	return &LLMConfig{
		Model:     "gpt-4.1-mini",
		APIKeyEnv: "OPENAI_API_KEY",
		MaxTokens: 2000,
	}
}

// SearchConfig selects and configures web search.
type SearchConfig struct {
	Provider       SearchProvider `yaml:"provider,omitempty"`
	BraveAPIKeyEnv string         `yaml:"brave_api_key_env,omitempty"`
	URL            string         `yaml:"url,omitempty"` // endpoint override
}

// DefaultSearchConfig returns the built-in search defaults.
func DefaultSearchConfig() *SearchConfig {
	return &SearchConfig{
		Provider:       SearchProviderDuckDuckGo,
		BraveAPIKeyEnv: "BRAVE_API_KEY",
	}
}

// ScrapeConfig selects and configures article fetching.
type ScrapeConfig struct {
	Provider  ScrapeProvider  `yaml:"provider,omitempty"`
	MaxChars  int             `yaml:"max_chars,omitempty"`
	Firecrawl FirecrawlConfig `yaml:"firecrawl,omitempty"`
}

// FirecrawlConfig describes how to reach the firecrawl MCP server. A non-empty
// URL selects the streamable HTTP transport, otherwise Command is spawned over stdio.
type FirecrawlConfig struct {
	Command   string   `yaml:"command,omitempty"`
	Args      []string `yaml:"args,omitempty"`
	URL       string   `yaml:"url,omitempty"`
	Tool      string   `yaml:"tool,omitempty"`
	APIKeyEnv string   `yaml:"api_key_env,omitempty"`
}

// DefaultScrapeConfig returns the built-in scrape defaults.
func DefaultScrapeConfig() *ScrapeConfig {
	return &ScrapeConfig{
		Provider: ScrapeProviderReadability,
		MaxChars: 4000,
		Firecrawl: FirecrawlConfig{
			Command:   "npx",
			Args:      []string{"-y", "firecrawl-mcp"},
			Tool:      "firecrawl_scrape",
			APIKeyEnv: "FIRECRAWL_API_KEY",
		},
	}
}

// TelegramConfig names the env vars holding the bot credentials.
type TelegramConfig struct {
	BotTokenEnv string `yaml:"bot_token_env,omitempty"`
	ChatIDEnv   string `yaml:"chat_id_env,omitempty"`
	APIURL      string `yaml:"api_url,omitempty"`
}

// DefaultTelegramConfig returns the built-in Telegram defaults.
func DefaultTelegramConfig() *TelegramConfig {
	return &TelegramConfig{
		BotTokenEnv: "TELEGRAM_BOT_TOKEN",
		ChatIDEnv:   "TELEGRAM_CHAT_ID",
	}
}

// GitHubConfig holds GitHub REST settings.
type GitHubConfig struct {
	TokenEnv string `yaml:"token_env,omitempty"` // Defaults to "GITHUB_TOKEN"
	APIURL   string `yaml:"api_url,omitempty"`
}

// DefaultGitHubConfig returns the built-in GitHub defaults.
func DefaultGitHubConfig() *GitHubConfig {
	return &GitHubConfig{TokenEnv: "GITHUB_TOKEN"}
}

// MarketConfig holds the market data endpoint.
type MarketConfig struct {
	APIURL string `yaml:"api_url,omitempty"`
}

// SlackConfig holds resolved Slack notification configuration.
type SlackConfig struct {
	Enabled  bool
	TokenEnv string // Env var name for Slack bot token (default: "SLACK_BOT_TOKEN")
	Channel  string // Slack channel ID (e.g., "C12345678")
}
