package config

import (
	"fmt"
	"os"
)

// Credentials holds secrets read from the environment at load time. The env
// var names come from the corresponding config sections.
type Credentials struct {
	OpenAIAPIKey     string
	TelegramBotToken string
	TelegramChatID   string
	FirecrawlAPIKey  string
	GitHubToken      string
	BraveAPIKey      string
	SlackBotToken    string
	RedisURL         string
}

// TelegramConfigured reports whether both the bot token and the chat id are set.
func (c Credentials) TelegramConfigured() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != ""
}

func resolveCredentials(cfg *Config, getenv func(string) string) Credentials {
	lookup := func(name string) string {
		if name == "" {
			return ""
		}
		return getenv(name)
	}
	return Credentials{
		OpenAIAPIKey:     lookup(cfg.LLM.APIKeyEnv),
		TelegramBotToken: lookup(cfg.Telegram.BotTokenEnv),
		TelegramChatID:   lookup(cfg.Telegram.ChatIDEnv),
		FirecrawlAPIKey:  lookup(cfg.Scrape.Firecrawl.APIKeyEnv),
		GitHubToken:      lookup(cfg.GitHub.TokenEnv),
		BraveAPIKey:      lookup(cfg.Search.BraveAPIKeyEnv),
		SlackBotToken:    lookup(cfg.Slack.TokenEnv),
		RedisURL:         lookup(cfg.Scheduler.RedisURLEnv),
	}
}

// ReloadCredentials re-reads credentials from the process environment.
func (c *Config) ReloadCredentials() {
	c.Credentials = resolveCredentials(c, os.Getenv)
}

// MissingRequirements lists the unmet requirements of agent as human-readable
// messages naming the env var to set. The LLM key is required by every agent.
func (c *Config) MissingRequirements(agent *AgentConfig) []string {
	var missing []string
	creds := c.Credentials

	if creds.OpenAIAPIKey == "" {
		missing = append(missing, fmt.Sprintf("%s is required", c.LLM.APIKeyEnv))
	}
	if agent.requires(RequirementTelegram) {
		if creds.TelegramBotToken == "" {
			missing = append(missing, fmt.Sprintf("%s is required for this agent", c.Telegram.BotTokenEnv))
		}
		if creds.TelegramChatID == "" {
			missing = append(missing, fmt.Sprintf("%s is required for this agent", c.Telegram.ChatIDEnv))
		}
	}
	if agent.requires(RequirementFirecrawl) && creds.FirecrawlAPIKey == "" {
		missing = append(missing, fmt.Sprintf("%s is required for this agent", c.Scrape.Firecrawl.APIKeyEnv))
	}
	if agent.requires(RequirementGitHub) && creds.GitHubToken == "" {
		missing = append(missing, fmt.Sprintf("%s is required for this agent", c.GitHub.TokenEnv))
	}
	if agent.requires(RequirementBrave) && creds.BraveAPIKey == "" {
		missing = append(missing, fmt.Sprintf("%s is required for this agent", c.Search.BraveAPIKeyEnv))
	}
	return missing
}
