package config

import (
	"sync"
)

// Built-in agent ids.
const (
	AgentDailyNews      = "enhanced-daily-news"
	AgentGitHubTrending = "github-trending"
)

// DefaultSchedulerTimezone is used when neither the job nor the scheduler
// section sets a timezone.
const DefaultSchedulerTimezone = "Europe/Rome"

// BuiltinConfig holds the agents and scheduler jobs shipped with herald.
type BuiltinConfig struct {
	Agents        map[string]AgentConfig
	SchedulerJobs []JobConfig
}

var (
	builtinConfig     *BuiltinConfig
	builtinConfigOnce sync.Once
)

// GetBuiltinConfig returns the singleton built-in configuration (thread-safe, lazy-initialized)
func GetBuiltinConfig() *BuiltinConfig {
	builtinConfigOnce.Do(initBuiltinConfig)
	return builtinConfig
}

func initBuiltinConfig() {
	builtinConfig = &BuiltinConfig{
		Agents:        initBuiltinAgents(),
		SchedulerJobs: initBuiltinJobs(),
	}
}

func initBuiltinAgents() map[string]AgentConfig {
	return map[string]AgentConfig{
		AgentDailyNews: {
			Name:           "Enhanced Daily News Agent",
			Description:    "Comprehensive news research and summarization with Telegram delivery",
			TimeoutSeconds: 600,
			DefaultParameters: map[string]any{
				"topics": []any{
					"Bitcoin cryptocurrency",
					"Artificial Intelligence AI",
					"Politics elections",
					"Finance markets",
				},
				"max_articles_per_topic": 3,
			},
		},
		AgentGitHubTrending: {
			Name:           "GitHub Trending Repositories Agent",
			Description:    "Fetches the top trending GitHub repositories from the last week",
			TimeoutSeconds: 300,
			Requires:       []Requirement{RequirementGitHub},
			DefaultParameters: map[string]any{
				"days_back":     7,
				"max_repos":     10,
				"send_telegram": true,
			},
		},
	}
}

func initBuiltinJobs() []JobConfig {
	return []JobConfig{
		{
			ID:       AgentDailyNews + "_morning",
			Name:     "Daily news (morning)",
			AgentID:  AgentDailyNews,
			Schedule: "0 9 * * *",
		},
		{
			ID:       AgentDailyNews + "_afternoon",
			Name:     "Daily news (afternoon)",
			AgentID:  AgentDailyNews,
			Schedule: "0 15 * * *",
		},
	}
}
