package config

import "time"

// Config is the umbrella configuration object returned by Initialize and
// used throughout the application.
type Config struct {
	configDir string

	Server    *ServerConfig
	Queue     *QueueConfig
	Retention *RetentionConfig
	Scheduler *SchedulerConfig

	LLM      *LLMConfig
	Search   *SearchConfig
	Scrape   *ScrapeConfig
	Telegram *TelegramConfig
	GitHub   *GitHubConfig
	Market   *MarketConfig
	Slack    *SlackConfig

	// Base URL linked from notifications; empty omits the link
	DashboardURL string

	Credentials Credentials

	AgentRegistry *AgentRegistry
}

// Stats contains statistics about loaded configuration
type Stats struct {
	Agents        int
	EnabledAgents int
	SchedulerJobs int
}

// Stats returns configuration statistics for logging/monitoring
func (c *Config) Stats() Stats {
	s := Stats{}
	if c.AgentRegistry != nil {
		s.Agents = c.AgentRegistry.Len()
		for _, a := range c.AgentRegistry.GetAll() {
			if a.IsEnabled() {
				s.EnabledAgents++
			}
		}
	}
	if c.Scheduler != nil {
		for _, j := range c.Scheduler.Jobs {
			if j.IsEnabled() {
				s.SchedulerJobs++
			}
		}
	}
	return s
}

// ConfigDir returns the configuration directory path
func (c *Config) ConfigDir() string {
	return c.configDir
}

// GetAgent retrieves an agent configuration by id.
// This is a convenience method that wraps AgentRegistry.Get().
func (c *Config) GetAgent(id string) (*AgentConfig, error) {
	return c.AgentRegistry.Get(id)
}

// AgentTimeout returns the run timeout for agent, falling back to the queue default.
func (c *Config) AgentTimeout(agent *AgentConfig) time.Duration {
	return agent.Timeout(c.Queue.DefaultTimeout)
}
