package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFile is the file read from the configuration directory.
const ConfigFile = "herald.yaml"

// HeraldYAMLConfig represents the complete herald.yaml file structure
type HeraldYAMLConfig struct {
	Server    *ServerYAMLConfig      `yaml:"server"`
	Queue     *QueueConfig           `yaml:"queue"`
	Retention *RetentionConfig       `yaml:"retention"`
	Scheduler *SchedulerYAMLConfig   `yaml:"scheduler"`
	LLM       *LLMConfig             `yaml:"llm"`
	Search    *SearchConfig          `yaml:"search"`
	Scrape    *ScrapeConfig          `yaml:"scrape"`
	Telegram  *TelegramConfig        `yaml:"telegram"`
	GitHub    *GitHubConfig          `yaml:"github"`
	Market    *MarketConfig          `yaml:"market"`
	System    *SystemYAMLConfig      `yaml:"system"`
	Agents    map[string]AgentConfig `yaml:"agents"`
}

// ServerYAMLConfig holds listener settings from YAML. Pointers distinguish an
// explicit 0 (disable gRPC health) from an omitted value.
type ServerYAMLConfig struct {
	HTTPPort       *int `yaml:"http_port,omitempty"`
	GRPCHealthPort *int `yaml:"grpc_health_port,omitempty"`
}

// SchedulerYAMLConfig holds scheduler settings from YAML.
type SchedulerYAMLConfig struct {
	Enabled     *bool       `yaml:"enabled,omitempty"`
	Timezone    string      `yaml:"timezone,omitempty"`
	RedisURLEnv string      `yaml:"redis_url_env,omitempty"`
	Jobs        []JobConfig `yaml:"jobs,omitempty"` // replaces the built-in jobs when set
}

// SystemYAMLConfig groups system-wide settings.
type SystemYAMLConfig struct {
	DashboardURL string           `yaml:"dashboard_url"`
	Slack        *SlackYAMLConfig `yaml:"slack"`
}

// SlackYAMLConfig holds Slack notification settings from YAML.
type SlackYAMLConfig struct {
	Enabled  *bool  `yaml:"enabled,omitempty"`
	TokenEnv string `yaml:"token_env,omitempty"`
	Channel  string `yaml:"channel,omitempty"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load herald.yaml from configDir (optional, built-ins apply without it)
//  2. Expand {{.VAR}} environment placeholders and parse YAML
//  3. Merge built-in agents and section defaults with user values
//  4. Resolve credentials from the environment
//  5. Validate all configuration
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	stats := cfg.Stats()
	log.Info("Configuration initialized successfully",
		"agents", stats.Agents,
		"enabled_agents", stats.EnabledAgents,
		"scheduler_jobs", stats.SchedulerJobs)

	return cfg, nil
}

// load is the internal loader (not exported)
func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{
		configDir: configDir,
	}

	heraldConfig, err := loader.loadHeraldYAML()
	if err != nil {
		return nil, NewLoadError(ConfigFile, err)
	}

	builtin := GetBuiltinConfig()

	agents, err := mergeAgents(builtin.Agents, heraldConfig.Agents)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		configDir:     configDir,
		Server:        resolveServerConfig(heraldConfig.Server),
		Scheduler:     resolveSchedulerConfig(heraldConfig.Scheduler, builtin.SchedulerJobs),
		Slack:         resolveSlackConfig(heraldConfig.System),
		DashboardURL:  resolveDashboardURL(heraldConfig.System),
		AgentRegistry: NewAgentRegistry(agents),
	}

	if cfg.Queue, err = mergeSection("queue", DefaultQueueConfig(), heraldConfig.Queue); err != nil {
		return nil, err
	}
	if cfg.Retention, err = mergeSection("retention", DefaultRetentionConfig(), heraldConfig.Retention); err != nil {
		return nil, err
	}
	if cfg.LLM, err = mergeSection("llm", DefaultLLMConfig(), heraldConfig.LLM); err != nil {
		return nil, err
	}
	if cfg.Search, err = mergeSection("search", DefaultSearchConfig(), heraldConfig.Search); err != nil {
		return nil, err
	}
	if cfg.Scrape, err = mergeSection("scrape", DefaultScrapeConfig(), heraldConfig.Scrape); err != nil {
		return nil, err
	}
	if cfg.Telegram, err = mergeSection("telegram", DefaultTelegramConfig(), heraldConfig.Telegram); err != nil {
		return nil, err
	}
	if cfg.GitHub, err = mergeSection("github", DefaultGitHubConfig(), heraldConfig.GitHub); err != nil {
		return nil, err
	}
	if cfg.Market, err = mergeSection("market", &MarketConfig{}, heraldConfig.Market); err != nil {
		return nil, err
	}

	cfg.Credentials = resolveCredentials(cfg, os.Getenv)
	return cfg, nil
}

// validate performs comprehensive validation on loaded configuration
func validate(cfg *Config) error {
	validator := NewValidator(cfg)
	return validator.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	// ExpandEnv passes the original data through on template errors so the
	// YAML parser reports the problem instead.
	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadHeraldYAML() (*HeraldYAMLConfig, error) {
	var config HeraldYAMLConfig
	config.Agents = make(map[string]AgentConfig)

	err := l.loadYAML(ConfigFile, &config)
	if errors.Is(err, ErrConfigNotFound) {
		slog.Info("No configuration file found, using built-in defaults", "config_dir", l.configDir)
		return &config, nil
	}
	if err != nil {
		return nil, err
	}
	return &config, nil
}

// resolveServerConfig resolves listener ports, applying defaults.
func resolveServerConfig(s *ServerYAMLConfig) *ServerConfig {
	cfg := &ServerConfig{
		HTTPPort:       8000,
		GRPCHealthPort: 9090,
	}
	if s == nil {
		return cfg
	}
	if s.HTTPPort != nil {
		cfg.HTTPPort = *s.HTTPPort
	}
	if s.GRPCHealthPort != nil {
		cfg.GRPCHealthPort = *s.GRPCHealthPort
	}
	return cfg
}

// resolveSchedulerConfig resolves scheduler settings. User jobs replace the
// built-in jobs entirely; jobs without a timezone inherit the scheduler's.
func resolveSchedulerConfig(s *SchedulerYAMLConfig, builtinJobs []JobConfig) *SchedulerConfig {
	cfg := &SchedulerConfig{
		Enabled:     true,
		Timezone:    DefaultSchedulerTimezone,
		RedisURLEnv: "REDIS_URL",
	}

	jobs := builtinJobs
	if s != nil {
		if s.Enabled != nil {
			cfg.Enabled = *s.Enabled
		}
		if s.Timezone != "" {
			cfg.Timezone = s.Timezone
		}
		if s.RedisURLEnv != "" {
			cfg.RedisURLEnv = s.RedisURLEnv
		}
		if len(s.Jobs) > 0 {
			jobs = s.Jobs
		}
	}

	cfg.Jobs = make([]JobConfig, len(jobs))
	for i, job := range jobs {
		if job.Timezone == "" {
			job.Timezone = cfg.Timezone
		}
		if job.Name == "" {
			job.Name = job.ID
		}
		cfg.Jobs[i] = job
	}
	return cfg
}

// resolveSlackConfig resolves Slack configuration from system YAML, applying defaults.
func resolveSlackConfig(sys *SystemYAMLConfig) *SlackConfig {
	cfg := &SlackConfig{
		Enabled:  false,
		TokenEnv: "SLACK_BOT_TOKEN",
	}

	if sys == nil || sys.Slack == nil {
		return cfg
	}

	s := sys.Slack
	if s.Enabled != nil {
		cfg.Enabled = *s.Enabled
	}
	if s.TokenEnv != "" {
		cfg.TokenEnv = s.TokenEnv
	}
	if s.Channel != "" {
		cfg.Channel = s.Channel
	}

	return cfg
}

// resolveDashboardURL returns the dashboard link used in notifications, if any.
func resolveDashboardURL(sys *SystemYAMLConfig) string {
	if sys != nil {
		return sys.DashboardURL
	}
	return ""
}
