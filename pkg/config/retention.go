package config

import "time"

// RetentionConfig controls how long execution records stay in memory.
type RetentionConfig struct {
	// ExecutionMaxAge is the age after which a record is swept.
	ExecutionMaxAge time.Duration `yaml:"execution_max_age"`

	// CleanupInterval is how often the sweep runs.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`

	// SweepActive also removes pending and running records older than
	// ExecutionMaxAge.
	SweepActive bool `yaml:"sweep_active"`
}

// DefaultRetentionConfig returns the built-in retention defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		ExecutionMaxAge: 24 * time.Hour,
		CleanupInterval: 1 * time.Hour,
	}
}
