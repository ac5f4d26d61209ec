package config

import "time"

// QueueConfig contains worker pool configuration.
type QueueConfig struct {
	// MaxConcurrentRuns is the number of workers, and so the number of
	// pipeline runs that may execute at once in this process.
	MaxConcurrentRuns int `yaml:"max_concurrent_runs"`

	// DefaultTimeout bounds a run when its agent sets no timeout_seconds.
	DefaultTimeout time.Duration `yaml:"default_timeout"`

	// GracefulShutdownTimeout is the max time to wait for running jobs
	// to finish during shutdown.
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout"`
}

// DefaultQueueConfig returns the built-in queue defaults.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		MaxConcurrentRuns:       3,
		DefaultTimeout:          10 * time.Minute,
		GracefulShutdownTimeout: 10 * time.Minute,
	}
}
