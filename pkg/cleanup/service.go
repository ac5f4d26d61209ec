// Package cleanup provides the execution record retention service.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/herald/pkg/config"
)

// Sweeper removes aged execution records.
type Sweeper interface {
	Sweep(maxAge time.Duration, includeActive bool) int
}

// Observer receives the number of records removed by each sweep.
type Observer interface {
	ObserveSweep(removed int)
}

// Service periodically enforces the retention policy:
//   - Removes terminal records older than ExecutionMaxAge
//   - Also removes stale pending/running records when SweepActive is set
type Service struct {
	config   *config.RetentionConfig
	sweeper  Sweeper
	observer Observer

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new cleanup service. observer may be nil.
func NewService(cfg *config.RetentionConfig, sweeper Sweeper, observer Observer) *Service {
	return &Service{
		config:   cfg,
		sweeper:  sweeper,
		observer: observer,
	}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Cleanup service started",
		"execution_max_age", s.config.ExecutionMaxAge,
		"sweep_active", s.config.SweepActive,
		"interval", s.config.CleanupInterval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.RunOnce()

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce()
		}
	}
}

// RunOnce performs a single sweep and returns the number of removed records.
func (s *Service) RunOnce() int {
	count := s.sweeper.Sweep(s.config.ExecutionMaxAge, s.config.SweepActive)
	if s.observer != nil {
		s.observer.ObserveSweep(count)
	}
	if count > 0 {
		slog.Info("Retention: swept old executions", "count", count)
	}
	return count
}
