package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/codeready-toolchain/herald/pkg/api"
	"github.com/codeready-toolchain/herald/pkg/cleanup"
	"github.com/codeready-toolchain/herald/pkg/health"
	"github.com/codeready-toolchain/herald/pkg/scheduler"
	"github.com/codeready-toolchain/herald/pkg/version"
)

const httpShutdownTimeout = 5 * time.Second

func serveCmd(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, worker pool and scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), *configDir)
		},
	}
}

func serve(ctx context.Context, configDir string) error {
	slog.Info("Starting "+version.AppName, "version", version.Full(), "config_dir", configDir)

	a, err := newApp(ctx, configDir)
	if err != nil {
		return err
	}
	defer a.close()
	cfg := a.cfg

	// Start worker pool before anything can submit.
	a.pool.Start(ctx)

	// Scheduler
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = newScheduler(ctx, a)
		if err != nil {
			a.pool.Stop()
			return err
		}
		sched.Start(ctx)
	} else {
		slog.Info("Scheduler disabled")
	}

	// Retention sweeps
	cleanupService := cleanup.NewService(cfg.Retention, a.tracker, a.metrics)
	cleanupService.Start(ctx)

	// Health
	var schedCounter health.JobCounter
	if sched != nil {
		schedCounter = sched
	}
	checker := health.NewChecker(cfg, a.service, a.pool, schedCounter)

	errCh := make(chan error, 2)

	var grpcHealth *health.GRPCServer
	if cfg.Server.GRPCHealthPort > 0 {
		grpcHealth = health.NewGRPCServer(checker, 0)
		go func() {
			if err := grpcHealth.ListenAndServe(ctx, cfg.Server.GRPCHealthPort); err != nil {
				errCh <- err
			}
		}()
	}

	// HTTP server
	serverOpts := []api.Option{api.WithMetricsHandler(a.metrics.Handler())}
	if sched != nil {
		serverOpts = append(serverOpts, api.WithScheduler(sched))
	}
	httpServer := api.NewServer(cfg, a.service, checker, serverOpts...)
	go func() {
		if err := httpServer.Start(":" + strconv.Itoa(cfg.Server.HTTPPort)); err != nil {
			errCh <- err
		}
	}()

	slog.Info(version.AppName+" started successfully",
		"http_port", cfg.Server.HTTPPort,
		"grpc_health_port", cfg.Server.GRPCHealthPort,
		"workers", cfg.Queue.MaxConcurrentRuns,
		"scheduled_jobs", sched.Len())

	// Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	var serveErr error
	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case serveErr = <-errCh:
		slog.Error("Server error triggered shutdown", "error", serveErr)
	}

	shutdown(ctx, a, sched, httpServer, grpcHealth, cleanupService)
	return serveErr
}

// newScheduler builds the scheduler, with a Redis lock when a URL is configured.
func newScheduler(ctx context.Context, a *app) (*scheduler.Scheduler, error) {
	cfg := a.cfg
	opts := []scheduler.Option{
		scheduler.WithObserver(a.metrics),
		scheduler.WithLockTTL(func(agentID string) time.Duration {
			agentCfg, err := cfg.GetAgent(agentID)
			if err != nil {
				return scheduler.DefaultLockTTL
			}
			return cfg.AgentTimeout(agentCfg) + time.Minute
		}),
	}

	if url := cfg.Credentials.RedisURL; url != "" {
		locker, err := scheduler.NewRedisLockerFromURL(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("failed to connect scheduler lock: %w", err)
		}
		a.closers = append(a.closers, locker.Close)
		opts = append(opts, scheduler.WithLocker(locker))
		slog.Info("Scheduler lock backed by Redis")
	}

	sched, err := scheduler.New(cfg.Scheduler.Jobs, a.service, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return sched, nil
}

// shutdown stops intake first, then drains runs within the graceful timeout,
// then closes the listeners.
func shutdown(ctx context.Context, a *app, sched *scheduler.Scheduler, httpServer *api.Server,
	grpcHealth *health.GRPCServer, cleanupService *cleanup.Service) {
	if sched != nil {
		sched.Stop()
	}

	workerCtx, workerCancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Queue.GracefulShutdownTimeout)
	defer workerCancel()

	done := make(chan struct{})
	go func() {
		// Jobs still queued when the workers exit are cancelled.
		a.service.CancelQueued(workerCtx, a.pool.Stop())
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Worker pool stopped gracefully")
	case <-workerCtx.Done():
		slog.Warn("Shutdown timeout exceeded, running executions abandoned")
	}

	httpCtx, httpCancel := context.WithTimeout(context.WithoutCancel(ctx), httpShutdownTimeout)
	defer httpCancel()
	if err := httpServer.Shutdown(httpCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if grpcHealth != nil {
		grpcHealth.Stop()
	}
	cleanupService.Stop()

	slog.Info("Shutdown complete")
}
