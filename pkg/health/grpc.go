package health

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// DefaultRefreshInterval is how often serving statuses are recomputed.
const DefaultRefreshInterval = 10 * time.Second

// GRPCServer exposes grpc.health.v1.Health. The empty service name reports
// overall readiness; each agent ID reports that agent's availability.
type GRPCServer struct {
	checker  *Checker
	server   *grpc.Server
	health   *health.Server
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewGRPCServer registers the health service on a new gRPC server.
func NewGRPCServer(checker *Checker, interval time.Duration) *GRPCServer {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	return &GRPCServer{
		checker:  checker,
		server:   srv,
		health:   hs,
		interval: interval,
		logger:   slog.Default().With("component", "grpc-health"),
	}
}

// Refresh recomputes every serving status from the checker.
func (g *GRPCServer) Refresh() {
	_, ready := g.checker.Readiness()
	g.health.SetServingStatus("", servingStatus(ready))
	for id, available := range g.checker.AgentStatus() {
		g.health.SetServingStatus(id, servingStatus(available))
	}
}

func servingStatus(ok bool) healthpb.HealthCheckResponse_ServingStatus {
	if ok {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}

// Serve refreshes once, starts the refresh loop and serves on lis until
// Stop is called.
func (g *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	g.Refresh()

	ctx, g.cancel = context.WithCancel(ctx)
	g.done = make(chan struct{})
	go g.refreshLoop(ctx)

	g.logger.Info("gRPC health server listening", "addr", lis.Addr().String())
	if err := g.server.Serve(lis); err != nil {
		return fmt.Errorf("grpc health server: %w", err)
	}
	return nil
}

// ListenAndServe listens on port and serves.
func (g *GRPCServer) ListenAndServe(ctx context.Context, port int) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("listen on grpc health port %d: %w", port, err)
	}
	return g.Serve(ctx, lis)
}

func (g *GRPCServer) refreshLoop(ctx context.Context) {
	defer close(g.done)
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Refresh()
		}
	}
}

// Stop marks every service NOT_SERVING and stops the server gracefully.
func (g *GRPCServer) Stop() {
	g.health.Shutdown()
	if g.cancel != nil {
		g.cancel()
		<-g.done
	}
	g.server.GracefulStop()
	g.logger.Info("gRPC health server stopped")
}
