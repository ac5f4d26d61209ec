package health

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/codeready-toolchain/herald/pkg/config"
	"github.com/codeready-toolchain/herald/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func startGRPC(t *testing.T, checker *Checker) (healthpb.HealthClient, *GRPCServer) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer(checker, 20*time.Millisecond)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(context.Background(), lis) }()
	t.Cleanup(func() {
		srv.Stop()
		require.NoError(t, <-errCh)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return healthpb.NewHealthClient(conn), srv
}

func check(t *testing.T, client healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestGRPCServer(t *testing.T) {
	cfg := loadConfig(t)
	client, _ := startGRPC(t, NewChecker(cfg, bothAgents, staticPool{healthy: true}, nil))

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, config.AgentDailyNews))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client, config.AgentGitHubTrending))
}

type togglePool struct{ healthy atomic.Bool }

func (p *togglePool) Health() *queue.PoolHealth {
	return &queue.PoolHealth{IsHealthy: p.healthy.Load()}
}

func TestGRPCServerRefreshes(t *testing.T) {
	pool := &togglePool{}
	pool.healthy.Store(true)
	client, _ := startGRPC(t, NewChecker(loadConfig(t), bothAgents, pool, nil))
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, ""))

	pool.healthy.Store(false)
	assert.Eventually(t, func() bool {
		return check(t, client, "") == healthpb.HealthCheckResponse_NOT_SERVING
	}, time.Second, 10*time.Millisecond)
}
