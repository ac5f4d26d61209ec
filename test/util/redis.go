// Package util provides shared helpers for integration tests.
package util

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	// Shared Redis URL for all tests in a package
	sharedRedisURL string
	containerOnce  sync.Once
	containerErr   error
)

// SetupTestRedis returns a client connected to a test Redis server.
// - CI: connects to CI_REDIS_URL
// - Local: starts a shared testcontainer once per package
// The test is skipped in -short mode or when no container runtime is available.
func SetupTestRedis(t *testing.T) *redis.Client {
	if testing.Short() {
		t.Skip("skipping Redis integration test in short mode")
	}
	url := getOrCreateSharedRedis(t)

	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opts)
	require.NoError(t, rdb.Ping(context.Background()).Err())

	t.Cleanup(func() {
		_ = rdb.Close()
	})
	return rdb
}

// RedisURL returns the shared Redis URL, starting the container if needed.
func RedisURL(t *testing.T) string {
	if testing.Short() {
		t.Skip("skipping Redis integration test in short mode")
	}
	return getOrCreateSharedRedis(t)
}

func getOrCreateSharedRedis(t *testing.T) string {
	if ciURL := os.Getenv("CI_REDIS_URL"); ciURL != "" {
		t.Log("Using external Redis from CI_REDIS_URL")
		return ciURL
	}

	containerOnce.Do(func() {
		ctx := context.Background()
		t.Log("Starting shared Redis testcontainer")

		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "redis:7-alpine",
				ExposedPorts: []string{"6379/tcp"},
				WaitingFor: wait.ForLog("Ready to accept connections").
					WithStartupTimeout(30 * time.Second),
			},
			Started: true,
		})
		if err != nil {
			containerErr = fmt.Errorf("failed to start redis container: %w", err)
			return
		}
		host, err := container.Host(ctx)
		if err != nil {
			containerErr = fmt.Errorf("failed to get container host: %w", err)
			return
		}
		port, err := container.MappedPort(ctx, "6379/tcp")
		if err != nil {
			containerErr = fmt.Errorf("failed to get mapped port: %w", err)
			return
		}
		sharedRedisURL = fmt.Sprintf("redis://%s:%s/0", host, port.Port())
		t.Logf("Shared container ready: %s", sharedRedisURL)
	})

	if containerErr != nil {
		t.Skipf("Redis unavailable: %v", containerErr)
	}
	return sharedRedisURL
}

// KeyPrefix returns a unique key namespace for the test.
// Format: test:<sanitized_test_name>:<random_hex>:
func KeyPrefix(t *testing.T) string {
	name := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, t.Name())
	if len(name) > 40 {
		name = name[:40]
	}

	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		t.Fatalf("failed to generate random bytes for key prefix: %v", err)
	}
	return fmt.Sprintf("test:%s:%s:", name, hex.EncodeToString(randomBytes))
}
