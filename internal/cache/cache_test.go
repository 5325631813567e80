package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Интеграционные тесты Redis-кэша сессий (redis:7-alpine через testcontainers-go).
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/cache -v -count=1

func startRedis(t *testing.T) (SessionCache, func()) {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "docker.io/redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started:      true,
		ProviderType: tc.ProviderDocker,
	})
	require.NoError(t, err)

	host, _ := c.Host(ctx)
	port, _ := c.MappedPort(ctx, "6379/tcp")

	cache, err := NewRedisCache(ctx, fmt.Sprintf("redis://%s:%s/0", host, port.Port()), "")
	require.NoError(t, err)

	return cache, func() {
		_ = cache.Close()
		_ = c.Terminate(context.Background())
	}
}

func TestIntegration_RevokeAndCheck(t *testing.T) {
	cache, cleanup := startRedis(t)
	defer cleanup()

	ctx := context.Background()

	revoked, err := cache.IsRevoked(ctx, "sid-1")
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, cache.Revoke(ctx, "sid-1", time.Minute))

	revoked, err = cache.IsRevoked(ctx, "sid-1")
	require.NoError(t, err)
	require.True(t, revoked)
}

func TestIntegration_RevokeExpires(t *testing.T) {
	cache, cleanup := startRedis(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, cache.Revoke(ctx, "sid-2", time.Second))

	require.Eventually(t, func() bool {
		revoked, err := cache.IsRevoked(ctx, "sid-2")
		return err == nil && !revoked
	}, 5*time.Second, 100*time.Millisecond)
}

func TestIntegration_RevokeNonPositiveTTL_NoOp(t *testing.T) {
	cache, cleanup := startRedis(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, cache.Revoke(ctx, "sid-3", 0))

	revoked, err := cache.IsRevoked(ctx, "sid-3")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestNewRedisCache_BadURL(t *testing.T) {
	t.Parallel()

	_, err := NewRedisCache(context.Background(), "not-a-url", "")
	require.Error(t, err)
}
