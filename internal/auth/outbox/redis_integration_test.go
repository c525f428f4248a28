package outbox_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aussiebroadwan/identity/internal/auth/domain"
	"github.com/aussiebroadwan/identity/internal/auth/outbox"
)

// setupRedisContainer starts a throwaway Redis and returns its address.
func setupRedisContainer(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)
	return host + ":" + port.Port()
}

func TestRedisStreamBusAgainstRealRedis(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	client := redis.NewClient(&redis.Options{Addr: setupRedisContainer(t)})
	t.Cleanup(func() { _ = client.Close() })

	s := newStore(t)
	now := time.Now().UTC()
	for i, id := range []string{"a", "b", "c"} {
		enqueue(t, s, id, domain.ClientSecretRotated{ClientID: "acme", OccurredAt: now}, now.Add(time.Duration(i)*time.Millisecond))
	}

	bus := outbox.NewRedisStreamBus(client, "identity.test")
	bus.MaxLen = 1000
	p := outbox.NewPublisher(s, bus, outbox.Config{BatchSize: 2}, discard, nil)

	n, err := p.ProcessBatch(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	n, err = p.ProcessBatch(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	length, err := client.XLen(ctx, "identity.test").Result()
	require.NoError(t, err)
	require.EqualValues(t, 3, length)
}
