package redis_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/coordination/redis"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/protocol"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

var (
	redisOnce sync.Once
	redisURL  string
	redisErr  error
)

func setupCoordinator(t *testing.T) *redis.Coordinator {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}

	redisOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		var container *tcredis.RedisContainer

		container, redisErr = tcredis.Run(ctx, "redis:7-alpine")
		if redisErr != nil {
			return
		}

		redisURL, redisErr = container.ConnectionString(ctx)
	})

	if redisErr != nil {
		t.Skipf("redis container unavailable: %v", redisErr)
	}

	coordinator, err := redis.Open(t.Context(), redisURL, "crmflow:test:"+uuid.NewString()+":")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = coordinator.Close()
	})

	return coordinator
}

func TestCoordinator_Lock(t *testing.T) {
	c := setupCoordinator(t)
	ctx := t.Context()

	release, err := c.Acquire(ctx, "scope:lock", time.Second, 5*time.Second)
	require.NoError(t, err)

	_, err = c.Acquire(ctx, "scope:lock", 100*time.Millisecond, 5*time.Second)
	require.ErrorIs(t, err, protocol.ErrLockNotAcquired)

	require.NoError(t, release(ctx))

	again, err := c.Acquire(ctx, "scope:lock", 100*time.Millisecond, 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestCoordinator_StaleReleaseKeepsNewHolder(t *testing.T) {
	c := setupCoordinator(t)
	ctx := t.Context()

	stale, err := c.Acquire(ctx, "k", time.Second, 100*time.Millisecond)
	require.NoError(t, err)

	fresh, err := c.Acquire(ctx, "k", 2*time.Second, 5*time.Second)
	require.NoError(t, err)

	require.NoError(t, stale(ctx))

	_, err = c.Acquire(ctx, "k", 100*time.Millisecond, 5*time.Second)
	require.ErrorIs(t, err, protocol.ErrLockNotAcquired)

	require.NoError(t, fresh(ctx))
}

func TestCoordinator_Cache(t *testing.T) {
	c := setupCoordinator(t)
	ctx := t.Context()

	_, found, err := c.Get(ctx, "cursor")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Put(ctx, "cursor", "4", time.Hour))

	v, found, err := c.Get(ctx, "cursor")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "4", v)
}
