package orchestrator_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftroom/go/internal/draft/orchestrator"
	"github.com/mcdev12/draftroom/go/internal/testutil/pgtest"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestLocalClaimer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := orchestrator.NewLocalClaimer(clock)
	ctx := context.Background()

	ok, err := c.Claim(ctx, "expire:a:1:3", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Claim(ctx, "expire:a:1:3", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.Claim(ctx, "expire:a:1:5", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "a resumed turn has its own claim")

	clock.Advance(time.Minute)
	ok, err = c.Claim(ctx, "expire:a:1:3", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "claims lapse after their ttl")
}

func TestRedisClaimer(t *testing.T) {
	pgtest.SkipUnlessIntegration(t)
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "docker.io/redis:7-alpine")
	require.NoError(t, err, "failed to start redis container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate redis container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(ctx).Err())

	first := orchestrator.NewRedisClaimer(rdb, "")
	second := orchestrator.NewRedisClaimer(rdb, "")

	ok, err := first.Claim(ctx, "expire:draft:4:9", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Claim(ctx, "expire:draft:4:9", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "a second instance must not claim the same expiry")

	ttl, err := rdb.TTL(ctx, "draftroom:turn:expire:draft:4:9").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
