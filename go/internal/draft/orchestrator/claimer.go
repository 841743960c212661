package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

// TurnClaimer reserves a turn action for one orchestrator instance.
type TurnClaimer interface {
	// Claim returns true for the first caller of key within ttl.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// LocalClaimer claims within a single process.
type LocalClaimer struct {
	clock clockwork.Clock
	mu    sync.Mutex
	until map[string]time.Time
}

func NewLocalClaimer(clock clockwork.Clock) *LocalClaimer {
	return &LocalClaimer{clock: clock, until: make(map[string]time.Time)}
}

func (c *LocalClaimer) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	for k, exp := range c.until {
		if !now.Before(exp) {
			delete(c.until, k)
		}
	}
	if _, held := c.until[key]; held {
		return false, nil
	}
	c.until[key] = now.Add(ttl)
	return true, nil
}

// RedisClaimer claims across instances with SET NX.
type RedisClaimer struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewRedisClaimer(rdb redis.UniversalClient, prefix string) *RedisClaimer {
	if prefix == "" {
		prefix = "draftroom:turn:"
	}
	return &RedisClaimer{rdb: rdb, prefix: prefix}
}

func (c *RedisClaimer) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, c.prefix+key, time.Now().UTC().Format(time.RFC3339Nano), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim %s: %w", key, err)
	}
	return ok, nil
}
