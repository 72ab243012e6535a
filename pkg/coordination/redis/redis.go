// Package redis implements protocol.Locker and protocol.Cache on Redis so
// round-robin cursors are shared by every worker.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/protocol"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "crmflow:"

const retryInterval = 50 * time.Millisecond

// releaseLua deletes the lock only while it is still held by the caller.
// Returns 1 if released, 0 otherwise.
var releaseLua = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur == ARGV[1] then
	redis.call('DEL', KEYS[1])
	return 1
end
return 0
`)

// Coordinator is both the distributed lock and the cursor cache.
type Coordinator struct {
	client redis.UniversalClient
	prefix string
}

func New(client redis.UniversalClient, prefix string) *Coordinator {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	return &Coordinator{client: client, prefix: prefix}
}

// Open connects to the server at url (redis://...) and pings it.
func Open(ctx context.Context, url, prefix string) (*Coordinator, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return New(client, prefix), nil
}

func (c *Coordinator) key(key string) string {
	return c.prefix + key
}

// Acquire polls SET NX until the key is free or wait elapses. The lock
// value is a per-acquisition token so a holder whose ttl expired cannot
// release a lock since taken by someone else.
func (c *Coordinator) Acquire(ctx context.Context, key string, wait, ttl time.Duration) (protocol.ReleaseFunc, error) {
	if ttl <= 0 {
		return nil, errors.New("ttl must be > 0")
	}

	lockKey := c.key(key)
	token := uuid.NewString()
	deadline := time.Now().Add(wait)

	for {
		ok, err := c.client.SetNX(ctx, lockKey, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}

		if ok {
			break
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", protocol.ErrLockNotAcquired, key)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}

	return func(ctx context.Context) error {
		if err := releaseLua.Run(ctx, c.client, []string{lockKey}, token).Err(); err != nil {
			return fmt.Errorf("release %s: %w", key, err)
		}

		return nil
	}, nil
}

func (c *Coordinator) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.client.Get(ctx, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}

	return v, true, nil
}

func (c *Coordinator) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}

	return nil
}

func (c *Coordinator) Close() error {
	return c.client.Close()
}
