package cmd

import (
	"context"
	"fmt"

	coordmemory "github.com/ChrisMoss87/vrtx-sub009/pkg/coordination/memory"
	coordredis "github.com/ChrisMoss87/vrtx-sub009/pkg/coordination/redis"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/protocol"
)

// Coordination is the lock and cache pair used by round-robin assignment.
type Coordination struct {
	Locker protocol.Locker
	Cache  protocol.Cache
	Close  func() error
}

// NewCoordination connects to Redis when redisURL is set, otherwise the
// lock and cache only coordinate within this process.
func NewCoordination(ctx context.Context, redisURL string) (*Coordination, error) {
	if redisURL == "" {
		return &Coordination{
			Locker: coordmemory.NewLocker(),
			Cache:  coordmemory.NewCache(),
			Close:  func() error { return nil },
		}, nil
	}

	coordinator, err := coordredis.Open(ctx, redisURL, coordredis.DefaultPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Coordination{Locker: coordinator, Cache: coordinator, Close: coordinator.Close}, nil
}
