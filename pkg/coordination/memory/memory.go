// Package memory provides in-process implementations of protocol.Locker and
// protocol.Cache for single-worker deployments and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/protocol"
	gocache "github.com/patrickmn/go-cache"
)

// Locker serialises holders of the same key within one process. A held
// lock is released automatically when its ttl elapses.
type Locker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
	gens  map[string]uint64
}

func NewLocker() *Locker {
	return &Locker{
		slots: make(map[string]chan struct{}),
		gens:  make(map[string]uint64),
	}
}

func (l *Locker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}

	return ch
}

func (l *Locker) Acquire(ctx context.Context, key string, wait, ttl time.Duration) (protocol.ReleaseFunc, error) {
	ch := l.slot(key)

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
	case <-timer.C:
		return nil, fmt.Errorf("%w: %s", protocol.ErrLockNotAcquired, key)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	l.mu.Lock()
	l.gens[key]++
	gen := l.gens[key]
	l.mu.Unlock()

	var once sync.Once

	release := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()

			if l.gens[key] == gen {
				<-ch
			}
		})
	}

	expiry := time.AfterFunc(ttl, release)

	return func(context.Context) error {
		expiry.Stop()
		release()

		return nil
	}, nil
}

// Cache is a protocol.Cache over go-cache.
type Cache struct {
	cache *gocache.Cache
}

func NewCache() *Cache {
	return &Cache{cache: gocache.New(gocache.NoExpiration, 10*time.Minute)}
}

func (c *Cache) Get(_ context.Context, key string) (string, bool, error) {
	v, found := c.cache.Get(key)
	if !found {
		return "", false, nil
	}

	return fmt.Sprintf("%v", v), true, nil
}

func (c *Cache) Put(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}

	c.cache.Set(key, value, ttl)

	return nil
}
