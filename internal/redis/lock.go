package redisclient

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("resource lock not acquired")
)

// Locker guards the conflict-check-then-write critical section of the
// scheduling engine. The callback only runs while every resource in the set
// is held, so two mutations touching overlapping resources cannot
// interleave.
type Locker interface {
	WithResourceLock(ctx context.Context, resourceIDs []string, fn func(ctx context.Context) error) error
}

type redisResourceLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisResourceLocker creates a locker that takes a per-resource Redis
// key for each member of the set.
func NewRedisResourceLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisResourceLocker{
		client: client,
		ttl:    ttl,
	}
}

// WithResourceLock acquires the locks in sorted ID order so that two
// competing multi-resource bookings cannot deadlock on each other, then runs
// fn under the lock TTL.
func (l *redisResourceLocker) WithResourceLock(ctx context.Context, resourceIDs []string, fn func(ctx context.Context) error) error {
	ids := append([]string(nil), resourceIDs...)
	sort.Strings(ids)

	token := uuid.NewString()
	var held []string

	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			_ = l.release(ctx, held[i], token)
		}
	}

	for _, id := range ids {
		key := fmt.Sprintf("lock:resource:%s", id)
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			release()
			return fmt.Errorf("acquire resource lock %s: %w", id, err)
		}
		if !ok {
			release()
			return ErrLockNotAcquired
		}
		held = append(held, key)
	}

	defer release()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisResourceLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release resource lock: %w", err)
	}
	return nil
}

// MutexLocker serializes all critical sections through one in-process lock.
// It backs single-node deployments and tests where Redis is not available.
type MutexLocker struct {
	ch chan struct{}
}

func NewMutexLocker() *MutexLocker {
	return &MutexLocker{ch: make(chan struct{}, 1)}
}

func (l *MutexLocker) WithResourceLock(ctx context.Context, _ []string, fn func(ctx context.Context) error) error {
	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-l.ch }()
	return fn(ctx)
}
