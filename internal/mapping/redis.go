package mapping

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key prefixes shared by all instances.
const (
	usageKeyPrefix = "formfill:usage:mapping:"
	rateKeyPrefix  = "formfill:rate:mapping:"
)

// RedisUsageStore keeps the lifetime usage counter in a shared store so the
// quota check stays correct under concurrent multi-instance load. INCR is
// atomic, so two racing requests cannot both observe the pre-increment
// count and double-charge.
type RedisUsageStore struct {
	client *redis.Client
}

// NewRedisUsageStore creates a usage store backed by the given client.
func NewRedisUsageStore(client *redis.Client) *RedisUsageStore {
	return &RedisUsageStore{client: client}
}

func (s *RedisUsageStore) Count(ctx context.Context, userID string) (int, error) {
	n, err := s.client.Get(ctx, usageKeyPrefix+userID).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read usage counter: %w", err)
	}
	return n, nil
}

func (s *RedisUsageStore) Increment(ctx context.Context, userID string) (int, error) {
	n, err := s.client.Incr(ctx, usageKeyPrefix+userID).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment usage counter: %w", err)
	}
	return int(n), nil
}

// RedisRateLimiter implements the fixed window with a key TTL: the first
// call in a window creates the key with the window as its expiry, so the
// lazy reset falls out of Redis expiration.
type RedisRateLimiter struct {
	client *redis.Client
	window time.Duration
	max    int
}

// NewRedisRateLimiter creates a limiter allowing max calls per window.
func NewRedisRateLimiter(client *redis.Client, window time.Duration, max int) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, window: window, max: max}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, userID string) (bool, error) {
	key := rateKeyPrefix + userID

	n, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate counter: %w", err)
	}
	if n == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate window expiry: %w", err)
		}
	}

	return n <= int64(l.max), nil
}

func (l *RedisRateLimiter) Remaining(ctx context.Context, userID string) (int, error) {
	n, err := l.client.Get(ctx, rateKeyPrefix+userID).Int()
	if errors.Is(err, redis.Nil) {
		return l.max, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read rate counter: %w", err)
	}

	remaining := l.max - n
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
