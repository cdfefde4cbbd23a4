package mapping

import (
	"context"
	"sync"
	"time"
)

// UsageStore tracks lifetime successful mappings per user. The counter is
// incremented exactly once per returned success, never on a failed attempt.
type UsageStore interface {
	// Count returns the number of successful mappings recorded for the user.
	Count(ctx context.Context, userID string) (int, error)

	// Increment records one successful mapping and returns the new count.
	Increment(ctx context.Context, userID string) (int, error)
}

// RateLimiter enforces a fixed per-user request window.
type RateLimiter interface {
	// Allow consumes one slot from the user's window. It returns false when
	// the window is exhausted; no slot is consumed in that case.
	Allow(ctx context.Context, userID string) (bool, error)

	// Remaining reports the slots left in the current window without
	// consuming one.
	Remaining(ctx context.Context, userID string) (int, error)
}

// MemoryUsageStore is an in-process usage counter. Only correct for a
// single-instance deployment; multi-instance setups should use the Redis
// store so concurrent requests cannot race past the quota check.
type MemoryUsageStore struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewMemoryUsageStore creates an empty in-process usage store.
func NewMemoryUsageStore() *MemoryUsageStore {
	return &MemoryUsageStore{counts: make(map[string]int)}
}

func (s *MemoryUsageStore) Count(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[userID], nil
}

func (s *MemoryUsageStore) Increment(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[userID]++
	return s.counts[userID], nil
}

type rateWindow struct {
	count   int
	resetAt time.Time
}

// MemoryRateLimiter implements a fixed window with lazy reset: the window
// restarts on the first call observed after expiry. In-process only; see
// RedisRateLimiter for multi-instance deployments.
type MemoryRateLimiter struct {
	window  time.Duration
	max     int
	now     func() time.Time
	mu      sync.Mutex
	windows map[string]*rateWindow
}

// NewMemoryRateLimiter creates a limiter allowing max calls per window.
func NewMemoryRateLimiter(window time.Duration, max int) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		window:  window,
		max:     max,
		now:     time.Now,
		windows: make(map[string]*rateWindow),
	}
}

func (l *MemoryRateLimiter) Allow(_ context.Context, userID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[userID]
	if !ok || now.After(w.resetAt) {
		l.windows[userID] = &rateWindow{count: 1, resetAt: now.Add(l.window)}
		return true, nil
	}

	if w.count >= l.max {
		return false, nil
	}
	w.count++
	return true, nil
}

func (l *MemoryRateLimiter) Remaining(_ context.Context, userID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[userID]
	if !ok || l.now().After(w.resetAt) {
		return l.max, nil
	}
	remaining := l.max - w.count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
