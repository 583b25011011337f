// Package ratelimit provides a fixed-window request limiter for the public
// payment endpoints. The in-memory store serves single-instance deployments
// and tests; the redis store shares the window across instances.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store counts requests per key within a fixed window.
type Store interface {
	// Allow records one request for key and reports whether it fits within
	// limit for the current window.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// InMemoryStore implements Store with per-key windows guarded by a mutex.
type InMemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	start time.Time
	dur   time.Duration
	count int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{windows: make(map[string]*window)}
}

func (s *InMemoryStore) Allow(ctx context.Context, key string, limit int, windowDur time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Sweep expired windows on every call. The keys come from unauthenticated
	// callers, so without the sweep the map grows without bound.
	now := time.Now()
	for k, w := range s.windows {
		if now.Sub(w.start) >= w.dur {
			delete(s.windows, k)
		}
	}

	w := s.windows[key]
	if w == nil {
		w = &window{start: now, dur: windowDur}
		s.windows[key] = w
	}
	w.count++
	return w.count <= limit, nil
}

// RedisStore implements Store with INCR + EXPIRE, one counter per key per
// window.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Allow(ctx context.Context, key string, limit int, windowDur time.Duration) (bool, error) {
	redisKey := fmt.Sprintf("ratelimit:%s", key)

	count, err := s.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("ratelimit incr: %w", err)
	}
	if count == 1 {
		if err := s.client.Expire(ctx, redisKey, windowDur).Err(); err != nil {
			return false, fmt.Errorf("ratelimit expire: %w", err)
		}
	}
	return count <= int64(limit), nil
}
