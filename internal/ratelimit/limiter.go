// Package ratelimit spaces out repeated calls per key, such as weather
// lookups per user.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter reports whether a call for key may proceed now.
type RateLimiter interface {
	Allow(key string) bool
}

// Limiter enforces a minimum interval between calls for the same key.
type Limiter struct {
	mu          sync.Mutex
	keys        map[string]time.Time
	minInterval time.Duration
}

// New creates a limiter with the given minimum interval per key.
func New(minInterval time.Duration) *Limiter {
	return &Limiter{
		keys:        make(map[string]time.Time),
		minInterval: minInterval,
	}
}

// Allow records a call and returns true if minInterval has passed since the
// last allowed call for key. Refused calls do not move the window.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if last, ok := l.keys[key]; ok && now.Sub(last) < l.minInterval {
		return false
	}
	l.keys[key] = now
	return true
}

// Wait blocks until a call for key is allowed or ctx is done.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	for {
		l.mu.Lock()
		now := time.Now()
		last, ok := l.keys[key]
		wait := time.Duration(0)
		if ok {
			wait = l.minInterval - now.Sub(last)
		}
		if wait <= 0 {
			l.keys[key] = now
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Reset forgets the last call for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.keys, key)
}

// ResetAll forgets every key.
func (l *Limiter) ResetAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = make(map[string]time.Time)
}

// RedisLimiter is the shared-state equivalent of Limiter for multi-replica
// deployments. A key is admitted when SET NX succeeds; the key's expiry is
// the interval.
type RedisLimiter struct {
	client      *redis.Client
	minInterval time.Duration
	prefix      string
}

// NewRedis creates a Redis-backed limiter.
func NewRedis(client *redis.Client, minInterval time.Duration, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "ratelimit:"
	}
	return &RedisLimiter{client: client, minInterval: minInterval, prefix: prefix}
}

// Allow admits the call when no call for key happened within the interval.
// Redis errors admit the call; throttling is not worth failing requests over.
func (l *RedisLimiter) Allow(key string) bool {
	if l.minInterval <= 0 {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ok, err := l.client.SetNX(ctx, l.prefix+key, 1, l.minInterval).Result()
	if err != nil {
		return true
	}
	return ok
}

var (
	_ RateLimiter = (*Limiter)(nil)
	_ RateLimiter = (*RedisLimiter)(nil)
)
