// Package limiter throttles login attempts per key with a fixed window.
package limiter

import (
	"context"
	"sync"
	"time"

	"github.com/psds-microservice/helpdesk-service/internal/clock"
	"github.com/psds-microservice/helpdesk-service/internal/redis"
)

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// fixedWindowScript atomically increments the counter and sets its expiry on first hit.
const fixedWindowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
	return 0
end
return 1
`

const redisKeyPrefix = "helpdesk:ratelimit:"

type RedisFixedWindow struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRedisFixedWindow(client *redis.Client, limit int, window time.Duration) *RedisFixedWindow {
	return &RedisFixedWindow{client: client, limit: limit, window: window}
}

func (l *RedisFixedWindow) Allow(ctx context.Context, key string) (bool, error) {
	res, err := l.client.Raw().Eval(ctx, fixedWindowScript, []string{redisKeyPrefix + key}, l.limit, l.window.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

// MemoryFixedWindow is the single-process fallback when Redis is not configured.
type MemoryFixedWindow struct {
	mu      sync.Mutex
	clock   clock.Clock
	limit   int
	window  time.Duration
	buckets map[string]*bucket
}

type bucket struct {
	count   int
	resetAt time.Time
}

func NewMemoryFixedWindow(limit int, window time.Duration, c clock.Clock) *MemoryFixedWindow {
	if c == nil {
		c = clock.Real()
	}
	return &MemoryFixedWindow{clock: c, limit: limit, window: window, buckets: make(map[string]*bucket)}
}

func (l *MemoryFixedWindow) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now()
	b, ok := l.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		if len(l.buckets) > 10000 {
			l.sweep(now)
		}
		b = &bucket{resetAt: now.Add(l.window)}
		l.buckets[key] = b
	}
	b.count++
	return b.count <= l.limit, nil
}

func (l *MemoryFixedWindow) sweep(now time.Time) {
	for k, b := range l.buckets {
		if !now.Before(b.resetAt) {
			delete(l.buckets, k)
		}
	}
}

// Unlimited allows everything; used when the limit is disabled (<= 0).
type Unlimited struct{}

func (Unlimited) Allow(context.Context, string) (bool, error) { return true, nil }
