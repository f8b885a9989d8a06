// Package ratelimit throttles credential endpoints per client IP. Login and
// registration take a sliding-window limit so password guessing gets slow
// without touching the rest of the API.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Result reports one limiter decision.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter decides whether a request identified by key may proceed. Allow
// consumes one slot when it returns an allowed result.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}

// slidingWindow tracks request timestamps so a burst straddling a window
// boundary cannot double the effective limit.
type slidingWindow struct {
	timestamps []time.Time
}

func (sw *slidingWindow) cleanup(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}

// InMemory is a process-local sliding-window limiter. Not distributed; use
// the Redis limiter when multiple instances share traffic.
type InMemory struct {
	mu      sync.Mutex
	windows map[string]*slidingWindow
	clock   func() time.Time
}

// InMemoryOption configures an InMemory limiter.
type InMemoryOption func(*InMemory)

// WithClock overrides the time source for tests.
func WithClock(clock func() time.Time) InMemoryOption {
	return func(l *InMemory) {
		if clock != nil {
			l.clock = clock
		}
	}
}

func NewInMemory(opts ...InMemoryOption) *InMemory {
	l := &InMemory{
		windows: make(map[string]*slidingWindow),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *InMemory) Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	sw := l.windows[key]
	if sw == nil {
		sw = &slidingWindow{}
		l.windows[key] = sw
	}
	sw.cleanup(now, window)

	if len(sw.timestamps) >= limit {
		return &Result{
			Allowed: false,
			Limit:   limit,
			ResetAt: sw.timestamps[0].Add(window),
		}, nil
	}

	sw.timestamps = append(sw.timestamps, now)
	return &Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(sw.timestamps),
		ResetAt:   sw.timestamps[0].Add(window),
	}, nil
}

// Redis is a fixed-window limiter on Redis INCR. The first hit in a window
// creates the counter and sets its expiry.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

const redisKeyPrefix = "rl:"

// allowScript bumps the counter and stamps its expiry in one atomic step, so
// a counter can never outlive its window. It also repairs keys that somehow
// lost their TTL. Returns the count and the remaining window in milliseconds.
var allowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
    ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

func (l *Redis) Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	redisKey := redisKeyPrefix + key

	raw, err := allowScript.Run(ctx, l.client, []string{redisKey}, window.Milliseconds()).Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit incr: %w", err)
	}
	if len(raw) != 2 {
		return nil, fmt.Errorf("rate limit incr: unexpected reply %v", raw)
	}
	count, ok := raw[0].(int64)
	if !ok {
		return nil, fmt.Errorf("rate limit incr: unexpected count %v", raw[0])
	}
	ttlMillis, ok := raw[1].(int64)
	if !ok {
		return nil, fmt.Errorf("rate limit incr: unexpected ttl %v", raw[1])
	}
	resetAt := time.Now().Add(time.Duration(ttlMillis) * time.Millisecond)

	if count > int64(limit) {
		return &Result{Allowed: false, Limit: limit, ResetAt: resetAt}, nil
	}
	return &Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - int(count),
		ResetAt:   resetAt,
	}, nil
}
