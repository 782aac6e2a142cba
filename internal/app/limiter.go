package app

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptLimiter throttles credential attempts (login, PIN checks) per subject.
type AttemptLimiter interface {
	Allow(ctx context.Context, scope, subject string) (allowed bool, retryAfterSeconds int, err error)
}

var attemptLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisAttemptLimiter is a fixed-window counter shared by every gateway
// instance pointing at the same Redis.
type RedisAttemptLimiter struct {
	client redis.Scripter
	prefix string
	limit  int
	window time.Duration
}

func NewRedisAttemptLimiter(client redis.Scripter, prefix string, limit int, window time.Duration) *RedisAttemptLimiter {
	trimmedPrefix := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if trimmedPrefix == "" {
		trimmedPrefix = "wallet"
	}
	return &RedisAttemptLimiter{
		client: client,
		prefix: trimmedPrefix + ":rate_limit",
		limit:  limit,
		window: window,
	}
}

func (r *RedisAttemptLimiter) Allow(ctx context.Context, scope, subject string) (bool, int, error) {
	if r == nil || r.client == nil || r.limit <= 0 || r.window <= 0 {
		return true, 0, nil
	}

	normalizedScope := strings.TrimSpace(scope)
	normalizedSubject := strings.ToLower(strings.TrimSpace(subject))
	if normalizedScope == "" || normalizedSubject == "" {
		return true, 0, nil
	}

	windowMs := r.window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}

	key := fmt.Sprintf("%s:%s:%s", r.prefix, normalizedScope, normalizedSubject)
	rawResult, err := attemptLimitScript.Run(ctx, r.client, []string{key}, windowMs).Result()
	if err != nil {
		return false, 0, err
	}

	values, ok := rawResult.([]interface{})
	if !ok || len(values) != 2 {
		return false, 0, fmt.Errorf("unexpected redis limiter response shape: %T", rawResult)
	}
	currentCount, ok := values[0].(int64)
	if !ok {
		return false, 0, fmt.Errorf("unexpected redis limiter count type: %T", values[0])
	}
	ttlMs, ok := values[1].(int64)
	if !ok {
		return false, 0, fmt.Errorf("unexpected redis limiter ttl type: %T", values[1])
	}
	if ttlMs < 0 {
		ttlMs = windowMs
	}

	if int(currentCount) <= r.limit {
		return true, 0, nil
	}
	return false, retryAfterSeconds(ttlMs), nil
}

// MemoryAttemptLimiter is the single-process fallback used when no Redis is
// configured.
type MemoryAttemptLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]attemptWindow
}

type attemptWindow struct {
	count   int
	resetAt time.Time
}

func NewMemoryAttemptLimiter(limit int, window time.Duration) *MemoryAttemptLimiter {
	return &MemoryAttemptLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		windows: make(map[string]attemptWindow),
	}
}

func (m *MemoryAttemptLimiter) Allow(ctx context.Context, scope, subject string) (bool, int, error) {
	if m.limit <= 0 || m.window <= 0 {
		return true, 0, nil
	}
	subject = strings.ToLower(strings.TrimSpace(subject))
	if subject == "" {
		return true, 0, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	key := scope + ":" + subject
	w := m.windows[key]
	if !now.Before(w.resetAt) {
		w = attemptWindow{resetAt: now.Add(m.window)}
	}
	w.count++
	m.windows[key] = w

	if w.count <= m.limit {
		return true, 0, nil
	}
	return false, retryAfterSeconds(w.resetAt.Sub(now).Milliseconds()), nil
}

func retryAfterSeconds(ttlMs int64) int {
	retryAfter := int(math.Ceil(float64(ttlMs) / 1000.0))
	if retryAfter < 1 {
		retryAfter = 1
	}
	return retryAfter
}
