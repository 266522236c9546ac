package ratelimiter

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is the contract the chat pipeline depends on. Allow reports whether
// the identity may proceed and, when denied, how long until a slot frees up.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
	Reset(ctx context.Context) error
}

// Allow implements Limiter over the in-process windows.
func (k *Keyed) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	now := time.Now()
	if k.TryAcquire(key, now) {
		return true, 0, nil
	}
	return false, k.TimeUntilReset(key, now), nil
}

// Reset implements Limiter.
func (k *Keyed) Reset(_ context.Context) error {
	k.ResetAll()
	return nil
}

// RedisLimiter is the sliding-window limiter over a shared Redis, for
// deployments running more than one gateway replica. Timestamps live in a
// sorted set per identity; the Lua script keeps purge+check+append atomic so
// concurrent replicas cannot over-acquire.
type RedisLimiter struct {
	rdb         *redis.Client
	maxRequests int
	duration    time.Duration
	script      *redis.Script
}

// NewRedisLimiter constructs a Redis-backed sliding-window limiter.
func NewRedisLimiter(rdb *redis.Client, maxRequests int, duration time.Duration) *RedisLimiter {
	if rdb == nil {
		return nil
	}
	if maxRequests <= 0 {
		maxRequests = DefaultMaxRequests
	}
	if duration <= 0 {
		duration = DefaultWindowDuration
	}
	return &RedisLimiter{
		rdb:         rdb,
		maxRequests: maxRequests,
		duration:    duration,
		script:      redis.NewScript(luaSlidingWindowScript),
	}
}

const luaSlidingWindowScript = `
local key = KEYS[1]
local max_requests = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])
local now_ms = tonumber(ARGV[3])

redis.call("ZREMRANGEBYSCORE", key, "-inf", now_ms - window_ms)

local count = redis.call("ZCARD", key)
if count >= max_requests then
  local oldest = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
  local retry_after_ms = 0
  if oldest[2] ~= nil then
    retry_after_ms = window_ms - (now_ms - tonumber(oldest[2]))
    if retry_after_ms < 0 then
      retry_after_ms = 0
    end
  end
  return { 0, retry_after_ms }
end

redis.call("ZADD", key, now_ms, now_ms .. "-" .. count)
redis.call("PEXPIRE", key, window_ms)
return { 1, 0 }
`

// Allow implements Limiter. Fails open on Redis errors to avoid turning a
// cache outage into a gateway outage.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	if l == nil || l.rdb == nil {
		return true, 0, nil
	}
	nowMs := time.Now().UnixMilli()
	res, err := l.script.Run(ctx, l.rdb, []string{"rate:" + key}, l.maxRequests, l.duration.Milliseconds(), nowMs).Result()
	if err != nil {
		slog.Error("redis rate limiter script error", slog.String("key", key), slog.Any("error", err))
		return true, 0, err
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) < 2 {
		slog.Error("redis rate limiter unexpected script result", slog.String("key", key), slog.Any("result", res))
		return true, 0, nil
	}
	allowed := asInt64(vals[0]) == 1
	retryMs := asInt64(vals[1])
	retryAfter := ceilSeconds(time.Duration(retryMs) * time.Millisecond)
	return allowed, retryAfter, nil
}

// Reset implements Limiter by dropping every tracked identity.
func (l *RedisLimiter) Reset(ctx context.Context) error {
	if l == nil || l.rdb == nil {
		return nil
	}
	iter := l.rdb.Scan(ctx, 0, "rate:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := l.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func ceilSeconds(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	secs := (d + time.Second - 1) / time.Second
	return secs * time.Second
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}
