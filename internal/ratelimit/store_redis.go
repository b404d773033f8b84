package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var allowDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "snowflake_ratelimit_allow_duration_ms",
	Help:    "Latency of Redis rate limit checks in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

const redisKeyPrefix = "ratelimit:"

// slidingWindowScript trims KEYS[1] to the window ending at ARGV[1] (ms),
// then adds member ARGV[4] when fewer than ARGV[3] remain.
// Returns {allowed, count, resetAtMs}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call("ZREMRANGEBYSCORE", key, "-inf", now - window)
local count = redis.call("ZCARD", key)
local allowed = 0
if count < limit then
	redis.call("ZADD", key, now, ARGV[4])
	count = count + 1
	allowed = 1
end
redis.call("PEXPIRE", key, window)
local reset = now + window
local oldest = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
if oldest[2] then
	reset = tonumber(oldest[2]) + window
end
return {allowed, count, reset}
`)

// RedisStore implements Store on sorted sets so every process shares one
// window per key.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	start := time.Now()
	defer func() {
		allowDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	now := time.Now()
	vals, err := slidingWindowScript.Run(ctx, s.client, []string{redisKeyPrefix + key},
		now.UnixMilli(), window.Milliseconds(), limit, uuid.NewString()).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if len(vals) != 3 {
		return nil, fmt.Errorf("rate limit check: unexpected reply %v", vals)
	}

	resetAt := time.UnixMilli(vals[2])
	if vals[0] == 1 {
		return &Result{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit - int(vals[1]),
			ResetAt:   resetAt,
		}, nil
	}
	return &Result{
		Allowed:    false,
		Limit:      limit,
		ResetAt:    resetAt,
		RetryAfter: retryAfter(now, resetAt),
	}, nil
}
