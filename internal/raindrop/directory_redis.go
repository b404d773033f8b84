package raindrop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	id "snowflake/pkg/domain"
)

var lookupDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "snowflake_raindrop_lookup_duration_ms",
	Help:    "Latency of registration authority handle lookups in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

const (
	handlesKey   = "raindrop:handles"
	addressesKey = "raindrop:addresses"
)

// signUpScript binds KEYS[1][ARGV[1]] = ARGV[2] and KEYS[2][ARGV[2]] = ARGV[1]
// only when neither side is bound. Returns 1 on success, 0 on conflict.
var signUpScript = redis.NewScript(`
if redis.call("HEXISTS", KEYS[1], ARGV[1]) == 1 then
	return 0
end
if redis.call("HEXISTS", KEYS[2], ARGV[2]) == 1 then
	return 0
end
redis.call("HSET", KEYS[1], ARGV[1], ARGV[2])
redis.call("HSET", KEYS[2], ARGV[2], ARGV[1])
return 1
`)

// RedisDirectory keeps the handle directory in two Redis hashes so every
// process shares one registration authority.
type RedisDirectory struct {
	client *redis.Client
}

// RedisDirectoryOption configures a RedisDirectory instance.
type RedisDirectoryOption func(*RedisDirectory)

func NewRedisDirectory(client *redis.Client, opts ...RedisDirectoryOption) *RedisDirectory {
	d := &RedisDirectory{client: client}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

func (d *RedisDirectory) IsRegistered(ctx context.Context, handle id.Handle) (bool, error) {
	start := time.Now()
	defer func() {
		lookupDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	ok, err := d.client.HExists(ctx, handlesKey, handle.String()).Result()
	if err != nil {
		return false, fmt.Errorf("check handle: %w", err)
	}
	return ok, nil
}

// SignUp atomically binds handle to address.
func (d *RedisDirectory) SignUp(ctx context.Context, handle id.Handle, address id.Address) error {
	bound, err := signUpScript.Run(ctx, d.client, []string{handlesKey, addressesKey},
		handle.String(), address.String()).Int()
	if err != nil {
		return fmt.Errorf("sign up handle: %w", err)
	}
	if bound == 0 {
		return ErrAlreadyUsed
	}
	return nil
}

func (d *RedisDirectory) AddressOf(ctx context.Context, handle id.Handle) (id.Address, error) {
	addr, err := d.client.HGet(ctx, handlesKey, handle.String()).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup handle: %w", err)
	}
	return id.Address(addr), nil
}
