package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 32, cfg.Registry.DigestLength)
	assert.Equal(t, 5*time.Second, cfg.Registry.TxTimeout)
	assert.Zero(t, cfg.Registry.MintFee)
	assert.Empty(t, cfg.Database.URL)
	assert.Empty(t, cfg.Redis.URL)
	assert.Empty(t, cfg.Audit.Brokers)
	assert.Equal(t, "snowflake.audit", cfg.Audit.Topic)
	assert.False(t, cfg.RateLimit.Disabled)
	assert.Equal(t, 60, cfg.RateLimit.WriteRequests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("SNOWFLAKE_ADDR", ":9090")
	t.Setenv("SNOWFLAKE_MINT_FEE", "10")
	t.Setenv("SNOWFLAKE_DIGEST_LENGTH", "0")
	t.Setenv("SNOWFLAKE_KAFKA_BROKERS", " kafka-1:9092,kafka-2:9092,kafka-1:9092,")
	t.Setenv("SNOWFLAKE_REDIS_POOL_SIZE", "50")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, uint64(10), cfg.Registry.MintFee)
	assert.Equal(t, 0, cfg.Registry.DigestLength)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Audit.Brokers)
	assert.Equal(t, 50, cfg.Redis.PoolSize)
}

func TestFromEnvRejectsInvalid(t *testing.T) {
	t.Run("malformed duration", func(t *testing.T) {
		t.Setenv("SNOWFLAKE_TX_TIMEOUT", "soon")
		_, err := FromEnv()
		assert.Error(t, err)
	})

	t.Run("negative digest length", func(t *testing.T) {
		t.Setenv("SNOWFLAKE_DIGEST_LENGTH", "-1")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "SNOWFLAKE_DIGEST_LENGTH")
	})

	t.Run("zero write limit", func(t *testing.T) {
		t.Setenv("SNOWFLAKE_RATE_LIMIT_WRITE_REQUESTS", "0")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "SNOWFLAKE_RATE_LIMIT")
	})

	t.Run("zero write limit allowed when disabled", func(t *testing.T) {
		t.Setenv("SNOWFLAKE_RATE_LIMIT_DISABLED", "true")
		t.Setenv("SNOWFLAKE_RATE_LIMIT_WRITE_REQUESTS", "0")
		_, err := FromEnv()
		assert.NoError(t, err)
	})
}
