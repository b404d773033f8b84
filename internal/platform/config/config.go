// Package config loads process configuration from SNOWFLAKE_* environment
// variables. Empty backend URLs select the in-memory implementations.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	strutil "snowflake/pkg/platform/strings"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string        `env:"SNOWFLAKE_ADDR"            envDefault:":8080"`
	LogLevel      string        `env:"SNOWFLAKE_LOG_LEVEL"       envDefault:"info"`
	LogFormat     string        `env:"SNOWFLAKE_LOG_FORMAT"      envDefault:"json"`
	JWTSigningKey string        `env:"SNOWFLAKE_JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	JWTIssuer     string        `env:"SNOWFLAKE_JWT_ISSUER"      envDefault:"snowflake"`
	JWTAudience   string        `env:"SNOWFLAKE_JWT_AUDIENCE"    envDefault:"snowflake-api"`
	AdminToken    string        `env:"SNOWFLAKE_ADMIN_TOKEN"`
	ShutdownGrace time.Duration `env:"SNOWFLAKE_SHUTDOWN_GRACE"  envDefault:"10s"`

	Registry  Registry
	Database  DatabaseConfig
	Redis     RedisConfig
	Audit     AuditConfig
	Otel      OtelConfig
	RateLimit RateLimitConfig
}

// Registry holds identity registry policy.
type Registry struct {
	MintFee      uint64        `env:"SNOWFLAKE_MINT_FEE"      envDefault:"0"`
	DigestLength int           `env:"SNOWFLAKE_DIGEST_LENGTH" envDefault:"32"`
	TxTimeout    time.Duration `env:"SNOWFLAKE_TX_TIMEOUT"    envDefault:"5s"`
}

// DatabaseConfig selects the Postgres registry store when URL is set.
type DatabaseConfig struct {
	URL          string        `env:"SNOWFLAKE_DATABASE_URL"`
	MaxOpenConns int           `env:"SNOWFLAKE_DATABASE_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns int           `env:"SNOWFLAKE_DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLife  time.Duration `env:"SNOWFLAKE_DATABASE_CONN_MAX_LIFE"  envDefault:"30m"`
}

// RedisConfig selects the Redis handle directory when URL is set.
type RedisConfig struct {
	URL          string        `env:"SNOWFLAKE_REDIS_URL"`
	PoolSize     int           `env:"SNOWFLAKE_REDIS_POOL_SIZE"      envDefault:"10"`
	MinIdleConns int           `env:"SNOWFLAKE_REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"SNOWFLAKE_REDIS_DIAL_TIMEOUT"   envDefault:"5s"`
	ReadTimeout  time.Duration `env:"SNOWFLAKE_REDIS_READ_TIMEOUT"   envDefault:"3s"`
	WriteTimeout time.Duration `env:"SNOWFLAKE_REDIS_WRITE_TIMEOUT"  envDefault:"3s"`
}

// AuditConfig adds a Kafka sink when Brokers is set.
type AuditConfig struct {
	Brokers []string `env:"SNOWFLAKE_KAFKA_BROKERS" envSeparator:","`
	Topic   string   `env:"SNOWFLAKE_AUDIT_TOPIC"   envDefault:"snowflake.audit"`
	Buffer  int      `env:"SNOWFLAKE_AUDIT_BUFFER"  envDefault:"0"`
}

// OtelConfig enables OTLP trace export when Endpoint is set.
type OtelConfig struct {
	Endpoint    string `env:"SNOWFLAKE_OTEL_ENDPOINT"`
	ServiceName string `env:"SNOWFLAKE_OTEL_SERVICE_NAME" envDefault:"snowflake"`
}

// RateLimitConfig caps requests per caller within a sliding window. Writes
// are keyed by caller address, reads by client IP.
type RateLimitConfig struct {
	Disabled      bool          `env:"SNOWFLAKE_RATE_LIMIT_DISABLED"       envDefault:"false"`
	ReadRequests  int           `env:"SNOWFLAKE_RATE_LIMIT_READ_REQUESTS"  envDefault:"600"`
	WriteRequests int           `env:"SNOWFLAKE_RATE_LIMIT_WRITE_REQUESTS" envDefault:"60"`
	Window        time.Duration `env:"SNOWFLAKE_RATE_LIMIT_WINDOW"         envDefault:"1m"`
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Audit.Brokers = strutil.DedupeAndTrim(cfg.Audit.Brokers)
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate rejects settings no component can run with.
func (c Server) Validate() error {
	if c.Addr == "" {
		return errors.New("SNOWFLAKE_ADDR must not be empty")
	}
	if c.JWTSigningKey == "" {
		return errors.New("SNOWFLAKE_JWT_SIGNING_KEY must not be empty")
	}
	if c.Registry.DigestLength < 0 {
		return errors.New("SNOWFLAKE_DIGEST_LENGTH must not be negative")
	}
	if c.Registry.TxTimeout <= 0 {
		return errors.New("SNOWFLAKE_TX_TIMEOUT must be positive")
	}
	if !c.RateLimit.Disabled {
		if c.RateLimit.ReadRequests <= 0 || c.RateLimit.WriteRequests <= 0 {
			return errors.New("SNOWFLAKE_RATE_LIMIT_*_REQUESTS must be positive")
		}
		if c.RateLimit.Window <= 0 {
			return errors.New("SNOWFLAKE_RATE_LIMIT_WINDOW must be positive")
		}
	}
	if c.Audit.Buffer < 0 {
		return errors.New("SNOWFLAKE_AUDIT_BUFFER must not be negative")
	}
	return nil
}
