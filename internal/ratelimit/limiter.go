package ratelimit

import (
	"context"
	"fmt"
	"log/slog"

	"snowflake/pkg/platform/circuit"
)

// Limiter checks a primary Store and switches to a local fallback window
// while the circuit breaker is open.
type Limiter struct {
	primary  Store
	fallback Store
	breaker  *circuit.Breaker
	limits   Limits
	logger   *slog.Logger
	metrics  *Metrics
}

type Option func(*Limiter)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(l *Limiter) {
		l.metrics = m
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(l *Limiter) {
		l.breaker = b
	}
}

func WithFallback(s Store) Option {
	return func(l *Limiter) {
		l.fallback = s
	}
}

func NewLimiter(primary Store, limits Limits, opts ...Option) *Limiter {
	l := &Limiter{
		primary: primary,
		limits:  limits,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.fallback == nil {
		l.fallback = NewInMemoryStore()
	}
	if l.breaker == nil {
		l.breaker = circuit.New("ratelimit")
	}
	return l
}

// Check counts one request for key under class. A primary error before the
// breaker opens is returned so the caller can fail open.
func (l *Limiter) Check(ctx context.Context, class Class, key string) (*Result, error) {
	limit, ok := l.limits.For(class)
	if !ok {
		return nil, fmt.Errorf("unknown rate limit class %q", class)
	}

	res, err := l.primary.Allow(ctx, key, limit.Requests, limit.Window)
	if err != nil {
		useFallback, change := l.breaker.RecordFailure()
		if change.Opened {
			l.logger.WarnContext(ctx, "rate limit store failing, using local fallback",
				"error", err,
				"breaker", l.breaker.Name(),
			)
			l.setDegraded(1)
		}
		if !useFallback {
			return nil, err
		}
		return l.fromFallback(ctx, class, key, limit)
	}

	usePrimary, change := l.breaker.RecordSuccess()
	if change.Closed {
		l.logger.InfoContext(ctx, "rate limit store recovered", "breaker", l.breaker.Name())
		l.setDegraded(0)
	}
	if !usePrimary {
		return l.fromFallback(ctx, class, key, limit)
	}
	l.observe(class, res)
	return res, nil
}

func (l *Limiter) fromFallback(ctx context.Context, class Class, key string, limit Limit) (*Result, error) {
	res, err := l.fallback.Allow(ctx, key, limit.Requests, limit.Window)
	if err != nil {
		return nil, err
	}
	res.Degraded = true
	l.observe(class, res)
	return res, nil
}

func (l *Limiter) observe(class Class, res *Result) {
	if l.metrics == nil {
		return
	}
	outcome := "allowed"
	if !res.Allowed {
		outcome = "denied"
	}
	l.metrics.Checks.WithLabelValues(string(class), outcome).Inc()
}

func (l *Limiter) setDegraded(v float64) {
	if l.metrics != nil {
		l.metrics.Degraded.Set(v)
	}
}
