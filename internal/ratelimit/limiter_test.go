package ratelimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snowflake/pkg/platform/circuit"
)

// flakyStore fails while failing is set and otherwise delegates.
type flakyStore struct {
	mu      sync.Mutex
	failing bool
	inner   Store
}

func (s *flakyStore) setFailing(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = v
}

func (s *flakyStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	s.mu.Lock()
	failing := s.failing
	s.mu.Unlock()
	if failing {
		return nil, errors.New("redis down")
	}
	return s.inner.Allow(ctx, key, limit, window)
}

var testLimits = Limits{
	Read:  Limit{Requests: 100, Window: time.Minute},
	Write: Limit{Requests: 2, Window: time.Minute},
}

func newTestLimiter(primary Store) (*Limiter, *Metrics) {
	metrics := NewMetrics(prometheus.NewRegistry())
	l := NewLimiter(primary, testLimits,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(metrics),
		WithBreaker(circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(2))),
	)
	return l, metrics
}

func TestLimiterAppliesClassLimit(t *testing.T) {
	l, metrics := newTestLimiter(NewInMemoryStore())
	ctx := context.Background()

	for range 2 {
		res, err := l.Check(ctx, ClassWrite, "w")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
	res, err := l.Check(ctx, ClassWrite, "w")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.False(t, res.Degraded)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Checks.WithLabelValues("write", "allowed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Checks.WithLabelValues("write", "denied")))

	_, err = l.Check(ctx, Class("admin"), "w")
	assert.Error(t, err)
}

func TestLimiterFallsBackWhileBreakerOpen(t *testing.T) {
	primary := &flakyStore{inner: NewInMemoryStore()}
	l, metrics := newTestLimiter(primary)
	ctx := context.Background()

	primary.setFailing(true)
	_, err := l.Check(ctx, ClassRead, "r")
	require.Error(t, err, "first failure fails open")

	res, err := l.Check(ctx, ClassRead, "r")
	require.NoError(t, err, "second failure opens the breaker")
	assert.True(t, res.Degraded)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Degraded))

	primary.setFailing(false)
	res, err = l.Check(ctx, ClassRead, "r")
	require.NoError(t, err)
	assert.True(t, res.Degraded, "one success does not close the breaker")

	res, err = l.Check(ctx, ClassRead, "r")
	require.NoError(t, err)
	assert.False(t, res.Degraded)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.Degraded))
}
