package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts rate limit decisions.
type Metrics struct {
	Checks   *prometheus.CounterVec
	Degraded prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Checks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "snowflake_ratelimit_checks_total",
			Help: "Rate limit checks by class and outcome",
		}, []string{"class", "outcome"}),
		Degraded: f.NewGauge(prometheus.GaugeOpts{
			Name: "snowflake_ratelimit_degraded",
			Help: "1 while rate limits are served from the local fallback",
		}),
	}
}
