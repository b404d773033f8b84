package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the identity registry.
type Metrics struct {
	TokensMinted         prometheus.Counter
	FieldsAdded          prometheus.Counter
	EntriesWritten       prometheus.Counter
	ResolversAdded       prometheus.Counter
	AttestationsRecorded prometheus.Counter
	OperationFailures    *prometheus.CounterVec
	OperationDuration    *prometheus.HistogramVec
}

// New registers the registry metrics on the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the registry metrics on reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TokensMinted: factory.NewCounter(prometheus.CounterOpts{
			Name: "snowflake_tokens_minted_total",
			Help: "Total number of identity tokens minted",
		}),
		FieldsAdded: factory.NewCounter(prometheus.CounterOpts{
			Name: "snowflake_fields_added_total",
			Help: "Total number of extension fields added to tokens",
		}),
		EntriesWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "snowflake_entries_written_total",
			Help: "Total number of field entries written after mint",
		}),
		ResolversAdded: factory.NewCounter(prometheus.CounterOpts{
			Name: "snowflake_resolvers_added_total",
			Help: "Total number of resolvers added to tokens",
		}),
		AttestationsRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "snowflake_attestations_recorded_total",
			Help: "Total number of entry attestations recorded",
		}),
		OperationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "snowflake_operation_failures_total",
			Help: "Registry operation failures by operation and error code",
		}, []string{"operation", "code"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "snowflake_operation_duration_seconds",
			Help:    "Duration of registry operations",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
	}
}

// ObserveOperation records the duration of an operation started at start.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementFailure(operation, code string) {
	m.OperationFailures.WithLabelValues(operation, code).Inc()
}
