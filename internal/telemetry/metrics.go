package telemetry

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for instrumented operations, modeled
// on the teacher's pkg/prefetch/metrics.go registration pattern.
type Metrics struct {
	duration *prometheus.HistogramVec
	errors   *prometheus.CounterVec
	slow     *prometheus.CounterVec
}

var (
	registerOnce sync.Once
	shared       *Metrics
)

// NewMetrics returns the process-wide Metrics singleton, registering
// collectors on first call only (repeated registration with promauto would
// panic).
func NewMetrics() *Metrics {
	registerOnce.Do(func() {
		shared = &Metrics{
			duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "conceptrag_operation_duration_seconds",
				Help:    "Duration of instrumented operations, labeled by operation name.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			}, []string{"operation"}),
			errors: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "conceptrag_operation_errors_total",
				Help: "Count of instrumented operations that returned an error.",
			}, []string{"operation"}),
			slow: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "conceptrag_operation_slow_total",
				Help: "Count of instrumented operations that exceeded the slow threshold.",
			}, []string{"operation"}),
		}
	})
	return shared
}

// Observe records one operation's outcome.
func (m *Metrics) Observe(name string, d time.Duration, failed bool) {
	m.duration.WithLabelValues(name).Observe(d.Seconds())
	if failed {
		m.errors.WithLabelValues(name).Inc()
	}
}

// ObserveSlow records that an operation crossed the slow threshold.
func (m *Metrics) ObserveSlow(name string) {
	m.slow.WithLabelValues(name).Inc()
}
