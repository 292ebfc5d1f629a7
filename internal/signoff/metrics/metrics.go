package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus instruments for the sign-off orchestrator.
type Metrics struct {
	Transitions       *prometheus.CounterVec
	OperationFailures *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	ActiveProcesses   prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fitgap_signoff_transitions_total",
			Help: "Total sign-off status transitions, by target status",
		}, []string{"to"}),
		OperationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fitgap_signoff_operation_failures_total",
			Help: "Total failed sign-off operations, by operation and error code",
		}, []string{"operation", "code"}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fitgap_signoff_operation_duration_seconds",
			Help:    "Latency of sign-off operations including their transaction",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		ActiveProcesses: f.NewGauge(prometheus.GaugeOpts{
			Name: "fitgap_signoff_active_processes",
			Help: "Sign-off processes started and not yet completed or rejected by this instance",
		}),
	}
}

func (m *Metrics) IncTransition(to string) {
	m.Transitions.WithLabelValues(to).Inc()
}

func (m *Metrics) IncFailure(operation, code string) {
	m.OperationFailures.WithLabelValues(operation, code).Inc()
}

func (m *Metrics) ObserveDuration(operation string, seconds float64) {
	m.OperationDuration.WithLabelValues(operation).Observe(seconds)
}

func (m *Metrics) IncActive() { m.ActiveProcesses.Inc() }
func (m *Metrics) DecActive() { m.ActiveProcesses.Dec() }
