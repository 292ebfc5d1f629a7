package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus instruments for the decision log.
type Metrics struct {
	Appended        *prometheus.CounterVec
	AppendFailures  prometheus.Counter
	AppendDuration  prometheus.Histogram
	StreamFailures  prometheus.Counter
	StreamPublished prometheus.Counter
}

// New registers decision log metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Appended: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fitgap_decision_log_appended_total",
			Help: "Total ledger entries appended, by action",
		}, []string{"action"}),
		AppendFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "fitgap_decision_log_append_failures_total",
			Help: "Total ledger appends that failed and aborted their operation",
		}),
		AppendDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "fitgap_decision_log_append_duration_seconds",
			Help:    "Latency of ledger appends",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5},
		}),
		StreamFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "fitgap_decision_log_stream_failures_total",
			Help: "Total post-commit stream publishes that failed",
		}),
		StreamPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "fitgap_decision_log_stream_published_total",
			Help: "Total entries published to the decision log stream",
		}),
	}
}

func (m *Metrics) IncAppended(action string) {
	m.Appended.WithLabelValues(action).Inc()
}

func (m *Metrics) IncAppendFailures() {
	m.AppendFailures.Inc()
}

func (m *Metrics) ObserveAppendDuration(seconds float64) {
	m.AppendDuration.Observe(seconds)
}

func (m *Metrics) IncStreamFailures() {
	m.StreamFailures.Inc()
}

func (m *Metrics) IncStreamPublished() {
	m.StreamPublished.Inc()
}
