package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus instruments for snapshot comparisons.
type Metrics struct {
	Computations    prometheus.Counter
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
	CacheFailures   prometheus.Counter
	ComputeDuration prometheus.Histogram
}

// New registers comparison metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Computations: f.NewCounter(prometheus.CounterOpts{
			Name: "fitgap_delta_computations_total",
			Help: "Total delta reports computed",
		}),
		CacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "fitgap_delta_cache_hits_total",
			Help: "Total comparisons served from cache",
		}),
		CacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "fitgap_delta_cache_misses_total",
			Help: "Total comparisons not found in cache",
		}),
		CacheFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "fitgap_delta_cache_failures_total",
			Help: "Total comparison cache reads or writes that failed",
		}),
		ComputeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "fitgap_delta_compute_duration_seconds",
			Help:    "Time spent computing a delta report",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5},
		}),
	}
}

func (m *Metrics) IncComputations()  { m.Computations.Inc() }
func (m *Metrics) IncCacheHits()     { m.CacheHits.Inc() }
func (m *Metrics) IncCacheMisses()   { m.CacheMisses.Inc() }
func (m *Metrics) IncCacheFailures() { m.CacheFailures.Inc() }

func (m *Metrics) ObserveComputeDuration(seconds float64) {
	m.ComputeDuration.Observe(seconds)
}
