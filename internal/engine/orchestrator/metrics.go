package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.trai.ch/stratum/internal/core/domain"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomeCached  = "cached"
)

// Metrics holds Prometheus collectors for batch processing.
type Metrics struct {
	batches   *prometheus.CounterVec
	fallbacks prometheus.Counter
	units     *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewMetrics creates the orchestrator collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stratum",
			Subsystem: "orchestrator",
			Name:      "batches_total",
			Help:      "Total number of batches processed, by strategy",
		}, []string{"strategy"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stratum",
			Subsystem: "orchestrator",
			Name:      "fallbacks_total",
			Help:      "Total number of parallel batches that fell back to sequential processing",
		}),
		units: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stratum",
			Subsystem: "orchestrator",
			Name:      "units_total",
			Help:      "Total number of units processed, by outcome",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stratum",
			Subsystem: "orchestrator",
			Name:      "batch_duration_seconds",
			Help:      "Wall time of batch processing",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"strategy"}),
	}

	for _, c := range []prometheus.Collector{m.batches, m.fallbacks, m.units, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) observeBatch(report domain.BatchReport) {
	if m == nil {
		return
	}
	strategy := string(report.Strategy)
	m.batches.WithLabelValues(strategy).Inc()
	m.duration.WithLabelValues(strategy).Observe(report.DurationSeconds)
	if report.FellBack {
		m.fallbacks.Inc()
	}
	m.units.WithLabelValues(outcomeSuccess).Add(float64(report.Succeeded - report.Cached))
	m.units.WithLabelValues(outcomeCached).Add(float64(report.Cached))
	m.units.WithLabelValues(outcomeFailure).Add(float64(report.Failed))
}
