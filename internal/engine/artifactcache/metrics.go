package artifactcache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Eviction reasons reported on the evictions counter.
const (
	reasonCapacity = "capacity"
	reasonMemory   = "memory"
	reasonExpired  = "expired"
)

// Metrics holds Prometheus collectors for one cache instance.
type Metrics struct {
	hits          prometheus.Counter
	misses        prometheus.Counter
	evictions     *prometheus.CounterVec
	invalidations prometheus.Counter
	tierErrors    prometheus.Counter
	size          prometheus.Gauge
}

// NewMetrics creates the collectors for a cache named name and registers them with reg.
func NewMetrics(reg prometheus.Registerer, name string) (*Metrics, error) {
	labels := prometheus.Labels{"cache": name}

	m := &Metrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "stratum",
			Subsystem:   "cache",
			Name:        "hits_total",
			ConstLabels: labels,
			Help:        "Total number of cache hits",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "stratum",
			Subsystem:   "cache",
			Name:        "misses_total",
			ConstLabels: labels,
			Help:        "Total number of cache misses",
		}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "stratum",
			Subsystem:   "cache",
			Name:        "evictions_total",
			ConstLabels: labels,
			Help:        "Total number of entries removed from memory, by reason",
		}, []string{"reason"}),
		invalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "stratum",
			Subsystem:   "cache",
			Name:        "invalidations_total",
			ConstLabels: labels,
			Help:        "Total number of fingerprint and explicit invalidations",
		}),
		tierErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "stratum",
			Subsystem:   "cache",
			Name:        "persistent_tier_errors_total",
			ConstLabels: labels,
			Help:        "Total number of persistent tier failures degraded to a miss or no-op",
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "stratum",
			Subsystem:   "cache",
			Name:        "entries",
			ConstLabels: labels,
			Help:        "Current number of entries held in memory",
		}),
	}

	for _, c := range []prometheus.Collector{m.hits, m.misses, m.evictions, m.invalidations, m.tierErrors, m.size} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) recordHit() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *Metrics) recordMiss() {
	if m != nil {
		m.misses.Inc()
	}
}

func (m *Metrics) recordEvictions(reason string, n int) {
	if m != nil && n > 0 {
		m.evictions.WithLabelValues(reason).Add(float64(n))
	}
}

func (m *Metrics) recordInvalidation() {
	if m != nil {
		m.invalidations.Inc()
	}
}

func (m *Metrics) recordTierError() {
	if m != nil {
		m.tierErrors.Inc()
	}
}

func (m *Metrics) updateSize(n int) {
	if m != nil {
		m.size.Set(float64(n))
	}
}
