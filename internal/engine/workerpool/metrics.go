package workerpool

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	statusSuccess   = "success"
	statusFailure   = "failure"
	statusAbandoned = "abandoned"
)

// Metrics holds Prometheus collectors for worker pools.
type Metrics struct {
	tasks    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	pending  prometheus.Gauge
}

// NewMetrics creates the pool collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stratum",
			Subsystem: "workerpool",
			Name:      "tasks_total",
			Help:      "Total number of tasks finished, by status",
		}, []string{"status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stratum",
			Subsystem: "workerpool",
			Name:      "task_duration_seconds",
			Help:      "Time spent running tasks",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"status"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stratum",
			Subsystem: "workerpool",
			Name:      "pending_tasks",
			Help:      "Tasks submitted but not yet finished",
		}),
	}

	for _, c := range []prometheus.Collector{m.tasks, m.duration, m.pending} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) observe(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.tasks.WithLabelValues(status).Inc()
	if status != statusAbandoned {
		m.duration.WithLabelValues(status).Observe(d.Seconds())
	}
}

func (m *Metrics) setPending(n int64) {
	if m != nil {
		m.pending.Set(float64(n))
	}
}
