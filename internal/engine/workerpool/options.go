package workerpool

import "time"

// Option configures a Pool.
type Option func(*options)

type options struct {
	queueSize    int
	pollInterval time.Duration
	metrics      *Metrics
}

// WithQueueSize bounds the number of tasks waiting for a worker.
func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// WithPollInterval sets how often WaitForCompletion checks for pending tasks.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithMetrics exports task outcomes to the given collectors.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}
