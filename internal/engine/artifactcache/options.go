package artifactcache

import "go.trai.ch/stratum/internal/core/ports"

// Memory estimation defaults. They are tunable heuristics, not measurements.
const (
	DefaultSampleSize    = 10
	DefaultEntryOverhead = 256
	DefaultFallbackSize  = 4096
)

// Option configures a Cache.
type Option[A any] func(*options)

type options struct {
	store         ports.ArtifactStore
	logger        ports.Logger
	metrics       *Metrics
	fingerprint   string
	sampleSize    int
	entryOverhead int
	fallbackSize  int
}

// WithStore enables the persistent tier backed by store.
// A nil store leaves the cache memory-only.
func WithStore[A any](store ports.ArtifactStore) Option[A] {
	return func(o *options) {
		o.store = store
	}
}

// WithLogger sets the logger used for recoverable tier failures.
func WithLogger[A any](logger ports.Logger) Option[A] {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics exports cache activity to the given collectors.
func WithMetrics[A any](m *Metrics) Option[A] {
	return func(o *options) {
		o.metrics = m
	}
}

// WithFingerprint seeds the configuration fingerprint without counting an invalidation.
// Entries persisted under the same fingerprint by an earlier process stay valid.
func WithFingerprint[A any](fingerprint string) Option[A] {
	return func(o *options) {
		o.fingerprint = fingerprint
	}
}

// WithSampleSize sets how many entries the memory estimate inspects.
func WithSampleSize[A any](n int) Option[A] {
	return func(o *options) {
		if n > 0 {
			o.sampleSize = n
		}
	}
}

// WithEntryOverhead sets the fixed per-entry byte cost used by the memory estimate.
func WithEntryOverhead[A any](bytes int) Option[A] {
	return func(o *options) {
		if bytes >= 0 {
			o.entryOverhead = bytes
		}
	}
}

// WithFallbackSize sets the byte size assumed for artifacts that do not implement domain.Sizer.
func WithFallbackSize[A any](bytes int) Option[A] {
	return func(o *options) {
		if bytes >= 0 {
			o.fallbackSize = bytes
		}
	}
}

func applyOptions[A any](opts ...Option[A]) *options {
	o := &options{
		logger:        nopLogger{},
		sampleSize:    DefaultSampleSize,
		entryOverhead: DefaultEntryOverhead,
		fallbackSize:  DefaultFallbackSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

type nopLogger struct{}

func (nopLogger) Info(string) {}
func (nopLogger) Warn(string) {}
func (nopLogger) Error(error) {}
