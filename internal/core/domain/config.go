package domain

import (
	"log/slog"
	"time"

	"go.trai.ch/zerr"
)

// Backend selects how the parallel path executes units.
type Backend string

const (
	// BackendPool runs units on a WorkerPool with named workers and per-task statistics.
	BackendPool Backend = "pool"
	// BackendGroup runs units on a bounded errgroup without per-worker bookkeeping.
	BackendGroup Backend = "group"
)

// Default configuration values.
const (
	DefaultMaxMemoryMB            = 512
	DefaultMaxEntries             = 10000
	DefaultTTLHours               = 24
	DefaultCleanupIntervalOps     = 100
	DefaultMemoryThresholdPercent = 80
	DefaultMinElementsPerUnit     = 10
	DefaultMemoryCheckInterval    = 5
	DefaultSectionHeight          = 1.0
	DefaultTolerance              = 0.001
)

// Config is the complete runtime configuration.
type Config struct {
	Cache    CacheConfig
	Parallel ParallelConfig
	Geometry GeometryConfig
	Logging  LoggingConfig
}

// CacheConfig controls the artifact cache.
type CacheConfig struct {
	MaxMemoryMB        float64
	MaxEntries         int
	TTLHours           float64
	EnableDiskCache    bool
	DiskCacheDir       string
	CleanupIntervalOps int
}

// TTL returns the entry lifetime as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours * float64(time.Hour))
}

// ParallelConfig controls strategy selection and the parallel backends.
type ParallelConfig struct {
	MultiprocessingEnabled bool
	// MaxWorkers of zero means derive the worker count from the CPU count.
	MaxWorkers             int
	Backend                Backend
	MemoryThresholdPercent float64
	MinElementsPerUnit     float64
	// MemoryCheckInterval is the number of sequential units between memory checks.
	MemoryCheckInterval int
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level slog.Level
	JSON  bool
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		Cache: CacheConfig{
			MaxMemoryMB:        DefaultMaxMemoryMB,
			MaxEntries:         DefaultMaxEntries,
			TTLHours:           DefaultTTLHours,
			EnableDiskCache:    false,
			DiskCacheDir:       DefaultDiskCachePath(),
			CleanupIntervalOps: DefaultCleanupIntervalOps,
		},
		Parallel: ParallelConfig{
			MultiprocessingEnabled: true,
			Backend:                BackendPool,
			MemoryThresholdPercent: DefaultMemoryThresholdPercent,
			MinElementsPerUnit:     DefaultMinElementsPerUnit,
			MemoryCheckInterval:    DefaultMemoryCheckInterval,
		},
		Geometry: GeometryConfig{
			SectionHeight: DefaultSectionHeight,
			Tolerance:     DefaultTolerance,
		},
		Logging: LoggingConfig{
			Level: slog.LevelInfo,
		},
	}
}

// Validate rejects values the cache and orchestrator cannot work with.
func (c Config) Validate() error {
	switch {
	case c.Cache.MaxMemoryMB < 0:
		return zerr.With(ErrInvalidConfig, "max_memory_mb", c.Cache.MaxMemoryMB)
	case c.Cache.MaxEntries < 0:
		return zerr.With(ErrInvalidConfig, "max_entries", c.Cache.MaxEntries)
	case c.Cache.TTLHours < 0:
		return zerr.With(ErrInvalidConfig, "ttl_hours", c.Cache.TTLHours)
	case c.Cache.CleanupIntervalOps < 0:
		return zerr.With(ErrInvalidConfig, "cleanup_interval_ops", c.Cache.CleanupIntervalOps)
	case c.Cache.EnableDiskCache && c.Cache.DiskCacheDir == "":
		return zerr.With(ErrInvalidConfig, "disk_cache_dir", "must be set when the disk cache is enabled")
	case c.Parallel.MaxWorkers < 0:
		return zerr.With(ErrInvalidConfig, "max_workers", c.Parallel.MaxWorkers)
	case c.Parallel.MemoryThresholdPercent < 0 || c.Parallel.MemoryThresholdPercent > 100:
		return zerr.With(ErrInvalidConfig, "memory_threshold_percent", c.Parallel.MemoryThresholdPercent)
	case c.Parallel.MemoryCheckInterval < 0:
		return zerr.With(ErrInvalidConfig, "memory_check_interval", c.Parallel.MemoryCheckInterval)
	case c.Geometry.Tolerance < 0:
		return zerr.With(ErrInvalidConfig, "tolerance", c.Geometry.Tolerance)
	}

	switch c.Parallel.Backend {
	case BackendPool, BackendGroup:
	default:
		return zerr.With(ErrInvalidBackend, "backend", string(c.Parallel.Backend))
	}

	return nil
}
