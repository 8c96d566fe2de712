package config

import (
	"strconv"
	"strings"

	"go.trai.ch/stratum/internal/core/domain"
	"go.trai.ch/zerr"
)

const (
	envMaxMemoryMB     = "STRATUM_MAX_MEMORY_MB"
	envMaxEntries      = "STRATUM_MAX_ENTRIES"
	envTTLHours        = "STRATUM_TTL_HOURS"
	envDiskCache       = "STRATUM_DISK_CACHE"
	envDiskCacheDir    = "STRATUM_DISK_CACHE_DIR"
	envParallel        = "STRATUM_PARALLEL"
	envMaxWorkers      = "STRATUM_MAX_WORKERS"
	envBackend         = "STRATUM_BACKEND"
	envMemoryThreshold = "STRATUM_MEMORY_THRESHOLD_PERCENT"
	envLogLevel        = "STRATUM_LOG_LEVEL"
	envLogJSON         = "STRATUM_LOG_JSON"
)

type lookupFunc func(key string) (string, bool)

// applyEnv overrides cfg with every STRATUM_* variable that is set and non-empty.
func applyEnv(cfg *domain.Config, lookup lookupFunc) error {
	env := envReader{lookup: lookup}

	env.float(envMaxMemoryMB, &cfg.Cache.MaxMemoryMB)
	env.int(envMaxEntries, &cfg.Cache.MaxEntries)
	env.float(envTTLHours, &cfg.Cache.TTLHours)
	env.bool(envDiskCache, &cfg.Cache.EnableDiskCache)
	env.string(envDiskCacheDir, &cfg.Cache.DiskCacheDir)
	env.bool(envParallel, &cfg.Parallel.MultiprocessingEnabled)
	env.int(envMaxWorkers, &cfg.Parallel.MaxWorkers)
	env.float(envMemoryThreshold, &cfg.Parallel.MemoryThresholdPercent)
	env.bool(envLogJSON, &cfg.Logging.JSON)

	var backend string
	if env.string(envBackend, &backend) {
		cfg.Parallel.Backend = domain.Backend(strings.ToLower(backend))
	}

	var level string
	if env.string(envLogLevel, &level) && env.err == nil {
		parsed, err := parseLogLevel(level)
		if err != nil {
			return zerr.With(err, "env", envLogLevel)
		}
		cfg.Logging.Level = parsed
	}

	return env.err
}

// envReader parses variables into typed fields and keeps the first parse failure.
type envReader struct {
	lookup lookupFunc
	err    error
}

func (r *envReader) value(key string) (string, bool) {
	v, ok := r.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (r *envReader) fail(key, value string, err error) {
	if r.err == nil {
		r.err = zerr.With(zerr.With(zerr.Wrap(err, domain.ErrInvalidConfig.Error()), "env", key), "value", value)
	}
}

func (r *envReader) string(key string, dst *string) bool {
	v, ok := r.value(key)
	if ok {
		*dst = v
	}
	return ok
}

func (r *envReader) int(key string, dst *int) {
	v, ok := r.value(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, v, err)
		return
	}
	*dst = n
}

func (r *envReader) float(key string, dst *float64) {
	v, ok := r.value(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(key, v, err)
		return
	}
	*dst = f
}

func (r *envReader) bool(key string, dst *bool) {
	v, ok := r.value(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, v, err)
		return
	}
	*dst = b
}
