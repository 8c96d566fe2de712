package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.trai.ch/stratum/internal/core/domain"
	"go.trai.ch/stratum/internal/engine/artifactcache"
	"go.trai.ch/stratum/internal/engine/orchestrator"
	"go.trai.ch/stratum/internal/engine/workerpool"
	"go.trai.ch/zerr"
)

// Cache names used for metric labels and store directories.
const (
	unitCacheName    = "units"
	elementCacheName = "elements"
)

// session holds the caches and orchestrator shared by every batch of one Run.
type session struct {
	cfg          domain.Config
	units        *artifactcache.Cache[domain.Payload]
	elements     *artifactcache.Cache[domain.Footprint]
	orchestrator *orchestrator.Orchestrator
}

func (s *session) geometry() domain.GeometryConfig {
	return s.cfg.Geometry
}

// reconfigure applies a reloaded geometry. Caches drop artifacts built under the old one.
func (s *session) reconfigure(geometry domain.GeometryConfig) {
	s.cfg.Geometry = geometry
	s.elements.UpdateConfiguration(geometry)
	if s.units != nil {
		s.units.UpdateConfiguration(geometry)
	}
}

// newSession builds the caches and orchestrator for cfg, registering their metrics with reg.
// With noCache set, unit results are never cached and element artifacts live in memory only.
func (a *App) newSession(cfg domain.Config, noCache bool, reg prometheus.Registerer) (*session, error) {
	unitMetrics, err := artifactcache.NewMetrics(reg, unitCacheName)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to register unit cache metrics")
	}
	elementMetrics, err := artifactcache.NewMetrics(reg, elementCacheName)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to register element cache metrics")
	}
	poolMetrics, err := workerpool.NewMetrics(reg)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to register worker pool metrics")
	}
	orchestratorMetrics, err := orchestrator.NewMetrics(reg)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to register orchestrator metrics")
	}

	persist := cfg.Cache.EnableDiskCache && !noCache
	fingerprint := cfg.Geometry.Fingerprint()

	elementOpts := []artifactcache.Option[domain.Footprint]{
		artifactcache.WithLogger[domain.Footprint](a.logger),
		artifactcache.WithMetrics[domain.Footprint](elementMetrics),
		artifactcache.WithFingerprint[domain.Footprint](fingerprint),
	}
	if persist {
		store, err := a.openStore(domain.ElementCachePath(cfg.Cache.DiskCacheDir))
		if err != nil {
			return nil, zerr.Wrap(err, "failed to open element cache")
		}
		elementOpts = append(elementOpts, artifactcache.WithStore[domain.Footprint](store))
	}

	s := &session{
		cfg:      cfg,
		elements: artifactcache.New(cfg.Cache, elementOpts...),
	}

	opts := []orchestrator.Option{
		orchestrator.WithCleanupInterval(cfg.Cache.CleanupIntervalOps),
		orchestrator.WithMemoryProbe(a.memory),
		orchestrator.WithLogger(a.logger),
		orchestrator.WithTracer(a.tracer),
		orchestrator.WithMetrics(orchestratorMetrics),
		orchestrator.WithPoolFactory(func(workers int) (*workerpool.Pool[domain.UnitResult], error) {
			return workerpool.New[domain.UnitResult](workers, workerpool.WithMetrics(poolMetrics))
		}),
	}

	if !noCache {
		unitOpts := []artifactcache.Option[domain.Payload]{
			artifactcache.WithLogger[domain.Payload](a.logger),
			artifactcache.WithMetrics[domain.Payload](unitMetrics),
			artifactcache.WithFingerprint[domain.Payload](fingerprint),
		}
		if persist {
			store, err := a.openStore(domain.UnitCachePath(cfg.Cache.DiskCacheDir))
			if err != nil {
				return nil, zerr.Wrap(err, "failed to open unit cache")
			}
			unitOpts = append(unitOpts, artifactcache.WithStore[domain.Payload](store))
		}
		s.units = artifactcache.New(cfg.Cache, unitOpts...)
		opts = append(opts, orchestrator.WithCache(s.units))
	}

	s.orchestrator = orchestrator.New(cfg.Parallel, opts...)
	return s, nil
}
