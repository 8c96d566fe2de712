package app

import (
	"context"
	"errors"
	"fmt"

	"go.trai.ch/stratum/internal/core/domain"
	"go.trai.ch/stratum/internal/core/ports"
	"go.trai.ch/zerr"
)

// StoreReport describes one persistent tier directory.
type StoreReport struct {
	Name  string
	Dir   string
	Stats domain.StoreStats
}

// CacheStats reports the contents of the persistent tiers configured at configPath.
func (a *App) CacheStats(_ context.Context, configPath string) ([]StoreReport, error) {
	stores, err := a.openStores(configPath)
	if err != nil {
		return nil, err
	}

	reports := make([]StoreReport, 0, len(stores))
	for _, st := range stores {
		stats, err := st.store.Stats()
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to read cache statistics"), "dir", st.dir)
		}
		reports = append(reports, StoreReport{Name: st.name, Dir: st.dir, Stats: stats})
	}
	return reports, nil
}

// CacheClear removes every persisted entry from the tiers configured at configPath.
func (a *App) CacheClear(_ context.Context, configPath string) error {
	stores, err := a.openStores(configPath)
	if err != nil {
		return err
	}

	var errs error
	for _, st := range stores {
		if err := st.store.Clear(); err != nil {
			errs = errors.Join(errs, zerr.With(zerr.Wrap(err, "failed to clear cache"), "dir", st.dir))
			continue
		}
		a.logger.Info(fmt.Sprintf("cleared %s cache at %s", st.name, st.dir))
	}
	return errs
}

type namedStore struct {
	name  string
	dir   string
	store ports.ArtifactStore
}

func (a *App) openStores(configPath string) ([]namedStore, error) {
	cfg, err := a.configLoader.Load(configPath)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}

	dirs := []struct{ name, dir string }{
		{unitCacheName, domain.UnitCachePath(cfg.Cache.DiskCacheDir)},
		{elementCacheName, domain.ElementCachePath(cfg.Cache.DiskCacheDir)},
	}

	stores := make([]namedStore, 0, len(dirs))
	for _, d := range dirs {
		store, err := a.openStore(d.dir)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to open cache"), "dir", d.dir)
		}
		stores = append(stores, namedStore{name: d.name, dir: d.dir, store: store})
	}
	return stores, nil
}
