// Package config provides the configuration loader for stratum.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/stratum/internal/core/domain"
	"go.trai.ch/stratum/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Loader implements ports.ConfigLoader using a YAML file and STRATUM_* environment overrides.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load reads the configuration at path on top of the defaults, then applies environment
// overrides and validates the result. An empty path or a missing file yields the defaults.
func (l *Loader) Load(path string) (domain.Config, error) {
	cfg := domain.DefaultConfig()

	if path != "" {
		var file File
		err := readAndUnmarshalYAML(path, &file)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return domain.Config{}, zerr.With(err, "path", path)
		default:
			if err := applyFile(&cfg, &file, filepath.Dir(path)); err != nil {
				return domain.Config{}, zerr.With(err, "path", path)
			}
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return domain.Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return domain.Config{}, err
	}

	for _, t := range cfg.Geometry.IncludeTypes {
		if slices.Contains(cfg.Geometry.ExcludeTypes, t) {
			l.Logger.Warn(fmt.Sprintf("element type %q is both included and excluded; it will be excluded", t))
		}
	}

	return cfg, nil
}

func applyFile(cfg *domain.Config, file *File, baseDir string) error {
	if c := file.Cache; c != nil {
		set(&cfg.Cache.MaxMemoryMB, c.MaxMemoryMB)
		set(&cfg.Cache.MaxEntries, c.MaxEntries)
		set(&cfg.Cache.TTLHours, c.TTLHours)
		set(&cfg.Cache.EnableDiskCache, c.EnableDiskCache)
		set(&cfg.Cache.CleanupIntervalOps, c.CleanupIntervalOps)
		if c.DiskCacheDir != nil {
			cfg.Cache.DiskCacheDir = resolveDir(baseDir, *c.DiskCacheDir)
		}
	}

	if p := file.Parallel; p != nil {
		set(&cfg.Parallel.MultiprocessingEnabled, p.MultiprocessingEnabled)
		set(&cfg.Parallel.MaxWorkers, p.MaxWorkers)
		set(&cfg.Parallel.MemoryThresholdPercent, p.MemoryThresholdPercent)
		set(&cfg.Parallel.MinElementsPerUnit, p.MinElementsPerUnit)
		set(&cfg.Parallel.MemoryCheckInterval, p.MemoryCheckInterval)
		if p.Backend != nil {
			cfg.Parallel.Backend = domain.Backend(strings.ToLower(*p.Backend))
		}
	}

	if g := file.Geometry; g != nil {
		set(&cfg.Geometry.SectionHeight, g.SectionHeight)
		set(&cfg.Geometry.Tolerance, g.Tolerance)
		set(&cfg.Geometry.IncludeOpenings, g.IncludeOpenings)
		set(&cfg.Geometry.WorldCoordinates, g.WorldCoordinates)
		if g.IncludeTypes != nil {
			cfg.Geometry.IncludeTypes = g.IncludeTypes
		}
		if g.ExcludeTypes != nil {
			cfg.Geometry.ExcludeTypes = g.ExcludeTypes
		}
	}

	if lg := file.Logging; lg != nil {
		set(&cfg.Logging.JSON, lg.JSON)
		if lg.Level != nil {
			level, err := parseLogLevel(*lg.Level)
			if err != nil {
				return err
			}
			cfg.Logging.Level = level
		}
	}

	return nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// resolveDir makes a relative directory relative to the directory of the config file.
func resolveDir(baseDir, dir string) string {
	if dir == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(baseDir, dir)
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, zerr.With(domain.ErrInvalidConfig, "log_level", s)
	}
}

func readAndUnmarshalYAML[T any](configPath string, target *T) error {
	// #nosec G304 -- configPath is supplied by the operator
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return zerr.Wrap(err, domain.ErrConfigReadFailed.Error())
	}

	if parseErr := yaml.Unmarshal(configFile, target); parseErr != nil {
		return zerr.Wrap(parseErr, domain.ErrConfigParseFailed.Error())
	}

	return nil
}
