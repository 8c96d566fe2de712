package app

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.trai.ch/stratum/internal/adapters/watcher" //nolint:depguard // Wired in app layer
	"go.trai.ch/zerr"
)

// defaultJanitorInterval is how often expired entries are swept while watching.
const defaultJanitorInterval = 10 * time.Minute

// watch runs the batch once and again after every debounced change to the manifest
// or the configuration file, until ctx is done.
func (a *App) watch(ctx context.Context, manifestPath, configPath string, s *session) error {
	w, err := a.newWatcher()
	if err != nil {
		return zerr.Wrap(err, "failed to create file watcher")
	}
	defer func() {
		_ = w.Stop()
	}()

	paths := []string{manifestPath}
	if configPath != "" {
		paths = append(paths, configPath)
	}
	if err := w.Start(ctx, paths...); err != nil {
		return err
	}
	configAbs := absPath(configPath)

	s.elements.StartJanitor(ctx, a.janitorInterval)
	if s.units != nil {
		s.units.StartJanitor(ctx, a.janitorInterval)
	}

	changes := make(chan []string, 1)
	debouncer := watcher.NewDebouncer(a.debounceWindow, func(paths []string) {
		select {
		case changes <- paths:
		case <-ctx.Done():
		}
	})
	go func() {
		for event := range w.Events() {
			debouncer.Add(event.Path)
		}
	}()

	a.logger.Info(fmt.Sprintf("watching %s", strings.Join(paths, ", ")))
	if err := a.runOnce(ctx, manifestPath, s); err != nil {
		a.logger.Error(err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case changed := <-changes:
			if configAbs != "" && slices.Contains(changed, configAbs) {
				a.reload(configPath, s)
			}
			a.logger.Info(fmt.Sprintf("change detected in %s, rerunning", strings.Join(changed, ", ")))
			if err := a.runOnce(ctx, manifestPath, s); err != nil {
				a.logger.Error(err)
			}
		}
	}
}

// reload re-reads the configuration and applies its geometry section.
// Cache sizing and parallel settings keep their startup values.
func (a *App) reload(configPath string, s *session) {
	cfg, err := a.configLoader.Load(configPath)
	if err != nil {
		a.logger.Error(zerr.Wrap(err, "configuration reload failed, keeping the previous configuration"))
		return
	}
	if cfg.Geometry.Fingerprint() == s.geometry().Fingerprint() {
		return
	}
	s.reconfigure(cfg.Geometry)
	a.logger.Info("geometry configuration changed, cached artifacts invalidated")
}

func absPath(path string) string {
	if path == "" {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}
