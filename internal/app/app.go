// Package app implements the application layer for stratum.
package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.trai.ch/stratum/internal/adapters/metrics" //nolint:depguard // Wired in app layer
	"go.trai.ch/stratum/internal/adapters/storey"  //nolint:depguard // Wired in app layer
	"go.trai.ch/stratum/internal/adapters/watcher" //nolint:depguard // Wired in app layer
	"go.trai.ch/stratum/internal/core/domain"
	"go.trai.ch/stratum/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	manifests    ports.ManifestLoader
	logger       ports.Logger
	tracer       ports.Tracer
	memory       ports.MemoryProbe
	openStore    ports.ArtifactStoreOpener
	newWatcher   ports.WatcherFactory
	registry     prometheus.Gatherer

	stdout          io.Writer
	debounceWindow  time.Duration
	janitorInterval time.Duration
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	manifests ports.ManifestLoader,
	log ports.Logger,
	tracer ports.Tracer,
	memory ports.MemoryProbe,
	openStore ports.ArtifactStoreOpener,
	newWatcher ports.WatcherFactory,
	registry prometheus.Gatherer,
) *App {
	return &App{
		configLoader:    loader,
		manifests:       manifests,
		logger:          log,
		tracer:          tracer,
		memory:          memory,
		openStore:       openStore,
		newWatcher:      newWatcher,
		registry:        registry,
		stdout:          os.Stdout,
		debounceWindow:  watcher.DefaultDebounceWindow,
		janitorInterval: defaultJanitorInterval,
	}
}

// WithOutput redirects unit results and summaries to w.
func (a *App) WithOutput(w io.Writer) *App {
	a.stdout = w
	return a
}

// WithDebounceWindow sets the quiet period before a watched change triggers a rerun.
func (a *App) WithDebounceWindow(d time.Duration) *App {
	a.debounceWindow = d
	return a
}

// RunOptions configuration for the Run method.
type RunOptions struct {
	ConfigPath  string
	JSON        bool
	MetricsAddr string
	Watch       bool
	NoCache     bool
	Trace       bool
}

// Summary is the last line written for every processed batch.
type Summary struct {
	Model        string                   `json:"model"`
	Report       domain.BatchReport       `json:"report"`
	UnitCache    *domain.CacheStats       `json:"unit_cache,omitempty"`
	ElementCache domain.CacheStats        `json:"element_cache"`
	Efficiency   domain.EfficiencyMetrics `json:"element_efficiency"`
}

// Run processes every storey in the manifest at manifestPath and writes one JSON line
// per unit result followed by a Summary line.
func (a *App) Run(ctx context.Context, manifestPath string, opts RunOptions) error {
	// 1. Load the configuration
	cfg, err := a.configLoader.Load(opts.ConfigPath)
	if err != nil {
		return zerr.Wrap(err, "failed to load configuration")
	}
	a.configure(cfg, opts)

	// 2. Build caches and the orchestrator for this run
	reg := prometheus.NewRegistry()
	s, err := a.newSession(cfg, opts.NoCache, reg)
	if err != nil {
		return err
	}

	// 3. Serve metrics alongside the batch
	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(runCtx)

	if opts.MetricsAddr != "" {
		srv := metrics.NewServer(opts.MetricsAddr, prometheus.Gatherers{a.registry, reg}, a.logger)
		g.Go(func() error {
			return srv.ListenAndServe(gctx)
		})
	}

	g.Go(func() error {
		defer stop()
		if opts.Watch {
			return a.watch(gctx, manifestPath, opts.ConfigPath, s)
		}
		return a.runOnce(gctx, manifestPath, s)
	})

	return g.Wait()
}

// levelSetter, jsonSetter and spanLogger are implemented by the adapters that
// support runtime reconfiguration.
type (
	levelSetter interface{ SetLevel(level slog.Level) }
	jsonSetter  interface{ SetJSON(enable bool) }
	spanLogger  interface{ LogSpans(enable bool) }
)

func (a *App) configure(cfg domain.Config, opts RunOptions) {
	if l, ok := a.logger.(levelSetter); ok {
		l.SetLevel(cfg.Logging.Level)
	}
	if l, ok := a.logger.(jsonSetter); ok {
		l.SetJSON(opts.JSON || cfg.Logging.JSON)
	}
	if t, ok := a.tracer.(spanLogger); ok {
		t.LogSpans(opts.Trace)
	}
}

func (a *App) runOnce(ctx context.Context, manifestPath string, s *session) error {
	model, err := a.manifests.Load(manifestPath)
	if err != nil {
		return zerr.Wrap(err, "failed to load manifest")
	}

	proc := storey.NewProcessor(model, s.geometry(), s.elements, a.logger)
	results, report := s.orchestrator.ProcessBatch(ctx, storey.Units(model), proc.Process, storey.TaskData)

	enc := json.NewEncoder(a.stdout)
	for _, res := range results {
		if err := enc.Encode(res); err != nil {
			return zerr.Wrap(err, "failed to write unit result")
		}
	}

	summary := Summary{
		Model:        model.Name,
		Report:       report,
		ElementCache: s.elements.Stats(),
		Efficiency:   s.elements.EfficiencyMetrics(),
	}
	if s.units != nil {
		stats := s.units.Stats()
		summary.UnitCache = &stats
	}
	if err := enc.Encode(summary); err != nil {
		return zerr.Wrap(err, "failed to write summary")
	}

	if report.Failed > 0 {
		return zerr.With(domain.ErrBatchFailed, "failed", report.Failed)
	}
	return nil
}
