package app

import (
	"context"

	"github.com/grindlemire/graft"
	"github.com/prometheus/client_golang/prometheus"
	"go.trai.ch/stratum/internal/adapters/cas"       //nolint:depguard // Wired in app layer
	"go.trai.ch/stratum/internal/adapters/config"    //nolint:depguard // Wired in app layer
	"go.trai.ch/stratum/internal/adapters/logger"    //nolint:depguard // Wired in app layer
	"go.trai.ch/stratum/internal/adapters/memory"    //nolint:depguard // Wired in app layer
	"go.trai.ch/stratum/internal/adapters/metrics"   //nolint:depguard // Wired in app layer
	"go.trai.ch/stratum/internal/adapters/storey"    //nolint:depguard // Wired in app layer
	"go.trai.ch/stratum/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/stratum/internal/adapters/watcher"   //nolint:depguard // Wired in app layer
	"go.trai.ch/stratum/internal/core/ports"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

// Components bundles what the entry point needs from the dependency graph.
type Components struct {
	App    *App
	Logger ports.Logger
	Tracer ports.Tracer
}

func init() {
	// App Node
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			storey.LoaderNodeID,
			logger.NodeID,
			telemetry.TracerNodeID,
			memory.NodeID,
			cas.NodeID,
			watcher.NodeID,
			metrics.RegistryNodeID,
		},
		Run: runAppNode,
	})

	// Components Node
	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
			telemetry.TracerNodeID,
		},
		Run: runComponentsNode,
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}

	manifests, err := graft.Dep[ports.ManifestLoader](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	tracer, err := graft.Dep[ports.Tracer](ctx)
	if err != nil {
		return nil, err
	}

	probe, err := graft.Dep[ports.MemoryProbe](ctx)
	if err != nil {
		return nil, err
	}

	openStore, err := graft.Dep[ports.ArtifactStoreOpener](ctx)
	if err != nil {
		return nil, err
	}

	newWatcher, err := graft.Dep[ports.WatcherFactory](ctx)
	if err != nil {
		return nil, err
	}

	registry, err := graft.Dep[*prometheus.Registry](ctx)
	if err != nil {
		return nil, err
	}

	return New(loader, manifests, log, tracer, probe, openStore, newWatcher, registry), nil
}

func runComponentsNode(ctx context.Context) (*Components, error) {
	app, err := graft.Dep[*App](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	tracer, err := graft.Dep[ports.Tracer](ctx)
	if err != nil {
		return nil, err
	}

	return &Components{
		App:    app,
		Logger: log,
		Tracer: tracer,
	}, nil
}
