// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/stratum/internal/adapters/cas"
	_ "go.trai.ch/stratum/internal/adapters/config"
	_ "go.trai.ch/stratum/internal/adapters/logger"
	_ "go.trai.ch/stratum/internal/adapters/memory"
	_ "go.trai.ch/stratum/internal/adapters/metrics"
	_ "go.trai.ch/stratum/internal/adapters/storey"
	_ "go.trai.ch/stratum/internal/adapters/telemetry"
	_ "go.trai.ch/stratum/internal/adapters/watcher"
	// Register app nodes.
	_ "go.trai.ch/stratum/internal/app"
)
