package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/stratum/internal/adapters/cas"
	"go.trai.ch/stratum/internal/adapters/config"
	"go.trai.ch/stratum/internal/adapters/logger"
	"go.trai.ch/stratum/internal/adapters/memory"
	"go.trai.ch/stratum/internal/adapters/storey"
	"go.trai.ch/stratum/internal/adapters/telemetry"
	"go.trai.ch/stratum/internal/app"
	"go.trai.ch/stratum/internal/core/domain"
	"go.trai.ch/stratum/internal/core/ports"
	"go.trai.ch/stratum/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

const manifestYAML = `model: annex
storeys:
  - name: ground
    elements:
      - id: slab
        type: IfcSlab
        outline: [[0, 0], [6, 0], [6, 5], [0, 5]]
  - name: roof
    elevation: 3
    elements:
      - id: roof-slab
        type: IfcSlab
        outline: [[0, 0], [6, 0], [6, 5], [0, 5]]
      - id: bad
        type: IfcSlab
        outline: [[0, 0], [1, 1]]
`

func mockComponents(ctrl *gomock.Controller, loader ports.ConfigLoader, log ports.Logger) ComponentProvider {
	application := app.New(
		loader,
		mocks.NewMockManifestLoader(ctrl),
		log,
		mocks.NewMockTracer(ctrl),
		mocks.NewMockMemoryProbe(ctrl),
		cas.Open,
		func() (ports.Watcher, error) { return mocks.NewMockWatcher(ctrl), nil },
		prometheus.NewRegistry(),
	)
	return func(context.Context) (*app.Components, func(), error) {
		return &app.Components{App: application, Logger: log}, func() {}, nil
	}
}

// TestRun_Success verifies that the run function returns 0 when the command succeeds.
func TestRun_Success(t *testing.T) {
	ctrl := gomock.NewController(t)

	stdout := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, stdout, io.Discard,
		mockComponents(ctrl, mocks.NewMockConfigLoader(ctrl), mocks.NewMockLogger(ctrl)))

	assert.Equal(t, 0, exitCode)
	assert.Contains(t, stdout.String(), "stratum version")
}

// TestRun_InitializationError verifies that run returns 1 when component initialization fails.
func TestRun_InitializationError(t *testing.T) {
	provider := func(_ context.Context) (*app.Components, func(), error) {
		return nil, nil, errors.New("init failed")
	}

	stderr := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, io.Discard, stderr, provider)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "Error: init failed")
}

// TestRun_ExecutionError verifies that run returns 1 and logs when the command fails.
func TestRun_ExecutionError(t *testing.T) {
	ctrl := gomock.NewController(t)

	loader := mocks.NewMockConfigLoader(ctrl)
	loader.EXPECT().Load("broken.yaml").Return(domain.Config{}, errors.New("load failed"))

	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Error(gomock.Any()).Times(1)

	exitCode := run(context.Background(), []string{"run", "tower.yaml", "-c", "broken.yaml"},
		io.Discard, io.Discard, mockComponents(ctrl, loader, log))

	assert.Equal(t, 1, exitCode)
}

// TestRun_EndToEnd runs a manifest through the real adapters and checks the JSON lines.
func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "annex.yaml")
	configPath := filepath.Join(dir, "stratum.yaml")
	require.NoError(t, os.WriteFile(manifestPath, []byte(manifestYAML), 0o600))
	require.NoError(t, os.WriteFile(configPath, []byte("cache:\n  enable_disk_cache: true\n  disk_cache_dir: cache\n"), 0o600))

	log := logger.New()
	log.SetOutput(io.Discard)

	provider := func(context.Context) (*app.Components, func(), error) {
		tracer := telemetry.NewOTelTracer(log)
		application := app.New(
			config.NewLoader(log),
			storey.NewLoader(),
			log,
			tracer,
			memory.NewProbe(),
			cas.Open,
			func() (ports.Watcher, error) { return nil, errors.New("not watching") },
			prometheus.NewRegistry(),
		)
		cleanup := func() { _ = tracer.Shutdown(context.Background()) }
		return &app.Components{App: application, Logger: log, Tracer: tracer}, cleanup, nil
	}

	stdout := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"run", manifestPath, "--config", configPath}, stdout, io.Discard, provider)
	require.Equal(t, 0, exitCode)

	var lines []map[string]any
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}
	require.Len(t, lines, 3)

	assert.Equal(t, "ground", lines[0]["unit_name"])
	assert.Equal(t, true, lines[0]["success"])
	roof, ok := lines[1]["result"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 30.0, roof["total_area"], 1e-9)
	assert.InDelta(t, 1.0, roof["skipped"], 1e-9)

	assert.Equal(t, "annex", lines[2]["model"])

	entries, err := os.ReadDir(domain.UnitCachePath(filepath.Join(dir, "cache")))
	require.NoError(t, err)
	assert.Len(t, entries, 2, "unit results are persisted next to the config file")
}
