package domain

import "go.trai.ch/zerr"

var (
	// ErrPoolNotRunning is returned when work is submitted to a pool that has not been started.
	ErrPoolNotRunning = zerr.New("worker pool is not running")

	// ErrPoolAlreadyRunning is returned when Start is called on a pool that is already running.
	ErrPoolAlreadyRunning = zerr.New("worker pool is already running")

	// ErrPoolShutdown is returned for tasks abandoned or refused because the pool stopped before they started.
	ErrPoolShutdown = zerr.New("worker pool shut down before the task started")

	// ErrPoolShutdownTimeout is returned when workers do not finish within the shutdown timeout.
	ErrPoolShutdownTimeout = zerr.New("timeout waiting for workers to stop")

	// ErrPoolConstructionFailed is returned when a parallel backend cannot be created.
	ErrPoolConstructionFailed = zerr.New("failed to construct worker pool")

	// ErrTaskPanicked is returned when a task function panics.
	ErrTaskPanicked = zerr.New("task panicked")

	// ErrTaskDataFailed is returned when the task data generator fails for a unit.
	ErrTaskDataFailed = zerr.New("failed to build task data")

	// ErrUnitProcessingFailed is returned when a unit could not be processed.
	ErrUnitProcessingFailed = zerr.New("unit processing failed")

	// ErrGenerationFailed is returned when an artifact cannot be generated for an element.
	ErrGenerationFailed = zerr.New("artifact generation failed")

	// ErrCacheCreateFailed is returned when the persistent cache directory cannot be created.
	ErrCacheCreateFailed = zerr.New("failed to create artifact cache directory")

	// ErrCacheReadFailed is returned when a persisted cache entry cannot be read.
	ErrCacheReadFailed = zerr.New("failed to read cache entry")

	// ErrCacheUnmarshalFailed is returned when a persisted cache entry cannot be decoded.
	ErrCacheUnmarshalFailed = zerr.New("failed to unmarshal cache entry")

	// ErrCacheMarshalFailed is returned when a cache entry cannot be encoded.
	ErrCacheMarshalFailed = zerr.New("failed to marshal cache entry")

	// ErrCacheWriteFailed is returned when a cache entry cannot be written.
	ErrCacheWriteFailed = zerr.New("failed to write cache entry")

	// ErrCacheDeleteFailed is returned when a persisted cache entry cannot be removed.
	ErrCacheDeleteFailed = zerr.New("failed to delete cache entry")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrInvalidConfig is returned when a configuration value is out of range.
	ErrInvalidConfig = zerr.New("invalid configuration")

	// ErrInvalidBackend is returned when the parallel backend is not one of the known values.
	ErrInvalidBackend = zerr.New("invalid parallel backend, expected 'pool' or 'group'")

	// ErrManifestReadFailed is returned when a storey manifest cannot be read.
	ErrManifestReadFailed = zerr.New("failed to read manifest")

	// ErrManifestParseFailed is returned when a storey manifest cannot be parsed.
	ErrManifestParseFailed = zerr.New("failed to parse manifest")

	// ErrNoUnits is returned when a manifest contains no storeys.
	ErrNoUnits = zerr.New("manifest contains no storeys")

	// ErrDegenerateOutline is returned when an element outline does not enclose an area.
	ErrDegenerateOutline = zerr.New("outline does not enclose an area")

	// ErrBatchFailed is returned when at least one unit in a batch failed.
	ErrBatchFailed = zerr.New("batch finished with failed units")

	// ErrMemoryProbeFailed is returned when system memory statistics cannot be read.
	ErrMemoryProbeFailed = zerr.New("failed to read system memory")

	// ErrMetricsServerFailed is returned when the metrics endpoint cannot be served.
	ErrMetricsServerFailed = zerr.New("metrics server failed")

	// ErrWatcherFailed is returned when the file watcher cannot be started.
	ErrWatcherFailed = zerr.New("failed to start file watcher")
)
