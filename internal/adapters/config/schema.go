package config

// File represents the structure of the stratum.yaml configuration file.
// Every field is optional; absent fields keep their default.
type File struct {
	Cache    *CacheDTO    `yaml:"cache"`
	Parallel *ParallelDTO `yaml:"parallel"`
	Geometry *GeometryDTO `yaml:"geometry"`
	Logging  *LoggingDTO  `yaml:"logging"`
}

// CacheDTO represents the cache section.
type CacheDTO struct {
	MaxMemoryMB        *float64 `yaml:"max_memory_mb"`
	MaxEntries         *int     `yaml:"max_entries"`
	TTLHours           *float64 `yaml:"ttl_hours"`
	EnableDiskCache    *bool    `yaml:"enable_disk_cache"`
	DiskCacheDir       *string  `yaml:"disk_cache_dir"`
	CleanupIntervalOps *int     `yaml:"cleanup_interval_ops"`
}

// ParallelDTO represents the parallel section.
type ParallelDTO struct {
	MultiprocessingEnabled *bool    `yaml:"multiprocessing_enabled"`
	MaxWorkers             *int     `yaml:"max_workers"`
	Backend                *string  `yaml:"backend"`
	MemoryThresholdPercent *float64 `yaml:"memory_threshold_percent"`
	MinElementsPerUnit     *float64 `yaml:"min_elements_per_unit"`
	MemoryCheckInterval    *int     `yaml:"memory_check_interval"`
}

// GeometryDTO represents the geometry section, the fingerprinted subset of the configuration.
type GeometryDTO struct {
	SectionHeight    *float64 `yaml:"section_height"`
	Tolerance        *float64 `yaml:"tolerance"`
	IncludeOpenings  *bool    `yaml:"include_openings"`
	WorldCoordinates *bool    `yaml:"world_coordinates"`
	IncludeTypes     []string `yaml:"include_types"`
	ExcludeTypes     []string `yaml:"exclude_types"`
}

// LoggingDTO represents the logging section.
type LoggingDTO struct {
	Level *string `yaml:"level"`
	JSON  *bool   `yaml:"json"`
}
