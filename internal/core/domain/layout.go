package domain

import "path/filepath"

const (
	// StratumDirName is the name of the internal workspace directory.
	StratumDirName = ".stratum"

	// CacheDirName is the name of the persistent artifact cache directory.
	CacheDirName = "cache"

	// ElementCacheDirName holds per-element artifacts.
	ElementCacheDirName = "elements"

	// UnitCacheDirName holds per-unit results.
	UnitCacheDirName = "units"

	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "stratum.yaml"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// DefaultDiskCachePath returns the default root of the persistent cache.
// It joins .stratum and cache.
func DefaultDiskCachePath() string {
	return filepath.Join(StratumDirName, CacheDirName)
}

// ElementCachePath returns the persistent tier directory for element artifacts under root.
func ElementCachePath(root string) string {
	return filepath.Join(root, ElementCacheDirName)
}

// UnitCachePath returns the persistent tier directory for unit results under root.
func UnitCachePath(root string) string {
	return filepath.Join(root, UnitCacheDirName)
}
