package ports

import "go.trai.ch/stratum/internal/core/domain"

// ManifestLoader reads a building model manifest.
//
//go:generate mockgen -source=manifest_loader.go -destination=mocks/mock_manifest_loader.go -package=mocks
type ManifestLoader interface {
	// Load reads and parses the manifest at path.
	Load(path string) (*domain.Model, error)
}
