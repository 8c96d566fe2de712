package ports

import "go.trai.ch/stratum/internal/core/domain"

// ArtifactStore is the persistent tier of the artifact cache.
// Implementations keep one self-describing record per key.
//
//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type ArtifactStore interface {
	// Get retrieves the entry stored under key.
	// Returns nil, nil if not found.
	Get(key string) (*domain.StoredEntry, error)

	// Put stores the entry under entry.Key, replacing any previous record.
	Put(entry domain.StoredEntry) error

	// Delete removes the entry stored under key. Missing keys are not an error.
	Delete(key string) error

	// Clear removes every entry.
	Clear() error

	// Stats reports the number and total size of stored entries.
	Stats() (domain.StoreStats, error)
}

// ArtifactStoreOpener opens an ArtifactStore rooted at dir.
type ArtifactStoreOpener func(dir string) (ArtifactStore, error)
