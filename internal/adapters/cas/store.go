// Package cas implements the persistent tier of the artifact cache as one JSON file per key.
package cas

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/stratum/internal/core/domain"
	"go.trai.ch/stratum/internal/core/ports"
	"go.trai.ch/zerr"
)

const entryExt = ".json"

// Store implements ports.ArtifactStore using a file-per-key strategy under a single directory.
// File names are the SHA-256 of the key, so concurrent writers of different keys never share a path.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir. The directory is created on first write.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, zerr.With(domain.ErrCacheCreateFailed, "dir", dir)
	}
	return &Store{dir: dir}, nil
}

// Open is a ports.ArtifactStoreOpener backed by NewStore.
func Open(dir string) (ports.ArtifactStore, error) {
	return NewStore(dir)
}

// Dir returns the directory holding the entries.
func (s *Store) Dir() string {
	return s.dir
}

// Get retrieves the entry stored under key.
func (s *Store) Get(key string) (*domain.StoredEntry, error) {
	filename := s.filename(key)
	//nolint:gosec // Path is constructed from trusted directory and hashed filename
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrCacheReadFailed.Error()), "key", key)
	}

	var entry domain.StoredEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrCacheUnmarshalFailed.Error()), "key", key)
	}

	return &entry, nil
}

// Put stores the entry, replacing any previous record atomically.
func (s *Store) Put(entry domain.StoredEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrCacheMarshalFailed.Error()), "key", entry.Key)
	}

	if err := os.MkdirAll(s.dir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrCacheCreateFailed.Error()), "dir", s.dir)
	}

	if err := writeFileAtomic(s.filename(entry.Key), data); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrCacheWriteFailed.Error()), "key", entry.Key)
	}

	return nil
}

// Delete removes the entry stored under key.
func (s *Store) Delete(key string) error {
	if err := os.Remove(s.filename(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return zerr.With(zerr.Wrap(err, domain.ErrCacheDeleteFailed.Error()), "key", key)
	}
	return nil
}

// Clear removes every entry. Files that are not cache entries are left alone.
func (s *Store) Clear() error {
	entries, err := s.list()
	if err != nil {
		return err
	}

	var errs error
	for _, e := range entries {
		path := filepath.Join(s.dir, e.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = errors.Join(errs, zerr.With(zerr.Wrap(err, domain.ErrCacheDeleteFailed.Error()), "path", path))
		}
	}
	return errs
}

// Stats reports the number and total size of stored entries.
func (s *Store) Stats() (domain.StoreStats, error) {
	entries, err := s.list()
	if err != nil {
		return domain.StoreStats{}, err
	}

	var stats domain.StoreStats
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		stats.Entries++
		stats.Bytes += info.Size()
	}
	return stats, nil
}

func (s *Store) list() ([]fs.DirEntry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrCacheReadFailed.Error()), "dir", s.dir)
	}

	out := dirEntries[:0]
	for _, e := range dirEntries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), entryExt) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) filename(key string) string {
	hash := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(hash[:])+entryExt)
}

// writeFileAtomic writes data to a temporary file in the target directory and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(domain.FilePerm); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
