package artifactcache

import (
	"encoding/json"

	"go.trai.ch/stratum/internal/core/domain"
	"go.trai.ch/zerr"
)

func encodeEntry[A any](key string, entry domain.CacheEntry[A]) (domain.StoredEntry, error) {
	raw, err := json.Marshal(entry.Artifact)
	if err != nil {
		return domain.StoredEntry{}, zerr.With(zerr.Wrap(err, domain.ErrCacheMarshalFailed.Error()), "key", key)
	}

	return domain.StoredEntry{
		Key:               key,
		Artifact:          raw,
		CreatedAt:         entry.CreatedAt,
		LastAccessedAt:    entry.LastAccessedAt,
		AccessCount:       entry.AccessCount,
		ConfigFingerprint: entry.ConfigFingerprint,
	}, nil
}

func decodeEntry[A any](stored *domain.StoredEntry) (domain.CacheEntry[A], error) {
	var artifact A
	if err := json.Unmarshal(stored.Artifact, &artifact); err != nil {
		return domain.CacheEntry[A]{}, zerr.With(zerr.Wrap(err, domain.ErrCacheUnmarshalFailed.Error()), "key", stored.Key)
	}

	return domain.CacheEntry[A]{
		Artifact:          artifact,
		CreatedAt:         stored.CreatedAt,
		LastAccessedAt:    stored.LastAccessedAt,
		AccessCount:       stored.AccessCount,
		ConfigFingerprint: stored.ConfigFingerprint,
	}, nil
}
