package domain

import (
	"encoding/json"
	"time"
)

// CacheEntry is a cached artifact together with its access bookkeeping.
type CacheEntry[A any] struct {
	Artifact          A
	CreatedAt         time.Time
	LastAccessedAt    time.Time
	AccessCount       uint64
	ConfigFingerprint string
}

// Expired reports whether the entry is older than ttl at now.
// A non-positive ttl never expires.
func (e *CacheEntry[A]) Expired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(e.CreatedAt) > ttl
}

// StoredEntry is the self-describing form of a CacheEntry written to the persistent tier.
// It carries everything needed to validate TTL and fingerprint without external metadata.
type StoredEntry struct {
	Key               string          `json:"key"`
	Artifact          json.RawMessage `json:"artifact"`
	CreatedAt         time.Time       `json:"created_at"`
	LastAccessedAt    time.Time       `json:"last_accessed_at"`
	AccessCount       uint64          `json:"access_count"`
	ConfigFingerprint string          `json:"config_fingerprint"`
}

// StoreStats describes the contents of a persistent tier directory.
type StoreStats struct {
	Entries int
	Bytes   int64
}

// Sizer is implemented by artifacts that can report their approximate in-memory size.
type Sizer interface {
	SizeBytes() int
}

// CacheStats is a point-in-time view of cache accounting.
type CacheStats struct {
	TotalRequests     uint64  `json:"total_requests"`
	Hits              uint64  `json:"hits"`
	Misses            uint64  `json:"misses"`
	CachedItems       int     `json:"cached_items"`
	EstimatedMemoryMB float64 `json:"estimated_memory_mb"`
	Invalidations     uint64  `json:"invalidations"`
	Evictions         uint64  `json:"evictions"`
}

// HitRate returns hits as a percentage of all requests, or 0 when there were none.
func (s CacheStats) HitRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.TotalRequests) * 100
}

// EfficiencyMetrics are derived ratios describing how well the cache is used.
type EfficiencyMetrics struct {
	HitRatePercent   float64 `json:"hit_rate_percent"`
	MemoryEfficiency float64 `json:"memory_efficiency"`
	CacheUtilization float64 `json:"cache_utilization"`
	EvictionRate     float64 `json:"eviction_rate"`
	AvgAccessCount   float64 `json:"avg_access_count"`
}
