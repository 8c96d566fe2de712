// Package artifactcache implements a two-tier artifact cache with TTL expiry,
// LRU and memory-budget eviction, and invalidation driven by a configuration fingerprint.
package artifactcache

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"time"

	"go.trai.ch/stratum/internal/core/domain"
	"go.trai.ch/stratum/internal/core/ports"
	"go.trai.ch/zerr"
)

// Fingerprinter is a configuration subset that affects artifact identity.
type Fingerprinter interface {
	Fingerprint() string
}

// Pair is a key and artifact used for bulk preloading.
type Pair[A any] struct {
	Key      string
	Artifact A
}

type item[A any] struct {
	entry domain.CacheEntry[A]
	// seq orders entries whose access timestamps are equal.
	seq uint64
}

// Cache is a concurrency-safe key to artifact store.
//
// Every operation runs under one mutex guarding the memory map and the invalidated-key set.
// The persistent tier is written inside that critical section; loads on a memory miss
// happen outside it and re-acquire the lock to promote the entry.
type Cache[A any] struct {
	mu sync.Mutex

	entries     map[string]*item[A]
	invalidated map[string]struct{}
	fingerprint string
	seq         uint64

	maxEntries  int
	maxMemoryMB float64
	ttl         time.Duration

	store         ports.ArtifactStore
	logger        ports.Logger
	metrics       *Metrics
	sampleSize    int
	entryOverhead int
	fallbackSize  int

	totalRequests uint64
	hits          uint64
	misses        uint64
	invalidations uint64
	evictions     uint64
}

// New creates a cache bounded by cfg. The persistent tier is used only when a store is
// supplied with WithStore.
func New[A any](cfg domain.CacheConfig, opts ...Option[A]) *Cache[A] {
	o := applyOptions(opts...)

	return &Cache[A]{
		entries:       make(map[string]*item[A]),
		invalidated:   make(map[string]struct{}),
		fingerprint:   o.fingerprint,
		maxEntries:    cfg.MaxEntries,
		maxMemoryMB:   cfg.MaxMemoryMB,
		ttl:           cfg.TTL(),
		store:         o.store,
		logger:        o.logger,
		metrics:       o.metrics,
		sampleSize:    o.sampleSize,
		entryOverhead: o.entryOverhead,
		fallbackSize:  o.fallbackSize,
	}
}

// UpdateConfiguration recomputes the fingerprint from subset. When it differs from the
// current one every entry in both tiers is dropped and the invalidation counter increments.
// An unconfigured cache that holds nothing in memory adopts its first fingerprint
// without counting a change.
func (c *Cache[A]) UpdateConfiguration(subset Fingerprinter) {
	fingerprint := subset.Fingerprint()

	c.mu.Lock()
	defer c.mu.Unlock()

	if fingerprint == c.fingerprint {
		return
	}

	if c.fingerprint == "" && len(c.entries) == 0 {
		c.fingerprint = fingerprint
		return
	}

	c.fingerprint = fingerprint
	c.entries = make(map[string]*item[A])
	c.invalidations++
	c.metrics.recordInvalidation()
	c.metrics.updateSize(0)

	if c.store != nil {
		if err := c.store.Clear(); err != nil {
			c.tierFailed("clear after fingerprint change", err)
		}
	}
}

// Fingerprint returns the fingerprint entries are currently validated against.
func (c *Cache[A]) Fingerprint() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fingerprint
}

// Get returns the artifact stored under key.
// Invalidated, missing, expired and stale entries are misses.
func (c *Cache[A]) Get(key string) (A, bool) {
	var zero A

	c.mu.Lock()
	c.totalRequests++

	if _, ok := c.invalidated[key]; ok {
		c.missLocked()
		c.mu.Unlock()
		return zero, false
	}

	if it, ok := c.entries[key]; ok {
		artifact, hit := c.touchLocked(key, it, time.Now())
		if !hit {
			c.missLocked()
		}
		c.mu.Unlock()
		return artifact, hit
	}

	store := c.store
	if store == nil {
		c.missLocked()
		c.mu.Unlock()
		return zero, false
	}
	c.mu.Unlock()

	stored, loadErr := store.Get(key)

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.promoteLocked(key, stored, loadErr)
}

// touchLocked validates an in-memory entry and records the hit.
// Stale and expired entries are removed.
func (c *Cache[A]) touchLocked(key string, it *item[A], now time.Time) (A, bool) {
	var zero A

	if it.entry.ConfigFingerprint != c.fingerprint {
		delete(c.entries, key)
		c.invalidated[key] = struct{}{}
		c.deleteFromStoreLocked(key)
		c.metrics.updateSize(len(c.entries))
		return zero, false
	}

	if it.entry.Expired(now, c.ttl) {
		delete(c.entries, key)
		c.deleteFromStoreLocked(key)
		c.metrics.recordEvictions(reasonExpired, 1)
		c.metrics.updateSize(len(c.entries))
		return zero, false
	}

	it.entry.AccessCount++
	it.entry.LastAccessedAt = now
	it.seq = c.nextSeqLocked()
	c.hits++
	c.metrics.recordHit()

	return it.entry.Artifact, true
}

// promoteLocked validates an entry loaded from the persistent tier and moves it into memory.
func (c *Cache[A]) promoteLocked(key string, stored *domain.StoredEntry, loadErr error) (A, bool) {
	var zero A

	if loadErr != nil {
		c.tierFailed("load "+key, loadErr)
		if isCorrupt(loadErr) {
			c.deleteFromStoreLocked(key)
		}
		c.missLocked()
		return zero, false
	}

	// Another goroutine may have stored or invalidated the key while the lock was released.
	if _, ok := c.invalidated[key]; ok {
		c.missLocked()
		return zero, false
	}
	now := time.Now()
	if it, ok := c.entries[key]; ok {
		artifact, hit := c.touchLocked(key, it, now)
		if !hit {
			c.missLocked()
		}
		return artifact, hit
	}

	if stored == nil {
		c.missLocked()
		return zero, false
	}

	entry, err := decodeEntry[A](stored)
	if err != nil {
		c.tierFailed("decode "+key, err)
		c.deleteFromStoreLocked(key)
		c.missLocked()
		return zero, false
	}

	if entry.ConfigFingerprint != c.fingerprint {
		c.invalidated[key] = struct{}{}
		c.deleteFromStoreLocked(key)
		c.missLocked()
		return zero, false
	}

	if entry.Expired(now, c.ttl) {
		c.deleteFromStoreLocked(key)
		c.missLocked()
		return zero, false
	}

	entry.AccessCount++
	entry.LastAccessedAt = now
	c.entries[key] = &item[A]{entry: entry, seq: c.nextSeqLocked()}
	c.hits++
	c.metrics.recordHit()

	c.evictLocked()
	c.metrics.updateSize(len(c.entries))

	return entry.Artifact, true
}

// Put stores artifact under key, clearing any invalidation of the key.
// Nil artifacts are ignored.
func (c *Cache[A]) Put(key string, artifact A) {
	if isNil(artifact) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.insertLocked(key, artifact, time.Now())
	c.evictLocked()
	c.metrics.updateSize(len(c.entries))
}

// Preload bulk-inserts pairs for a warm start and returns how many were stored.
// Keys currently marked invalidated are skipped. Eviction runs once at the end.
func (c *Cache[A]) Preload(pairs []Pair[A]) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	stored := 0
	for _, p := range pairs {
		if isNil(p.Artifact) {
			continue
		}
		if _, ok := c.invalidated[p.Key]; ok {
			continue
		}
		c.insertLocked(p.Key, p.Artifact, now)
		stored++
	}

	c.evictLocked()
	c.metrics.updateSize(len(c.entries))

	return stored
}

func (c *Cache[A]) insertLocked(key string, artifact A, now time.Time) {
	delete(c.invalidated, key)

	entry := domain.CacheEntry[A]{
		Artifact:          artifact,
		CreatedAt:         now,
		LastAccessedAt:    now,
		ConfigFingerprint: c.fingerprint,
	}
	c.entries[key] = &item[A]{entry: entry, seq: c.nextSeqLocked()}

	if c.store == nil {
		return
	}

	stored, err := encodeEntry(key, entry)
	if err != nil {
		c.tierFailed("encode "+key, err)
		return
	}
	if err := c.store.Put(stored); err != nil {
		c.tierFailed("write "+key, err)
	}
}

// Invalidate removes key from both tiers and marks it invalidated until the next Put.
func (c *Cache[A]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	c.invalidated[key] = struct{}{}
	c.deleteFromStoreLocked(key)
	c.invalidations++
	c.metrics.recordInvalidation()
	c.metrics.updateSize(len(c.entries))
}

// CleanupExpired removes entries older than the TTL and returns how many were removed.
func (c *Cache[A]) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, it := range c.entries {
		if it.entry.Expired(now, c.ttl) {
			delete(c.entries, key)
			c.deleteFromStoreLocked(key)
			removed++
		}
	}

	c.metrics.recordEvictions(reasonExpired, removed)
	c.metrics.updateSize(len(c.entries))

	return removed
}

// Clear drops every entry in both tiers and the invalidated-key set.
// Cumulative counters are kept.
func (c *Cache[A]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*item[A])
	c.invalidated = make(map[string]struct{})
	c.metrics.updateSize(0)

	if c.store != nil {
		if err := c.store.Clear(); err != nil {
			c.tierFailed("clear", err)
		}
	}
}

// Len returns the number of entries held in memory.
func (c *Cache[A]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Keys returns the keys held in memory, sorted.
func (c *Cache[A]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Stats returns the current accounting.
func (c *Cache[A]) Stats() domain.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statsLocked()
}

func (c *Cache[A]) statsLocked() domain.CacheStats {
	return domain.CacheStats{
		TotalRequests:     c.totalRequests,
		Hits:              c.hits,
		Misses:            c.misses,
		CachedItems:       len(c.entries),
		EstimatedMemoryMB: c.estimateMemoryMBLocked(),
		Invalidations:     c.invalidations,
		Evictions:         c.evictions,
	}
}

// EfficiencyMetrics derives usage ratios from the current accounting.
func (c *Cache[A]) EfficiencyMetrics() domain.EfficiencyMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.statsLocked()
	m := domain.EfficiencyMetrics{HitRatePercent: stats.HitRate()}

	if stats.EstimatedMemoryMB > 0 {
		m.MemoryEfficiency = float64(stats.CachedItems) / stats.EstimatedMemoryMB
	}
	if c.maxEntries > 0 {
		m.CacheUtilization = float64(stats.CachedItems) / float64(c.maxEntries)
	}
	if stats.TotalRequests > 0 {
		m.EvictionRate = float64(stats.Invalidations) / float64(stats.TotalRequests)
	}
	if stats.CachedItems > 0 {
		var accesses uint64
		for _, it := range c.entries {
			accesses += it.entry.AccessCount
		}
		m.AvgAccessCount = float64(accesses) / float64(stats.CachedItems)
	}

	return m
}

func (c *Cache[A]) missLocked() {
	c.misses++
	c.metrics.recordMiss()
}

func (c *Cache[A]) nextSeqLocked() uint64 {
	c.seq++
	return c.seq
}

func (c *Cache[A]) deleteFromStoreLocked(key string) {
	if c.store == nil {
		return
	}
	if err := c.store.Delete(key); err != nil {
		c.tierFailed("delete "+key, err)
	}
}

// tierFailed logs a persistent tier failure. The caller degrades to a miss or no-op.
func (c *Cache[A]) tierFailed(op string, err error) {
	c.metrics.recordTierError()
	c.logger.Warn(fmt.Sprintf("artifact cache: persistent tier %s: %v", op, err))
}

// isCorrupt reports whether err marks a stored record that could not be parsed.
func isCorrupt(err error) bool {
	for ; err != nil; err = errors.Unwrap(err) {
		if z, ok := err.(*zerr.Error); ok && z.Message() == domain.ErrCacheUnmarshalFailed.Error() {
			return true
		}
	}
	return false
}

func isNil[A any](v A) bool {
	rv := reflect.ValueOf(any(v))
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
