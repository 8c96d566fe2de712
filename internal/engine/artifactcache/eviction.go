package artifactcache

import (
	"cmp"
	"slices"

	"go.trai.ch/stratum/internal/core/domain"
)

const bytesPerMB = 1024 * 1024

// evictLocked enforces the entry limit and then the memory budget.
// Both checks run on every call. A zero limit disables the corresponding check.
// Evicted entries leave memory only; the persistent tier keeps them until they expire.
func (c *Cache[A]) evictLocked() {
	if c.maxEntries > 0 && len(c.entries) > c.maxEntries {
		c.evictLRULocked(len(c.entries)-c.maxEntries, reasonCapacity)
	}

	if c.maxMemoryMB > 0 && c.estimateMemoryMBLocked() > c.maxMemoryMB {
		c.evictLRULocked(max(1, len(c.entries)/5), reasonMemory)
	}
}

// evictLRULocked removes the n least recently accessed entries.
func (c *Cache[A]) evictLRULocked(n int, reason string) {
	if n <= 0 || len(c.entries) == 0 {
		return
	}

	type candidate struct {
		key string
		it  *item[A]
	}

	candidates := make([]candidate, 0, len(c.entries))
	for k, it := range c.entries {
		candidates = append(candidates, candidate{key: k, it: it})
	}

	slices.SortFunc(candidates, func(a, b candidate) int {
		if byTime := a.it.entry.LastAccessedAt.Compare(b.it.entry.LastAccessedAt); byTime != 0 {
			return byTime
		}
		return cmp.Compare(a.it.seq, b.it.seq)
	})

	n = min(n, len(candidates))
	for _, cand := range candidates[:n] {
		delete(c.entries, cand.key)
	}

	c.evictions += uint64(n)
	c.metrics.recordEvictions(reason, n)
}

// estimateMemoryMBLocked extrapolates the size of the working set from a small sample.
// The result is approximate by construction: it never walks more than sampleSize entries.
func (c *Cache[A]) estimateMemoryMBLocked() float64 {
	count := len(c.entries)
	if count == 0 {
		return 0
	}

	sampled := 0
	total := 0
	for _, it := range c.entries {
		if sampled == c.sampleSize {
			break
		}
		total += c.entryOverhead + c.sizeOf(it.entry.Artifact)
		sampled++
	}

	avg := float64(total) / float64(sampled)
	return avg * float64(count) / bytesPerMB
}

func (c *Cache[A]) sizeOf(artifact A) int {
	if s, ok := any(artifact).(domain.Sizer); ok {
		return s.SizeBytes()
	}
	return c.fallbackSize
}
