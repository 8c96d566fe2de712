package artifactcache_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/stratum/internal/core/domain"
	"go.trai.ch/stratum/internal/engine/artifactcache"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := artifactcache.NewMetrics(reg, "units")
	require.NoError(t, err)

	c := artifactcache.New(
		domain.CacheConfig{MaxEntries: 2},
		artifactcache.WithMetrics[int](m),
		artifactcache.WithFingerprint[int]("f1"),
	)

	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)
	_, _ = c.Get("c")
	_, _ = c.Get("a")
	c.Invalidate("b")

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 6, count)

	expected := map[string]float64{
		"stratum_cache_hits_total":          1,
		"stratum_cache_misses_total":        1,
		"stratum_cache_invalidations_total": 1,
		"stratum_cache_entries":             1,
	}
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		want, ok := expected[mf.GetName()]
		if !ok {
			continue
		}
		require.Len(t, mf.GetMetric(), 1, mf.GetName())
		metric := mf.GetMetric()[0]
		got := metric.GetCounter().GetValue() + metric.GetGauge().GetValue()
		assert.InDelta(t, want, got, 1e-9, mf.GetName())
	}
}

func TestNewMetrics_DuplicateName(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := artifactcache.NewMetrics(reg, "units")
	require.NoError(t, err)

	_, err = artifactcache.NewMetrics(reg, "units")
	assert.Error(t, err)
}
