package domain_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/stratum/internal/core/domain"
)

func TestGeometryConfig_Fingerprint(t *testing.T) {
	base := domain.GeometryConfig{
		SectionHeight: 1.0,
		Tolerance:     0.001,
		IncludeTypes:  []string{"wall", "slab"},
	}

	tests := []struct {
		name     string
		modify   func(g domain.GeometryConfig) domain.GeometryConfig
		wantSame bool
	}{
		{
			name:     "identical config",
			modify:   func(g domain.GeometryConfig) domain.GeometryConfig { return g },
			wantSame: true,
		},
		{
			name: "include order does not matter",
			modify: func(g domain.GeometryConfig) domain.GeometryConfig {
				g.IncludeTypes = []string{"slab", "wall"}
				return g
			},
			wantSame: true,
		},
		{
			name: "section height changes",
			modify: func(g domain.GeometryConfig) domain.GeometryConfig {
				g.SectionHeight = 1.2
				return g
			},
			wantSame: false,
		},
		{
			name: "tolerance changes",
			modify: func(g domain.GeometryConfig) domain.GeometryConfig {
				g.Tolerance = 0.01
				return g
			},
			wantSame: false,
		},
		{
			name: "openings flag changes",
			modify: func(g domain.GeometryConfig) domain.GeometryConfig {
				g.IncludeOpenings = true
				return g
			},
			wantSame: false,
		},
		{
			name: "world coordinates flag changes",
			modify: func(g domain.GeometryConfig) domain.GeometryConfig {
				g.WorldCoordinates = true
				return g
			},
			wantSame: false,
		},
		{
			name: "type moves from include to exclude",
			modify: func(g domain.GeometryConfig) domain.GeometryConfig {
				g.IncludeTypes = []string{"slab"}
				g.ExcludeTypes = []string{"wall"}
				return g
			},
			wantSame: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.modify(base).Fingerprint()
			if tt.wantSame {
				assert.Equal(t, base.Fingerprint(), got)
			} else {
				assert.NotEqual(t, base.Fingerprint(), got)
			}
		})
	}
}

func TestGeometryConfig_Accepts(t *testing.T) {
	g := domain.GeometryConfig{IncludeTypes: []string{"wall", "slab"}, ExcludeTypes: []string{"slab"}}

	assert.True(t, g.Accepts("wall"))
	assert.False(t, g.Accepts("slab"))
	assert.False(t, g.Accepts("door"))
	assert.True(t, domain.GeometryConfig{}.Accepts("door"))
}

func TestCacheStats_HitRate(t *testing.T) {
	assert.InDelta(t, 0.0, domain.CacheStats{}.HitRate(), 1e-9)

	stats := domain.CacheStats{TotalRequests: 4, Hits: 3, Misses: 1}
	assert.InDelta(t, 75.0, stats.HitRate(), 1e-9)
}

func TestCacheEntry_Expired(t *testing.T) {
	created := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	entry := domain.CacheEntry[int]{CreatedAt: created}

	assert.False(t, entry.Expired(created.Add(time.Hour), time.Hour))
	assert.True(t, entry.Expired(created.Add(time.Hour+time.Nanosecond), time.Hour))
	assert.False(t, entry.Expired(created.Add(1000*time.Hour), 0))
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*domain.Config)
		wantErr error
	}{
		{name: "defaults", modify: func(*domain.Config) {}},
		{
			name:    "negative entries",
			modify:  func(c *domain.Config) { c.Cache.MaxEntries = -1 },
			wantErr: domain.ErrInvalidConfig,
		},
		{
			name:    "threshold above 100",
			modify:  func(c *domain.Config) { c.Parallel.MemoryThresholdPercent = 120 },
			wantErr: domain.ErrInvalidConfig,
		},
		{
			name: "disk cache without dir",
			modify: func(c *domain.Config) {
				c.Cache.EnableDiskCache = true
				c.Cache.DiskCacheDir = ""
			},
			wantErr: domain.ErrInvalidConfig,
		},
		{
			name:    "unknown backend",
			modify:  func(c *domain.Config) { c.Parallel.Backend = "process" },
			wantErr: domain.ErrInvalidBackend,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := domain.DefaultConfig()
			tt.modify(&cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr.Error())
		})
	}
}

func TestCacheConfig_TTL(t *testing.T) {
	assert.Equal(t, 90*time.Minute, domain.CacheConfig{TTLHours: 1.5}.TTL())
}

func TestStorey_Unit(t *testing.T) {
	s := domain.Storey{Name: "L01", Elements: make([]domain.Element, 3)}

	var u domain.Unit = s
	assert.Equal(t, "L01", u.UnitName())
	assert.Equal(t, 3, u.Workload())
}

func TestElement_CutBy(t *testing.T) {
	tests := []struct {
		name   string
		el     domain.Element
		height float64
		want   bool
	}{
		{name: "unbounded", el: domain.Element{}, height: 12, want: true},
		{name: "inside", el: domain.Element{Height: 3}, height: 1, want: true},
		{name: "top edge", el: domain.Element{Height: 3}, height: 3, want: true},
		{name: "above", el: domain.Element{Height: 0.5}, height: 1, want: false},
		{name: "below raised base", el: domain.Element{Base: 2, Height: 1}, height: 1, want: false},
		{name: "within raised base", el: domain.Element{Base: 0.8, Height: 1}, height: 1, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.el.CutBy(tt.height))
		})
	}
}

func TestLayoutPaths(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{
			name:     "DefaultDiskCachePath",
			got:      domain.DefaultDiskCachePath(),
			expected: filepath.Join(".stratum", "cache"),
		},
		{
			name:     "ElementCachePath",
			got:      domain.ElementCachePath("root"),
			expected: filepath.Join("root", "elements"),
		},
		{
			name:     "UnitCachePath",
			got:      domain.UnitCachePath("root"),
			expected: filepath.Join("root", "units"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
}
