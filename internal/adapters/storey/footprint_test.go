package storey_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/stratum/internal/adapters/storey"
	"go.trai.ch/stratum/internal/core/domain"
)

func rect(x0, y0, x1, y1 float64) []domain.Point {
	return []domain.Point{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
}

func assertPoint(t *testing.T, want, got domain.Point) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-9)
	assert.InDelta(t, want.Y, got.Y, 1e-9)
}

func geometry() domain.GeometryConfig {
	return domain.GeometryConfig{SectionHeight: 1, Tolerance: 0.001}
}

func TestFootprint_Rectangle(t *testing.T) {
	gen := storey.NewFootprintGenerator(geometry())

	fp, ok, err := gen.Generate(t.Context(), domain.Element{ID: "S-1", Type: "IfcSlab", Outline: rect(0, 0, 10, 8)})
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, "S-1", fp.ElementID)
	assert.Equal(t, "IfcSlab", fp.Type)
	assert.InDelta(t, 80.0, fp.Area, 1e-9)
	assert.InDelta(t, 36.0, fp.Perimeter, 1e-9)
	assertPoint(t, domain.Point{X: 0, Y: 0}, fp.Min)
	assertPoint(t, domain.Point{X: 10, Y: 8}, fp.Max)
	assert.Len(t, fp.Vertices, 4)
}

func TestFootprint_ClockwiseAndClosed(t *testing.T) {
	gen := storey.NewFootprintGenerator(geometry())
	outline := []domain.Point{{X: 0, Y: 0}, {X: 0, Y: 2}, {X: 3, Y: 2}, {X: 3, Y: 0}, {X: 0, Y: 0}}

	fp, ok, err := gen.Generate(t.Context(), domain.Element{ID: "W", Type: "IfcWall", Outline: outline})
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 6.0, fp.Area, 1e-9, "area is orientation independent")
	assert.Len(t, fp.Vertices, 4, "closing vertex is dropped")
}

func TestFootprint_SnapsToTolerance(t *testing.T) {
	cfg := geometry()
	cfg.Tolerance = 0.5
	gen := storey.NewFootprintGenerator(cfg)

	fp, ok, err := gen.Generate(t.Context(), domain.Element{ID: "C", Type: "IfcColumn", Outline: []domain.Point{
		{X: 0.1, Y: -0.1}, {X: 1.9, Y: 0.2}, {X: 2.1, Y: 1.1}, {X: 0.2, Y: 0.9},
	}})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []domain.Point{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 1}, {X: 0, Y: 1}}, fp.Vertices)
	assert.InDelta(t, 2.0, fp.Area, 1e-9)
}

func TestFootprint_WorldCoordinates(t *testing.T) {
	el := domain.Element{ID: "C", Type: "IfcColumn", Outline: rect(0, 0, 1, 1), Offset: domain.Point{X: 5, Y: 4}}

	local, _, err := storey.NewFootprintGenerator(geometry()).Generate(t.Context(), el)
	require.NoError(t, err)
	assertPoint(t, domain.Point{X: 0, Y: 0}, local.Min)

	cfg := geometry()
	cfg.WorldCoordinates = true
	world, _, err := storey.NewFootprintGenerator(cfg).Generate(t.Context(), el)
	require.NoError(t, err)
	assertPoint(t, domain.Point{X: 5, Y: 4}, world.Min)
	assertPoint(t, domain.Point{X: 6, Y: 5}, world.Max)
}

func TestFootprint_Skipped(t *testing.T) {
	tests := []struct {
		name string
		cfg  func(*domain.GeometryConfig)
		el   domain.Element
	}{
		{
			name: "excluded type",
			cfg:  func(c *domain.GeometryConfig) { c.ExcludeTypes = []string{"IfcFurniture"} },
			el:   domain.Element{ID: "F", Type: "IfcFurniture", Outline: rect(0, 0, 1, 1)},
		},
		{
			name: "not in include list",
			cfg:  func(c *domain.GeometryConfig) { c.IncludeTypes = []string{"IfcWall"} },
			el:   domain.Element{ID: "S", Type: "IfcSlab", Outline: rect(0, 0, 1, 1)},
		},
		{
			name: "opening without openings",
			cfg:  func(*domain.GeometryConfig) {},
			el:   domain.Element{ID: "O", Type: storey.OpeningType, Outline: rect(0, 0, 1, 1)},
		},
		{
			name: "above the section plane",
			cfg:  func(*domain.GeometryConfig) {},
			el:   domain.Element{ID: "B", Type: "IfcBeam", Outline: rect(0, 0, 1, 1), Base: 2.5, Height: 0.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := geometry()
			tt.cfg(&cfg)

			_, ok, err := storey.NewFootprintGenerator(cfg).Generate(t.Context(), tt.el)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestFootprint_OpeningsIncluded(t *testing.T) {
	cfg := geometry()
	cfg.IncludeOpenings = true

	_, ok, err := storey.NewFootprintGenerator(cfg).Generate(t.Context(),
		domain.Element{ID: "O", Type: storey.OpeningType, Outline: rect(0, 0, 1, 1)})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFootprint_Degenerate(t *testing.T) {
	tests := []struct {
		name    string
		outline []domain.Point
	}{
		{name: "empty", outline: nil},
		{name: "two vertices", outline: []domain.Point{{X: 0, Y: 0}, {X: 1, Y: 0}}},
		{name: "collinear", outline: []domain.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}}},
		{name: "collapses on snapping", outline: rect(0, 0, 0.0001, 0.0001)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok, err := storey.NewFootprintGenerator(geometry()).Generate(t.Context(),
				domain.Element{ID: "X", Type: "IfcWall", Outline: tt.outline})
			require.ErrorContains(t, err, domain.ErrDegenerateOutline.Error())
			assert.False(t, ok)
		})
	}
}

func TestFootprint_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, _, err := storey.NewFootprintGenerator(geometry()).Generate(ctx, domain.Element{ID: "S", Outline: rect(0, 0, 1, 1)})
	require.ErrorIs(t, err, context.Canceled)
}

func TestElementKey(t *testing.T) {
	el := domain.Element{ID: "W-1", Type: "IfcWall", Outline: rect(0, 0, 1, 1)}
	moved := el
	moved.Outline = rect(0, 0, 2, 1)

	assert.Equal(t, storey.ElementKey(el), storey.ElementKey(el))
	assert.NotEqual(t, storey.ElementKey(el), storey.ElementKey(moved))
	assert.Regexp(t, `^W-1:[0-9a-f]{16}$`, storey.ElementKey(el))
}
