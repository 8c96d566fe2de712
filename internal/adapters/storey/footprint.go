package storey

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/stratum/internal/core/domain"
	"go.trai.ch/zerr"
)

// OpeningType is the element type of voids, which are skipped unless openings are included.
const OpeningType = "IfcOpeningElement"

// FootprintGenerator computes element footprints for one geometry configuration.
type FootprintGenerator struct {
	cfg domain.GeometryConfig
}

// NewFootprintGenerator creates a generator for cfg.
func NewFootprintGenerator(cfg domain.GeometryConfig) *FootprintGenerator {
	return &FootprintGenerator{cfg: cfg}
}

// Generate returns the footprint of el at the configured section height.
// It reports false for elements filtered out by type or not cut by the section plane,
// and fails with ErrDegenerateOutline when the outline does not enclose an area.
func (g *FootprintGenerator) Generate(ctx context.Context, el domain.Element) (domain.Footprint, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.Footprint{}, false, err
	}

	if !g.cfg.Accepts(el.Type) {
		return domain.Footprint{}, false, nil
	}
	if el.Type == OpeningType && !g.cfg.IncludeOpenings {
		return domain.Footprint{}, false, nil
	}
	if !el.CutBy(g.cfg.SectionHeight) {
		return domain.Footprint{}, false, nil
	}

	vertices := g.snap(el)
	if len(vertices) < 3 {
		return domain.Footprint{}, false, zerr.With(domain.ErrDegenerateOutline, "element", el.ID)
	}

	area := math.Abs(shoelace(vertices))
	if area <= g.cfg.Tolerance*g.cfg.Tolerance || area == 0 {
		return domain.Footprint{}, false, zerr.With(domain.ErrDegenerateOutline, "element", el.ID)
	}

	fp := domain.Footprint{
		ElementID: el.ID,
		Type:      el.Type,
		Area:      area,
		Perimeter: perimeter(vertices),
		Min:       vertices[0],
		Max:       vertices[0],
		Vertices:  vertices,
	}
	for _, v := range vertices[1:] {
		fp.Min.X, fp.Min.Y = min(fp.Min.X, v.X), min(fp.Min.Y, v.Y)
		fp.Max.X, fp.Max.Y = max(fp.Max.X, v.X), max(fp.Max.Y, v.Y)
	}

	return fp, true, nil
}

// snap moves the outline into place, rounds vertices to the tolerance grid and drops
// repeated vertices, including a closing vertex equal to the first.
func (g *FootprintGenerator) snap(el domain.Element) []domain.Point {
	out := make([]domain.Point, 0, len(el.Outline))
	for _, p := range el.Outline {
		if g.cfg.WorldCoordinates {
			p.X += el.Offset.X
			p.Y += el.Offset.Y
		}
		p = domain.Point{X: snapValue(p.X, g.cfg.Tolerance), Y: snapValue(p.Y, g.cfg.Tolerance)}
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	if len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	return out
}

func snapValue(v, tolerance float64) float64 {
	if tolerance <= 0 {
		return v
	}
	snapped := math.Round(v/tolerance) * tolerance
	if snapped == 0 {
		return 0
	}
	return snapped
}

func shoelace(vertices []domain.Point) float64 {
	var sum float64
	for i, p := range vertices {
		q := vertices[(i+1)%len(vertices)]
		sum += p.X*q.Y - q.X*p.Y
	}
	return sum / 2
}

func perimeter(vertices []domain.Point) float64 {
	var sum float64
	for i, p := range vertices {
		q := vertices[(i+1)%len(vertices)]
		sum += math.Hypot(q.X-p.X, q.Y-p.Y)
	}
	return sum
}

// ElementKey identifies an element by its content, so an edited element gets a new key.
func ElementKey(el domain.Element) string {
	data, err := json.Marshal(el)
	if err != nil {
		return el.ID
	}
	return fmt.Sprintf("%s:%016x", el.ID, xxhash.Sum64(data))
}
