package storey

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/stratum/internal/core/domain"
	"go.trai.ch/stratum/internal/core/ports"
	"go.trai.ch/stratum/internal/engine/artifactcache"
	"go.trai.ch/zerr"
)

// Processor turns storeys of one model into summary payloads.
type Processor struct {
	storeys  map[string]domain.Storey
	geometry domain.GeometryConfig
	resolver *artifactcache.Resolver[domain.Element, domain.Footprint]
}

// NewProcessor creates a Processor for model. Footprints are resolved through cache.
func NewProcessor(
	model *domain.Model,
	geometry domain.GeometryConfig,
	cache *artifactcache.Cache[domain.Footprint],
	logger ports.Logger,
) *Processor {
	storeys := make(map[string]domain.Storey, len(model.Storeys))
	for _, s := range model.Storeys {
		storeys[s.Name] = s
	}

	generator := NewFootprintGenerator(geometry)
	return &Processor{
		storeys:  storeys,
		geometry: geometry,
		resolver: artifactcache.NewResolver(cache, ElementKey, generator.Generate, logger),
	}
}

// Units returns the storeys of the model as batch units, in manifest order.
func Units(model *domain.Model) []domain.Unit {
	units := make([]domain.Unit, len(model.Storeys))
	for i, s := range model.Storeys {
		units[i] = s
	}
	return units
}

// TaskData builds the payload identifying a storey. The digest covers every element,
// so any manifest edit to the storey changes the unit's cache key.
func TaskData(unit domain.Unit, _ int) (domain.Payload, error) {
	s, ok := unit.(domain.Storey)
	if !ok {
		return nil, zerr.With(domain.ErrTaskDataFailed, "unit_type", fmt.Sprintf("%T", unit))
	}

	data, err := json.Marshal(s.Elements)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrTaskDataFailed.Error())
	}

	return domain.Payload{
		"storey":    s.Name,
		"elevation": s.Elevation,
		"elements":  len(s.Elements),
		"digest":    fmt.Sprintf("%016x", xxhash.Sum64(data)),
	}, nil
}

// Process resolves the footprints of the storey named by task and summarizes them.
func (p *Processor) Process(ctx context.Context, task domain.Task) (domain.Payload, error) {
	s, ok := p.storeys[task.UnitName]
	if !ok {
		return nil, zerr.With(domain.ErrUnitProcessingFailed, "unit", task.UnitName)
	}

	footprints, report, err := p.resolver.Resolve(ctx, s.Elements)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrUnitProcessingFailed.Error()), "unit", s.Name)
	}

	return summarize(s, p.geometry, footprints, report), nil
}

func summarize(
	s domain.Storey,
	geometry domain.GeometryConfig,
	footprints []domain.Footprint,
	report artifactcache.ResolveReport,
) domain.Payload {
	var total, perimeter float64
	byType := make(map[string]float64)
	for _, fp := range footprints {
		total += fp.Area
		perimeter += fp.Perimeter
		byType[fp.Type] += fp.Area
	}

	areaByType := make(map[string]any, len(byType))
	for _, t := range slices.Sorted(maps.Keys(byType)) {
		areaByType[t] = round(byType[t])
	}

	payload := domain.Payload{
		"storey":            s.Name,
		"section_elevation": s.Elevation + geometry.SectionHeight,
		"elements":          report.Requested,
		"footprints":        len(footprints),
		"generated":         report.Generated,
		"reused":            report.Cached,
		"skipped":           report.Skipped,
		"total_area":        round(total),
		"total_perimeter":   round(perimeter),
		"area_by_type":      areaByType,
	}

	if len(footprints) > 0 {
		lo, hi := footprints[0].Min, footprints[0].Max
		for _, fp := range footprints[1:] {
			lo.X, lo.Y = min(lo.X, fp.Min.X), min(lo.Y, fp.Min.Y)
			hi.X, hi.Y = max(hi.X, fp.Max.X), max(hi.Y, fp.Max.Y)
		}
		payload["bounds"] = map[string]any{
			"min_x": lo.X, "min_y": lo.Y,
			"max_x": hi.X, "max_y": hi.Y,
		}
	}

	return payload
}

// round keeps six decimals, enough for millimetre areas without float noise in the output.
func round(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
