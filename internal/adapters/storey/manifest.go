// Package storey is the building-model host: it loads storey manifests, generates element
// footprints and turns a storey into a summary payload.
package storey

import (
	"fmt"
	"os"
	"strings"

	"go.trai.ch/stratum/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Loader implements ports.ManifestLoader for YAML manifests.
type Loader struct{}

// NewLoader creates a manifest Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and validates the manifest at path.
func (l *Loader) Load(path string) (*domain.Model, error) {
	// #nosec G304 -- the manifest path is supplied by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrManifestReadFailed.Error()), "path", path)
	}

	var dto ManifestDTO
	if err := yaml.Unmarshal(data, &dto); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrManifestParseFailed.Error()), "path", path)
	}

	model, err := toModel(&dto)
	if err != nil {
		return nil, zerr.With(err, "path", path)
	}
	return model, nil
}

func toModel(dto *ManifestDTO) (*domain.Model, error) {
	if len(dto.Storeys) == 0 {
		return nil, domain.ErrNoUnits
	}

	model := &domain.Model{
		Name:    strings.TrimSpace(dto.Model),
		Storeys: make([]domain.Storey, 0, len(dto.Storeys)),
	}

	seen := make(map[string]struct{}, len(dto.Storeys))
	for i, s := range dto.Storeys {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			name = fmt.Sprintf("storey-%d", i)
		}
		if _, dup := seen[name]; dup {
			return nil, zerr.With(zerr.Wrap(fmt.Errorf("duplicate storey %q", name), domain.ErrManifestParseFailed.Error()), "storey", name)
		}
		seen[name] = struct{}{}

		storey := domain.Storey{
			Name:      name,
			Elevation: s.Elevation,
			Elements:  make([]domain.Element, 0, len(s.Elements)),
		}
		for j, e := range s.Elements {
			el := domain.Element{
				ID:      strings.TrimSpace(e.ID),
				Type:    strings.TrimSpace(e.Type),
				Outline: make([]domain.Point, len(e.Outline)),
				Base:    e.Base,
				Height:  e.Height,
			}
			if el.ID == "" {
				el.ID = fmt.Sprintf("%s-%d", name, j)
			}
			for k, v := range e.Outline {
				el.Outline[k] = domain.Point{X: v[0], Y: v[1]}
			}
			if e.Offset != nil {
				el.Offset = domain.Point{X: e.Offset[0], Y: e.Offset[1]}
			}
			storey.Elements = append(storey.Elements, el)
		}
		model.Storeys = append(model.Storeys, storey)
	}

	return model, nil
}
