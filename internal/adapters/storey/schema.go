package storey

// ManifestDTO represents the structure of a storey manifest file.
type ManifestDTO struct {
	Model   string      `yaml:"model"`
	Storeys []StoreyDTO `yaml:"storeys"`
}

// StoreyDTO represents one storey of the manifest.
type StoreyDTO struct {
	Name      string       `yaml:"name"`
	Elevation float64      `yaml:"elevation"`
	Elements  []ElementDTO `yaml:"elements"`
}

// ElementDTO represents one element. Outline vertices and the offset are [x, y] pairs.
type ElementDTO struct {
	ID      string       `yaml:"id"`
	Type    string       `yaml:"type"`
	Outline [][2]float64 `yaml:"outline"`
	Offset  *[2]float64  `yaml:"offset"`
	Base    float64      `yaml:"base"`
	Height  float64      `yaml:"height"`
}
