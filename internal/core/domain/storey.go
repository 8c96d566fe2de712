package domain

// Point is a 2D plan coordinate.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Element is one building element on a storey.
type Element struct {
	ID      string
	Type    string
	Outline []Point
	// Offset is applied when world coordinates are requested.
	Offset Point
	// Base and Height give the vertical extent above the storey elevation.
	// A zero Height means the element is cut by every section plane.
	Base   float64
	Height float64
}

// CutBy reports whether a horizontal section at height above the storey elevation
// passes through the element.
func (e Element) CutBy(height float64) bool {
	if e.Height <= 0 {
		return true
	}
	return height >= e.Base && height <= e.Base+e.Height
}

// Storey is one level of a building model and the unit of work for a batch.
type Storey struct {
	Name      string
	Elevation float64
	Elements  []Element
}

// UnitName implements Unit.
func (s Storey) UnitName() string { return s.Name }

// Workload implements Unit.
func (s Storey) Workload() int { return len(s.Elements) }

// Model is a parsed storey manifest.
type Model struct {
	Name    string
	Storeys []Storey
}

// Footprint is the artifact generated for a single element: its snapped plan outline.
type Footprint struct {
	ElementID string  `json:"element_id"`
	Type      string  `json:"type"`
	Area      float64 `json:"area"`
	Perimeter float64 `json:"perimeter"`
	Min       Point   `json:"min"`
	Max       Point   `json:"max"`
	Vertices  []Point `json:"vertices"`
}

// footprintOverhead approximates the fixed struct and string headers of a Footprint.
const footprintOverhead = 128

// SizeBytes implements Sizer.
func (f Footprint) SizeBytes() int {
	return footprintOverhead + len(f.ElementID) + len(f.Type) + len(f.Vertices)*16
}
