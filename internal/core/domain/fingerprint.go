package domain

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"

	"github.com/cespare/xxhash/v2"
)

// GeometryConfig is the subset of configuration that affects artifact identity.
// Any field change must produce a different fingerprint.
type GeometryConfig struct {
	SectionHeight    float64
	Tolerance        float64
	IncludeOpenings  bool
	WorldCoordinates bool
	IncludeTypes     []string
	ExcludeTypes     []string
}

// Fingerprint returns a deterministic hash of the configuration.
// Type filters are treated as sets, so their order does not matter.
func (g GeometryConfig) Fingerprint() string {
	hasher := xxhash.New()

	writeFloat(hasher, g.SectionHeight)
	writeFloat(hasher, g.Tolerance)
	writeBool(hasher, g.IncludeOpenings)
	writeBool(hasher, g.WorldCoordinates)

	writeSet(hasher, g.IncludeTypes)
	writeSet(hasher, g.ExcludeTypes)

	return fmt.Sprintf("%016x", hasher.Sum64())
}

// Accepts reports whether an element of the given type passes the type filters.
// An empty include list accepts every type that is not excluded.
func (g GeometryConfig) Accepts(elementType string) bool {
	if slices.Contains(g.ExcludeTypes, elementType) {
		return false
	}
	return len(g.IncludeTypes) == 0 || slices.Contains(g.IncludeTypes, elementType)
}

func writeFloat(hasher *xxhash.Digest, v float64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	_, _ = hasher.Write(buf[:])
	_, _ = hasher.Write([]byte{0})
}

func writeBool(hasher *xxhash.Digest, v bool) {
	b := byte(0)
	if v {
		b = 1
	}
	_, _ = hasher.Write([]byte{b, 0})
}

func writeSet(hasher *xxhash.Digest, values []string) {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	for _, v := range sorted {
		_, _ = hasher.WriteString(v)
		_, _ = hasher.Write([]byte{0})
	}
	// Section separator
	_, _ = hasher.Write([]byte{0})
}
