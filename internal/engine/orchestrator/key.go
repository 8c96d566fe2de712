package orchestrator

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/stratum/internal/core/domain"
)

// CacheKey derives the deterministic cache key of a unit from its name and payload.
// Payload maps are encoded with sorted keys. It returns false when the payload
// cannot be encoded, in which case the unit is not cached.
func CacheKey(unitName string, payload domain.Payload) (string, bool) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", false
	}

	hasher := xxhash.New()
	_, _ = hasher.WriteString(unitName)
	_, _ = hasher.Write([]byte{0})
	_, _ = hasher.Write(encoded)

	return fmt.Sprintf("%016x", hasher.Sum64()), true
}
