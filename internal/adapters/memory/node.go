package memory

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/stratum/internal/core/ports"
)

// NodeID is the unique identifier for the memory probe Graft node.
const NodeID graft.ID = "adapter.memory_probe"

func init() {
	graft.Register(graft.Node[ports.MemoryProbe]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.MemoryProbe, error) {
			return NewProbe(), nil
		},
	})
}
