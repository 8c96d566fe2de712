package cas

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/stratum/internal/core/ports"
)

// NodeID is the unique identifier for the artifact store opener Graft node.
const NodeID graft.ID = "adapter.artifact_store"

func init() {
	graft.Register(graft.Node[ports.ArtifactStoreOpener]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.ArtifactStoreOpener, error) {
			return Open, nil
		},
	})
}
