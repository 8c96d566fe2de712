package storey

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/stratum/internal/core/ports"
)

// LoaderNodeID is the unique identifier for the manifest loader Graft node.
const LoaderNodeID graft.ID = "adapter.manifest_loader"

func init() {
	graft.Register(graft.Node[ports.ManifestLoader]{
		ID:        LoaderNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.ManifestLoader, error) {
			return NewLoader(), nil
		},
	})
}
