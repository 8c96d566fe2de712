package metrics

import (
	"context"

	"github.com/grindlemire/graft"
	"github.com/prometheus/client_golang/prometheus"
)

// RegistryNodeID is the unique identifier for the Prometheus registry Graft node.
const RegistryNodeID graft.ID = "adapter.metrics_registry"

func init() {
	graft.Register(graft.Node[*prometheus.Registry]{
		ID:        RegistryNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*prometheus.Registry, error) {
			return NewRegistry(), nil
		},
	})
}
