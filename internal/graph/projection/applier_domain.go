package projection

import (
	"context"
	"fmt"

	"github.com/latticeworks/lattice/internal/graph/domain/event"
)

// Apply routes domain events into denormalized read-model stores.
//
// The projection layer is the reason read models remain current for APIs and
// query use-cases: every event that changes graph state in the domain gets
// mirrored here according to projection semantics.
func (a Applier) Apply(ctx context.Context, evt event.Event) error {
	switch evt.Type {
	case event.TypeGraphCreated:
		return a.applyGraphCreated(ctx, evt)
	case event.TypeGraphUpdated:
		return a.applyGraphUpdated(ctx, evt)
	case event.TypeGraphDeleted:
		return a.applyGraphDeleted(ctx, evt)
	case event.TypeNodeAdded:
		return a.applyNodeAdded(ctx, evt)
	case event.TypeNodeUpdated:
		return a.applyNodeUpdated(ctx, evt)
	case event.TypeNodeMoved:
		return a.applyNodeMoved(ctx, evt)
	case event.TypeNodeRemoved:
		return a.applyNodeRemoved(ctx, evt)
	case event.TypeEdgeConnected:
		return a.applyEdgeConnected(ctx, evt)
	case event.TypeEdgeUpdated:
		return a.applyEdgeUpdated(ctx, evt)
	case event.TypeEdgeDisconnected:
		return a.applyEdgeDisconnected(ctx, evt)
	default:
		return fmt.Errorf("unhandled projection event type: %s", evt.Type)
	}
}

// HandledTypes returns the event types the applier routes.
func HandledTypes() []event.Type {
	return []event.Type{
		event.TypeGraphCreated,
		event.TypeGraphUpdated,
		event.TypeGraphDeleted,
		event.TypeNodeAdded,
		event.TypeNodeUpdated,
		event.TypeNodeMoved,
		event.TypeNodeRemoved,
		event.TypeEdgeConnected,
		event.TypeEdgeUpdated,
		event.TypeEdgeDisconnected,
	}
}
