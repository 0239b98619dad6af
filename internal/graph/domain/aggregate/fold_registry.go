package aggregate

import (
	"fmt"

	"github.com/latticeworks/lattice/internal/graph/domain/edge"
	"github.com/latticeworks/lattice/internal/graph/domain/event"
	"github.com/latticeworks/lattice/internal/graph/domain/graph"
	"github.com/latticeworks/lattice/internal/graph/domain/node"
)

// foldEntry describes how a set of event types maps to a fold function that
// updates one slice of aggregate state. Each entry is either direct (single
// field on State) or entity-keyed (map on State keyed by EntityID).
type foldEntry struct {
	// types returns the event types handled by this fold entry.
	types func() []event.Type
	// fold applies a single event to a sub-state and writes the result back
	// into the aggregate state. Entity-keyed entries receive the EntityID
	// from the event envelope.
	fold func(state *State, evt event.Event) error
}

// foldEntries returns the declarative fold dispatch table for all subdomains.
// Adding a new subdomain requires only adding an entry here.
func foldEntries() []foldEntry {
	return []foldEntry{
		{
			types: graph.FoldHandledTypes,
			fold: func(state *State, evt event.Event) error {
				updated, err := graph.Fold(state.Graph, evt)
				if err != nil {
					return err
				}
				state.Graph = updated
				return nil
			},
		},
		{
			types: node.FoldHandledTypes,
			fold: func(state *State, evt event.Event) error {
				if evt.EntityID == "" {
					return fmt.Errorf("node fold requires EntityID but got empty for %s", evt.Type)
				}
				if state.Nodes == nil {
					state.Nodes = make(map[string]node.State)
				}
				nState := state.Nodes[evt.EntityID]
				updated, err := node.Fold(nState, evt)
				if err != nil {
					return err
				}
				state.Nodes[evt.EntityID] = updated
				return nil
			},
		},
		{
			types: edge.FoldHandledTypes,
			fold: func(state *State, evt event.Event) error {
				if evt.EntityID == "" {
					return fmt.Errorf("edge fold requires EntityID but got empty for %s", evt.Type)
				}
				if state.Edges == nil {
					state.Edges = make(map[string]edge.State)
				}
				eState := state.Edges[evt.EntityID]
				updated, err := edge.Fold(eState, evt)
				if err != nil {
					return err
				}
				state.Edges[evt.EntityID] = updated
				return nil
			},
		},
	}
}
