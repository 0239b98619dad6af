package aggregate

import (
	"fmt"

	"github.com/latticeworks/lattice/internal/graph/domain/edge"
	"github.com/latticeworks/lattice/internal/graph/domain/graph"
	"github.com/latticeworks/lattice/internal/graph/domain/node"
)

// Journey tracks replay bookkeeping for an aggregate: how far into the event
// log this state has been folded.
type Journey struct {
	// Version is the sequence number of the last folded event. Zero means no
	// events have been applied.
	Version uint64
	// EventCount is the total number of events folded into this state.
	EventCount uint64
	// LastEventID is the id of the last folded event.
	LastEventID string
	// LastEventCID is the content identifier of the last folded event. New
	// appends chain from here.
	LastEventCID string
}

// State captures the full replayed aggregate state for one graph.
type State struct {
	Graph   graph.State
	Nodes   map[string]node.State
	Edges   map[string]edge.State
	Journey Journey
}

// NodePresent reports whether a node currently exists in the aggregate.
func (s State) NodePresent(nodeID string) bool {
	n, ok := s.Nodes[nodeID]
	return ok && n.Present
}

// NodeConnected reports whether any live edge still touches the node.
func (s State) NodeConnected(nodeID string) bool {
	for _, e := range s.Edges {
		if !e.Present {
			continue
		}
		if e.SourceID == nodeID || e.TargetID == nodeID {
			return true
		}
	}
	return false
}

// AssertState coerces an opaque replayed state into the expected concrete
// type. Accepts both values and non-nil pointers so callers can hold state
// either way.
func AssertState[T any](state any) (T, error) {
	var zero T
	if state == nil {
		return zero, fmt.Errorf("state is nil, expected %T", zero)
	}
	switch v := state.(type) {
	case T:
		return v, nil
	case *T:
		if v == nil {
			return zero, fmt.Errorf("state pointer is nil, expected %T", zero)
		}
		return *v, nil
	default:
		return zero, fmt.Errorf("state has type %T, expected %T", state, zero)
	}
}
