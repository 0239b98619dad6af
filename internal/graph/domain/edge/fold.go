package edge

import (
	"encoding/json"

	"github.com/latticeworks/lattice/internal/graph/domain/event"
)

// FoldHandledTypes lists the event types Fold understands.
func FoldHandledTypes() []event.Type {
	return []event.Type{
		event.TypeEdgeConnected,
		event.TypeEdgeUpdated,
		event.TypeEdgeDisconnected,
	}
}

// Fold applies an event to per-edge state.
func Fold(state State, evt event.Event) (State, error) {
	switch evt.Type {
	case event.TypeEdgeConnected:
		var payload ConnectPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, err
		}
		state.Present = true
		state.SourceID = payload.SourceID
		state.TargetID = payload.TargetID
		state.Category = payload.Category
		state.Strength = payload.Strength
		state.Properties = payload.Properties
		state.RelationshipCID = payload.RelationshipCID

	case event.TypeEdgeUpdated:
		var payload UpdatePayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, err
		}
		state.Category = payload.Category
		state.Strength = payload.Strength
		state.Properties = payload.Properties
		state.RelationshipCID = payload.RelationshipCID

	case event.TypeEdgeDisconnected:
		state.Present = false
	}
	return state, nil
}
