package node

import (
	"encoding/json"

	"github.com/latticeworks/lattice/internal/graph/domain/event"
)

// FoldHandledTypes lists the event types Fold understands.
func FoldHandledTypes() []event.Type {
	return []event.Type{
		event.TypeNodeAdded,
		event.TypeNodeUpdated,
		event.TypeNodeMoved,
		event.TypeNodeRemoved,
	}
}

// Fold applies an event to per-node state.
func Fold(state State, evt event.Event) (State, error) {
	switch evt.Type {
	case event.TypeNodeAdded:
		var payload AddPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, err
		}
		state.Present = true
		state.Label = payload.Label
		state.Category = payload.Category
		state.Properties = payload.Properties
		state.X = payload.Position.X
		state.Y = payload.Position.Y
		state.Z = payload.Position.Z
		state.ContentCID = payload.ContentCID

	case event.TypeNodeUpdated:
		var payload UpdatePayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, err
		}
		state.Label = payload.Label
		state.Category = payload.Category
		state.Properties = payload.Properties
		state.ContentCID = payload.ContentCID

	case event.TypeNodeMoved:
		var payload MovePayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, err
		}
		state.X = payload.Position.X
		state.Y = payload.Position.Y
		state.Z = payload.Position.Z

	case event.TypeNodeRemoved:
		state.Present = false
	}
	return state, nil
}
