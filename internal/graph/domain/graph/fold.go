package graph

import (
	"encoding/json"
	"strings"

	"github.com/latticeworks/lattice/internal/graph/domain/event"
)

// FoldHandledTypes lists the event types Fold understands.
func FoldHandledTypes() []event.Type {
	return []event.Type{
		event.TypeGraphCreated,
		event.TypeGraphUpdated,
		event.TypeGraphDeleted,
	}
}

// Fold applies an event to graph-level state.
func Fold(state State, evt event.Event) (State, error) {
	switch evt.Type {
	case event.TypeGraphCreated:
		var payload CreatePayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, err
		}
		state.Created = true
		state.Name = payload.Name
		state.Description = payload.Description
		state.Tags = payload.Tags
		state.MetadataCID = payload.MetadataCID

	case event.TypeGraphUpdated:
		var payload UpdatePayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, err
		}
		for key, value := range payload.Fields {
			switch key {
			case "name":
				state.Name = value
			case "description":
				state.Description = value
			case "tags":
				if value == "" {
					state.Tags = nil
				} else {
					state.Tags = strings.Split(value, ",")
				}
			}
		}
		if payload.MetadataCID != "" {
			state.MetadataCID = payload.MetadataCID
		}

	case event.TypeGraphDeleted:
		state.Deleted = true
	}
	return state, nil
}
