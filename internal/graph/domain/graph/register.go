package graph

import (
	"encoding/json"

	"github.com/latticeworks/lattice/internal/graph/domain/command"
)

// RegisterCommands registers graph command definitions.
func RegisterCommands(r *command.Registry) error {
	definitions := []command.Definition{
		{Type: command.TypeGraphCreate, ValidatePayload: decodeInto[CreatePayload]},
		{Type: command.TypeGraphUpdate, ValidatePayload: decodeInto[UpdatePayload]},
		{Type: command.TypeGraphDelete, ValidatePayload: decodeInto[DeletePayload]},
	}
	for _, def := range definitions {
		if err := r.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// decodeInto checks that a payload decodes into the expected shape. Semantic
// validation stays in the decider so failures surface as rejections.
func decodeInto[P any](payload json.RawMessage) error {
	var decoded P
	return json.Unmarshal(payload, &decoded)
}
