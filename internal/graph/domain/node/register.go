package node

import (
	"encoding/json"

	"github.com/latticeworks/lattice/internal/graph/domain/command"
)

// RegisterCommands registers node command definitions.
func RegisterCommands(r *command.Registry) error {
	definitions := []command.Definition{
		{Type: command.TypeNodeAdd, ValidatePayload: decodeInto[AddPayload]},
		{Type: command.TypeNodeUpdate, ValidatePayload: decodeInto[UpdatePayload]},
		{Type: command.TypeNodeMove, ValidatePayload: decodeInto[MovePayload]},
		{Type: command.TypeNodeRemove, ValidatePayload: decodeInto[RemovePayload]},
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
