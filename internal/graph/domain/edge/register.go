package edge

import (
	"encoding/json"

	"github.com/latticeworks/lattice/internal/graph/domain/command"
)

// RegisterCommands registers edge command definitions.
func RegisterCommands(r *command.Registry) error {
	definitions := []command.Definition{
		{Type: command.TypeEdgeConnect, ValidatePayload: decodeInto[ConnectPayload]},
		{Type: command.TypeEdgeUpdate, ValidatePayload: decodeInto[UpdatePayload]},
		{Type: command.TypeEdgeDisconnect, ValidatePayload: decodeInto[DisconnectPayload]},
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
