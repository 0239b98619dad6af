package node

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/latticeworks/lattice/internal/graph/content"
	"github.com/latticeworks/lattice/internal/graph/domain/command"
	"github.com/latticeworks/lattice/internal/graph/domain/event"
	apperrors "github.com/latticeworks/lattice/internal/platform/errors"
)

const (
	rejectionCodeNodeIDRequired     = string(apperrors.CodeNodeIDRequired)
	rejectionCodeNodeAlreadyExists  = string(apperrors.CodeNodeAlreadyExists)
	rejectionCodeNodeNotFound       = string(apperrors.CodeNodeNotFound)
	rejectionCodeNodeLabelEmpty     = string(apperrors.CodeNodeLabelEmpty)
	rejectionCodeNodeStillConnected = string(apperrors.CodeNodeStillConnected)
	rejectionCodeHashingFailed      = string(apperrors.CodeHashingFailed)
)

// Decide returns the decision for a node command against the node's current
// state. The connected callback reports whether any live edge still touches
// the node; removal is refused while edges reference it so the aggregate never
// holds dangling endpoints.
func Decide(state State, cmd command.Command, connected func(nodeID string) bool, now func() time.Time) command.Decision {
	if now == nil {
		now = time.Now
	}
	nodeID := strings.TrimSpace(cmd.EntityID)
	if nodeID == "" {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeNodeIDRequired,
			Message: "node id is required",
		})
	}

	switch cmd.Type {
	case command.TypeNodeAdd:
		if state.Present {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeNodeAlreadyExists,
				Message: "node already exists",
			})
		}
		var payload AddPayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)
		normalized, rejection, ok := normalizeContent(payload.Label, payload.Category, payload.Properties)
		if !ok {
			return command.Reject(rejection)
		}
		contentCID, err := content.SumString(normalized)
		if err != nil {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeHashingFailed,
				Message: "node content could not be addressed",
			})
		}
		payloadJSON, _ := json.Marshal(AddPayload{
			Label:      normalized.Label,
			Category:   normalized.Category,
			Properties: normalized.Properties,
			Position:   payload.Position,
			ContentCID: contentCID,
		})
		return command.Accept(command.NewEvent(cmd, event.TypeNodeAdded, "node", nodeID, payloadJSON, now().UTC()))

	case command.TypeNodeUpdate:
		if !state.Present {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeNodeNotFound,
				Message: "node does not exist",
			})
		}
		var payload UpdatePayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)
		normalized, rejection, ok := normalizeContent(payload.Label, payload.Category, payload.Properties)
		if !ok {
			return command.Reject(rejection)
		}
		contentCID, err := content.SumString(normalized)
		if err != nil {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeHashingFailed,
				Message: "node content could not be addressed",
			})
		}
		payloadJSON, _ := json.Marshal(UpdatePayload{
			Label:      normalized.Label,
			Category:   normalized.Category,
			Properties: normalized.Properties,
			ContentCID: contentCID,
		})
		return command.Accept(command.NewEvent(cmd, event.TypeNodeUpdated, "node", nodeID, payloadJSON, now().UTC()))

	case command.TypeNodeMove:
		if !state.Present {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeNodeNotFound,
				Message: "node does not exist",
			})
		}
		var payload MovePayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)
		payloadJSON, _ := json.Marshal(payload)
		return command.Accept(command.NewEvent(cmd, event.TypeNodeMoved, "node", nodeID, payloadJSON, now().UTC()))

	case command.TypeNodeRemove:
		if !state.Present {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeNodeNotFound,
				Message: "node does not exist",
			})
		}
		if connected != nil && connected(nodeID) {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeNodeStillConnected,
				Message: "node still has connected edges",
			})
		}
		var payload RemovePayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)
		payloadJSON, _ := json.Marshal(RemovePayload{Reason: strings.TrimSpace(payload.Reason)})
		return command.Accept(command.NewEvent(cmd, event.TypeNodeRemoved, "node", nodeID, payloadJSON, now().UTC()))
	}

	return command.Decision{}
}

// normalizeContent trims content fields so logically equal node content
// always hashes identically.
func normalizeContent(label, category string, properties map[string]string) (Content, command.Rejection, bool) {
	normalizedLabel := strings.TrimSpace(label)
	if normalizedLabel == "" {
		return Content{}, command.Rejection{
			Code:    rejectionCodeNodeLabelEmpty,
			Message: "node label is required",
		}, false
	}
	var normalizedProperties map[string]string
	if len(properties) > 0 {
		normalizedProperties = make(map[string]string, len(properties))
		for key, value := range properties {
			normalizedProperties[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
	}
	return Content{
		Label:      normalizedLabel,
		Category:   strings.ToLower(strings.TrimSpace(category)),
		Properties: normalizedProperties,
	}, command.Rejection{}, true
}
