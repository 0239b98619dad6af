package edge

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
	rejectionCodeEdgeIDRequired    = string(apperrors.CodeEdgeIDRequired)
	rejectionCodeEdgeAlreadyExists = string(apperrors.CodeEdgeAlreadyExists)
	rejectionCodeEdgeNotFound      = string(apperrors.CodeEdgeNotFound)
	rejectionCodeEdgeSourceMissing = string(apperrors.CodeEdgeSourceMissing)
	rejectionCodeEdgeTargetMissing = string(apperrors.CodeEdgeTargetMissing)
	rejectionCodeEdgeSelfLoop      = string(apperrors.CodeEdgeSelfLoop)
	rejectionCodeEdgeCategoryEmpty = string(apperrors.CodeEdgeCategoryEmpty)
	rejectionCodeHashingFailed     = string(apperrors.CodeHashingFailed)
)

// Decide returns the decision for an edge command against the edge's current
// state. The nodePresent callback reports whether a node currently exists in
// the aggregate; both endpoints must be present before an edge may connect
// them.
func Decide(state State, cmd command.Command, nodePresent func(nodeID string) bool, now func() time.Time) command.Decision {
	if now == nil {
		now = time.Now
	}
	edgeID := strings.TrimSpace(cmd.EntityID)
	if edgeID == "" {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeEdgeIDRequired,
			Message: "edge id is required",
		})
	}

	switch cmd.Type {
	case command.TypeEdgeConnect:
		if state.Present {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeEdgeAlreadyExists,
				Message: "edge already exists",
			})
		}
		var payload ConnectPayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)
		sourceID := strings.TrimSpace(payload.SourceID)
		targetID := strings.TrimSpace(payload.TargetID)
		if sourceID != "" && sourceID == targetID {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeEdgeSelfLoop,
				Message: "edge endpoints must differ",
			})
		}
		if sourceID == "" || (nodePresent != nil && !nodePresent(sourceID)) {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeEdgeSourceMissing,
				Message: "edge source node does not exist",
			})
		}
		if targetID == "" || (nodePresent != nil && !nodePresent(targetID)) {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeEdgeTargetMissing,
				Message: "edge target node does not exist",
			})
		}
		category := strings.ToLower(strings.TrimSpace(payload.Category))
		if category == "" {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeEdgeCategoryEmpty,
				Message: "edge category is required",
			})
		}

		relationship := Relationship{
			SourceID:   sourceID,
			TargetID:   targetID,
			Category:   category,
			Strength:   payload.Strength,
			Properties: normalizeProperties(payload.Properties),
		}
		relationshipCID, err := content.SumString(relationship)
		if err != nil {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeHashingFailed,
				Message: "edge relationship could not be addressed",
			})
		}
		payloadJSON, _ := json.Marshal(ConnectPayload{
			SourceID:        relationship.SourceID,
			TargetID:        relationship.TargetID,
			Category:        relationship.Category,
			Strength:        relationship.Strength,
			Properties:      relationship.Properties,
			RelationshipCID: relationshipCID,
		})
		return command.Accept(command.NewEvent(cmd, event.TypeEdgeConnected, "edge", edgeID, payloadJSON, now().UTC()))

	case command.TypeEdgeUpdate:
		if !state.Present {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeEdgeNotFound,
				Message: "edge does not exist",
			})
		}
		var payload UpdatePayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)
		category := strings.ToLower(strings.TrimSpace(payload.Category))
		if category == "" {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeEdgeCategoryEmpty,
				Message: "edge category is required",
			})
		}

		relationship := Relationship{
			SourceID:   state.SourceID,
			TargetID:   state.TargetID,
			Category:   category,
			Strength:   payload.Strength,
			Properties: normalizeProperties(payload.Properties),
		}
		relationshipCID, err := content.SumString(relationship)
		if err != nil {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeHashingFailed,
				Message: "edge relationship could not be addressed",
			})
		}
		payloadJSON, _ := json.Marshal(UpdatePayload{
			Category:        relationship.Category,
			Strength:        relationship.Strength,
			Properties:      relationship.Properties,
			RelationshipCID: relationshipCID,
		})
		return command.Accept(command.NewEvent(cmd, event.TypeEdgeUpdated, "edge", edgeID, payloadJSON, now().UTC()))

	case command.TypeEdgeDisconnect:
		if !state.Present {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeEdgeNotFound,
				Message: "edge does not exist",
			})
		}
		var payload DisconnectPayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)
		payloadJSON, _ := json.Marshal(DisconnectPayload{Reason: strings.TrimSpace(payload.Reason)})
		return command.Accept(command.NewEvent(cmd, event.TypeEdgeDisconnected, "edge", edgeID, payloadJSON, now().UTC()))
	}

	return command.Decision{}
}

func normalizeProperties(properties map[string]string) map[string]string {
	if len(properties) == 0 {
		return nil
	}
	normalized := make(map[string]string, len(properties))
	for key, value := range properties {
		normalized[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return normalized
}
