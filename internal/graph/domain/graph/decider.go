package graph

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/latticeworks/lattice/internal/graph/content"
	"github.com/latticeworks/lattice/internal/graph/domain/command"
	"github.com/latticeworks/lattice/internal/graph/domain/event"
	apperrors "github.com/latticeworks/lattice/internal/platform/errors"
)

const (
	rejectionCodeGraphAlreadyExists      = string(apperrors.CodeGraphAlreadyExists)
	rejectionCodeGraphNotCreated         = string(apperrors.CodeGraphNotCreated)
	rejectionCodeGraphDeleted            = string(apperrors.CodeGraphDeleted)
	rejectionCodeGraphNameEmpty          = string(apperrors.CodeGraphNameEmpty)
	rejectionCodeGraphUpdateEmpty        = string(apperrors.CodeGraphUpdateEmpty)
	rejectionCodeGraphUpdateFieldUnknown = string(apperrors.CodeGraphUpdateFieldUnknown)
	rejectionCodeHashingFailed           = string(apperrors.CodeHashingFailed)
)

// Decide returns the decision for a graph-level command against current state.
func Decide(state State, cmd command.Command, now func() time.Time) command.Decision {
	if now == nil {
		now = time.Now
	}

	switch cmd.Type {
	case command.TypeGraphCreate:
		if state.Deleted {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeGraphDeleted,
				Message: "graph is deleted",
			})
		}
		if state.Created {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeGraphAlreadyExists,
				Message: "graph already exists",
			})
		}
		var payload CreatePayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)
		normalizedName := strings.TrimSpace(payload.Name)
		if normalizedName == "" {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeGraphNameEmpty,
				Message: "graph name is required",
			})
		}

		normalized := CreatePayload{
			Name:        normalizedName,
			Description: strings.TrimSpace(payload.Description),
			Tags:        normalizeTags(payload.Tags),
		}
		metadataCID, err := content.SumString(Metadata{
			Name:        normalized.Name,
			Description: normalized.Description,
			Tags:        normalized.Tags,
		})
		if err != nil {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeHashingFailed,
				Message: "graph metadata could not be addressed",
			})
		}
		normalized.MetadataCID = metadataCID
		payloadJSON, _ := json.Marshal(normalized)

		return command.Accept(command.NewEvent(cmd, event.TypeGraphCreated, "graph", cmd.GraphID, payloadJSON, now().UTC()))

	case command.TypeGraphUpdate:
		if rejection, ok := requireActive(state); !ok {
			return command.Reject(rejection)
		}
		var payload UpdatePayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)
		if len(payload.Fields) == 0 {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeGraphUpdateEmpty,
				Message: "graph update requires fields",
			})
		}

		next := Metadata{Name: state.Name, Description: state.Description, Tags: state.Tags}
		normalizedFields := make(map[string]string, len(payload.Fields))
		for key, value := range payload.Fields {
			switch key {
			case "name":
				trimmed := strings.TrimSpace(value)
				if trimmed == "" {
					return command.Reject(command.Rejection{
						Code:    rejectionCodeGraphNameEmpty,
						Message: "graph name is required",
					})
				}
				next.Name = trimmed
				normalizedFields[key] = trimmed
			case "description":
				trimmed := strings.TrimSpace(value)
				next.Description = trimmed
				normalizedFields[key] = trimmed
			case "tags":
				tags := normalizeTags(strings.Split(value, ","))
				next.Tags = tags
				normalizedFields[key] = strings.Join(tags, ",")
			default:
				return command.Reject(command.Rejection{
					Code:    rejectionCodeGraphUpdateFieldUnknown,
					Message: "graph update field is unknown",
				})
			}
		}

		metadataCID, err := content.SumString(next)
		if err != nil {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeHashingFailed,
				Message: "graph metadata could not be addressed",
			})
		}
		payloadJSON, _ := json.Marshal(UpdatePayload{Fields: normalizedFields, MetadataCID: metadataCID})

		return command.Accept(command.NewEvent(cmd, event.TypeGraphUpdated, "graph", cmd.GraphID, payloadJSON, now().UTC()))

	case command.TypeGraphDelete:
		if rejection, ok := requireActive(state); !ok {
			return command.Reject(rejection)
		}
		var payload DeletePayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)
		payloadJSON, _ := json.Marshal(DeletePayload{Reason: strings.TrimSpace(payload.Reason)})

		return command.Accept(command.NewEvent(cmd, event.TypeGraphDeleted, "graph", cmd.GraphID, payloadJSON, now().UTC()))
	}

	return command.Decision{}
}

// requireActive gates commands that only make sense on a created, non-deleted
// graph.
func requireActive(state State) (command.Rejection, bool) {
	if !state.Created {
		return command.Rejection{
			Code:    rejectionCodeGraphNotCreated,
			Message: "graph does not exist",
		}, false
	}
	if state.Deleted {
		return command.Rejection{
			Code:    rejectionCodeGraphDeleted,
			Message: "graph is deleted",
		}, false
	}
	return command.Rejection{}, true
}

// normalizeTags trims, lowercases, deduplicates, and sorts tags so logically
// equal tag sets hash identically.
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		normalized := strings.ToLower(strings.TrimSpace(tag))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}
