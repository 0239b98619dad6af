package projection

import (
	"context"
	"fmt"
	"strings"

	"github.com/latticeworks/lattice/internal/graph/domain/event"
	"github.com/latticeworks/lattice/internal/graph/domain/graph"
	"github.com/latticeworks/lattice/internal/graph/storage"
)

func (a Applier) applyGraphCreated(ctx context.Context, evt event.Event) error {
	if a.Graphs == nil {
		return fmt.Errorf("graph store is not configured")
	}
	if strings.TrimSpace(evt.GraphID) == "" {
		return fmt.Errorf("graph id is required")
	}
	var payload graph.CreatePayload
	if err := decodePayload(evt.PayloadJSON, &payload, "graph.created"); err != nil {
		return err
	}
	name := strings.TrimSpace(payload.Name)
	if name == "" {
		return fmt.Errorf("graph name is required")
	}

	createdAt := ensureTimestamp(evt.Timestamp)
	return a.Graphs.PutGraph(ctx, storage.GraphRecord{
		ID:          evt.GraphID,
		Name:        name,
		Description: strings.TrimSpace(payload.Description),
		Tags:        payload.Tags,
		Status:      storage.GraphStatusActive,
		MetadataCID: payload.MetadataCID,
		EventCount:  1,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	})
}

func (a Applier) applyGraphUpdated(ctx context.Context, evt event.Event) error {
	if a.Graphs == nil {
		return fmt.Errorf("graph store is not configured")
	}
	if strings.TrimSpace(evt.GraphID) == "" {
		return fmt.Errorf("graph id is required")
	}
	var payload graph.UpdatePayload
	if err := decodePayload(evt.PayloadJSON, &payload, "graph.updated"); err != nil {
		return err
	}

	updatedAt := ensureTimestamp(evt.Timestamp)
	return a.bumpGraphActivity(ctx, evt.GraphID, updatedAt, func(record *storage.GraphRecord) {
		for key, value := range payload.Fields {
			switch key {
			case "name":
				record.Name = strings.TrimSpace(value)
			case "description":
				record.Description = strings.TrimSpace(value)
			case "tags":
				record.Tags = splitTags(value)
			}
		}
		if payload.MetadataCID != "" {
			record.MetadataCID = payload.MetadataCID
		}
	})
}

func (a Applier) applyGraphDeleted(ctx context.Context, evt event.Event) error {
	if a.Graphs == nil {
		return fmt.Errorf("graph store is not configured")
	}
	if strings.TrimSpace(evt.GraphID) == "" {
		return fmt.Errorf("graph id is required")
	}

	deletedAt := ensureTimestamp(evt.Timestamp)
	return a.bumpGraphActivity(ctx, evt.GraphID, deletedAt, func(record *storage.GraphRecord) {
		record.Status = storage.GraphStatusDeleted
		record.DeletedAt = &deletedAt
	})
}

// splitTags decodes the comma-joined tag list used by graph.updated field
// payloads.
func splitTags(value string) []string {
	var tags []string
	for _, tag := range strings.Split(value, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
	}
	return tags
}
