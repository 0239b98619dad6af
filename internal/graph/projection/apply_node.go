package projection

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/latticeworks/lattice/internal/graph/domain/event"
	"github.com/latticeworks/lattice/internal/graph/domain/node"
	"github.com/latticeworks/lattice/internal/graph/storage"
)

func (a Applier) applyNodeAdded(ctx context.Context, evt event.Event) error {
	if a.Nodes == nil {
		return fmt.Errorf("node store is not configured")
	}
	if a.Graphs == nil {
		return fmt.Errorf("graph store is not configured")
	}
	nodeID := strings.TrimSpace(evt.EntityID)
	if nodeID == "" {
		return fmt.Errorf("node id is required")
	}
	if strings.TrimSpace(evt.GraphID) == "" {
		return fmt.Errorf("graph id is required")
	}

	var payload node.AddPayload
	if err := decodePayload(evt.PayloadJSON, &payload, "node.added"); err != nil {
		return err
	}
	label := strings.TrimSpace(payload.Label)
	if label == "" {
		return fmt.Errorf("node label is required")
	}
	propertiesJSON, err := marshalProperties(payload.Properties)
	if err != nil {
		return err
	}

	createdAt := ensureTimestamp(evt.Timestamp)
	if err := a.Nodes.PutNode(ctx, storage.NodeRecord{
		ID:             nodeID,
		GraphID:        evt.GraphID,
		Label:          label,
		Category:       strings.TrimSpace(payload.Category),
		PropertiesJSON: propertiesJSON,
		X:              payload.Position.X,
		Y:              payload.Position.Y,
		Z:              payload.Position.Z,
		ContentCID:     payload.ContentCID,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}); err != nil {
		return err
	}

	return a.bumpGraphActivity(ctx, evt.GraphID, createdAt, func(record *storage.GraphRecord) {
		record.NodeCount++
	})
}

func (a Applier) applyNodeUpdated(ctx context.Context, evt event.Event) error {
	if a.Nodes == nil {
		return fmt.Errorf("node store is not configured")
	}
	if a.Graphs == nil {
		return fmt.Errorf("graph store is not configured")
	}
	nodeID := strings.TrimSpace(evt.EntityID)
	if nodeID == "" {
		return fmt.Errorf("node id is required")
	}
	if strings.TrimSpace(evt.GraphID) == "" {
		return fmt.Errorf("graph id is required")
	}

	var payload node.UpdatePayload
	if err := decodePayload(evt.PayloadJSON, &payload, "node.updated"); err != nil {
		return err
	}
	label := strings.TrimSpace(payload.Label)
	if label == "" {
		return fmt.Errorf("node label is required")
	}
	propertiesJSON, err := marshalProperties(payload.Properties)
	if err != nil {
		return err
	}

	current, err := a.Nodes.GetNode(ctx, evt.GraphID, nodeID)
	if err != nil {
		return err
	}

	updatedAt := ensureTimestamp(evt.Timestamp)
	updated := current
	updated.Label = label
	updated.Category = strings.TrimSpace(payload.Category)
	updated.PropertiesJSON = propertiesJSON
	updated.ContentCID = payload.ContentCID
	updated.UpdatedAt = updatedAt

	if err := a.Nodes.PutNode(ctx, updated); err != nil {
		return err
	}

	return a.bumpGraphActivity(ctx, evt.GraphID, updatedAt, nil)
}

func (a Applier) applyNodeMoved(ctx context.Context, evt event.Event) error {
	if a.Nodes == nil {
		return fmt.Errorf("node store is not configured")
	}
	if a.Graphs == nil {
		return fmt.Errorf("graph store is not configured")
	}
	nodeID := strings.TrimSpace(evt.EntityID)
	if nodeID == "" {
		return fmt.Errorf("node id is required")
	}
	if strings.TrimSpace(evt.GraphID) == "" {
		return fmt.Errorf("graph id is required")
	}

	var payload node.MovePayload
	if err := decodePayload(evt.PayloadJSON, &payload, "node.moved"); err != nil {
		return err
	}

	current, err := a.Nodes.GetNode(ctx, evt.GraphID, nodeID)
	if err != nil {
		return err
	}

	movedAt := ensureTimestamp(evt.Timestamp)
	updated := current
	updated.X = payload.Position.X
	updated.Y = payload.Position.Y
	updated.Z = payload.Position.Z
	updated.UpdatedAt = movedAt

	if err := a.Nodes.PutNode(ctx, updated); err != nil {
		return err
	}

	return a.bumpGraphActivity(ctx, evt.GraphID, movedAt, nil)
}

func (a Applier) applyNodeRemoved(ctx context.Context, evt event.Event) error {
	if a.Nodes == nil {
		return fmt.Errorf("node store is not configured")
	}
	if a.Graphs == nil {
		return fmt.Errorf("graph store is not configured")
	}
	nodeID := strings.TrimSpace(evt.EntityID)
	if nodeID == "" {
		return fmt.Errorf("node id is required")
	}
	if strings.TrimSpace(evt.GraphID) == "" {
		return fmt.Errorf("graph id is required")
	}

	if err := a.Nodes.DeleteNode(ctx, evt.GraphID, nodeID); err != nil {
		return err
	}

	removedAt := ensureTimestamp(evt.Timestamp)
	return a.bumpGraphActivity(ctx, evt.GraphID, removedAt, func(record *storage.GraphRecord) {
		if record.NodeCount > 0 {
			record.NodeCount--
		}
	})
}

// marshalProperties encodes an optional property map and returns nil for
// empty payloads.
func marshalProperties(properties map[string]string) ([]byte, error) {
	if len(properties) == 0 {
		return nil, nil
	}
	encoded, err := json.Marshal(properties)
	if err != nil {
		return nil, fmt.Errorf("encode properties: %w", err)
	}
	return encoded, nil
}
