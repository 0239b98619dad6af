package projection

import (
	"context"
	"fmt"
	"strings"

	"github.com/latticeworks/lattice/internal/graph/domain/edge"
	"github.com/latticeworks/lattice/internal/graph/domain/event"
	"github.com/latticeworks/lattice/internal/graph/storage"
)

func (a Applier) applyEdgeConnected(ctx context.Context, evt event.Event) error {
	if a.Edges == nil {
		return fmt.Errorf("edge store is not configured")
	}
	if a.Graphs == nil {
		return fmt.Errorf("graph store is not configured")
	}
	edgeID := strings.TrimSpace(evt.EntityID)
	if edgeID == "" {
		return fmt.Errorf("edge id is required")
	}
	if strings.TrimSpace(evt.GraphID) == "" {
		return fmt.Errorf("graph id is required")
	}

	var payload edge.ConnectPayload
	if err := decodePayload(evt.PayloadJSON, &payload, "edge.connected"); err != nil {
		return err
	}
	sourceID := strings.TrimSpace(payload.SourceID)
	targetID := strings.TrimSpace(payload.TargetID)
	if sourceID == "" || targetID == "" {
		return fmt.Errorf("edge endpoints are required")
	}
	category := strings.TrimSpace(payload.Category)
	if category == "" {
		return fmt.Errorf("edge category is required")
	}
	propertiesJSON, err := marshalProperties(payload.Properties)
	if err != nil {
		return err
	}

	connectedAt := ensureTimestamp(evt.Timestamp)
	if err := a.Edges.PutEdge(ctx, storage.EdgeRecord{
		ID:              edgeID,
		GraphID:         evt.GraphID,
		SourceID:        sourceID,
		TargetID:        targetID,
		Category:        category,
		Strength:        payload.Strength,
		PropertiesJSON:  propertiesJSON,
		RelationshipCID: payload.RelationshipCID,
		CreatedAt:       connectedAt,
		UpdatedAt:       connectedAt,
	}); err != nil {
		return err
	}

	return a.bumpGraphActivity(ctx, evt.GraphID, connectedAt, func(record *storage.GraphRecord) {
		record.EdgeCount++
	})
}

func (a Applier) applyEdgeUpdated(ctx context.Context, evt event.Event) error {
	if a.Edges == nil {
		return fmt.Errorf("edge store is not configured")
	}
	if a.Graphs == nil {
		return fmt.Errorf("graph store is not configured")
	}
	edgeID := strings.TrimSpace(evt.EntityID)
	if edgeID == "" {
		return fmt.Errorf("edge id is required")
	}
	if strings.TrimSpace(evt.GraphID) == "" {
		return fmt.Errorf("graph id is required")
	}

	var payload edge.UpdatePayload
	if err := decodePayload(evt.PayloadJSON, &payload, "edge.updated"); err != nil {
		return err
	}
	category := strings.TrimSpace(payload.Category)
	if category == "" {
		return fmt.Errorf("edge category is required")
	}
	propertiesJSON, err := marshalProperties(payload.Properties)
	if err != nil {
		return err
	}

	current, err := a.Edges.GetEdge(ctx, evt.GraphID, edgeID)
	if err != nil {
		return err
	}

	updatedAt := ensureTimestamp(evt.Timestamp)
	updated := current
	updated.Category = category
	updated.Strength = payload.Strength
	updated.PropertiesJSON = propertiesJSON
	updated.RelationshipCID = payload.RelationshipCID
	updated.UpdatedAt = updatedAt

	if err := a.Edges.PutEdge(ctx, updated); err != nil {
		return err
	}

	return a.bumpGraphActivity(ctx, evt.GraphID, updatedAt, nil)
}

func (a Applier) applyEdgeDisconnected(ctx context.Context, evt event.Event) error {
	if a.Edges == nil {
		return fmt.Errorf("edge store is not configured")
	}
	if a.Graphs == nil {
		return fmt.Errorf("graph store is not configured")
	}
	edgeID := strings.TrimSpace(evt.EntityID)
	if edgeID == "" {
		return fmt.Errorf("edge id is required")
	}
	if strings.TrimSpace(evt.GraphID) == "" {
		return fmt.Errorf("graph id is required")
	}

	if err := a.Edges.DeleteEdge(ctx, evt.GraphID, edgeID); err != nil {
		return err
	}

	disconnectedAt := ensureTimestamp(evt.Timestamp)
	return a.bumpGraphActivity(ctx, evt.GraphID, disconnectedAt, func(record *storage.GraphRecord) {
		if record.EdgeCount > 0 {
			record.EdgeCount--
		}
	})
}
