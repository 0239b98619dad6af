package projection

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/latticeworks/lattice/internal/graph/storage"
)

// Applier applies event journal entries to projection stores.
type Applier struct {
	// Graphs writes graph-level read models.
	Graphs storage.GraphStore
	// Nodes writes node read models.
	Nodes storage.NodeStore
	// Edges writes edge read models.
	Edges storage.EdgeStore
}

// ensureTimestamp normalizes timestamps so projections always persist UTC,
// defaulting to now for events that do not set time.
func ensureTimestamp(ts time.Time) time.Time {
	if ts.IsZero() {
		return time.Now().UTC()
	}
	return ts.UTC()
}

// decodePayload is a guarded bridge between event envelopes and in-memory
// domain payload types, preserving a clear failure message when replay/apply
// input is malformed.
func decodePayload(payload []byte, target any, name string) error {
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("decode %s payload: %w", name, err)
	}
	return nil
}

// bumpGraphActivity re-reads the graph record, lets the caller adjust counts,
// advances the event count, and writes the record back. Every applied event
// for an existing graph flows through here so the record's counters track the
// journal.
func (a Applier) bumpGraphActivity(ctx context.Context, graphID string, at time.Time, adjust func(*storage.GraphRecord)) error {
	record, err := a.Graphs.GetGraph(ctx, graphID)
	if err != nil {
		return err
	}
	if adjust != nil {
		adjust(&record)
	}
	record.EventCount++
	record.UpdatedAt = at
	return a.Graphs.PutGraph(ctx, record)
}
