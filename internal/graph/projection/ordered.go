package projection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/latticeworks/lattice/internal/graph/domain/event"
	"github.com/latticeworks/lattice/internal/graph/storage"
)

// maxPendingPerGraph bounds the out-of-order buffer. A graph that accumulates
// this many unapplied events has a gap that buffering will not close; the
// caller should run gap repair instead.
const maxPendingPerGraph = 256

// ErrPendingOverflow reports that the out-of-order buffer for a graph is full.
var ErrPendingOverflow = errors.New("projection pending buffer overflow")

// OrderedApplier wraps an Applier with per-graph watermark tracking so events
// delivered out of order or more than once are applied exactly once, in
// sequence order.
type OrderedApplier struct {
	// Applier performs the per-event store writes.
	Applier Applier
	// Watermarks persists per-graph apply progress.
	Watermarks storage.WatermarkStore

	mu      sync.Mutex
	pending map[string]map[uint64]event.Event
}

// Ingest applies an event if it is the next expected sequence for its graph.
// Events at or below the watermark are skipped as already applied; events
// past the expected sequence are buffered and drained once the gap fills.
func (o *OrderedApplier) Ingest(ctx context.Context, evt event.Event) error {
	if o == nil || o.Watermarks == nil {
		return fmt.Errorf("watermark store is not configured")
	}
	graphID := strings.TrimSpace(evt.GraphID)
	if graphID == "" {
		return fmt.Errorf("graph id is required")
	}
	if evt.Seq == 0 {
		return fmt.Errorf("event seq is required")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	expectedNext, err := o.expectedNextSeq(ctx, graphID)
	if err != nil {
		return err
	}

	// Already applied. Re-delivery is routine; drop silently.
	if evt.Seq < expectedNext {
		return nil
	}

	if evt.Seq > expectedNext {
		return o.buffer(graphID, evt)
	}

	if err := o.Applier.Apply(ctx, evt); err != nil {
		return err
	}
	applied := evt.Seq
	if err := o.saveWatermark(ctx, graphID, applied, evt); err != nil {
		return err
	}

	return o.drainPending(ctx, graphID, applied)
}

// PendingCount reports the number of buffered out-of-order events for a graph.
func (o *OrderedApplier) PendingCount(graphID string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending[graphID])
}

func (o *OrderedApplier) expectedNextSeq(ctx context.Context, graphID string) (uint64, error) {
	mark, err := o.Watermarks.GetWatermark(ctx, graphID)
	if errors.Is(err, storage.ErrNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	if mark.ExpectedNextSeq == 0 {
		return mark.AppliedSeq + 1, nil
	}
	return mark.ExpectedNextSeq, nil
}

func (o *OrderedApplier) buffer(graphID string, evt event.Event) error {
	if o.pending == nil {
		o.pending = make(map[string]map[uint64]event.Event)
	}
	buffered, ok := o.pending[graphID]
	if !ok {
		buffered = make(map[uint64]event.Event)
		o.pending[graphID] = buffered
	}
	if _, ok := buffered[evt.Seq]; !ok && len(buffered) >= maxPendingPerGraph {
		return fmt.Errorf("%w: graph %s has %d buffered events", ErrPendingOverflow, graphID, len(buffered))
	}
	buffered[evt.Seq] = evt
	return nil
}

// drainPending applies buffered events that have become contiguous with the
// watermark.
func (o *OrderedApplier) drainPending(ctx context.Context, graphID string, applied uint64) error {
	buffered := o.pending[graphID]
	for {
		next, ok := buffered[applied+1]
		if !ok {
			break
		}
		if err := o.Applier.Apply(ctx, next); err != nil {
			return err
		}
		delete(buffered, next.Seq)
		applied = next.Seq
		if err := o.saveWatermark(ctx, graphID, applied, next); err != nil {
			return err
		}
	}
	if len(buffered) == 0 {
		delete(o.pending, graphID)
	}
	return nil
}

func (o *OrderedApplier) saveWatermark(ctx context.Context, graphID string, applied uint64, evt event.Event) error {
	return o.Watermarks.SetWatermark(ctx, storage.ProjectionWatermark{
		GraphID:         graphID,
		AppliedSeq:      applied,
		ExpectedNextSeq: applied + 1,
		UpdatedAt:       ensureTimestamp(evt.Timestamp),
	})
}
