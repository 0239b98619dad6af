package projection

import (
	"context"
	"testing"

	"github.com/latticeworks/lattice/internal/graph/domain/event"
	"github.com/latticeworks/lattice/internal/graph/domain/graph"
	"github.com/latticeworks/lattice/internal/graph/domain/node"
)

func newTestOrderedApplier() (*OrderedApplier, *fakeGraphStore, *fakeWatermarkStore) {
	graphs := newFakeGraphStore()
	watermarks := newFakeWatermarkStore()
	ordered := &OrderedApplier{
		Applier:    Applier{Graphs: graphs, Nodes: newFakeNodeStore(), Edges: newFakeEdgeStore()},
		Watermarks: watermarks,
	}
	return ordered, graphs, watermarks
}

func TestIngestAppliesInOrder(t *testing.T) {
	ordered, graphs, watermarks := newTestOrderedApplier()
	ctx := context.Background()

	events := []event.Event{
		projectionEvent(1, event.TypeGraphCreated, "graph-1", mustPayload(t, graph.CreatePayload{Name: "Research"})),
		projectionEvent(2, event.TypeNodeAdded, "node-1", mustPayload(t, node.AddPayload{Label: "A"})),
	}
	for _, evt := range events {
		if err := ordered.Ingest(ctx, evt); err != nil {
			t.Fatalf("ingest seq %d: %v", evt.Seq, err)
		}
	}

	record, err := graphs.GetGraph(ctx, "graph-1")
	if err != nil {
		t.Fatalf("get graph: %v", err)
	}
	if record.NodeCount != 1 || record.EventCount != 2 {
		t.Fatalf("counts = %d/%d", record.NodeCount, record.EventCount)
	}

	mark, err := watermarks.GetWatermark(ctx, "graph-1")
	if err != nil {
		t.Fatalf("get watermark: %v", err)
	}
	if mark.AppliedSeq != 2 || mark.ExpectedNextSeq != 3 {
		t.Fatalf("watermark = %+v", mark)
	}
}

func TestIngestBuffersOutOfOrder(t *testing.T) {
	ordered, graphs, watermarks := newTestOrderedApplier()
	ctx := context.Background()

	created := projectionEvent(1, event.TypeGraphCreated, "graph-1", mustPayload(t, graph.CreatePayload{Name: "Research"}))
	second := projectionEvent(2, event.TypeNodeAdded, "node-1", mustPayload(t, node.AddPayload{Label: "A"}))
	third := projectionEvent(3, event.TypeNodeAdded, "node-2", mustPayload(t, node.AddPayload{Label: "B"}))

	// Seq 3 arrives before seq 2: it must wait in the buffer.
	if err := ordered.Ingest(ctx, created); err != nil {
		t.Fatalf("ingest seq 1: %v", err)
	}
	if err := ordered.Ingest(ctx, third); err != nil {
		t.Fatalf("ingest seq 3: %v", err)
	}
	if ordered.PendingCount("graph-1") != 1 {
		t.Fatalf("pending = %d, want 1", ordered.PendingCount("graph-1"))
	}
	record, err := graphs.GetGraph(ctx, "graph-1")
	if err != nil {
		t.Fatalf("get graph: %v", err)
	}
	if record.NodeCount != 0 {
		t.Fatalf("node count before gap fill = %d, want 0", record.NodeCount)
	}

	// Seq 2 fills the gap and drains the buffered seq 3.
	if err := ordered.Ingest(ctx, second); err != nil {
		t.Fatalf("ingest seq 2: %v", err)
	}
	if ordered.PendingCount("graph-1") != 0 {
		t.Fatalf("pending after drain = %d, want 0", ordered.PendingCount("graph-1"))
	}
	record, err = graphs.GetGraph(ctx, "graph-1")
	if err != nil {
		t.Fatalf("get graph: %v", err)
	}
	if record.NodeCount != 2 || record.EventCount != 3 {
		t.Fatalf("counts = %d/%d, want 2/3", record.NodeCount, record.EventCount)
	}

	mark, err := watermarks.GetWatermark(ctx, "graph-1")
	if err != nil {
		t.Fatalf("get watermark: %v", err)
	}
	if mark.AppliedSeq != 3 {
		t.Fatalf("applied seq = %d, want 3", mark.AppliedSeq)
	}
}

func TestIngestSkipsAlreadyApplied(t *testing.T) {
	ordered, graphs, _ := newTestOrderedApplier()
	ctx := context.Background()

	created := projectionEvent(1, event.TypeGraphCreated, "graph-1", mustPayload(t, graph.CreatePayload{Name: "Research"}))
	added := projectionEvent(2, event.TypeNodeAdded, "node-1", mustPayload(t, node.AddPayload{Label: "A"}))
	for _, evt := range []event.Event{created, added} {
		if err := ordered.Ingest(ctx, evt); err != nil {
			t.Fatalf("ingest seq %d: %v", evt.Seq, err)
		}
	}

	// Re-delivery of seq 2 must be a no-op.
	if err := ordered.Ingest(ctx, added); err != nil {
		t.Fatalf("re-ingest seq 2: %v", err)
	}
	record, err := graphs.GetGraph(ctx, "graph-1")
	if err != nil {
		t.Fatalf("get graph: %v", err)
	}
	if record.NodeCount != 1 || record.EventCount != 2 {
		t.Fatalf("counts after re-delivery = %d/%d, want 1/2", record.NodeCount, record.EventCount)
	}
}

func TestIngestValidatesEnvelope(t *testing.T) {
	ordered, _, _ := newTestOrderedApplier()
	ctx := context.Background()

	missingGraph := projectionEvent(1, event.TypeGraphCreated, "graph-1", []byte(`{"name":"Research"}`))
	missingGraph.GraphID = ""
	if err := ordered.Ingest(ctx, missingGraph); err == nil {
		t.Fatal("expected error for missing graph id")
	}

	missingSeq := projectionEvent(0, event.TypeGraphCreated, "graph-1", []byte(`{"name":"Research"}`))
	if err := ordered.Ingest(ctx, missingSeq); err == nil {
		t.Fatal("expected error for missing seq")
	}
}

func TestIngestRequiresWatermarkStore(t *testing.T) {
	ordered := &OrderedApplier{Applier: Applier{Graphs: newFakeGraphStore()}}
	evt := projectionEvent(1, event.TypeGraphCreated, "graph-1", []byte(`{"name":"Research"}`))
	if err := ordered.Ingest(context.Background(), evt); err == nil {
		t.Fatal("expected error when watermark store is missing")
	}
}
