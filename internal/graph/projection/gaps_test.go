package projection

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/latticeworks/lattice/internal/graph/domain/event"
	"github.com/latticeworks/lattice/internal/graph/domain/graph"
	"github.com/latticeworks/lattice/internal/graph/domain/node"
	"github.com/latticeworks/lattice/internal/graph/storage"
)

// fakeEventHighWaterStore provides journal enumeration and GetLatestEventSeq
// for gap detection tests.
type fakeEventHighWaterStore struct {
	seqs map[string]uint64
}

func (s *fakeEventHighWaterStore) ListEventGraphIDs(_ context.Context) ([]string, error) {
	return sortedGraphIDs(s.seqs), nil
}

func (s *fakeEventHighWaterStore) GetLatestEventSeq(_ context.Context, graphID string) (uint64, error) {
	return s.seqs[graphID], nil
}

// fakeGapEventSource implements gapEventSource with configurable high-water
// marks and event lists, suitable for gap repair tests.
type fakeGapEventSource struct {
	seqs   map[string]uint64
	events []event.Event
}

func (s *fakeGapEventSource) ListEventGraphIDs(_ context.Context) ([]string, error) {
	return sortedGraphIDs(s.seqs), nil
}

func (s *fakeGapEventSource) GetLatestEventSeq(_ context.Context, graphID string) (uint64, error) {
	return s.seqs[graphID], nil
}

func sortedGraphIDs(seqs map[string]uint64) []string {
	ids := make([]string, 0, len(seqs))
	for graphID := range seqs {
		ids = append(ids, graphID)
	}
	sort.Strings(ids)
	return ids
}

func (s *fakeGapEventSource) ListEvents(_ context.Context, graphID string, afterSeq uint64, limit int) ([]event.Event, error) {
	var results []event.Event
	for _, evt := range s.events {
		if evt.GraphID != graphID || evt.Seq <= afterSeq {
			continue
		}
		results = append(results, evt)
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

func TestDetectProjectionGapsFindsGaps(t *testing.T) {
	watermarks := newFakeWatermarkStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// graph-1 has watermark at 5 but journal at 10.
	_ = watermarks.SetWatermark(ctx, storage.ProjectionWatermark{
		GraphID: "graph-1", AppliedSeq: 5, ExpectedNextSeq: 6, UpdatedAt: now,
	})
	// graph-2 is up to date.
	_ = watermarks.SetWatermark(ctx, storage.ProjectionWatermark{
		GraphID: "graph-2", AppliedSeq: 10, ExpectedNextSeq: 11, UpdatedAt: now,
	})

	events := &fakeEventHighWaterStore{seqs: map[string]uint64{
		"graph-1": 10,
		"graph-2": 10,
	}}

	gaps, err := DetectProjectionGaps(ctx, watermarks, events)
	if err != nil {
		t.Fatalf("detect gaps: %v", err)
	}
	if len(gaps) != 1 {
		t.Fatalf("expected 1 gap, got %d", len(gaps))
	}
	if gaps[0].GraphID != "graph-1" {
		t.Fatalf("gap graph = %s, want graph-1", gaps[0].GraphID)
	}
	if gaps[0].WatermarkSeq != 5 || gaps[0].JournalSeq != 10 {
		t.Fatalf("gap = %+v", gaps[0])
	}
}

func TestDetectProjectionGapsEmptyWatermarks(t *testing.T) {
	gaps, err := DetectProjectionGaps(context.Background(), newFakeWatermarkStore(), &fakeEventHighWaterStore{})
	if err != nil {
		t.Fatalf("detect gaps: %v", err)
	}
	if len(gaps) != 0 {
		t.Fatalf("expected 0 gaps, got %d", len(gaps))
	}
}

func TestRepairProjectionGapsReplaysGaps(t *testing.T) {
	ctx := context.Background()
	watermarks := newFakeWatermarkStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// graph-1: watermark at seq 1, journal at seq 2.
	_ = watermarks.SetWatermark(ctx, storage.ProjectionWatermark{
		GraphID: "graph-1", AppliedSeq: 1, ExpectedNextSeq: 2, UpdatedAt: now,
	})

	// Seed the graph record so the projection update can find it.
	graphs := newFakeGraphStore()
	graphs.graphs["graph-1"] = storage.GraphRecord{
		ID: "graph-1", Name: "Research", Status: storage.GraphStatusActive, EventCount: 1,
	}

	// The gap event: a graph.updated at seq 2.
	gapEvent := projectionEvent(2, event.TypeGraphUpdated, "graph-1", mustPayload(t, graph.UpdatePayload{
		Fields: map[string]string{"name": "Repaired"},
	}))

	events := &fakeGapEventSource{
		seqs:   map[string]uint64{"graph-1": 2},
		events: []event.Event{gapEvent},
	}

	applier := Applier{Graphs: graphs}
	results, err := RepairProjectionGaps(ctx, watermarks, events, applier)
	if err != nil {
		t.Fatalf("repair gaps: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].GraphID != "graph-1" || results[0].EventsReplayed != 1 {
		t.Fatalf("result = %+v", results[0])
	}

	record, _ := graphs.GetGraph(ctx, "graph-1")
	if record.Name != "Repaired" {
		t.Fatalf("graph name = %q, want %q", record.Name, "Repaired")
	}
	mark, err := watermarks.GetWatermark(ctx, "graph-1")
	if err != nil {
		t.Fatalf("get watermark: %v", err)
	}
	if mark.AppliedSeq != 2 {
		t.Fatalf("watermark = %+v", mark)
	}
}

func TestDetectProjectionGapsFindsGraphWithoutWatermark(t *testing.T) {
	// A crash between append and apply leaves journal events with no
	// watermark row at all. Detection must still see the graph.
	events := &fakeEventHighWaterStore{seqs: map[string]uint64{"graph-1": 2}}

	gaps, err := DetectProjectionGaps(context.Background(), newFakeWatermarkStore(), events)
	if err != nil {
		t.Fatalf("detect gaps: %v", err)
	}
	if len(gaps) != 1 {
		t.Fatalf("expected 1 gap, got %d", len(gaps))
	}
	if gaps[0].GraphID != "graph-1" || gaps[0].WatermarkSeq != 0 || gaps[0].JournalSeq != 2 {
		t.Fatalf("gap = %+v", gaps[0])
	}
}

func TestRepairProjectionGapsProjectsGraphWithoutWatermark(t *testing.T) {
	ctx := context.Background()
	watermarks := newFakeWatermarkStore()
	graphs := newFakeGraphStore()
	nodes := newFakeNodeStore()

	// graph-1 was journaled to seq 2 but never applied; the projection and
	// the watermark table know nothing about it.
	events := &fakeGapEventSource{
		seqs: map[string]uint64{"graph-1": 2},
		events: []event.Event{
			projectionEvent(1, event.TypeGraphCreated, "graph-1", mustPayload(t, graph.CreatePayload{Name: "Research"})),
			projectionEvent(2, event.TypeNodeAdded, "node-1", mustPayload(t, node.AddPayload{Label: "Transformers"})),
		},
	}

	applier := Applier{Graphs: graphs, Nodes: nodes}
	results, err := RepairProjectionGaps(ctx, watermarks, events, applier)
	if err != nil {
		t.Fatalf("repair gaps: %v", err)
	}
	if len(results) != 1 || results[0].EventsReplayed != 2 {
		t.Fatalf("results = %+v", results)
	}

	record, err := graphs.GetGraph(ctx, "graph-1")
	if err != nil {
		t.Fatalf("get graph: %v", err)
	}
	if record.Name != "Research" || record.NodeCount != 1 || record.EventCount != 2 {
		t.Fatalf("graph record = %+v", record)
	}
	mark, err := watermarks.GetWatermark(ctx, "graph-1")
	if err != nil {
		t.Fatalf("get watermark: %v", err)
	}
	if mark.AppliedSeq != 2 || mark.ExpectedNextSeq != 3 {
		t.Fatalf("watermark = %+v", mark)
	}
}

func TestRepairProjectionGapsNoGaps(t *testing.T) {
	ctx := context.Background()
	watermarks := newFakeWatermarkStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_ = watermarks.SetWatermark(ctx, storage.ProjectionWatermark{
		GraphID: "graph-1", AppliedSeq: 5, ExpectedNextSeq: 6, UpdatedAt: now,
	})
	events := &fakeGapEventSource{seqs: map[string]uint64{"graph-1": 5}}

	results, err := RepairProjectionGaps(ctx, watermarks, events, Applier{})
	if err != nil {
		t.Fatalf("repair gaps: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected 0 results, got %d", len(results))
	}
}
