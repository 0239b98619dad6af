package engine

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/latticeworks/lattice/internal/graph/domain/aggregate"
	"github.com/latticeworks/lattice/internal/graph/domain/checkpoint"
	"github.com/latticeworks/lattice/internal/graph/domain/command"
	"github.com/latticeworks/lattice/internal/graph/domain/event"
	"github.com/latticeworks/lattice/internal/graph/domain/graph"
	"github.com/latticeworks/lattice/internal/graph/domain/node"
	"github.com/latticeworks/lattice/internal/graph/domain/replay"
)

func seedJournal(t *testing.T, journal *memJournal, graphID string) []event.Event {
	t.Helper()
	createPayload, _ := json.Marshal(graph.CreatePayload{Name: "Research"})
	addPayload, _ := json.Marshal(node.AddPayload{Label: "A"})
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	events := []event.Event{
		{GraphID: graphID, Type: event.TypeGraphCreated, Timestamp: ts, EntityType: "graph", EntityID: graphID, PayloadJSON: createPayload},
		{GraphID: graphID, Type: event.TypeNodeAdded, Timestamp: ts, EntityType: "node", EntityID: "node-1", PayloadJSON: addPayload},
	}
	stored, err := journal.AppendEvents(context.Background(), graphID, events, 0)
	if err != nil {
		t.Fatalf("seed journal: %v", err)
	}
	return stored
}

func TestLoadReplaysFromScratch(t *testing.T) {
	journal := newMemJournal()
	seedJournal(t, journal, "graph-1")

	loader := ReplayStateLoader{
		Events:       journal,
		Checkpoints:  checkpoint.NewMemory(),
		Snapshots:    checkpoint.NewMemory(),
		Folder:       &aggregate.Folder{},
		StateFactory: func() any { return aggregate.State{} },
	}
	state, err := loader.Load(context.Background(), command.Command{GraphID: "graph-1"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	agg, err := aggregate.AssertState[aggregate.State](state)
	if err != nil {
		t.Fatalf("assert state: %v", err)
	}
	if agg.Journey.Version != 2 || !agg.Graph.Created || len(agg.Nodes) != 1 {
		t.Fatalf("state = %+v", agg)
	}
}

func TestLoadResumesFromSnapshot(t *testing.T) {
	journal := newMemJournal()
	stored := seedJournal(t, journal, "graph-1")
	ctx := context.Background()

	// Snapshot covers the first event only; replay must fold just the tail.
	checkpoints := checkpoint.NewMemory()
	snapshotState := aggregate.State{
		Graph:   graph.State{Created: true, Name: "Research"},
		Journey: aggregate.Journey{Version: 1, EventCount: 1, LastEventCID: stored[0].CID},
	}
	if err := checkpoints.SaveState(ctx, "graph-1", 1, snapshotState); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}

	loader := ReplayStateLoader{
		Events:       journal,
		Checkpoints:  checkpoints,
		Snapshots:    checkpoints,
		Folder:       &aggregate.Folder{},
		StateFactory: func() any { return aggregate.State{} },
	}
	state, err := loader.Load(ctx, command.Command{GraphID: "graph-1"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	agg, err := aggregate.AssertState[aggregate.State](state)
	if err != nil {
		t.Fatalf("assert state: %v", err)
	}
	if agg.Journey.Version != 2 {
		t.Fatalf("version = %d, want 2", agg.Journey.Version)
	}
	if agg.Journey.EventCount != 2 {
		t.Fatalf("event count = %d, want 2", agg.Journey.EventCount)
	}
	if len(agg.Nodes) != 1 {
		t.Fatalf("nodes = %d, want 1", len(agg.Nodes))
	}
}

func TestLoadIgnoresCheckpointAheadOfSnapshot(t *testing.T) {
	journal := newMemJournal()
	seedJournal(t, journal, "graph-1")
	ctx := context.Background()

	// A checkpoint past the last snapshot must not make replay skip events.
	checkpoints := checkpoint.NewMemory()
	if err := checkpoints.Save(ctx, replay.Checkpoint{GraphID: "graph-1", LastSeq: 2, UpdatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("save checkpoint: %v", err)
	}

	loader := ReplayStateLoader{
		Events:       journal,
		Checkpoints:  checkpoints,
		Snapshots:    checkpoints,
		Folder:       &aggregate.Folder{},
		StateFactory: func() any { return aggregate.State{} },
	}
	state, err := loader.Load(ctx, command.Command{GraphID: "graph-1"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	agg, err := aggregate.AssertState[aggregate.State](state)
	if err != nil {
		t.Fatalf("assert state: %v", err)
	}
	if agg.Journey.Version != 2 || agg.Journey.EventCount != 2 {
		t.Fatalf("journey = %+v, want full fold", agg.Journey)
	}
}

func TestLoadValidatesDependencies(t *testing.T) {
	ctx := context.Background()
	journal := newMemJournal()
	folder := &aggregate.Folder{}
	checkpoints := checkpoint.NewMemory()

	cases := []struct {
		name    string
		loader  ReplayStateLoader
		wantErr error
	}{
		{"missing events", ReplayStateLoader{Checkpoints: checkpoints, Folder: folder}, replay.ErrEventStoreRequired},
		{"missing checkpoints", ReplayStateLoader{Events: journal, Folder: folder}, replay.ErrCheckpointStoreRequired},
		{"missing folder", ReplayStateLoader{Events: journal, Checkpoints: checkpoints}, replay.ErrFolderRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.loader.Load(ctx, command.Command{GraphID: "graph-1"}); !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}
