package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/latticeworks/lattice/internal/graph/domain/event"
	"github.com/latticeworks/lattice/internal/graph/storage"
	apperrors "github.com/latticeworks/lattice/internal/platform/errors"
)

func TestAppendEventAssignsSequenceAndChain(t *testing.T) {
	store := openTestEventStore(t)
	ctx := context.Background()

	first, err := store.AppendEvent(ctx, testEvent("graph-1", event.TypeGraphCreated, "graph-1", `{"name":"Research"}`))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	second, err := store.AppendEvent(ctx, testEvent("graph-1", event.TypeNodeAdded, "node-1", `{"label":"Concept"}`))
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	if first.Seq != 1 || second.Seq != 2 {
		t.Fatalf("sequences = %d, %d", first.Seq, second.Seq)
	}
	if first.ID == "" || first.CID == "" {
		t.Fatalf("expected id and cid assigned: %+v", first)
	}
	if first.PrevCID != "" {
		t.Fatalf("first event prev cid = %q, want empty", first.PrevCID)
	}
	if second.PrevCID != first.CID {
		t.Fatal("expected second event to chain from first")
	}
}

func TestAppendEventsPerGraphSequences(t *testing.T) {
	store := openTestEventStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.AppendEvent(ctx, testEvent("graph-1", event.TypeNodeAdded, fmt.Sprintf("node-%d", i), `{"label":"A"}`)); err != nil {
			t.Fatalf("append graph-1: %v", err)
		}
	}
	evt, err := store.AppendEvent(ctx, testEvent("graph-2", event.TypeGraphCreated, "graph-2", `{"name":"Other"}`))
	if err != nil {
		t.Fatalf("append graph-2: %v", err)
	}
	if evt.Seq != 1 {
		t.Fatalf("graph-2 first seq = %d, want 1", evt.Seq)
	}

	latest, err := store.GetLatestEventSeq(ctx, "graph-1")
	if err != nil {
		t.Fatalf("latest seq: %v", err)
	}
	if latest != 3 {
		t.Fatalf("graph-1 latest seq = %d, want 3", latest)
	}
}

func TestAppendEventsBatchIsAtomicAndContiguous(t *testing.T) {
	store := openTestEventStore(t)
	ctx := context.Background()

	batch := []event.Event{
		testEvent("graph-1", event.TypeGraphCreated, "graph-1", `{"name":"Research"}`),
		testEvent("graph-1", event.TypeNodeAdded, "node-1", `{"label":"A"}`),
		testEvent("graph-1", event.TypeNodeAdded, "node-2", `{"label":"B"}`),
	}
	stored, err := store.AppendEvents(ctx, "graph-1", batch, 0)
	if err != nil {
		t.Fatalf("append batch: %v", err)
	}
	for i, evt := range stored {
		if evt.Seq != uint64(i+1) {
			t.Fatalf("event %d seq = %d", i, evt.Seq)
		}
	}
	if stored[1].PrevCID != stored[0].CID || stored[2].PrevCID != stored[1].CID {
		t.Fatal("expected batch to chain internally")
	}
}

func TestAppendEventsConcurrencyConflict(t *testing.T) {
	store := openTestEventStore(t)
	ctx := context.Background()

	if _, err := store.AppendEvents(ctx, "graph-1", []event.Event{
		testEvent("graph-1", event.TypeGraphCreated, "graph-1", `{"name":"Research"}`),
	}, 0); err != nil {
		t.Fatalf("append: %v", err)
	}

	// A second writer decided against seq 0 but the journal is now at 1.
	_, err := store.AppendEvents(ctx, "graph-1", []event.Event{
		testEvent("graph-1", event.TypeNodeAdded, "node-1", `{"label":"A"}`),
	}, 0)
	if !errors.Is(err, storage.ErrConcurrencyConflict) {
		t.Fatalf("expected ErrConcurrencyConflict, got %v", err)
	}

	// Nothing must have been written by the losing append.
	latest, err := store.GetLatestEventSeq(ctx, "graph-1")
	if err != nil {
		t.Fatalf("latest seq: %v", err)
	}
	if latest != 1 {
		t.Fatalf("latest seq = %d, want 1", latest)
	}

	// Retrying with the refreshed expectation succeeds.
	if _, err := store.AppendEvents(ctx, "graph-1", []event.Event{
		testEvent("graph-1", event.TypeNodeAdded, "node-1", `{"label":"A"}`),
	}, 1); err != nil {
		t.Fatalf("retry append: %v", err)
	}
}

func TestAppendEventRejectsPreassignedFields(t *testing.T) {
	store := openTestEventStore(t)
	evt := testEvent("graph-1", event.TypeGraphCreated, "graph-1", `{"name":"Research"}`)
	evt.Seq = 7

	if _, err := store.AppendEvent(context.Background(), evt); err == nil {
		t.Fatal("expected validation error for preassigned seq")
	}
}

func TestImportEventsAdvancesHighWaterMark(t *testing.T) {
	store := openTestEventStore(t)
	ctx := context.Background()

	batch := make([]event.Event, 0, 3)
	for i := 1; i <= 3; i++ {
		evt := testEvent("graph-1", event.TypeNodeAdded, fmt.Sprintf("node-%d", i), `{"label":"N"}`)
		evt.Seq = uint64(i)
		batch = append(batch, evt)
	}
	imported, err := store.ImportEvents(ctx, "graph-1", batch)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if imported[2].Seq != 3 {
		t.Fatalf("imported last seq = %d", imported[2].Seq)
	}

	// Regular appends continue after the imported high-water mark.
	next, err := store.AppendEvent(ctx, testEvent("graph-1", event.TypeNodeAdded, "node-4", `{"label":"N4"}`))
	if err != nil {
		t.Fatalf("append after import: %v", err)
	}
	if next.Seq != 4 {
		t.Fatalf("seq after import = %d, want 4", next.Seq)
	}
	if next.PrevCID != imported[2].CID {
		t.Fatal("expected append to chain from imported head")
	}
}

func TestImportEventsRejectsGaps(t *testing.T) {
	store := openTestEventStore(t)
	ctx := context.Background()

	first := testEvent("graph-1", event.TypeNodeAdded, "node-1", `{"label":"A"}`)
	first.Seq = 1
	third := testEvent("graph-1", event.TypeNodeAdded, "node-3", `{"label":"C"}`)
	third.Seq = 3

	_, err := store.ImportEvents(ctx, "graph-1", []event.Event{first, third})
	if !errors.Is(err, apperrors.New(apperrors.CodeSequenceGap, "")) {
		t.Fatalf("expected SEQUENCE_GAP, got %v", err)
	}

	// A batch that does not continue the journal is refused too.
	fifth := testEvent("graph-1", event.TypeNodeAdded, "node-5", `{"label":"E"}`)
	fifth.Seq = 5
	_, err = store.ImportEvents(ctx, "graph-1", []event.Event{fifth})
	if !errors.Is(err, apperrors.New(apperrors.CodeSequenceGap, "")) {
		t.Fatalf("expected SEQUENCE_GAP, got %v", err)
	}
}

func TestGetEventByCIDAndSeq(t *testing.T) {
	store := openTestEventStore(t)
	ctx := context.Background()

	stored, err := store.AppendEvent(ctx, testEvent("graph-1", event.TypeGraphCreated, "graph-1", `{"name":"Research"}`))
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	byCID, err := store.GetEventByCID(ctx, stored.CID)
	if err != nil {
		t.Fatalf("get by cid: %v", err)
	}
	if byCID.ID != stored.ID || byCID.Seq != stored.Seq {
		t.Fatalf("event by cid = %+v", byCID)
	}

	bySeq, err := store.GetEventBySeq(ctx, "graph-1", 1)
	if err != nil {
		t.Fatalf("get by seq: %v", err)
	}
	if bySeq.CID != stored.CID {
		t.Fatalf("event by seq cid = %s", bySeq.CID)
	}

	if _, err := store.GetEventByCID(ctx, "bafy-missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetEventBySeq(ctx, "graph-1", 9); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListEventsPagination(t *testing.T) {
	store := openTestEventStore(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if _, err := store.AppendEvent(ctx, testEvent("graph-1", event.TypeNodeAdded, fmt.Sprintf("node-%d", i), `{"label":"N"}`)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	page, err := store.ListEvents(ctx, "graph-1", 2, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 || page[0].Seq != 3 || page[1].Seq != 4 {
		t.Fatalf("page = %+v", page)
	}
}

func TestVerifyIntegrity(t *testing.T) {
	store := openTestEventStore(t)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		if _, err := store.AppendEvent(ctx, testEvent("graph-1", event.TypeNodeAdded, fmt.Sprintf("node-%d", i), `{"label":"N"}`)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := store.VerifyIntegrity(ctx, "graph-1"); err != nil {
		t.Fatalf("verify intact journal: %v", err)
	}
	if err := store.VerifyAllIntegrity(ctx); err != nil {
		t.Fatalf("verify all: %v", err)
	}
}

func TestVerifyIntegrityDetectsTampering(t *testing.T) {
	store := openTestEventStore(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		if _, err := store.AppendEvent(ctx, testEvent("graph-1", event.TypeNodeAdded, fmt.Sprintf("node-%d", i), `{"label":"N"}`)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	if _, err := store.sqlDB.Exec(
		"UPDATE events SET payload_json = ? WHERE graph_id = ? AND seq = ?",
		[]byte(`{"label":"tampered"}`), "graph-1", 2,
	); err != nil {
		t.Fatalf("tamper: %v", err)
	}

	err := store.VerifyIntegrity(ctx, "graph-1")
	if !errors.Is(err, apperrors.New(apperrors.CodeChainBroken, "")) {
		t.Fatalf("expected CHAIN_BROKEN, got %v", err)
	}
}

func TestListEventGraphIDs(t *testing.T) {
	store := openTestEventStore(t)
	ctx := context.Background()

	ids, err := store.ListEventGraphIDs(ctx)
	if err != nil {
		t.Fatalf("list graph ids: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("graph ids = %v, want none", ids)
	}

	if _, err := store.AppendEvent(ctx, testEvent("graph-b", event.TypeGraphCreated, "graph-b", `{"name":"B"}`)); err != nil {
		t.Fatalf("append event: %v", err)
	}
	if _, err := store.AppendEvent(ctx, testEvent("graph-a", event.TypeGraphCreated, "graph-a", `{"name":"A"}`)); err != nil {
		t.Fatalf("append event: %v", err)
	}
	if _, err := store.AppendEvent(ctx, testEvent("graph-a", event.TypeNodeAdded, "node-1", `{"label":"N"}`)); err != nil {
		t.Fatalf("append event: %v", err)
	}

	ids, err = store.ListEventGraphIDs(ctx)
	if err != nil {
		t.Fatalf("list graph ids: %v", err)
	}
	if len(ids) != 2 || ids[0] != "graph-a" || ids[1] != "graph-b" {
		t.Fatalf("graph ids = %v, want [graph-a graph-b]", ids)
	}
}
