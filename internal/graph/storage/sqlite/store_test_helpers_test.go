package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/latticeworks/lattice/internal/graph/domain/event"
)

func openTestEventStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenEvents(filepath.Join(t.TempDir(), "events.sqlite"))
	if err != nil {
		t.Fatalf("open events store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close events store: %v", err)
		}
	})
	return store
}

func openTestProjectionStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenProjections(filepath.Join(t.TempDir(), "projections.sqlite"))
	if err != nil {
		t.Fatalf("open projections store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close projections store: %v", err)
		}
	})
	return store
}

func testEvent(graphID string, typ event.Type, entityID string, payload string) event.Event {
	return event.Event{
		GraphID:     graphID,
		Type:        typ,
		Timestamp:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		EntityType:  typ.Domain(),
		EntityID:    entityID,
		PayloadJSON: []byte(payload),
	}
}
