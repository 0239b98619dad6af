package aggregate

import (
	"sync"

	"github.com/latticeworks/lattice/internal/graph/domain/event"
)

// Folder folds events into aggregate state.
//
// The folder is where the domain boundary stays deterministic: each event
// type updates exactly one aggregate slice and is replayed identically
// whether during request execution or historical reconstruction. Named
// "Folder" (not "Applier") to distinguish pure state folds from
// projection.Applier, which performs side-effecting I/O writes to stores.
//
// Subdomain dispatch is declarative: foldEntries() defines the mapping from
// event types to fold functions. Adding a new subdomain requires only adding
// an entry in fold_registry.go.
type Folder struct {
	// foldIndex is lazily built on first Fold to avoid dispatch into fold
	// functions that cannot possibly handle the event type.
	foldOnce  sync.Once
	foldIndex map[event.Type]func(*State, event.Event) error
}

// initFoldIndex builds a type-to-handler lookup from the declarative fold entries.
func (a *Folder) initFoldIndex() {
	a.foldOnce.Do(func() {
		entries := foldEntries()
		a.foldIndex = make(map[event.Type]func(*State, event.Event) error)
		for _, entry := range entries {
			fn := entry.fold
			for _, t := range entry.types() {
				a.foldIndex[t] = fn
			}
		}
	})
}

// FoldDispatchedTypes returns the union of all event types wired into the
// folder's dispatch index. Tests use this to verify that every registered
// event type actually reaches a fold function at runtime.
func (a *Folder) FoldDispatchedTypes() []event.Type {
	a.initFoldIndex()
	types := make([]event.Type, 0, len(a.foldIndex))
	for t := range a.foldIndex {
		types = append(types, t)
	}
	return types
}

// Fold applies a single event to aggregate state.
//
// The function only mutates aggregate state through fold functions so state
// transitions remain visible in one place per subdomain and replay behavior
// matches request-time behavior. The journey bookkeeping advances on every
// folded event, including types no subdomain handles.
func (a *Folder) Fold(state any, evt event.Event) (any, error) {
	a.initFoldIndex()

	current, err := AssertState[State](state)
	if err != nil {
		return State{}, err
	}

	if fn, ok := a.foldIndex[evt.Type]; ok {
		if err := fn(&current, evt); err != nil {
			return current, err
		}
	}

	current.Journey.Version = evt.Seq
	current.Journey.EventCount++
	current.Journey.LastEventID = evt.ID
	if evt.CID != "" {
		current.Journey.LastEventCID = evt.CID
	}

	return current, nil
}
