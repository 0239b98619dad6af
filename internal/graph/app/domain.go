package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/latticeworks/lattice/internal/graph/domain/aggregate"
	"github.com/latticeworks/lattice/internal/graph/domain/checkpoint"
	"github.com/latticeworks/lattice/internal/graph/domain/engine"
	"github.com/latticeworks/lattice/internal/graph/domain/replay"
	"github.com/latticeworks/lattice/internal/graph/storage"
)

// buildDomainHandler composes the replay-capable command engine used by write
// paths.
//
// It wires registries, snapshot-accelerated state loading, decider routing,
// and journaling once, so command execution stays consistent for every
// request.
func buildDomainHandler(events storage.EventStore, snapshots storage.SnapshotStore, snapshotEvery uint64) (engine.Handler, error) {
	if events == nil {
		return engine.Handler{}, errors.New("event store is required")
	}
	registry, err := engine.BuildCommandRegistry()
	if err != nil {
		return engine.Handler{}, fmt.Errorf("build command registry: %w", err)
	}

	checkpoints := checkpoint.NewMemory()
	folder := &aggregate.Folder{}
	durable := aggregateSnapshots{store: snapshots, now: func() time.Time { return time.Now().UTC() }}
	return engine.Handler{
		Commands:    registry,
		Journal:     events,
		Checkpoints: checkpoints,
		Snapshots:   durable,
		StateLoader: engine.ReplayStateLoader{
			Events:       events,
			Checkpoints:  checkpoints,
			Snapshots:    durable,
			Folder:       folder,
			StateFactory: func() any { return aggregate.State{} },
		},
		Decider:       engine.CoreDecider{},
		Folder:        folder,
		SnapshotEvery: snapshotEvery,
	}, nil
}

// aggregateSnapshots bridges the engine snapshot contract onto the durable
// snapshot table, encoding aggregate state as JSON.
type aggregateSnapshots struct {
	store storage.SnapshotStore
	now   func() time.Time
}

func (a aggregateSnapshots) GetState(ctx context.Context, graphID string) (any, uint64, error) {
	if a.store == nil {
		return nil, 0, replay.ErrCheckpointNotFound
	}
	snap, err := a.store.GetLatestSnapshot(ctx, graphID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, 0, replay.ErrCheckpointNotFound
		}
		return nil, 0, err
	}
	var state aggregate.State
	if err := json.Unmarshal(snap.StateJSON, &state); err != nil {
		return nil, 0, fmt.Errorf("decode snapshot state for %s: %w", graphID, err)
	}
	return state, snap.EventSeq, nil
}

func (a aggregateSnapshots) SaveState(ctx context.Context, graphID string, lastSeq uint64, state any) error {
	if a.store == nil {
		return nil
	}
	encoded, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode snapshot state for %s: %w", graphID, err)
	}
	return a.store.PutSnapshot(ctx, storage.Snapshot{
		GraphID:   graphID,
		EventSeq:  lastSeq,
		StateJSON: encoded,
		CreatedAt: a.now(),
	})
}
