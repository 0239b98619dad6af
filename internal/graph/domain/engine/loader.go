package engine

import (
	"context"
	"errors"

	"github.com/latticeworks/lattice/internal/graph/domain/command"
	"github.com/latticeworks/lattice/internal/graph/domain/replay"
)

// StateSnapshotStore loads and saves replay state snapshots keyed by graph.
type StateSnapshotStore interface {
	GetState(ctx context.Context, graphID string) (state any, lastSeq uint64, err error)
	SaveState(ctx context.Context, graphID string, lastSeq uint64, state any) error
}

// ReplayStateLoader replays events to build state for command handling.
//
// It is intentionally thin and composable: checkpoints/snapshots and a folder
// produce deterministic state for the current command, whether from scratch
// or from a cached prefix.
type ReplayStateLoader struct {
	Events       replay.EventStore
	Checkpoints  replay.CheckpointStore
	Snapshots    StateSnapshotStore
	Folder       replay.Folder
	StateFactory func() any
	Options      replay.Options
}

// Load replays events to reconstruct state for a graph.
//
// The load flow is the same source used at runtime and during command
// handling, which makes command outcomes reproducible in replay mode.
func (l ReplayStateLoader) Load(ctx context.Context, cmd command.Command) (any, error) {
	if l.Events == nil {
		return nil, replay.ErrEventStoreRequired
	}
	if l.Checkpoints == nil {
		return nil, replay.ErrCheckpointStoreRequired
	}
	if l.Folder == nil {
		return nil, replay.ErrFolderRequired
	}
	var state any
	options := l.Options
	snapshotLoaded := false
	if l.Snapshots != nil {
		snapshotState, snapshotSeq, err := l.Snapshots.GetState(ctx, cmd.GraphID)
		if err != nil {
			if !errors.Is(err, replay.ErrCheckpointNotFound) {
				return nil, err
			}
		} else {
			state = snapshotState
			snapshotLoaded = true
			if snapshotSeq > options.AfterSeq {
				options.AfterSeq = snapshotSeq
			}
		}
	}
	if l.StateFactory != nil && state == nil {
		state = l.StateFactory()
	}

	// Resume exactly where the loaded state left off. A checkpoint that ran
	// ahead of the snapshot must not make replay skip unfolded events.
	checkpoints := stateCheckpoints{
		inner:    l.Checkpoints,
		baseSeq:  options.AfterSeq,
		hasState: snapshotLoaded || options.AfterSeq > 0,
	}

	result, err := replay.Replay(ctx, l.Events, checkpoints, l.Folder, cmd.GraphID, state, options)
	if err != nil {
		return nil, err
	}
	return result.State, nil
}

// stateCheckpoints pins replay's resume point to the sequence of the state
// being resumed. Progress saves pass through to the real store.
type stateCheckpoints struct {
	inner    replay.CheckpointStore
	baseSeq  uint64
	hasState bool
}

func (c stateCheckpoints) Get(_ context.Context, graphID string) (replay.Checkpoint, error) {
	if !c.hasState {
		return replay.Checkpoint{}, replay.ErrCheckpointNotFound
	}
	return replay.Checkpoint{GraphID: graphID, LastSeq: c.baseSeq}, nil
}

func (c stateCheckpoints) Save(ctx context.Context, checkpoint replay.Checkpoint) error {
	return c.inner.Save(ctx, checkpoint)
}
