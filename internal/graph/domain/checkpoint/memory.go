package checkpoint

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/latticeworks/lattice/internal/graph/domain/aggregate"
	"github.com/latticeworks/lattice/internal/graph/domain/edge"
	"github.com/latticeworks/lattice/internal/graph/domain/node"
	"github.com/latticeworks/lattice/internal/graph/domain/replay"
)

var (
	// ErrGraphIDRequired indicates a missing graph id.
	ErrGraphIDRequired = errors.New("graph id is required")
)

// Memory stores checkpoints in memory.
type Memory struct {
	mu          sync.Mutex
	checkpoints map[string]replay.Checkpoint
	states      map[string]any
}

// NewMemory creates a new in-memory checkpoint store.
func NewMemory() *Memory {
	return &Memory{
		checkpoints: make(map[string]replay.Checkpoint),
		states:      make(map[string]any),
	}
}

// Get retrieves a checkpoint by graph id.
func (m *Memory) Get(ctx context.Context, graphID string) (replay.Checkpoint, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return replay.Checkpoint{}, err
		}
	}
	if m == nil {
		return replay.Checkpoint{}, errors.New("checkpoint store is required")
	}
	graphID = strings.TrimSpace(graphID)
	if graphID == "" {
		return replay.Checkpoint{}, ErrGraphIDRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	checkpoint, ok := m.checkpoints[graphID]
	if !ok {
		return replay.Checkpoint{}, replay.ErrCheckpointNotFound
	}
	return checkpoint, nil
}

// Save persists a checkpoint.
func (m *Memory) Save(ctx context.Context, checkpoint replay.Checkpoint) error {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	if m == nil {
		return errors.New("checkpoint store is required")
	}
	graphID := strings.TrimSpace(checkpoint.GraphID)
	if graphID == "" {
		return ErrGraphIDRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	checkpoint.GraphID = graphID
	m.checkpoints[graphID] = checkpoint
	return nil
}

// GetState retrieves a replay state snapshot and its sequence.
func (m *Memory) GetState(ctx context.Context, graphID string) (any, uint64, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
	}
	if m == nil {
		return nil, 0, errors.New("checkpoint store is required")
	}
	graphID = strings.TrimSpace(graphID)
	if graphID == "" {
		return nil, 0, ErrGraphIDRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot, ok := m.states[graphID]
	if !ok {
		return nil, 0, replay.ErrCheckpointNotFound
	}
	checkpoint, ok := m.checkpoints[graphID]
	if !ok {
		return nil, 0, replay.ErrCheckpointNotFound
	}

	return cloneSnapshotState(snapshot), checkpoint.LastSeq, nil
}

// SaveState persists a replay state snapshot.
func (m *Memory) SaveState(ctx context.Context, graphID string, lastSeq uint64, state any) error {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	if m == nil {
		return errors.New("checkpoint store is required")
	}
	graphID = strings.TrimSpace(graphID)
	if graphID == "" {
		return ErrGraphIDRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.states[graphID] = cloneSnapshotState(state)
	m.checkpoints[graphID] = replay.Checkpoint{
		GraphID:   graphID,
		LastSeq:   lastSeq,
		UpdatedAt: time.Now().UTC(),
	}
	return nil
}

// cloneSnapshotState deep-copies aggregate state so callers cannot mutate the
// stored snapshot through shared maps.
func cloneSnapshotState(state any) any {
	switch typed := state.(type) {
	case aggregate.State:
		return cloneAggregateState(typed)
	case *aggregate.State:
		if typed == nil {
			return aggregate.State{}
		}
		return cloneAggregateState(*typed)
	default:
		return state
	}
}

func cloneAggregateState(source aggregate.State) aggregate.State {
	cloned := source
	if source.Nodes != nil {
		cloned.Nodes = make(map[string]node.State, len(source.Nodes))
		for key, value := range source.Nodes {
			cloned.Nodes[key] = value
		}
	}
	if source.Edges != nil {
		cloned.Edges = make(map[string]edge.State, len(source.Edges))
		for key, value := range source.Edges {
			cloned.Edges[key] = value
		}
	}
	return cloned
}
