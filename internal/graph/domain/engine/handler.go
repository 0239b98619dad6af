package engine

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/latticeworks/lattice/internal/graph/domain/aggregate"
	"github.com/latticeworks/lattice/internal/graph/domain/command"
	"github.com/latticeworks/lattice/internal/graph/domain/event"
	"github.com/latticeworks/lattice/internal/graph/domain/replay"
)

// tracerName scopes engine spans in trace output.
const tracerName = "github.com/latticeworks/lattice/internal/graph/domain/engine"

var (
	// ErrCommandRegistryRequired indicates a missing command registry.
	ErrCommandRegistryRequired = errors.New("command registry is required")
	// ErrDeciderRequired indicates a missing decider.
	ErrDeciderRequired = errors.New("decider is required")
)

// EventJournal appends decided events to the journal with optimistic
// concurrency against the last sequence the decision was based on.
type EventJournal interface {
	AppendEvents(ctx context.Context, graphID string, events []event.Event, expectedLastSeq uint64) ([]event.Event, error)
}

// StateLoader loads domain state for deciders.
type StateLoader interface {
	Load(ctx context.Context, cmd command.Command) (any, error)
}

// Decider returns a decision for a command.
type Decider interface {
	Decide(state any, cmd command.Command, now func() time.Time) command.Decision
}

// Folder folds events into state.
type Folder interface {
	Fold(state any, evt event.Event) (any, error)
}

// Handler validates, decides, and journals commands.
type Handler struct {
	Commands    *command.Registry
	Journal     EventJournal
	Checkpoints replay.CheckpointStore
	Snapshots   StateSnapshotStore
	StateLoader StateLoader
	Decider     Decider
	Folder      Folder
	// SnapshotEvery controls snapshot cadence in event sequences. Zero or one
	// snapshots after every accepted command.
	SnapshotEvery uint64
	Now           func() time.Time
}

// Result captures execution outcomes.
type Result struct {
	Decision command.Decision
	State    any
}

// Handle validates a command and returns its decision, appending accepted
// events to the journal.
func (h Handler) Handle(ctx context.Context, cmd command.Command) (command.Decision, error) {
	result, err := h.Execute(ctx, cmd)
	return result.Decision, err
}

// Execute validates a command, replays state, decides, journals accepted
// events, and folds them back into the returned state. Each execution runs
// inside a span carrying the command type and graph identity.
func (h Handler) Execute(ctx context.Context, cmd command.Command) (Result, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "engine.execute",
		trace.WithAttributes(
			attribute.String("graph.id", cmd.GraphID),
			attribute.String("graph.command", string(cmd.Type)),
		))
	defer span.End()

	result, err := h.execute(ctx, cmd)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return result, err
	}
	span.SetAttributes(
		attribute.Int("graph.events", len(result.Decision.Events)),
		attribute.Int("graph.rejections", len(result.Decision.Rejections)),
	)
	return result, nil
}

func (h Handler) execute(ctx context.Context, cmd command.Command) (Result, error) {
	if h.Commands == nil {
		return Result{}, ErrCommandRegistryRequired
	}
	validated, err := h.Commands.ValidateForDecision(cmd)
	if err != nil {
		return Result{}, err
	}
	cmd = validated

	if h.Decider == nil {
		return Result{}, ErrDeciderRequired
	}

	var state any
	if h.StateLoader != nil {
		state, err = h.StateLoader.Load(ctx, cmd)
		if err != nil {
			return Result{}, err
		}
	}
	baseSeq := stateVersion(state)

	now := h.Now
	if now == nil {
		now = time.Now
	}
	decision := h.Decider.Decide(state, cmd, now)
	if len(decision.Rejections) > 0 || len(decision.Events) == 0 {
		return Result{Decision: decision, State: state}, nil
	}

	if h.Journal != nil {
		stored, err := h.Journal.AppendEvents(ctx, cmd.GraphID, decision.Events, baseSeq)
		if err != nil {
			return Result{}, err
		}
		decision.Events = stored
	}

	if h.Folder != nil {
		for _, evt := range decision.Events {
			state, err = h.Folder.Fold(state, evt)
			if err != nil {
				return Result{}, err
			}
		}
	}

	last := decision.Events[len(decision.Events)-1]
	if last.Seq > 0 {
		if h.Checkpoints != nil {
			if err := h.Checkpoints.Save(ctx, replay.Checkpoint{
				GraphID:   cmd.GraphID,
				LastSeq:   last.Seq,
				UpdatedAt: time.Now().UTC(),
			}); err != nil {
				return Result{}, err
			}
		}
		if h.Snapshots != nil && h.shouldSnapshot(last.Seq) {
			if err := h.Snapshots.SaveState(ctx, cmd.GraphID, last.Seq, state); err != nil {
				return Result{}, err
			}
		}
	}

	return Result{Decision: decision, State: state}, nil
}

func (h Handler) shouldSnapshot(lastSeq uint64) bool {
	if h.SnapshotEvery <= 1 {
		return true
	}
	return lastSeq%h.SnapshotEvery == 0
}

// stateVersion extracts the journal position the state was replayed to. A
// non-aggregate or nil state reads as version zero, the empty journal.
func stateVersion(state any) uint64 {
	agg, err := aggregate.AssertState[aggregate.State](state)
	if err != nil {
		return 0
	}
	return agg.Journey.Version
}
