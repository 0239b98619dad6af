package storage

import (
	"context"
	"time"

	"github.com/latticeworks/lattice/internal/graph/domain/event"
	apperrors "github.com/latticeworks/lattice/internal/platform/errors"
)

// ErrNotFound indicates a requested persistence record is missing.
// Callers use this to differentiate between legitimate "no such entity" states
// and transport or data corruption failures.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// ErrConcurrencyConflict indicates an append raced with another writer: the
// journal moved past the sequence the caller decided against. The caller
// should reload state and retry the command.
var ErrConcurrencyConflict = apperrors.New(apperrors.CodeConcurrencyConflict, "event journal advanced past expected sequence")

// GraphStatus is the lifecycle state of a graph read model.
type GraphStatus string

const (
	// GraphStatusActive indicates the graph accepts commands.
	GraphStatusActive GraphStatus = "active"
	// GraphStatusDeleted indicates the graph reached its terminal state.
	GraphStatusDeleted GraphStatus = "deleted"
)

// GraphRecord captures the projection-oriented graph metadata that APIs read.
type GraphRecord struct {
	ID          string
	Name        string
	Description string
	Tags        []string
	Status      GraphStatus
	MetadataCID string
	NodeCount   int
	EdgeCount   int
	EventCount  int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// NodeRecord captures per-node read state used by graph detail views.
type NodeRecord struct {
	ID             string
	GraphID        string
	Label          string
	Category       string
	PropertiesJSON []byte
	X, Y, Z        float64
	ContentCID     string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EdgeRecord captures per-edge read state used by graph detail views.
type EdgeRecord struct {
	ID              string
	GraphID         string
	SourceID        string
	TargetID        string
	Category        string
	Strength        float64
	PropertiesJSON  []byte
	RelationshipCID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// GraphPage describes a page of graph records.
type GraphPage struct {
	Graphs        []GraphRecord
	NextPageToken string
}

// GraphStore owns the graph-level projection used by list/detail screens.
type GraphStore interface {
	PutGraph(ctx context.Context, g GraphRecord) error
	GetGraph(ctx context.Context, id string) (GraphRecord, error)
	// ListGraphs returns a page of graph records starting after the page token.
	ListGraphs(ctx context.Context, pageSize int, pageToken string) (GraphPage, error)
}

// NodeStore owns node read state for a graph.
type NodeStore interface {
	PutNode(ctx context.Context, n NodeRecord) error
	GetNode(ctx context.Context, graphID, nodeID string) (NodeRecord, error)
	DeleteNode(ctx context.Context, graphID, nodeID string) error
	// ListNodesByGraph returns all nodes for a graph ordered by id.
	ListNodesByGraph(ctx context.Context, graphID string) ([]NodeRecord, error)
}

// EdgeStore owns edge read state for a graph.
type EdgeStore interface {
	PutEdge(ctx context.Context, e EdgeRecord) error
	GetEdge(ctx context.Context, graphID, edgeID string) (EdgeRecord, error)
	DeleteEdge(ctx context.Context, graphID, edgeID string) error
	// ListEdgesByGraph returns all edges for a graph ordered by id.
	ListEdgesByGraph(ctx context.Context, graphID string) ([]EdgeRecord, error)
	// ListEdgesByNode returns all edges touching a node.
	ListEdgesByNode(ctx context.Context, graphID, nodeID string) ([]EdgeRecord, error)
}

// EventStore owns the event journal boundary that drives replay and command
// rehydration; this is the source of truth for state reconstruction.
type EventStore interface {
	// AppendEvent atomically appends a single event and returns it with
	// sequence, id, and chain fields set.
	AppendEvent(ctx context.Context, evt event.Event) (event.Event, error)
	// AppendEvents atomically appends a batch of events emitted by one
	// decision. When expectedLastSeq does not match the journal head the
	// append fails with ErrConcurrencyConflict and nothing is written.
	AppendEvents(ctx context.Context, graphID string, events []event.Event, expectedLastSeq uint64) ([]event.Event, error)
	// ImportEvents appends pre-sequenced events from a bulk source, advancing
	// the journal's sequence high-water mark. Sequences must continue the
	// journal without gaps.
	ImportEvents(ctx context.Context, graphID string, events []event.Event) ([]event.Event, error)
	// GetEventByCID retrieves an event by its content identifier.
	GetEventByCID(ctx context.Context, cid string) (event.Event, error)
	// GetEventBySeq retrieves a specific event by sequence number.
	GetEventBySeq(ctx context.Context, graphID string, seq uint64) (event.Event, error)
	// ListEvents returns events ordered by sequence ascending.
	ListEvents(ctx context.Context, graphID string, afterSeq uint64, limit int) ([]event.Event, error)
	// GetLatestEventSeq returns the latest event sequence number for a graph.
	// Returns 0 if no events exist.
	GetLatestEventSeq(ctx context.Context, graphID string) (uint64, error)
	// ListEventGraphIDs returns the distinct graph ids present in the journal.
	ListEventGraphIDs(ctx context.Context) ([]string, error)
	// VerifyIntegrity replays the full journal of a graph and checks sequence
	// continuity, content identifiers, and chain links.
	VerifyIntegrity(ctx context.Context, graphID string) error
}

// Snapshot is a materialized aggregate state checkpoint derived from the
// event journal. Snapshots are accelerators for replay, not the source of
// authority.
type Snapshot struct {
	GraphID   string
	EventSeq  uint64
	StateJSON []byte
	CreatedAt time.Time
}

// SnapshotStore persists replay checkpoints used to jump event replay work.
type SnapshotStore interface {
	// PutSnapshot stores a snapshot.
	PutSnapshot(ctx context.Context, snap Snapshot) error
	// GetLatestSnapshot retrieves the most recent snapshot for a graph.
	GetLatestSnapshot(ctx context.Context, graphID string) (Snapshot, error)
	// ListSnapshots returns snapshots ordered by event sequence descending.
	ListSnapshots(ctx context.Context, graphID string, limit int) ([]Snapshot, error)
}

// ProjectionWatermark tracks how far the projection has applied the journal
// for one graph.
type ProjectionWatermark struct {
	GraphID         string
	AppliedSeq      uint64
	ExpectedNextSeq uint64
	UpdatedAt       time.Time
}

// WatermarkStore persists projection progress so restarts resume instead of
// reprocessing from scratch.
type WatermarkStore interface {
	// GetWatermark retrieves the watermark for a graph.
	GetWatermark(ctx context.Context, graphID string) (ProjectionWatermark, error)
	// SetWatermark stores the watermark for a graph.
	SetWatermark(ctx context.Context, mark ProjectionWatermark) error
	// ListWatermarkGraphIDs returns the ids of graphs with a watermark.
	ListWatermarkGraphIDs(ctx context.Context) ([]string, error)
}

// GraphStatistics contains aggregate counters used by dashboards and
// housekeeping.
type GraphStatistics struct {
	GraphCount int64
	NodeCount  int64
	EdgeCount  int64
	EventCount int64
}

// StatisticsStore centralizes aggregate count queries for operational
// observability.
type StatisticsStore interface {
	// GetGraphStatistics returns aggregate counts.
	// When since is nil, counts are for all time.
	GetGraphStatistics(ctx context.Context, since *time.Time) (GraphStatistics, error)
}

// ProjectionStore groups read-model-oriented stores consumed by APIs and
// queries.
type ProjectionStore interface {
	GraphStore
	NodeStore
	EdgeStore
	WatermarkStore
	StatisticsStore
}

// Store is a composite interface for all persistence concerns used across
// event sourcing, projection application, and queries.
type Store interface {
	GraphStore
	NodeStore
	EdgeStore
	EventStore
	SnapshotStore
	WatermarkStore
	StatisticsStore
	Close() error
}
