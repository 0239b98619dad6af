package event

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/latticeworks/lattice/internal/graph/content"
)

// Type identifies the type of a graph event.
type Type string

// Graph lifecycle events.
const (
	// TypeGraphCreated records the creation of a graph.
	TypeGraphCreated Type = "graph.created"
	// TypeGraphUpdated records updates to graph metadata.
	TypeGraphUpdated Type = "graph.updated"
	// TypeGraphDeleted records the deletion of a graph. Terminal: a deleted
	// graph accepts no further commands, though its history is retained.
	TypeGraphDeleted Type = "graph.deleted"
)

// Node events.
const (
	// TypeNodeAdded records a node joining a graph.
	TypeNodeAdded Type = "node.added"
	// TypeNodeUpdated records updates to node content.
	TypeNodeUpdated Type = "node.updated"
	// TypeNodeMoved records a change to a node's spatial position.
	TypeNodeMoved Type = "node.moved"
	// TypeNodeRemoved records a node leaving a graph.
	TypeNodeRemoved Type = "node.removed"
)

// Edge events.
const (
	// TypeEdgeConnected records an edge connecting two nodes.
	TypeEdgeConnected Type = "edge.connected"
	// TypeEdgeUpdated records updates to an edge relationship.
	TypeEdgeUpdated Type = "edge.updated"
	// TypeEdgeDisconnected records an edge being removed.
	TypeEdgeDisconnected Type = "edge.disconnected"
)

// Event represents an immutable event in a graph's journal.
type Event struct {
	// ID is the event identity. Assigned on append when empty.
	ID string
	// GraphID is the aggregate this event belongs to.
	GraphID string
	// Seq is the event sequence number within the graph (starts at 1).
	// Assigned by storage on append.
	Seq uint64
	// Type identifies the kind of event.
	Type Type
	// Timestamp is when the event occurred.
	Timestamp time.Time
	// EntityType is the type of entity affected (graph, node, edge).
	EntityType string
	// EntityID is the ID of the entity affected.
	EntityID string
	// ActorID identifies who triggered the event, when known.
	ActorID string
	// RequestID correlates related events.
	RequestID string
	// CID is the content-addressed identity of this event.
	// Assigned by storage on append.
	CID string
	// PrevCID is the previous event's CID in the same chain (empty for the
	// first event). Assigned by storage on append.
	PrevCID string
	// PayloadJSON holds event-specific data as JSON.
	PayloadJSON []byte
}

// IsValid reports whether the event type is usable.
func (t Type) IsValid() bool {
	return strings.TrimSpace(string(t)) != ""
}

// Domain returns the entity prefix of the event type (e.g., "graph", "node").
func (t Type) Domain() string {
	for i, c := range t {
		if c == '.' {
			return string(t[:i])
		}
	}
	return string(t)
}

// canonicalEnvelope is the deterministic subset of envelope fields covered by
// the event CID. Timestamps and the wrapper event ID are excluded so the
// identifier depends only on what the event says, not when it was recorded.
type canonicalEnvelope struct {
	GraphID    string          `json:"graph_id"`
	Seq        uint64          `json:"seq"`
	Type       Type            `json:"type"`
	EntityType string          `json:"entity_type,omitempty"`
	EntityID   string          `json:"entity_id,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// CanonicalPayload returns the deterministic byte encoding of the event's
// identity-bearing fields. The embedded payload is canonicalized so key order
// in the stored JSON cannot perturb the CID.
func (e Event) CanonicalPayload() ([]byte, error) {
	return content.CanonicalJSON(canonicalEnvelope{
		GraphID:    e.GraphID,
		Seq:        e.Seq,
		Type:       e.Type,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Payload:    json.RawMessage(e.PayloadJSON),
	})
}

// Codec identifies event envelopes in CID codec space.
func (e Event) Codec() uint64 {
	return content.CodecEvent
}
