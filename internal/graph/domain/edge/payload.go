package edge

import "github.com/latticeworks/lattice/internal/graph/content"

// Relationship is the content-addressed identity of an edge: the endpoints
// plus the semantic description of how they relate.
type Relationship struct {
	SourceID   string            `json:"source_id"`
	TargetID   string            `json:"target_id"`
	Category   string            `json:"category"`
	Strength   float64           `json:"strength,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// CanonicalPayload returns the deterministic encoding of the relationship.
func (r Relationship) CanonicalPayload() ([]byte, error) {
	return content.CanonicalJSON(r)
}

// Codec identifies edge relationships in CID codec space.
func (r Relationship) Codec() uint64 {
	return content.CodecEdgeRelationship
}

// ConnectPayload is the payload for edge.connect commands and edge.connected
// events.
type ConnectPayload struct {
	SourceID   string            `json:"source_id"`
	TargetID   string            `json:"target_id"`
	Category   string            `json:"category"`
	Strength   float64           `json:"strength,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
	// RelationshipCID is stamped by the decider on the emitted event.
	RelationshipCID string `json:"relationship_cid,omitempty"`
}

// UpdatePayload is the payload for edge.update commands and edge.updated
// events. Endpoints are immutable; only the relationship semantics change.
type UpdatePayload struct {
	Category   string            `json:"category"`
	Strength   float64           `json:"strength,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
	// RelationshipCID is stamped by the decider on the emitted event.
	RelationshipCID string `json:"relationship_cid,omitempty"`
}

// DisconnectPayload is the payload for edge.disconnect commands and
// edge.disconnected events.
type DisconnectPayload struct {
	Reason string `json:"reason,omitempty"`
}
