package node

import "github.com/latticeworks/lattice/internal/graph/content"

// Content is the content-addressed identity of a node: two nodes carrying the
// same label, category, and properties hash to the same CID no matter where
// they sit or when they were added.
type Content struct {
	Label      string            `json:"label"`
	Category   string            `json:"category,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// CanonicalPayload returns the deterministic encoding of the node content.
func (c Content) CanonicalPayload() ([]byte, error) {
	return content.CanonicalJSON(c)
}

// Codec identifies node content in CID codec space.
func (c Content) Codec() uint64 {
	return content.CodecNodeContent
}

// Position locates a node in layout space. Positions are presentation state
// and never contribute to the content CID.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z,omitempty"`
}

// AddPayload is the payload for node.add commands and node.added events.
type AddPayload struct {
	Label      string            `json:"label"`
	Category   string            `json:"category,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
	Position   Position          `json:"position"`
	// ContentCID is stamped by the decider on the emitted event.
	ContentCID string `json:"content_cid,omitempty"`
}

// UpdatePayload is the payload for node.update commands and node.updated
// events. The content is replaced wholesale.
type UpdatePayload struct {
	Label      string            `json:"label"`
	Category   string            `json:"category,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
	// ContentCID is stamped by the decider on the emitted event.
	ContentCID string `json:"content_cid,omitempty"`
}

// MovePayload is the payload for node.move commands and node.moved events.
type MovePayload struct {
	Position Position `json:"position"`
}

// RemovePayload is the payload for node.remove commands and node.removed
// events.
type RemovePayload struct {
	Reason string `json:"reason,omitempty"`
}
