package graph

import "github.com/latticeworks/lattice/internal/graph/content"

// Metadata is the content-addressed identity of a graph: the fields that make
// two graphs "the same graph" regardless of when they were created.
type Metadata struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// CanonicalPayload returns the deterministic encoding of the metadata.
func (m Metadata) CanonicalPayload() ([]byte, error) {
	return content.CanonicalJSON(m)
}

// Codec identifies graph metadata in CID codec space.
func (m Metadata) Codec() uint64 {
	return content.CodecGraphMetadata
}

// CreatePayload is the payload for graph.create commands and graph.created
// events.
type CreatePayload struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	// MetadataCID is stamped by the decider on the emitted event.
	MetadataCID string `json:"metadata_cid,omitempty"`
}

// UpdatePayload is the payload for graph.update commands and graph.updated
// events. Fields holds only the keys being changed.
type UpdatePayload struct {
	Fields map[string]string `json:"fields"`
	// MetadataCID is stamped by the decider on the emitted event.
	MetadataCID string `json:"metadata_cid,omitempty"`
}

// DeletePayload is the payload for graph.delete commands and graph.deleted
// events.
type DeletePayload struct {
	Reason string `json:"reason,omitempty"`
}
