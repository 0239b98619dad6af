package node

// State captures the replayed per-node aggregate state, keyed by node ID in
// the enclosing aggregate.
type State struct {
	// Present indicates the node exists and has not been removed.
	Present bool
	// Label is the node display label.
	Label string
	// Category classifies the node.
	Category string
	// Properties holds free-form node attributes.
	Properties map[string]string
	// X, Y, Z locate the node in layout space.
	X, Y, Z float64
	// ContentCID is the content identifier of the node's current content.
	ContentCID string
}
