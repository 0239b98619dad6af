package edge

// State captures the replayed per-edge aggregate state, keyed by edge ID in
// the enclosing aggregate.
type State struct {
	// Present indicates the edge exists and has not been disconnected.
	Present bool
	// SourceID and TargetID are the node endpoints. Immutable once connected.
	SourceID string
	TargetID string
	// Category classifies the relationship.
	Category string
	// Strength weights the relationship.
	Strength float64
	// Properties holds free-form edge attributes.
	Properties map[string]string
	// RelationshipCID is the content identifier of the current relationship.
	RelationshipCID string
}
