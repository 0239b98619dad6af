package graph

// State captures the replayed graph-level aggregate state used by deciders.
//
// New developers should read this as "graph metadata snapshot in-memory": it
// is derived from events and gates what operations are legal for the graph as
// a whole.
type State struct {
	// Created indicates whether graph.create has been successfully applied.
	Created bool
	// Deleted indicates the graph reached its terminal state. A deleted graph
	// accepts no further commands.
	Deleted bool
	// Name is the graph display name chosen by its creator.
	Name string
	// Description stores optional free-form context about the graph.
	Description string
	// Tags are normalized classification labels.
	Tags []string
	// MetadataCID is the content identifier of the current metadata.
	MetadataCID string
}
