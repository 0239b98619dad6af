package event

import (
	"fmt"

	apperrors "github.com/latticeworks/lattice/internal/platform/errors"
)

// registry lists every event type the journal accepts, keyed by type.
var registry = map[Type]struct{}{
	TypeGraphCreated:     {},
	TypeGraphUpdated:     {},
	TypeGraphDeleted:     {},
	TypeNodeAdded:        {},
	TypeNodeUpdated:      {},
	TypeNodeMoved:        {},
	TypeNodeRemoved:      {},
	TypeEdgeConnected:    {},
	TypeEdgeUpdated:      {},
	TypeEdgeDisconnected: {},
}

// Known reports whether the event type is registered.
func Known(t Type) bool {
	_, ok := registry[t]
	return ok
}

// Types returns every registered event type. Order is unspecified.
func Types() []Type {
	out := make([]Type, 0, len(registry))
	for t := range registry {
		out = append(out, t)
	}
	return out
}

// ValidateForAppend checks that an event envelope is fit for persistence.
// Sequence, CID, and chain fields are storage-assigned and must not be set
// by the caller.
func ValidateForAppend(e Event) error {
	if e.GraphID == "" {
		return apperrors.New(apperrors.CodeCommandInvalid, "event graph id is required")
	}
	if !Known(e.Type) {
		return apperrors.New(apperrors.CodeCommandInvalid, fmt.Sprintf("unknown event type %q", e.Type))
	}
	if e.Timestamp.IsZero() {
		return apperrors.New(apperrors.CodeCommandInvalid, "event timestamp is required")
	}
	if e.Seq != 0 {
		return apperrors.New(apperrors.CodeCommandInvalid, "event seq is assigned on append")
	}
	if e.CID != "" || e.PrevCID != "" {
		return apperrors.New(apperrors.CodeCommandInvalid, "event chain fields are assigned on append")
	}
	return nil
}
