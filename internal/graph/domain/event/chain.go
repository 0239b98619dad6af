package event

import (
	"fmt"

	"github.com/latticeworks/lattice/internal/graph/content"
	apperrors "github.com/latticeworks/lattice/internal/platform/errors"
)

// Chain assigns content identifiers to a run of events that extend a graph's
// journal. Each event's CID is computed over its canonical payload, and its
// PrevCID is set to the CID of the event before it. prevCID is the CID of the
// last persisted event, or empty when the journal is empty.
//
// Chain mutates the slice in place and returns it for convenience.
func Chain(events []Event, prevCID string) ([]Event, error) {
	for i := range events {
		value, err := content.SumString(events[i])
		if err != nil {
			return nil, err
		}
		events[i].CID = value
		events[i].PrevCID = prevCID
		prevCID = value
	}
	return events, nil
}

// VerifyChain checks the integrity of a graph's full event history. Events
// must arrive ordered by sequence. It confirms three properties: sequences
// are gap-free starting at 1, each stored CID matches a recomputation over
// the event's canonical payload, and each PrevCID links to the CID of the
// prior event.
//
// A sequence fault is reported as SEQUENCE_GAP; a hash or link fault as
// CHAIN_BROKEN. Verification reads history only and never mutates it.
func VerifyChain(events []Event) error {
	prevCID := ""
	for i, e := range events {
		want := uint64(i + 1)
		if e.Seq != want {
			return apperrors.WithMetadata(
				apperrors.CodeSequenceGap,
				fmt.Sprintf("event %s: seq %d, want %d", e.ID, e.Seq, want),
				map[string]string{"graph_id": e.GraphID},
			)
		}
		computed, err := content.SumString(e)
		if err != nil {
			return err
		}
		if e.CID != computed {
			return apperrors.WithMetadata(
				apperrors.CodeChainBroken,
				fmt.Sprintf("event %s at seq %d: stored cid does not match content", e.ID, e.Seq),
				map[string]string{"graph_id": e.GraphID, "stored_cid": e.CID, "computed_cid": computed},
			)
		}
		if e.PrevCID != prevCID {
			return apperrors.WithMetadata(
				apperrors.CodeChainBroken,
				fmt.Sprintf("event %s at seq %d: prev cid does not link to prior event", e.ID, e.Seq),
				map[string]string{"graph_id": e.GraphID, "stored_prev_cid": e.PrevCID, "expected_prev_cid": prevCID},
			)
		}
		prevCID = e.CID
	}
	return nil
}
