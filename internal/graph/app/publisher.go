package app

import (
	"context"
	"log"

	"github.com/latticeworks/lattice/internal/graph/domain/event"
)

// Publisher delivers committed events to downstream subscribers.
//
// Publication is strictly after durability: the journal append has already
// committed by the time Publish is called, and a publish failure never rolls
// the append back. Subscribers that miss a publish catch up from the journal.
type Publisher interface {
	Publish(ctx context.Context, subject string, evt event.Event) error
}

// Subject returns the dotted subject for an event, in the form
// graphs.<entity>.<event>.
func Subject(evt event.Event) string {
	return "graphs." + string(evt.Type)
}

// LogPublisher writes published events to the process log. It stands in for
// a broker in single-process deployments.
type LogPublisher struct{}

// Publish logs the event subject and identity.
func (LogPublisher) Publish(_ context.Context, subject string, evt event.Event) error {
	log.Printf("publish %s graph=%s seq=%d cid=%s", subject, evt.GraphID, evt.Seq, evt.CID)
	return nil
}
