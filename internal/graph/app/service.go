package app

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/latticeworks/lattice/internal/graph/domain/command"
	"github.com/latticeworks/lattice/internal/graph/domain/engine"
	"github.com/latticeworks/lattice/internal/graph/domain/event"
	"github.com/latticeworks/lattice/internal/graph/projection"
	"github.com/latticeworks/lattice/internal/graph/storage"
)

// Service wiring errors.
var (
	ErrEventStoreRequired      = errors.New("event store is required")
	ErrProjectionStoreRequired = errors.New("projection store is required")
)

// Service is the application surface for graph commands and queries.
//
// Writes flow through the domain engine into the journal; committed events
// are then applied to the projection inline and handed to the publisher.
// Reads come from the projection and the journal directly.
type Service struct {
	Domain      engine.Handler
	Events      storage.EventStore
	Projections storage.ProjectionStore
	Projection  *projection.OrderedApplier
	Publisher   Publisher
}

// GraphDetail is a graph read model with its nodes and edges resolved.
type GraphDetail struct {
	Graph storage.GraphRecord
	Nodes []storage.NodeRecord
	Edges []storage.EdgeRecord
}

// SubmitCommand validates and executes a command.
//
// Accepted events are journaled before this returns. Projection application
// and publication happen after durability; their failures are logged and
// surfaced through gap repair, never by rolling back the append.
func (s *Service) SubmitCommand(ctx context.Context, cmd command.Command) (engine.Result, error) {
	result, err := s.Domain.Execute(ctx, cmd)
	if err != nil {
		return engine.Result{}, err
	}
	if len(result.Decision.Rejections) > 0 {
		return result, nil
	}
	for _, evt := range result.Decision.Events {
		s.projectEvent(ctx, evt)
		s.publishEvent(ctx, evt)
	}
	return result, nil
}

func (s *Service) projectEvent(ctx context.Context, evt event.Event) {
	if s.Projection == nil {
		return
	}
	if err := s.Projection.Ingest(ctx, evt); err != nil {
		log.Printf("project %s graph=%s seq=%d: %v", evt.Type, evt.GraphID, evt.Seq, err)
	}
}

func (s *Service) publishEvent(ctx context.Context, evt event.Event) {
	if s.Publisher == nil {
		return
	}
	if err := s.Publisher.Publish(ctx, Subject(evt), evt); err != nil {
		log.Printf("publish %s graph=%s seq=%d: %v", evt.Type, evt.GraphID, evt.Seq, err)
	}
}

// GetGraph returns the graph read model.
func (s *Service) GetGraph(ctx context.Context, graphID string) (storage.GraphRecord, error) {
	if s.Projections == nil {
		return storage.GraphRecord{}, ErrProjectionStoreRequired
	}
	return s.Projections.GetGraph(ctx, graphID)
}

// ListGraphs returns a page of graph read models.
func (s *Service) ListGraphs(ctx context.Context, pageSize int, pageToken string) (storage.GraphPage, error) {
	if s.Projections == nil {
		return storage.GraphPage{}, ErrProjectionStoreRequired
	}
	return s.Projections.ListGraphs(ctx, pageSize, pageToken)
}

// GetGraphDetail returns a graph with its nodes and edges.
func (s *Service) GetGraphDetail(ctx context.Context, graphID string) (GraphDetail, error) {
	if s.Projections == nil {
		return GraphDetail{}, ErrProjectionStoreRequired
	}
	record, err := s.Projections.GetGraph(ctx, graphID)
	if err != nil {
		return GraphDetail{}, err
	}
	nodes, err := s.Projections.ListNodesByGraph(ctx, graphID)
	if err != nil {
		return GraphDetail{}, err
	}
	edges, err := s.Projections.ListEdgesByGraph(ctx, graphID)
	if err != nil {
		return GraphDetail{}, err
	}
	return GraphDetail{Graph: record, Nodes: nodes, Edges: edges}, nil
}

// ListHistory returns journal events for a graph ordered by sequence,
// starting after afterSeq.
func (s *Service) ListHistory(ctx context.Context, graphID string, afterSeq uint64, limit int) ([]event.Event, error) {
	if s.Events == nil {
		return nil, ErrEventStoreRequired
	}
	return s.Events.ListEvents(ctx, graphID, afterSeq, limit)
}

// GetEventByCID resolves a journal event by content identifier.
func (s *Service) GetEventByCID(ctx context.Context, cid string) (event.Event, error) {
	if s.Events == nil {
		return event.Event{}, ErrEventStoreRequired
	}
	return s.Events.GetEventByCID(ctx, cid)
}

// VerifyGraph checks the full journal of a graph for sequence gaps, content
// identifier mismatches, and broken chain links.
func (s *Service) VerifyGraph(ctx context.Context, graphID string) error {
	if s.Events == nil {
		return ErrEventStoreRequired
	}
	return s.Events.VerifyIntegrity(ctx, graphID)
}

// Statistics returns aggregate counts, optionally restricted to graphs
// updated since the cutoff.
func (s *Service) Statistics(ctx context.Context, since *time.Time) (storage.GraphStatistics, error) {
	if s.Projections == nil {
		return storage.GraphStatistics{}, ErrProjectionStoreRequired
	}
	return s.Projections.GetGraphStatistics(ctx, since)
}
