package projection

import (
	"context"
	"sort"

	"github.com/latticeworks/lattice/internal/graph/storage"
)

// fakeGraphStore is an in-memory storage.GraphStore for projection tests.
type fakeGraphStore struct {
	graphs map[string]storage.GraphRecord
}

func newFakeGraphStore() *fakeGraphStore {
	return &fakeGraphStore{graphs: make(map[string]storage.GraphRecord)}
}

func (s *fakeGraphStore) PutGraph(_ context.Context, g storage.GraphRecord) error {
	s.graphs[g.ID] = g
	return nil
}

func (s *fakeGraphStore) GetGraph(_ context.Context, id string) (storage.GraphRecord, error) {
	g, ok := s.graphs[id]
	if !ok {
		return storage.GraphRecord{}, storage.ErrNotFound
	}
	return g, nil
}

func (s *fakeGraphStore) ListGraphs(_ context.Context, pageSize int, pageToken string) (storage.GraphPage, error) {
	ids := make([]string, 0, len(s.graphs))
	for id := range s.graphs {
		if id > pageToken {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	page := storage.GraphPage{}
	for _, id := range ids {
		if pageSize > 0 && len(page.Graphs) == pageSize {
			page.NextPageToken = page.Graphs[len(page.Graphs)-1].ID
			break
		}
		page.Graphs = append(page.Graphs, s.graphs[id])
	}
	return page, nil
}

// fakeNodeStore is an in-memory storage.NodeStore for projection tests.
type fakeNodeStore struct {
	nodes map[string]map[string]storage.NodeRecord
}

func newFakeNodeStore() *fakeNodeStore {
	return &fakeNodeStore{nodes: make(map[string]map[string]storage.NodeRecord)}
}

func (s *fakeNodeStore) PutNode(_ context.Context, n storage.NodeRecord) error {
	graph, ok := s.nodes[n.GraphID]
	if !ok {
		graph = make(map[string]storage.NodeRecord)
		s.nodes[n.GraphID] = graph
	}
	graph[n.ID] = n
	return nil
}

func (s *fakeNodeStore) GetNode(_ context.Context, graphID, nodeID string) (storage.NodeRecord, error) {
	n, ok := s.nodes[graphID][nodeID]
	if !ok {
		return storage.NodeRecord{}, storage.ErrNotFound
	}
	return n, nil
}

func (s *fakeNodeStore) DeleteNode(_ context.Context, graphID, nodeID string) error {
	delete(s.nodes[graphID], nodeID)
	return nil
}

func (s *fakeNodeStore) ListNodesByGraph(_ context.Context, graphID string) ([]storage.NodeRecord, error) {
	ids := make([]string, 0, len(s.nodes[graphID]))
	for id := range s.nodes[graphID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	records := make([]storage.NodeRecord, 0, len(ids))
	for _, id := range ids {
		records = append(records, s.nodes[graphID][id])
	}
	return records, nil
}

// fakeEdgeStore is an in-memory storage.EdgeStore for projection tests.
type fakeEdgeStore struct {
	edges map[string]map[string]storage.EdgeRecord
}

func newFakeEdgeStore() *fakeEdgeStore {
	return &fakeEdgeStore{edges: make(map[string]map[string]storage.EdgeRecord)}
}

func (s *fakeEdgeStore) PutEdge(_ context.Context, e storage.EdgeRecord) error {
	graph, ok := s.edges[e.GraphID]
	if !ok {
		graph = make(map[string]storage.EdgeRecord)
		s.edges[e.GraphID] = graph
	}
	graph[e.ID] = e
	return nil
}

func (s *fakeEdgeStore) GetEdge(_ context.Context, graphID, edgeID string) (storage.EdgeRecord, error) {
	e, ok := s.edges[graphID][edgeID]
	if !ok {
		return storage.EdgeRecord{}, storage.ErrNotFound
	}
	return e, nil
}

func (s *fakeEdgeStore) DeleteEdge(_ context.Context, graphID, edgeID string) error {
	delete(s.edges[graphID], edgeID)
	return nil
}

func (s *fakeEdgeStore) ListEdgesByGraph(_ context.Context, graphID string) ([]storage.EdgeRecord, error) {
	ids := make([]string, 0, len(s.edges[graphID]))
	for id := range s.edges[graphID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	records := make([]storage.EdgeRecord, 0, len(ids))
	for _, id := range ids {
		records = append(records, s.edges[graphID][id])
	}
	return records, nil
}

func (s *fakeEdgeStore) ListEdgesByNode(_ context.Context, graphID, nodeID string) ([]storage.EdgeRecord, error) {
	var records []storage.EdgeRecord
	for _, e := range s.edges[graphID] {
		if e.SourceID == nodeID || e.TargetID == nodeID {
			records = append(records, e)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

// fakeWatermarkStore is an in-memory storage.WatermarkStore for projection
// tests.
type fakeWatermarkStore struct {
	marks map[string]storage.ProjectionWatermark
}

func newFakeWatermarkStore() *fakeWatermarkStore {
	return &fakeWatermarkStore{marks: make(map[string]storage.ProjectionWatermark)}
}

func (s *fakeWatermarkStore) GetWatermark(_ context.Context, graphID string) (storage.ProjectionWatermark, error) {
	mark, ok := s.marks[graphID]
	if !ok {
		return storage.ProjectionWatermark{}, storage.ErrNotFound
	}
	return mark, nil
}

func (s *fakeWatermarkStore) SetWatermark(_ context.Context, mark storage.ProjectionWatermark) error {
	s.marks[mark.GraphID] = mark
	return nil
}

func (s *fakeWatermarkStore) ListWatermarkGraphIDs(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(s.marks))
	for id := range s.marks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
