package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/latticeworks/lattice/internal/graph/storage"
)

// GraphStore methods

const graphColumns = "id, name, description, tags, status, metadata_cid, node_count, edge_count, event_count, created_at, updated_at, deleted_at"

// PutGraph upserts a graph read-model record.
func (s *Store) PutGraph(ctx context.Context, g storage.GraphRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	g.ID = strings.TrimSpace(g.ID)
	if g.ID == "" {
		return fmt.Errorf("graph id is required")
	}
	if g.Status == "" {
		g.Status = storage.GraphStatusActive
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO graphs (`+graphColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		     name = excluded.name,
		     description = excluded.description,
		     tags = excluded.tags,
		     status = excluded.status,
		     metadata_cid = excluded.metadata_cid,
		     node_count = excluded.node_count,
		     edge_count = excluded.edge_count,
		     event_count = excluded.event_count,
		     updated_at = excluded.updated_at,
		     deleted_at = excluded.deleted_at`,
		g.ID,
		g.Name,
		g.Description,
		strings.Join(g.Tags, ","),
		string(g.Status),
		g.MetadataCID,
		g.NodeCount,
		g.EdgeCount,
		g.EventCount,
		toMillis(g.CreatedAt),
		toMillis(g.UpdatedAt),
		toNullMillis(g.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("put graph: %w", err)
	}
	return nil
}

// GetGraph retrieves a graph record by id.
func (s *Store) GetGraph(ctx context.Context, graphID string) (storage.GraphRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.GraphRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.GraphRecord{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+graphColumns+" FROM graphs WHERE id = ?", strings.TrimSpace(graphID))
	g, err := scanGraph(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.GraphRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.GraphRecord{}, fmt.Errorf("get graph: %w", err)
	}
	return g, nil
}

// ListGraphs returns a page of graph records ordered by id. The page token is
// the last graph id of the previous page.
func (s *Store) ListGraphs(ctx context.Context, pageSize int, pageToken string) (storage.GraphPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.GraphPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.GraphPage{}, fmt.Errorf("storage is not configured")
	}
	if pageSize <= 0 {
		pageSize = 50
	}

	// Fetch one extra row to decide whether a next page exists.
	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT "+graphColumns+" FROM graphs WHERE id > ? ORDER BY id ASC LIMIT ?",
		strings.TrimSpace(pageToken), pageSize+1)
	if err != nil {
		return storage.GraphPage{}, fmt.Errorf("list graphs: %w", err)
	}
	defer rows.Close()

	var graphs []storage.GraphRecord
	for rows.Next() {
		g, err := scanGraph(rows)
		if err != nil {
			return storage.GraphPage{}, fmt.Errorf("scan graph: %w", err)
		}
		graphs = append(graphs, g)
	}
	if err := rows.Err(); err != nil {
		return storage.GraphPage{}, fmt.Errorf("iterate graphs: %w", err)
	}

	page := storage.GraphPage{Graphs: graphs}
	if len(graphs) > pageSize {
		page.Graphs = graphs[:pageSize]
		page.NextPageToken = page.Graphs[pageSize-1].ID
	}
	return page, nil
}

func scanGraph(scanner interface{ Scan(dest ...any) error }) (storage.GraphRecord, error) {
	var g storage.GraphRecord
	var tags string
	var status string
	var createdAtMillis, updatedAtMillis int64
	var deletedAtMillis sql.NullInt64
	err := scanner.Scan(
		&g.ID,
		&g.Name,
		&g.Description,
		&tags,
		&status,
		&g.MetadataCID,
		&g.NodeCount,
		&g.EdgeCount,
		&g.EventCount,
		&createdAtMillis,
		&updatedAtMillis,
		&deletedAtMillis,
	)
	if err != nil {
		return storage.GraphRecord{}, err
	}
	if tags != "" {
		g.Tags = strings.Split(tags, ",")
	}
	g.Status = storage.GraphStatus(status)
	g.CreatedAt = fromMillis(createdAtMillis)
	g.UpdatedAt = fromMillis(updatedAtMillis)
	g.DeletedAt = fromNullMillis(deletedAtMillis)
	return g, nil
}

// NodeStore methods

const nodeColumns = "graph_id, id, label, category, properties_json, x, y, z, content_cid, created_at, updated_at"

// PutNode upserts a node read-model record.
func (s *Store) PutNode(ctx context.Context, n storage.NodeRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	n.GraphID = strings.TrimSpace(n.GraphID)
	n.ID = strings.TrimSpace(n.ID)
	if n.GraphID == "" || n.ID == "" {
		return fmt.Errorf("graph id and node id are required")
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO nodes (`+nodeColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (graph_id, id) DO UPDATE SET
		     label = excluded.label,
		     category = excluded.category,
		     properties_json = excluded.properties_json,
		     x = excluded.x,
		     y = excluded.y,
		     z = excluded.z,
		     content_cid = excluded.content_cid,
		     updated_at = excluded.updated_at`,
		n.GraphID,
		n.ID,
		n.Label,
		n.Category,
		n.PropertiesJSON,
		n.X,
		n.Y,
		n.Z,
		n.ContentCID,
		toMillis(n.CreatedAt),
		toMillis(n.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put node: %w", err)
	}
	return nil
}

// GetNode retrieves a node record.
func (s *Store) GetNode(ctx context.Context, graphID, nodeID string) (storage.NodeRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.NodeRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.NodeRecord{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+nodeColumns+" FROM nodes WHERE graph_id = ? AND id = ?",
		strings.TrimSpace(graphID), strings.TrimSpace(nodeID))
	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.NodeRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.NodeRecord{}, fmt.Errorf("get node: %w", err)
	}
	return n, nil
}

// DeleteNode removes a node record.
func (s *Store) DeleteNode(ctx context.Context, graphID, nodeID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	_, err := s.sqlDB.ExecContext(ctx,
		"DELETE FROM nodes WHERE graph_id = ? AND id = ?",
		strings.TrimSpace(graphID), strings.TrimSpace(nodeID))
	if err != nil {
		return fmt.Errorf("delete node: %w", err)
	}
	return nil
}

// ListNodesByGraph returns all nodes for a graph ordered by id.
func (s *Store) ListNodesByGraph(ctx context.Context, graphID string) ([]storage.NodeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT "+nodeColumns+" FROM nodes WHERE graph_id = ? ORDER BY id ASC",
		strings.TrimSpace(graphID))
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	defer rows.Close()

	var nodes []storage.NodeRecord
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func scanNode(scanner interface{ Scan(dest ...any) error }) (storage.NodeRecord, error) {
	var n storage.NodeRecord
	var createdAtMillis, updatedAtMillis int64
	err := scanner.Scan(
		&n.GraphID,
		&n.ID,
		&n.Label,
		&n.Category,
		&n.PropertiesJSON,
		&n.X,
		&n.Y,
		&n.Z,
		&n.ContentCID,
		&createdAtMillis,
		&updatedAtMillis,
	)
	if err != nil {
		return storage.NodeRecord{}, err
	}
	n.CreatedAt = fromMillis(createdAtMillis)
	n.UpdatedAt = fromMillis(updatedAtMillis)
	return n, nil
}

// EdgeStore methods

const edgeColumns = "graph_id, id, source_id, target_id, category, strength, properties_json, relationship_cid, created_at, updated_at"

// PutEdge upserts an edge read-model record.
func (s *Store) PutEdge(ctx context.Context, e storage.EdgeRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	e.GraphID = strings.TrimSpace(e.GraphID)
	e.ID = strings.TrimSpace(e.ID)
	if e.GraphID == "" || e.ID == "" {
		return fmt.Errorf("graph id and edge id are required")
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO edges (`+edgeColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (graph_id, id) DO UPDATE SET
		     source_id = excluded.source_id,
		     target_id = excluded.target_id,
		     category = excluded.category,
		     strength = excluded.strength,
		     properties_json = excluded.properties_json,
		     relationship_cid = excluded.relationship_cid,
		     updated_at = excluded.updated_at`,
		e.GraphID,
		e.ID,
		e.SourceID,
		e.TargetID,
		e.Category,
		e.Strength,
		e.PropertiesJSON,
		e.RelationshipCID,
		toMillis(e.CreatedAt),
		toMillis(e.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put edge: %w", err)
	}
	return nil
}

// GetEdge retrieves an edge record.
func (s *Store) GetEdge(ctx context.Context, graphID, edgeID string) (storage.EdgeRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.EdgeRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.EdgeRecord{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+edgeColumns+" FROM edges WHERE graph_id = ? AND id = ?",
		strings.TrimSpace(graphID), strings.TrimSpace(edgeID))
	e, err := scanEdge(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.EdgeRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.EdgeRecord{}, fmt.Errorf("get edge: %w", err)
	}
	return e, nil
}

// DeleteEdge removes an edge record.
func (s *Store) DeleteEdge(ctx context.Context, graphID, edgeID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	_, err := s.sqlDB.ExecContext(ctx,
		"DELETE FROM edges WHERE graph_id = ? AND id = ?",
		strings.TrimSpace(graphID), strings.TrimSpace(edgeID))
	if err != nil {
		return fmt.Errorf("delete edge: %w", err)
	}
	return nil
}

// ListEdgesByGraph returns all edges for a graph ordered by id.
func (s *Store) ListEdgesByGraph(ctx context.Context, graphID string) ([]storage.EdgeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT "+edgeColumns+" FROM edges WHERE graph_id = ? ORDER BY id ASC",
		strings.TrimSpace(graphID))
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	defer rows.Close()
	return collectEdges(rows)
}

// ListEdgesByNode returns all edges touching a node.
func (s *Store) ListEdgesByNode(ctx context.Context, graphID, nodeID string) ([]storage.EdgeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	nodeID = strings.TrimSpace(nodeID)
	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT "+edgeColumns+" FROM edges WHERE graph_id = ? AND (source_id = ? OR target_id = ?) ORDER BY id ASC",
		strings.TrimSpace(graphID), nodeID, nodeID)
	if err != nil {
		return nil, fmt.Errorf("list edges by node: %w", err)
	}
	defer rows.Close()
	return collectEdges(rows)
}

func collectEdges(rows *sql.Rows) ([]storage.EdgeRecord, error) {
	var edges []storage.EdgeRecord
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func scanEdge(scanner interface{ Scan(dest ...any) error }) (storage.EdgeRecord, error) {
	var e storage.EdgeRecord
	var createdAtMillis, updatedAtMillis int64
	err := scanner.Scan(
		&e.GraphID,
		&e.ID,
		&e.SourceID,
		&e.TargetID,
		&e.Category,
		&e.Strength,
		&e.PropertiesJSON,
		&e.RelationshipCID,
		&createdAtMillis,
		&updatedAtMillis,
	)
	if err != nil {
		return storage.EdgeRecord{}, err
	}
	e.CreatedAt = fromMillis(createdAtMillis)
	e.UpdatedAt = fromMillis(updatedAtMillis)
	return e, nil
}

// StatisticsStore methods

// GetGraphStatistics returns aggregate counts across the projections
// database. When since is nil, counts are for all time.
func (s *Store) GetGraphStatistics(ctx context.Context, since *time.Time) (storage.GraphStatistics, error) {
	if err := ctx.Err(); err != nil {
		return storage.GraphStatistics{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.GraphStatistics{}, fmt.Errorf("storage is not configured")
	}

	clause := ""
	var args []any
	if since != nil {
		clause = " WHERE created_at >= ?"
		args = []any{toMillis(*since)}
	}

	var stats storage.GraphStatistics
	counts := []struct {
		table string
		dest  *int64
	}{
		{"graphs", &stats.GraphCount},
		{"nodes", &stats.NodeCount},
		{"edges", &stats.EdgeCount},
	}
	for _, count := range counts {
		row := s.sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+count.table+clause, args...)
		if err := row.Scan(count.dest); err != nil {
			return storage.GraphStatistics{}, fmt.Errorf("count %s: %w", count.table, err)
		}
	}

	// Events live in the journal database; the projection keeps a per-graph
	// event counter current, so the total is the sum over graph records.
	row := s.sqlDB.QueryRowContext(ctx, "SELECT COALESCE(SUM(event_count), 0) FROM graphs"+clause, args...)
	if err := row.Scan(&stats.EventCount); err != nil {
		return storage.GraphStatistics{}, fmt.Errorf("sum event counts: %w", err)
	}
	return stats, nil
}
