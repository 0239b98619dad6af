package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/latticeworks/lattice/internal/graph/storage"
)

// GetWatermark returns the projection watermark for a graph.
// Returns storage.ErrNotFound if no watermark exists.
func (s *Store) GetWatermark(ctx context.Context, graphID string) (storage.ProjectionWatermark, error) {
	graphID = strings.TrimSpace(graphID)
	if graphID == "" {
		return storage.ProjectionWatermark{}, fmt.Errorf("graph id is required")
	}
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT graph_id, applied_seq, expected_next_seq, updated_at FROM projection_watermarks WHERE graph_id = ?`,
		graphID,
	)
	var mark storage.ProjectionWatermark
	var updatedAtMillis int64
	err := row.Scan(&mark.GraphID, &mark.AppliedSeq, &mark.ExpectedNextSeq, &updatedAtMillis)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ProjectionWatermark{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.ProjectionWatermark{}, fmt.Errorf("get watermark: %w", err)
	}
	mark.UpdatedAt = fromMillis(updatedAtMillis)
	return mark, nil
}

// SetWatermark upserts the projection watermark for a graph.
func (s *Store) SetWatermark(ctx context.Context, mark storage.ProjectionWatermark) error {
	mark.GraphID = strings.TrimSpace(mark.GraphID)
	if mark.GraphID == "" {
		return fmt.Errorf("graph id is required")
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO projection_watermarks (graph_id, applied_seq, expected_next_seq, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (graph_id) DO UPDATE SET
		     applied_seq = excluded.applied_seq,
		     expected_next_seq = excluded.expected_next_seq,
		     updated_at = excluded.updated_at`,
		mark.GraphID,
		int64(mark.AppliedSeq),
		int64(mark.ExpectedNextSeq),
		toMillis(mark.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("set watermark: %w", err)
	}
	return nil
}

// ListWatermarkGraphIDs returns the ids of graphs with a watermark, ordered
// by graph id.
func (s *Store) ListWatermarkGraphIDs(ctx context.Context) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT graph_id FROM projection_watermarks ORDER BY graph_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list watermarks: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var graphID string
		if err := rows.Scan(&graphID); err != nil {
			return nil, fmt.Errorf("scan watermark: %w", err)
		}
		ids = append(ids, graphID)
	}
	return ids, rows.Err()
}
