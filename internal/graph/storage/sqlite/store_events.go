package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/latticeworks/lattice/internal/graph/content"
	"github.com/latticeworks/lattice/internal/graph/domain/event"
	"github.com/latticeworks/lattice/internal/graph/storage"
	apperrors "github.com/latticeworks/lattice/internal/platform/errors"
	"github.com/latticeworks/lattice/internal/platform/id"
)

// EventStore methods (event journal)

const eventColumns = "graph_id, seq, event_id, event_cid, prev_event_cid, timestamp, event_type, entity_type, entity_id, actor_id, request_id, payload_json"

// AppendEvent atomically appends a single event and returns it with sequence,
// id, and chain fields set.
func (s *Store) AppendEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	stored, err := s.AppendEvents(ctx, evt.GraphID, []event.Event{evt}, appendAtHead)
	if err != nil {
		return event.Event{}, err
	}
	return stored[0], nil
}

// appendAtHead disables the optimistic concurrency check for single appends
// that do not carry a decision-time expectation.
const appendAtHead = ^uint64(0)

// AppendEvents atomically appends a batch of events emitted by one decision.
//
// Sequence numbers are allocated contiguously from the per-graph counter, and
// each event's CID chains to its predecessor, including the last previously
// stored event for the first item in the batch. When expectedLastSeq does not
// match the journal head the append fails with ErrConcurrencyConflict and
// nothing is written.
func (s *Store) AppendEvents(ctx context.Context, graphID string, events []event.Event, expectedLastSeq uint64) ([]event.Event, error) {
	if len(events) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	graphID = strings.TrimSpace(graphID)
	if graphID == "" {
		return nil, fmt.Errorf("graph id is required")
	}

	// Validate all events before opening a transaction.
	validated := make([]event.Event, len(events))
	for i, evt := range events {
		if evt.GraphID != graphID {
			return nil, fmt.Errorf("event %d: graph id mismatch", i)
		}
		if evt.Timestamp.IsZero() {
			evt.Timestamp = time.Now().UTC()
		}
		evt.Timestamp = evt.Timestamp.UTC().Truncate(time.Millisecond)
		if err := event.ValidateForAppend(evt); err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		if evt.ID == "" {
			eventID, err := id.NewID()
			if err != nil {
				return nil, fmt.Errorf("event %d: new id: %w", i, err)
			}
			evt.ID = eventID
		}
		validated[i] = evt
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	baseSeq, err := initEventSeq(ctx, tx, graphID)
	if err != nil {
		return nil, err
	}

	if expectedLastSeq != appendAtHead && baseSeq-1 != expectedLastSeq {
		return nil, storage.ErrConcurrencyConflict
	}

	// Load the previous event CID for linking the first event in the batch.
	prevCID := ""
	if baseSeq > 1 {
		row := tx.QueryRowContext(ctx,
			"SELECT event_cid FROM events WHERE graph_id = ? AND seq = ?",
			graphID, int64(baseSeq-1),
		)
		if err := row.Scan(&prevCID); err != nil {
			return nil, fmt.Errorf("load previous event: %w", err)
		}
	}

	for i := range validated {
		validated[i].Seq = baseSeq + uint64(i)
	}
	chained, err := event.Chain(validated, prevCID)
	if err != nil {
		return nil, err
	}

	for i, evt := range chained {
		if err := insertEvent(ctx, tx, evt); err != nil {
			if isConstraintError(err) {
				return nil, storage.ErrConcurrencyConflict
			}
			return nil, fmt.Errorf("append event %d: %w", i, err)
		}
	}

	// Advance the sequence counter to account for all appended events.
	nextSeq := int64(baseSeq) + int64(len(chained))
	if _, err := tx.ExecContext(ctx,
		"UPDATE event_seq SET next_seq = ? WHERE graph_id = ?",
		nextSeq, graphID,
	); err != nil {
		return nil, fmt.Errorf("update event seq: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return chained, nil
}

// ImportEvents appends pre-sequenced events from a bulk source, advancing the
// journal's sequence high-water mark. The batch must continue the stored
// journal without gaps.
func (s *Store) ImportEvents(ctx context.Context, graphID string, events []event.Event) ([]event.Event, error) {
	if len(events) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	graphID = strings.TrimSpace(graphID)
	if graphID == "" {
		return nil, fmt.Errorf("graph id is required")
	}

	prepared := make([]event.Event, len(events))
	for i, evt := range events {
		if evt.GraphID != graphID {
			return nil, fmt.Errorf("event %d: graph id mismatch", i)
		}
		if evt.Seq == 0 {
			return nil, fmt.Errorf("event %d: import requires pre-assigned sequences", i)
		}
		if i > 0 && evt.Seq != prepared[i-1].Seq+1 {
			return nil, apperrors.New(apperrors.CodeSequenceGap, fmt.Sprintf("import batch has a gap at seq %d", evt.Seq))
		}
		if evt.Timestamp.IsZero() {
			evt.Timestamp = time.Now().UTC()
		}
		evt.Timestamp = evt.Timestamp.UTC().Truncate(time.Millisecond)
		if evt.ID == "" {
			eventID, err := id.NewID()
			if err != nil {
				return nil, fmt.Errorf("event %d: new id: %w", i, err)
			}
			evt.ID = eventID
		}
		evt.CID = ""
		evt.PrevCID = ""
		prepared[i] = evt
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	baseSeq, err := initEventSeq(ctx, tx, graphID)
	if err != nil {
		return nil, err
	}
	if prepared[0].Seq != baseSeq {
		return nil, apperrors.New(apperrors.CodeSequenceGap,
			fmt.Sprintf("import starts at seq %d, journal expects %d", prepared[0].Seq, baseSeq))
	}

	prevCID := ""
	if baseSeq > 1 {
		row := tx.QueryRowContext(ctx,
			"SELECT event_cid FROM events WHERE graph_id = ? AND seq = ?",
			graphID, int64(baseSeq-1),
		)
		if err := row.Scan(&prevCID); err != nil {
			return nil, fmt.Errorf("load previous event: %w", err)
		}
	}

	chained, err := event.Chain(prepared, prevCID)
	if err != nil {
		return nil, err
	}

	for i, evt := range chained {
		if err := insertEvent(ctx, tx, evt); err != nil {
			return nil, fmt.Errorf("import event %d: %w", i, err)
		}
	}

	// Move the high-water mark past the imported batch.
	nextSeq := int64(chained[len(chained)-1].Seq) + 1
	if _, err := tx.ExecContext(ctx,
		"UPDATE event_seq SET next_seq = ? WHERE graph_id = ?",
		nextSeq, graphID,
	); err != nil {
		return nil, fmt.Errorf("update event seq: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return chained, nil
}

// initEventSeq ensures the per-graph counter row exists and returns the next
// sequence to assign.
func initEventSeq(ctx context.Context, tx *sql.Tx, graphID string) (uint64, error) {
	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO event_seq (graph_id, next_seq) VALUES (?, 1)",
		graphID,
	); err != nil {
		return 0, fmt.Errorf("init event seq: %w", err)
	}
	var nextSeq int64
	row := tx.QueryRowContext(ctx, "SELECT next_seq FROM event_seq WHERE graph_id = ?", graphID)
	if err := row.Scan(&nextSeq); err != nil {
		return 0, fmt.Errorf("get event seq: %w", err)
	}
	return uint64(nextSeq), nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, evt event.Event) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO events ("+eventColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		evt.GraphID,
		int64(evt.Seq),
		evt.ID,
		evt.CID,
		evt.PrevCID,
		toMillis(evt.Timestamp),
		string(evt.Type),
		evt.EntityType,
		evt.EntityID,
		evt.ActorID,
		evt.RequestID,
		evt.PayloadJSON,
	)
	return err
}

func scanEvent(scanner interface{ Scan(dest ...any) error }) (event.Event, error) {
	var evt event.Event
	var seq int64
	var timestampMillis int64
	var eventType string
	err := scanner.Scan(
		&evt.GraphID,
		&seq,
		&evt.ID,
		&evt.CID,
		&evt.PrevCID,
		&timestampMillis,
		&eventType,
		&evt.EntityType,
		&evt.EntityID,
		&evt.ActorID,
		&evt.RequestID,
		&evt.PayloadJSON,
	)
	if err != nil {
		return event.Event{}, err
	}
	evt.Seq = uint64(seq)
	evt.Timestamp = fromMillis(timestampMillis)
	evt.Type = event.Type(eventType)
	return evt, nil
}

// GetEventByCID retrieves an event by its content identifier.
func (s *Store) GetEventByCID(ctx context.Context, cid string) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if s == nil || s.sqlDB == nil {
		return event.Event{}, fmt.Errorf("storage is not configured")
	}
	cid = strings.TrimSpace(cid)
	if cid == "" {
		return event.Event{}, fmt.Errorf("event cid is required")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE event_cid = ?", cid)
	evt, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return event.Event{}, storage.ErrNotFound
	}
	if err != nil {
		return event.Event{}, fmt.Errorf("get event by cid: %w", err)
	}
	return evt, nil
}

// GetEventBySeq retrieves a specific event by sequence number.
func (s *Store) GetEventBySeq(ctx context.Context, graphID string, seq uint64) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if s == nil || s.sqlDB == nil {
		return event.Event{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE graph_id = ? AND seq = ?",
		strings.TrimSpace(graphID), int64(seq))
	evt, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return event.Event{}, storage.ErrNotFound
	}
	if err != nil {
		return event.Event{}, fmt.Errorf("get event by seq: %w", err)
	}
	return evt, nil
}

// ListEvents returns events ordered by sequence ascending.
func (s *Store) ListEvents(ctx context.Context, graphID string, afterSeq uint64, limit int) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		limit = 200
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE graph_id = ? AND seq > ? ORDER BY seq ASC LIMIT ?",
		strings.TrimSpace(graphID), int64(afterSeq), limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// GetLatestEventSeq returns the latest event sequence number for a graph.
// Returns 0 if no events exist.
func (s *Store) GetLatestEventSeq(ctx context.Context, graphID string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}

	var latest sql.NullInt64
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT MAX(seq) FROM events WHERE graph_id = ?", strings.TrimSpace(graphID))
	if err := row.Scan(&latest); err != nil {
		return 0, fmt.Errorf("get latest event seq: %w", err)
	}
	if !latest.Valid {
		return 0, nil
	}
	return uint64(latest.Int64), nil
}

// VerifyIntegrity replays the full journal of a graph and checks sequence
// continuity, content identifiers, and chain links.
func (s *Store) VerifyIntegrity(ctx context.Context, graphID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	var lastSeq uint64
	prevCID := ""
	for {
		events, err := s.ListEvents(ctx, graphID, lastSeq, 200)
		if err != nil {
			return fmt.Errorf("list events graph_id=%s: %w", graphID, err)
		}
		if len(events) == 0 {
			return nil
		}
		for _, evt := range events {
			if evt.Seq != lastSeq+1 {
				return apperrors.WithMetadata(apperrors.CodeSequenceGap,
					fmt.Sprintf("event sequence gap: expected %d got %d", lastSeq+1, evt.Seq),
					map[string]string{"graph_id": graphID})
			}
			computed, err := content.SumString(evt)
			if err != nil {
				return err
			}
			if computed != evt.CID {
				return apperrors.WithMetadata(apperrors.CodeChainBroken,
					fmt.Sprintf("event cid mismatch at seq %d", evt.Seq),
					map[string]string{"graph_id": graphID, "stored_cid": evt.CID, "computed_cid": computed})
			}
			if evt.PrevCID != prevCID {
				return apperrors.WithMetadata(apperrors.CodeChainBroken,
					fmt.Sprintf("event chain link mismatch at seq %d", evt.Seq),
					map[string]string{"graph_id": graphID, "stored_prev_cid": evt.PrevCID, "expected_prev_cid": prevCID})
			}
			prevCID = evt.CID
			lastSeq = evt.Seq
		}
	}
}

// ListEventGraphIDs returns the distinct graph ids present in the journal.
func (s *Store) ListEventGraphIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(ctx, "SELECT DISTINCT graph_id FROM events ORDER BY graph_id")
	if err != nil {
		return nil, fmt.Errorf("list graph ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var graphID string
		if err := rows.Scan(&graphID); err != nil {
			return nil, fmt.Errorf("scan graph id: %w", err)
		}
		ids = append(ids, graphID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate graph ids: %w", err)
	}
	return ids, nil
}

// VerifyAllIntegrity verifies every graph journal in the store.
func (s *Store) VerifyAllIntegrity(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	graphIDs, err := s.ListEventGraphIDs(ctx)
	if err != nil {
		return err
	}
	for _, graphID := range graphIDs {
		if err := s.VerifyIntegrity(ctx, graphID); err != nil {
			return err
		}
	}
	return nil
}
