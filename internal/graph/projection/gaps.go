package projection

import (
	"context"
	"errors"
	"fmt"

	"github.com/latticeworks/lattice/internal/graph/domain/event"
	"github.com/latticeworks/lattice/internal/graph/storage"
)

// gapRepairPageSize bounds each journal read during gap repair.
const gapRepairPageSize = 200

// ProjectionGap describes a graph whose projection watermark trails the
// event journal.
type ProjectionGap struct {
	GraphID      string
	WatermarkSeq uint64
	JournalSeq   uint64
}

// GapRepairResult summarizes a repaired projection gap.
type GapRepairResult struct {
	GraphID        string
	EventsReplayed int
}

// eventHighWaterStore exposes the journal population and high-water mark per
// graph.
type eventHighWaterStore interface {
	ListEventGraphIDs(ctx context.Context) ([]string, error)
	GetLatestEventSeq(ctx context.Context, graphID string) (uint64, error)
}

// gapEventSource lists journal events for gap replay.
type gapEventSource interface {
	eventHighWaterStore
	ListEvents(ctx context.Context, graphID string, afterSeq uint64, limit int) ([]event.Event, error)
}

// DetectProjectionGaps compares each journaled graph's watermark against the
// journal high-water mark and returns the graphs whose projections are
// behind.
//
// Enumeration walks the journal, not the watermark table: a graph whose
// events were appended but never applied has no watermark row yet, and a
// crash between append and apply must still be repairable. A missing
// watermark reads as applied sequence zero.
func DetectProjectionGaps(ctx context.Context, watermarks storage.WatermarkStore, events eventHighWaterStore) ([]ProjectionGap, error) {
	graphIDs, err := events.ListEventGraphIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list journal graph ids: %w", err)
	}

	var gaps []ProjectionGap
	for _, graphID := range graphIDs {
		appliedSeq := uint64(0)
		mark, err := watermarks.GetWatermark(ctx, graphID)
		switch {
		case err == nil:
			appliedSeq = mark.AppliedSeq
		case errors.Is(err, storage.ErrNotFound):
		default:
			return nil, fmt.Errorf("get watermark for %s: %w", graphID, err)
		}
		journalSeq, err := events.GetLatestEventSeq(ctx, graphID)
		if err != nil {
			return nil, fmt.Errorf("get latest event seq for %s: %w", graphID, err)
		}
		if journalSeq > appliedSeq {
			gaps = append(gaps, ProjectionGap{
				GraphID:      graphID,
				WatermarkSeq: appliedSeq,
				JournalSeq:   journalSeq,
			})
		}
	}
	return gaps, nil
}

// RepairProjectionGaps replays missed journal events through the applier for
// every detected gap, advancing the watermark as events apply.
func RepairProjectionGaps(ctx context.Context, watermarks storage.WatermarkStore, events gapEventSource, applier Applier) ([]GapRepairResult, error) {
	gaps, err := DetectProjectionGaps(ctx, watermarks, events)
	if err != nil {
		return nil, err
	}

	var results []GapRepairResult
	for _, gap := range gaps {
		replayed, err := replayGap(ctx, watermarks, events, applier, gap)
		if err != nil {
			return results, err
		}
		results = append(results, GapRepairResult{
			GraphID:        gap.GraphID,
			EventsReplayed: replayed,
		})
	}
	return results, nil
}

func replayGap(ctx context.Context, watermarks storage.WatermarkStore, events gapEventSource, applier Applier, gap ProjectionGap) (int, error) {
	replayed := 0
	afterSeq := gap.WatermarkSeq
	for afterSeq < gap.JournalSeq {
		page, err := events.ListEvents(ctx, gap.GraphID, afterSeq, gapRepairPageSize)
		if err != nil {
			return replayed, fmt.Errorf("list events for %s: %w", gap.GraphID, err)
		}
		if len(page) == 0 {
			break
		}
		for _, evt := range page {
			if err := applier.Apply(ctx, evt); err != nil {
				return replayed, fmt.Errorf("apply event seq %d for %s: %w", evt.Seq, gap.GraphID, err)
			}
			replayed++
			afterSeq = evt.Seq
			if err := watermarks.SetWatermark(ctx, storage.ProjectionWatermark{
				GraphID:         gap.GraphID,
				AppliedSeq:      evt.Seq,
				ExpectedNextSeq: evt.Seq + 1,
				UpdatedAt:       ensureTimestamp(evt.Timestamp),
			}); err != nil {
				return replayed, fmt.Errorf("save watermark for %s: %w", gap.GraphID, err)
			}
		}
	}
	return replayed, nil
}
