package service

import (
	"context"

	"github.com/odrlplan/odrlplan/internal/adapter/outbound/history"
)

// HistoryStore adapts *history.Store to the HistorySink interface
// PlanService depends on.
type HistoryStore struct {
	Store *history.Store
}

// InsertPlanRun records run as one row of plan-run history.
func (h HistoryStore) InsertPlanRun(ctx context.Context, run PlanRun, permissions, prohibitions, duties, filtered int) error {
	return h.Store.Insert(ctx, history.Record{
		RunID:        run.ID,
		Scope:        run.Scope,
		StartedAt:    run.StartedAt,
		DurationMs:   run.DurationMs,
		CacheHit:     run.CacheHit,
		Permissions:  permissions,
		Prohibitions: prohibitions,
		Duties:       duties,
		Filtered:     filtered,
	})
}
