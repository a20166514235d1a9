package revenue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/orderhub-lab/orderhub-analytics/internal/core/analysis"
	"github.com/orderhub-lab/orderhub-analytics/internal/core/errors"
	core "github.com/orderhub-lab/orderhub-analytics/internal/core/revenue"
	"github.com/orderhub-lab/orderhub-analytics/internal/core/storage"
)

// Runner executes the daily revenue refresh: per-branch rollups plus the
// platform-wide row for one calendar day, upserted in a single run through
// the coordinator. Upserts make the run idempotent, so a re-run of the same
// day replaces prior rollups instead of duplicating them.
type Runner struct {
	source      storage.RevenueSource
	coordinator storage.Coordinator
	loc         *time.Location
	nowFn       func() time.Time
}

func NewRunner(source storage.RevenueSource, coordinator storage.Coordinator, loc *time.Location) *Runner {
	return &Runner{
		source:      source,
		coordinator: coordinator,
		loc:         loc,
		nowFn:       func() time.Time { return time.Now().UTC() },
	}
}

// RunDailyRefresh rolls up revenue for one prior calendar day. A zero target
// defaults to yesterday in the runner's location. A day with zero completed
// orders still upserts the zero-amount platform row so the series has no
// gaps.
func (r *Runner) RunDailyRefresh(ctx context.Context, target time.Time) error {
	job := errors.JobRefreshRevenue

	day := target
	if day.IsZero() {
		day = analysis.Yesterday(r.nowFn(), r.loc)
	} else {
		day = analysis.DayOf(day, r.loc)
	}

	return r.coordinator.Execute(ctx, job,
		func(ctx context.Context) (*storage.RunChanges, error) {
			branchRows, err := r.source.BranchRevenueForDay(ctx, day)
			if err != nil {
				return nil, fmt.Errorf("branch revenue query: %w", err)
			}

			daily, err := r.source.DailyRevenueForDay(ctx, day)
			if err != nil {
				return nil, fmt.Errorf("daily revenue query: %w", err)
			}

			return &storage.RunChanges{
				BranchRevenues: branchRows,
				DailyRevenues:  []core.DailyRevenue{*daily},
			}, nil
		},
		func(s storage.RunSummary) {
			slog.Info("[RevenueJob] Revenue refresh committed",
				"date", day.Format("2006-01-02"),
				"revenue_rows", s.RevenueRows,
			)
		},
		func(err error) {
			slog.Error("[RevenueJob] Revenue refresh failed, rolled back",
				"date", day.Format("2006-01-02"),
				"error", err,
			)
		},
	)
}
