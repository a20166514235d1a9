package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	core "github.com/orderhub-lab/orderhub-analytics/internal/core/analysis"
	"github.com/orderhub-lab/orderhub-analytics/internal/core/errors"
	"github.com/orderhub-lab/orderhub-analytics/internal/core/storage"
)

const defaultWorkerCount = 10

// Runner executes product analysis aggregation runs. Both run kinds share
// the same pipeline: window-scoped aggregation query, grouping by product,
// concurrent reference resolution, reconciliation, and one atomic commit
// through the coordinator.
type Runner struct {
	sales       storage.SalesSource
	refs        storage.ReferenceStore
	store       storage.AnalysisStore
	coordinator storage.Coordinator
	loc         *time.Location
	workerCount int
	nowFn       func() time.Time
}

// NewRunner creates an analysis runner. loc defines day boundaries;
// workerCount bounds the reference resolution fan-out.
func NewRunner(
	sales storage.SalesSource,
	refs storage.ReferenceStore,
	store storage.AnalysisStore,
	coordinator storage.Coordinator,
	loc *time.Location,
	workerCount int,
) *Runner {
	if workerCount <= 0 {
		workerCount = defaultWorkerCount
	}
	return &Runner{
		sales:       sales,
		refs:        refs,
		store:       store,
		coordinator: coordinator,
		loc:         loc,
		workerCount: workerCount,
		nowFn:       func() time.Time { return time.Now().UTC() },
	}
}

// RunBootstrap materializes the full order history exactly once. If any
// analysis record already exists the run is an idempotent skip: logged, no
// transaction opened.
func (r *Runner) RunBootstrap(ctx context.Context) error {
	job := errors.JobBootstrapAnalysis

	return r.coordinator.Execute(ctx, job,
		func(ctx context.Context) (*storage.RunChanges, error) {
			exists, err := r.store.HasAnyRecords(ctx)
			if err != nil {
				return nil, fmt.Errorf("bootstrap existence probe: %w", err)
			}
			if exists {
				slog.Info("[BootstrapJob] Product analysis already materialized, skipping", "job", job)
				return nil, nil
			}

			return r.materialize(ctx, core.Bootstrap())
		},
		func(s storage.RunSummary) {
			slog.Info("[BootstrapJob] Bootstrap committed",
				"records_created", s.Inserted,
				"counters_updated", s.CountersUpdated,
			)
		},
		func(err error) {
			slog.Error("[BootstrapJob] Bootstrap failed, rolled back", "job", job, "error", err)
		},
	)
}

// RunDailyRefresh reconciles one prior calendar day against stored records.
// A zero target defaults to yesterday in the runner's location. A day with
// no divergence still commits (empty transaction) and logs "no changes".
func (r *Runner) RunDailyRefresh(ctx context.Context, target time.Time) error {
	job := errors.JobRefreshAnalysis

	if target.IsZero() {
		target = core.Yesterday(r.nowFn(), r.loc)
	}
	window := core.DailyRefresh(target, r.loc)
	dateLabel := window.TargetDate.Format("2006-01-02")

	return r.coordinator.Execute(ctx, job,
		func(ctx context.Context) (*storage.RunChanges, error) {
			changes, err := r.materialize(ctx, window)
			if err != nil {
				return nil, err
			}
			if changes.Empty() {
				slog.Info("[RefreshJob] No changes for target date", "date", dateLabel)
			}
			return changes, nil
		},
		func(s storage.RunSummary) {
			slog.Info("[RefreshJob] Refresh committed",
				"date", dateLabel,
				"records_created", s.Inserted,
				"records_updated", s.Updated,
				"counters_updated", s.CountersUpdated,
			)
		},
		func(err error) {
			slog.Error("[RefreshJob] Refresh failed, rolled back",
				"date", dateLabel,
				"error", err,
			)
		},
	)
}

// materialize runs the shared pipeline for one window. The window kind
// selects the query variant and whether a stored snapshot participates in
// reconciliation; bootstrap reconciles against an empty snapshot, so every
// group turns into inserts.
func (r *Runner) materialize(ctx context.Context, window core.Window) (*storage.RunChanges, error) {
	var (
		rows     []core.SaleRow
		existing []core.Record
		err      error
	)

	switch window.Kind {
	case core.WindowBootstrap:
		rows, err = r.sales.AggregateAllTime(ctx)
		if err != nil {
			return nil, fmt.Errorf("all-time aggregation query: %w", err)
		}
		slog.Info("[BootstrapJob] Materializing full history", "raw_rows", len(rows))

	case core.WindowDailyRefresh:
		rows, err = r.sales.AggregateDay(ctx, window.TargetDate)
		if err != nil {
			return nil, fmt.Errorf("daily aggregation query: %w", err)
		}

		// Snapshot of stored records for the window, taken once at run
		// start. Reconciliation for every group works off this snapshot.
		existing, err = r.store.RecordsForDate(ctx, window.TargetDate)
		if err != nil {
			return nil, fmt.Errorf("load existing records: %w", err)
		}

	default:
		return nil, fmt.Errorf("unknown window kind %d", window.Kind)
	}

	return r.buildChanges(ctx, rows, existing)
}

// buildChanges groups raw rows by product and reconciles each group
// concurrently. Reference lookups are read-only and touch disjoint keys, so
// groups fan out on a bounded errgroup; all lookups must succeed before the
// coordinator attempts any write.
func (r *Runner) buildChanges(ctx context.Context, rows []core.SaleRow, existing []core.Record) (*storage.RunChanges, error) {
	groups := core.GroupByProduct(rows)
	now := r.nowFn()

	existingByProduct := make(map[string][]core.Record, len(existing))
	for _, rec := range existing {
		existingByProduct[rec.ProductID] = append(existingByProduct[rec.ProductID], rec)
	}

	results := make([]core.ChangeSet, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workerCount)

	for i, group := range groups {
		i, group := i, group
		g.Go(func() error {
			if _, err := r.refs.GetProduct(gctx, group.ProductID); err != nil {
				return err
			}

			cs := core.Reconcile(group.ProductID, group.Rows, existingByProduct[group.ProductID], r.loc, now)

			// New records reference branches; each distinct branch must
			// resolve before the record may be persisted.
			seen := make(map[string]struct{})
			for _, rec := range cs.Inserts {
				if _, ok := seen[rec.BranchID]; ok {
					continue
				}
				seen[rec.BranchID] = struct{}{}
				if _, err := r.refs.GetBranch(gctx, rec.BranchID); err != nil {
					return err
				}
			}

			results[i] = cs
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	changes := &storage.RunChanges{}
	totals := core.NewRunTotals()
	for _, cs := range results {
		changes.Inserts = append(changes.Inserts, cs.Inserts...)
		changes.Updates = append(changes.Updates, cs.Updates...)
		totals.Add(cs.ProductID, cs.QuantityDelta)
	}
	changes.Counters = totals.Updates()

	return changes, nil
}
