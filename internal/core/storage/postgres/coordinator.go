package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"log/slog"

	"github.com/orderhub-lab/orderhub-analytics/internal/core/errors"
	"github.com/orderhub-lab/orderhub-analytics/internal/core/storage"
)

// Coordinator implements storage.Coordinator for PostgreSQL.
//
// One run is: acquire the job's advisory lock, let the work function read
// and compute, persist the full write set in one transaction, commit. The
// lock spans the whole run so a still-running job and its next tick can
// never interleave reads and writes, and the lock lives in the database so
// exclusion holds across processes too.
type Coordinator struct {
	db *sql.DB
}

// NewCoordinator creates a transaction coordinator sharing the given pool.
func NewCoordinator(db *sql.DB) *Coordinator {
	return &Coordinator{db: db}
}

// Execute runs one atomic unit of work under the job's lock.
//
// A nil write set from work means the run decided to skip cleanly (e.g. the
// bootstrap existence probe found prior records), and no transaction is opened.
// An empty-but-non-nil write set still commits, so "no changes" is a normal
// committed outcome. Any error from work or from persistence rolls back
// everything, invokes onError, and comes back as a *errors.RunError.
func (c *Coordinator) Execute(
	ctx context.Context,
	job string,
	work storage.RunFunc,
	onSuccess func(storage.RunSummary),
	onError func(error),
) error {
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("%s: acquire connection: %w", job, err)
	}
	defer conn.Close()

	key := lockKey(job)
	var acquired bool
	if err := conn.QueryRowContext(ctx, queryTryAdvisoryLock, key).Scan(&acquired); err != nil {
		return fmt.Errorf("%s: try job lock: %w", job, err)
	}
	if !acquired {
		return fmt.Errorf("%s: %w", job, storage.ErrRunInProgress)
	}
	defer func() {
		// Release with a fresh context: the lock must go even when the run's
		// context is already cancelled.
		if _, err := conn.ExecContext(context.Background(), queryReleaseAdvisoryLock, key); err != nil {
			slog.Error("[Coordinator] Failed to release job lock", "job", job, "error", err)
		}
	}()

	changes, err := work(ctx)
	if err != nil {
		onError(err)
		return errors.NewRunError(job, err)
	}
	if changes == nil {
		return nil
	}

	summary, err := c.persist(ctx, job, changes)
	if err != nil {
		onError(err)
		return errors.NewRunError(job, err)
	}

	onSuccess(summary)
	return nil
}

// persist writes the full change set in a single transaction.
func (c *Coordinator) persist(ctx context.Context, job string, changes *storage.RunChanges) (storage.RunSummary, error) {
	summary := storage.RunSummary{
		Job:             job,
		Inserted:        len(changes.Inserts),
		Updated:         len(changes.Updates),
		CountersUpdated: len(changes.Counters),
		RevenueRows:     len(changes.BranchRevenues) + len(changes.DailyRevenues),
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return summary, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if len(changes.Inserts) > 0 {
		stmt, err := tx.PrepareContext(ctx, queryInsertAnalysis)
		if err != nil {
			return summary, fmt.Errorf("prepare analysis insert: %w", err)
		}
		defer stmt.Close()

		for _, rec := range changes.Inserts {
			if _, err := stmt.ExecContext(ctx,
				rec.ID, rec.ProductID, rec.BranchID, rec.OrderDate, rec.TotalQuantity, rec.CreatedAt,
			); err != nil {
				return summary, fmt.Errorf("insert analysis record %s: %w", rec.ID, err)
			}
		}
	}

	for _, rec := range changes.Updates {
		result, err := tx.ExecContext(ctx, queryUpdateAnalysisQuantity, rec.TotalQuantity, rec.ID)
		if err != nil {
			return summary, fmt.Errorf("update analysis record %s: %w", rec.ID, err)
		}
		if err := requireOneRow(result, fmt.Sprintf("analysis record %s", rec.ID)); err != nil {
			return summary, err
		}
	}

	for _, cu := range changes.Counters {
		result, err := tx.ExecContext(ctx, queryApplyCounterDelta, cu.Delta, cu.ProductID)
		if err != nil {
			return summary, fmt.Errorf("apply counter delta for product %s: %w", cu.ProductID, err)
		}
		if err := requireOneRow(result, fmt.Sprintf("product %s", cu.ProductID)); err != nil {
			return summary, err
		}
	}

	for _, rev := range changes.BranchRevenues {
		if _, err := tx.ExecContext(ctx, queryUpsertBranchRevenue,
			rev.ID, rev.BranchID, rev.Date, rev.TotalAmount, rev.TotalOrders, rev.CreatedAt,
		); err != nil {
			return summary, fmt.Errorf("upsert branch revenue %s/%s: %w", rev.BranchID, rev.Date.Format("2006-01-02"), err)
		}
	}

	for _, rev := range changes.DailyRevenues {
		if _, err := tx.ExecContext(ctx, queryUpsertDailyRevenue,
			rev.ID, rev.Date, rev.TotalAmount, rev.TotalOrders, rev.CreatedAt,
		); err != nil {
			return summary, fmt.Errorf("upsert daily revenue %s: %w", rev.Date.Format("2006-01-02"), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return summary, fmt.Errorf("commit: %w", err)
	}
	return summary, nil
}

// requireOneRow guards in-place updates: a vanished target row means the
// snapshot the run computed against is gone, and the run must abort.
func requireOneRow(result sql.Result, what string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected for %s: %w", what, err)
	}
	if n != 1 {
		return fmt.Errorf("%s missing during run persistence", what)
	}
	return nil
}

// lockKey derives the advisory lock key for a job identity. FNV-64a is
// stable across processes and restarts.
func lockKey(job string) int64 {
	h := fnv.New64a()
	h.Write([]byte(job))
	return int64(h.Sum64())
}
