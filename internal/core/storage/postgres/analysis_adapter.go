package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/orderhub-lab/orderhub-analytics/internal/core/analysis"
	"github.com/orderhub-lab/orderhub-analytics/internal/core/revenue"
)

// AnalysisAdapter implements storage.AnalysisStore and storage.RevenueStore.
// It only reads; every write to the tables it covers goes through the
// Coordinator's transaction.
type AnalysisAdapter struct {
	db  *sql.DB
	loc *time.Location
}

// NewAnalysisAdapter creates an analysis read store sharing the given pool.
func NewAnalysisAdapter(db *sql.DB, loc *time.Location) *AnalysisAdapter {
	return &AnalysisAdapter{db: db, loc: loc}
}

// HasAnyRecords reports whether any analysis record exists at all. This is
// the bootstrap existence probe.
func (a *AnalysisAdapter) HasAnyRecords(ctx context.Context) (bool, error) {
	var exists bool
	if err := a.db.QueryRowContext(ctx, queryHasAnyAnalysis).Scan(&exists); err != nil {
		return false, fmt.Errorf("probe analysis records: %w", err)
	}
	return exists, nil
}

// RecordsForDate loads the reconciliation snapshot: every record stored for
// one day, across all products and branches.
func (a *AnalysisAdapter) RecordsForDate(ctx context.Context, day time.Time) ([]analysis.Record, error) {
	rows, err := a.db.QueryContext(ctx, queryAnalysisForDate, analysis.DayOf(day, a.loc))
	if err != nil {
		return nil, fmt.Errorf("load analysis records for %s: %w", day.Format("2006-01-02"), err)
	}
	defer rows.Close()

	return a.scanRecords(rows)
}

// QueryProductRange fetches one product's records within [start, end).
func (a *AnalysisAdapter) QueryProductRange(ctx context.Context, productID string, start, end time.Time) ([]analysis.Record, error) {
	rows, err := a.db.QueryContext(ctx, queryAnalysisProductRange, productID, start, end)
	if err != nil {
		return nil, fmt.Errorf("query analysis range for product %s: %w", productID, err)
	}
	defer rows.Close()

	return a.scanRecords(rows)
}

// SumProductQuantity recomputes a product's lifetime total from its stored
// records. After any successful run this equals the product's running
// counter.
func (a *AnalysisAdapter) SumProductQuantity(ctx context.Context, productID string) (int64, error) {
	var sum int64
	if err := a.db.QueryRowContext(ctx, querySumProductQuantity, productID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum analysis quantity for product %s: %w", productID, err)
	}
	return sum, nil
}

// QueryBranchRange fetches one branch's revenue rows within [start, end).
func (a *AnalysisAdapter) QueryBranchRange(ctx context.Context, branchID string, start, end time.Time) ([]revenue.BranchRevenue, error) {
	rows, err := a.db.QueryContext(ctx, queryBranchRevenueRange, branchID, start, end)
	if err != nil {
		return nil, fmt.Errorf("query revenue range for branch %s: %w", branchID, err)
	}
	defer rows.Close()

	var result []revenue.BranchRevenue
	for rows.Next() {
		var rev revenue.BranchRevenue
		var amountStr string
		var date time.Time
		if err := rows.Scan(&rev.ID, &rev.BranchID, &date, &amountStr, &rev.TotalOrders, &rev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan branch revenue row: %w", err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("parse revenue amount %q: %w", amountStr, err)
		}
		rev.Date = a.localDay(date)
		rev.TotalAmount = amount
		result = append(result, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate branch revenue rows: %w", err)
	}
	return result, nil
}

func (a *AnalysisAdapter) scanRecords(rows *sql.Rows) ([]analysis.Record, error) {
	var result []analysis.Record
	for rows.Next() {
		var rec analysis.Record
		var orderDate time.Time
		if err := rows.Scan(&rec.ID, &rec.ProductID, &rec.BranchID, &orderDate, &rec.TotalQuantity, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan analysis record: %w", err)
		}
		rec.OrderDate = a.localDay(orderDate)
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analysis records: %w", err)
	}
	return result, nil
}

// localDay re-anchors a DATE column value (midnight UTC from the driver) in
// the deployment timezone.
func (a *AnalysisAdapter) localDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, a.loc)
}
