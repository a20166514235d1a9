package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orderhub-lab/orderhub-analytics/internal/core/analysis"
	"github.com/orderhub-lab/orderhub-analytics/internal/core/revenue"
)

// SalesAdapter implements storage.SalesSource and storage.RevenueSource over
// the ordering platform's transactional tables.
type SalesAdapter struct {
	db  *sql.DB
	loc *time.Location
}

// NewSalesAdapter creates a sales query source. loc is the deployment
// timezone that defines day boundaries for grouping.
func NewSalesAdapter(db *sql.DB, loc *time.Location) *SalesAdapter {
	return &SalesAdapter{db: db, loc: loc}
}

// AggregateAllTime runs the bootstrap variant of the raw aggregation query.
func (a *SalesAdapter) AggregateAllTime(ctx context.Context) ([]analysis.SaleRow, error) {
	rows, err := a.db.QueryContext(ctx, querySalesAllTime, a.loc.String())
	if err != nil {
		return nil, fmt.Errorf("query all-time sales: %w", err)
	}
	defer rows.Close()

	return a.scanSaleRows(rows)
}

// AggregateDay runs the refresh variant, scoped to one local calendar day.
func (a *SalesAdapter) AggregateDay(ctx context.Context, day time.Time) ([]analysis.SaleRow, error) {
	start, end := a.dayBounds(day)
	rows, err := a.db.QueryContext(ctx, querySalesForDay, a.loc.String(), start, end)
	if err != nil {
		return nil, fmt.Errorf("query sales for %s: %w", day.Format("2006-01-02"), err)
	}
	defer rows.Close()

	return a.scanSaleRows(rows)
}

func (a *SalesAdapter) scanSaleRows(rows *sql.Rows) ([]analysis.SaleRow, error) {
	var result []analysis.SaleRow
	for rows.Next() {
		var row analysis.SaleRow
		var orderDate time.Time
		if err := rows.Scan(&row.ProductID, &row.BranchID, &orderDate, &row.TotalQuantity); err != nil {
			return nil, fmt.Errorf("scan sale row: %w", err)
		}
		// ::date scans as midnight UTC; re-anchor it in the deployment
		// timezone so downstream day math stays in one location.
		row.OrderDate = time.Date(orderDate.Year(), orderDate.Month(), orderDate.Day(), 0, 0, 0, 0, a.loc)
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sale rows: %w", err)
	}
	return result, nil
}

// BranchRevenueForDay computes per-branch revenue over completed orders for
// one local day.
func (a *SalesAdapter) BranchRevenueForDay(ctx context.Context, day time.Time) ([]revenue.BranchRevenue, error) {
	start, end := a.dayBounds(day)
	rows, err := a.db.QueryContext(ctx, queryBranchRevenueForDay, start, end)
	if err != nil {
		return nil, fmt.Errorf("query branch revenue for %s: %w", day.Format("2006-01-02"), err)
	}
	defer rows.Close()

	now := time.Now().UTC()
	var result []revenue.BranchRevenue
	for rows.Next() {
		var rev revenue.BranchRevenue
		var amountStr string
		if err := rows.Scan(&rev.BranchID, &amountStr, &rev.TotalOrders); err != nil {
			return nil, fmt.Errorf("scan branch revenue row: %w", err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("parse revenue amount %q: %w", amountStr, err)
		}
		rev.ID = uuid.NewString()
		rev.Date = analysis.DayOf(day, a.loc)
		rev.TotalAmount = amount
		rev.CreatedAt = now
		result = append(result, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate branch revenue rows: %w", err)
	}
	return result, nil
}

// DailyRevenueForDay computes the platform-wide revenue row for one local
// day. A day with zero completed orders yields a zero-amount row.
func (a *SalesAdapter) DailyRevenueForDay(ctx context.Context, day time.Time) (*revenue.DailyRevenue, error) {
	start, end := a.dayBounds(day)

	var amountStr string
	var totalOrders int64
	err := a.db.QueryRowContext(ctx, queryDailyRevenueForDay, start, end).Scan(&amountStr, &totalOrders)
	if err != nil {
		return nil, fmt.Errorf("query daily revenue for %s: %w", day.Format("2006-01-02"), err)
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("parse revenue amount %q: %w", amountStr, err)
	}

	return &revenue.DailyRevenue{
		ID:          uuid.NewString(),
		Date:        analysis.DayOf(day, a.loc),
		TotalAmount: amount,
		TotalOrders: totalOrders,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func (a *SalesAdapter) dayBounds(day time.Time) (time.Time, time.Time) {
	start := analysis.DayOf(day, a.loc)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}
