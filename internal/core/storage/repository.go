package storage

import (
	"context"
	"errors"
	"time"

	"github.com/orderhub-lab/orderhub-analytics/internal/core/analysis"
	"github.com/orderhub-lab/orderhub-analytics/internal/core/revenue"
)

// ErrRunInProgress is returned when a run cannot acquire its job lock
// because the previous run for the same job identity is still active.
// Callers treat it as a skipped tick, not a failure.
var ErrRunInProgress = errors.New("another run holds the job lock")

// SalesSource executes the raw aggregation queries over the ordering
// platform's transactional tables. Rows come back grouped by
// (product, branch, day) with summed quantities.
type SalesSource interface {
	// AggregateAllTime returns grouped sales tuples for the full order
	// history. Used once, by bootstrap.
	AggregateAllTime(ctx context.Context) ([]analysis.SaleRow, error)

	// AggregateDay returns grouped sales tuples scoped to one calendar day.
	// day must already be normalized to a day boundary.
	AggregateDay(ctx context.Context, day time.Time) ([]analysis.SaleRow, error)
}

// ReferenceStore resolves reference entities by ID. Lookups signal a missing
// entity with errors.ErrProductNotFound / errors.ErrBranchNotFound.
type ReferenceStore interface {
	GetProduct(ctx context.Context, id string) (*analysis.Product, error)
	GetBranch(ctx context.Context, id string) (*analysis.Branch, error)
}

// AnalysisStore reads persisted analysis records. All writes go through the
// Coordinator instead, so nothing outside a committed run can mutate them.
type AnalysisStore interface {
	// HasAnyRecords is the bootstrap existence probe.
	HasAnyRecords(ctx context.Context) (bool, error)

	// RecordsForDate loads every record for one day across all products and
	// branches. This is the snapshot a refresh run reconciles against.
	RecordsForDate(ctx context.Context, day time.Time) ([]analysis.Record, error)

	// QueryProductRange fetches a product's records within [start, end),
	// ordered by order date. Serves the read API.
	QueryProductRange(ctx context.Context, productID string, start, end time.Time) ([]analysis.Record, error)

	// SumProductQuantity recomputes the lifetime total from stored records.
	// Exposed next to the running counter for auditability.
	SumProductQuantity(ctx context.Context, productID string) (int64, error)
}

// RevenueSource executes the revenue rollup queries for one day.
type RevenueSource interface {
	BranchRevenueForDay(ctx context.Context, day time.Time) ([]revenue.BranchRevenue, error)
	DailyRevenueForDay(ctx context.Context, day time.Time) (*revenue.DailyRevenue, error)
}

// RevenueStore reads persisted revenue rollups for the read API.
type RevenueStore interface {
	QueryBranchRange(ctx context.Context, branchID string, start, end time.Time) ([]revenue.BranchRevenue, error)
}

// RunChanges is the full write set one run produces. The Coordinator
// persists all of it in a single transaction or none of it.
type RunChanges struct {
	Inserts        []analysis.Record
	Updates        []analysis.Record
	Counters       []analysis.CounterUpdate
	BranchRevenues []revenue.BranchRevenue
	DailyRevenues  []revenue.DailyRevenue
}

// Empty reports whether the run produced no writes. An empty run still
// commits; "no changes" is a clean outcome, not an error.
func (c *RunChanges) Empty() bool {
	return len(c.Inserts) == 0 && len(c.Updates) == 0 && len(c.Counters) == 0 &&
		len(c.BranchRevenues) == 0 && len(c.DailyRevenues) == 0
}

// RunSummary is handed to the success callback for logging.
type RunSummary struct {
	Job             string
	Inserted        int
	Updated         int
	CountersUpdated int
	RevenueRows     int
}

// RunFunc performs a run's reads and computation (reference resolution,
// grouping, reconciliation) and returns the write set.
type RunFunc func(ctx context.Context) (*RunChanges, error)

// Coordinator executes one run atomically under a per-job mutual exclusion
// lock: lock, run work, persist everything in one transaction, commit. On
// any failure it rolls back, invokes onError, and returns a *errors.RunError
// carrying the job identity. The lock is released on every exit path.
type Coordinator interface {
	Execute(
		ctx context.Context,
		job string,
		work RunFunc,
		onSuccess func(RunSummary),
		onError func(error),
	) error
}
