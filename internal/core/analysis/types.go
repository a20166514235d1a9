package analysis

import "time"

// SaleRow is one raw tuple produced by the sales aggregation query:
// the summed quantity for a (product, branch, day) combination. Rows are
// transient: they exist only for the duration of a run and are never
// persisted directly.
type SaleRow struct {
	ProductID     string
	BranchID      string
	OrderDate     time.Time
	TotalQuantity int64
}

// Record is a persisted per-product/per-branch/per-day sale aggregate.
// At most one Record exists per (ProductID, BranchID, OrderDate) at any time;
// OrderDate is always normalized to a day boundary before a Record is built.
type Record struct {
	ID            string
	ProductID     string
	BranchID      string
	OrderDate     time.Time
	TotalQuantity int64
	CreatedAt     time.Time
}

// Product is the reference entity carrying the lifetime running counter.
// This engine is the only writer of LifetimeSaleQuantity, and only inside a
// committed run.
type Product struct {
	ID                   string
	Name                 string
	LifetimeSaleQuantity int64
}

// Branch is a read-only reference entity, looked up for validation when a
// new Record is built.
type Branch struct {
	ID   string
	Name string
}

// CounterUpdate is a pending delta to one product's lifetime counter.
// The persistence layer applies it as an in-place addition, never as a
// read-modify-write.
type CounterUpdate struct {
	ProductID string
	Delta     int64
}
