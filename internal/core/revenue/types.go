package revenue

import (
	"time"

	"github.com/shopspring/decimal"
)

// BranchRevenue is a per-branch/per-day revenue rollup over completed
// orders. Keyed by (BranchID, Date); refreshed daily and upserted so a
// re-run of the same day replaces rather than duplicates.
type BranchRevenue struct {
	ID          string
	BranchID    string
	Date        time.Time
	TotalAmount decimal.Decimal
	TotalOrders int64
	CreatedAt   time.Time
}

// DailyRevenue is the platform-wide per-day rollup, keyed by Date.
type DailyRevenue struct {
	ID          string
	Date        time.Time
	TotalAmount decimal.Decimal
	TotalOrders int64
	CreatedAt   time.Time
}
