package projection

import "time"

// AnalysisQueryRequest is a validated product analysis range query. Start
// and End are inclusive calendar dates in the deployment timezone.
type AnalysisQueryRequest struct {
	ProductID string
	Start     time.Time
	End       time.Time
}

// AnalysisPoint is one per-branch/per-day record in a range response.
type AnalysisPoint struct {
	RecordID      string `json:"record_id"`
	BranchID      string `json:"branch_id"`
	Date          string `json:"date"`
	TotalQuantity int64  `json:"total_quantity"`
}

// AnalysisQueryResponse is the body of a product analysis range query.
type AnalysisQueryResponse struct {
	ProductID     string          `json:"product_id"`
	Start         string          `json:"start"`
	End           string          `json:"end"`
	TotalQuantity int64           `json:"total_quantity"`
	Records       []AnalysisPoint `json:"records"`
}

// ProductSummaryResponse exposes the lifetime counter next to the total
// recomputed from stored records, so counter drift is observable from the
// outside.
type ProductSummaryResponse struct {
	ProductID            string `json:"product_id"`
	Name                 string `json:"name"`
	LifetimeSaleQuantity int64  `json:"lifetime_sale_quantity"`
	RecordedQuantity     int64  `json:"recorded_quantity"`
	Consistent           bool   `json:"consistent"`
}

// RevenueQueryRequest is a validated branch revenue range query.
type RevenueQueryRequest struct {
	BranchID string
	Start    time.Time
	End      time.Time
}

// RevenuePoint is one per-day revenue rollup in a range response. Amounts
// are serialized as decimal strings.
type RevenuePoint struct {
	Date        string `json:"date"`
	TotalAmount string `json:"total_amount"`
	TotalOrders int64  `json:"total_orders"`
}

// RevenueQueryResponse is the body of a branch revenue range query.
type RevenueQueryResponse struct {
	BranchID    string         `json:"branch_id"`
	Start       string         `json:"start"`
	End         string         `json:"end"`
	TotalAmount string         `json:"total_amount"`
	TotalOrders int64          `json:"total_orders"`
	Points      []RevenuePoint `json:"points"`
}
