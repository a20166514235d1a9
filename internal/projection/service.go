package projection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/orderhub-lab/orderhub-analytics/internal/core/analysis"
	coreerrors "github.com/orderhub-lab/orderhub-analytics/internal/core/errors"
	"github.com/orderhub-lab/orderhub-analytics/internal/core/storage"
)

const dateLayout = "2006-01-02"

// maxRangeDays caps a single range query. A wider window should be paged by
// the caller.
const maxRangeDays = 366

// ErrInvalidQuery marks request validation errors that should return HTTP 400.
var ErrInvalidQuery = errors.New("invalid analytics query")

// Service implements the analytics read API over the materialized analysis
// and revenue tables. It never touches the ordering platform's transactional
// tables; reads see only what committed runs produced.
type Service struct {
	store   storage.AnalysisStore
	refs    storage.ReferenceStore
	revenue storage.RevenueStore
	loc     *time.Location
}

// NewService creates the analytics query service. loc defines day
// boundaries for date parameters.
func NewService(
	store storage.AnalysisStore,
	refs storage.ReferenceStore,
	revenue storage.RevenueStore,
	loc *time.Location,
) *Service {
	return &Service{
		store:   store,
		refs:    refs,
		revenue: revenue,
		loc:     loc,
	}
}

// QueryAnalysis returns a product's per-branch/per-day records within an
// inclusive date range, ordered by date.
func (s *Service) QueryAnalysis(ctx context.Context, req AnalysisQueryRequest) (*AnalysisQueryResponse, error) {
	if err := validateRange(req.Start, req.End); err != nil {
		return nil, err
	}

	if _, err := s.refs.GetProduct(ctx, req.ProductID); err != nil {
		return nil, fmt.Errorf("resolve product: %w", err)
	}

	// Storage ranges are half-open; the API's inclusive end becomes the
	// next day's boundary.
	records, err := s.store.QueryProductRange(ctx, req.ProductID, req.Start, req.End.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("query analysis range: %w", err)
	}

	resp := &AnalysisQueryResponse{
		ProductID: req.ProductID,
		Start:     req.Start.Format(dateLayout),
		End:       req.End.Format(dateLayout),
		Records:   make([]AnalysisPoint, 0, len(records)),
	}
	for _, rec := range records {
		resp.TotalQuantity += rec.TotalQuantity
		resp.Records = append(resp.Records, AnalysisPoint{
			RecordID:      rec.ID,
			BranchID:      rec.BranchID,
			Date:          rec.OrderDate.Format(dateLayout),
			TotalQuantity: rec.TotalQuantity,
		})
	}
	return resp, nil
}

// ProductSummary returns the lifetime counter alongside the total recomputed
// from stored records. The two agree whenever every run committed cleanly.
func (s *Service) ProductSummary(ctx context.Context, productID string) (*ProductSummaryResponse, error) {
	product, err := s.refs.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("resolve product: %w", err)
	}

	recorded, err := s.store.SumProductQuantity(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("recompute recorded quantity: %w", err)
	}

	return &ProductSummaryResponse{
		ProductID:            product.ID,
		Name:                 product.Name,
		LifetimeSaleQuantity: product.LifetimeSaleQuantity,
		RecordedQuantity:     recorded,
		Consistent:           product.LifetimeSaleQuantity == recorded,
	}, nil
}

// QueryRevenue returns a branch's per-day revenue rollups within an
// inclusive date range, ordered by date.
func (s *Service) QueryRevenue(ctx context.Context, req RevenueQueryRequest) (*RevenueQueryResponse, error) {
	if err := validateRange(req.Start, req.End); err != nil {
		return nil, err
	}

	if _, err := s.refs.GetBranch(ctx, req.BranchID); err != nil {
		return nil, fmt.Errorf("resolve branch: %w", err)
	}

	rows, err := s.revenue.QueryBranchRange(ctx, req.BranchID, req.Start, req.End.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("query revenue range: %w", err)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })

	resp := &RevenueQueryResponse{
		BranchID: req.BranchID,
		Start:    req.Start.Format(dateLayout),
		End:      req.End.Format(dateLayout),
		Points:   make([]RevenuePoint, 0, len(rows)),
	}
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.TotalAmount)
		resp.TotalOrders += row.TotalOrders
		resp.Points = append(resp.Points, RevenuePoint{
			Date:        row.Date.Format(dateLayout),
			TotalAmount: row.TotalAmount.String(),
			TotalOrders: row.TotalOrders,
		})
	}
	resp.TotalAmount = total.String()
	return resp, nil
}

// ParseDate parses an API date parameter into a day boundary in the
// service's location.
func (s *Service) ParseDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, value, s.loc)
	if err != nil {
		return time.Time{}, invalidQueryf("invalid date %q, want YYYY-MM-DD", value)
	}
	return analysis.DayOf(t, s.loc), nil
}

func validateRange(start, end time.Time) error {
	if end.Before(start) {
		return invalidQueryf("end date must not be before start date")
	}
	if end.Sub(start) > maxRangeDays*24*time.Hour {
		return invalidQueryf("date range exceeds %d days", maxRangeDays)
	}
	return nil
}

func invalidQueryf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuery, fmt.Sprintf(format, args...))
}

// IsNotFound reports whether err is a missing reference entity.
func IsNotFound(err error) bool {
	return errors.Is(err, coreerrors.ErrProductNotFound) || errors.Is(err, coreerrors.ErrBranchNotFound)
}
