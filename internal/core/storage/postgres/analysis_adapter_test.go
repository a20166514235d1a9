package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisAdapter_HasAnyRecords(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewAnalysisAdapter(db, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(queryHasAnyAnalysis)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := adapter.HasAnyRecords(context.Background())
	require.NoError(t, err)
	assert.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalysisAdapter_RecordsForDateNormalizesDay(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	require.NoError(t, err)
	adapter := NewAnalysisAdapter(db, loc)

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, loc)
	created := time.Date(2026, 3, 3, 1, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(queryAnalysisForDate)).
		WithArgs(day).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "product_id", "branch_id", "order_date", "total_quantity", "created_at",
		}).AddRow("rec-1", "p1", "bA", time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), int64(5), created))

	records, err := adapter.RecordsForDate(context.Background(), day.Add(13*time.Hour))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "rec-1", records[0].ID)
	// The DATE column comes back as UTC midnight; the adapter re-anchors it
	// in the deployment timezone.
	assert.True(t, records[0].OrderDate.Equal(day))
	assert.Equal(t, int64(5), records[0].TotalQuantity)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalysisAdapter_SumProductQuantity(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewAnalysisAdapter(db, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(querySumProductQuantity)).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(int64(42)))

	sum, err := adapter.SumProductQuantity(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), sum)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalysisAdapter_QueryBranchRangeParsesDecimal(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewAnalysisAdapter(db, time.UTC)
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)

	mock.ExpectQuery(regexp.QuoteMeta(queryBranchRevenueRange)).
		WithArgs("bA", start, end).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "branch_id", "date", "total_amount", "total_orders", "created_at",
		}).AddRow("rev-1", "bA", start, "1999.50", int64(37), start.Add(23*time.Hour)))

	revs, err := adapter.QueryBranchRange(context.Background(), "bA", start, end)
	require.NoError(t, err)
	require.Len(t, revs, 1)
	assert.Equal(t, "1999.5", revs[0].TotalAmount.String())
	assert.Equal(t, int64(37), revs[0].TotalOrders)
	require.NoError(t, mock.ExpectationsWereMet())
}
