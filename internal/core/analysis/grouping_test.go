package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupByProduct_Empty(t *testing.T) {
	assert.Empty(t, GroupByProduct(nil))
	assert.Empty(t, GroupByProduct([]SaleRow{}))
}

func TestGroupByProduct_StableOrder(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := []SaleRow{
		{ProductID: "p2", BranchID: "bA", OrderDate: day, TotalQuantity: 1},
		{ProductID: "p1", BranchID: "bA", OrderDate: day, TotalQuantity: 5},
		{ProductID: "p2", BranchID: "bB", OrderDate: day, TotalQuantity: 2},
		{ProductID: "p1", BranchID: "bB", OrderDate: day, TotalQuantity: 3},
	}

	groups := GroupByProduct(rows)
	require.Len(t, groups, 2)

	// Group order follows first appearance, row order follows input order.
	assert.Equal(t, "p2", groups[0].ProductID)
	assert.Equal(t, "p1", groups[1].ProductID)
	require.Len(t, groups[0].Rows, 2)
	assert.Equal(t, "bA", groups[0].Rows[0].BranchID)
	assert.Equal(t, "bB", groups[0].Rows[1].BranchID)
	require.Len(t, groups[1].Rows, 2)
	assert.Equal(t, int64(5), groups[1].Rows[0].TotalQuantity)
	assert.Equal(t, int64(3), groups[1].Rows[1].TotalQuantity)
}

func TestGroupByProduct_SingleProduct(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := []SaleRow{
		{ProductID: "p1", BranchID: "bA", OrderDate: day, TotalQuantity: 4},
		{ProductID: "p1", BranchID: "bB", OrderDate: day, TotalQuantity: 6},
	}

	groups := GroupByProduct(rows)
	require.Len(t, groups, 1)
	assert.Equal(t, "p1", groups[0].ProductID)
	assert.Len(t, groups[0].Rows, 2)
}
