package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "github.com/orderhub-lab/orderhub-analytics/internal/core/analysis"
	"github.com/orderhub-lab/orderhub-analytics/internal/core/errors"
	"github.com/orderhub-lab/orderhub-analytics/internal/core/storage"
)

// memoryBackend backs a Runner with in-memory state so multi-run scenarios
// can assert on what survives each commit. Execute applies a change set
// all-or-nothing, mirroring the transactional contract.
type memoryBackend struct {
	salesAll   []core.SaleRow
	salesByDay map[string][]core.SaleRow

	records  map[string]core.Record
	products map[string]*core.Product
	branches map[string]core.Branch

	commits int
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{
		salesByDay: make(map[string][]core.SaleRow),
		records:    make(map[string]core.Record),
		products:   make(map[string]*core.Product),
		branches:   make(map[string]core.Branch),
	}
}

func (m *memoryBackend) AggregateAllTime(ctx context.Context) ([]core.SaleRow, error) {
	return m.salesAll, nil
}

func (m *memoryBackend) AggregateDay(ctx context.Context, day time.Time) ([]core.SaleRow, error) {
	return m.salesByDay[day.Format("2006-01-02")], nil
}

func (m *memoryBackend) GetProduct(ctx context.Context, id string) (*core.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, errors.ErrProductNotFound
	}
	return p, nil
}

func (m *memoryBackend) GetBranch(ctx context.Context, id string) (*core.Branch, error) {
	b, ok := m.branches[id]
	if !ok {
		return nil, errors.ErrBranchNotFound
	}
	return &b, nil
}

func (m *memoryBackend) HasAnyRecords(ctx context.Context) (bool, error) {
	return len(m.records) > 0, nil
}

func (m *memoryBackend) RecordsForDate(ctx context.Context, day time.Time) ([]core.Record, error) {
	var result []core.Record
	for _, rec := range m.records {
		if rec.OrderDate.Equal(day) {
			result = append(result, rec)
		}
	}
	return result, nil
}

func (m *memoryBackend) QueryProductRange(ctx context.Context, productID string, start, end time.Time) ([]core.Record, error) {
	var result []core.Record
	for _, rec := range m.records {
		if rec.ProductID == productID && !rec.OrderDate.Before(start) && rec.OrderDate.Before(end) {
			result = append(result, rec)
		}
	}
	return result, nil
}

func (m *memoryBackend) SumProductQuantity(ctx context.Context, productID string) (int64, error) {
	var sum int64
	for _, rec := range m.records {
		if rec.ProductID == productID {
			sum += rec.TotalQuantity
		}
	}
	return sum, nil
}

func (m *memoryBackend) Execute(
	ctx context.Context,
	job string,
	work storage.RunFunc,
	onSuccess func(storage.RunSummary),
	onError func(error),
) error {
	changes, err := work(ctx)
	if err != nil {
		onError(err)
		return errors.NewRunError(job, err)
	}
	if changes == nil {
		return nil
	}

	for _, rec := range changes.Inserts {
		m.records[rec.ID] = rec
	}
	for _, rec := range changes.Updates {
		stored := m.records[rec.ID]
		stored.TotalQuantity = rec.TotalQuantity
		m.records[rec.ID] = stored
	}
	for _, cu := range changes.Counters {
		m.products[cu.ProductID].LifetimeSaleQuantity += cu.Delta
	}
	m.commits++

	onSuccess(storage.RunSummary{
		Job:             job,
		Inserted:        len(changes.Inserts),
		Updated:         len(changes.Updates),
		CountersUpdated: len(changes.Counters),
	})
	return nil
}

func (m *memoryBackend) runner() *Runner {
	return NewRunner(m, m, m, m, time.UTC, 4)
}

// assertCounterInvariant checks that every product's lifetime counter equals
// the sum of its stored records.
func assertCounterInvariant(t *testing.T, m *memoryBackend) {
	t.Helper()
	for id, p := range m.products {
		sum, err := m.SumProductQuantity(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, sum, p.LifetimeSaleQuantity, "counter diverged for product %s", id)
	}
}

var (
	d1 = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	d2 = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
)

func seedRefs(m *memoryBackend, productIDs []string, branchIDs []string) {
	for _, id := range productIDs {
		m.products[id] = &core.Product{ID: id}
	}
	for _, id := range branchIDs {
		m.branches[id] = core.Branch{ID: id}
	}
}

func TestBootstrap_MaterializesFullHistory(t *testing.T) {
	m := newMemoryBackend()
	seedRefs(m, []string{"p1", "p2"}, []string{"bA", "bB"})
	m.salesAll = []core.SaleRow{
		{ProductID: "p1", BranchID: "bA", OrderDate: d1, TotalQuantity: 5},
		{ProductID: "p1", BranchID: "bB", OrderDate: d1, TotalQuantity: 3},
		{ProductID: "p2", BranchID: "bA", OrderDate: d1, TotalQuantity: 2},
	}

	err := m.runner().RunBootstrap(context.Background())
	require.NoError(t, err)

	assert.Len(t, m.records, 3)
	assert.Equal(t, int64(8), m.products["p1"].LifetimeSaleQuantity)
	assert.Equal(t, int64(2), m.products["p2"].LifetimeSaleQuantity)
	assertCounterInvariant(t, m)
}

func TestBootstrap_SecondRunIsIdempotentSkip(t *testing.T) {
	m := newMemoryBackend()
	seedRefs(m, []string{"p1"}, []string{"bA"})
	m.salesAll = []core.SaleRow{
		{ProductID: "p1", BranchID: "bA", OrderDate: d1, TotalQuantity: 5},
	}

	runner := m.runner()
	require.NoError(t, runner.RunBootstrap(context.Background()))
	require.Equal(t, 1, m.commits)

	// Second bootstrap finds existing records and opens no transaction.
	require.NoError(t, runner.RunBootstrap(context.Background()))
	assert.Equal(t, 1, m.commits)
	assert.Len(t, m.records, 1)
	assert.Equal(t, int64(5), m.products["p1"].LifetimeSaleQuantity)
}

func TestRefresh_UpdatesChangedQuantity(t *testing.T) {
	m := newMemoryBackend()
	seedRefs(m, []string{"p1"}, []string{"bA"})
	m.records["rec-1"] = core.Record{ID: "rec-1", ProductID: "p1", BranchID: "bA", OrderDate: d2, TotalQuantity: 5}
	m.products["p1"].LifetimeSaleQuantity = 5
	m.salesByDay["2026-03-02"] = []core.SaleRow{
		{ProductID: "p1", BranchID: "bA", OrderDate: d2, TotalQuantity: 7},
	}

	err := m.runner().RunDailyRefresh(context.Background(), d2)
	require.NoError(t, err)

	require.Len(t, m.records, 1)
	assert.Equal(t, int64(7), m.records["rec-1"].TotalQuantity)
	assert.Equal(t, int64(7), m.products["p1"].LifetimeSaleQuantity)
	assertCounterInvariant(t, m)
}

func TestRefresh_UnchangedDayCommitsNoChanges(t *testing.T) {
	m := newMemoryBackend()
	seedRefs(m, []string{"p1"}, []string{"bB"})
	m.records["rec-1"] = core.Record{ID: "rec-1", ProductID: "p1", BranchID: "bB", OrderDate: d2, TotalQuantity: 3}
	m.products["p1"].LifetimeSaleQuantity = 3
	m.salesByDay["2026-03-02"] = []core.SaleRow{
		{ProductID: "p1", BranchID: "bB", OrderDate: d2, TotalQuantity: 3},
	}

	err := m.runner().RunDailyRefresh(context.Background(), d2)
	require.NoError(t, err)

	// An empty change set still commits cleanly.
	assert.Equal(t, 1, m.commits)
	assert.Equal(t, int64(3), m.records["rec-1"].TotalQuantity)
	assert.Equal(t, int64(3), m.products["p1"].LifetimeSaleQuantity)
}

func TestRefresh_NewBranchInserts(t *testing.T) {
	m := newMemoryBackend()
	seedRefs(m, []string{"p1"}, []string{"bA", "bC"})
	m.records["rec-1"] = core.Record{ID: "rec-1", ProductID: "p1", BranchID: "bA", OrderDate: d2, TotalQuantity: 5}
	m.products["p1"].LifetimeSaleQuantity = 5
	m.salesByDay["2026-03-02"] = []core.SaleRow{
		{ProductID: "p1", BranchID: "bA", OrderDate: d2, TotalQuantity: 5},
		{ProductID: "p1", BranchID: "bC", OrderDate: d2, TotalQuantity: 4},
	}

	err := m.runner().RunDailyRefresh(context.Background(), d2)
	require.NoError(t, err)

	assert.Len(t, m.records, 2)
	assert.Equal(t, int64(9), m.products["p1"].LifetimeSaleQuantity)
	assertCounterInvariant(t, m)
}

func TestRefresh_RepeatedRunsCreateNoDuplicates(t *testing.T) {
	m := newMemoryBackend()
	seedRefs(m, []string{"p1"}, []string{"bA"})
	m.salesByDay["2026-03-02"] = []core.SaleRow{
		{ProductID: "p1", BranchID: "bA", OrderDate: d2, TotalQuantity: 5},
	}

	runner := m.runner()
	for i := 0; i < 3; i++ {
		require.NoError(t, runner.RunDailyRefresh(context.Background(), d2))
	}

	assert.Len(t, m.records, 1)
	assert.Equal(t, int64(5), m.products["p1"].LifetimeSaleQuantity)
	assertCounterInvariant(t, m)
}

func TestRefresh_MissingBranchAbortsWholeRun(t *testing.T) {
	m := newMemoryBackend()
	seedRefs(m, []string{"p1", "p2"}, []string{"bA"}) // bX missing
	m.salesByDay["2026-03-02"] = []core.SaleRow{
		{ProductID: "p1", BranchID: "bA", OrderDate: d2, TotalQuantity: 5},
		{ProductID: "p2", BranchID: "bX", OrderDate: d2, TotalQuantity: 2},
	}

	err := m.runner().RunDailyRefresh(context.Background(), d2)

	var runErr *errors.RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, errors.JobRefreshAnalysis, runErr.Job)
	require.ErrorIs(t, err, errors.ErrBranchNotFound)

	// Nothing from the run is visible, not even the group that resolved.
	assert.Empty(t, m.records)
	assert.Equal(t, int64(0), m.products["p1"].LifetimeSaleQuantity)
	assert.Equal(t, 0, m.commits)
}

func TestRefresh_MissingProductAbortsWholeRun(t *testing.T) {
	m := newMemoryBackend()
	seedRefs(m, []string{"p1"}, []string{"bA"})
	m.salesByDay["2026-03-02"] = []core.SaleRow{
		{ProductID: "p1", BranchID: "bA", OrderDate: d2, TotalQuantity: 5},
		{ProductID: "p-ghost", BranchID: "bA", OrderDate: d2, TotalQuantity: 1},
	}

	err := m.runner().RunDailyRefresh(context.Background(), d2)
	require.ErrorIs(t, err, errors.ErrProductNotFound)
	assert.Empty(t, m.records)
	assert.Equal(t, 0, m.commits)
}

func TestRefresh_DefaultsToYesterday(t *testing.T) {
	m := newMemoryBackend()
	seedRefs(m, []string{"p1"}, []string{"bA"})
	m.salesByDay["2026-03-02"] = []core.SaleRow{
		{ProductID: "p1", BranchID: "bA", OrderDate: d2, TotalQuantity: 6},
	}

	runner := m.runner()
	runner.nowFn = func() time.Time { return time.Date(2026, 3, 3, 1, 0, 0, 0, time.UTC) }

	err := runner.RunDailyRefresh(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Len(t, m.records, 1)
	assert.Equal(t, int64(6), m.products["p1"].LifetimeSaleQuantity)
}

func TestRefresh_ManyProductsFanOut(t *testing.T) {
	m := newMemoryBackend()
	var rows []core.SaleRow
	for i := 0; i < 25; i++ {
		id := string(rune('a' + i%26))
		productID := "p-" + id
		if _, ok := m.products[productID]; !ok {
			m.products[productID] = &core.Product{ID: productID}
		}
		rows = append(rows, core.SaleRow{ProductID: productID, BranchID: "bA", OrderDate: d2, TotalQuantity: int64(i + 1)})
	}
	m.branches["bA"] = core.Branch{ID: "bA"}
	m.salesByDay["2026-03-02"] = rows

	err := m.runner().RunDailyRefresh(context.Background(), d2)
	require.NoError(t, err)
	assert.Len(t, m.records, 25)
	assertCounterInvariant(t, m)
}
