package analysis

import "sort"

// RunTotals accumulates per-product lifetime counter deltas across the
// change sets of one run. A product appears in exactly one group, so each
// product typically receives a single Add per run.
type RunTotals struct {
	deltas map[string]int64
}

// NewRunTotals returns an empty accumulator.
func NewRunTotals() *RunTotals {
	return &RunTotals{deltas: make(map[string]int64)}
}

// Add folds a product's quantity delta into the run total.
func (t *RunTotals) Add(productID string, delta int64) {
	t.deltas[productID] += delta
}

// Updates returns one counter update per product with a non-zero net delta,
// sorted by product ID for deterministic write order. Zero deltas are
// dropped so unchanged products see no write at all.
func (t *RunTotals) Updates() []CounterUpdate {
	updates := make([]CounterUpdate, 0, len(t.deltas))
	for productID, delta := range t.deltas {
		if delta == 0 {
			continue
		}
		updates = append(updates, CounterUpdate{ProductID: productID, Delta: delta})
	}
	sort.Slice(updates, func(i, j int) bool {
		return updates[i].ProductID < updates[j].ProductID
	})
	return updates
}
