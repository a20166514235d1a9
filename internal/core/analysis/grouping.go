package analysis

// ProductGroup holds all raw rows for one product, in input order.
type ProductGroup struct {
	ProductID string
	Rows      []SaleRow
}

// GroupByProduct partitions raw rows by product. Group order follows the
// first appearance of each product in the input, and rows within a group
// keep their input order, so a run over the same raw result set is
// deterministic. Empty input returns an empty slice.
func GroupByProduct(rows []SaleRow) []ProductGroup {
	if len(rows) == 0 {
		return nil
	}

	index := make(map[string]int, len(rows))
	groups := make([]ProductGroup, 0, len(rows))
	for _, row := range rows {
		i, ok := index[row.ProductID]
		if !ok {
			i = len(groups)
			index[row.ProductID] = i
			groups = append(groups, ProductGroup{ProductID: row.ProductID})
		}
		groups[i].Rows = append(groups[i].Rows, row)
	}
	return groups
}
