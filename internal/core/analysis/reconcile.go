package analysis

import (
	"time"

	"github.com/google/uuid"
)

// ChangeSet is the outcome of reconciling one product group: the minimal
// inserts and in-place updates for the run's window, plus the net change to
// the product's lifetime counter.
type ChangeSet struct {
	ProductID     string
	Inserts       []Record
	Updates       []Record
	QuantityDelta int64
}

// Empty reports whether the change set carries no writes at all.
func (c ChangeSet) Empty() bool {
	return len(c.Inserts) == 0 && len(c.Updates) == 0
}

type recordKey struct {
	branchID string
	day      int64 // unix seconds of the normalized day boundary
}

// Reconcile diffs one product's raw rows against the stored records for the
// run's window and computes the minimal write set.
//
// Per row: a stored record with the same (branch, day) key and a different
// quantity is marked for update and contributes new-old to the delta; an
// equal quantity leaves the record untouched; no match builds a new record
// and contributes the full quantity. Rows that collide with a record already
// pending in this run (a duplicate (branch, day) within the group) fold into
// the pending record instead of producing a second row for the same key.
//
// Bootstrap is the degenerate case: an empty existing snapshot turns every
// row into an insert and the delta into the group sum.
//
// Branch existence is the caller's concern; rows reaching Reconcile have
// already been resolved.
func Reconcile(productID string, rows []SaleRow, existing []Record, loc *time.Location, now time.Time) ChangeSet {
	cs := ChangeSet{ProductID: productID}

	stored := make(map[recordKey]Record, len(existing))
	for _, rec := range existing {
		stored[keyFor(rec.BranchID, rec.OrderDate, loc)] = rec
	}

	// Pending records are indexed by position so later duplicates mutate the
	// record that is already marked for this run.
	type pendingRef struct {
		insert bool
		idx    int
	}
	pending := make(map[recordKey]pendingRef)

	for _, row := range rows {
		key := keyFor(row.BranchID, row.OrderDate, loc)

		if ref, ok := pending[key]; ok {
			var rec *Record
			if ref.insert {
				rec = &cs.Inserts[ref.idx]
			} else {
				rec = &cs.Updates[ref.idx]
			}
			if rec.TotalQuantity != row.TotalQuantity {
				cs.QuantityDelta += row.TotalQuantity - rec.TotalQuantity
				rec.TotalQuantity = row.TotalQuantity
			}
			continue
		}

		if match, ok := stored[key]; ok {
			if match.TotalQuantity == row.TotalQuantity {
				continue
			}
			cs.QuantityDelta += row.TotalQuantity - match.TotalQuantity
			match.TotalQuantity = row.TotalQuantity
			cs.Updates = append(cs.Updates, match)
			pending[key] = pendingRef{insert: false, idx: len(cs.Updates) - 1}
			continue
		}

		cs.Inserts = append(cs.Inserts, Record{
			ID:            uuid.NewString(),
			ProductID:     productID,
			BranchID:      row.BranchID,
			OrderDate:     DayOf(row.OrderDate, loc),
			TotalQuantity: row.TotalQuantity,
			CreatedAt:     now,
		})
		pending[key] = pendingRef{insert: true, idx: len(cs.Inserts) - 1}
		cs.QuantityDelta += row.TotalQuantity
	}

	return cs
}

func keyFor(branchID string, orderDate time.Time, loc *time.Location) recordKey {
	return recordKey{branchID: branchID, day: DayOf(orderDate, loc).Unix()}
}
