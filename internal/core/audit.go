package core

import (
	"cmp"
	"fmt"
	"slices"
)

// AuditRecorder writes ledger rows. It has no update or delete path.
type AuditRecorder struct {
	clock Clock
}

// NewAuditRecorder constructs a recorder stamping rows with clock.
func NewAuditRecorder(clock Clock) AuditRecorder {
	return AuditRecorder{clock: clock}
}

// Append stamps PerformedAt at write time, discarding any caller-supplied
// value, and writes the row through the transaction.
func (a AuditRecorder) Append(tx Transaction, entry AssetHistory) (AssetHistory, error) {
	entry.ID = 0
	entry.PerformedAt = a.clock.Now()
	row, err := tx.AppendHistory(entry)
	if err != nil {
		return AssetHistory{}, fmt.Errorf("append history for asset %d: %w", entry.AssetID, err)
	}
	return row, nil
}

// ListAll returns every ledger row ordered by PerformedAt ascending, ties
// broken by id.
func (a AuditRecorder) ListAll(view TransactionView) []AssetHistory {
	rows := view.ListHistory()
	slices.SortStableFunc(rows, func(x, y AssetHistory) int {
		if c := x.PerformedAt.Compare(y.PerformedAt); c != 0 {
			return c
		}
		return cmp.Compare(x.ID, y.ID)
	})
	return rows
}
