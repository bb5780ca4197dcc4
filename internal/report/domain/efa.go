package report

import (
	"time"

	"flexmarket-report/internal/table"
)

// EFA blocks are the six 4-hour windows of the electricity forward agreement
// day, starting at 23:00. Start hours are listed for both GMT and BST.
var efaByStartHour = map[int]int{
	22: 1, 23: 1,
	2: 2, 3: 2,
	6: 3, 7: 3,
	10: 4, 11: 4,
	14: 5, 15: 5,
	18: 6, 19: 6,
}

// efaBySettlementPeriod marks the settlement period each EFA block starts at.
var efaBySettlementPeriod = map[int]int{45: 1, 5: 2, 13: 3, 21: 4, 29: 5, 37: 6}

// EFAForStart returns the EFA block of an auction window starting at t.
func EFAForStart(t time.Time) (int, bool) {
	efa, ok := efaByStartHour[t.Hour()]
	return efa, ok
}

// EFAForHour returns the EFA block containing a wall-clock hour (GMT).
func EFAForHour(hour int) int {
	return ((hour+1)%24)/4 + 1
}

// WithSettlementPeriodEFA adds an EFA column from the settlement period
// column: periods that start a block are mapped, the rest inherit the
// previous block and leading periods take the first block seen.
func WithSettlementPeriodEFA(t *table.Table, spColumn, efaColumn string) *table.Table {
	out := t.WithColumn(efaColumn, func(r table.Row) table.Value {
		sp, ok := r.Float(spColumn)
		if !ok {
			return table.Null()
		}
		if efa, ok := efaBySettlementPeriod[int(sp)]; ok {
			return table.Int(efa)
		}
		return table.Null()
	})
	return FillForward(out, efaColumn)
}
