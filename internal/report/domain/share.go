package report

import (
	"flexmarket-report/internal/table"
)

// Share converts a margins pivot into shares of the row total: every value
// column is divided by the total column, then the total row (whose first index
// cell equals total) and the total column are dropped. A zero or missing
// total yields null shares.
func Share(t *table.Table, index []string, total string) (*table.Table, error) {
	if err := t.Require(index...); err != nil {
		return nil, err
	}
	if err := t.Require(total); err != nil {
		return nil, err
	}
	out := t
	if len(index) > 0 {
		out = out.Filter(func(r table.Row) bool { return r.Text(index[0]) != total })
	}
	for _, c := range PivotColumns(t, append(append([]string(nil), index...), total)...) {
		col := c
		out = out.WithColumn(col, func(r table.Row) table.Value {
			return Divide(r.Get(col), r.Get(total))
		})
	}
	return out.Drop(total), nil
}
