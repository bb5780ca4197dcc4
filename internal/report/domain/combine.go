package report

import (
	"flexmarket-report/internal/table"
)

// Combine applies fn cell by cell to two tables indexed by the same columns.
// The result has the rows and columns of a; cells are paired by index key and
// column name, and a cell b lacks is passed to fn as null.
func Combine(a, b *table.Table, index []string, fn func(x, y table.Value) table.Value) (*table.Table, error) {
	if err := a.Require(index...); err != nil {
		return nil, err
	}
	if err := b.Require(index...); err != nil {
		return nil, err
	}
	rowOf := make(map[string]int, b.Len())
	for i := 0; i < b.Len(); i++ {
		rowOf[indexKey(b, i, index)] = i
	}
	out := a
	for _, c := range PivotColumns(a, index...) {
		col := c
		out = out.WithColumn(col, func(r table.Row) table.Value {
			y := table.Null()
			if j, ok := rowOf[indexKey(a, r.Index(), index)]; ok {
				y = b.Get(j, col)
			}
			return fn(r.Get(col), y)
		})
	}
	return out, nil
}

func indexKey(t *table.Table, i int, index []string) string {
	key := ""
	for _, c := range index {
		key += t.Get(i, c).Key() + "\x1f"
	}
	return key
}

// FillDown replaces nulls in column with the last non-null value above them.
// Leading nulls stay null.
func FillDown(t *table.Table, column string) *table.Table {
	values, err := t.Column(column)
	if err != nil {
		return t
	}
	var last table.Value
	for i, v := range values {
		if v.IsNull() {
			values[i] = last
			continue
		}
		last = v
	}
	return t.WithColumn(column, func(r table.Row) table.Value { return values[r.Index()] })
}

// FillZero replaces nulls in the named columns with 0.
func FillZero(t *table.Table, columns ...string) *table.Table {
	out := t
	for _, c := range columns {
		col := c
		out = out.WithColumn(col, func(r table.Row) table.Value {
			if v := r.Get(col); !v.IsNull() {
				return v
			}
			return table.Int(0)
		})
	}
	return out
}

// Ensure adds every missing column as an all-null column.
func Ensure(t *table.Table, columns ...string) *table.Table {
	out := t
	for _, c := range columns {
		if !out.Has(c) {
			out = out.WithColumn(c, func(table.Row) table.Value { return table.Null() })
		}
	}
	return out
}
