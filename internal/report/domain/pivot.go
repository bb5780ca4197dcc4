package report

import (
	"flexmarket-report/internal/table"
)

// DefaultMarginsName labels margin rows and columns when no name is given.
const DefaultMarginsName = "All"

// PivotOptions configures Pivot.
type PivotOptions struct {
	Index   []string
	Columns string
	Values  string
	Agg     Agg
	// Margins adds a total column and a total row, each aggregated from the
	// underlying values rather than from the pivoted cells.
	Margins     bool
	MarginsName string
	// Label renders pivot column values as headers. Defaults to Value.Text.
	Label func(table.Value) string
}

// Pivot spreads the distinct values of Columns into one column each, indexed
// by Index, aggregating Values with Agg. Rows with a null index or column key
// are dropped, as are rows and columns with no non-null cell.
func Pivot(t *table.Table, opts PivotOptions) (*table.Table, error) {
	if err := opts.Agg.Validate(); err != nil {
		return nil, err
	}
	if err := t.Require(opts.Index...); err != nil {
		return nil, err
	}
	if err := t.Require(opts.Columns, opts.Values); err != nil {
		return nil, err
	}
	label := opts.Label
	if label == nil {
		label = func(v table.Value) string { return v.Text() }
	}
	marginsName := opts.MarginsName
	if marginsName == "" {
		marginsName = DefaultMarginsName
	}

	data := t.Filter(func(r table.Row) bool { return !r.Get(opts.Columns).IsNull() })
	pivotValues := data.Unique(opts.Columns)
	groups := groupRows(data, opts.Index)

	// cells[g][c] holds the aggregate for group g and pivot value c.
	cells := make([][]table.Value, len(groups))
	keep := make([]bool, len(pivotValues))
	for gi, g := range groups {
		byValue := map[string][]int{}
		for _, r := range g.rows {
			k := data.Get(r, opts.Columns).Key()
			byValue[k] = append(byValue[k], r)
		}
		row := make([]table.Value, len(pivotValues))
		for ci, pv := range pivotValues {
			rows, ok := byValue[pv.Key()]
			if !ok {
				continue
			}
			row[ci] = opts.Agg.Reduce(collect(data, rows, opts.Values))
			if !row[ci].IsNull() {
				keep[ci] = true
			}
		}
		cells[gi] = row
	}

	columns := append([]string(nil), opts.Index...)
	for ci, pv := range pivotValues {
		if keep[ci] {
			columns = append(columns, label(pv))
		}
	}
	if opts.Margins {
		columns = append(columns, marginsName)
	}
	b := table.NewBuilder(columns...)
	for gi, g := range groups {
		row := append([]table.Value(nil), g.keys...)
		empty := true
		for ci := range pivotValues {
			if !keep[ci] {
				continue
			}
			row = append(row, cells[gi][ci])
			if !cells[gi][ci].IsNull() {
				empty = false
			}
		}
		if empty {
			continue
		}
		if opts.Margins {
			row = append(row, opts.Agg.Reduce(collect(data, g.rows, opts.Values)))
		}
		b.Add(row...)
	}
	if opts.Margins {
		row := make([]table.Value, 0, len(columns))
		for i := range opts.Index {
			if i == 0 {
				row = append(row, table.Str(marginsName))
				continue
			}
			row = append(row, table.Str(""))
		}
		var all []int
		for _, g := range groups {
			all = append(all, g.rows...)
		}
		for ci, pv := range pivotValues {
			if !keep[ci] {
				continue
			}
			var rows []int
			for _, r := range all {
				if data.Get(r, opts.Columns).Equal(pv) {
					rows = append(rows, r)
				}
			}
			row = append(row, opts.Agg.Reduce(collect(data, rows, opts.Values)))
		}
		row = append(row, opts.Agg.Reduce(collect(data, all, opts.Values)))
		b.Add(row...)
	}
	out := b.Table()
	if _, err := table.New(out.Columns()); err != nil {
		return nil, err
	}
	return out, nil
}

// PivotColumns returns the non-index columns of a pivot result.
func PivotColumns(t *table.Table, index ...string) []string {
	skip := make(map[string]bool, len(index))
	for _, c := range index {
		skip[c] = true
	}
	var out []string
	for _, c := range t.Columns() {
		if !skip[c] {
			out = append(out, c)
		}
	}
	return out
}
