package application

import (
	"time"

	dataset "flexmarket-report/internal/dataset/domain"
	report "flexmarket-report/internal/report/domain"
	"flexmarket-report/internal/table"
)

// dated keeps rows whose column holds a timestamp on a day within rng.
func dated(t *table.Table, column string, rng dataset.Range) *table.Table {
	return t.Filter(func(r table.Row) bool {
		ts, ok := r.Time(column)
		return ok && within(ts, rng)
	})
}

// where keeps rows whose column text equals one of values.
func where(t *table.Table, column string, values ...string) *table.Table {
	want := make(map[string]bool, len(values))
	for _, v := range values {
		want[v] = true
	}
	return t.Filter(func(r table.Row) bool { return want[r.Text(column)] })
}

// withDay sets dst to midnight of the src timestamp.
func withDay(t *table.Table, src, dst string) *table.Table {
	return t.WithColumn(dst, func(r table.Row) table.Value {
		ts, ok := r.Time(src)
		if !ok {
			return table.Null()
		}
		return table.Time(time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC))
	})
}

// withMonth sets the month label and month start columns from src.
func withMonth(t *table.Table, src string) *table.Table {
	out := t.WithColumn(dataset.ColMonth, func(r table.Row) table.Value {
		ts, ok := r.Time(src)
		if !ok {
			return table.Null()
		}
		return table.Str(dataset.MonthLabel(ts))
	})
	return out.WithColumn(dataset.ColMonthStart, func(r table.Row) table.Value {
		ts, ok := r.Time(src)
		if !ok {
			return table.Null()
		}
		return table.Time(dataset.MonthStart(ts))
	})
}

// monthLabel renders month-start pivot headers as "Jan-24".
func monthLabel(v table.Value) string {
	if ts, ok := v.Time(); ok {
		return dataset.MonthLabel(ts)
	}
	return v.Text()
}

// renameEach renames every non-index column through fn.
func renameEach(t *table.Table, fn func(string) string, index ...string) (*table.Table, error) {
	mapping := map[string]string{}
	for _, c := range report.PivotColumns(t, index...) {
		mapping[c] = fn(c)
	}
	return t.Rename(mapping)
}

// activeAssets counts the distinct units active in the previous and the
// analysis month.
func activeAssets(t *table.Table, p Period) *table.Table {
	b := table.NewBuilder(dataset.ColMonth, colActiveAssets)
	for _, m := range []string{p.PrevMonth(), p.Month()} {
		b.Add(table.Str(m), table.Int(report.CountDistinct(where(t, dataset.ColMonth, m), dataset.ColNGUID)))
	}
	return b.Table()
}

const colActiveAssets = "Number of active assets"

// summaryRows stacks single-row tables into one labelled table with the
// given value columns.
func summaryRows(labels []string, rows []*table.Table, columns []string) *table.Table {
	b := table.NewBuilder(append([]string{"Measure"}, columns...)...)
	for i, label := range labels {
		row := []table.Value{table.Str(label)}
		for _, c := range columns {
			v := table.Null()
			if rows[i].Len() > 0 {
				v = rows[i].Get(0, c)
			}
			row = append(row, v)
		}
		b.Add(row...)
	}
	return b.Table()
}

func spec(column string, agg report.Agg, as ...string) report.Spec {
	s := report.Spec{Column: column, Agg: agg}
	if len(as) > 0 {
		s.As = as[0]
	}
	return s
}
