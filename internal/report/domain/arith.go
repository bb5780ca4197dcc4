package report

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"flexmarket-report/internal/table"
)

// Divide returns a/b, or null when either side is missing or b is zero.
func Divide(a, b table.Value) table.Value {
	x, okA := a.Float()
	y, okB := b.Float()
	if !okA || !okB || a.IsNull() || b.IsNull() || y == 0 {
		return table.Null()
	}
	return table.Num(x / y)
}

// Multiply returns the product of the values, or null when any is missing.
func Multiply(values ...table.Value) table.Value {
	product := 1.0
	for _, v := range values {
		f, ok := v.Float()
		if !ok || v.IsNull() {
			return table.Null()
		}
		product *= f
	}
	return table.Num(product)
}

// Add returns a+b, or null when either side is missing.
func Add(a, b table.Value) table.Value {
	x, okA := a.Float()
	y, okB := b.Float()
	if !okA || !okB || a.IsNull() || b.IsNull() {
		return table.Null()
	}
	return table.Num(x + y)
}

// Subtract returns a-b, or null when either side is missing.
func Subtract(a, b table.Value) table.Value {
	x, okA := a.Float()
	y, okB := b.Float()
	if !okA || !okB || a.IsNull() || b.IsNull() {
		return table.Null()
	}
	return table.Num(x - y)
}

// PercentChange returns current/previous - 1 as a fraction: 100 to 120 is 0.2.
// A zero or missing previous value yields null.
func PercentChange(current, previous table.Value) table.Value {
	ratio := Divide(current, previous)
	f, ok := ratio.Float()
	if !ok || ratio.IsNull() {
		return table.Null()
	}
	return table.Num(f - 1)
}

// Changes returns the row-over-row percentage change of every column except
// the index columns, which are copied. The first row has null changes.
func Changes(t *table.Table, index ...string) *table.Table {
	out := t
	for _, c := range PivotColumns(t, index...) {
		col := c
		out = out.WithColumn(col, func(r table.Row) table.Value {
			i := r.Index()
			if i == 0 {
				return table.Null()
			}
			return PercentChange(t.Get(i, col), t.Get(i-1, col))
		})
	}
	return out
}

// LatestChange returns the last row of Changes, the month-over-month change
// of a monthly summary.
func LatestChange(t *table.Table, index ...string) *table.Table {
	return Changes(t, index...).Tail(1)
}

// WeightedAverage returns sum(value*weight)/sum(weight) over rows where both
// are present, or null when the weights sum to zero.
func WeightedAverage(t *table.Table, value, weight string) table.Value {
	var values, weights []float64
	for i := 0; i < t.Len(); i++ {
		v, okV := t.Get(i, value).Float()
		w, okW := t.Get(i, weight).Float()
		if !okV || !okW || t.Get(i, value).IsNull() || t.Get(i, weight).IsNull() {
			continue
		}
		values = append(values, v)
		weights = append(weights, w)
	}
	if floats.Sum(weights) == 0 {
		return table.Null()
	}
	return table.Num(stat.Mean(values, weights))
}

// Scale multiplies the named columns by factor.
func Scale(t *table.Table, factor float64, columns ...string) *table.Table {
	out := t
	for _, c := range columns {
		col := c
		out = out.WithColumn(col, func(r table.Row) table.Value {
			return Multiply(r.Get(col), table.Num(factor))
		})
	}
	return out
}

// RowReduce adds column as the aggregate of the named columns in each row.
func RowReduce(t *table.Table, column string, agg Agg, columns ...string) *table.Table {
	return t.WithColumn(column, func(r table.Row) table.Value {
		values := make([]table.Value, len(columns))
		for i, c := range columns {
			values[i] = r.Get(c)
		}
		return agg.Reduce(values)
	})
}

// Ratio adds column as numerator/denominator per row.
func Ratio(t *table.Table, column, numerator, denominator string) *table.Table {
	return t.WithColumn(column, func(r table.Row) table.Value {
		return Divide(r.Get(numerator), r.Get(denominator))
	})
}

// Product adds column as the product of the named columns per row.
func Product(t *table.Table, column string, columns ...string) *table.Table {
	return t.WithColumn(column, func(r table.Row) table.Value {
		values := make([]table.Value, len(columns))
		for i, c := range columns {
			values[i] = r.Get(c)
		}
		return Multiply(values...)
	})
}

// FillForward replaces nulls in column with the previous non-null value and
// fills leading nulls with the first non-null value.
func FillForward(t *table.Table, column string) *table.Table {
	values, err := FillDown(t, column).Column(column)
	if err != nil {
		return t
	}
	var first table.Value
	for _, v := range values {
		if !v.IsNull() {
			first = v
			break
		}
	}
	for i, v := range values {
		if !v.IsNull() {
			break
		}
		values[i] = first
	}
	return t.WithColumn(column, func(r table.Row) table.Value { return values[r.Index()] })
}
