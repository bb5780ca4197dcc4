package report

import (
	"fmt"
	"strings"

	"flexmarket-report/internal/table"
)

// Technology breakdown measures.
const (
	BreakdownVolume = "Volume"
	BreakdownPrice  = "Price"
	BreakdownCount  = "Count"
)

// BreakdownOptions names the columns and labels TechBreakdown reads.
type BreakdownOptions struct {
	Category string
	Month    string
	Class    string
	Side     string
	Volume   string
	Price    string
	Classes  []string
	Sides    []string
}

func (o BreakdownOptions) measure(m string) (string, Agg, error) {
	switch m {
	case BreakdownVolume:
		return o.Volume, Sum, nil
	case BreakdownPrice:
		return o.Price, Mean, nil
	case BreakdownCount:
		return o.Volume, Count, nil
	default:
		return "", "", fmt.Errorf("%w %q: choose one of %s, %s, %s", ErrUnsupportedBreakdown, m, BreakdownVolume, BreakdownPrice, BreakdownCount)
	}
}

// TechBreakdown splits a measure by category for every class and side pair,
// one column per pair named "<class> <side> <measure> <month>", for the
// current and the previous month.
func TechBreakdown(t *table.Table, measure, month, previous string, opts BreakdownOptions) (current, prior *table.Table, err error) {
	value, agg, err := opts.measure(measure)
	if err != nil {
		return nil, nil, err
	}
	if err := t.Require(opts.Category, opts.Month, opts.Class, opts.Side, value); err != nil {
		return nil, nil, err
	}
	current = table.Empty(opts.Category)
	prior = table.Empty(opts.Category)
	for _, class := range opts.Classes {
		for _, side := range opts.Sides {
			c, s := class, side
			sub := t.Filter(func(r table.Row) bool { return r.Text(opts.Class) == c && r.Text(opts.Side) == s })
			p, err := Pivot(sub, PivotOptions{Index: []string{opts.Category}, Columns: opts.Month, Values: value, Agg: agg})
			if err != nil {
				return nil, nil, err
			}
			p = Ensure(p, month, previous)
			prefix := fmt.Sprintf("%s %s %s ", c, s, strings.ToLower(measure))
			if current, err = mergeMonth(current, p, opts.Category, month, prefix+month); err != nil {
				return nil, nil, err
			}
			if prior, err = mergeMonth(prior, p, opts.Category, previous, prefix+previous); err != nil {
				return nil, nil, err
			}
		}
	}
	return current.SortBy(table.Asc(opts.Category)), prior.SortBy(table.Asc(opts.Category)), nil
}

func mergeMonth(acc, pivot *table.Table, category, month, as string) (*table.Table, error) {
	col, err := pivot.Select(category, month)
	if err != nil {
		return nil, err
	}
	if col, err = col.Rename(map[string]string{month: as}); err != nil {
		return nil, err
	}
	return table.Merge(acc, col, []string{category}, table.OuterJoin)
}
