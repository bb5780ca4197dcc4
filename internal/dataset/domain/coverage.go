package dataset

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"flexmarket-report/internal/table"
)

// Range is an inclusive range of calendar dates.
type Range struct {
	From civil.Date
	To   civil.Date
}

// NewRange validates from <= to.
func NewRange(from, to civil.Date) (Range, error) {
	if !from.IsValid() || !to.IsValid() {
		return Range{}, fmt.Errorf("%w: %s..%s", ErrInvalidRange, from, to)
	}
	if to.Before(from) {
		return Range{}, fmt.Errorf("%w: %s is after %s", ErrInvalidRange, from, to)
	}
	return Range{From: from, To: to}, nil
}

func (r Range) String() string { return r.From.String() + ".." + r.To.String() }

// Extend moves the upper bound by days.
func (r Range) Extend(days int) Range {
	return Range{From: r.From, To: r.To.AddDays(days)}
}

// Days returns the number of whole days between From and To.
func (r Range) Days() int { return r.To.DaysSince(r.From) }

// Coverage is the [Min, Max] window of a cached table's date columns.
type Coverage struct {
	Min time.Time
	Max time.Time
	OK  bool
}

// CoverageOf computes the coverage over every date column. Null dates are
// ignored; a table with no dates has no coverage.
func CoverageOf(t *table.Table, dateColumns []string) (Coverage, error) {
	var cov Coverage
	for _, c := range dateColumns {
		if !t.Has(c) {
			return Coverage{}, fmt.Errorf("%w: %q", ErrMissingColumn, c)
		}
		lo, hi, ok := t.Range(c)
		if !ok {
			continue
		}
		loT, okLo := lo.Time()
		hiT, okHi := hi.Time()
		if !okLo || !okHi {
			return Coverage{}, fmt.Errorf("%w: %q holds %s values", ErrInvalidDateColumn, c, lo.Kind())
		}
		if !cov.OK || loT.Before(cov.Min) {
			cov.Min = loT
		}
		if !cov.OK || hiT.After(cov.Max) {
			cov.Max = hiT
		}
		cov.OK = true
	}
	return cov, nil
}

// Gap is a range missing from the cache. Prepend gaps lie before the cached data.
type Gap struct {
	Range
	Prepend bool
}

// Gaps returns the ranges to fetch so the cache covers want. The cache is
// considered current when its max date is within tolerance of want.To.
func (c Coverage) Gaps(want Range, tolerance time.Duration) []Gap {
	if !c.OK {
		return []Gap{{Range: want}}
	}
	var gaps []Gap
	minDate := civil.DateOf(c.Min)
	if want.From.Before(minDate) {
		gaps = append(gaps, Gap{Range: Range{From: want.From, To: minDate.AddDays(-1)}, Prepend: true})
	}
	threshold := want.To.In(time.UTC).Add(-tolerance)
	if c.Max.Before(threshold) {
		from := civil.DateOf(c.Max).AddDays(1)
		if !want.To.Before(from) {
			gaps = append(gaps, Gap{Range: Range{From: from, To: want.To}})
		}
	}
	return gaps
}
