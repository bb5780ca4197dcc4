package application

import (
	"time"

	"cloud.google.com/go/civil"

	dataset "flexmarket-report/internal/dataset/domain"
)

// Period is the analysis range of a run. The analysis month is the month of
// From; the previous month is the calendar month before it.
type Period struct {
	From civil.Date
	To   civil.Date
}

// NewPeriod validates from <= to.
func NewPeriod(from, to civil.Date) (Period, error) {
	if _, err := dataset.NewRange(from, to); err != nil {
		return Period{}, err
	}
	return Period{From: from, To: to}, nil
}

// Range returns [From, To].
func (p Period) Range() dataset.Range { return dataset.Range{From: p.From, To: p.To} }

// Since returns [from, To].
func (p Period) Since(from civil.Date) dataset.Range { return dataset.Range{From: from, To: p.To} }

// PrevFrom is the first day of the previous month.
func (p Period) PrevFrom() civil.Date {
	if p.From.Month == time.January {
		return civil.Date{Year: p.From.Year - 1, Month: time.December, Day: 1}
	}
	return civil.Date{Year: p.From.Year, Month: p.From.Month - 1, Day: 1}
}

// PrevTo is the day before From.
func (p Period) PrevTo() civil.Date { return p.From.AddDays(-1) }

// WithPrevious returns [PrevFrom, To].
func (p Period) WithPrevious() dataset.Range { return p.Since(p.PrevFrom()) }

// Month is the "Jan-24" label of the analysis month.
func (p Period) Month() string { return dataset.MonthLabel(p.From.In(time.UTC)) }

// PrevMonth is the label of the previous month.
func (p Period) PrevMonth() string { return dataset.MonthLabel(p.PrevFrom().In(time.UTC)) }

// MonthStart is midnight on the first day of the analysis month.
func (p Period) MonthStart() time.Time { return dataset.MonthStart(p.From.In(time.UTC)) }

// String renders the range.
func (p Period) String() string { return p.Range().String() }

// within reports whether the calendar date of t falls in rng.
func within(t time.Time, rng dataset.Range) bool {
	d := civil.DateOf(t)
	return !d.Before(rng.From) && !rng.To.Before(d)
}
