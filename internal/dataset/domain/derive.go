package dataset

import (
	"fmt"
	"time"

	"flexmarket-report/internal/table"
)

// MonthLayout renders month labels such as "Jan-24".
const MonthLayout = "Jan-06"

var providerNames = map[string]string{
	"Main Price Summary": "SIP",
	"APXMIDP":            "APX",
	"N2EXMIDP":           "N2EX",
}

// MonthLabel returns the "Jan-24" label of a timestamp.
func MonthLabel(t time.Time) string { return t.Format(MonthLayout) }

// MonthStart truncates a timestamp to the first day of its month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Derive adds the dataset-specific derived columns.
func Derive(name Name, t *table.Table, rules Rules) (*table.Table, error) {
	switch name {
	case DSP:
		if err := need(name, t, ColDate, ColSP, ColBMUID, ColPairID, ColVolume, ColSOFlag, ColCADLFlag); err != nil {
			return nil, err
		}
		out := withMonth(t, ColDate)
		out = out.WithColumn(ColVolumeABS, func(r table.Row) table.Value {
			f, ok := r.Float(ColVolume)
			if !ok {
				return table.Null()
			}
			if f < 0 {
				f = -f
			}
			return table.Num(f)
		})
		out = out.WithColumn(ColOrderType, rules.OrderType.Classify)
		out = out.WithColumn(ColEnergySystem, rules.EnergySystem.Classify)
		out = out.SortBy(table.Asc(ColDate), table.Asc(ColSP), table.Asc(ColBMUID))
		return withMonthStart(out, ColDate), nil
	case DISBSAD:
		if err := need(name, t, ColDate, ColVolume); err != nil {
			return nil, err
		}
		out := withMonth(t, ColDate)
		return out.WithColumn(ColOrderType, func(r table.Row) table.Value {
			return signLabel(r.Get(ColVolume))
		}), nil
	case EAC:
		if err := need(name, t, ColStartTime); err != nil {
			return nil, err
		}
		return withMonth(t, ColStartTime), nil
	case BMU:
		if err := need(name, t, ColCompany); err != nil {
			return nil, err
		}
		return t.WithColumn(ColCompany, func(r table.Row) table.Value {
			if r.Text(ColCompany) == "EDF" {
				return table.Str("EDF Energy")
			}
			return r.Get(ColCompany)
		}), nil
	case Capacity:
		if err := need(name, t, ColBMUID, ColNGUID, ColDate); err != nil {
			return nil, err
		}
		out := t.WithColumn(ColBMUCapacityID, compositeKey(ColBMUID, ColDate))
		return out.WithColumn(ColNGUCapacityID, compositeKey(ColNGUID, ColDate)), nil
	case MIP:
		if err := need(name, t, ColDescription); err != nil {
			return nil, err
		}
		return t.WithColumn(ColDescription, func(r table.Row) table.Value {
			if renamed, ok := providerNames[r.Text(ColDescription)]; ok {
				return table.Str(renamed)
			}
			return r.Get(ColDescription)
		}), nil
	default:
		return t, nil
	}
}

func need(name Name, t *table.Table, columns ...string) error {
	for _, c := range columns {
		if !t.Has(c) {
			return fmt.Errorf("%w: %s needs %q", ErrMissingColumn, name, c)
		}
	}
	return nil
}

func withMonth(t *table.Table, dateColumn string) *table.Table {
	return t.WithColumn(ColMonth, func(r table.Row) table.Value {
		ts, ok := r.Time(dateColumn)
		if !ok {
			return table.Null()
		}
		return table.Str(MonthLabel(ts))
	})
}

func withMonthStart(t *table.Table, dateColumn string) *table.Table {
	return t.WithColumn(ColMonthStart, func(r table.Row) table.Value {
		ts, ok := r.Time(dateColumn)
		if !ok {
			return table.Null()
		}
		return table.Time(MonthStart(ts))
	})
}

func compositeKey(idColumn, dateColumn string) func(table.Row) table.Value {
	return func(r table.Row) table.Value {
		id := r.Get(idColumn)
		if id.IsNull() {
			return table.Null()
		}
		return table.Str(id.Text() + r.Text(dateColumn))
	}
}
