package application

import (
	"context"
	"fmt"

	dataset "flexmarket-report/internal/dataset/domain"
	report "flexmarket-report/internal/report/domain"
	"flexmarket-report/internal/table"
)

const (
	sheetDISBSADData   = "DISBSAD data"
	sheetDISBSAD       = "DISBSAD"
	sheetDISBSADGraphs = "DISBSAD Graphs"
)

func buildDISBSAD(ctx context.Context, e *env) (Output, error) {
	var out Output
	p := e.run.Period
	rng := p.Since(e.run.BalancingFrom)
	t, err := e.load(ctx, dataset.DISBSAD, rng, e.xref.BMUByNGU(), e.xref.FuelByUnit())
	if err != nil {
		return out, fmt.Errorf("adjustment actions: %w", err)
	}
	t = withMonth(dated(t, dataset.ColDate, rng), dataset.ColDate)
	t = t.WithColumn(dataset.ColPrice, func(r table.Row) table.Value {
		if v := r.Get(dataset.ColPrice); !v.IsNull() {
			return v
		}
		return report.Divide(r.Get(dataset.ColCost), r.Get(dataset.ColVolume))
	})

	byService, err := volumeByOrderType(t, dataset.ColServiceType)
	if err != nil {
		return out, fmt.Errorf("volume by service: %w", err)
	}
	serviceSummary, err := compareMonths(byService, dataset.ColServiceType, p)
	if err != nil {
		return out, fmt.Errorf("volume by service: %w", err)
	}
	byFuel, err := volumeByOrderType(t, dataset.ColFuelType)
	if err != nil {
		return out, fmt.Errorf("volume by fuel type: %w", err)
	}
	fuelSummary, err := compareMonths(byFuel, dataset.ColFuelType, p)
	if err != nil {
		return out, fmt.Errorf("volume by fuel type: %w", err)
	}

	inRange := dated(t, dataset.ColDate, p.Range())
	prices, err := report.Pivot(inRange, report.PivotOptions{
		Index:   []string{dataset.ColFuelType},
		Columns: dataset.ColOrderType,
		Values:  dataset.ColPrice,
		Agg:     report.Mean,
	})
	if err != nil {
		return out, fmt.Errorf("prices by fuel type: %w", err)
	}
	daily, err := dailyAdjustments(where(t, dataset.ColMonth, p.Month()))
	if err != nil {
		return out, fmt.Errorf("daily volumes: %w", err)
	}

	if _, _, err := newGrid(&out, sheetDISBSADData).putClear(0, 0, "DISBSAD data", inRange, inRange.Width()+1); err != nil {
		return out, err
	}

	g := newGrid(&out, sheetDISBSAD)
	_, right, err := g.putClear(0, 0, "DISBSAD Volume by Service", byService, byService.Width()+1+serviceSummary.Width())
	if err != nil {
		return out, err
	}
	g.put(0, right, "Volume summary table", serviceSummary)

	g = newGrid(&out, sheetDISBSADGraphs)
	_, right, err = g.putClear(0, 0, "DISBSAD Volume by Fuel Type", daily, daily.Width()+1+fuelSummary.Width()+1+prices.Width())
	if err != nil {
		return out, err
	}
	_, right = g.put(0, right, "DISBSAD Volume by Fuel Type Summary", fuelSummary)
	g.put(0, right, "DISBSAD Prices by Fuel Type Summary", prices)
	return out, nil
}

// volumeByOrderType sums volume per month and category into Offer and Bid columns.
func volumeByOrderType(t *table.Table, category string) (*table.Table, error) {
	return report.Pivot(t, report.PivotOptions{
		Index:   []string{dataset.ColMonthStart, dataset.ColMonth, category},
		Columns: dataset.ColOrderType,
		Values:  dataset.ColVolume,
		Agg:     report.Sum,
	})
}

// compareMonths lays the analysis month's rows of a monthly table beside the
// previous month's, keyed by category. Value columns get a " vol <month>"
// suffix.
func compareMonths(monthly *table.Table, category string, p Period) (*table.Table, error) {
	side := func(month string) (*table.Table, error) {
		t := where(monthly, dataset.ColMonth, month).Drop(monthIndex...)
		return renameEach(t, func(c string) string { return c + " vol " + month }, category)
	}
	cur, err := side(p.Month())
	if err != nil {
		return nil, err
	}
	prev, err := side(p.PrevMonth())
	if err != nil {
		return nil, err
	}
	merged, err := table.Merge(cur, prev, []string{category}, table.OuterJoin)
	if err != nil {
		return nil, err
	}
	return merged.SortBy(table.Asc(category)), nil
}

// dailyAdjustments is the daily volume by fuel type with that day's highest price.
func dailyAdjustments(t *table.Table) (*table.Table, error) {
	volumes, err := report.Pivot(t, report.PivotOptions{
		Index:   []string{dataset.ColDate},
		Columns: dataset.ColFuelType,
		Values:  dataset.ColVolume,
		Agg:     report.Sum,
	})
	if err != nil {
		return nil, err
	}
	peak, err := report.Aggregate(t, []string{dataset.ColDate}, spec(dataset.ColPrice, report.Max))
	if err != nil {
		return nil, err
	}
	return table.Merge(volumes, peak, []string{dataset.ColDate}, table.InnerJoin)
}
