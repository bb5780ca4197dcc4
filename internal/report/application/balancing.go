package application

import (
	"context"
	"fmt"

	dataset "flexmarket-report/internal/dataset/domain"
	report "flexmarket-report/internal/report/domain"
	"flexmarket-report/internal/table"
)

const (
	sheetActiveBMUs      = "Units active in BM"
	sheetBMPrices        = "BM prices"
	sheetDailyDispatches = "BM Daily Dispatches"
	sheetBMVolumes       = "BM Volumes"
	sheetBatterySpreads  = "Battery BM spreads"
	sheetMonthlyDispatch = "Monthly dispatches"
	sheetTechBreakdown   = "BOA Technology Breakdown"

	fuelBattery = "Battery"
	totalVolume = "Total volume"
)

var dispatchBreakdown = report.BreakdownOptions{
	Category: dataset.ColFuelType,
	Month:    dataset.ColMonth,
	Class:    dataset.ColEnergySystem,
	Side:     dataset.ColOrderType,
	Volume:   dataset.ColVolumeABS,
	Price:    dataset.ColPrice,
	Classes:  []string{dataset.Energy, dataset.System},
	Sides:    []string{dataset.Offer, dataset.Bid},
}

// balancingActions loads accepted bids and offers since the balancing history
// start with their NGU id and fuel type.
func balancingActions(ctx context.Context, e *env) (*table.Table, error) {
	rng := e.run.Period.Since(e.run.BalancingFrom)
	t, err := e.load(ctx, dataset.DSP, rng, e.xref.NGUByBMU(), e.xref.FuelByBMU())
	if err != nil {
		return nil, err
	}
	return dated(t, dataset.ColDate, rng), nil
}

func buildBalancing(ctx context.Context, e *env) (Output, error) {
	var out Output
	dsp, err := balancingActions(ctx, e)
	if err != nil {
		return out, fmt.Errorf("balancing actions: %w", err)
	}
	p := e.run.Period

	if err := activeUnits(&out, dsp, p); err != nil {
		return out, err
	}
	if err := balancingPrices(ctx, e, &out, dsp); err != nil {
		return out, err
	}
	if err := dailyDispatches(&out, dsp); err != nil {
		return out, err
	}
	if err := balancingVolumes(&out, dsp); err != nil {
		return out, err
	}
	if err := batterySpreads(&out, dsp); err != nil {
		return out, err
	}
	monthly := where(dsp, dataset.ColMonth, p.Month(), p.PrevMonth())
	if err := monthlyDispatches(&out, monthly, p); err != nil {
		return out, err
	}
	if err := techBreakdown(&out, monthly, p); err != nil {
		return out, err
	}
	return out, nil
}

func activeUnits(out *Output, dsp *table.Table, p Period) error {
	active, err := dated(dsp, dataset.ColDate, p.Range()).Select(dataset.ColBMUID, dataset.ColFuelType)
	if err != nil {
		return err
	}
	newGrid(out, sheetActiveBMUs).putFixed(0, 0, "Active BMUs during period", active.Distinct(), "A:C")
	return nil
}

func balancingPrices(ctx context.Context, e *env, out *Output, dsp *table.Table) error {
	prices, err := report.Pivot(dsp, report.PivotOptions{
		Index:   []string{dataset.ColOrderType, dataset.ColFuelType},
		Columns: dataset.ColMonthStart,
		Values:  dataset.ColPrice,
		Agg:     report.Mean,
		Label:   monthLabel,
	})
	if err != nil {
		return fmt.Errorf("prices by tech: %w", err)
	}

	rng := e.run.Period.Since(e.run.BalancingFrom)
	mip, err := e.load(ctx, dataset.MIP, rng)
	if err != nil {
		return fmt.Errorf("system prices: %w", err)
	}
	sip := withMonth(where(dated(mip, dataset.ColDate, rng), dataset.ColDescription, "SIP"), dataset.ColDate)
	sip, err = report.Aggregate(sip, []string{dataset.ColMonthStart},
		spec(dataset.ColMIPPrice, report.Mean, "Average"),
		spec(dataset.ColMIPPrice, report.Std, "Volatility"),
	)
	if err != nil {
		return fmt.Errorf("system prices: %w", err)
	}

	g := newGrid(out, sheetBMPrices)
	row, _, err := g.putClear(0, 0, "Average prices by tech type by month", prices, prices.Width())
	if err != nil {
		return err
	}
	g.put(row, 0, "Average SIP", sip)
	return nil
}

func dailyDispatches(out *Output, dsp *table.Table) error {
	daily, err := report.Pivot(dsp, report.PivotOptions{
		Index:   []string{dataset.ColDate},
		Columns: dataset.ColFuelType,
		Values:  dataset.ColVolumeABS,
		Agg:     report.Count,
	})
	if err != nil {
		return fmt.Errorf("daily dispatches: %w", err)
	}
	_, _, err = newGrid(out, sheetDailyDispatches).putSpan(0, 0, "Daily dispatches", daily)
	return err
}

// balancingVolumes writes absolute volume by fuel type by month and each fuel
// type's share of the monthly total, charted as stacked columns.
func balancingVolumes(out *Output, dsp *table.Table) error {
	volumes, err := report.Pivot(dsp, report.PivotOptions{
		Index:   []string{dataset.ColFuelType},
		Columns: dataset.ColMonthStart,
		Values:  dataset.ColVolumeABS,
		Agg:     report.Sum,
		Label:   monthLabel,
	})
	if err != nil {
		return fmt.Errorf("volumes by tech: %w", err)
	}
	totals, err := report.Pivot(dsp, report.PivotOptions{
		Index:       []string{dataset.ColMonthStart},
		Columns:     dataset.ColFuelType,
		Values:      dataset.ColVolumeABS,
		Agg:         report.Sum,
		Margins:     true,
		MarginsName: totalVolume,
	})
	if err != nil {
		return fmt.Errorf("volume share: %w", err)
	}
	share, err := report.Share(totals, []string{dataset.ColMonthStart}, totalVolume)
	if err != nil {
		return fmt.Errorf("volume share: %w", err)
	}

	g := newGrid(out, sheetBMVolumes)
	row, right, err := g.putClear(0, 0, "Abs volume by tech type by month", volumes, volumes.Width())
	if err != nil {
		return err
	}
	g.put(row, 0, "Abs volume share", share)
	return g.chart(ChartStackedColumn, "BM volume share by fuel type", max(right, share.Width()+1))
}

func batterySpreads(out *Output, dsp *table.Table) error {
	battery := where(dsp, dataset.ColFuelType, fuelBattery)
	side := func(orderType, price, volume string) (*table.Table, error) {
		return report.Aggregate(where(battery, dataset.ColOrderType, orderType), []string{dataset.ColDate},
			spec(dataset.ColPrice, report.Mean, price),
			spec(dataset.ColVolume, report.Sum, volume),
		)
	}
	offers, err := side(dataset.Offer, "Average offer price (£/MWh)", "Offer volume (MWh)")
	if err != nil {
		return fmt.Errorf("battery offers: %w", err)
	}
	bids, err := side(dataset.Bid, "Average bid price (£/MWh)", "Bid volume (MWh)")
	if err != nil {
		return fmt.Errorf("battery bids: %w", err)
	}
	g := newGrid(out, sheetBatterySpreads)
	_, right, err := g.putClear(0, 0, "Battery offers", offers, offers.Width()+1+bids.Width())
	if err != nil {
		return err
	}
	g.put(0, right, "Battery bids", bids)
	return nil
}

// monthlyDispatches compares dispatch counts by fuel type between the
// analysis month and the previous month, in total and per active day.
func monthlyDispatches(out *Output, monthly *table.Table, p Period) error {
	month, prev := p.Month(), p.PrevMonth()
	totals, err := report.Pivot(monthly, report.PivotOptions{
		Index:   []string{dataset.ColFuelType},
		Columns: dataset.ColMonth,
		Values:  dataset.ColVolumeABS,
		Agg:     report.Count,
	})
	if err != nil {
		return fmt.Errorf("monthly dispatches: %w", err)
	}
	totals = report.Ensure(totals, month, prev)

	perDay, err := report.Aggregate(monthly, []string{dataset.ColFuelType, dataset.ColMonth, dataset.ColDate},
		spec(dataset.ColVolumeABS, report.Count, "dispatches"))
	if err != nil {
		return fmt.Errorf("daily dispatch rates: %w", err)
	}
	averages, err := report.Pivot(perDay, report.PivotOptions{
		Index:   []string{dataset.ColFuelType},
		Columns: dataset.ColMonth,
		Values:  "dispatches",
		Agg:     report.Mean,
	})
	if err != nil {
		return fmt.Errorf("daily dispatch rates: %w", err)
	}
	averages = report.Ensure(averages, month, prev)

	totalCur, totalPrev := month+" total dispatches", prev+" total dispatches"
	avgCur, avgPrev := "Average daily dispatches "+month, "Average daily dispatches "+prev
	if totals, err = totals.Select(dataset.ColFuelType, month, prev); err != nil {
		return err
	}
	if totals, err = totals.Rename(map[string]string{month: totalCur, prev: totalPrev}); err != nil {
		return err
	}
	totals = totals.WithColumn("Change in total dispatches", func(r table.Row) table.Value {
		return report.PercentChange(r.Get(totalCur), r.Get(totalPrev))
	})
	if averages, err = averages.Select(dataset.ColFuelType, month, prev); err != nil {
		return err
	}
	if averages, err = averages.Rename(map[string]string{month: avgCur, prev: avgPrev}); err != nil {
		return err
	}
	summary, err := table.Merge(totals, averages, []string{dataset.ColFuelType}, table.OuterJoin)
	if err != nil {
		return err
	}
	summary = summary.WithColumn("Change in average daily dispatches", func(r table.Row) table.Value {
		return report.PercentChange(r.Get(avgCur), r.Get(avgPrev))
	}).SortBy(table.Asc(dataset.ColFuelType))

	_, _, err = newGrid(out, sheetMonthlyDispatch).putSpan(0, 0, "Monthly dispatches", summary)
	return err
}

func techBreakdown(out *Output, monthly *table.Table, p Period) error {
	measures := []struct{ measure, title string }{
		{report.BreakdownVolume, "Total volume"},
		{report.BreakdownCount, "Total count"},
		{report.BreakdownPrice, "Average price"},
	}
	current := make([]*table.Table, len(measures))
	prior := make([]*table.Table, len(measures))
	width := 0
	for i, m := range measures {
		var err error
		current[i], prior[i], err = report.TechBreakdown(monthly, m.measure, p.Month(), p.PrevMonth(), dispatchBreakdown)
		if err != nil {
			return fmt.Errorf("tech breakdown: %w", err)
		}
		width += max(current[i].Width(), prior[i].Width()) + 1
	}

	g := newGrid(out, sheetTechBreakdown)
	col := 0
	for i, m := range measures {
		var row, right int
		var err error
		if i == 0 {
			row, right, err = g.putClear(0, col, m.title, current[i], width)
			if err != nil {
				return err
			}
		} else {
			row, right = g.put(0, col, m.title, current[i])
		}
		g.put(row, col, m.title, prior[i])
		col = right
	}
	return nil
}
