package application

import (
	"context"
	"fmt"
	"strconv"

	dataset "flexmarket-report/internal/dataset/domain"
	report "flexmarket-report/internal/report/domain"
	"flexmarket-report/internal/table"
)

const (
	sheetClearingPrices = "Clearing price graph"
	sheetResponseVolume = "Response volume"

	colUnitKind      = "BMU?"
	colSubmittedCost = "Submitted £/hr"
	colHours         = "dt"
	colRevenue       = "Revenue"
	colPricePerMWh   = "£/MWh"

	colRenewableShare = "% of forecast demand from forecast renewables"

	// frequency sample columns
	colSampleTime = "dtm"
	colSampleFreq = "f"
)

var efaColumns = []string{"1", "2", "3", "4", "5", "6"}

// auctionResults loads EAC sell orders for the analysis and previous month.
func auctionResults(ctx context.Context, e *env, rng dataset.Range) (*table.Table, error) {
	t, err := e.load(ctx, dataset.EAC, rng, e.xref.BMUByNGU(), e.xref.FuelByUnit())
	if err != nil {
		return nil, err
	}
	t = dated(t, dataset.ColStartTime, rng)
	t = withMonth(withDay(t, dataset.ColStartTime, dataset.ColDate), dataset.ColStartTime)
	t = t.WithColumn(colUnitKind, func(r table.Row) table.Value {
		if r.Get(dataset.ColBMUID).IsNull() {
			return table.Str("NBM")
		}
		return table.Str("BM")
	})
	t = report.Product(t, colSubmittedCost, dataset.ColEACVolume, dataset.ColEACSubmittedPrice)
	t = t.WithColumn(colHours, func(r table.Row) table.Value {
		start, okS := r.Time(dataset.ColStartTime)
		end, okE := r.Time(dataset.ColEndTime)
		if !okS || !okE {
			return table.Null()
		}
		return table.Num(end.Sub(start).Hours())
	})
	return report.Product(t, colRevenue, dataset.ColEACExecutedVolume, dataset.ColEACClearingPrice, colHours), nil
}

func buildEAC(ctx context.Context, e *env) (Output, error) {
	var out Output
	p := e.run.Period
	t, err := auctionResults(ctx, e, p.WithPrevious())
	if err != nil {
		return out, fmt.Errorf("auction results: %w", err)
	}
	inRange := dated(t, dataset.ColStartTime, p.Range()).SortBy(table.Asc(dataset.ColStartTime))

	var response []string
	for _, v := range inRange.Unique(dataset.ColService) {
		service := v.Text()
		kind, err := report.ClassifyService(service)
		if err != nil {
			return out, err
		}
		orders := where(inRange, dataset.ColService, service)
		switch kind {
		case report.Reserve:
			err = reserveService(&out, service, orders, p)
		case report.Response:
			response = append(response, service)
			err = responseService(&out, service, orders, where(t, dataset.ColService, service), p)
		}
		if err != nil {
			return out, fmt.Errorf("service %s: %w", service, err)
		}
	}

	if e.frequency != nil && e.run.FrequencyFile != "" && len(response) > 0 {
		if err := responseEnergyPrices(&out, e, inRange, response); err != nil {
			return out, fmt.Errorf("response energy: %w", err)
		}
	}
	if err := clearingPriceGraph(ctx, e, &out, t, inRange); err != nil {
		return out, fmt.Errorf("clearing prices: %w", err)
	}
	return out, nil
}

// reserveService writes submitted, accepted and rejected volume by fuel type
// per auction window and clearing price, and the submitted-volume weighted
// average price per window.
func reserveService(out *Output, service string, orders *table.Table, p Period) error {
	index := []string{dataset.ColStartTime, dataset.ColEACClearingPrice}
	byFuel := func(values string, index ...string) (*table.Table, error) {
		return report.Pivot(orders, report.PivotOptions{Index: index, Columns: dataset.ColFuelType, Values: values, Agg: report.Sum})
	}
	submitted, err := byFuel(dataset.ColEACVolume, index...)
	if err != nil {
		return err
	}
	accepted, err := byFuel(dataset.ColEACExecutedVolume, index...)
	if err != nil {
		return err
	}
	rejected, err := report.Combine(submitted, accepted, index, func(sub, acc table.Value) table.Value {
		if acc.IsNull() {
			acc = table.Int(0)
		}
		return report.Subtract(sub, acc)
	})
	if err != nil {
		return err
	}
	cost, err := byFuel(colSubmittedCost, dataset.ColStartTime)
	if err != nil {
		return err
	}
	volume, err := byFuel(dataset.ColEACVolume, dataset.ColStartTime)
	if err != nil {
		return err
	}
	weighted, err := report.Combine(cost, volume, []string{dataset.ColStartTime}, report.Divide)
	if err != nil {
		return err
	}

	suffix := fmt.Sprintf(" %s (%s)", service, p.Month())
	g := newGrid(out, service)
	width := submitted.Width() + accepted.Width() + weighted.Width() + rejected.Width() + 3
	_, right, err := g.putClear(0, 0, "Submitted volume"+suffix, submitted, width)
	if err != nil {
		return err
	}
	_, right = g.put(0, right, "Accepted volume"+suffix, accepted)
	_, right = g.put(0, right, "Weighted average submitted price"+suffix, weighted)
	g.put(0, right, "Rejected volume"+suffix, rejected)
	return nil
}

// responseService writes per-window volumes and prices for the analysis
// range and EFA block summaries comparing the last two months.
func responseService(out *Output, service string, orders, history *table.Table, p Period) error {
	volumes, err := report.Aggregate(orders, []string{dataset.ColStartTime},
		spec(dataset.ColEACVolume, report.Sum),
		spec(dataset.ColEACExecutedVolume, report.Sum),
		spec(dataset.ColEACClearingPrice, report.Mean, "Clearing price"),
		spec(colSubmittedCost, report.Sum, "sum of submitted £/hr"),
	)
	if err != nil {
		return err
	}
	volumes = report.Ratio(volumes, "Acceptance rate", dataset.ColEACExecutedVolume, dataset.ColEACVolume)
	volumes = report.Ratio(volumes, "Weighted average submitted price", "sum of submitted £/hr", dataset.ColEACVolume)
	// Chart helper: the unaccepted part of the submitted volume.
	volumes = volumes.WithColumn(dataset.ColSubmittedMW, func(r table.Row) table.Value {
		return report.Subtract(r.Get(dataset.ColEACVolume), r.Get(dataset.ColEACExecutedVolume))
	})

	history = withWindowEFA(history)
	prices, err := efaPriceSummary(history)
	if err != nil {
		return err
	}
	vols, err := efaVolumeSummary(history)
	if err != nil {
		return err
	}

	g := newGrid(out, service)
	_, right, err := g.putClear(0, 0, fmt.Sprintf("Volumes in %s (%s)", service, p.Month()), volumes, volumes.Width()+1+prices.Width())
	if err != nil {
		return err
	}
	row, _ := g.put(0, right, "Average prices", prices)
	g.put(row, right, "Average volumes", vols)
	return nil
}

// withWindowEFA labels each order with the EFA block its window starts.
func withWindowEFA(t *table.Table) *table.Table {
	return t.WithColumn(dataset.ColEFA, func(r table.Row) table.Value {
		start, ok := r.Time(dataset.ColStartTime)
		if !ok {
			return table.Null()
		}
		efa, ok := report.EFAForStart(start)
		if !ok {
			return table.Null()
		}
		return table.Str(strconv.Itoa(efa))
	})
}

// efaMonthly pivots a daily per-EFA measure and reduces it per month with agg.
func efaMonthly(t *table.Table, values string, daily, monthly report.Agg) (*table.Table, error) {
	days, err := report.Pivot(t, report.PivotOptions{
		Index:   []string{dataset.ColDate, dataset.ColMonthStart},
		Columns: dataset.ColEFA,
		Values:  values,
		Agg:     daily,
	})
	if err != nil {
		return nil, err
	}
	var specs []report.Spec
	for _, c := range report.PivotColumns(days, dataset.ColDate, dataset.ColMonthStart) {
		specs = append(specs, spec(c, monthly))
	}
	return report.Aggregate(days, []string{dataset.ColMonthStart}, specs...)
}

func latestWithChange(monthly *table.Table) []*table.Table {
	return []*table.Table{monthly.Tail(1), report.LatestChange(monthly, dataset.ColMonthStart)}
}

func efaPriceSummary(t *table.Table) (*table.Table, error) {
	var rows []*table.Table
	for _, agg := range []report.Agg{report.Max, report.Mean, report.Min} {
		monthly, err := efaMonthly(t, dataset.ColEACClearingPrice, report.Mean, agg)
		if err != nil {
			return nil, err
		}
		rows = append(rows, latestWithChange(monthly)...)
	}
	labels := []string{
		"Max clearing price", "m-o-m change",
		"Average clearing price", "m-o-m change",
		"Min clearing price", "m-o-m change",
	}
	return summaryRows(labels, rows, efaColumns), nil
}

func efaVolumeSummary(t *table.Table) (*table.Table, error) {
	var rows []*table.Table
	for _, values := range []string{dataset.ColEACExecutedVolume, dataset.ColEACVolume} {
		monthly, err := efaMonthly(t, values, report.Sum, report.Mean)
		if err != nil {
			return nil, err
		}
		rows = append(rows, latestWithChange(monthly)...)
	}
	labels := []string{
		"Average accepted volume per EFA block", "m-o-m change",
		"Average submitted volume per EFA block", "m-o-m change",
	}
	return summaryRows(labels, rows, efaColumns), nil
}

// responseEnergyPrices relates response revenue to the energy a 1 MW contract
// would have delivered given the measured system frequency.
func responseEnergyPrices(out *Output, e *env, orders *table.Table, services []string) error {
	samples, err := e.frequency(e.run.FrequencyFile, e.run.Period.Range())
	if err != nil {
		return err
	}
	energy, err := report.ResponseEnergy(samples, colSampleTime, colSampleFreq, services)
	if err != nil {
		return err
	}
	orders = orders.Filter(func(r table.Row) bool {
		kind, err := report.ClassifyService(r.Text(dataset.ColService))
		return err == nil && kind == report.Response
	})
	orders = orders.WithColumn(report.EnergyEFA, func(r table.Row) table.Value {
		start, ok := r.Time(dataset.ColStartTime)
		if !ok {
			return table.Null()
		}
		return table.Int(report.EFAForHour(start.Hour()))
	})
	revenue, err := report.Aggregate(orders, []string{dataset.ColDate, report.EnergyEFA, dataset.ColService}, spec(colRevenue, report.Mean))
	if err != nil {
		return err
	}
	joined, err := table.Merge(revenue, energy, []string{report.EnergyDate, report.EnergyEFA, report.EnergyService}, table.LeftJoin)
	if err != nil {
		return err
	}
	joined = joined.WithColumn(colPricePerMWh, func(r table.Row) table.Value {
		if mwh, ok := r.Float(report.EnergyMWh); ok && !r.Get(report.EnergyMWh).IsNull() && mwh == 0 {
			return table.Int(0)
		}
		return report.Divide(r.Get(colRevenue), r.Get(report.EnergyMWh))
	})
	perMWh, err := report.Pivot(joined, report.PivotOptions{
		Index:   []string{report.EnergyDate, report.EnergyEFA},
		Columns: report.EnergyService,
		Values:  colPricePerMWh,
		Agg:     report.Mean,
	})
	if err != nil {
		return err
	}
	newGrid(out, sheetResponseVolume).put(0, 0, colPricePerMWh, perMWh)
	return nil
}

// clearingPriceGraph charts clearing prices per window against the day-ahead
// demand and renewable forecasts, beside monthly price and volume summaries.
func clearingPriceGraph(ctx context.Context, e *env, out *Output, history, inRange *table.Table) error {
	clearing, err := report.Pivot(inRange, report.PivotOptions{
		Index:   []string{dataset.ColStartTime},
		Columns: dataset.ColService,
		Values:  dataset.ColEACClearingPrice,
		Agg:     report.Mean,
	})
	if err != nil {
		return err
	}
	forecast, err := dayAheadForecast(ctx, e)
	if err != nil {
		return err
	}
	graph, err := table.Merge(clearing, forecast, []string{dataset.ColStartTime}, table.OuterJoin)
	if err != nil {
		return err
	}
	graph = graph.SortBy(table.Asc(dataset.ColStartTime))
	for _, c := range report.PivotColumns(graph, dataset.ColStartTime) {
		graph = report.FillDown(graph, c)
	}

	auctions, err := report.Aggregate(history, []string{dataset.ColMonthStart, dataset.ColDate, dataset.ColStartTime, dataset.ColService},
		spec(dataset.ColEACClearingPrice, report.Mean),
		spec(dataset.ColEACVolume, report.Sum),
		spec(dataset.ColEACExecutedVolume, report.Sum),
	)
	if err != nil {
		return err
	}
	byService := func(values string, agg report.Agg) (*table.Table, error) {
		return report.Pivot(auctions, report.PivotOptions{Index: []string{dataset.ColMonthStart}, Columns: dataset.ColService, Values: values, Agg: agg})
	}
	priceMean, err := byService(dataset.ColEACClearingPrice, report.Mean)
	if err != nil {
		return err
	}
	priceStd, err := byService(dataset.ColEACClearingPrice, report.Std)
	if err != nil {
		return err
	}
	accepted, err := byService(dataset.ColEACExecutedVolume, report.Mean)
	if err != nil {
		return err
	}
	submitted, err := byService(dataset.ColEACVolume, report.Mean)
	if err != nil {
		return err
	}
	byUnitKind, err := report.Pivot(history, report.PivotOptions{
		Index:   []string{dataset.ColMonthStart, colUnitKind},
		Columns: dataset.ColService,
		Values:  dataset.ColEACExecutedVolume,
		Agg:     report.Sum,
	})
	if err != nil {
		return err
	}

	g := newGrid(out, sheetClearingPrices)
	_, right, err := g.putClear(0, 0, "Clearing prices", graph, graph.Width())
	if err != nil {
		return err
	}
	if err := g.chart(ChartLine, "Clearing prices", right); err != nil {
		return err
	}
	row, next := g.put(0, right, "Average prices by service", priceMean)
	g.put(row, right, "Average price volatility by service", priceStd)
	row, _ = g.put(0, next, "Average accepted volume by service", accepted)
	row, _ = g.put(row, next, "Average submitted volume by service", submitted)
	g.put(row, next, "Accepted volume by unit type", byUnitKind)
	return nil
}

// dayAheadForecast joins the day-ahead transmission demand forecast with the
// total renewable generation forecast and the share of one in the other.
func dayAheadForecast(ctx context.Context, e *env) (*table.Table, error) {
	rng := e.run.Period.Range()
	renewables, err := e.load(ctx, dataset.RenewableForecastDA, rng)
	if err != nil {
		return nil, err
	}
	renewables, err = report.Pivot(dated(renewables, dataset.ColStartTime, rng), report.PivotOptions{
		Index:   []string{dataset.ColStartTime},
		Columns: dataset.ColFuelType,
		Values:  dataset.ColMW,
		Agg:     report.Sum,
	})
	if err != nil {
		return nil, err
	}
	renewables = report.RowReduce(renewables, dataset.ColForecastTotal, report.Sum, report.PivotColumns(renewables, dataset.ColStartTime)...)
	if renewables, err = renewables.Select(dataset.ColStartTime, dataset.ColForecastTotal); err != nil {
		return nil, err
	}

	demand, err := e.load(ctx, dataset.DemandForecastDA, rng)
	if err != nil {
		return nil, err
	}
	if demand, err = dated(demand, dataset.ColStartTime, rng).Select(dataset.ColStartTime, dataset.ColTransmissionDemand); err != nil {
		return nil, err
	}

	forecast, err := table.Merge(demand, renewables, []string{dataset.ColStartTime}, table.OuterJoin)
	if err != nil {
		return nil, err
	}
	return report.Ratio(forecast, colRenewableShare, dataset.ColForecastTotal, dataset.ColTransmissionDemand), nil
}
