package application

import (
	"context"
	"fmt"
	"strings"

	dataset "flexmarket-report/internal/dataset/domain"
	report "flexmarket-report/internal/report/domain"
	"flexmarket-report/internal/table"
)

const sheetFundamentals = "Market fundamentals"

var monthIndex = []string{dataset.ColMonthStart, dataset.ColMonth}

// generation columns whose fuel type repeats another one
var generationDuplicates = []string{"Embedded", "Offshore", "Onshore"}

func buildFundamentals(ctx context.Context, e *env) (Output, error) {
	var out Output
	g := newGrid(&out, sheetFundamentals)

	inertia, err := inertiaSummary(ctx, e)
	if err != nil {
		return out, fmt.Errorf("inertia: %w", err)
	}
	row, col := g.putFixed(0, 0, "Inertia data", inertia, "A:F")
	g.put(row, 0, "m-o-m change", report.LatestChange(inertia, monthIndex...))

	generation, err := generationMix(ctx, e)
	if err != nil {
		return out, fmt.Errorf("generation: %w", err)
	}
	row, _, err = g.putSpan(0, col, "Generation by fuel type (TWh)", generation)
	if err != nil {
		return out, err
	}
	row, _ = g.put(row, col, "m-o-m change", report.LatestChange(generation, monthIndex...))

	demand, err := demandSummary(ctx, e)
	if err != nil {
		return out, fmt.Errorf("demand: %w", err)
	}
	top := row
	row, right := g.put(top, col, "Demand summary", demand)
	g.put(row, col, "m-o-m change", report.LatestChange(demand, monthIndex...))

	mip, err := marketIndexSummary(ctx, e)
	if err != nil {
		return out, fmt.Errorf("market index: %w", err)
	}
	row, _ = g.put(top, right, "MIP Summary", mip)
	g.put(row, right, "m-o-m change", report.LatestChange(mip, dataset.ColMonthStart))
	return out, nil
}

func inertiaSummary(ctx context.Context, e *env) (*table.Table, error) {
	rng := e.run.Period.Since(e.run.InertiaFrom)
	t, err := e.load(ctx, dataset.Inertia, rng)
	if err != nil {
		return nil, err
	}
	t = withMonth(dated(t, dataset.ColDate, rng), dataset.ColDate)
	return report.Aggregate(t, monthIndex,
		spec(dataset.ColOutturn, report.Mean),
		spec(dataset.ColMarketInertia, report.Mean),
		spec(dataset.ColOutturn, report.Std, dataset.ColOutturn+" volatility"),
		spec(dataset.ColMarketInertia, report.Std, dataset.ColMarketInertia+" volatility"),
	)
}

// generationMix is TWh generated per fuel type per month. Half-hourly MW
// summed over a month divides by 2e6 to give TWh.
func generationMix(ctx context.Context, e *env) (*table.Table, error) {
	rng := e.run.Period.WithPrevious()
	t, err := e.load(ctx, dataset.Generation, rng)
	if err != nil {
		return nil, err
	}
	t = withMonth(dated(t, dataset.ColDate, rng), dataset.ColDate)
	mix, err := report.Pivot(t, report.PivotOptions{
		Index:   monthIndex,
		Columns: dataset.ColFuelType,
		Values:  dataset.ColMW,
		Agg:     report.Sum,
	})
	if err != nil {
		return nil, err
	}
	mix = report.Scale(mix, 1/2e6, report.PivotColumns(mix, monthIndex...)...)
	// The two solar series disagree slightly; report their mean.
	if mix.Has("Solar", "Solar (Embedded)") {
		mix = report.RowReduce(mix, "Solar", report.Mean, "Solar", "Solar (Embedded)")
	}
	var drop []string
	for _, c := range report.PivotColumns(mix, monthIndex...) {
		for _, d := range generationDuplicates {
			if strings.Contains(c, d) {
				drop = append(drop, c)
				break
			}
		}
	}
	return mix.Drop(drop...), nil
}

// demandSummary reports total TWh and average GW per demand type per month.
func demandSummary(ctx context.Context, e *env) (*table.Table, error) {
	rng := e.run.Period.WithPrevious()
	t, err := e.load(ctx, dataset.Demand, rng)
	if err != nil {
		return nil, err
	}
	t = withMonth(dated(t, dataset.ColDate, rng), dataset.ColDate)
	opts := report.PivotOptions{Index: monthIndex, Columns: dataset.ColDemandType, Values: dataset.ColMW}

	opts.Agg = report.Sum
	total, err := report.Pivot(t, opts)
	if err != nil {
		return nil, err
	}
	total = report.Scale(total, 1/2e6, report.PivotColumns(total, monthIndex...)...)
	if total, err = renameEach(total, func(c string) string { return "Total " + c + " (TWh)" }, monthIndex...); err != nil {
		return nil, err
	}

	opts.Agg = report.Mean
	average, err := report.Pivot(t, opts)
	if err != nil {
		return nil, err
	}
	average = report.Scale(average, 1/1e3, report.PivotColumns(average, monthIndex...)...)
	if average, err = renameEach(average, func(c string) string { return "Average " + c + " (GW)" }, monthIndex...); err != nil {
		return nil, err
	}

	merged, err := table.Merge(total, average, monthIndex, table.OuterJoin)
	if err != nil {
		return nil, err
	}
	return merged.SortBy(table.Asc(dataset.ColMonthStart)), nil
}

// marketIndexSummary reports the APX price mean, volatility and the mean
// daily max-min spread within EFA blocks per month.
func marketIndexSummary(ctx context.Context, e *env) (*table.Table, error) {
	rng := e.run.Period.WithPrevious()
	t, err := e.load(ctx, dataset.MIP, rng)
	if err != nil {
		return nil, err
	}
	t = where(dated(t, dataset.ColDate, rng), dataset.ColDescription, "APX")
	t = t.SortBy(table.Asc(dataset.ColDate), table.Asc(dataset.ColSP))
	t = report.WithSettlementPeriodEFA(t, dataset.ColSP, dataset.ColEFA)
	t = withMonth(t, dataset.ColDate)

	summary, err := report.Aggregate(t, []string{dataset.ColMonthStart},
		spec(dataset.ColMIPPrice, report.Mean, "Mean"),
		spec(dataset.ColMIPPrice, report.Std, "Volatility"),
	)
	if err != nil {
		return nil, err
	}
	blocks, err := report.Aggregate(t, []string{dataset.ColMonthStart, dataset.ColDate, dataset.ColEFA},
		spec(dataset.ColMIPPrice, report.Max, "max"),
		spec(dataset.ColMIPPrice, report.Min, "min"),
	)
	if err != nil {
		return nil, err
	}
	blocks = blocks.WithColumn("spread", func(r table.Row) table.Value {
		return report.Subtract(r.Get("max"), r.Get("min"))
	})
	spread, err := report.Aggregate(blocks, []string{dataset.ColMonthStart}, spec("spread", report.Mean, "Average EFA spread"))
	if err != nil {
		return nil, err
	}
	return table.Merge(summary, spread, []string{dataset.ColMonthStart}, table.InnerJoin)
}
