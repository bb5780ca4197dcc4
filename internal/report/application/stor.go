package application

import (
	"context"
	"fmt"

	dataset "flexmarket-report/internal/dataset/domain"
	report "flexmarket-report/internal/report/domain"
	"flexmarket-report/internal/table"
)

const (
	sheetSTOR = "STOR"

	colPriceVolume = "Price*vol"
	colUtilised    = "Utilised volume (MWh)"
)

// reserveResults loads day-ahead auction results of a reserve product
// (STOR or SFFR) with Date and month columns.
func reserveResults(ctx context.Context, e *env, name dataset.Name, rng dataset.Range) (*table.Table, error) {
	t, err := e.load(ctx, name, rng)
	if err != nil {
		return nil, err
	}
	t = dated(t, dataset.ColStartTime, rng)
	return withMonth(withDay(t, dataset.ColStartTime, dataset.ColDate), dataset.ColStartTime), nil
}

func buildSTOR(ctx context.Context, e *env) (Output, error) {
	var out Output
	p := e.run.Period
	stor, err := reserveResults(ctx, e, dataset.STOR, p.WithPrevious())
	if err != nil {
		return out, fmt.Errorf("stor results: %w", err)
	}
	dsp, err := e.load(ctx, dataset.DSP, p.Range(), e.xref.NGUByBMU(), e.xref.FuelByBMU())
	if err != nil {
		return out, fmt.Errorf("balancing actions: %w", err)
	}
	utilisation, err := report.Aggregate(where(dated(dsp, dataset.ColDate, p.Range()), dataset.ColSTORFlag, "T"), []string{dataset.ColDate},
		spec(dataset.ColVolume, report.Sum),
		spec(dataset.ColPrice, report.Mean),
	)
	if err != nil {
		return out, fmt.Errorf("stor utilisation: %w", err)
	}

	summary, err := storSummary(stor, utilisation)
	if err != nil {
		return out, fmt.Errorf("stor summary: %w", err)
	}
	byFuel, err := report.Pivot(stor, report.PivotOptions{
		Index:   []string{dataset.ColDate},
		Columns: dataset.ColFuelType,
		Values:  dataset.ColAcceptedMW,
		Agg:     report.Sum,
	})
	if err != nil {
		return out, fmt.Errorf("stor by fuel type: %w", err)
	}
	assets := activeAssets(stor, p)

	g := newGrid(&out, sheetSTOR)
	width := summary.Width() + byFuel.Width() + utilisation.Width() + assets.Width() + 3
	_, right, err := g.putClear(0, 0, "STOR Summary", summary, width)
	if err != nil {
		return out, err
	}
	_, right = g.put(0, right, "Accepted STOR volumes by fuel type", byFuel)
	_, right = g.put(0, right, "STOR Utilisation data", utilisation)
	g.put(0, right, "", assets)
	return out, nil
}

// storSummary is the daily submitted and accepted MW with mean and weighted
// prices, joined with the volume STOR units delivered in the BM that day.
func storSummary(stor, utilisation *table.Table) (*table.Table, error) {
	stor = report.Product(stor, colPriceVolume, dataset.ColSubmittedMW, dataset.ColAvailabilityPrice)
	summary, err := report.Aggregate(stor, []string{dataset.ColDate},
		spec(dataset.ColSubmittedMW, report.Sum),
		spec(dataset.ColAcceptedMW, report.Sum),
		spec(dataset.ColAvailabilityPrice, report.Mean),
		spec(dataset.ColClearingPrice, report.Mean),
		spec(colPriceVolume, report.Sum),
	)
	if err != nil {
		return nil, err
	}
	summary = report.Ratio(summary, "Weighted submitted average price", colPriceVolume, dataset.ColSubmittedMW).Drop(colPriceVolume)
	utilised, err := utilisation.Lookup(dataset.ColDate, dataset.ColVolume)
	if err != nil {
		return nil, err
	}
	return summary.MapColumn(colUtilised, dataset.ColDate, utilised)
}
