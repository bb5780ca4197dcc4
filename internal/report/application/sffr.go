package application

import (
	"context"
	"fmt"

	dataset "flexmarket-report/internal/dataset/domain"
	report "flexmarket-report/internal/report/domain"
	"flexmarket-report/internal/table"
)

const (
	sheetSFFR = "SFFR"

	colSubmittedVolume = "Submitted Volume (MW)"
	totalMW            = "Total MW"
)

func buildSFFR(ctx context.Context, e *env) (Output, error) {
	var out Output
	p := e.run.Period
	sffr, err := reserveResults(ctx, e, dataset.SFFR, p.WithPrevious())
	if err != nil {
		return out, fmt.Errorf("sffr results: %w", err)
	}
	summary, err := sffrSummary(sffr)
	if err != nil {
		return out, fmt.Errorf("sffr summary: %w", err)
	}
	byFuel, err := report.Pivot(sffr, report.PivotOptions{
		Index:       []string{dataset.ColMonthStart},
		Columns:     dataset.ColFuelType,
		Values:      dataset.ColAcceptedMW,
		Agg:         report.Sum,
		Margins:     true,
		MarginsName: totalMW,
	})
	if err != nil {
		return out, fmt.Errorf("sffr by fuel type: %w", err)
	}
	byFuel = byFuel.Filter(func(r table.Row) bool { return r.Text(dataset.ColMonthStart) != totalMW })
	assets := activeAssets(sffr, p)

	g := newGrid(&out, sheetSFFR)
	_, right, err := g.putClear(0, 0, "SFFR summary table", summary, summary.Width()+assets.Width()+byFuel.Width()+2)
	if err != nil {
		return out, err
	}
	row, _ := g.put(0, right, "", assets)
	g.put(row, right, "Accepted SFFR volumes by fuel type", byFuel)
	return out, nil
}

// sffrSummary reports per day the accepted and submitted MW, the mean
// clearing price, the accepted share and the weighted submitted price.
func sffrSummary(sffr *table.Table) (*table.Table, error) {
	sffr = report.Product(sffr, colPriceVolume, dataset.ColSubmittedMW, dataset.ColSubmittedPrice)
	summary, err := report.Aggregate(sffr, []string{dataset.ColDate, dataset.ColMonthStart},
		spec(dataset.ColAcceptedMW, report.Sum),
		spec(dataset.ColSubmittedMW, report.Sum, colSubmittedVolume),
		spec(dataset.ColClearingPrice, report.Mean),
		spec(colPriceVolume, report.Sum),
	)
	if err != nil {
		return nil, err
	}
	summary = report.Ratio(summary, "% of MW accepted", dataset.ColAcceptedMW, colSubmittedVolume)
	summary = report.Ratio(summary, "Weighted average price", colPriceVolume, colSubmittedVolume).Drop(colPriceVolume)
	// Chart helper: the unaccepted part of the submitted volume.
	return summary.WithColumn(dataset.ColSubmittedMW, func(r table.Row) table.Value {
		return report.Subtract(r.Get(colSubmittedVolume), r.Get(dataset.ColAcceptedMW))
	}), nil
}
