package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	dataset "flexmarket-report/internal/dataset/domain"
	report "flexmarket-report/internal/report/domain"
	"flexmarket-report/internal/table"
)

const (
	sheetCompanyBidding = "Company bidding"
	sheetCompanyRevenue = "Company Revenue"
	sheetAssetRevenue   = "Asset Revenue"
	sheetTopAssets      = "Top 20 Assets"

	serviceBM   = "BM"
	serviceSTOR = "STOR"
	serviceSFFR = "SFFR"

	colCapacity     = "Capacity"
	colTotal        = "Total £"
	colPerKW        = "£/kW"
	colMaxCapacity  = "Max capacity during period"
	colTotalPerKW   = "Total £/kW"
	colTopValue     = "Total £/kW value"
	colSubMW        = "sub_MW"
	colAccMW        = "acc_MW"
	colAveragePrice = "av_price"

	topAssets = 20

	// hours of delivery per accepted STOR and SFFR MW
	storHours = 24
	sffrHours = 4
)

// Fuel types of assets that are not flexible; they are left out of the
// revenue tables.
var nonFlexFuels = []string{
	"CCGT", "Wind", "Biomass", "NPSHYD", "INTELEC", "INTEW", "INTFR", "INTIFA2", "INTIRL",
	"INTNED", "INTNEM", "INTNSL", "INTVKL", "COAL", "Non-PS Hydro", "Nuclear", "Coal",
}

// revenueInputs holds each market's rows within the revenue window with a
// Revenue column in £.
type revenueInputs struct {
	eac, stor, sffr, dsp *table.Table
}

func buildRevenue(ctx context.Context, e *env) (Output, error) {
	var out Output
	in, err := loadRevenueInputs(ctx, e)
	if err != nil {
		return out, err
	}
	if err := companyBidding(&out, in.eac); err != nil {
		return out, fmt.Errorf("company bidding: %w", err)
	}

	capacity, revenue, err := revenueByService(in, e.xref)
	if err != nil {
		return out, fmt.Errorf("revenue by service: %w", err)
	}
	services := serviceColumns(revenue)
	company, err := companyRevenue(revenue, capacity, services)
	if err != nil {
		return out, fmt.Errorf("company revenue: %w", err)
	}
	perKW, err := assetRevenuePerKW(revenue, capacity)
	if err != nil {
		return out, fmt.Errorf("asset revenue: %w", err)
	}
	top, err := topRevenue(revenue, perKW)
	if err != nil {
		return out, fmt.Errorf("top assets: %w", err)
	}

	if _, _, err := newGrid(&out, sheetCompanyRevenue).putClear(0, 0, "Revenue by company", company, company.Width()+3); err != nil {
		return out, err
	}
	g := newGrid(&out, sheetAssetRevenue)
	_, right, err := g.putClear(0, 0, "Revenue by flex asset", revenue, revenue.Width()+capacity.Width()+perKW.Width()+2)
	if err != nil {
		return out, err
	}
	_, right = g.put(0, right, "Entered capacity by service during date range", capacity)
	g.put(0, right, "£/kW revenue by flex asset", perKW)

	g = newGrid(&out, sheetTopAssets)
	row, _, err := g.putClear(0, 0, "£/kW revenue by flex asset", perKW.Head(topAssets), max(perKW.Width(), top.Width()))
	if err != nil {
		return out, err
	}
	g.put(row, 0, "Revenue of the top assets by service", top)
	return out, nil
}

// revenueWindow keeps rows whose column falls between midnight on the first
// day of the period and midnight after its last day.
func revenueWindow(t *table.Table, column string, p Period) *table.Table {
	lo := p.From.In(time.UTC)
	hi := p.To.AddDays(1).In(time.UTC)
	return t.Filter(func(r table.Row) bool {
		ts, ok := r.Time(column)
		return ok && !ts.Before(lo) && !ts.After(hi)
	})
}

func loadRevenueInputs(ctx context.Context, e *env) (revenueInputs, error) {
	var in revenueInputs
	p := e.run.Period
	rng := p.Range().Extend(1)

	eac, err := auctionResults(ctx, e, rng)
	if err != nil {
		return in, fmt.Errorf("auction results: %w", err)
	}
	in.eac = revenueWindow(eac, dataset.ColStartTime, p)

	stor, err := reserveResults(ctx, e, dataset.STOR, rng)
	if err != nil {
		return in, fmt.Errorf("stor results: %w", err)
	}
	in.stor = report.Scale(
		report.Product(revenueWindow(stor, dataset.ColStartTime, p), colRevenue, dataset.ColClearingPrice, dataset.ColAcceptedMW),
		storHours, colRevenue)

	sffr, err := reserveResults(ctx, e, dataset.SFFR, rng)
	if err != nil {
		return in, fmt.Errorf("sffr results: %w", err)
	}
	in.sffr = report.Scale(
		report.Product(revenueWindow(sffr, dataset.ColStartTime, p), colRevenue, dataset.ColClearingPrice, dataset.ColAcceptedMW),
		sffrHours, colRevenue)

	dsp, err := e.load(ctx, dataset.DSP, p.Range(), e.xref.NGUByBMU(), e.xref.FuelByBMU())
	if err != nil {
		return in, fmt.Errorf("balancing actions: %w", err)
	}
	in.dsp = report.Product(dated(dsp, dataset.ColDate, p.Range()), colRevenue, dataset.ColVolume, dataset.ColPrice)
	return in, nil
}

// companyBidding sums submitted and accepted MW and averages submitted prices
// by company and service.
func companyBidding(out *Output, eac *table.Table) error {
	bids, err := report.Aggregate(eac,
		[]string{dataset.ColStartTime, dataset.ColNGUID, dataset.ColCompany, dataset.ColService, dataset.ColEACSubmittedPrice},
		spec(dataset.ColEACVolume, report.Sum, colSubMW),
		spec(dataset.ColEACExecutedVolume, report.Sum, colAccMW),
		spec(dataset.ColEACSubmittedPrice, report.Mean, colAveragePrice),
	)
	if err != nil {
		return err
	}
	pivot := func(values string, agg report.Agg) (*table.Table, error) {
		return report.Pivot(bids, report.PivotOptions{Index: []string{dataset.ColCompany}, Columns: dataset.ColService, Values: values, Agg: agg})
	}
	accepted, err := pivot(colAccMW, report.Sum)
	if err != nil {
		return err
	}
	submitted, err := pivot(colSubMW, report.Sum)
	if err != nil {
		return err
	}
	prices, err := pivot(colAveragePrice, report.Mean)
	if err != nil {
		return err
	}

	g := newGrid(out, sheetCompanyBidding)
	row, right, err := g.putClear(0, 0, "Accepted volume during period", accepted, max(accepted.Width(), submitted.Width())+1+prices.Width())
	if err != nil {
		return err
	}
	g.put(row, 0, "Submitted volume during period", submitted)
	g.put(0, max(right, submitted.Width()+1), "Average submitted prices during period", prices)
	return nil
}

// byUnit aggregates column per NGU id into a lookup.
func byUnit(t *table.Table, column string, agg report.Agg) (map[string]table.Value, error) {
	grouped, err := report.Aggregate(t, []string{dataset.ColNGUID}, spec(column, agg))
	if err != nil {
		return nil, err
	}
	return grouped.Lookup(dataset.ColNGUID, column)
}

// peakSubmitted is the largest total MW a unit submitted into one window.
func peakSubmitted(t *table.Table) (map[string]table.Value, error) {
	windows, err := report.Aggregate(t, []string{dataset.ColStartTime, dataset.ColNGUID}, spec(dataset.ColSubmittedMW, report.Sum))
	if err != nil {
		return nil, err
	}
	return byUnit(windows, dataset.ColSubmittedMW, report.Max)
}

// sumMissingAsZero adds two lookups; a unit missing from one side counts as
// zero there.
func sumMissingAsZero(a, b map[string]table.Value) map[string]table.Value {
	out := make(map[string]table.Value, len(a)+len(b))
	for _, m := range []map[string]table.Value{a, b} {
		for k, v := range m {
			if v.IsNull() {
				continue
			}
			if prev, ok := out[k]; ok {
				out[k] = report.Add(prev, v)
				continue
			}
			out[k] = v
		}
	}
	return out
}

// revenueByService builds per-NGU capacity (kW) and revenue (£) tables with
// one column per service, flexible assets only.
func revenueByService(in revenueInputs, xref dataset.CrossReference) (capacity, revenue *table.Table, err error) {
	storCap, err := peakSubmitted(in.stor)
	if err != nil {
		return nil, nil, err
	}
	sffrCap, err := peakSubmitted(in.sffr)
	if err != nil {
		return nil, nil, err
	}
	storAvailability, err := byUnit(in.stor, colRevenue, report.Sum)
	if err != nil {
		return nil, nil, err
	}
	storUtilisation, err := byUnit(where(in.dsp, dataset.ColSTORFlag, "T"), colRevenue, report.Sum)
	if err != nil {
		return nil, nil, err
	}
	sffrRevenue, err := byUnit(in.sffr, colRevenue, report.Sum)
	if err != nil {
		return nil, nil, err
	}
	bmRevenue, err := byUnit(where(in.dsp, dataset.ColSTORFlag, "F"), colRevenue, report.Sum)
	if err != nil {
		return nil, nil, err
	}

	baskets, err := report.Aggregate(in.eac, []string{"Basket ID", dataset.ColNGUID, dataset.ColService}, spec(dataset.ColEACExecutedVolume, report.Sum))
	if err != nil {
		return nil, nil, err
	}
	eacCap, err := report.Pivot(baskets, report.PivotOptions{Index: []string{dataset.ColNGUID}, Columns: dataset.ColService, Values: dataset.ColEACExecutedVolume, Agg: report.Max})
	if err != nil {
		return nil, nil, err
	}
	eacRevenue, err := report.Pivot(in.eac, report.PivotOptions{Index: []string{dataset.ColNGUID}, Columns: dataset.ColService, Values: colRevenue, Agg: report.Sum})
	if err != nil {
		return nil, nil, err
	}
	eacServices := report.PivotColumns(eacCap, dataset.ColNGUID)

	seen := map[string]bool{}
	for _, m := range []map[string]table.Value{storCap, sffrCap, xref.NGUCapacity} {
		for k := range m {
			seen[k] = true
		}
	}
	for _, v := range eacCap.Unique(dataset.ColNGUID) {
		seen[v.Text()] = true
	}
	units := make([]string, 0, len(seen))
	for k := range seen {
		units = append(units, k)
	}
	sort.Strings(units)

	columns := append(append([]string{dataset.ColNGUID, serviceBM}, eacServices...), serviceSTOR, serviceSFFR)
	capB := table.NewBuilder(columns...)
	revB := table.NewBuilder(columns...)
	eacCapRow := rowsByUnit(eacCap)
	eacRevRow := rowsByUnit(eacRevenue)
	storRevenue := sumMissingAsZero(storAvailability, storUtilisation)
	for _, u := range units {
		caps := map[string]table.Value{
			dataset.ColNGUID: table.Str(u),
			serviceBM:        xref.NGUCapacity[u],
			serviceSTOR:      storCap[u],
			serviceSFFR:      sffrCap[u],
		}
		revs := map[string]table.Value{
			dataset.ColNGUID: table.Str(u),
			serviceBM:        bmRevenue[u],
			serviceSTOR:      storRevenue[u],
			serviceSFFR:      sffrRevenue[u],
		}
		for _, s := range eacServices {
			if i, ok := eacCapRow[u]; ok {
				caps[s] = eacCap.Get(i, s)
			}
			if i, ok := eacRevRow[u]; ok {
				revs[s] = eacRevenue.Get(i, s)
			}
		}
		capB.AddMap(caps)
		revB.AddMap(revs)
	}
	services := columns[1:]
	capacity = report.Scale(capB.Table(), 1000, services...)
	revenue = revB.Table()

	if capacity, err = withOwner(capacity, xref); err != nil {
		return nil, nil, err
	}
	if revenue, err = withOwner(revenue, xref); err != nil {
		return nil, nil, err
	}
	capacity = excludeFuels(capacity, nonFlexFuels)
	revenue = excludeFuels(revenue, nonFlexFuels)
	capacity = report.RowReduce(capacity, colCapacity, report.Max, services...)

	capacity, err = fixBMCapacity(capacity, revenue, in.dsp)
	if err != nil {
		return nil, nil, err
	}
	revenue = report.RowReduce(revenue, colTotal, report.Sum, services...)
	return capacity, revenue, nil
}

func rowsByUnit(t *table.Table) map[string]int {
	out := make(map[string]int, t.Len())
	for i := 0; i < t.Len(); i++ {
		out[t.Get(i, dataset.ColNGUID).Text()] = i
	}
	return out
}

// withOwner adds Company and Fuel type by NGU id.
func withOwner(t *table.Table, xref dataset.CrossReference) (*table.Table, error) {
	return dataset.Enrich(t,
		dataset.Enrichment{Column: dataset.ColCompany, Key: dataset.ColNGUID, Values: xref.NGUCompany},
		dataset.Enrichment{Column: dataset.ColFuelType, Key: dataset.ColNGUID, Values: xref.NGUFuel},
	)
}

func excludeFuels(t *table.Table, fuels []string) *table.Table {
	skip := make(map[string]bool, len(fuels))
	for _, f := range fuels {
		skip[f] = true
	}
	return t.Filter(func(r table.Row) bool { return !skip[r.Text(dataset.ColFuelType)] })
}

// fixBMCapacity corrects BM capacities that would make £/kW meaningless:
// units with BM revenue but no registered BM capacity take their largest
// capacity in other services, and units with no capacity anywhere get an
// estimate from their largest half-hourly BM volume (at least 1 MW).
func fixBMCapacity(capacity, revenue, dsp *table.Table) (*table.Table, error) {
	earned := map[string]bool{}
	for i := 0; i < revenue.Len(); i++ {
		if v, ok := revenue.Get(i, serviceBM).Float(); ok && !revenue.Get(i, serviceBM).IsNull() && v != 0 {
			earned[revenue.Get(i, dataset.ColNGUID).Text()] = true
		}
	}
	isZero := func(v table.Value) bool {
		f, ok := v.Float()
		return ok && !v.IsNull() && f == 0
	}

	var unsized []string
	for i := 0; i < capacity.Len(); i++ {
		if isZero(capacity.Get(i, colCapacity)) && earned[capacity.Get(i, dataset.ColNGUID).Text()] {
			unsized = append(unsized, capacity.Get(i, dataset.ColNGUID).Text())
		}
	}
	peak, err := report.Aggregate(where(dsp, dataset.ColNGUID, unsized...), []string{dataset.ColNGUID}, spec(dataset.ColVolumeABS, report.Max))
	if err != nil {
		return nil, err
	}
	estimate := map[string]table.Value{}
	for i := 0; i < peak.Len(); i++ {
		mwh, ok := peak.Get(i, dataset.ColVolumeABS).Float()
		if !ok {
			continue
		}
		// A half-hour MWh doubles to MW, then kW.
		kw := float64(int(mwh * 2000))
		estimate[peak.Get(i, dataset.ColNGUID).Text()] = table.Num(max(kw, 1000))
	}

	capacity = report.FillZero(capacity, serviceBM)
	return capacity.WithColumn(serviceBM, func(r table.Row) table.Value {
		unit := r.Text(dataset.ColNGUID)
		if kw, ok := estimate[unit]; ok {
			return kw
		}
		if earned[unit] && isZero(r.Get(serviceBM)) && !isZero(r.Get(colCapacity)) && !r.Get(colCapacity).IsNull() {
			return r.Get(colCapacity)
		}
		return r.Get(serviceBM)
	}).WithColumn(colCapacity, func(r table.Row) table.Value {
		if kw, ok := estimate[r.Text(dataset.ColNGUID)]; ok {
			return kw
		}
		return r.Get(colCapacity)
	}), nil
}

func serviceColumns(revenue *table.Table) []string {
	return report.PivotColumns(revenue, dataset.ColNGUID, dataset.ColCompany, dataset.ColFuelType, colTotal)
}

// companyRevenue totals revenue by company and divides by the company's
// summed asset capacity.
func companyRevenue(revenue, capacity *table.Table, services []string) (*table.Table, error) {
	specs := make([]report.Spec, 0, len(services))
	for _, s := range services {
		specs = append(specs, spec(s, report.Sum))
	}
	company, err := report.Aggregate(revenue, []string{dataset.ColCompany}, specs...)
	if err != nil {
		return nil, err
	}
	company = report.RowReduce(company, colTotal, report.Sum, services...)
	capacityByCompany, err := report.Aggregate(capacity, []string{dataset.ColCompany}, spec(colCapacity, report.Sum))
	if err != nil {
		return nil, err
	}
	caps, err := capacityByCompany.Lookup(dataset.ColCompany, colCapacity)
	if err != nil {
		return nil, err
	}
	if company, err = company.MapColumn(colCapacity, dataset.ColCompany, caps); err != nil {
		return nil, err
	}
	return report.Ratio(company, colPerKW, colTotal, colCapacity).SortBy(table.Desc(colPerKW)), nil
}

var assetIndex = []string{dataset.ColNGUID, dataset.ColCompany, dataset.ColFuelType}

// assetRevenuePerKW divides each service's revenue by the capacity entered in
// it, and the total revenue by the asset's largest capacity.
func assetRevenuePerKW(revenue, capacity *table.Table) (*table.Table, error) {
	perKW, err := report.Combine(revenue.Drop(colTotal), capacity.Drop(colCapacity), assetIndex, report.Divide)
	if err != nil {
		return nil, err
	}
	totals, err := revenue.Lookup(dataset.ColNGUID, colTotal)
	if err != nil {
		return nil, err
	}
	caps, err := capacity.Lookup(dataset.ColNGUID, colCapacity)
	if err != nil {
		return nil, err
	}
	if perKW, err = perKW.MapColumn(colTotal, dataset.ColNGUID, totals); err != nil {
		return nil, err
	}
	if perKW, err = perKW.MapColumn(colMaxCapacity, dataset.ColNGUID, caps); err != nil {
		return nil, err
	}
	return report.Ratio(perKW, colTotalPerKW, colTotal, colMaxCapacity).SortBy(table.Desc(colTotalPerKW)), nil
}

// topRevenue is the revenue by service of the assets earning most per kW.
func topRevenue(revenue, perKW *table.Table) (*table.Table, error) {
	top := perKW.Head(topAssets)
	values, err := top.Lookup(dataset.ColNGUID, colTotalPerKW)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, top.Len())
	for i := 0; i < top.Len(); i++ {
		ids = append(ids, top.Get(i, dataset.ColNGUID).Text())
	}
	out, err := where(revenue, dataset.ColNGUID, ids...).MapColumn(colTopValue, dataset.ColNGUID, values)
	if err != nil {
		return nil, err
	}
	return out.SortBy(table.Desc(colTopValue)), nil
}
