package application

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dataset "flexmarket-report/internal/dataset/domain"
	report "flexmarket-report/internal/report/domain"
	"flexmarket-report/internal/table"
)

// order is one EAC sell order over a four-hour window.
type order struct {
	start              time.Time
	ngu, service       string
	volume, price      float64
	executed, clearing table.Value
}

func orders(list ...order) *table.Table {
	b := table.NewBuilder(dataset.ColStartTime, dataset.ColEndTime, dataset.ColNGUID, dataset.ColService,
		dataset.ColEACVolume, dataset.ColEACSubmittedPrice, dataset.ColEACExecutedVolume, dataset.ColEACClearingPrice)
	for _, o := range list {
		b.Add(table.Time(o.start), table.Time(o.start.Add(4*time.Hour)), table.Str(o.ngu), table.Str(o.service),
			table.Num(o.volume), table.Num(o.price), o.executed, o.clearing)
	}
	return b.Table()
}

// forecasts gives both day-ahead forecasts one window at start.
func forecasts(tables map[dataset.Name]*table.Table, start time.Time) map[dataset.Name]*table.Table {
	tables[dataset.RenewableForecastDA] = table.NewBuilder(dataset.ColStartTime, dataset.ColFuelType, dataset.ColMW).
		Add(table.Time(start), table.Str("Wind"), table.Num(1000)).
		Add(table.Time(start), table.Str("Solar"), table.Num(500)).
		Table()
	tables[dataset.DemandForecastDA] = table.NewBuilder(dataset.ColStartTime, dataset.ColTransmissionDemand).
		Add(table.Time(start), table.Num(30000)).
		Table()
	return tables
}

func reserveFixture() map[dataset.Name]*table.Table {
	start := time.Date(2024, time.January, 10, 5, 0, 0, 0, time.UTC)
	return forecasts(map[dataset.Name]*table.Table{
		dataset.EAC: orders(
			order{start: start, ngu: "NGU-A", service: "PQR", volume: 10, price: 3, executed: table.Num(4), clearing: table.Num(5)},
			order{start: start, ngu: "NGU-B", service: "PQR", volume: 6, price: 4, executed: table.Null(), clearing: table.Num(5)},
		),
	}, start)
}

func TestEACReserveVolumes(t *testing.T) {
	e, _ := sectionEnv(t, reserveFixture())
	out, err := buildEAC(context.Background(), e)
	require.NoError(t, err)
	assert.Len(t, out.Placements, 10)

	accepted := placed(t, out, "PQR", "Accepted volume PQR (Jan-24)", 0)
	require.Equal(t, 1, accepted.Len())
	assert.InDelta(t, 4, floatAt(t, accepted, 0, "Battery"), 1e-9)
	assert.InDelta(t, 0, floatAt(t, accepted, 0, "Gas"), 1e-9)

	rejected := placed(t, out, "PQR", "Rejected volume PQR (Jan-24)", 0)
	require.Equal(t, 1, rejected.Len())
	assert.InDelta(t, 6, floatAt(t, rejected, 0, "Battery"), 1e-9)
	assert.InDelta(t, 6, floatAt(t, rejected, 0, "Gas"), 1e-9, "missing accepted volume counts as zero")

	weighted := placed(t, out, "PQR", "Weighted average submitted price PQR (Jan-24)", 0)
	assert.InDelta(t, 3, floatAt(t, weighted, 0, "Battery"), 1e-9)
	assert.InDelta(t, 4, floatAt(t, weighted, 0, "Gas"), 1e-9)
}

func TestEACClearingPriceGraph(t *testing.T) {
	e, _ := sectionEnv(t, reserveFixture())
	out, err := buildEAC(context.Background(), e)
	require.NoError(t, err)

	graph := placed(t, out, sheetClearingPrices, "Clearing prices", 0)
	require.Equal(t, 1, graph.Len())
	assert.InDelta(t, 5, floatAt(t, graph, 0, "PQR"), 1e-9)
	assert.InDelta(t, 1500, floatAt(t, graph, 0, dataset.ColForecastTotal), 1e-9)
	assert.InDelta(t, 0.05, floatAt(t, graph, 0, colRenewableShare), 1e-9)

	require.Len(t, out.Charts, 1)
	assert.Equal(t, ChartLine, out.Charts[0].Kind)

	kinds := placed(t, out, sheetClearingPrices, "Accepted volume by unit type", 0)
	require.Equal(t, 2, kinds.Len())
	assert.Equal(t, "BM", kinds.Get(0, colUnitKind).Text())
	assert.InDelta(t, 4, floatAt(t, kinds, 0, "PQR"), 1e-9)
	assert.Equal(t, "NBM", kinds.Get(1, colUnitKind).Text())
}

func TestEACResponseSummaries(t *testing.T) {
	dec := time.Date(2023, time.December, 10, 23, 0, 0, 0, time.UTC)
	jan := time.Date(2024, time.January, 10, 23, 0, 0, 0, time.UTC)
	e, _ := sectionEnv(t, forecasts(map[dataset.Name]*table.Table{
		dataset.EAC: orders(
			order{start: dec, ngu: "NGU-A", service: "DRH", volume: 10, price: 1, executed: table.Num(5), clearing: table.Num(2)},
			order{start: jan, ngu: "NGU-A", service: "DRH", volume: 20, price: 2, executed: table.Num(10), clearing: table.Num(3)},
		),
	}, jan))
	out, err := buildEAC(context.Background(), e)
	require.NoError(t, err)
	assert.Len(t, out.Placements, 9)

	volumes := placed(t, out, "DRH", "Volumes in DRH (Jan-24)", 0)
	require.Equal(t, 1, volumes.Len(), "only the analysis month is listed")
	assert.InDelta(t, 0.5, floatAt(t, volumes, 0, "Acceptance rate"), 1e-9)
	assert.InDelta(t, 2, floatAt(t, volumes, 0, "Weighted average submitted price"), 1e-9)
	assert.InDelta(t, 10, floatAt(t, volumes, 0, dataset.ColSubmittedMW), 1e-9)

	prices := placed(t, out, "DRH", "Average prices", 0)
	require.Equal(t, 6, prices.Len())
	assert.Equal(t, "Max clearing price", prices.Get(0, "Measure").Text())
	assert.InDelta(t, 3, floatAt(t, prices, 0, "1"), 1e-9)
	assert.InDelta(t, 0.5, floatAt(t, prices, 1, "1"), 1e-9)
	assert.True(t, prices.Get(0, "2").IsNull())

	vols := placed(t, out, "DRH", "Average volumes", 0)
	assert.InDelta(t, 10, floatAt(t, vols, 0, "1"), 1e-9)
	assert.InDelta(t, 1, floatAt(t, vols, 1, "1"), 1e-9)
	assert.InDelta(t, 20, floatAt(t, vols, 2, "1"), 1e-9)
}

func TestEACUnknownServiceAbortsRun(t *testing.T) {
	start := time.Date(2024, time.January, 10, 5, 0, 0, 0, time.UTC)
	loader := &fakeLoader{
		tables: forecasts(map[dataset.Name]*table.Table{
			dataset.EAC: orders(order{start: start, ngu: "NGU-A", service: "XYZ", volume: 1, price: 1, executed: table.Num(1), clearing: table.Num(1)}),
		}, start),
		xref: marketXref(),
	}
	p, err := NewPeriod(date(2024, time.January, 1), date(2024, time.January, 31))
	require.NoError(t, err)
	sink := &recordingSink{}
	r, err := NewRunner(Run{ID: "run-1", Period: p, Sections: map[string]bool{SectionEAC: true}, WriteOutput: true}, loader, sink, nil, zerolog.Nop())
	require.NoError(t, err)

	_, err = r.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, report.ErrUnknownService)
	assert.Contains(t, err.Error(), "section eac")
	assert.Contains(t, err.Error(), "XYZ")
	assert.Empty(t, sink.outputs)
}
