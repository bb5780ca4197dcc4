package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dataset "flexmarket-report/internal/dataset/domain"
	"flexmarket-report/internal/table"
)

func disbsadFixture(t *testing.T) map[dataset.Name]*table.Table {
	t.Helper()
	return map[dataset.Name]*table.Table{
		dataset.DISBSAD: mustTable(t,
			[]string{dataset.ColDate, dataset.ColVolume, dataset.ColCost, dataset.ColPrice, dataset.ColServiceType, dataset.ColNGUID, dataset.ColOrderType},
			[]table.Value{table.Time(day(2023, time.December, 10)), table.Num(10), table.Num(500), table.Num(50), table.Str("Constraint"), table.Str("NGU-A"), table.Str(dataset.Offer)},
			[]table.Value{table.Time(day(2024, time.January, 10)), table.Num(20), table.Num(600), table.Null(), table.Str("Constraint"), table.Str("NGU-A"), table.Str(dataset.Offer)},
			[]table.Value{table.Time(day(2024, time.January, 11)), table.Num(-5), table.Num(-50), table.Num(10), table.Str("Constraint"), table.Str("NGU-G"), table.Str(dataset.Bid)},
		),
	}
}

func TestDISBSADLayout(t *testing.T) {
	e, _ := sectionEnv(t, disbsadFixture(t))
	out, err := buildDISBSAD(context.Background(), e)
	require.NoError(t, err)

	require.Len(t, out.Placements, 6)
	sheets := map[string]int{}
	for _, p := range out.Placements {
		sheets[p.Sheet]++
	}
	assert.Equal(t, map[string]int{sheetDISBSADData: 1, sheetDISBSAD: 2, sheetDISBSADGraphs: 3}, sheets)

	data := placed(t, out, sheetDISBSADData, "DISBSAD data", 0)
	assert.Equal(t, 2, data.Len(), "data sheet lists the analysis range only")
}

func TestDISBSADPricesFromCost(t *testing.T) {
	e, _ := sectionEnv(t, disbsadFixture(t))
	out, err := buildDISBSAD(context.Background(), e)
	require.NoError(t, err)

	prices := placed(t, out, sheetDISBSADGraphs, "DISBSAD Prices by Fuel Type Summary", 0)
	require.Equal(t, 2, prices.Len())
	assert.Equal(t, "Battery", prices.Get(0, dataset.ColFuelType).Text())
	assert.InDelta(t, 30, floatAt(t, prices, 0, dataset.Offer), 1e-9)
	assert.InDelta(t, 10, floatAt(t, prices, 1, dataset.Bid), 1e-9)
}

func TestDISBSADVolumeSummary(t *testing.T) {
	e, _ := sectionEnv(t, disbsadFixture(t))
	out, err := buildDISBSAD(context.Background(), e)
	require.NoError(t, err)

	summary := placed(t, out, sheetDISBSAD, "Volume summary table", 0)
	require.Equal(t, 1, summary.Len())
	assert.Equal(t, "Constraint", summary.Get(0, dataset.ColServiceType).Text())
	assert.InDelta(t, 20, floatAt(t, summary, 0, "Offer vol Jan-24"), 1e-9)
	assert.InDelta(t, -5, floatAt(t, summary, 0, "Bid vol Jan-24"), 1e-9)
	assert.InDelta(t, 10, floatAt(t, summary, 0, "Offer vol Dec-23"), 1e-9)
	assert.True(t, summary.Get(0, "Bid vol Dec-23").IsNull())

	fuels := placed(t, out, sheetDISBSADGraphs, "DISBSAD Volume by Fuel Type Summary", 0)
	require.Equal(t, 2, fuels.Len())
	assert.Equal(t, "Battery", fuels.Get(0, dataset.ColFuelType).Text())
	assert.Equal(t, "CCGT", fuels.Get(1, dataset.ColFuelType).Text())

	daily := placed(t, out, sheetDISBSADGraphs, "DISBSAD Volume by Fuel Type", 0)
	require.Equal(t, 2, daily.Len())
	assert.InDelta(t, 20, floatAt(t, daily, 0, "Battery"), 1e-9)
	assert.InDelta(t, 30, floatAt(t, daily, 0, dataset.ColPrice), 1e-9)
	assert.InDelta(t, -5, floatAt(t, daily, 1, "CCGT"), 1e-9)
}
