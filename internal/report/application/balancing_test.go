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

func balancingFixture(t *testing.T) map[dataset.Name]*table.Table {
	t.Helper()
	dec, jan := day(2023, time.December, 5), day(2024, time.January, 3)
	dsp := actions(
		action{day: dec, bmu: "T_A-1", side: dataset.Offer, class: dataset.Energy, stor: "F", price: 100, volume: 10},
		action{day: dec, bmu: "T_G-1", side: dataset.Bid, class: dataset.System, stor: "F", price: 20, volume: -30},
		action{day: jan, bmu: "T_A-1", side: dataset.Offer, class: dataset.Energy, stor: "F", price: 120, volume: 20},
		action{day: jan, bmu: "T_A-1", side: dataset.Bid, class: dataset.Energy, stor: "F", price: 40, volume: -10},
		action{day: jan.AddDate(0, 0, 1), bmu: "T_G-1", side: dataset.Offer, class: dataset.System, stor: "F", price: 60, volume: 30},
	)
	mip := mustTable(t, []string{dataset.ColDate, dataset.ColSP, dataset.ColDescription, dataset.ColMIPPrice},
		[]table.Value{table.Time(dec), table.Int(1), table.Str("SIP"), table.Num(50)},
		[]table.Value{table.Time(dec), table.Int(2), table.Str("SIP"), table.Num(70)},
		[]table.Value{table.Time(jan), table.Int(1), table.Str("SIP"), table.Num(60)},
		[]table.Value{table.Time(jan), table.Int(1), table.Str("APX"), table.Num(999)},
	)
	return map[dataset.Name]*table.Table{dataset.DSP: dsp, dataset.MIP: mip}
}

func TestBalancingLayout(t *testing.T) {
	e, _ := sectionEnv(t, balancingFixture(t))
	out, err := buildBalancing(context.Background(), e)
	require.NoError(t, err)

	assert.Len(t, out.Placements, 15)
	require.Len(t, out.Charts, 1)
	assert.Equal(t, "BM volume share by fuel type", out.Charts[0].Title)
	assert.Equal(t, ChartStackedColumn, out.Charts[0].Kind)
	assert.Equal(t, "Abs volume share", out.Charts[0].Data.Title)

	active := placed(t, out, sheetActiveBMUs, "Active BMUs during period", 0)
	assert.Equal(t, 2, active.Len())
}

func TestBalancingVolumeShare(t *testing.T) {
	e, _ := sectionEnv(t, balancingFixture(t))
	out, err := buildBalancing(context.Background(), e)
	require.NoError(t, err)

	volumes := placed(t, out, sheetBMVolumes, "Abs volume by tech type by month", 0)
	require.Equal(t, 2, volumes.Len())
	assert.Equal(t, "Battery", volumes.Get(0, dataset.ColFuelType).Text())
	assert.InDelta(t, 10, floatAt(t, volumes, 0, "Dec-23"), 1e-9)
	assert.InDelta(t, 30, floatAt(t, volumes, 0, "Jan-24"), 1e-9)

	share := placed(t, out, sheetBMVolumes, "Abs volume share", 0)
	require.Equal(t, 2, share.Len(), "the total row is dropped")
	assert.False(t, share.Has(totalVolume))
	for i := 0; i < share.Len(); i++ {
		assert.NotEqual(t, totalVolume, share.Get(i, dataset.ColMonthStart).Text())
		assert.InDelta(t, 1, floatAt(t, share, i, "Battery")+floatAt(t, share, i, "CCGT"), 1e-9)
	}
	assert.InDelta(t, 0.25, floatAt(t, share, 0, "Battery"), 1e-9)
	assert.InDelta(t, 0.5, floatAt(t, share, 1, "Battery"), 1e-9)
}

func TestBalancingPrices(t *testing.T) {
	e, _ := sectionEnv(t, balancingFixture(t))
	out, err := buildBalancing(context.Background(), e)
	require.NoError(t, err)

	prices := placed(t, out, sheetBMPrices, "Average prices by tech type by month", 0)
	offer := -1
	for i := 0; i < prices.Len(); i++ {
		if prices.Get(i, dataset.ColOrderType).Text() == dataset.Offer && prices.Get(i, dataset.ColFuelType).Text() == "Battery" {
			offer = i
		}
	}
	require.GreaterOrEqual(t, offer, 0)
	assert.InDelta(t, 120, floatAt(t, prices, offer, "Jan-24"), 1e-9)

	sip := placed(t, out, sheetBMPrices, "Average SIP", 0)
	require.Equal(t, 2, sip.Len())
	assert.InDelta(t, 60, floatAt(t, sip, 0, "Average"), 1e-9)
	assert.InDelta(t, 14.1421, floatAt(t, sip, 0, "Volatility"), 1e-4)
	assert.True(t, sip.Get(1, "Volatility").IsNull())
}

func TestBalancingMonthlyDispatches(t *testing.T) {
	e, _ := sectionEnv(t, balancingFixture(t))
	out, err := buildBalancing(context.Background(), e)
	require.NoError(t, err)

	monthly := placed(t, out, sheetMonthlyDispatch, "Monthly dispatches", 0)
	require.Equal(t, 2, monthly.Len())
	assert.Equal(t, "Battery", monthly.Get(0, dataset.ColFuelType).Text())
	assert.InDelta(t, 2, floatAt(t, monthly, 0, "Jan-24 total dispatches"), 1e-9)
	assert.InDelta(t, 1, floatAt(t, monthly, 0, "Dec-23 total dispatches"), 1e-9)
	assert.InDelta(t, 1, floatAt(t, monthly, 0, "Change in total dispatches"), 1e-9)
	assert.InDelta(t, 2, floatAt(t, monthly, 0, "Average daily dispatches Jan-24"), 1e-9)
	assert.InDelta(t, 0, floatAt(t, monthly, 1, "Change in total dispatches"), 1e-9)
}

func TestBalancingTechBreakdown(t *testing.T) {
	e, _ := sectionEnv(t, balancingFixture(t))
	out, err := buildBalancing(context.Background(), e)
	require.NoError(t, err)

	volume := placed(t, out, sheetTechBreakdown, "Total volume", 0)
	require.Equal(t, 2, volume.Len())
	assert.InDelta(t, 20, floatAt(t, volume, 0, "Energy Offer volume Jan-24"), 1e-9)
	assert.InDelta(t, 10, floatAt(t, volume, 0, "Energy Bid volume Jan-24"), 1e-9)
	assert.InDelta(t, 30, floatAt(t, volume, 1, "System Offer volume Jan-24"), 1e-9)

	prior := placed(t, out, sheetTechBreakdown, "Total volume", 1)
	assert.InDelta(t, 30, floatAt(t, prior, 1, "System Bid volume Dec-23"), 1e-9)

	count := placed(t, out, sheetTechBreakdown, "Total count", 0)
	assert.InDelta(t, 1, floatAt(t, count, 0, "Energy Offer count Jan-24"), 1e-9)
}
