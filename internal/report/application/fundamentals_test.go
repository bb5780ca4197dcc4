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

func fundamentalsFixture(t *testing.T) map[dataset.Name]*table.Table {
	t.Helper()
	dec, jan := day(2023, time.December, 4), day(2024, time.January, 4)
	return map[dataset.Name]*table.Table{
		dataset.Inertia: mustTable(t, []string{dataset.ColDate, dataset.ColOutturn, dataset.ColMarketInertia},
			[]table.Value{table.Time(dec), table.Num(100), table.Num(10)},
			[]table.Value{table.Time(dec.Add(time.Hour)), table.Num(200), table.Num(10)},
			[]table.Value{table.Time(jan), table.Num(150), table.Num(12)},
			[]table.Value{table.Time(jan.Add(time.Hour)), table.Num(150), table.Num(12)},
		),
		dataset.Generation: mustTable(t, []string{dataset.ColDate, dataset.ColFuelType, dataset.ColMW},
			[]table.Value{table.Time(dec), table.Str("Wind"), table.Num(2e6)},
			[]table.Value{table.Time(dec), table.Str("Wind (Offshore)"), table.Num(1e6)},
			[]table.Value{table.Time(dec), table.Str("Solar"), table.Num(2e6)},
			[]table.Value{table.Time(dec), table.Str("Solar (Embedded)"), table.Num(2e6)},
			[]table.Value{table.Time(jan), table.Str("Wind"), table.Num(3e6)},
			[]table.Value{table.Time(jan), table.Str("Solar"), table.Num(2e6)},
			[]table.Value{table.Time(jan), table.Str("Solar (Embedded)"), table.Num(4e6)},
		),
		dataset.Demand: mustTable(t, []string{dataset.ColDate, dataset.ColDemandType, dataset.ColMW},
			[]table.Value{table.Time(dec), table.Str("ND"), table.Num(1000)},
			[]table.Value{table.Time(dec), table.Str("ND"), table.Num(3000)},
			[]table.Value{table.Time(jan), table.Str("ND"), table.Num(3000)},
		),
		dataset.MIP: mustTable(t, []string{dataset.ColDate, dataset.ColSP, dataset.ColDescription, dataset.ColMIPPrice},
			[]table.Value{table.Time(dec), table.Int(5), table.Str("APX"), table.Num(30)},
			[]table.Value{table.Time(dec), table.Int(6), table.Str("APX"), table.Num(30)},
			[]table.Value{table.Time(dec), table.Int(5), table.Str("SIP"), table.Num(99)},
			[]table.Value{table.Time(jan), table.Int(13), table.Str("APX"), table.Num(40)},
			[]table.Value{table.Time(jan), table.Int(5), table.Str("APX"), table.Num(50)},
			[]table.Value{table.Time(jan), table.Int(6), table.Str("APX"), table.Num(70)},
		),
	}
}

func TestFundamentalsLayout(t *testing.T) {
	e, _ := sectionEnv(t, fundamentalsFixture(t))
	out, err := buildFundamentals(context.Background(), e)
	require.NoError(t, err)

	require.Len(t, out.Placements, 8)
	titles := make([]string, len(out.Placements))
	for i, p := range out.Placements {
		assert.Equal(t, sheetFundamentals, p.Sheet)
		titles[i] = p.Title
	}
	assert.Equal(t, []string{
		"Inertia data", "m-o-m change",
		"Generation by fuel type (TWh)", "m-o-m change",
		"Demand summary", "m-o-m change",
		"MIP Summary", "m-o-m change",
	}, titles)
	assert.Equal(t, "A:F", out.Placements[0].Clear)
}

func TestFundamentalsInertiaChange(t *testing.T) {
	e, _ := sectionEnv(t, fundamentalsFixture(t))
	out, err := buildFundamentals(context.Background(), e)
	require.NoError(t, err)

	inertia := out.Placements[0].Table
	require.Equal(t, 2, inertia.Len())
	assert.Equal(t, "Dec-23", inertia.Get(0, dataset.ColMonth).Text())
	assert.InDelta(t, 150, floatAt(t, inertia, 0, dataset.ColOutturn), 1e-9)
	assert.InDelta(t, 70.7107, floatAt(t, inertia, 0, dataset.ColOutturn+" volatility"), 1e-4)

	change := out.Placements[1].Table
	require.Equal(t, 1, change.Len())
	assert.Equal(t, "Jan-24", change.Get(0, dataset.ColMonth).Text())
	assert.InDelta(t, 0.2, floatAt(t, change, 0, dataset.ColMarketInertia), 1e-9)
	assert.InDelta(t, 0, floatAt(t, change, 0, dataset.ColOutturn), 1e-9)
	assert.InDelta(t, -1, floatAt(t, change, 0, dataset.ColOutturn+" volatility"), 1e-9)
	assert.True(t, change.Get(0, dataset.ColMarketInertia+" volatility").IsNull(), "no change from zero volatility")
}

func TestFundamentalsGenerationMix(t *testing.T) {
	e, _ := sectionEnv(t, fundamentalsFixture(t))
	out, err := buildFundamentals(context.Background(), e)
	require.NoError(t, err)

	mix := out.Placements[2].Table
	assert.Equal(t, []string{dataset.ColMonthStart, dataset.ColMonth, "Solar", "Wind"}, mix.Columns())
	require.Equal(t, 2, mix.Len())
	assert.InDelta(t, 1, floatAt(t, mix, 0, "Wind"), 1e-12)
	assert.InDelta(t, 1.5, floatAt(t, mix, 1, "Wind"), 1e-12)
	assert.InDelta(t, 1.5, floatAt(t, mix, 1, "Solar"), 1e-12, "mean of the two solar series")

	change := out.Placements[3].Table
	assert.InDelta(t, 0.5, floatAt(t, change, 0, "Wind"), 1e-9)
	assert.InDelta(t, 0.5, floatAt(t, change, 0, "Solar"), 1e-9)
}

func TestFundamentalsDemandAndMarketIndex(t *testing.T) {
	e, _ := sectionEnv(t, fundamentalsFixture(t))
	out, err := buildFundamentals(context.Background(), e)
	require.NoError(t, err)

	demand := out.Placements[4].Table
	require.Equal(t, 2, demand.Len())
	assert.InDelta(t, 0.002, floatAt(t, demand, 0, "Total ND (TWh)"), 1e-12)
	assert.InDelta(t, 2, floatAt(t, demand, 0, "Average ND (GW)"), 1e-12)
	assert.InDelta(t, 3, floatAt(t, demand, 1, "Average ND (GW)"), 1e-12)

	mip := out.Placements[6].Table
	require.Equal(t, 2, mip.Len())
	assert.InDelta(t, 30, floatAt(t, mip, 0, "Mean"), 1e-9, "SIP rows are left out")
	assert.InDelta(t, 0, floatAt(t, mip, 0, "Average EFA spread"), 1e-9)
	assert.InDelta(t, 160.0/3, floatAt(t, mip, 1, "Mean"), 1e-9)
	assert.InDelta(t, 10, floatAt(t, mip, 1, "Average EFA spread"), 1e-9)

	change := out.Placements[7].Table
	assert.InDelta(t, 160.0/90-1, floatAt(t, change, 0, "Mean"), 1e-9)
}

func TestFundamentalsMissingDataset(t *testing.T) {
	tables := fundamentalsFixture(t)
	delete(tables, dataset.Demand)
	e, _ := sectionEnv(t, tables)

	_, err := buildFundamentals(context.Background(), e)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "demand")
}
