package report

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flexmarket-report/internal/table"
)

func mustTable(t *testing.T, columns []string, rows ...[]table.Value) *table.Table {
	t.Helper()
	tbl, err := table.New(columns, rows...)
	require.NoError(t, err)
	return tbl
}

func TestColumnLetter(t *testing.T) {
	cases := map[int]string{1: "A", 2: "B", 26: "Z", 27: "AA", 52: "AZ", 53: "BA", 702: "ZZ", 703: "ZA"}
	for n, want := range cases {
		got, err := ColumnLetter(n)
		require.NoError(t, err, "column %d", n)
		assert.Equal(t, want, got, "column %d", n)
	}

	for _, n := range []int{0, -1, 704} {
		_, err := ColumnLetter(n)
		assert.True(t, errors.Is(err, ErrColumnOutOfRange), "column %d", n)
	}

	rng, err := ColumnRange(1, 6)
	require.NoError(t, err)
	assert.Equal(t, "A:F", rng)
}

func TestParseAgg(t *testing.T) {
	a, err := ParseAgg(" Mean ")
	require.NoError(t, err)
	assert.Equal(t, Mean, a)

	_, err = ParseAgg("median")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedAgg))
	assert.Contains(t, err.Error(), "sum, mean, count, max, min, std")
}

func TestReduce(t *testing.T) {
	values := []table.Value{table.Num(2), table.Null(), table.Num(4), table.Num(9)}

	assert.Equal(t, table.Num(15), Sum.Reduce(values))
	assert.Equal(t, table.Num(5), Mean.Reduce(values))
	assert.Equal(t, table.Int(3), Count.Reduce(values))
	assert.Equal(t, table.Num(9), Max.Reduce(values))
	assert.Equal(t, table.Num(2), Min.Reduce(values))

	std, ok := Std.Reduce(values).Float()
	require.True(t, ok)
	assert.InDelta(t, 3.6056, std, 1e-4)

	assert.True(t, Mean.Reduce(nil).IsNull())
	assert.True(t, Std.Reduce([]table.Value{table.Num(1)}).IsNull())
	assert.Equal(t, table.Num(0), Std.Reduce([]table.Value{table.Num(7), table.Num(7)}))
	assert.Equal(t, table.Num(0), Sum.Reduce(nil))
}

func TestAggregate(t *testing.T) {
	in := mustTable(t, []string{"Fuel", "MW"},
		[]table.Value{table.Str("Wind"), table.Num(10)},
		[]table.Value{table.Str("Battery"), table.Num(3)},
		[]table.Value{table.Str("Wind"), table.Num(20)},
		[]table.Value{table.Null(), table.Num(99)},
	)

	out, err := Aggregate(in, []string{"Fuel"},
		Spec{Column: "MW", Agg: Sum, As: "Total"},
		Spec{Column: "MW", Agg: Count, As: "Rows"},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fuel", "Total", "Rows"}, out.Columns())
	require.Equal(t, 2, out.Len())
	assert.Equal(t, "Battery", out.Get(0, "Fuel").Text())
	assert.Equal(t, table.Num(30), out.Get(1, "Total"))
	assert.Equal(t, table.Int(2), out.Get(1, "Rows"))

	_, err = Aggregate(in, []string{"Fuel"}, Spec{Column: "MW", Agg: "median"})
	assert.ErrorIs(t, err, ErrUnsupportedAgg)
}

func volumeByFuel(t *testing.T) *table.Table {
	return mustTable(t, []string{"Date", "Fuel", "MW"},
		[]table.Value{table.Str("d1"), table.Str("Battery"), table.Num(30)},
		[]table.Value{table.Str("d1"), table.Str("Gas"), table.Num(70)},
		[]table.Value{table.Str("d2"), table.Str("Battery"), table.Num(10)},
		[]table.Value{table.Str("d2"), table.Str("Battery"), table.Num(10)},
		[]table.Value{table.Str("d2"), table.Str("Gas"), table.Num(20)},
		[]table.Value{table.Str("d2"), table.Str("Hydro"), table.Num(10)},
	)
}

func TestPivotWithMargins(t *testing.T) {
	out, err := Pivot(volumeByFuel(t), PivotOptions{
		Index: []string{"Date"}, Columns: "Fuel", Values: "MW", Agg: Sum,
		Margins: true, MarginsName: "Total",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Date", "Battery", "Gas", "Hydro", "Total"}, out.Columns())
	require.Equal(t, 3, out.Len())
	assert.Equal(t, table.Num(20), out.Get(1, "Battery"))
	assert.Equal(t, table.Num(50), out.Get(1, "Total"))
	assert.True(t, out.Get(0, "Hydro").IsNull())

	assert.Equal(t, "Total", out.Get(2, "Date").Text())
	assert.Equal(t, table.Num(50), out.Get(2, "Battery"))
	assert.Equal(t, table.Num(150), out.Get(2, "Total"))
}

func TestPivotDropsEmptyColumns(t *testing.T) {
	in := mustTable(t, []string{"Date", "Fuel", "MW"},
		[]table.Value{table.Str("d1"), table.Str("Battery"), table.Num(5)},
		[]table.Value{table.Str("d1"), table.Str("Gas"), table.Null()},
	)
	out, err := Pivot(in, PivotOptions{Index: []string{"Date"}, Columns: "Fuel", Values: "MW", Agg: Mean})
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "Battery"}, out.Columns())
}

func TestShareRowsSumToOne(t *testing.T) {
	pivot, err := Pivot(volumeByFuel(t), PivotOptions{
		Index: []string{"Date"}, Columns: "Fuel", Values: "MW", Agg: Sum,
		Margins: true, MarginsName: "Total",
	})
	require.NoError(t, err)

	shares, err := Share(pivot, []string{"Date"}, "Total")
	require.NoError(t, err)
	assert.False(t, shares.Has("Total"))
	require.Equal(t, 2, shares.Len())

	for i := 0; i < shares.Len(); i++ {
		sum := 0.0
		for _, c := range PivotColumns(shares, "Date") {
			if f, ok := shares.Get(i, c).Float(); ok && !shares.Get(i, c).IsNull() {
				sum += f
			}
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "row %d", i)
	}
	assert.InDelta(t, 0.3, mustFloat(t, shares.Get(0, "Battery")), 1e-9)
}

func TestShareZeroTotal(t *testing.T) {
	in := mustTable(t, []string{"Date", "Gas", "Total"},
		[]table.Value{table.Str("d1"), table.Num(0), table.Num(0)},
	)
	out, err := Share(in, []string{"Date"}, "Total")
	require.NoError(t, err)
	assert.True(t, out.Get(0, "Gas").IsNull())
}

func mustFloat(t *testing.T, v table.Value) float64 {
	t.Helper()
	f, ok := v.Float()
	require.True(t, ok)
	require.False(t, v.IsNull())
	return f
}

func TestPercentChange(t *testing.T) {
	assert.InDelta(t, 0.2, mustFloat(t, PercentChange(table.Num(120), table.Num(100))), 1e-12)
	assert.InDelta(t, -0.5, mustFloat(t, PercentChange(table.Num(50), table.Num(100))), 1e-12)
	assert.True(t, PercentChange(table.Num(5), table.Num(0)).IsNull())
	assert.True(t, PercentChange(table.Num(5), table.Null()).IsNull())
}

func TestLatestChange(t *testing.T) {
	monthly := mustTable(t, []string{"Month", "Price"},
		[]table.Value{table.Str("Dec-23"), table.Num(80)},
		[]table.Value{table.Str("Jan-24"), table.Num(100)},
		[]table.Value{table.Str("Feb-24"), table.Num(120)},
	)
	all := Changes(monthly, "Month")
	assert.True(t, all.Get(0, "Price").IsNull())
	assert.InDelta(t, 0.25, mustFloat(t, all.Get(1, "Price")), 1e-12)

	latest := LatestChange(monthly, "Month")
	require.Equal(t, 1, latest.Len())
	assert.Equal(t, "Feb-24", latest.Get(0, "Month").Text())
	assert.InDelta(t, 0.2, mustFloat(t, latest.Get(0, "Price")), 1e-12)
}

func TestWeightedAverage(t *testing.T) {
	in := mustTable(t, []string{"Price", "MW"},
		[]table.Value{table.Num(10), table.Num(1)},
		[]table.Value{table.Num(20), table.Num(3)},
		[]table.Value{table.Null(), table.Num(50)},
	)
	assert.InDelta(t, 17.5, mustFloat(t, WeightedAverage(in, "Price", "MW")), 1e-12)

	zero := mustTable(t, []string{"Price", "MW"}, []table.Value{table.Num(10), table.Num(0)})
	assert.True(t, WeightedAverage(zero, "Price", "MW").IsNull())
	assert.True(t, WeightedAverage(table.Empty("Price", "MW"), "Price", "MW").IsNull())
}

func TestFillForward(t *testing.T) {
	in := mustTable(t, []string{"EFA"},
		[]table.Value{table.Null()},
		[]table.Value{table.Int(2)},
		[]table.Value{table.Null()},
		[]table.Value{table.Int(3)},
	)
	out := FillForward(in, "EFA")
	got, err := out.Column("EFA")
	require.NoError(t, err)
	assert.Equal(t, []table.Value{table.Int(2), table.Int(2), table.Int(2), table.Int(3)}, got)
}

func TestEFA(t *testing.T) {
	efa, ok := EFAForStart(time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC))
	assert.True(t, ok)
	assert.Equal(t, 1, efa)

	efa, ok = EFAForStart(time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC))
	assert.True(t, ok)
	assert.Equal(t, 5, efa)

	_, ok = EFAForStart(time.Date(2024, 6, 1, 13, 0, 0, 0, time.UTC))
	assert.False(t, ok)

	assert.Equal(t, 1, EFAForHour(23))
	assert.Equal(t, 1, EFAForHour(0))
	assert.Equal(t, 2, EFAForHour(3))
	assert.Equal(t, 6, EFAForHour(22))

	sps := mustTable(t, []string{"SP"},
		[]table.Value{table.Int(1)},
		[]table.Value{table.Int(5)},
		[]table.Value{table.Int(6)},
		[]table.Value{table.Int(13)},
	)
	out := WithSettlementPeriodEFA(sps, "SP", "EFA")
	got, err := out.Column("EFA")
	require.NoError(t, err)
	assert.Equal(t, []table.Value{table.Int(2), table.Int(2), table.Int(2), table.Int(3)}, got)
}
