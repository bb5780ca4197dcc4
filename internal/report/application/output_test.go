package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flexmarket-report/internal/table"
)

func TestGridLayout(t *testing.T) {
	var out Output
	g := newGrid(&out, "EAC")
	tb := table.NewBuilder("Date", "MW", "Price").
		Add(table.Str("a"), table.Num(1), table.Num(2)).
		Add(table.Str("b"), table.Num(3), table.Num(4)).
		Table()

	below, right, err := g.putClear(0, 0, "Volumes", tb, 10)
	require.NoError(t, err)
	assert.Equal(t, 4, below)
	assert.Equal(t, 4, right)

	_, _, err = g.putSpan(0, right, "Prices", tb)
	require.NoError(t, err)
	require.NoError(t, g.chart(ChartLine, "Prices", 8))
	g.putFixed(below, 0, "", tb, "A:F")

	require.Len(t, out.Placements, 3)
	assert.Equal(t, "A:J", out.Placements[0].Clear)
	assert.Equal(t, "E:G", out.Placements[1].Clear)
	assert.Equal(t, "A:F", out.Placements[2].Clear)
	assert.Equal(t, 4, out.Placements[2].Row)

	require.Len(t, out.Charts, 1)
	assert.Equal(t, "I2", out.Charts[0].Anchor)
	assert.Equal(t, "Prices", out.Charts[0].Data.Title)
	assert.Equal(t, 4, out.Charts[0].Data.Col)
}

func TestChartWithoutPlacement(t *testing.T) {
	var out Output
	require.NoError(t, newGrid(&out, "STOR").chart(ChartStackedColumn, "empty", 0))
	assert.Empty(t, out.Charts)
}

func TestSummaryRows(t *testing.T) {
	one := table.NewBuilder("Jan-24").Add(table.Num(5)).Table()
	got := summaryRows([]string{"Mean", "Volatility"}, []*table.Table{one, table.Empty("Jan-24")}, []string{"Jan-24"})
	require.Equal(t, 2, got.Len())
	assert.Equal(t, "Mean", got.Get(0, "Measure").Text())
	assert.Equal(t, "5", got.Get(0, "Jan-24").Text())
	assert.True(t, got.Get(1, "Jan-24").IsNull())
}
