package interfaces

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"flexmarket-report/internal/report/application"
	"flexmarket-report/internal/table"
)

func prices(t *testing.T, rows ...[]table.Value) *table.Table {
	t.Helper()
	tb, err := table.New([]string{"Month", "Battery", "Gas"}, rows...)
	require.NoError(t, err)
	return tb
}

func TestWorkbookWritesPlacementsAndCharts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	w, err := OpenWorkbook(path, zerolog.Nop())
	require.NoError(t, err)

	data := prices(t,
		[]table.Value{table.Str("Jan-24"), table.Num(81.5), table.Num(95)},
		[]table.Value{table.Str("Feb-24"), table.Num(77.25), table.Null()},
	)
	placed := application.Placement{Sheet: "BM prices", Row: 0, Col: 0, Title: "Average prices", Clear: "A:C", Table: data}
	out := application.Output{
		Section:    application.SectionBalancing,
		Placements: []application.Placement{placed},
		Charts:     []application.Chart{{Kind: application.ChartStackedColumn, Title: "Prices", Anchor: "E2", Data: placed}},
	}
	require.NoError(t, w.Write(context.Background(), out))
	require.NoError(t, w.Save())
	require.NoError(t, w.Close())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"BM prices"}, f.GetSheetList())

	get := func(cell string) string {
		v, err := f.GetCellValue("BM prices", cell)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "Average prices", get("A1"))
	assert.Equal(t, "Battery", get("B1"))
	assert.Equal(t, "Jan-24", get("A2"))
	assert.Equal(t, "81.5", get("B2"))
	assert.Equal(t, "", get("C3"))
}

func TestWorkbookClearsBeforeRewriting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	w, err := OpenWorkbook(path, zerolog.Nop())
	require.NoError(t, err)

	long := prices(t,
		[]table.Value{table.Str("Jan-24"), table.Num(1), table.Num(2)},
		[]table.Value{table.Str("Feb-24"), table.Num(3), table.Num(4)},
	)
	short := prices(t, []table.Value{table.Str("Mar-24"), table.Num(5), table.Num(6)})
	write := func(tb *table.Table) {
		require.NoError(t, w.Write(context.Background(), application.Output{
			Placements: []application.Placement{{Sheet: "STOR", Clear: "A:C", Table: tb}},
		}))
	}
	write(long)
	write(short)
	require.NoError(t, w.Save())
	require.NoError(t, w.Close())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	a1, _ := f.GetCellValue("STOR", "A1")
	a2, _ := f.GetCellValue("STOR", "A2")
	a3, _ := f.GetCellValue("STOR", "A3")
	assert.Equal(t, "Month", a1)
	assert.Equal(t, "Mar-24", a2)
	assert.Equal(t, "", a3)
}

func TestWorkbookKeepsUntouchedSheets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	seed := excelize.NewFile()
	_, err := seed.NewSheet("Notes")
	require.NoError(t, err)
	require.NoError(t, seed.SetCellValue("Notes", "A1", "keep me"))
	require.NoError(t, seed.SaveAs(path))
	require.NoError(t, seed.Close())

	w, err := OpenWorkbook(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, w.Write(context.Background(), application.Output{
		Placements: []application.Placement{{Sheet: "SFFR", Table: prices(t)}},
	}))
	require.NoError(t, w.Save())
	require.NoError(t, w.Close())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.ElementsMatch(t, []string{"Sheet1", "Notes", "SFFR"}, f.GetSheetList())
	v, err := f.GetCellValue("Notes", "A1")
	require.NoError(t, err)
	assert.Equal(t, "keep me", v)
}

func TestWorkbookRejectsBadClearRange(t *testing.T) {
	w, err := OpenWorkbook(filepath.Join(t.TempDir(), "report.xlsx"), zerolog.Nop())
	require.NoError(t, err)
	defer w.Close()
	err = w.Write(context.Background(), application.Output{
		Placements: []application.Placement{{Sheet: "EAC", Clear: "F", Table: prices(t)}},
	})
	assert.True(t, errors.Is(err, ErrBadClearRange))
}

func TestColumnRef(t *testing.T) {
	ref, err := columnRef("Bob's sheet", 2, 3, 10)
	require.NoError(t, err)
	assert.Equal(t, "'Bob''s sheet'!$B$3:$B$10", ref)
	ref, err = columnRef("EAC", 1, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "'EAC'!$A$1", ref)
}

func TestBuildSummaryPDF(t *testing.T) {
	started := time.Date(2024, time.February, 3, 9, 0, 0, 0, time.UTC)
	pdf, err := BuildSummaryPDF(application.Summary{
		RunID:    "run-1",
		Started:  started,
		Finished: started.Add(time.Minute),
		Datasets: []application.DatasetInfo{{Name: "stor", Rows: 12, First: "2024-01-01", Last: "2024-01-31"}},
		Sections: []application.SectionResult{{Name: application.SectionSTOR, Tables: 4, Duration: 1500 * time.Millisecond}},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
}
