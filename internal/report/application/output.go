package application

import (
	"context"

	report "flexmarket-report/internal/report/domain"
	"flexmarket-report/internal/table"
)

// Placement puts a table on a sheet. Row and Col are zero-based and address
// the header row's first cell; Title replaces that cell. Clear, when set, is
// a column range such as "A:F" emptied before the table is written.
type Placement struct {
	Sheet string
	Row   int
	Col   int
	Title string
	Clear string
	Table *table.Table
}

// ChartKind selects a chart type.
type ChartKind string

const (
	ChartStackedColumn ChartKind = "col_stacked"
	ChartLine          ChartKind = "line"
)

// Chart plots a placed table: its first column gives the categories and
// every other column is one series.
type Chart struct {
	Kind   ChartKind
	Title  string
	Anchor string
	Data   Placement
}

// Output is everything one section writes.
type Output struct {
	Section    string
	Placements []Placement
	Charts     []Chart
}

// Tables counts the placed tables.
func (o Output) Tables() int { return len(o.Placements) }

// Sink receives section outputs.
type Sink interface {
	Write(ctx context.Context, out Output) error
}

// Discard is the sink of runs that write no workbook.
type Discard struct{}

// Write drops the output.
func (Discard) Write(context.Context, Output) error { return nil }

// grid lays tables out on one sheet.
type grid struct {
	sheet string
	out   *Output
}

func newGrid(out *Output, sheet string) *grid { return &grid{sheet: sheet, out: out} }

// put places t with its header at (row, col) and returns the first free row
// below it (leaving one blank row) and the first free column to its right
// (leaving one blank column).
func (g *grid) put(row, col int, title string, t *table.Table) (below, right int) {
	g.out.Placements = append(g.out.Placements, Placement{Sheet: g.sheet, Row: row, Col: col, Title: title, Table: t})
	return row + t.Len() + 2, col + t.Width() + 1
}

// putClear is put with the columns from 1 to through clearing first.
func (g *grid) putClear(row, col int, title string, t *table.Table, through int) (below, right int, err error) {
	clear, err := report.ColumnRange(1, max(through, 1))
	if err != nil {
		return 0, 0, err
	}
	below, right = g.put(row, col, title, t)
	g.out.Placements[len(g.out.Placements)-1].Clear = clear
	return below, right, nil
}

// putSpan is put with the table's own columns clearing first.
func (g *grid) putSpan(row, col int, title string, t *table.Table) (below, right int, err error) {
	clear, err := report.ColumnRange(col+1, col+max(t.Width(), 1))
	if err != nil {
		return 0, 0, err
	}
	below, right = g.put(row, col, title, t)
	g.out.Placements[len(g.out.Placements)-1].Clear = clear
	return below, right, nil
}

// putFixed is put with a fixed clear range.
func (g *grid) putFixed(row, col int, title string, t *table.Table, clear string) (below, right int) {
	below, right = g.put(row, col, title, t)
	g.out.Placements[len(g.out.Placements)-1].Clear = clear
	return below, right
}

// chart plots the most recent placement, anchored on the second row of the
// zero-based column col.
func (g *grid) chart(kind ChartKind, title string, col int) error {
	if len(g.out.Placements) == 0 {
		return nil
	}
	letter, err := report.ColumnLetter(col + 1)
	if err != nil {
		return err
	}
	g.out.Charts = append(g.out.Charts, Chart{
		Kind:   kind,
		Title:  title,
		Anchor: letter + "2",
		Data:   g.out.Placements[len(g.out.Placements)-1],
	})
	return nil
}
