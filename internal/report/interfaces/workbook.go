package interfaces

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"flexmarket-report/internal/report/application"
)

const defaultSheet = "Sheet1"

var ErrBadClearRange = errors.New("workbook: bad clear range")

// Workbook writes section outputs into an xlsx file. An existing file is
// updated in place: sheets the run does not touch are preserved.
type Workbook struct {
	path    string
	file    *excelize.File
	log     zerolog.Logger
	created bool
	touched map[string]bool
}

// OpenWorkbook opens path, or starts a new workbook when it does not exist.
func OpenWorkbook(path string, logger zerolog.Logger) (*Workbook, error) {
	w := &Workbook{path: path, log: logger, touched: map[string]bool{}}
	f, err := excelize.OpenFile(path)
	switch {
	case err == nil:
		w.file = f
	case errors.Is(err, os.ErrNotExist):
		w.file = excelize.NewFile()
		w.created = true
	default:
		return nil, fmt.Errorf("workbook: open %s: %w", path, err)
	}
	return w, nil
}

// Write places every table of out, then its charts.
func (w *Workbook) Write(ctx context.Context, out application.Output) error {
	for _, p := range out.Placements {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.ensureSheet(p.Sheet); err != nil {
			return err
		}
		if p.Clear != "" {
			if err := w.clear(p.Sheet, p.Clear); err != nil {
				return err
			}
		}
		if err := w.writeTable(p); err != nil {
			return fmt.Errorf("workbook: %s!%s: %w", p.Sheet, p.Title, err)
		}
	}
	for _, c := range out.Charts {
		if err := w.addChart(c); err != nil {
			return fmt.Errorf("workbook: chart %q: %w", c.Title, err)
		}
	}
	w.log.Debug().Str("section", out.Section).Int("tables", len(out.Placements)).Int("charts", len(out.Charts)).Msg("section written to workbook")
	return nil
}

// Save writes the workbook to its path.
func (w *Workbook) Save() error {
	if w.created && !w.touched[defaultSheet] && len(w.touched) > 0 {
		if err := w.file.DeleteSheet(defaultSheet); err != nil {
			return fmt.Errorf("workbook: %w", err)
		}
	}
	if err := w.file.SaveAs(w.path); err != nil {
		return fmt.Errorf("workbook: save %s: %w", w.path, err)
	}
	w.log.Info().Str("path", w.path).Strs("sheets", w.file.GetSheetList()).Msg("workbook saved")
	return nil
}

// Close releases the file without saving.
func (w *Workbook) Close() error { return w.file.Close() }

func (w *Workbook) ensureSheet(sheet string) error {
	w.touched[sheet] = true
	idx, err := w.file.GetSheetIndex(sheet)
	if err != nil {
		return fmt.Errorf("workbook: sheet %q: %w", sheet, err)
	}
	if idx >= 0 {
		return nil
	}
	if _, err := w.file.NewSheet(sheet); err != nil {
		return fmt.Errorf("workbook: new sheet %q: %w", sheet, err)
	}
	return nil
}

// clear empties every used cell in a column range such as "A:F".
func (w *Workbook) clear(sheet, columns string) error {
	lo, hi, err := columnBounds(columns)
	if err != nil {
		return err
	}
	rows, err := w.file.GetRows(sheet)
	if err != nil {
		return err
	}
	for r, row := range rows {
		for c := lo; c <= hi && c <= len(row); c++ {
			if row[c-1] == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c, r+1)
			if err != nil {
				return err
			}
			if err := w.file.SetCellValue(sheet, cell, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

func columnBounds(columns string) (lo, hi int, err error) {
	from, to, ok := strings.Cut(columns, ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w %q", ErrBadClearRange, columns)
	}
	if lo, err = excelize.ColumnNameToNumber(from); err != nil {
		return 0, 0, fmt.Errorf("%w %q: %v", ErrBadClearRange, columns, err)
	}
	if hi, err = excelize.ColumnNameToNumber(to); err != nil {
		return 0, 0, fmt.Errorf("%w %q: %v", ErrBadClearRange, columns, err)
	}
	if hi < lo {
		return 0, 0, fmt.Errorf("%w %q", ErrBadClearRange, columns)
	}
	return lo, hi, nil
}

func (w *Workbook) writeTable(p application.Placement) error {
	header := make([]any, 0, p.Table.Width())
	for _, c := range p.Table.Columns() {
		header = append(header, c)
	}
	if p.Title != "" && len(header) > 0 {
		header[0] = p.Title
	}
	cell, err := excelize.CoordinatesToCellName(p.Col+1, p.Row+1)
	if err != nil {
		return err
	}
	if err := w.file.SetSheetRow(p.Sheet, cell, &header); err != nil {
		return err
	}
	for i := 0; i < p.Table.Len(); i++ {
		values := p.Table.Values(i)
		row := make([]any, len(values))
		for j, v := range values {
			row[j] = v.Interface()
		}
		cell, err := excelize.CoordinatesToCellName(p.Col+1, p.Row+i+2)
		if err != nil {
			return err
		}
		if err := w.file.SetSheetRow(p.Sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func (w *Workbook) addChart(c application.Chart) error {
	p := c.Data
	if p.Table.Len() == 0 || p.Table.Width() < 2 {
		w.log.Warn().Str("chart", c.Title).Msg("chart skipped: no data")
		return nil
	}
	first, last := p.Row+2, p.Row+p.Table.Len()+1
	categories, err := columnRef(p.Sheet, p.Col+1, first, last)
	if err != nil {
		return err
	}
	chart := &excelize.Chart{
		Type:  chartType(c.Kind),
		Title: []excelize.RichTextRun{{Text: c.Title}},
		Legend: excelize.ChartLegend{
			Position: "bottom",
		},
	}
	for j := 1; j < p.Table.Width(); j++ {
		name, err := columnRef(p.Sheet, p.Col+j+1, p.Row+1, p.Row+1)
		if err != nil {
			return err
		}
		values, err := columnRef(p.Sheet, p.Col+j+1, first, last)
		if err != nil {
			return err
		}
		chart.Series = append(chart.Series, excelize.ChartSeries{Name: name, Categories: categories, Values: values})
	}
	// Re-running a section replaces its chart.
	_ = w.file.DeleteChart(p.Sheet, c.Anchor)
	return w.file.AddChart(p.Sheet, c.Anchor, chart)
}

func chartType(kind application.ChartKind) excelize.ChartType {
	if kind == application.ChartLine {
		return excelize.Line
	}
	return excelize.ColStacked
}

// columnRef is the absolute reference of rows first..last of column col.
func columnRef(sheet string, col, first, last int) (string, error) {
	from, err := excelize.CoordinatesToCellName(col, first, true)
	if err != nil {
		return "", err
	}
	to, err := excelize.CoordinatesToCellName(col, last, true)
	if err != nil {
		return "", err
	}
	quoted := "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
	if from == to {
		return quoted + "!" + from, nil
	}
	return quoted + "!" + from + ":" + to, nil
}
