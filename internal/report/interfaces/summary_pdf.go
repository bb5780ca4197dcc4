package interfaces

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"flexmarket-report/internal/report/application"
)

// BuildSummaryPDF renders a one-page run summary: the period, the datasets
// loaded and the sections built.
func BuildSummaryPDF(s application.Summary) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Flexibility Market Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Run: %s", s.RunID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Period: %s (%s)", s.Period, s.Period.Month()))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Started: %s", s.Started.Format(time.RFC3339)))
	pdf.Ln(5)
	if !s.Finished.IsZero() {
		pdf.Cell(0, 6, fmt.Sprintf("Finished: %s", s.Finished.Format(time.RFC3339)))
		pdf.Ln(5)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(50, 6, "Dataset", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Rows", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, "First", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, "Last", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, d := range s.Datasets {
		pdf.CellFormat(50, 6, string(d.Name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", d.Rows), "1", 0, "R", false, 0, "")
		pdf.CellFormat(50, 6, d.First, "1", 0, "C", false, 0, "")
		pdf.CellFormat(50, 6, d.Last, "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(50, 6, "Section", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Tables", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Charts", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Duration", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, sec := range s.Sections {
		pdf.CellFormat(50, 6, sec.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", sec.Tables), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", sec.Charts), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, sec.Duration.Round(time.Millisecond).String(), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
