package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"

	"rosterkit/internal/config"
	"rosterkit/internal/errors"
	"rosterkit/pkg/contracts/domain"
)

// SummaryReportFile is the PDF artifact, written to the output directory.
const SummaryReportFile = "summary_report.pdf"

// pdfFont is a base font every PDF reader ships.
const pdfFont = "Helvetica"

// PDFBuilder renders the printable summary report: cleaning counts,
// descriptive statistics and the chart images two per page.
type PDFBuilder struct {
	paths  *config.Paths
	cfg    config.ReportConfig
	logger *slog.Logger
}

// NewPDFBuilder creates a PDF builder. A nil logger falls back to
// slog.Default().
func NewPDFBuilder(paths *config.Paths, cfg config.ReportConfig, logger *slog.Logger) *PDFBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFBuilder{paths: paths, cfg: cfg, logger: logger}
}

// Build renders the report and returns the written path. Chart paths must
// point at existing PNG files; pass none to render a text-only report.
func (b *PDFBuilder) Build(ctx context.Context, summary domain.CleaningSummary, rosterStats domain.RosterStats, chartPaths []string) (string, error) {
	started := time.Now()

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("RosterKit Summary Report", false)
	pdf.AddPage()

	pdf.SetFont(pdfFont, "B", 16)
	pdf.CellFormat(0, 10, "Data Cleaning Report", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	writeSummarySection(pdf, summary)
	writeStatsSection(pdf, rosterStats)
	writeChartPages(pdf, chartPaths)

	fullPath := b.paths.GetOutputPath(SummaryReportFile)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", errors.NewStorageError("failed to create output directory", err)
	}
	if err := pdf.OutputFileAndClose(fullPath); err != nil {
		return "", errors.NewRenderError("failed to write summary report", err)
	}

	b.logger.InfoContext(ctx, "summary report rendered",
		slog.String("path", fullPath),
		slog.Int("charts", len(chartPaths)),
		slog.Duration("duration", time.Since(started)))

	return fullPath, nil
}

func writeSummarySection(pdf *fpdf.Fpdf, s domain.CleaningSummary) {
	pdf.SetFont(pdfFont, "B", 12)
	pdf.CellFormat(0, 8, "Cleaning Summary", "", 1, "L", false, 0, "")

	pdf.SetFont(pdfFont, "", 11)
	lines := []string{
		fmt.Sprintf("Source file: %s", s.Source),
		fmt.Sprintf("Initial records: %d", s.RowsIn),
		fmt.Sprintf("Duplicates removed: %d", s.DuplicatesRemoved),
		fmt.Sprintf("Records after deduplication: %d", s.RowsIn-s.DuplicatesRemoved),
		fmt.Sprintf("Cells imputed: %d", s.TotalImputed()),
		fmt.Sprintf("Invalid joining dates: %d", s.InvalidDates),
		fmt.Sprintf("Final records after cleaning: %d", s.RowsOut),
	}
	for _, line := range lines {
		pdf.CellFormat(0, 6, line, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func writeStatsSection(pdf *fpdf.Fpdf, rs domain.RosterStats) {
	if len(rs.Columns) == 0 {
		return
	}

	pdf.SetFont(pdfFont, "B", 12)
	pdf.CellFormat(0, 8, "Descriptive Statistics", "", 1, "L", false, 0, "")

	const colWidth = 38.0

	pdf.SetFont(pdfFont, "B", 10)
	pdf.CellFormat(colWidth, 7, "Statistic", "1", 0, "L", false, 0, "")
	for _, cs := range rs.Columns {
		pdf.CellFormat(colWidth, 7, cs.Column, "1", 0, "R", false, 0, "")
	}
	pdf.Ln(-1)

	rows := []struct {
		label string
		value func(domain.ColumnStats) string
	}{
		{"Count", func(c domain.ColumnStats) string { return strconv.Itoa(c.Count) }},
		{"Mean", func(c domain.ColumnStats) string { return formatStat(c.Mean) }},
		{"Std", func(c domain.ColumnStats) string { return formatStat(c.Std) }},
		{"Min", func(c domain.ColumnStats) string { return formatStat(c.Min) }},
		{"25%", func(c domain.ColumnStats) string { return formatStat(c.Q25) }},
		{"50%", func(c domain.ColumnStats) string { return formatStat(c.Median) }},
		{"75%", func(c domain.ColumnStats) string { return formatStat(c.Q75) }},
		{"Max", func(c domain.ColumnStats) string { return formatStat(c.Max) }},
	}

	pdf.SetFont(pdfFont, "", 10)
	for _, row := range rows {
		pdf.CellFormat(colWidth, 7, row.label, "1", 0, "L", false, 0, "")
		for _, cs := range rs.Columns {
			pdf.CellFormat(colWidth, 7, row.value(cs), "1", 0, "R", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)
}

func writeChartPages(pdf *fpdf.Fpdf, chartPaths []string) {
	const imageX = 20.0
	const imageWidth = 170.0

	for i, path := range chartPaths {
		if i%2 == 0 {
			pdf.AddPage()
		}
		pdf.ImageOptions(path, imageX, 0, imageWidth, 0, true, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		pdf.Ln(6)
	}
}

func formatStat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
