package exporter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"rosterkit/internal/config"
	"rosterkit/pkg/contracts/domain"
)

// Canonical artifact names, relative to the output directory.
const (
	CleanedCSVFile  = "cleaned_data.csv"
	CleanedXLSXFile = "cleaned_data.xlsx"
	SummaryJSONFile = "cleaning_summary.json"
)

// streamThreshold is the row count above which the CSV export switches to
// the streaming writer instead of building the full record slice.
const streamThreshold = 10000

// cleanedSheetName is the sheet the XLSX export writes the roster to.
const cleanedSheetName = "Cleaned"

// RosterExporter persists cleaned rosters and their run summaries.
type RosterExporter struct {
	csvWriter *CSVWriter
	logger    *slog.Logger
}

// NewRosterExporter creates a roster exporter. A nil logger falls back to
// slog.Default().
func NewRosterExporter(paths *config.Paths, logger *slog.Logger) *RosterExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RosterExporter{
		csvWriter: NewCSVWriter(paths),
		logger:    logger,
	}
}

// ExportCleanedCSV writes the cleaned roster as CSV in canonical column
// order. Large rosters stream row by row; the output is identical either
// way.
func (e *RosterExporter) ExportCleanedCSV(records []domain.EmployeeRecord, outputPath string) error {
	if len(records) > streamThreshold {
		return e.exportCleanedCSVStreaming(records, outputPath)
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, rec.Cells())
	}

	if err := e.csvWriter.WriteSimpleCSV(outputPath, domain.RosterColumns, rows); err != nil {
		return fmt.Errorf("failed to write cleaned roster: %w", err)
	}
	return nil
}

// exportCleanedCSVStreaming writes the roster through the stream writer so
// very large rosters do not hold a second copy of every row in memory.
func (e *RosterExporter) exportCleanedCSVStreaming(records []domain.EmployeeRecord, outputPath string) error {
	stream, err := e.csvWriter.CreateStreamWriter(outputPath, domain.RosterColumns)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}

	for i, rec := range records {
		if err := stream.WriteRecord(rec.Cells()); err != nil {
			stream.Close()
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	if err := stream.Close(); err != nil {
		return fmt.Errorf("failed to close stream: %w", err)
	}
	return nil
}

// ExportXLSX writes the cleaned roster as a single-sheet workbook. Age and
// Salary are written as numbers so spreadsheet formulas work on them
// directly; dates use the canonical serialization, including the invalid
// marker.
func (e *RosterExporter) ExportXLSX(records []domain.EmployeeRecord, outputPath string) error {
	fullPath := e.csvWriter.resolvePath(outputPath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName(f.GetSheetName(0), cleanedSheetName)

	header := make([]interface{}, len(domain.RosterColumns))
	for i, col := range domain.RosterColumns {
		header[i] = col
	}
	if err := f.SetSheetRow(cleanedSheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", i, err)
		}
		row := []interface{}{
			rec.Name,
			rec.Email,
			rec.PhoneNumber,
			rec.Age,
			rec.Country,
			rec.Salary,
			rec.JoiningDate.String(),
		}
		if err := f.SetSheetRow(cleanedSheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	if err := f.SaveAs(fullPath); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	e.logger.Info("cleaned roster exported to workbook",
		slog.String("path", fullPath),
		slog.Int("rows", len(records)))

	return nil
}

// ExportSummaryJSON persists the cleaning summary next to the cleaned
// roster so later runs and the dashboard can show what the last run did.
func (e *RosterExporter) ExportSummaryJSON(summary domain.CleaningSummary, outputPath string) error {
	fullPath := e.csvWriter.resolvePath(outputPath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	e.logger.Info("cleaning summary exported",
		slog.String("path", fullPath),
		slog.Int("rows_out", summary.RowsOut))

	return nil
}
