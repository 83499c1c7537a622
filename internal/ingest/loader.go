package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"rosterkit/internal/config"
	"rosterkit/internal/errors"
	"rosterkit/pkg/contracts/domain"
)

// utf8BOM prefixes CSV files exported from Excel. The loader strips it so
// the first header cell matches the schema by name.
const utf8BOM = "\ufeff"

// Loader reads roster source files into domain.RawTable values. It
// dispatches on the file extension and applies the same schema check to
// every format it understands.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a loader. A nil logger falls back to slog.Default().
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load reads the source file at path and returns its contents as an
// untyped table. It fails fast when the file is absent, oversized, in an
// unsupported format, or missing required roster columns.
func (l *Loader) Load(ctx context.Context, path string) (*domain.RawTable, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError(fmt.Sprintf("source file %q", path))
		}
		return nil, errors.NewStorageError(fmt.Sprintf("failed to stat source file %q", path), err)
	}
	if info.IsDir() {
		return nil, errors.NewParsingError(fmt.Sprintf("source path %q is a directory", path), nil)
	}
	if info.Size() > config.MaxSourceFileSize {
		return nil, errors.NewAppValidationError(
			fmt.Sprintf("source file %q exceeds the %d byte limit", path, config.MaxSourceFileSize))
	}

	var table *domain.RawTable
	switch strings.ToLower(filepath.Ext(path)) {
	case config.SourceExtCSV:
		table, err = l.LoadCSV(ctx, path)
	case config.SourceExtExcel:
		table, err = l.LoadExcel(ctx, path)
	default:
		return nil, errors.NewParsingError(
			fmt.Sprintf("unsupported source format %q, expected %s or %s",
				filepath.Ext(path), config.SourceExtCSV, config.SourceExtExcel), nil)
	}
	if err != nil {
		return nil, err
	}

	if err := ValidateSchema(table); err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "source file loaded",
		slog.String("path", path),
		slog.Int("rows", table.RowCount()),
		slog.Int("columns", len(table.Header)))

	return table, nil
}

// LoadCSV reads a CSV source into an untyped table. The reader tolerates a
// UTF-8 BOM, quoted cells and ragged rows; every data row is normalized to
// the header width so downstream code can index cells by column position.
func (l *Loader) LoadCSV(ctx context.Context, path string) (*domain.RawTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.NewStorageError(fmt.Sprintf("failed to open source file %q", path), err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.NewParsingError(fmt.Sprintf("source file %q has no header row", path), nil)
	}
	if err != nil {
		return nil, errors.NewParsingError(fmt.Sprintf("failed to read CSV header from %q", path), err)
	}
	header[0] = strings.TrimPrefix(header[0], utf8BOM)
	for i, cell := range header {
		header[i] = strings.TrimSpace(cell)
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewParsingError(fmt.Sprintf("failed to read CSV row from %q", path), err)
		}
		rows = append(rows, normalizeRow(record, len(header)))
	}

	l.logger.DebugContext(ctx, "csv source parsed",
		slog.String("path", path),
		slog.Int("rows", len(rows)))

	return &domain.RawTable{Header: header, Rows: rows}, nil
}

// LoadExcel reads the first sheet of an XLSX workbook into an untyped
// table. The first row with any non-empty cell is taken as the header;
// rows that are entirely empty are skipped because spreadsheet tools keep
// formatted-but-blank rows around.
func (l *Loader) LoadExcel(ctx context.Context, path string) (*domain.RawTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.NewParsingError(fmt.Sprintf("failed to open workbook %q", path), err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.NewParsingError(fmt.Sprintf("workbook %q has no sheets", path), nil)
	}
	sheet := sheets[0]

	sheetRows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.NewParsingError(fmt.Sprintf("failed to read sheet %q from %q", sheet, path), err)
	}

	headerIdx := -1
	for i, row := range sheetRows {
		if !rowEmpty(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx == -1 {
		return nil, errors.NewParsingError(fmt.Sprintf("workbook %q has no header row", path), nil)
	}

	header := make([]string, len(sheetRows[headerIdx]))
	for i, cell := range sheetRows[headerIdx] {
		header[i] = strings.TrimSpace(cell)
	}

	var rows [][]string
	for _, row := range sheetRows[headerIdx+1:] {
		if rowEmpty(row) {
			continue
		}
		rows = append(rows, normalizeRow(row, len(header)))
	}

	l.logger.DebugContext(ctx, "xlsx source parsed",
		slog.String("path", path),
		slog.String("sheet", sheet),
		slog.Int("rows", len(rows)))

	return &domain.RawTable{Header: header, Rows: rows}, nil
}

// ValidateSchema fails with a descriptive error naming every roster column
// absent from the table header.
func ValidateSchema(table *domain.RawTable) error {
	if missing := table.MissingColumns(); len(missing) > 0 {
		return errors.NewSchemaError(
			fmt.Sprintf("source is missing required columns: %s", strings.Join(missing, ", ")),
			missing)
	}
	return nil
}

// normalizeRow pads or truncates a record to the header width. The table
// models a row as one value per schema column, so cells beyond the header
// have no column to belong to.
func normalizeRow(record []string, width int) []string {
	row := make([]string, width)
	copy(row, record)
	return row
}

// rowEmpty reports whether every cell is blank after trimming whitespace.
func rowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
