package services

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"

	"rosterkit/internal/cleaning"
	"rosterkit/internal/config"
	apperrors "rosterkit/internal/errors"
	"rosterkit/internal/exporter"
	"rosterkit/internal/report"
	"rosterkit/internal/stats"
	"rosterkit/pkg/contracts/domain"
)

// Artifact categories returned by GetArtifacts and accepted as download
// file types.
const (
	CategoryCleaned   = "cleaned"
	CategorySummary   = "summary"
	CategoryChart     = "chart"
	CategoryDashboard = "dashboard"
	CategoryReport    = "report"
	CategoryOther     = "other"
)

// Artifact describes one file produced by a pipeline run.
type Artifact struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Category string    `json:"category"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// DataService reads back the artifacts the pipeline wrote: cleaned
// rosters, summaries, charts and reports. It never mutates them.
type DataService struct {
	config *config.Config
	paths  *config.Paths
	logger *slog.Logger
}

// NewDataService creates a new data service using the default logger.
func NewDataService(cfg *config.Config) (*DataService, error) {
	return NewDataServiceWithLogger(cfg, slog.Default())
}

// NewDataServiceWithLogger creates a new data service with a specific logger.
func NewDataServiceWithLogger(cfg *config.Config, logger *slog.Logger) (*DataService, error) {
	paths, err := config.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	return NewDataServiceWithPaths(cfg, paths, logger)
}

// NewDataServiceWithPaths creates a data service against explicit paths
// instead of the executable-relative defaults.
func NewDataServiceWithPaths(cfg *config.Config, paths *config.Paths, logger *slog.Logger) (*DataService, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("data service initialized with paths",
		slog.String("output_dir", paths.OutputDir),
		slog.String("visualizations_dir", paths.VisualizationsDir))

	return &DataService{
		config: cfg,
		paths:  paths,
		logger: logger,
	}, nil
}

// GetArtifacts lists every pipeline output under the output and
// visualizations directories, newest first. The visualizations directory
// normally nests inside the output directory, so the scan deduplicates by
// resolved path.
func (ds *DataService) GetArtifacts(ctx context.Context) ([]Artifact, error) {
	var artifacts []Artifact
	seen := make(map[string]bool)

	for _, dir := range []string{ds.paths.OutputDir, ds.paths.VisualizationsDir} {
		found, err := ds.scanArtifacts(ctx, dir, seen)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, found...)
	}

	sort.Slice(artifacts, func(i, j int) bool {
		if artifacts[i].Modified.Equal(artifacts[j].Modified) {
			return artifacts[i].Name < artifacts[j].Name
		}
		return artifacts[i].Modified.After(artifacts[j].Modified)
	})

	return artifacts, nil
}

// scanArtifacts walks one directory and collects the files it knows how
// to categorize. A missing directory is not an error; it just means no
// run has produced anything yet.
func (ds *DataService) scanArtifacts(ctx context.Context, dir string, seen map[string]bool) ([]Artifact, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	var artifacts []Artifact
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			logDataError(ctx, "scan_artifacts", "error accessing path",
				slog.String("path", path),
				slog.String("error", err.Error()))
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if seen[path] {
			return nil
		}
		seen[path] = true

		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		artifacts = append(artifacts, Artifact{
			Name:     info.Name(),
			Path:     relPath,
			Category: artifactCategory(info.Name()),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, apperrors.NewStorageError("failed to scan artifacts", err).WithContext("dir", dir)
	}

	return artifacts, nil
}

// artifactCategory maps a well-known output filename to its category.
func artifactCategory(name string) string {
	switch name {
	case exporter.CleanedCSVFile, exporter.CleanedXLSXFile:
		return CategoryCleaned
	case exporter.SummaryJSONFile:
		return CategorySummary
	case report.AgeChartFile, report.SalaryChartFile, report.CountryChartFile, report.CorrelationChartFile:
		return CategoryChart
	case report.DashboardFile:
		return CategoryDashboard
	case report.SummaryReportFile:
		return CategoryReport
	default:
		return CategoryOther
	}
}

// GetCleanedRecords reads the cleaned roster CSV and returns rows as
// column-keyed maps for the API, plus the total row count. A limit of
// zero or less returns everything from offset onward.
func (ds *DataService) GetCleanedRecords(ctx context.Context, limit, offset int) ([]map[string]string, int, error) {
	header, rows, err := ds.readCleanedCSV(ctx)
	if err != nil {
		return nil, 0, err
	}

	total := len(rows)
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}

	records := make([]map[string]string, 0, end-offset)
	for _, row := range rows[offset:end] {
		record := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(row) {
				record[col] = row[i]
			}
		}
		records = append(records, record)
	}

	return records, total, nil
}

// GetEmployeeRecords reads the cleaned roster CSV back into typed
// records. Cleaned files always carry the canonical column order, so
// lookups go through the header to stay robust against reordering.
func (ds *DataService) GetEmployeeRecords(ctx context.Context) ([]domain.EmployeeRecord, error) {
	header, rows, err := ds.readCleanedCSV(ctx)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		index[col] = i
	}
	for _, col := range domain.RosterColumns {
		if _, ok := index[col]; !ok {
			return nil, apperrors.NewSchemaError("cleaned roster is missing columns", []string{col})
		}
	}

	cell := func(row []string, col string) string {
		i := index[col]
		if i >= len(row) {
			return ""
		}
		return row[i]
	}

	records := make([]domain.EmployeeRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, domain.EmployeeRecord{
			Name:        cell(row, domain.ColumnName),
			Email:       cell(row, domain.ColumnEmail),
			PhoneNumber: cell(row, domain.ColumnPhoneNumber),
			Age:         cast.ToInt64(cell(row, domain.ColumnAge)),
			Country:     cell(row, domain.ColumnCountry),
			Salary:      cast.ToInt64(cell(row, domain.ColumnSalary)),
			JoiningDate: cleaning.ParseDate(cell(row, domain.ColumnJoiningDate)),
		})
	}

	return records, nil
}

// GetRosterStats computes descriptive statistics over the cleaned roster.
func (ds *DataService) GetRosterStats(ctx context.Context) (*domain.RosterStats, error) {
	records, err := ds.GetEmployeeRecords(ctx)
	if err != nil {
		return nil, err
	}

	rosterStats := stats.DescribeRoster(records)
	return &rosterStats, nil
}

// GetSummary reads the cleaning summary written by the last export.
func (ds *DataService) GetSummary(ctx context.Context) (*domain.CleaningSummary, error) {
	data, err := os.ReadFile(ds.paths.SummaryJSON)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundError("cleaning summary").WithContext("path", ds.paths.SummaryJSON)
		}
		return nil, apperrors.NewStorageError("failed to read cleaning summary", err)
	}

	var summary domain.CleaningSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		logDataError(ctx, "get_summary", "failed to parse cleaning summary",
			slog.String("path", ds.paths.SummaryJSON),
			slog.String("error", err.Error()))
		return nil, apperrors.NewParsingError("failed to parse cleaning summary", err)
	}

	return &summary, nil
}

// DownloadFile streams an artifact to the client. The filename may carry
// subdirectories; the resolved path must stay inside the directory the
// file type maps to.
func (ds *DataService) DownloadFile(ctx context.Context, w http.ResponseWriter, r *http.Request, fileType, filename string) error {
	var dir string
	switch fileType {
	case "output", "outputs", CategoryCleaned:
		dir = ds.paths.OutputDir
	case "visualizations", "charts", CategoryChart:
		dir = ds.paths.VisualizationsDir
	default:
		return ErrInvalidFileType
	}

	ds.logger.DebugContext(ctx, "serving artifact download",
		slog.String("file_type", fileType),
		slog.String("filename", filename),
		slog.String("directory", dir))

	cleanedFilename := filepath.FromSlash(filepath.Clean(filename))

	filePath := filepath.Join(dir, cleanedFilename)
	absFilePath, err := filepath.Abs(filePath)
	if err != nil {
		return ErrFileNotFound
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return ErrFileNotFound
	}

	// Boundary check on a separator so "output-evil" cannot pass as a
	// child of "output".
	if absFilePath != absDir && !strings.HasPrefix(absFilePath, absDir+string(os.PathSeparator)) {
		logDataError(ctx, "download_file", "attempted directory traversal",
			slog.String("requested_path", filename),
			slog.String("resolved_path", absFilePath),
			slog.String("base_dir", absDir))
		return ErrFileNotFound
	}

	info, err := os.Stat(absFilePath)
	if err != nil || info.IsDir() {
		return ErrFileNotFound
	}

	baseFilename := filepath.Base(cleanedFilename)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", baseFilename))
	w.Header().Set("Content-Type", contentTypeFor(baseFilename))
	http.ServeFile(w, r, absFilePath)
	return nil
}

// contentTypeFor picks the download content type from the artifact
// extension.
func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	case ".png":
		return "image/png"
	case ".html":
		return "text/html; charset=utf-8"
	case ".pdf":
		return "application/pdf"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

// readCleanedCSV opens the cleaned roster and returns its header and data
// rows. Cleaned files start with a UTF-8 BOM, which is stripped here.
func (ds *DataService) readCleanedCSV(ctx context.Context) ([]string, [][]string, error) {
	file, err := os.Open(ds.paths.CleanedCSV)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, apperrors.NewNotFoundError("cleaned roster").WithContext("path", ds.paths.CleanedCSV)
		}
		return nil, nil, apperrors.NewStorageError("failed to open cleaned roster", err)
	}
	defer file.Close()

	reader := csv.NewReader(stripBOM(file))
	reader.FieldsPerRecord = -1

	all, err := reader.ReadAll()
	if err != nil {
		logDataError(ctx, "read_cleaned_csv", "failed to parse cleaned roster",
			slog.String("path", ds.paths.CleanedCSV),
			slog.String("error", err.Error()))
		return nil, nil, apperrors.NewParsingError("failed to parse cleaned roster", err)
	}
	if len(all) == 0 {
		return nil, nil, apperrors.NewParsingError("cleaned roster is empty", nil)
	}

	return all[0], all[1:], nil
}

// stripBOM removes a leading UTF-8 byte order mark if present.
func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	head, err := br.Peek(3)
	if err == nil && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF {
		br.Discard(3)
	}
	return br
}
