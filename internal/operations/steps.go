package operations

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"rosterkit/internal/audit"
	"rosterkit/internal/cleaning"
	"rosterkit/internal/config"
	"rosterkit/internal/exporter"
	"rosterkit/internal/infrastructure"
	"rosterkit/internal/ingest"
	"rosterkit/internal/report"
	"rosterkit/internal/stats"
)

// IngestStep loads the source roster file into a raw table
type IngestStep struct {
	BaseStep
	loader  *ingest.Loader
	logger  *slog.Logger
	options *Options
}

// NewIngestStep creates the ingest step
func NewIngestStep(loader *ingest.Loader, logger *slog.Logger, options *Options) *IngestStep {
	if options == nil {
		options = &Options{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &IngestStep{
		BaseStep: NewBaseStep(StepIDIngest, StepNameIngest),
		loader:   loader,
		logger:   logger.With(slog.String("step", StepIDIngest)),
		options:  options,
	}
}

// Validate checks that a source file was requested
func (s *IngestStep) Validate(state *OperationState) error {
	if state.Source == "" {
		return NewValidationError(s.ID(), "no source file specified")
	}
	return nil
}

// Execute loads the roster and stores the raw table on the state
func (s *IngestStep) Execute(ctx context.Context, state *OperationState) error {
	step := state.GetStep(s.ID())

	progress(s.options, state.ID, step, 10, fmt.Sprintf("Loading %s", filepath.Base(state.Source)))

	table, err := s.loader.Load(ctx, state.Source)
	if err != nil {
		return err
	}
	state.SetTable(table)

	step.SetMetadata("rows", table.RowCount())
	step.SetMetadata("columns", len(table.Header))

	progress(s.options, state.ID, step, 100, fmt.Sprintf("Loaded %d rows", table.RowCount()))
	return nil
}

// CleanStep runs the cleaning transform and records the audit trail
type CleanStep struct {
	BaseStep
	cleaner  *cleaning.Cleaner
	recorder *audit.Recorder
	logger   *slog.Logger
	options  *Options
}

// NewCleanStep creates the cleaning step. The recorder may be nil or
// disabled; the audit trail is optional.
func NewCleanStep(cleaner *cleaning.Cleaner, recorder *audit.Recorder, logger *slog.Logger, options *Options) *CleanStep {
	if options == nil {
		options = &Options{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &CleanStep{
		BaseStep: NewBaseStep(StepIDClean, StepNameClean),
		cleaner:  cleaner,
		recorder: recorder,
		logger:   logger.With(slog.String("step", StepIDClean)),
		options:  options,
	}
}

// Validate checks that the ingest step produced a table
func (s *CleanStep) Validate(state *OperationState) error {
	if state.GetTable() == nil {
		return NewValidationError(s.ID(), "no table loaded")
	}
	return nil
}

// Execute cleans the table, stores the result and writes the audit trail
func (s *CleanStep) Execute(ctx context.Context, state *OperationState) error {
	step := state.GetStep(s.ID())

	progress(s.options, state.ID, step, 10, "Cleaning roster")

	result, err := s.cleaner.Clean(ctx, state.Source, state.GetTable())
	if err != nil {
		return err
	}
	state.SetResult(result)

	summary := result.Summary
	infrastructure.RecordCleaningMetrics(ctx, s.options.Metrics, summary.Source,
		int64(summary.RowsIn), int64(summary.RowsOut),
		int64(summary.DuplicatesRemoved), int64(summary.TotalImputed()),
		int64(summary.InvalidDates), summary.Duration())

	metadata := map[string]interface{}{
		"rows_in":            summary.RowsIn,
		"rows_out":           summary.RowsOut,
		"duplicates_removed": summary.DuplicatesRemoved,
		"cells_imputed":      summary.TotalImputed(),
		"invalid_dates":      summary.InvalidDates,
	}
	for k, v := range metadata {
		step.SetMetadata(k, v)
	}

	if s.recorder != nil && s.recorder.Enabled() && len(result.Changes) > 0 {
		progress(s.options, state.ID, step, 80, "Recording audit trail")
		if err := s.recorder.RecordRun(ctx, state.ID, state.Source, result.Changes); err != nil {
			// The cleaned data is the primary artifact; a failed audit
			// write is reported but does not fail the run.
			s.logger.ErrorContext(ctx, "audit trail write failed",
				slog.String("operation_id", state.ID),
				slog.String("error", err.Error()))
			step.SetMetadata("audit_error", err.Error())
		}
	}

	step.UpdateProgress(100, "Cleaning completed")
	if s.options.Broadcaster != nil {
		s.options.Broadcaster.UpdateStepWithMetadata(state.ID, s.ID(), 100,
			fmt.Sprintf("Cleaned %d rows", summary.RowsOut), metadata)
	}
	return nil
}

// ExportStep persists the cleaned roster and the run summary
type ExportStep struct {
	BaseStep
	exporter *exporter.RosterExporter
	paths    *config.Paths
	logger   *slog.Logger
	options  *Options
}

// NewExportStep creates the export step
func NewExportStep(exp *exporter.RosterExporter, paths *config.Paths, logger *slog.Logger, options *Options) *ExportStep {
	if options == nil {
		options = &Options{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ExportStep{
		BaseStep: NewBaseStep(StepIDExport, StepNameExport),
		exporter: exp,
		paths:    paths,
		logger:   logger.With(slog.String("step", StepIDExport)),
		options:  options,
	}
}

// Validate checks that the cleaning step produced a result
func (s *ExportStep) Validate(state *OperationState) error {
	if state.GetResult() == nil {
		return NewValidationError(s.ID(), "no cleaning result to export")
	}
	return nil
}

// Execute writes the cleaned CSV, the XLSX workbook and the summary JSON.
// A header-only roster still exports; the files simply carry no data rows.
func (s *ExportStep) Execute(ctx context.Context, state *OperationState) error {
	step := state.GetStep(s.ID())
	result := state.GetResult()

	csvPath := s.paths.GetOutputPath(exporter.CleanedCSVFile)
	progress(s.options, state.ID, step, 10, "Writing cleaned CSV")
	if err := s.exporter.ExportCleanedCSV(result.Records, csvPath); err != nil {
		return err
	}
	state.AddArtifact(ArtifactCleanedCSV, csvPath)

	xlsxPath := s.paths.GetOutputPath(exporter.CleanedXLSXFile)
	progress(s.options, state.ID, step, 45, "Writing cleaned workbook")
	if err := s.exporter.ExportXLSX(result.Records, xlsxPath); err != nil {
		return err
	}
	state.AddArtifact(ArtifactCleanedXLSX, xlsxPath)

	summaryPath := s.paths.GetOutputPath(exporter.SummaryJSONFile)
	progress(s.options, state.ID, step, 80, "Writing cleaning summary")
	if err := s.exporter.ExportSummaryJSON(result.Summary, summaryPath); err != nil {
		return err
	}
	state.AddArtifact(ArtifactSummaryJSON, summaryPath)

	progress(s.options, state.ID, step, 100, fmt.Sprintf("Exported %d rows", len(result.Records)))
	return nil
}

// ChartsStep renders the static distribution charts
type ChartsStep struct {
	BaseStep
	renderer *report.ChartRenderer
	logger   *slog.Logger
	options  *Options
}

// NewChartsStep creates the chart rendering step
func NewChartsStep(renderer *report.ChartRenderer, logger *slog.Logger, options *Options) *ChartsStep {
	if options == nil {
		options = &Options{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ChartsStep{
		BaseStep: NewBaseStep(StepIDCharts, StepNameCharts),
		renderer: renderer,
		logger:   logger.With(slog.String("step", StepIDCharts)),
		options:  options,
	}
}

// Validate skips chart rendering when the cleaned roster is empty
func (s *ChartsStep) Validate(state *OperationState) error {
	result := state.GetResult()
	if result == nil {
		return NewValidationError(s.ID(), "no cleaned records available")
	}
	if len(result.Records) == 0 {
		return NewSkipError(s.ID(), "no records to chart")
	}
	return nil
}

// Execute renders all chart PNGs and stores their paths on the state
func (s *ChartsStep) Execute(ctx context.Context, state *OperationState) error {
	step := state.GetStep(s.ID())

	progress(s.options, state.ID, step, 10, "Rendering charts")

	start := time.Now()
	chartPaths, err := s.renderer.RenderAll(ctx, state.Records())
	if err != nil {
		return err
	}
	duration := time.Since(start)

	state.SetChartPaths(chartPaths)
	for _, path := range chartPaths {
		state.AddArtifact(chartName(path), path)
		infrastructure.RecordChartRendered(ctx, s.options.Metrics, chartName(path), duration)
	}

	progress(s.options, state.ID, step, 100, fmt.Sprintf("Rendered %d charts", len(chartPaths)))
	return nil
}

// chartName derives the artifact name from a chart file path
func chartName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// DashboardStep builds the interactive HTML dashboard
type DashboardStep struct {
	BaseStep
	builder *report.DashboardBuilder
	enabled bool
	logger  *slog.Logger
	options *Options
}

// NewDashboardStep creates the dashboard step. The enabled flag comes
// from the report configuration.
func NewDashboardStep(builder *report.DashboardBuilder, enabled bool, logger *slog.Logger, options *Options) *DashboardStep {
	if options == nil {
		options = &Options{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &DashboardStep{
		BaseStep: NewBaseStep(StepIDDashboard, StepNameDashboard),
		builder:  builder,
		enabled:  enabled,
		logger:   logger.With(slog.String("step", StepIDDashboard)),
		options:  options,
	}
}

// Validate skips the dashboard when disabled or when there is nothing to show
func (s *DashboardStep) Validate(state *OperationState) error {
	if !s.enabled {
		return NewSkipError(s.ID(), "dashboard generation disabled")
	}
	result := state.GetResult()
	if result == nil {
		return NewValidationError(s.ID(), "no cleaned records available")
	}
	if len(result.Records) == 0 {
		return NewSkipError(s.ID(), "no records to report")
	}
	return nil
}

// Execute builds the dashboard HTML file
func (s *DashboardStep) Execute(ctx context.Context, state *OperationState) error {
	step := state.GetStep(s.ID())

	progress(s.options, state.ID, step, 10, "Building dashboard")

	start := time.Now()
	path, err := s.builder.Build(ctx, state.Records())
	if err != nil {
		return err
	}
	state.AddArtifact(ArtifactDashboard, path)
	infrastructure.RecordReportGenerated(ctx, s.options.Metrics, "dashboard", time.Since(start))

	progress(s.options, state.ID, step, 100, "Dashboard generated")
	return nil
}

// PDFStep builds the PDF summary report
type PDFStep struct {
	BaseStep
	builder *report.PDFBuilder
	enabled bool
	logger  *slog.Logger
	options *Options
}

// NewPDFStep creates the PDF report step. The enabled flag comes from
// the report configuration.
func NewPDFStep(builder *report.PDFBuilder, enabled bool, logger *slog.Logger, options *Options) *PDFStep {
	if options == nil {
		options = &Options{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PDFStep{
		BaseStep: NewBaseStep(StepIDPDF, StepNamePDF),
		builder:  builder,
		enabled:  enabled,
		logger:   logger.With(slog.String("step", StepIDPDF)),
		options:  options,
	}
}

// Validate skips the PDF when disabled or when there is nothing to report
func (s *PDFStep) Validate(state *OperationState) error {
	if !s.enabled {
		return NewSkipError(s.ID(), "PDF report disabled")
	}
	result := state.GetResult()
	if result == nil {
		return NewValidationError(s.ID(), "no cleaned records available")
	}
	if len(result.Records) == 0 {
		return NewSkipError(s.ID(), "no records to report")
	}
	return nil
}

// Execute computes the descriptive statistics and builds the PDF report
func (s *PDFStep) Execute(ctx context.Context, state *OperationState) error {
	step := state.GetStep(s.ID())
	result := state.GetResult()

	progress(s.options, state.ID, step, 10, "Computing statistics")
	rosterStats := stats.DescribeRoster(result.Records)
	state.SetStats(&rosterStats)

	progress(s.options, state.ID, step, 40, "Building PDF report")
	start := time.Now()
	path, err := s.builder.Build(ctx, result.Summary, rosterStats, state.GetChartPaths())
	if err != nil {
		return err
	}
	state.AddArtifact(ArtifactPDFReport, path)
	infrastructure.RecordReportGenerated(ctx, s.options.Metrics, "pdf", time.Since(start))

	progress(s.options, state.ID, step, 100, "PDF report generated")
	return nil
}
