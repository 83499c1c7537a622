package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"rosterkit/internal/config"
	"rosterkit/internal/infrastructure"
	"rosterkit/internal/report"
	"rosterkit/internal/services"
	"rosterkit/internal/stats"
	"rosterkit/internal/validation"
	"rosterkit/pkg/contracts/domain"
)

func main() {
	in := flag.String("in", "", "cleaned roster CSV (defaults to data/output/cleaned_data.csv relative to executable)")
	outDir := flag.String("out", "", "directory for generated report files (defaults to the directory of -in)")
	theme := flag.String("theme", "", "chart theme override, light or dark")
	noDashboard := flag.Bool("no-dashboard", false, "skip the interactive dashboard")
	noPDF := flag.Bool("no-pdf", false, "skip the PDF report")
	flag.Parse()

	// Initialize paths first to get default locations
	paths, err := config.GetPaths()
	if err != nil {
		slog.Error("Failed to initialize paths", "error", err)
		os.Exit(1)
	}

	if *in == "" {
		*in = paths.CleanedCSV
	}
	if *outDir == "" {
		*outDir = filepath.Dir(*in)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		cfg = config.Default()
		cfg.Logging.FilePath = paths.GetLogPath("reporter.log")
	}
	if *theme != "" {
		cfg.Report.Theme = *theme
	}
	if *noDashboard {
		cfg.Report.Dashboard = false
	}
	if *noPDF {
		cfg.Report.PDF = false
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	logger.Info("Starting report generation",
		slog.String("cleaned_csv", *in),
		slog.String("output_dir", *outDir),
		slog.String("theme", cfg.Report.Theme))

	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateCSVFile(*in); err != nil {
		logger.Error("Cleaned roster validation failed", slog.String("error", err.Error()))
		slog.Error("Cleaned roster validation failed", "error", err)
		os.Exit(1)
	}
	if err := validator.ValidateOutputDirectory(*outDir); err != nil {
		logger.Error("Output directory validation failed", slog.String("error", err.Error()))
		slog.Error("Output directory validation failed", "error", err)
		os.Exit(1)
	}

	reportingPaths := reportPaths(paths, *in, *outDir)

	ctx := context.Background()

	dataService, err := services.NewDataServiceWithPaths(cfg, reportingPaths, logger)
	if err != nil {
		logger.Error("Failed to initialize data service", slog.String("error", err.Error()))
		os.Exit(1)
	}

	records, err := dataService.GetEmployeeRecords(ctx)
	if err != nil {
		logger.Error("Failed to read cleaned roster", slog.String("error", err.Error()))
		slog.Error("Failed to read cleaned roster", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d cleaned records from %s\n", len(records), filepath.Base(*in))

	summary, err := dataService.GetSummary(ctx)
	if err != nil {
		logger.Warn("No cleaning summary next to the roster, reporting row counts only",
			slog.String("error", err.Error()))
		fallback := fallbackSummary(filepath.Base(*in), records)
		summary = &fallback
	}

	artifacts, err := buildReports(ctx, cfg, reportingPaths, logger, records, *summary)
	if err != nil {
		logger.Error("Report generation failed", slog.String("error", err.Error()))
		slog.Error("Report generation failed", "error", err)
		os.Exit(1)
	}

	for _, artifact := range artifacts {
		logger.Info("Report artifact written", slog.String("path", artifact))
		fmt.Printf("Wrote %s\n", artifact)
	}
	fmt.Printf("Report generation complete: %d files\n", len(artifacts))
}

// reportPaths maps the shared path layout onto the reporter's input and
// output flags. Charts land in a visualizations subdirectory of outDir,
// matching the layout cleaning runs produce, and the summary JSON is
// looked up next to the cleaned CSV.
func reportPaths(base *config.Paths, cleanedCSV, outDir string) *config.Paths {
	rp := *base
	rp.CleanedCSV = cleanedCSV
	rp.SummaryJSON = filepath.Join(filepath.Dir(cleanedCSV), config.SummaryJSONName)
	rp.OutputDir = outDir
	rp.VisualizationsDir = filepath.Join(outDir, "visualizations")
	rp.DashboardHTML = filepath.Join(outDir, config.DashboardHTMLName)
	rp.ReportPDF = filepath.Join(outDir, config.ReportPDFName)
	rp.AgeDistributionPNG = filepath.Join(rp.VisualizationsDir, config.AgeDistributionPNGName)
	rp.SalaryDistributionPNG = filepath.Join(rp.VisualizationsDir, config.SalaryDistributionPNGName)
	rp.CountryBreakdownPNG = filepath.Join(rp.VisualizationsDir, config.CountryBreakdownPNGName)
	rp.CorrelationHeatmapPNG = filepath.Join(rp.VisualizationsDir, config.CorrelationHeatmapPNGName)
	return &rp
}

// fallbackSummary stands in when a roster is reported without the summary
// of the cleaning run that produced it.
func fallbackSummary(source string, records []domain.EmployeeRecord) domain.CleaningSummary {
	return domain.CleaningSummary{
		Source:  source,
		RowsIn:  len(records),
		RowsOut: len(records),
	}
}

// buildReports renders every enabled report artifact and returns the paths
// written. An empty roster renders nothing; that mirrors how cleaning runs
// skip their reporting steps when there is no data.
func buildReports(ctx context.Context, cfg *config.Config, paths *config.Paths, logger *slog.Logger, records []domain.EmployeeRecord, summary domain.CleaningSummary) ([]string, error) {
	if len(records) == 0 {
		logger.Warn("No records to report, skipping charts, dashboard and PDF")
		return nil, nil
	}

	var artifacts []string

	renderer := report.NewChartRenderer(paths, cfg.Report, logger)
	chartPaths, err := renderer.RenderAll(ctx, records)
	if err != nil {
		return artifacts, fmt.Errorf("chart rendering failed: %w", err)
	}
	artifacts = append(artifacts, chartPaths...)

	if cfg.Report.Dashboard {
		builder := report.NewDashboardBuilder(paths, cfg.Report, logger)
		htmlPath, err := builder.Build(ctx, records)
		if err != nil {
			return artifacts, fmt.Errorf("dashboard build failed: %w", err)
		}
		artifacts = append(artifacts, htmlPath)
	}

	if cfg.Report.PDF {
		rosterStats := stats.DescribeRoster(records)
		builder := report.NewPDFBuilder(paths, cfg.Report, logger)
		pdfPath, err := builder.Build(ctx, summary, rosterStats, chartPaths)
		if err != nil {
			return artifacts, fmt.Errorf("pdf build failed: %w", err)
		}
		artifacts = append(artifacts, pdfPath)
	}

	return artifacts, nil
}
