package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"rosterkit/internal/audit"
	"rosterkit/internal/cleaning"
	"rosterkit/internal/config"
	"rosterkit/internal/exporter"
	"rosterkit/internal/infrastructure"
	"rosterkit/internal/ingest"
	"rosterkit/internal/validation"
)

func main() {
	source := flag.String("in", "", "source roster file, .csv or .xlsx (bare names resolve against data/input)")
	outDir := flag.String("out", "", "output directory for cleaned artifacts (defaults to data/output relative to executable)")
	runID := flag.String("run", "", "run identifier recorded in the audit trail (defaults to a generated UUID)")
	noAudit := flag.Bool("no-audit", false, "skip writing the audit trail for this run")
	flag.Parse()

	// Initialize paths first to get default directories
	paths, err := config.GetPaths()
	if err != nil {
		slog.Error("Failed to initialize paths", "error", err)
		os.Exit(1)
	}

	if *outDir == "" {
		*outDir = paths.OutputDir
	}

	// Ensure all required directories exist
	if err := paths.EnsureDirectories(); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		cfg = config.Default()
		cfg.Logging.FilePath = paths.GetLogPath("cleaner.log")
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	if *source == "" {
		fmt.Fprintf(os.Stderr, "usage: %s -in <roster.csv|roster.xlsx> [-out <dir>] [-run <id>] [-no-audit]\n", filepath.Base(os.Args[0]))
		logger.Error("No source roster file given")
		os.Exit(1)
	}

	resolved := resolveSource(paths, *source)

	logger.Info("Starting roster cleaning run",
		slog.String("source", resolved),
		slog.String("output_dir", *outDir),
		slog.String("executable_dir", paths.ExecutableDir))

	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateRosterSource(resolved); err != nil {
		logger.Error("Source validation failed", slog.String("error", err.Error()))
		slog.Error("Source validation failed", "error", err)
		os.Exit(1)
	}
	if err := validator.ValidateOutputDirectory(*outDir); err != nil {
		logger.Error("Output directory validation failed", slog.String("error", err.Error()))
		slog.Error("Output directory validation failed", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	loader := ingest.NewLoader(logger)
	table, err := loader.Load(ctx, resolved)
	if err != nil {
		logger.Error("Failed to load roster", slog.String("error", err.Error()))
		slog.Error("Failed to load roster", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d rows from %s\n", table.RowCount(), filepath.Base(resolved))

	cleaner := cleaning.NewCleaner(logger)
	result, err := cleaner.Clean(ctx, filepath.Base(resolved), table)
	if err != nil {
		logger.Error("Cleaning failed", slog.String("error", err.Error()))
		slog.Error("Cleaning failed", "error", err)
		os.Exit(1)
	}

	summary := result.Summary
	fmt.Printf("Removed %d duplicate rows\n", summary.DuplicatesRemoved)
	fmt.Printf("Imputed %d missing cells\n", summary.TotalImputed())
	fmt.Printf("Replaced %d invalid joining dates\n", summary.InvalidDates)

	id := *runID
	if id == "" {
		id = uuid.NewString()
	}

	if cfg.Audit.Enabled && !*noAudit {
		// The cleaned data is the primary artifact; a failed audit write
		// is reported but does not fail the run.
		if err := recordAuditTrail(ctx, cfg, paths, logger, id, filepath.Base(resolved), result.Changes); err != nil {
			logger.Warn("Audit trail write failed", slog.String("error", err.Error()))
			slog.Warn("Audit trail write failed", "error", err)
		} else {
			logger.Info("Audit trail recorded",
				slog.String("run_id", id),
				slog.Int("changes", len(result.Changes)))
		}
	}

	exp := exporter.NewRosterExporter(paths, logger)
	artifacts, err := exportArtifacts(exp, result, *outDir)
	if err != nil {
		logger.Error("Failed to export cleaned roster", slog.String("error", err.Error()))
		slog.Error("Failed to export cleaned roster", "error", err)
		os.Exit(1)
	}

	for _, artifact := range artifacts {
		logger.Info("Artifact written", slog.String("path", artifact))
	}

	fmt.Printf("Cleaning complete: %d rows written\n", len(result.Records))
}

// resolveSource maps the -in argument to the file the loader should open.
// Absolute paths and paths that already exist are used as given; anything
// else is treated as a file name inside the input directory.
func resolveSource(paths *config.Paths, source string) string {
	if filepath.IsAbs(source) {
		return source
	}
	if _, err := os.Stat(source); err == nil {
		return source
	}
	return paths.GetInputPath(source)
}

// recordAuditTrail opens the audit database configured in cfg and records
// the per-cell change list for one run.
func recordAuditTrail(ctx context.Context, cfg *config.Config, paths *config.Paths, logger *slog.Logger, runID, source string, changes []cleaning.CellChange) error {
	auditPath := cfg.Audit.Path
	if auditPath == "" {
		auditPath = paths.AuditDB
	} else if !filepath.IsAbs(auditPath) {
		auditPath = filepath.Join(paths.DataDir, auditPath)
	}

	recorder, err := audit.NewRecorder(auditPath, logger)
	if err != nil {
		return err
	}
	defer recorder.Close()

	return recorder.RecordRun(ctx, runID, source, changes)
}

// exportArtifacts writes the cleaned CSV, the XLSX workbook and the summary
// JSON into outDir and returns the paths it wrote, in that order.
func exportArtifacts(exp *exporter.RosterExporter, result *cleaning.Result, outDir string) ([]string, error) {
	csvPath := filepath.Join(outDir, exporter.CleanedCSVFile)
	if err := exp.ExportCleanedCSV(result.Records, csvPath); err != nil {
		return nil, err
	}

	xlsxPath := filepath.Join(outDir, exporter.CleanedXLSXFile)
	if err := exp.ExportXLSX(result.Records, xlsxPath); err != nil {
		return nil, err
	}

	summaryPath := filepath.Join(outDir, exporter.SummaryJSONFile)
	if err := exp.ExportSummaryJSON(result.Summary, summaryPath); err != nil {
		return nil, err
	}

	return []string{csvPath, xlsxPath, summaryPath}, nil
}
