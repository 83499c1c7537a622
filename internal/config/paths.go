package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all the application paths
// This is the single source of truth for ALL file paths in the application
type Paths struct {
	ExecutableDir     string
	WebDir            string
	StaticDir         string
	DataDir           string
	InputDir          string
	OutputDir         string
	VisualizationsDir string
	LogsDir           string

	// Audit trail database
	AuditDB string

	// Well-known output files
	CleanedCSV    string
	SummaryJSON   string
	DashboardHTML string
	ReportPDF     string

	// Well-known chart files
	AgeDistributionPNG    string
	SalaryDistributionPNG string
	CountryBreakdownPNG   string
	CorrelationHeatmapPNG string
}

// GetPaths returns the application paths relative to the executable location
// All paths are ALWAYS relative to the executable directory, never the current working directory
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %v", err)
	}

	// Resolve symlinks to get the actual executable location
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %v", err)
	}

	// Get the directory containing the executable
	exeDir := filepath.Dir(exe)

	// All paths are relative to the executable directory.
	// Directory structure:
	// dist/
	//   ├── data/
	//   │   ├── input/               (source roster files)
	//   │   ├── output/              (cleaned CSVs, dashboard, PDF)
	//   │   │   └── visualizations/  (chart images)
	//   │   └── audit.db             (cleaning audit trail)
	//   ├── logs/                    (application logs)
	//   └── web/                     (frontend assets)

	dataDir := filepath.Join(exeDir, "data")
	outputDir := filepath.Join(dataDir, "output")
	vizDir := filepath.Join(outputDir, "visualizations")

	paths := &Paths{
		ExecutableDir:     exeDir,
		DataDir:           dataDir,
		WebDir:            filepath.Join(exeDir, "web"),
		StaticDir:         filepath.Join(exeDir, "web", "static"),
		InputDir:          filepath.Join(dataDir, "input"),
		OutputDir:         outputDir,
		VisualizationsDir: vizDir,
		LogsDir:           filepath.Join(exeDir, "logs"),

		AuditDB: filepath.Join(dataDir, AuditDBName),

		// Output files (root of the output directory)
		CleanedCSV:    filepath.Join(outputDir, CleanedCSVName),
		SummaryJSON:   filepath.Join(outputDir, SummaryJSONName),
		DashboardHTML: filepath.Join(outputDir, DashboardHTMLName),
		ReportPDF:     filepath.Join(outputDir, ReportPDFName),

		// Chart files (visualizations subdirectory)
		AgeDistributionPNG:    filepath.Join(vizDir, AgeDistributionPNGName),
		SalaryDistributionPNG: filepath.Join(vizDir, SalaryDistributionPNGName),
		CountryBreakdownPNG:   filepath.Join(vizDir, CountryBreakdownPNGName),
		CorrelationHeatmapPNG: filepath.Join(vizDir, CorrelationHeatmapPNGName),
	}

	return paths, nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.InputDir,
		p.OutputDir,
		p.VisualizationsDir,
		p.LogsDir,
		p.WebDir,
		p.StaticDir,
	}

	logger := slog.Default()

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}

		if logger != nil {
			logger.Debug("Ensured directory exists",
				slog.String("directory", dir))
		}
	}

	return nil
}

// GetRelativePath returns a path relative to the executable directory
func (p *Paths) GetRelativePath(subpath string) string {
	return filepath.Join(p.ExecutableDir, subpath)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// GetInputPath returns the path for a source roster file
func (p *Paths) GetInputPath(filename string) string {
	return filepath.Join(p.InputDir, filename)
}

// GetOutputPath returns the path for a generated output file
func (p *Paths) GetOutputPath(filename string) string {
	return filepath.Join(p.OutputDir, filename)
}

// GetVisualizationPath returns the path for a chart image
func (p *Paths) GetVisualizationPath(filename string) string {
	return filepath.Join(p.VisualizationsDir, filename)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// GetWebFilePath returns the path to a web file
func (p *Paths) GetWebFilePath(filename string) string {
	return filepath.Join(p.WebDir, filename)
}

// GetStaticFilePath returns the path to a static file
func (p *Paths) GetStaticFilePath(filename string) string {
	return filepath.Join(p.StaticDir, filename)
}

// GetCleanedCSVPath returns the cleaned roster path for a given source file.
// The canonical output name is used for the default source so web and CLI
// runs land on the same file.
func (p *Paths) GetCleanedCSVPath(source string) string {
	base := filepath.Base(source)
	ext := filepath.Ext(base)
	stem := base[:len(base)-len(ext)]
	if stem == "" {
		return p.CleanedCSV
	}
	return filepath.Join(p.OutputDir, fmt.Sprintf("cleaned_%s.csv", stem))
}

// LogPathResolution logs detailed path resolution information for debugging
func (p *Paths) LogPathResolution() {
	logger := slog.Default()
	if logger == nil {
		return
	}

	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("executable", p.ExecutableDir),
			slog.String("data", p.DataDir),
			slog.String("input", p.InputDir),
			slog.String("output", p.OutputDir),
			slog.String("visualizations", p.VisualizationsDir),
			slog.String("logs", p.LogsDir),
			slog.String("web", p.WebDir),
		),
		slog.Group("output_files",
			slog.String("cleaned_csv", p.CleanedCSV),
			slog.String("summary_json", p.SummaryJSON),
			slog.String("dashboard_html", p.DashboardHTML),
			slog.String("report_pdf", p.ReportPDF),
			slog.String("audit_db", p.AuditDB),
		))
}
