package operations

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rosterkit/internal/audit"
	"rosterkit/internal/cleaning"
	"rosterkit/internal/config"
	apperrors "rosterkit/internal/errors"
	"rosterkit/internal/exporter"
	"rosterkit/internal/ingest"
	"rosterkit/internal/report"
)

func pipelinePaths(t *testing.T) *config.Paths {
	t.Helper()

	base := t.TempDir()
	return &config.Paths{
		DataDir:           base,
		InputDir:          filepath.Join(base, "input"),
		OutputDir:         filepath.Join(base, "output"),
		VisualizationsDir: filepath.Join(base, "output", "visualizations"),
	}
}

func pipelineReportConfig() config.ReportConfig {
	return config.ReportConfig{
		Theme:         "light",
		ChartWidth:    480,
		ChartHeight:   360,
		HistogramBins: 10,
		Dashboard:     true,
		PDF:           true,
	}
}

// writeRosterFixture writes a small dirty roster: one exact duplicate,
// a missing age, a missing name, a missing salary and one unparseable
// joining date.
func writeRosterFixture(t *testing.T, path string) {
	t.Helper()

	rows := []string{
		"Name,Email,PhoneNumber,Age,Country,Salary,JoiningDate",
		"Alice Smith,alice@corp.test,555-0100,30,Ireland,52000,2023-05-14",
		"Bob Jones,bob@corp.test,555-0101,,Brazil,48000,2022-11-02",
		"Alice Smith,alice@corp.test,555-0100,30,Ireland,52000,2023-05-14",
		",carol@corp.test,555-0102,40,Japan,61000,not-a-date",
		"Dan Murphy,dan@corp.test,555-0103,35,Ireland,,2021-07-19",
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(rows, "\n")+"\n"), 0644))
}

func newPipelineRunner(t *testing.T, paths *config.Paths, cfg config.ReportConfig, recorder *audit.Recorder) *Runner {
	t.Helper()

	logger := discardLogger()
	runner := NewRunner(nil, nil, nil, logger)
	t.Cleanup(runner.GetBroadcaster().Stop)

	opts := &Options{Broadcaster: runner.GetBroadcaster()}
	require.NoError(t, runner.Register(NewIngestStep(ingest.NewLoader(logger), logger, opts)))
	require.NoError(t, runner.Register(NewCleanStep(cleaning.NewCleaner(logger), recorder, logger, opts)))
	require.NoError(t, runner.Register(NewExportStep(exporter.NewRosterExporter(paths, logger), paths, logger, opts)))
	require.NoError(t, runner.Register(NewChartsStep(report.NewChartRenderer(paths, cfg, logger), logger, opts)))
	require.NoError(t, runner.Register(NewDashboardStep(report.NewDashboardBuilder(paths, cfg, logger), cfg.Dashboard, logger, opts)))
	require.NoError(t, runner.Register(NewPDFStep(report.NewPDFBuilder(paths, cfg, logger), cfg.PDF, logger, opts)))
	return runner
}

// readCleanedLines strips the UTF-8 BOM and splits the cleaned CSV into
// lines for row-level assertions.
func readCleanedLines(t *testing.T, path string) []string {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := strings.TrimPrefix(string(data), "\xef\xbb\xbf")
	return strings.Split(strings.TrimSpace(text), "\n")
}

func TestPipelineFullRun(t *testing.T) {
	paths := pipelinePaths(t)
	cfg := pipelineReportConfig()
	source := paths.GetInputPath("roster.csv")
	writeRosterFixture(t, source)

	runner := newPipelineRunner(t, paths, cfg, audit.NewDisabledRecorder())
	resp, err := runner.Run(context.Background(), OperationRequest{ID: "pipeline-1", Source: source})
	require.NoError(t, err)

	assert.Equal(t, OperationStatusCompleted, resp.Status)
	for _, id := range []string{StepIDIngest, StepIDClean, StepIDExport, StepIDCharts, StepIDDashboard, StepIDPDF} {
		require.Contains(t, resp.Steps, id)
		assert.Equal(t, StepStatusCompleted, resp.Steps[id].Status, id)
	}

	require.NotNil(t, resp.Summary)
	assert.Equal(t, 5, resp.Summary.RowsIn)
	assert.Equal(t, 4, resp.Summary.RowsOut)
	assert.Equal(t, 1, resp.Summary.DuplicatesRemoved)
	assert.Equal(t, 1, resp.Summary.InvalidDates)
	assert.Equal(t, 3, resp.Summary.TotalImputed())

	wantArtifacts := []string{
		ArtifactCleanedCSV, ArtifactCleanedXLSX, ArtifactSummaryJSON,
		"age_distribution", "salary_distribution", "country_breakdown", "correlation_heatmap",
		ArtifactDashboard, ArtifactPDFReport,
	}
	require.Len(t, resp.Artifacts, len(wantArtifacts))
	for _, name := range wantArtifacts {
		path, ok := resp.Artifacts[name]
		require.True(t, ok, name)
		info, err := os.Stat(path)
		require.NoError(t, err, name)
		assert.Greater(t, info.Size(), int64(0), name)
	}

	// Duplicates drop, the survivors keep input order and every hole is
	// filled: Bob gets the mean age, Carol the name default and the
	// invalid date marker, Dan the mean salary rounded half away.
	lines := readCleanedLines(t, resp.Artifacts[ArtifactCleanedCSV])
	require.Len(t, lines, 5)
	assert.Equal(t, "Name,Email,PhoneNumber,Age,Country,Salary,JoiningDate", lines[0])
	assert.Equal(t, "Alice Smith,alice@corp.test,555-0100,30,Ireland,52000,2023-05-14", lines[1])
	assert.Equal(t, "Bob Jones,bob@corp.test,555-0101,35,Brazil,48000,2022-11-02", lines[2])
	assert.Equal(t, "Unknown,carol@corp.test,555-0102,40,Japan,61000,invalid", lines[3])
	assert.Equal(t, "Dan Murphy,dan@corp.test,555-0103,35,Ireland,53667,2021-07-19", lines[4])

	rows, ok := resp.Steps[StepIDClean].Metadata["rows_out"]
	require.True(t, ok)
	assert.Equal(t, 4, rows)
}

func TestPipelineSourceMissing(t *testing.T) {
	paths := pipelinePaths(t)
	runner := newPipelineRunner(t, paths, pipelineReportConfig(), audit.NewDisabledRecorder())

	resp, err := runner.Run(context.Background(), OperationRequest{Source: paths.GetInputPath("absent.csv")})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrTypeNotFound, appErr.Type)

	assert.Equal(t, OperationStatusFailed, resp.Status)
	assert.Equal(t, StepStatusFailed, resp.Steps[StepIDIngest].Status)
	for _, id := range []string{StepIDClean, StepIDExport, StepIDCharts, StepIDDashboard, StepIDPDF} {
		assert.Equal(t, StepStatusSkipped, resp.Steps[id].Status, id)
	}
	assert.Empty(t, resp.Artifacts)
}

func TestPipelineEmptyRoster(t *testing.T) {
	paths := pipelinePaths(t)
	source := paths.GetInputPath("empty.csv")
	require.NoError(t, os.MkdirAll(filepath.Dir(source), 0755))
	require.NoError(t, os.WriteFile(source, []byte("Name,Email,PhoneNumber,Age,Country,Salary,JoiningDate\n"), 0644))

	runner := newPipelineRunner(t, paths, pipelineReportConfig(), audit.NewDisabledRecorder())
	resp, err := runner.Run(context.Background(), OperationRequest{ID: "pipeline-empty", Source: source})
	require.NoError(t, err)

	// A header-only roster cleans and exports, but there is nothing to
	// chart or report on.
	assert.Equal(t, OperationStatusCompleted, resp.Status)
	assert.Equal(t, StepStatusCompleted, resp.Steps[StepIDClean].Status)
	assert.Equal(t, StepStatusCompleted, resp.Steps[StepIDExport].Status)
	assert.Equal(t, StepStatusSkipped, resp.Steps[StepIDCharts].Status)
	assert.Equal(t, "no records to chart", resp.Steps[StepIDCharts].Message)
	assert.Equal(t, StepStatusSkipped, resp.Steps[StepIDDashboard].Status)
	assert.Equal(t, StepStatusSkipped, resp.Steps[StepIDPDF].Status)

	require.NotNil(t, resp.Summary)
	assert.Zero(t, resp.Summary.RowsIn)
	assert.Zero(t, resp.Summary.RowsOut)

	lines := readCleanedLines(t, resp.Artifacts[ArtifactCleanedCSV])
	assert.Len(t, lines, 1)
	assert.NotContains(t, resp.Artifacts, ArtifactDashboard)
	assert.NotContains(t, resp.Artifacts, ArtifactPDFReport)

	snapshot, ok := runner.GetBroadcaster().GetSnapshot("pipeline-empty")
	require.True(t, ok)
	assert.Equal(t, "completed", snapshot.Status)
	assert.Equal(t, 100, snapshot.Progress)
}

func TestPipelineReportsDisabled(t *testing.T) {
	paths := pipelinePaths(t)
	cfg := pipelineReportConfig()
	cfg.Dashboard = false
	cfg.PDF = false
	source := paths.GetInputPath("roster.csv")
	writeRosterFixture(t, source)

	runner := newPipelineRunner(t, paths, cfg, audit.NewDisabledRecorder())
	resp, err := runner.Run(context.Background(), OperationRequest{Source: source})
	require.NoError(t, err)

	assert.Equal(t, OperationStatusCompleted, resp.Status)
	assert.Equal(t, StepStatusCompleted, resp.Steps[StepIDCharts].Status)
	assert.Equal(t, StepStatusSkipped, resp.Steps[StepIDDashboard].Status)
	assert.Equal(t, "dashboard generation disabled", resp.Steps[StepIDDashboard].Message)
	assert.Equal(t, StepStatusSkipped, resp.Steps[StepIDPDF].Status)
	assert.Equal(t, "PDF report disabled", resp.Steps[StepIDPDF].Message)

	assert.NotContains(t, resp.Artifacts, ArtifactDashboard)
	assert.NotContains(t, resp.Artifacts, ArtifactPDFReport)
	assert.Contains(t, resp.Artifacts, "age_distribution")
}

func TestPipelineAuditTrail(t *testing.T) {
	paths := pipelinePaths(t)
	source := paths.GetInputPath("roster.csv")
	writeRosterFixture(t, source)

	recorder, err := audit.NewRecorder(filepath.Join(t.TempDir(), "audit.db"), discardLogger())
	require.NoError(t, err)
	defer recorder.Close()

	runner := newPipelineRunner(t, paths, pipelineReportConfig(), recorder)
	resp, err := runner.Run(context.Background(), OperationRequest{ID: "pipeline-audit", Source: source})
	require.NoError(t, err)
	assert.Equal(t, OperationStatusCompleted, resp.Status)

	ctx := context.Background()
	ops, err := recorder.Operations(ctx, "pipeline-audit")
	require.NoError(t, err)
	assert.Len(t, ops, 4)

	counts, err := recorder.CountByReason(ctx, "pipeline-audit")
	require.NoError(t, err)
	assert.Equal(t, 3, counts[cleaning.ReasonMissing])
	assert.Equal(t, 1, counts[cleaning.ReasonInvalidDate])
}
