package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rosterkit/internal/config"
	apperrors "rosterkit/internal/errors"
	"rosterkit/internal/operations"
	"rosterkit/pkg/contracts/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testPaths builds the production directory layout under a temp root.
func testPaths(t *testing.T) *config.Paths {
	t.Helper()

	base := t.TempDir()
	dataDir := filepath.Join(base, "data")
	outputDir := filepath.Join(dataDir, "output")
	vizDir := filepath.Join(outputDir, "visualizations")

	paths := &config.Paths{
		ExecutableDir:     base,
		WebDir:            filepath.Join(base, "web"),
		StaticDir:         filepath.Join(base, "web", "static"),
		DataDir:           dataDir,
		InputDir:          filepath.Join(dataDir, "input"),
		OutputDir:         outputDir,
		VisualizationsDir: vizDir,
		LogsDir:           filepath.Join(base, "logs"),

		AuditDB: filepath.Join(dataDir, config.AuditDBName),

		CleanedCSV:    filepath.Join(outputDir, config.CleanedCSVName),
		SummaryJSON:   filepath.Join(outputDir, config.SummaryJSONName),
		DashboardHTML: filepath.Join(outputDir, config.DashboardHTMLName),
		ReportPDF:     filepath.Join(outputDir, config.ReportPDFName),

		AgeDistributionPNG:    filepath.Join(vizDir, config.AgeDistributionPNGName),
		SalaryDistributionPNG: filepath.Join(vizDir, config.SalaryDistributionPNGName),
		CountryBreakdownPNG:   filepath.Join(vizDir, config.CountryBreakdownPNGName),
		CorrelationHeatmapPNG: filepath.Join(vizDir, config.CorrelationHeatmapPNGName),
	}
	require.NoError(t, paths.EnsureDirectories())
	return paths
}

func testReportConfig() config.ReportConfig {
	return config.ReportConfig{
		Theme:         "light",
		ChartWidth:    480,
		ChartHeight:   360,
		HistogramBins: 5,
		Dashboard:     true,
		PDF:           true,
	}
}

// newMockHub returns a hub that tolerates any broadcast. Tests that
// assert on specific broadcasts register their own expectations instead.
func newMockHub() *MockOperationHub {
	hub := new(MockOperationHub)
	hub.On("BroadcastUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return().Maybe()
	hub.On("BroadcastRefresh", mock.Anything, mock.Anything).Return().Maybe()
	hub.On("BroadcastError", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return().Maybe()
	return hub
}

func newTestOperationsService(t *testing.T, paths *config.Paths, cfg *config.Config, hub *MockOperationHub) *OperationsService {
	t.Helper()
	svc, err := NewOperationsServiceWithPaths(hub, cfg, paths, nil, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { svc.Shutdown(context.Background()) })
	return svc
}

// testRosterCSV carries one exact duplicate, six missing cells and one
// unparseable joining date. Cleaning keeps three rows.
const testRosterCSV = `Name,Email,PhoneNumber,Age,Country,Salary,JoiningDate
Alice,alice@example.com,1001,30,Iraq,1000,2024-01-15
Alice,alice@example.com,1001,30,Iraq,1000,2024-01-15
Bob,,,40,,2000,not-a-date
,carol@example.com,1003,,USA,,2023-06-01
`

func writeSourceRoster(t *testing.T, paths *config.Paths, name string) string {
	t.Helper()
	path := paths.GetInputPath(name)
	require.NoError(t, os.WriteFile(path, []byte(testRosterCSV), 0o644))
	return path
}

func TestNewOperationsServiceRegistersSteps(t *testing.T) {
	paths := testPaths(t)
	cfg := &config.Config{Report: testReportConfig()}
	svc := newTestOperationsService(t, paths, cfg, newMockHub())

	assert.Equal(t, []string{
		operations.StepIDIngest,
		operations.StepIDClean,
		operations.StepIDExport,
		operations.StepIDCharts,
		operations.StepIDDashboard,
		operations.StepIDPDF,
	}, svc.StepIDs())
	assert.False(t, svc.AuditRecorder().Enabled())
	assert.Equal(t, 0, svc.ActiveCount())
}

func TestOperationsServiceTriggerValidation(t *testing.T) {
	paths := testPaths(t)
	cfg := &config.Config{Report: testReportConfig()}
	svc := newTestOperationsService(t, paths, cfg, newMockHub())

	t.Run("empty source", func(t *testing.T) {
		_, err := svc.Trigger(context.Background(), TriggerRequest{})
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
	})

	t.Run("missing source file", func(t *testing.T) {
		_, err := svc.Trigger(context.Background(), TriggerRequest{Source: "absent.csv"})
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
	})
}

func TestOperationsServiceTriggerRejectsDuplicateID(t *testing.T) {
	paths := testPaths(t)
	cfg := &config.Config{Report: testReportConfig()}
	svc := newTestOperationsService(t, paths, cfg, newMockHub())
	writeSourceRoster(t, paths, "employees.csv")

	svc.mu.Lock()
	svc.cancels["dup-1"] = func() {}
	svc.mu.Unlock()

	_, err := svc.Trigger(context.Background(), TriggerRequest{ID: "dup-1", Source: "employees.csv"})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestOperationsServiceRunsPipeline(t *testing.T) {
	paths := testPaths(t)
	cfg := &config.Config{
		Report: testReportConfig(),
		Audit:  config.AuditConfig{Enabled: true, Path: paths.AuditDB},
	}

	hub := new(MockOperationHub)
	hub.On("BroadcastUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return().Maybe()
	hub.On("BroadcastError", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return().Maybe()
	refreshed := make(chan []string, 1)
	hub.On("BroadcastRefresh", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		select {
		case refreshed <- args.Get(1).([]string):
		default:
		}
	}).Return()

	svc := newTestOperationsService(t, paths, cfg, hub)
	writeSourceRoster(t, paths, "employees.csv")

	ctx := context.Background()
	id, err := svc.Trigger(ctx, TriggerRequest{Source: "employees.csv"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.Eventually(t, func() bool {
		snap, err := svc.Status(ctx, id)
		return err == nil && snap.Status == "completed"
	}, 60*time.Second, 50*time.Millisecond, "pipeline did not complete")

	var components []string
	select {
	case components = <-refreshed:
	case <-time.After(5 * time.Second):
		t.Fatal("no refresh broadcast after completion")
	}
	assert.Contains(t, components, operations.ArtifactCleanedCSV)
	assert.Contains(t, components, operations.ArtifactSummaryJSON)
	assert.Contains(t, components, operations.ArtifactDashboard)
	assert.Contains(t, components, operations.ArtifactPDFReport)

	for _, artifact := range []string{
		paths.CleanedCSV,
		filepath.Join(paths.OutputDir, config.CleanedCSVName),
		paths.SummaryJSON,
		paths.DashboardHTML,
		paths.ReportPDF,
		paths.AgeDistributionPNG,
		paths.SalaryDistributionPNG,
		paths.CountryBreakdownPNG,
		paths.CorrelationHeatmapPNG,
	} {
		assert.FileExists(t, artifact)
	}

	data, err := os.ReadFile(paths.SummaryJSON)
	require.NoError(t, err)
	var summary domain.CleaningSummary
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, 4, summary.RowsIn)
	assert.Equal(t, 3, summary.RowsOut)
	assert.Equal(t, 1, summary.DuplicatesRemoved)
	assert.Equal(t, 1, summary.InvalidDates)

	counts, err := svc.AuditRecorder().CountByReason(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 6, counts["missing_value"])
	assert.Equal(t, 1, counts["invalid_date"])

	metrics := svc.Metrics(ctx)
	assert.Equal(t, 1, metrics.Total)
	assert.Equal(t, 1, metrics.Completed)
	assert.Zero(t, metrics.Failed)

	assert.Len(t, svc.List(ctx), 1)
	assert.Len(t, svc.ListByStatus(ctx, "completed"), 1)
	assert.Empty(t, svc.ListByStatus(ctx, "failed"))

	require.Eventually(t, func() bool { return svc.ActiveCount() == 0 },
		5*time.Second, 20*time.Millisecond)
	hub.AssertNumberOfCalls(t, "BroadcastError", 0)

	svc.Cleanup(ctx, 0)
	assert.Empty(t, svc.List(ctx))
}

func TestOperationsServiceStatusUnknown(t *testing.T) {
	paths := testPaths(t)
	cfg := &config.Config{Report: testReportConfig()}
	svc := newTestOperationsService(t, paths, cfg, newMockHub())

	_, err := svc.Status(context.Background(), "")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))

	_, err = svc.Status(context.Background(), "ghost")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))

	assert.Empty(t, svc.List(context.Background()))
}

func TestOperationsServiceCancel(t *testing.T) {
	paths := testPaths(t)
	cfg := &config.Config{Report: testReportConfig()}
	svc := newTestOperationsService(t, paths, cfg, newMockHub())

	err := svc.Cancel(context.Background(), "")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))

	err = svc.Cancel(context.Background(), "ghost")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))

	cancelled := false
	svc.mu.Lock()
	svc.cancels["op-1"] = func() { cancelled = true }
	svc.mu.Unlock()

	require.NoError(t, svc.Cancel(context.Background(), "op-1"))
	assert.True(t, cancelled)
}

func TestOperationsServiceCancelAll(t *testing.T) {
	paths := testPaths(t)
	cfg := &config.Config{Report: testReportConfig()}
	svc := newTestOperationsService(t, paths, cfg, newMockHub())

	assert.Equal(t, 0, svc.CancelAll(context.Background()))

	var fired int
	svc.mu.Lock()
	svc.cancels["op-1"] = func() { fired++ }
	svc.cancels["op-2"] = func() { fired++ }
	svc.mu.Unlock()

	assert.Equal(t, 2, svc.CancelAll(context.Background()))
	assert.Equal(t, 2, fired)
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "NOT_FOUND", errorCode(apperrors.NewNotFoundError("source file")))
	assert.Equal(t, "SCHEMA", errorCode(operations.NewExecutionError("ingest",
		apperrors.NewSchemaError("missing columns", []string{"Age"}))))
	assert.Equal(t, "STORAGE", errorCode(assert.AnError))
	assert.Equal(t, "STORAGE", errorCode(nil))
}
