package report

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rosterkit/internal/errors"
	"rosterkit/internal/stats"
	"rosterkit/pkg/contracts/domain"
)

func pdfTestSummary() domain.CleaningSummary {
	return domain.CleaningSummary{
		Source:            "roster.csv",
		RowsIn:            8,
		RowsOut:           6,
		DuplicatesRemoved: 2,
		ImputedCells:      map[string]int{domain.ColumnAge: 1, domain.ColumnName: 2},
		InvalidDates:      1,
		FillValues:        map[string]string{domain.ColumnAge: "35"},
		StartedAt:         time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC),
		CompletedAt:       time.Date(2025, time.June, 1, 10, 0, 1, 0, time.UTC),
	}
}

func TestPDFBuilderBuild(t *testing.T) {
	paths := chartTestPaths(t)
	cfg := chartTestConfig()
	records := chartTestRoster()

	renderer := NewChartRenderer(paths, cfg, nil)
	chartFiles, err := renderer.RenderAll(context.Background(), records)
	require.NoError(t, err)

	builder := NewPDFBuilder(paths, cfg, nil)
	path, err := builder.Build(context.Background(), pdfTestSummary(), stats.DescribeRoster(records), chartFiles)
	require.NoError(t, err)
	assert.Equal(t, paths.GetOutputPath(SummaryReportFile), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	// Document title metadata is stored uncompressed
	assert.Contains(t, string(data), "RosterKit Summary Report")
	// Four embedded charts make the file substantially larger than a
	// text-only report
	assert.Greater(t, len(data), 5000)
}

func TestPDFBuilderNoCharts(t *testing.T) {
	paths := chartTestPaths(t)
	builder := NewPDFBuilder(paths, chartTestConfig(), nil)

	path, err := builder.Build(context.Background(), pdfTestSummary(), domain.RosterStats{}, nil)
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestPDFBuilderMissingChart(t *testing.T) {
	paths := chartTestPaths(t)
	builder := NewPDFBuilder(paths, chartTestConfig(), nil)

	missing := filepath.Join(t.TempDir(), "missing.png")
	_, err := builder.Build(context.Background(), pdfTestSummary(), domain.RosterStats{}, []string{missing})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeRender))
}

func TestPDFBuilderStatsTable(t *testing.T) {
	paths := chartTestPaths(t)
	builder := NewPDFBuilder(paths, chartTestConfig(), nil)

	rosterStats := stats.DescribeRoster(chartTestRoster())
	path, err := builder.Build(context.Background(), pdfTestSummary(), rosterStats, nil)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
