package services

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rosterkit/internal/config"
	apperrors "rosterkit/internal/errors"
	"rosterkit/pkg/contracts/domain"
)

// cleanedRosterCSV mirrors the exporter output: UTF-8 BOM, canonical
// column order, fill defaults and the invalid date marker.
const cleanedRosterCSV = "\xef\xbb\xbf" + `Name,Email,PhoneNumber,Age,Country,Salary,JoiningDate
Alice,alice@example.com,1001,30,Iraq,1000,2024-01-15
Bob,missing@email.com,Unavailable,40,Unknown,2000,invalid
Carol,carol@example.com,1003,35,USA,1500,2023-06-01
`

func newTestDataService(t *testing.T) (*DataService, *config.Paths) {
	t.Helper()
	paths := testPaths(t)
	svc, err := NewDataServiceWithPaths(&config.Config{}, paths, discardLogger())
	require.NoError(t, err)
	return svc, paths
}

func writeCleanedRoster(t *testing.T, paths *config.Paths) {
	t.Helper()
	require.NoError(t, os.WriteFile(paths.CleanedCSV, []byte(cleanedRosterCSV), 0o644))
}

func writeTestSummary(t *testing.T, paths *config.Paths) domain.CleaningSummary {
	t.Helper()
	summary := domain.CleaningSummary{
		Source:            "employees.csv",
		RowsIn:            4,
		RowsOut:           3,
		DuplicatesRemoved: 1,
		ImputedCells:      map[string]int{"Email": 1, "Age": 1},
		InvalidDates:      1,
		FillValues:        map[string]string{"Email": "missing@email.com"},
		StartedAt:         time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		CompletedAt:       time.Date(2025, 6, 1, 10, 0, 2, 0, time.UTC),
	}
	data, err := json.Marshal(summary)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(paths.SummaryJSON, data, 0o644))
	return summary
}

func TestDataServiceGetArtifacts(t *testing.T) {
	svc, paths := newTestDataService(t)

	outputs := []string{
		paths.CleanedCSV,
		paths.SummaryJSON,
		paths.DashboardHTML,
		paths.ReportPDF,
		filepath.Join(paths.OutputDir, "notes.txt"),
		paths.AgeDistributionPNG,
		paths.SalaryDistributionPNG,
		paths.CountryBreakdownPNG,
		paths.CorrelationHeatmapPNG,
	}
	base := time.Now().Add(-time.Hour)
	for _, path := range outputs {
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		require.NoError(t, os.Chtimes(path, base, base))
	}
	// Freshest artifact sorts first.
	require.NoError(t, os.Chtimes(paths.CleanedCSV, base.Add(time.Minute), base.Add(time.Minute)))

	artifacts, err := svc.GetArtifacts(context.Background())
	require.NoError(t, err)
	require.Len(t, artifacts, len(outputs))
	assert.Equal(t, config.CleanedCSVName, artifacts[0].Name)

	categories := make(map[string]string)
	for _, artifact := range artifacts {
		categories[artifact.Name] = artifact.Category
	}
	assert.Equal(t, CategoryCleaned, categories[config.CleanedCSVName])
	assert.Equal(t, CategorySummary, categories[config.SummaryJSONName])
	assert.Equal(t, CategoryDashboard, categories[config.DashboardHTMLName])
	assert.Equal(t, CategoryReport, categories[config.ReportPDFName])
	assert.Equal(t, CategoryChart, categories[config.AgeDistributionPNGName])
	assert.Equal(t, CategoryChart, categories[config.CorrelationHeatmapPNGName])
	assert.Equal(t, CategoryOther, categories["notes.txt"])
}

func TestDataServiceGetArtifactsEmpty(t *testing.T) {
	svc, _ := newTestDataService(t)

	artifacts, err := svc.GetArtifacts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, artifacts)
}

func TestDataServiceGetCleanedRecords(t *testing.T) {
	svc, paths := newTestDataService(t)
	writeCleanedRoster(t, paths)

	records, total, err := svc.GetCleanedRecords(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, records, 3)

	// The BOM must not leak into the first header key.
	assert.Equal(t, "Alice", records[0][domain.ColumnName])
	assert.Equal(t, "1000", records[0][domain.ColumnSalary])
	assert.Equal(t, "invalid", records[1][domain.ColumnJoiningDate])
}

func TestDataServiceGetCleanedRecordsPagination(t *testing.T) {
	svc, paths := newTestDataService(t)
	writeCleanedRoster(t, paths)
	ctx := context.Background()

	tests := []struct {
		name      string
		limit     int
		offset    int
		wantNames []string
	}{
		{"first page", 2, 0, []string{"Alice", "Bob"}},
		{"second page", 2, 2, []string{"Carol"}},
		{"offset past end", 2, 5, nil},
		{"negative offset", 2, -1, []string{"Alice", "Bob"}},
		{"no limit", 0, 1, []string{"Bob", "Carol"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, total, err := svc.GetCleanedRecords(ctx, tt.limit, tt.offset)
			require.NoError(t, err)
			assert.Equal(t, 3, total)

			var names []string
			for _, record := range records {
				names = append(names, record[domain.ColumnName])
			}
			assert.Equal(t, tt.wantNames, names)
		})
	}
}

func TestDataServiceGetCleanedRecordsMissing(t *testing.T) {
	svc, _ := newTestDataService(t)

	_, _, err := svc.GetCleanedRecords(context.Background(), 0, 0)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
}

func TestDataServiceGetEmployeeRecords(t *testing.T) {
	svc, paths := newTestDataService(t)
	writeCleanedRoster(t, paths)

	records, err := svc.GetEmployeeRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "Alice", records[0].Name)
	assert.Equal(t, int64(30), records[0].Age)
	assert.Equal(t, "2024-01-15", records[0].JoiningDate.String())

	assert.Equal(t, "Unavailable", records[1].PhoneNumber)
	assert.Equal(t, int64(2000), records[1].Salary)
	assert.False(t, records[1].JoiningDate.Valid)
	assert.Equal(t, domain.InvalidDateMarker, records[1].JoiningDate.String())
}

func TestDataServiceGetEmployeeRecordsBadSchema(t *testing.T) {
	svc, paths := newTestDataService(t)
	content := "Name,Email\nAlice,alice@example.com\n"
	require.NoError(t, os.WriteFile(paths.CleanedCSV, []byte(content), 0o644))

	_, err := svc.GetEmployeeRecords(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeSchema))
}

func TestDataServiceGetRosterStats(t *testing.T) {
	svc, paths := newTestDataService(t)
	writeCleanedRoster(t, paths)

	rosterStats, err := svc.GetRosterStats(context.Background())
	require.NoError(t, err)

	require.Len(t, rosterStats.Columns, len(domain.NumericColumns))
	age := rosterStats.Columns[0]
	assert.Equal(t, domain.ColumnAge, age.Column)
	assert.Equal(t, 3, age.Count)
	assert.InDelta(t, 35.0, age.Mean, 1e-9)

	assert.Equal(t, domain.NumericColumns, rosterStats.Correlation.Columns)
	assert.Len(t, rosterStats.Countries, 3)
}

func TestDataServiceGetSummary(t *testing.T) {
	svc, paths := newTestDataService(t)

	t.Run("missing", func(t *testing.T) {
		_, err := svc.GetSummary(context.Background())
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
	})

	t.Run("round trip", func(t *testing.T) {
		want := writeTestSummary(t, paths)

		got, err := svc.GetSummary(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want.Source, got.Source)
		assert.Equal(t, want.RowsIn, got.RowsIn)
		assert.Equal(t, want.RowsOut, got.RowsOut)
		assert.Equal(t, want.DuplicatesRemoved, got.DuplicatesRemoved)
		assert.Equal(t, want.ImputedCells, got.ImputedCells)
	})

	t.Run("corrupt", func(t *testing.T) {
		require.NoError(t, os.WriteFile(paths.SummaryJSON, []byte("{nope"), 0o644))

		_, err := svc.GetSummary(context.Background())
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))
	})
}

func TestDataServiceDownloadFile(t *testing.T) {
	svc, paths := newTestDataService(t)
	writeCleanedRoster(t, paths)
	require.NoError(t, os.WriteFile(paths.AgeDistributionPNG, []byte("png-bytes"), 0o644))
	// A file outside the served directories must stay unreachable.
	secret := filepath.Join(paths.DataDir, "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("secret"), 0o644))

	ctx := context.Background()

	t.Run("cleaned roster", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/download", nil)

		err := svc.DownloadFile(ctx, rr, req, "output", config.CleanedCSVName)
		require.NoError(t, err)
		assert.Equal(t, 200, rr.Code)
		assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
		assert.Contains(t, rr.Header().Get("Content-Disposition"), config.CleanedCSVName)
		assert.Contains(t, rr.Body.String(), "Alice")
	})

	t.Run("chart image", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/download", nil)

		err := svc.DownloadFile(ctx, rr, req, "charts", config.AgeDistributionPNGName)
		require.NoError(t, err)
		assert.Equal(t, 200, rr.Code)
		assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	})

	t.Run("invalid file type", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/download", nil)

		err := svc.DownloadFile(ctx, rr, req, "secrets", "anything")
		assert.ErrorIs(t, err, ErrInvalidFileType)
	})

	t.Run("directory traversal", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/download", nil)

		err := svc.DownloadFile(ctx, rr, req, "output", "../secret.txt")
		assert.ErrorIs(t, err, ErrFileNotFound)
	})

	t.Run("missing file", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/download", nil)

		err := svc.DownloadFile(ctx, rr, req, "output", "ghost.csv")
		assert.ErrorIs(t, err, ErrFileNotFound)
	})

	t.Run("directory rejected", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/download", nil)

		err := svc.DownloadFile(ctx, rr, req, "output", "visualizations")
		assert.ErrorIs(t, err, ErrFileNotFound)
	})
}
