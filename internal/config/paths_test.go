package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGetPaths tests path resolution relative to the executable
func TestGetPaths(t *testing.T) {
	paths, err := GetPaths()
	require.NoError(t, err)
	require.NotNil(t, paths)

	assert.NotEmpty(t, paths.ExecutableDir)
	assert.True(t, filepath.IsAbs(paths.ExecutableDir))

	// Directory nesting
	assert.Equal(t, filepath.Join(paths.ExecutableDir, "data"), paths.DataDir)
	assert.Equal(t, filepath.Join(paths.DataDir, "input"), paths.InputDir)
	assert.Equal(t, filepath.Join(paths.DataDir, "output"), paths.OutputDir)
	assert.Equal(t, filepath.Join(paths.OutputDir, "visualizations"), paths.VisualizationsDir)
	assert.Equal(t, filepath.Join(paths.ExecutableDir, "logs"), paths.LogsDir)
	assert.Equal(t, filepath.Join(paths.ExecutableDir, "web"), paths.WebDir)
	assert.Equal(t, filepath.Join(paths.WebDir, "static"), paths.StaticDir)

	// Well-known files
	assert.Equal(t, filepath.Join(paths.OutputDir, "cleaned_data.csv"), paths.CleanedCSV)
	assert.Equal(t, filepath.Join(paths.OutputDir, "cleaning_summary.json"), paths.SummaryJSON)
	assert.Equal(t, filepath.Join(paths.OutputDir, "interactive_dashboard.html"), paths.DashboardHTML)
	assert.Equal(t, filepath.Join(paths.OutputDir, "summary_report.pdf"), paths.ReportPDF)
	assert.Equal(t, filepath.Join(paths.DataDir, "audit.db"), paths.AuditDB)

	// Chart files live in the visualizations directory
	for name, path := range map[string]string{
		"age":         paths.AgeDistributionPNG,
		"salary":      paths.SalaryDistributionPNG,
		"country":     paths.CountryBreakdownPNG,
		"correlation": paths.CorrelationHeatmapPNG,
	} {
		assert.Equal(t, paths.VisualizationsDir, filepath.Dir(path), "chart %s", name)
		assert.True(t, strings.HasSuffix(path, ".png"), "chart %s", name)
	}
}

// TestEnsureDirectories tests directory creation
func TestEnsureDirectories(t *testing.T) {
	t.Run("creates all directories", func(t *testing.T) {
		base := t.TempDir()
		paths := testPaths(base)

		require.NoError(t, paths.EnsureDirectories())

		for _, dir := range []string{
			paths.DataDir, paths.InputDir, paths.OutputDir,
			paths.VisualizationsDir, paths.LogsDir, paths.WebDir, paths.StaticDir,
		} {
			info, err := os.Stat(dir)
			require.NoError(t, err, "directory %s", dir)
			assert.True(t, info.IsDir(), "directory %s", dir)
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		base := t.TempDir()
		paths := testPaths(base)

		require.NoError(t, paths.EnsureDirectories())
		require.NoError(t, paths.EnsureDirectories())
	})

	t.Run("fails when a path exists as a file", func(t *testing.T) {
		base := t.TempDir()
		paths := testPaths(base)

		// Occupy the data dir path with a regular file
		require.NoError(t, os.WriteFile(paths.DataDir, []byte("not a directory"), 0644))

		err := paths.EnsureDirectories()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create directory")
	})
}

// testPaths builds a Paths rooted at base for directory tests
func testPaths(base string) *Paths {
	dataDir := filepath.Join(base, "data")
	outputDir := filepath.Join(dataDir, "output")
	return &Paths{
		ExecutableDir:     base,
		DataDir:           dataDir,
		InputDir:          filepath.Join(dataDir, "input"),
		OutputDir:         outputDir,
		VisualizationsDir: filepath.Join(outputDir, "visualizations"),
		LogsDir:           filepath.Join(base, "logs"),
		WebDir:            filepath.Join(base, "web"),
		StaticDir:         filepath.Join(base, "web", "static"),
	}
}

// TestPathHelperMethods tests the path join helpers
func TestPathHelperMethods(t *testing.T) {
	paths := testPaths("/app")

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{
			name:     "input path",
			got:      paths.GetInputPath("employee_data.csv"),
			expected: filepath.Join("/app", "data", "input", "employee_data.csv"),
		},
		{
			name:     "output path",
			got:      paths.GetOutputPath("cleaned_data.csv"),
			expected: filepath.Join("/app", "data", "output", "cleaned_data.csv"),
		},
		{
			name:     "visualization path",
			got:      paths.GetVisualizationPath("age_distribution.png"),
			expected: filepath.Join("/app", "data", "output", "visualizations", "age_distribution.png"),
		},
		{
			name:     "log path",
			got:      paths.GetLogPath("rosterkit.log"),
			expected: filepath.Join("/app", "logs", "rosterkit.log"),
		},
		{
			name:     "web file path",
			got:      paths.GetWebFilePath("index.html"),
			expected: filepath.Join("/app", "web", "index.html"),
		},
		{
			name:     "static file path",
			got:      paths.GetStaticFilePath("app.js"),
			expected: filepath.Join("/app", "web", "static", "app.js"),
		},
		{
			name:     "relative path",
			got:      paths.GetRelativePath("notes.txt"),
			expected: filepath.Join("/app", "notes.txt"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
}

// TestGetCleanedCSVPath tests per-source cleaned output naming
func TestGetCleanedCSVPath(t *testing.T) {
	paths := testPaths("/app")
	paths.CleanedCSV = paths.GetOutputPath("cleaned_data.csv")

	tests := []struct {
		name     string
		source   string
		expected string
	}{
		{
			name:     "csv source",
			source:   "employee_data.csv",
			expected: paths.GetOutputPath("cleaned_employee_data.csv"),
		},
		{
			name:     "absolute xlsx source",
			source:   "/srv/uploads/q3_hires.xlsx",
			expected: paths.GetOutputPath("cleaned_q3_hires.csv"),
		},
		{
			name:     "source without extension",
			source:   "roster",
			expected: paths.GetOutputPath("cleaned_roster.csv"),
		},
		{
			name:     "bare extension falls back to canonical name",
			source:   ".csv",
			expected: paths.CleanedCSV,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, paths.GetCleanedCSVPath(tt.source))
		})
	}
}

// TestFileExists tests the file existence helper
func TestFileExists(t *testing.T) {
	dir := t.TempDir()

	existing := filepath.Join(dir, "present.csv")
	require.NoError(t, os.WriteFile(existing, []byte("Name,Email\n"), 0644))

	assert.True(t, FileExists(existing))
	assert.False(t, FileExists(filepath.Join(dir, "absent.csv")))
	// Directories count as existing
	assert.True(t, FileExists(dir))
}

// TestLogPathResolution only verifies the call is safe
func TestLogPathResolution(t *testing.T) {
	paths, err := GetPaths()
	require.NoError(t, err)
	assert.NotPanics(t, func() { paths.LogPathResolution() })
}

func BenchmarkGetPaths(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := GetPaths(); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkPathHelpers(b *testing.B) {
	paths := testPaths("/app")
	for i := 0; i < b.N; i++ {
		_ = paths.GetInputPath("employee_data.csv")
		_ = paths.GetOutputPath("cleaned_data.csv")
		_ = paths.GetVisualizationPath("age_distribution.png")
	}
}
