//go:build example
// +build example

package config

import (
	"log/slog"
	"os"
)

// ExampleUsage demonstrates how to use the paths package throughout the application
func ExampleUsage() {
	// Always get paths from the centralized GetPaths() function
	paths, err := GetPaths()
	if err != nil {
		slog.Error("Failed to get paths", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Ensure all directories exist at startup
	if err := paths.EnsureDirectories(); err != nil {
		slog.Error("Failed to ensure directories", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Log all resolved paths for debugging
	paths.LogPathResolution()

	// Example 1: Locating a source roster dropped into data/input
	sourcePath := paths.GetInputPath("employee_data.csv")
	slog.Info("Source roster expected at", slog.String("path", sourcePath))

	// Example 2: The cleaned roster and summary written by the cleaner
	slog.Info("Cleaned roster will be written to", slog.String("path", paths.CleanedCSV))
	slog.Info("Cleaning summary will be written to", slog.String("path", paths.SummaryJSON))

	// Example 3: Chart images rendered by the reporter
	slog.Info("Age distribution chart", slog.String("path", paths.AgeDistributionPNG))
	slog.Info("Correlation heatmap", slog.String("path", paths.CorrelationHeatmapPNG))

	// Example 4: Per-source cleaned output naming
	cleaned := paths.GetCleanedCSVPath("q3_hires.csv")
	slog.Info("Cleaned roster for q3_hires.csv", slog.String("path", cleaned))
}

// Migration Guide:
//
// OLD CODE (problematic):
//   cleanedPath := filepath.Join(os.Getwd(), "output", "cleaned_data.csv")
//
// NEW CODE (correct):
//   paths, _ := config.GetPaths()
//   cleanedPath := paths.CleanedCSV
//
// Benefits:
// 1. All paths relative to executable, not working directory
// 2. Consistent across all components
// 3. Cross-platform path handling
// 4. Centralized logging and debugging
