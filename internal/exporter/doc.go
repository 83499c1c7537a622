// Package exporter persists cleaned rosters and run summaries.
//
// This package contains two main components:
//
// CSVWriter: Core CSV writing functionality with support for headers,
// streaming, and UTF-8 BOM for Excel compatibility.
//
// RosterExporter: Writes the cleaned roster as CSV or XLSX and the
// cleaning summary as JSON, resolving relative paths against the
// application's output directory.
//
// Example usage:
//
//	paths, _ := config.GetPaths()
//	rosterExporter := exporter.NewRosterExporter(paths, logger)
//
//	// Persist the cleaned roster and its summary
//	err := rosterExporter.ExportCleanedCSV(records, paths.CleanedCSV)
//	err = rosterExporter.ExportSummaryJSON(summary, paths.SummaryJSON)
package exporter
