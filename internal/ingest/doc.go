// Package ingest reads roster source files into untyped tables.
//
// The package supports CSV and XLSX sources and enforces the fixed roster
// schema on both: every source must carry the seven roster columns, matched
// by name. Loading never interprets cell contents; typing and imputation
// belong to the cleaning package.
package ingest
