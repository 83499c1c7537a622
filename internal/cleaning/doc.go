// Package cleaning implements the roster transform: exact-duplicate
// removal, per-column missing-value imputation, and type normalization.
//
// The transform is pure. Clean never mutates its input table and performs
// no I/O; persistence of the cleaned table, the summary and the audit
// trail belongs to the exporter, audit and operations packages.
//
// The three stages are exported separately so each can be exercised on its
// own: Dedupe, then ComputeFillValues/ApplyFillValues as an explicit
// two-pass imputation, then Normalize.
package cleaning
