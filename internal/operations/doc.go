// Package operations orchestrates the roster cleaning pipeline.
//
// A pipeline run is an operation: a fixed sequence of steps executed in
// registration order — ingest, clean, export, charts, dashboard, pdf.
// Steps exchange data through the typed fields of OperationState: the
// ingest step loads the raw table, the cleaning step produces the typed
// records and run summary, the export and report steps persist artifacts
// and record where they were written.
//
// Core components:
//
// Runner: executes the registered steps sequentially. A step failure
// fails the operation and the remaining steps are skipped; there are no
// retries. A step may also skip itself from Validate (for example the
// report steps skip on an empty cleaned roster, and the dashboard and
// PDF steps skip when disabled in configuration) without failing the
// run.
//
// Step: a single unit of work with an ID, a display name, a precondition
// check and an Execute method.
//
// StatusBroadcaster: the single authority for operation status. Steps
// and the runner push updates through it; it maintains one snapshot per
// operation and broadcasts the complete snapshot to the WebSocket hub
// after every change.
//
// Tracer: OpenTelemetry instrumentation. Each run gets a span, each step
// a child span, and completions are recorded on the business metrics.
package operations
