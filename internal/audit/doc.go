// Package audit persists the cell-level change trail of cleaning runs.
//
// Every cell the cleaner rewrites (imputations and invalid-date
// coercions) becomes one Operation row in a local SQLite database, keyed
// by run ID and row fingerprint so a cleaned value can be traced back to
// the source row it replaced.
package audit
