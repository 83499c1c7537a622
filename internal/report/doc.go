// Package report renders the roster reporting artifacts: static chart
// PNGs, the interactive HTML dashboard and the printable PDF summary.
//
// Every renderer is styled by an explicit Theme value resolved from
// configuration. Nothing in this package holds global styling state, so
// renderers with different themes can run side by side.
package report
