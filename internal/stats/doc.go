// Package stats computes descriptive statistics over cleaned rosters:
// per-column summaries, the Pearson correlation matrix of the numeric
// columns, the per-country breakdown and the histograms the chart
// renderers draw from.
package stats
