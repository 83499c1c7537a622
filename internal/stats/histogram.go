package stats

import "gonum.org/v1/gonum/floats"

// Histogram is an equal-width binning of one numeric column. Edges holds
// len(Counts)+1 boundaries; bin i covers [Edges[i], Edges[i+1]), except
// the last bin, which also includes its upper edge so the column maximum
// is always counted.
type Histogram struct {
	Edges  []float64 `json:"edges"`
	Counts []int     `json:"counts"`
}

// NewHistogram bins values into the requested number of equal-width
// buckets spanning [min, max]. A single-valued column is widened by one
// unit so the bar keeps visible width. Empty input yields the zero
// Histogram.
func NewHistogram(values []float64, bins int) Histogram {
	if len(values) == 0 {
		return Histogram{}
	}
	if bins < 1 {
		bins = 1
	}

	lo := floats.Min(values)
	hi := floats.Max(values)
	if lo == hi {
		hi = lo + 1
	}
	width := (hi - lo) / float64(bins)

	edges := make([]float64, bins+1)
	for i := range edges {
		edges[i] = lo + width*float64(i)
	}
	edges[bins] = hi

	counts := make([]int, bins)
	for _, v := range values {
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		counts[idx]++
	}

	return Histogram{Edges: edges, Counts: counts}
}

// Total returns the number of values binned.
func (h Histogram) Total() int {
	total := 0
	for _, c := range h.Counts {
		total += c
	}
	return total
}
