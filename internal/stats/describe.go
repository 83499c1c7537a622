package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"rosterkit/pkg/contracts/domain"
)

// Describe summarizes one numeric column: count, mean, sample standard
// deviation and the five-number summary. Quantiles are empirical (the
// smallest sample at or above the requested fraction); no interpolation.
// An empty column yields a zero summary with Count 0.
func Describe(column string, values []float64) domain.ColumnStats {
	s := domain.ColumnStats{Column: column, Count: len(values)}
	if len(values) == 0 {
		return s
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	s.Mean = stat.Mean(sorted, nil)
	if len(sorted) > 1 {
		s.Std = stat.StdDev(sorted, nil)
	}
	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.Q25 = stat.Quantile(0.25, stat.Empirical, sorted, nil)
	s.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	s.Q75 = stat.Quantile(0.75, stat.Empirical, sorted, nil)
	return s
}

// NumericValues extracts one numeric column from the records as floats.
// Unknown columns yield nil.
func NumericValues(records []domain.EmployeeRecord, column string) []float64 {
	if len(records) == 0 {
		return nil
	}

	values := make([]float64, 0, len(records))
	switch column {
	case domain.ColumnAge:
		for _, rec := range records {
			values = append(values, float64(rec.Age))
		}
	case domain.ColumnSalary:
		for _, rec := range records {
			values = append(values, float64(rec.Salary))
		}
	default:
		return nil
	}
	return values
}

// Correlate builds the Pearson correlation matrix for the given series.
// A constant series has no defined correlation with anything; those
// entries are reported as 0 so the matrix stays JSON-serializable.
// Every series must have the same length.
func Correlate(columns []string, series [][]float64) domain.CorrelationMatrix {
	n := len(columns)
	values := make([][]float64, n)
	for i := range values {
		values[i] = make([]float64, n)
		values[i][i] = 1
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			c := stat.Correlation(series[i], series[j], nil)
			if math.IsNaN(c) {
				c = 0
			}
			values[i][j] = c
			values[j][i] = c
		}
	}

	return domain.CorrelationMatrix{Columns: columns, Values: values}
}

// CountryCounts tallies records per country, ordered by descending count
// with ties broken alphabetically so chart output is stable across runs.
func CountryCounts(records []domain.EmployeeRecord) []domain.CategoryCount {
	counts := make(map[string]int, len(records))
	for _, rec := range records {
		counts[rec.Country]++
	}

	out := make([]domain.CategoryCount, 0, len(counts))
	for value, count := range counts {
		out = append(out, domain.CategoryCount{Value: value, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// DescribeRoster runs the full statistics pass the reporters consume:
// Age and Salary summaries, their correlation matrix and the country
// breakdown.
func DescribeRoster(records []domain.EmployeeRecord) domain.RosterStats {
	ages := NumericValues(records, domain.ColumnAge)
	salaries := NumericValues(records, domain.ColumnSalary)

	return domain.RosterStats{
		Columns: []domain.ColumnStats{
			Describe(domain.ColumnAge, ages),
			Describe(domain.ColumnSalary, salaries),
		},
		Correlation: Correlate(domain.NumericColumns, [][]float64{ages, salaries}),
		Countries:   CountryCounts(records),
	}
}
