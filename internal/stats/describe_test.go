package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rosterkit/pkg/contracts/domain"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   domain.ColumnStats
	}{
		{
			name:   "four values",
			values: []float64{50, 20, 40, 30},
			want: domain.ColumnStats{
				Column: "Age",
				Count:  4,
				Mean:   35,
				Std:    math.Sqrt(500.0 / 3.0),
				Min:    20,
				Q25:    20,
				Median: 30,
				Q75:    40,
				Max:    50,
			},
		},
		{
			name:   "single value",
			values: []float64{42},
			want: domain.ColumnStats{
				Column: "Age",
				Count:  1,
				Mean:   42,
				Std:    0,
				Min:    42,
				Q25:    42,
				Median: 42,
				Q75:    42,
				Max:    42,
			},
		},
		{
			name:   "empty column",
			values: nil,
			want:   domain.ColumnStats{Column: "Age"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Describe("Age", tt.values)

			assert.Equal(t, tt.want.Column, got.Column)
			assert.Equal(t, tt.want.Count, got.Count)
			assert.InDelta(t, tt.want.Mean, got.Mean, 1e-9)
			assert.InDelta(t, tt.want.Std, got.Std, 1e-9)
			assert.InDelta(t, tt.want.Min, got.Min, 1e-9)
			assert.InDelta(t, tt.want.Q25, got.Q25, 1e-9)
			assert.InDelta(t, tt.want.Median, got.Median, 1e-9)
			assert.InDelta(t, tt.want.Q75, got.Q75, 1e-9)
			assert.InDelta(t, tt.want.Max, got.Max, 1e-9)
		})
	}
}

func TestDescribeDoesNotReorderInput(t *testing.T) {
	values := []float64{50, 20, 40, 30}

	Describe("Age", values)

	assert.Equal(t, []float64{50, 20, 40, 30}, values)
}

func TestNumericValues(t *testing.T) {
	records := []domain.EmployeeRecord{
		{Name: "A", Age: 30, Salary: 52000},
		{Name: "B", Age: 41, Salary: 61000},
	}

	assert.Equal(t, []float64{30, 41}, NumericValues(records, domain.ColumnAge))
	assert.Equal(t, []float64{52000, 61000}, NumericValues(records, domain.ColumnSalary))
	assert.Nil(t, NumericValues(records, domain.ColumnName))
	assert.Nil(t, NumericValues(nil, domain.ColumnAge))
}

func TestCorrelate(t *testing.T) {
	t.Run("perfect positive correlation", func(t *testing.T) {
		m := Correlate([]string{"Age", "Salary"}, [][]float64{
			{1, 2, 3},
			{2, 4, 6},
		})

		assert.Equal(t, []string{"Age", "Salary"}, m.Columns)
		assert.InDelta(t, 1.0, m.Values[0][1], 1e-12)
		assert.InDelta(t, 1.0, m.Values[1][0], 1e-12)
		assert.Equal(t, 1.0, m.Values[0][0])
		assert.Equal(t, 1.0, m.Values[1][1])
	})

	t.Run("perfect negative correlation", func(t *testing.T) {
		m := Correlate([]string{"Age", "Salary"}, [][]float64{
			{1, 2, 3},
			{6, 4, 2},
		})

		assert.InDelta(t, -1.0, m.Values[0][1], 1e-12)
	})

	t.Run("constant series reports zero", func(t *testing.T) {
		m := Correlate([]string{"Age", "Salary"}, [][]float64{
			{5, 5, 5},
			{1, 2, 3},
		})

		assert.Equal(t, 0.0, m.Values[0][1])
		assert.Equal(t, 0.0, m.Values[1][0])
	})

	t.Run("empty series stay serializable", func(t *testing.T) {
		m := Correlate([]string{"Age", "Salary"}, [][]float64{nil, nil})

		assert.Equal(t, 0.0, m.Values[0][1])
		assert.Equal(t, 1.0, m.Values[0][0])
	})
}

func TestCountryCounts(t *testing.T) {
	records := []domain.EmployeeRecord{
		{Country: "US"},
		{Country: "Brazil"},
		{Country: "US"},
		{Country: "Ireland"},
		{Country: "US"},
	}

	got := CountryCounts(records)

	require.Len(t, got, 3)
	assert.Equal(t, domain.CategoryCount{Value: "US", Count: 3}, got[0])
	// Ties are broken alphabetically.
	assert.Equal(t, domain.CategoryCount{Value: "Brazil", Count: 1}, got[1])
	assert.Equal(t, domain.CategoryCount{Value: "Ireland", Count: 1}, got[2])
}

func TestDescribeRoster(t *testing.T) {
	records := []domain.EmployeeRecord{
		{Name: "A", Age: 20, Country: "US", Salary: 40000},
		{Name: "B", Age: 30, Country: "US", Salary: 50000},
		{Name: "C", Age: 40, Country: "Japan", Salary: 60000},
	}

	got := DescribeRoster(records)

	require.Len(t, got.Columns, 2)
	assert.Equal(t, domain.ColumnAge, got.Columns[0].Column)
	assert.Equal(t, 3, got.Columns[0].Count)
	assert.InDelta(t, 30.0, got.Columns[0].Mean, 1e-9)
	assert.Equal(t, domain.ColumnSalary, got.Columns[1].Column)
	assert.InDelta(t, 50000.0, got.Columns[1].Mean, 1e-9)

	// Age and salary rise together in this fixture.
	assert.InDelta(t, 1.0, got.Correlation.Values[0][1], 1e-12)

	require.Len(t, got.Countries, 2)
	assert.Equal(t, "US", got.Countries[0].Value)
	assert.Equal(t, 2, got.Countries[0].Count)
}

func TestDescribeRosterEmpty(t *testing.T) {
	got := DescribeRoster(nil)

	require.Len(t, got.Columns, 2)
	assert.Zero(t, got.Columns[0].Count)
	assert.Zero(t, got.Columns[1].Count)
	assert.Equal(t, 0.0, got.Correlation.Values[0][1])
	assert.Empty(t, got.Countries)
}
