package domain

// ColumnStats holds descriptive statistics for one numeric column of the
// cleaned roster: count, mean, standard deviation and the five-number
// summary.
type ColumnStats struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Q25    float64 `json:"q25"`
	Median float64 `json:"median"`
	Q75    float64 `json:"q75"`
	Max    float64 `json:"max"`
}

// CorrelationMatrix is the Pearson correlation of the numeric columns.
// Values is square with Values[i][j] the correlation between Columns[i]
// and Columns[j].
type CorrelationMatrix struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"`
}

// CategoryCount is one slice of a categorical breakdown, ordered by
// descending count when produced by the stats package.
type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// RosterStats bundles everything the reporters need from the statistics
// pass over a cleaned roster.
type RosterStats struct {
	Columns     []ColumnStats     `json:"columns"`
	Correlation CorrelationMatrix `json:"correlation"`
	Countries   []CategoryCount   `json:"countries"`
}
