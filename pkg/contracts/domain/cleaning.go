package domain

import "time"

// Fill defaults for the non-numeric columns. Age and Salary have no fixed
// default: their fill value is the column mean computed from the
// deduplicated table.
const (
	DefaultName        = "Unknown"
	DefaultEmail       = "missing@email.com"
	DefaultPhoneNumber = "Unavailable"
	DefaultCountry     = "Unknown"
)

// DefaultJoiningDate fills missing joining dates.
var DefaultJoiningDate = NewDate(time.Date(2025, time.January, 4, 0, 0, 0, 0, time.UTC))

// CleaningSummary reports what one cleaning run did to a roster. It is
// persisted alongside the cleaned table and rendered into the PDF report
// and the dashboard.
type CleaningSummary struct {
	Source            string            `json:"source"`
	RowsIn            int               `json:"rows_in"`
	RowsOut           int               `json:"rows_out"`
	DuplicatesRemoved int               `json:"duplicates_removed"`
	ImputedCells      map[string]int    `json:"imputed_cells"`
	InvalidDates      int               `json:"invalid_dates"`
	FillValues        map[string]string `json:"fill_values"`
	StartedAt         time.Time         `json:"started_at"`
	CompletedAt       time.Time         `json:"completed_at"`
}

// TotalImputed returns the number of cells filled across all columns.
func (s *CleaningSummary) TotalImputed() int {
	total := 0
	for _, n := range s.ImputedCells {
		total += n
	}
	return total
}

// Duration returns how long the cleaning run took.
func (s *CleaningSummary) Duration() time.Duration {
	return s.CompletedAt.Sub(s.StartedAt)
}
