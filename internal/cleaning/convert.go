package cleaning

import (
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"

	"rosterkit/pkg/contracts/domain"
)

// missingTokens are the cell spellings treated as absent values, compared
// case-insensitively after trimming. The set mirrors what spreadsheet and
// CSV tooling commonly emits for null cells.
var missingTokens = map[string]struct{}{
	"":     {},
	"na":   {},
	"n/a":  {},
	"null": {},
	"nan":  {},
	"none": {},
}

// IsMissing reports whether a raw cell holds no usable value.
func IsMissing(cell string) bool {
	_, ok := missingTokens[strings.ToLower(strings.TrimSpace(cell))]
	return ok
}

// ParseNumber converts a raw numeric cell to a float64. Thousands
// separators are tolerated ("52,000"). The second return is false when the
// cell is missing or does not parse as a number; such cells are imputed,
// never errors.
func ParseNumber(cell string) (float64, bool) {
	if IsMissing(cell) {
		return 0, false
	}
	v, err := cast.ToFloat64E(strings.ReplaceAll(strings.TrimSpace(cell), ",", ""))
	if err != nil {
		return 0, false
	}
	return v, true
}

// RoundHalfAway rounds to the nearest integer with halves away from zero,
// the rule used to normalize Age and Salary: 25.5 becomes 26, -25.5
// becomes -26.
func RoundHalfAway(v float64) int64 {
	return int64(math.Round(v))
}

// dateLayouts are tried in order when parsing JoiningDate cells.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"01/02/2006",
}

// ParseDate converts a raw date cell to a domain.Date. A cell that matches
// no known layout yields the explicit invalid sentinel rather than an
// error.
func ParseDate(cell string) domain.Date {
	s := strings.TrimSpace(cell)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.NewDate(t)
		}
	}
	return domain.InvalidDate()
}
