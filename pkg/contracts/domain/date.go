package domain

import (
	"encoding/json"
	"time"
)

// DateLayout is the canonical serialization format for roster dates.
const DateLayout = "2006-01-02"

// InvalidDateMarker is written wherever a source date could not be parsed.
// It is deliberately distinct from a missing value: a missing JoiningDate
// is imputed with the default date, an unparseable one keeps this marker.
const InvalidDateMarker = "invalid"

// Date is a roster date with an explicit validity flag. The zero value is
// the invalid date.
type Date struct {
	Time  time.Time `json:"time"`
	Valid bool      `json:"valid"`
}

// NewDate returns a valid Date, truncated to day precision in UTC.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Valid: true}
}

// InvalidDate returns the explicit sentinel for an unparseable source date.
func InvalidDate() Date {
	return Date{}
}

// String renders the date in DateLayout, or InvalidDateMarker when the
// date is not valid.
func (d Date) String() string {
	if !d.Valid {
		return InvalidDateMarker
	}
	return d.Time.Format(DateLayout)
}

// Equal reports whether two dates agree in validity and, when valid, in
// calendar day.
func (d Date) Equal(other Date) bool {
	if d.Valid != other.Valid {
		return false
	}
	if !d.Valid {
		return true
	}
	return d.Time.Equal(other.Time)
}

// MarshalJSON renders a valid date as its DateLayout string and an invalid
// one as the marker string, so API payloads mirror the CSV serialization.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts the serialized form produced by MarshalJSON.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == InvalidDateMarker || s == "" {
		*d = InvalidDate()
		return nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return err
	}
	*d = NewDate(t)
	return nil
}
