package cleaning

import "rosterkit/pkg/contracts/domain"

// Normalize converts a deduplicated, fully-imputed table into typed
// employee records. Age and Salary are rounded half away from zero to
// integers; a JoiningDate cell that matches no known layout becomes the
// invalid-date sentinel and is reported as a CellChange, never an error.
func Normalize(table *domain.RawTable) ([]domain.EmployeeRecord, []CellChange) {
	idx := newRosterIndex(table)

	records := make([]domain.EmployeeRecord, 0, len(table.Rows))
	var changes []CellChange

	for i, row := range table.Rows {
		rec := domain.EmployeeRecord{
			Name:        row[idx.name],
			Email:       row[idx.email],
			PhoneNumber: row[idx.phone],
			Country:     row[idx.country],
		}

		age, _ := ParseNumber(row[idx.age])
		rec.Age = RoundHalfAway(age)

		salary, _ := ParseNumber(row[idx.salary])
		rec.Salary = RoundHalfAway(salary)

		rec.JoiningDate = ParseDate(row[idx.joining])
		if !rec.JoiningDate.Valid {
			changes = append(changes, CellChange{
				Row:      i,
				Column:   domain.ColumnJoiningDate,
				Original: row[idx.joining],
				New:      domain.InvalidDateMarker,
				Reason:   ReasonInvalidDate,
			})
		}

		records = append(records, rec)
	}

	return records, changes
}
