package domain

import "strconv"

// Roster column names. The schema is fixed: every input file must carry
// exactly these seven columns, matched by name.
const (
	ColumnName        = "Name"
	ColumnEmail       = "Email"
	ColumnPhoneNumber = "PhoneNumber"
	ColumnAge         = "Age"
	ColumnCountry     = "Country"
	ColumnSalary      = "Salary"
	ColumnJoiningDate = "JoiningDate"
)

// RosterColumns lists the schema columns in canonical order. Cleaned
// artifacts are always written in this order regardless of the input
// column order.
var RosterColumns = []string{
	ColumnName,
	ColumnEmail,
	ColumnPhoneNumber,
	ColumnAge,
	ColumnCountry,
	ColumnSalary,
	ColumnJoiningDate,
}

// NumericColumns lists the columns normalized to integers and used for
// mean imputation, descriptive statistics and the correlation matrix.
var NumericColumns = []string{ColumnAge, ColumnSalary}

// RawTable is an untyped roster exactly as read from a flat file: a header
// row and string cells in file order. Cleaning never mutates a RawTable;
// every transform returns new values.
type RawTable struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// ColumnIndex returns the position of the named column in the header,
// or -1 when the column is absent.
func (t *RawTable) ColumnIndex(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// RowCount returns the number of data rows (the header is not counted).
func (t *RawTable) RowCount() int {
	return len(t.Rows)
}

// Empty reports whether the table holds no data rows.
func (t *RawTable) Empty() bool {
	return len(t.Rows) == 0
}

// MissingColumns returns the schema columns absent from the header, in
// canonical order. An empty result means the table satisfies the schema.
func (t *RawTable) MissingColumns() []string {
	var missing []string
	for _, col := range RosterColumns {
		if t.ColumnIndex(col) == -1 {
			missing = append(missing, col)
		}
	}
	return missing
}

// EmployeeRecord is one cleaned roster row. All fields are populated:
// string columns carry their fill defaults when the source cell was
// missing, numeric columns are integers, and JoiningDate is either a
// valid date or the explicit invalid marker.
type EmployeeRecord struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Age         int64  `json:"age"`
	Country     string `json:"country"`
	Salary      int64  `json:"salary"`
	JoiningDate Date   `json:"joining_date"`
}

// Cells returns the record rendered back to string cells in canonical
// column order, the representation written to cleaned CSV and XLSX files.
func (r EmployeeRecord) Cells() []string {
	return []string{
		r.Name,
		r.Email,
		r.PhoneNumber,
		strconv.FormatInt(r.Age, 10),
		r.Country,
		strconv.FormatInt(r.Salary, 10),
		r.JoiningDate.String(),
	}
}
