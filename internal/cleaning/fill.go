package cleaning

import (
	"strconv"

	"gonum.org/v1/gonum/stat"

	"rosterkit/pkg/contracts/domain"
)

// rosterIndex caches the header positions of the seven roster columns.
// Stage functions build one per call; the table must already satisfy the
// roster schema.
type rosterIndex struct {
	name    int
	email   int
	phone   int
	age     int
	country int
	salary  int
	joining int
}

func newRosterIndex(table *domain.RawTable) rosterIndex {
	return rosterIndex{
		name:    table.ColumnIndex(domain.ColumnName),
		email:   table.ColumnIndex(domain.ColumnEmail),
		phone:   table.ColumnIndex(domain.ColumnPhoneNumber),
		age:     table.ColumnIndex(domain.ColumnAge),
		country: table.ColumnIndex(domain.ColumnCountry),
		salary:  table.ColumnIndex(domain.ColumnSalary),
		joining: table.ColumnIndex(domain.ColumnJoiningDate),
	}
}

// FillValues holds one cleaning run's imputation defaults: fixed literals
// for the string columns, the default joining date, and the Age and Salary
// means computed from the deduplicated table. Sample counts record how
// many values each mean was computed from; a zero count means the column
// had no usable values and the mean defaulted to 0.
type FillValues struct {
	Name          string
	Email         string
	PhoneNumber   string
	Country       string
	JoiningDate   domain.Date
	AgeMean       float64
	SalaryMean    float64
	AgeSamples    int
	SalarySamples int
}

// Map renders the fill values keyed by column name, the form persisted in
// the cleaning summary and shown in reports.
func (fv FillValues) Map() map[string]string {
	return map[string]string{
		domain.ColumnName:        fv.Name,
		domain.ColumnEmail:       fv.Email,
		domain.ColumnPhoneNumber: fv.PhoneNumber,
		domain.ColumnAge:         strconv.FormatFloat(fv.AgeMean, 'f', -1, 64),
		domain.ColumnCountry:     fv.Country,
		domain.ColumnSalary:      strconv.FormatFloat(fv.SalaryMean, 'f', -1, 64),
		domain.ColumnJoiningDate: fv.JoiningDate.String(),
	}
}

// ComputeFillValues derives the imputation defaults from a deduplicated
// table. This is the first pass of the two-pass imputation: aggregates are
// computed once here, then ApplyFillValues rewrites cells.
func ComputeFillValues(table *domain.RawTable) FillValues {
	fv := FillValues{
		Name:        domain.DefaultName,
		Email:       domain.DefaultEmail,
		PhoneNumber: domain.DefaultPhoneNumber,
		Country:     domain.DefaultCountry,
		JoiningDate: domain.DefaultJoiningDate,
	}
	fv.AgeMean, fv.AgeSamples = columnMean(table, domain.ColumnAge)
	fv.SalaryMean, fv.SalarySamples = columnMean(table, domain.ColumnSalary)
	return fv
}

// columnMean averages the parseable, non-missing values of a numeric
// column. With no usable values it returns 0 and a zero sample count.
func columnMean(table *domain.RawTable, column string) (float64, int) {
	idx := table.ColumnIndex(column)
	if idx == -1 {
		return 0, 0
	}

	values := make([]float64, 0, len(table.Rows))
	for _, row := range table.Rows {
		if v, ok := ParseNumber(row[idx]); ok {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return 0, 0
	}
	return stat.Mean(values, nil), len(values)
}

// ApplyFillValues is the second imputation pass: it returns a copy of the
// table with every missing cell replaced by its column's fill value, the
// per-column count of cells rewritten, and one CellChange per rewrite.
// Age and Salary cells that do not parse as numbers are treated as missing
// and filled with the column mean.
func ApplyFillValues(table *domain.RawTable, fv FillValues) (*domain.RawTable, map[string]int, []CellChange) {
	idx := newRosterIndex(table)
	fills := fv.Map()

	imputed := make(map[string]int, len(domain.RosterColumns))
	for _, col := range domain.RosterColumns {
		imputed[col] = 0
	}

	header := make([]string, len(table.Header))
	copy(header, table.Header)

	var changes []CellChange
	rows := make([][]string, len(table.Rows))
	for i, row := range table.Rows {
		out := make([]string, len(row))
		copy(out, row)

		fill := func(col string, pos int, reason string) {
			changes = append(changes, CellChange{
				Row:      i,
				Column:   col,
				Original: row[pos],
				New:      fills[col],
				Reason:   reason,
			})
			imputed[col]++
			out[pos] = fills[col]
		}

		if IsMissing(row[idx.name]) {
			fill(domain.ColumnName, idx.name, ReasonMissing)
		}
		if IsMissing(row[idx.email]) {
			fill(domain.ColumnEmail, idx.email, ReasonMissing)
		}
		if IsMissing(row[idx.phone]) {
			fill(domain.ColumnPhoneNumber, idx.phone, ReasonMissing)
		}
		if IsMissing(row[idx.country]) {
			fill(domain.ColumnCountry, idx.country, ReasonMissing)
		}
		if _, ok := ParseNumber(row[idx.age]); !ok {
			fill(domain.ColumnAge, idx.age, numericFillReason(row[idx.age]))
		}
		if _, ok := ParseNumber(row[idx.salary]); !ok {
			fill(domain.ColumnSalary, idx.salary, numericFillReason(row[idx.salary]))
		}
		if IsMissing(row[idx.joining]) {
			fill(domain.ColumnJoiningDate, idx.joining, ReasonMissing)
		}

		rows[i] = out
	}

	return &domain.RawTable{Header: header, Rows: rows}, imputed, changes
}

func numericFillReason(cell string) string {
	if IsMissing(cell) {
		return ReasonMissing
	}
	return ReasonUnparseable
}
