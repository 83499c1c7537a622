package cleaning

import "rosterkit/pkg/contracts/domain"

// Dedupe returns a copy of the table with exact-duplicate rows removed and
// the number of rows dropped. Two rows are duplicates when every cell is
// byte-identical; the first occurrence is kept and row order is otherwise
// preserved.
func Dedupe(table *domain.RawTable) (*domain.RawTable, int) {
	header := make([]string, len(table.Header))
	copy(header, table.Header)

	seen := make(map[string]struct{}, len(table.Rows))
	rows := make([][]string, 0, len(table.Rows))
	removed := 0

	for _, row := range table.Rows {
		fp := Fingerprint(row)
		if _, dup := seen[fp]; dup {
			removed++
			continue
		}
		seen[fp] = struct{}{}
		rows = append(rows, row)
	}

	return &domain.RawTable{Header: header, Rows: rows}, removed
}
