package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"rosterkit/internal/errors"
	"rosterkit/pkg/contracts/domain"
)

const rosterHeader = "Name,Email,PhoneNumber,Age,Country,Salary,JoiningDate"

// writeFile creates a test source file and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// writeWorkbook creates a minimal XLSX roster and returns its path. Each
// entry of rows is written one sheet row below the previous, starting at
// startRow (1-based).
func writeWorkbook(t *testing.T, dir, name string, startRow int, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, startRow+i)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	path := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoaderLoad(t *testing.T) {
	tmpDir := t.TempDir()
	loader := NewLoader(nil)

	tests := []struct {
		name     string
		path     func(t *testing.T) string
		wantRows int
		wantErr  bool
		errType  errors.ErrorType
	}{
		{
			name: "valid csv source",
			path: func(t *testing.T) string {
				content := rosterHeader + "\n" +
					"Alice,alice@corp.test,555-0100,30,Ireland,52000,2023-05-14\n" +
					"Bob,bob@corp.test,555-0101,41,Japan,61000,2022-11-02\n"
				return writeFile(t, tmpDir, "roster.csv", content)
			},
			wantRows: 2,
		},
		{
			name: "valid xlsx source",
			path: func(t *testing.T) string {
				return writeWorkbook(t, tmpDir, "roster.xlsx", 1, [][]interface{}{
					{"Name", "Email", "PhoneNumber", "Age", "Country", "Salary", "JoiningDate"},
					{"Alice", "alice@corp.test", "555-0100", 30, "Ireland", 52000, "2023-05-14"},
				})
			},
			wantRows: 1,
		},
		{
			name: "missing file",
			path: func(t *testing.T) string {
				return filepath.Join(tmpDir, "does-not-exist.csv")
			},
			wantErr: true,
			errType: errors.ErrTypeNotFound,
		},
		{
			name: "unsupported extension",
			path: func(t *testing.T) string {
				return writeFile(t, tmpDir, "roster.json", `{"rows":[]}`)
			},
			wantErr: true,
			errType: errors.ErrTypeParsing,
		},
		{
			name: "directory instead of file",
			path: func(t *testing.T) string {
				dir := filepath.Join(tmpDir, "roster-dir.csv")
				require.NoError(t, os.Mkdir(dir, 0755))
				return dir
			},
			wantErr: true,
			errType: errors.ErrTypeParsing,
		},
		{
			name: "missing required columns",
			path: func(t *testing.T) string {
				content := "Name,Email,PhoneNumber,Age,Country\n" +
					"Alice,alice@corp.test,555-0100,30,Ireland\n"
				return writeFile(t, tmpDir, "partial.csv", content)
			},
			wantErr: true,
			errType: errors.ErrTypeSchema,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := loader.Load(context.Background(), tt.path(t))

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsType(err, tt.errType),
					"expected %s error, got: %v", tt.errType, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, domain.RosterColumns, table.Header)
			assert.Equal(t, tt.wantRows, table.RowCount())
		})
	}
}

func TestLoaderLoadSchemaErrorNamesColumns(t *testing.T) {
	tmpDir := t.TempDir()
	loader := NewLoader(nil)

	path := writeFile(t, tmpDir, "partial.csv",
		"Name,Email,PhoneNumber,Age,Country\nAlice,a@b.test,555,30,Ireland\n")

	_, err := loader.Load(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Salary")
	assert.Contains(t, err.Error(), "JoiningDate")

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, []string{"Salary", "JoiningDate"}, appErr.Context["columns"])
}

func TestLoadCSV(t *testing.T) {
	tmpDir := t.TempDir()
	loader := NewLoader(nil)

	tests := []struct {
		name     string
		content  string
		validate func(t *testing.T, table *domain.RawTable)
		wantErr  bool
	}{
		{
			name:    "utf8 bom is stripped from the header",
			content: "\ufeff" + rosterHeader + "\nAlice,a@b.test,555,30,Ireland,52000,2023-05-14\n",
			validate: func(t *testing.T, table *domain.RawTable) {
				assert.Equal(t, "Name", table.Header[0])
				assert.Equal(t, 0, table.ColumnIndex(domain.ColumnName))
			},
		},
		{
			name:    "header cells are trimmed",
			content: "Name, Email ,PhoneNumber,Age,Country,Salary, JoiningDate\n",
			validate: func(t *testing.T, table *domain.RawTable) {
				assert.Equal(t, domain.RosterColumns, table.Header)
			},
		},
		{
			name:    "short rows are padded to the header width",
			content: rosterHeader + "\nAlice,a@b.test,555\n",
			validate: func(t *testing.T, table *domain.RawTable) {
				require.Equal(t, 1, table.RowCount())
				require.Len(t, table.Rows[0], 7)
				assert.Equal(t, "Alice", table.Rows[0][0])
				assert.Equal(t, "", table.Rows[0][6])
			},
		},
		{
			name:    "long rows are truncated to the header width",
			content: rosterHeader + "\nAlice,a@b.test,555,30,Ireland,52000,2023-05-14,extra,cells\n",
			validate: func(t *testing.T, table *domain.RawTable) {
				require.Equal(t, 1, table.RowCount())
				require.Len(t, table.Rows[0], 7)
				assert.Equal(t, "2023-05-14", table.Rows[0][6])
			},
		},
		{
			name:    "quoted cells keep embedded commas",
			content: rosterHeader + "\n\"Price, Vincent\",v@b.test,555,60,UK,70000,2020-01-15\n",
			validate: func(t *testing.T, table *domain.RawTable) {
				require.Equal(t, 1, table.RowCount())
				assert.Equal(t, "Price, Vincent", table.Rows[0][0])
			},
		},
		{
			name:    "row of empty cells is kept",
			content: rosterHeader + "\n,,,,,,\n",
			validate: func(t *testing.T, table *domain.RawTable) {
				require.Equal(t, 1, table.RowCount())
				assert.Equal(t, make([]string, 7), table.Rows[0])
			},
		},
		{
			name:    "header only yields an empty table",
			content: rosterHeader + "\n",
			validate: func(t *testing.T, table *domain.RawTable) {
				assert.True(t, table.Empty())
				assert.Equal(t, domain.RosterColumns, table.Header)
			},
		},
		{
			name:    "empty file fails",
			content: "",
			wantErr: true,
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tmpDir, fmt.Sprintf("case%d.csv", i), tt.content)
			table, err := loader.LoadCSV(context.Background(), path)

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsType(err, errors.ErrTypeParsing))
				return
			}

			require.NoError(t, err)
			tt.validate(t, table)
		})
	}
}

func TestLoadExcel(t *testing.T) {
	tmpDir := t.TempDir()
	loader := NewLoader(nil)

	t.Run("header on the first non-empty row", func(t *testing.T) {
		path := writeWorkbook(t, tmpDir, "offset.xlsx", 3, [][]interface{}{
			{"Name", "Email", "PhoneNumber", "Age", "Country", "Salary", "JoiningDate"},
			{"Alice", "alice@corp.test", "555-0100", 30, "Ireland", 52000, "2023-05-14"},
			{"Bob", "bob@corp.test", "555-0101", 41, "Japan", 61000, "2022-11-02"},
		})

		table, err := loader.LoadExcel(context.Background(), path)
		require.NoError(t, err)
		assert.Equal(t, domain.RosterColumns, table.Header)
		assert.Equal(t, 2, table.RowCount())
	})

	t.Run("numeric cells arrive as strings", func(t *testing.T) {
		path := writeWorkbook(t, tmpDir, "numeric.xlsx", 1, [][]interface{}{
			{"Name", "Email", "PhoneNumber", "Age", "Country", "Salary", "JoiningDate"},
			{"Alice", "alice@corp.test", "555-0100", 30, "Ireland", 52000.5, "2023-05-14"},
		})

		table, err := loader.LoadExcel(context.Background(), path)
		require.NoError(t, err)
		require.Equal(t, 1, table.RowCount())
		assert.Equal(t, "30", table.Rows[0][3])
		assert.Equal(t, "52000.5", table.Rows[0][5])
	})

	t.Run("blank rows between records are skipped", func(t *testing.T) {
		f := excelize.NewFile()
		sheet := f.GetSheetName(0)
		header := []interface{}{"Name", "Email", "PhoneNumber", "Age", "Country", "Salary", "JoiningDate"}
		first := []interface{}{"Alice", "alice@corp.test", "555-0100", 30, "Ireland", 52000, "2023-05-14"}
		third := []interface{}{"Bob", "bob@corp.test", "555-0101", 41, "Japan", 61000, "2022-11-02"}
		require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
		require.NoError(t, f.SetSheetRow(sheet, "A2", &first))
		require.NoError(t, f.SetSheetRow(sheet, "A4", &third))
		path := filepath.Join(tmpDir, "gaps.xlsx")
		require.NoError(t, f.SaveAs(path))

		table, err := loader.LoadExcel(context.Background(), path)
		require.NoError(t, err)
		require.Equal(t, 2, table.RowCount())
		assert.Equal(t, "Alice", table.Rows[0][0])
		assert.Equal(t, "Bob", table.Rows[1][0])
	})

	t.Run("short rows are padded to the header width", func(t *testing.T) {
		path := writeWorkbook(t, tmpDir, "short.xlsx", 1, [][]interface{}{
			{"Name", "Email", "PhoneNumber", "Age", "Country", "Salary", "JoiningDate"},
			{"Alice", "alice@corp.test"},
		})

		table, err := loader.LoadExcel(context.Background(), path)
		require.NoError(t, err)
		require.Equal(t, 1, table.RowCount())
		require.Len(t, table.Rows[0], 7)
		assert.Equal(t, "", table.Rows[0][6])
	})

	t.Run("corrupt workbook fails", func(t *testing.T) {
		path := writeFile(t, tmpDir, "corrupt.xlsx", "this is not a zip archive")

		_, err := loader.LoadExcel(context.Background(), path)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeParsing))
	})
}

func TestValidateSchema(t *testing.T) {
	tests := []struct {
		name        string
		header      []string
		wantErr     bool
		wantMissing []string
	}{
		{
			name:   "complete schema",
			header: domain.RosterColumns,
		},
		{
			name: "extra columns are tolerated",
			header: []string{"EmployeeID", "Name", "Email", "PhoneNumber",
				"Age", "Country", "Salary", "JoiningDate", "Department"},
		},
		{
			name:        "one column missing",
			header:      []string{"Name", "Email", "PhoneNumber", "Age", "Country", "Salary"},
			wantErr:     true,
			wantMissing: []string{"JoiningDate"},
		},
		{
			name:        "empty header misses everything",
			header:      nil,
			wantErr:     true,
			wantMissing: domain.RosterColumns,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSchema(&domain.RawTable{Header: tt.header})

			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			var appErr *errors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, errors.ErrTypeSchema, appErr.Type)
			assert.Equal(t, tt.wantMissing, appErr.Context["columns"])
		})
	}
}
