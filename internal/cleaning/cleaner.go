package cleaning

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rosterkit/internal/errors"
	"rosterkit/pkg/contracts/domain"
)

// Reasons recorded on CellChange entries.
const (
	ReasonMissing     = "missing_value"
	ReasonUnparseable = "unparseable_number"
	ReasonInvalidDate = "invalid_date"
)

// CellChange records one cell the cleaner rewrote. Changes feed the audit
// trail; Row is the position in the deduplicated table and RowFingerprint
// identifies the source row the change applies to.
type CellChange struct {
	Row            int    `json:"row"`
	RowFingerprint string `json:"row_fingerprint"`
	Column         string `json:"column"`
	Original       string `json:"original"`
	New            string `json:"new"`
	Reason         string `json:"reason"`
}

// Result is the outcome of one cleaning run: the typed records, a summary
// of what the run did, and the cell-level change list.
type Result struct {
	Records []domain.EmployeeRecord
	Summary domain.CleaningSummary
	Changes []CellChange
}

// Cleaner runs the full roster transform. It holds no per-run state and is
// safe to reuse across runs.
type Cleaner struct {
	logger *slog.Logger
}

// NewCleaner creates a cleaner. A nil logger falls back to slog.Default().
func NewCleaner(logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{logger: logger}
}

// Clean transforms a raw table into cleaned employee records. Stages run
// in a fixed order: exact-duplicate removal first, then two-pass
// missing-value imputation with fill values computed from the
// deduplicated table, then type normalization. The input table is never
// mutated. A header-only table cleans to an empty result without error;
// only a nil table or a schema violation fails.
func (c *Cleaner) Clean(ctx context.Context, source string, table *domain.RawTable) (*Result, error) {
	if table == nil {
		return nil, errors.NewAppValidationError("no table to clean")
	}
	if missing := table.MissingColumns(); len(missing) > 0 {
		return nil, errors.NewSchemaError(
			fmt.Sprintf("table is missing required columns: %s", strings.Join(missing, ", ")),
			missing)
	}

	started := time.Now().UTC()
	c.logger.InfoContext(ctx, "cleaning started",
		slog.String("source", source),
		slog.Int("rows_in", table.RowCount()))

	deduped, removed := Dedupe(table)

	fv := ComputeFillValues(deduped)
	if deduped.RowCount() > 0 {
		if fv.AgeSamples == 0 {
			c.logger.WarnContext(ctx, "no usable values for mean imputation, filling with 0",
				slog.String("column", domain.ColumnAge))
		}
		if fv.SalarySamples == 0 {
			c.logger.WarnContext(ctx, "no usable values for mean imputation, filling with 0",
				slog.String("column", domain.ColumnSalary))
		}
	}

	filled, imputed, changes := ApplyFillValues(deduped, fv)

	records, dateChanges := Normalize(filled)
	changes = append(changes, dateChanges...)

	// Stamp each change with the identity of the source row it touched.
	fingerprints := make([]string, len(deduped.Rows))
	for i, row := range deduped.Rows {
		fingerprints[i] = Fingerprint(row)
	}
	for i := range changes {
		changes[i].RowFingerprint = fingerprints[changes[i].Row]
	}

	summary := domain.CleaningSummary{
		Source:            source,
		RowsIn:            table.RowCount(),
		RowsOut:           len(records),
		DuplicatesRemoved: removed,
		ImputedCells:      imputed,
		InvalidDates:      len(dateChanges),
		FillValues:        fv.Map(),
		StartedAt:         started,
		CompletedAt:       time.Now().UTC(),
	}

	c.logger.InfoContext(ctx, "cleaning completed",
		slog.String("source", source),
		slog.Int("rows_out", summary.RowsOut),
		slog.Int("duplicates_removed", summary.DuplicatesRemoved),
		slog.Int("cells_imputed", summary.TotalImputed()),
		slog.Int("invalid_dates", summary.InvalidDates),
		slog.Duration("duration", summary.Duration()))

	return &Result{Records: records, Summary: summary, Changes: changes}, nil
}
