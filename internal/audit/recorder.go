package audit

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"rosterkit/internal/cleaning"
	"rosterkit/internal/errors"
)

// insertBatchSize bounds one INSERT statement when persisting a run.
const insertBatchSize = 500

// Operation is one persisted cell rewrite from a cleaning run.
type Operation struct {
	ID             uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	RunID          string    `json:"run_id" gorm:"index;size:36;not null"`
	Source         string    `json:"source" gorm:"size:512"`
	RowIndex       int       `json:"row_index"`
	RowFingerprint string    `json:"row_fingerprint" gorm:"index;size:64"`
	Column         string    `json:"column" gorm:"column:column_name;size:32;not null"`
	OriginalValue  string    `json:"original_value" gorm:"size:1024"`
	NewValue       string    `json:"new_value" gorm:"size:1024"`
	Reason         string    `json:"reason" gorm:"index;size:32;not null"`
	CreatedAt      time.Time `json:"created_at"`
}

// Recorder writes and reads the audit trail. The zero value is a disabled
// recorder that drops writes and answers reads with empty results, so
// callers never branch on whether auditing is configured.
type Recorder struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewRecorder opens (or creates) the audit database at path and migrates
// the schema. A nil logger falls back to slog.Default().
func NewRecorder(path string, logger *slog.Logger) (*Recorder, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.NewStorageError(fmt.Sprintf("failed to create audit directory %q", dir), err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.NewStorageError(fmt.Sprintf("failed to open audit database %q", path), err)
	}
	if err := db.AutoMigrate(&Operation{}); err != nil {
		return nil, errors.NewStorageError("failed to migrate audit schema", err)
	}

	return &Recorder{db: db, logger: logger}, nil
}

// NewDisabledRecorder returns a recorder that persists nothing.
func NewDisabledRecorder() *Recorder {
	return &Recorder{}
}

// Enabled reports whether the recorder is backed by a database.
func (r *Recorder) Enabled() bool {
	return r != nil && r.db != nil
}

// RecordRun persists the cell changes of one cleaning run.
func (r *Recorder) RecordRun(ctx context.Context, runID, source string, changes []cleaning.CellChange) error {
	if !r.Enabled() || len(changes) == 0 {
		return nil
	}

	ops := make([]Operation, len(changes))
	for i, ch := range changes {
		ops[i] = Operation{
			RunID:          runID,
			Source:         source,
			RowIndex:       ch.Row,
			RowFingerprint: ch.RowFingerprint,
			Column:         ch.Column,
			OriginalValue:  ch.Original,
			NewValue:       ch.New,
			Reason:         ch.Reason,
		}
	}

	if err := r.db.WithContext(ctx).CreateInBatches(ops, insertBatchSize).Error; err != nil {
		return errors.NewStorageError("failed to persist audit operations", err)
	}

	r.logger.DebugContext(ctx, "audit operations recorded",
		slog.String("run_id", runID),
		slog.Int("operations", len(ops)))

	return nil
}

// Operations returns the recorded operations of one run in insertion
// order.
func (r *Recorder) Operations(ctx context.Context, runID string) ([]Operation, error) {
	if !r.Enabled() {
		return []Operation{}, nil
	}

	var ops []Operation
	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("id").
		Find(&ops).Error
	if err != nil {
		return nil, errors.NewStorageError("failed to load audit operations", err)
	}
	return ops, nil
}

// CountByReason aggregates one run's operations per change reason.
func (r *Recorder) CountByReason(ctx context.Context, runID string) (map[string]int, error) {
	if !r.Enabled() {
		return map[string]int{}, nil
	}

	var rows []struct {
		Reason string
		N      int
	}
	err := r.db.WithContext(ctx).
		Model(&Operation{}).
		Select("reason, count(*) as n").
		Where("run_id = ?", runID).
		Group("reason").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.NewStorageError("failed to aggregate audit operations", err)
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Reason] = row.N
	}
	return counts, nil
}

// Close releases the underlying database handle. Safe on a disabled
// recorder.
func (r *Recorder) Close() error {
	if !r.Enabled() {
		return nil
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
