// Package runlog records one etl_run_log row per table per pipeline run.
package runlog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/models"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/validation"
)

var ErrAlreadyCompleted = errors.New("run already completed")

// Handle identifies a run row opened by Begin.
type Handle struct {
	RunID   int64
	BatchID string
	Table   string
	Started time.Time

	done bool
	mu   sync.Mutex
}

// Completion carries the final figures of a run.
type Completion struct {
	Extracted   int
	Transformed int
	Loaded      int
	Rejected    int
	// Report is nil when validation was skipped.
	Report *validation.Report
	Status models.RunStatus
	Err    error
}

type Logger struct {
	db  *bun.DB
	log *zap.Logger
	now func() time.Time
}

func New(db *bun.DB, log *zap.Logger) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{db: db, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Begin inserts a running row for table and returns its handle.
func (l *Logger) Begin(ctx context.Context, batchID, table string, source models.DataSource) (*Handle, error) {
	rec := &models.RunRecord{
		TableName:    table,
		RunTimestamp: l.now(),
		Status:       models.RunRunning,
	}
	if batchID != "" {
		rec.BatchID = &batchID
	}
	if source != "" {
		s := string(source)
		rec.Source = &s
	}

	if _, err := l.db.NewInsert().Model(rec).Returning("run_id").Exec(ctx); err != nil {
		return nil, fmt.Errorf("begin run for %s: %w", table, err)
	}

	l.log.Debug("run started", zap.Int64("run_id", rec.RunID), zap.String("table", table), zap.String("batch_id", batchID))
	return &Handle{RunID: rec.RunID, BatchID: batchID, Table: table, Started: time.Now()}, nil
}

// Complete finalizes the row opened by Begin. It must be called exactly once
// per handle; later calls return ErrAlreadyCompleted.
func (l *Logger) Complete(ctx context.Context, h *Handle, c Completion) error {
	if h == nil {
		return errors.New("complete: nil handle")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done {
		return ErrAlreadyCompleted
	}

	status := c.Status
	if status == "" {
		status = models.RunSuccess
		if c.Err != nil || (c.Report != nil && !c.Report.Passed) {
			status = models.RunFailed
		}
	}

	elapsed := decimal.NewFromFloat(time.Since(h.Started).Seconds()).Round(2)
	rec := &models.RunRecord{
		RunID:           h.RunID,
		RowsExtracted:   &c.Extracted,
		RowsTransformed: &c.Transformed,
		RowsLoaded:      &c.Loaded,
		RowsRejected:    &c.Rejected,
		DurationSeconds: decimal.NewNullDecimal(elapsed),
		Status:          status,
	}
	if c.Report != nil {
		passed := c.Report.Passed
		rec.ValidationPassed = &passed
		if text := c.Report.ErrorText(); text != "" {
			rec.ValidationErrors = &text
		}
	}
	if c.Err != nil {
		msg := c.Err.Error()
		rec.ErrorMessage = &msg
	}

	// The row is finalized even when the caller's context is already done.
	if _, err := l.db.NewUpdate().
		Model(rec).
		Column("rows_extracted", "rows_transformed", "rows_loaded", "rows_rejected",
			"validation_passed", "validation_errors", "error_message", "duration_seconds", "status").
		WherePK().
		Exec(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("complete run %d: %w", h.RunID, err)
	}
	h.done = true

	fields := []zap.Field{
		zap.Int64("run_id", h.RunID),
		zap.String("table", h.Table),
		zap.String("status", string(status)),
		zap.Int("loaded", c.Loaded),
		zap.Int("rejected", c.Rejected),
	}
	if status == models.RunFailed {
		l.log.Warn("run failed", append(fields, zap.Error(c.Err))...)
	} else {
		l.log.Info("run completed", fields...)
	}
	return nil
}

// Recent returns the latest runs, newest first.
func (l *Logger) Recent(ctx context.Context, limit int) ([]models.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []models.RunRecord
	err := l.db.NewSelect().
		Model(&runs).
		Order("run_id DESC").
		Limit(limit).
		Scan(ctx)
	return runs, err
}

// ForBatch returns every run of one pipeline invocation in start order.
func (l *Logger) ForBatch(ctx context.Context, batchID string) ([]models.RunRecord, error) {
	var runs []models.RunRecord
	err := l.db.NewSelect().
		Model(&runs).
		Where("batch_id = ?", batchID).
		Order("run_id ASC").
		Scan(ctx)
	return runs, err
}
