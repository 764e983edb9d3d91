package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// RunRecord is one audit row per table per pipeline invocation.
type RunRecord struct {
	bun.BaseModel `bun:"table:etl_run_log,alias:rl"`

	RunID            int64               `bun:"run_id,pk,autoincrement" json:"run_id"`
	BatchID          *string             `bun:"batch_id,type:varchar(36)" json:"batch_id,omitempty"`
	RunTimestamp     time.Time           `bun:"run_timestamp,nullzero,notnull,default:current_timestamp" json:"run_timestamp"`
	TableName        string              `bun:"table_name,notnull,type:varchar(50)" json:"table_name"`
	Source           *string             `bun:"source,type:varchar(50)" json:"source,omitempty"`
	RowsExtracted    *int                `bun:"rows_extracted" json:"rows_extracted,omitempty"`
	RowsTransformed  *int                `bun:"rows_transformed" json:"rows_transformed,omitempty"`
	RowsLoaded       *int                `bun:"rows_loaded" json:"rows_loaded,omitempty"`
	RowsRejected     *int                `bun:"rows_rejected" json:"rows_rejected,omitempty"`
	ValidationPassed *bool               `bun:"validation_passed" json:"validation_passed,omitempty"`
	ValidationErrors *string             `bun:"validation_errors,type:text" json:"validation_errors,omitempty"`
	ErrorMessage     *string             `bun:"error_message,type:text" json:"error_message,omitempty"`
	DurationSeconds  decimal.NullDecimal `bun:"duration_seconds,type:decimal(10,2)" json:"duration_seconds"`
	Status           RunStatus           `bun:"status,notnull,type:varchar(20),default:'running'" json:"status"`
}

// IsFinal reports whether the run left the running state.
func (r *RunRecord) IsFinal() bool {
	return r.Status == RunSuccess || r.Status == RunFailed
}
