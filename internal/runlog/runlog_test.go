package runlog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/database"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/dataset"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/migrations"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/models"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/validation"
)

func setup(t *testing.T) (*bun.DB, *Logger) {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.RunMigrations(context.Background(), db, nil))
	return db, New(db, nil)
}

func load(t *testing.T, db *bun.DB, runID int64) models.RunRecord {
	t.Helper()
	var rec models.RunRecord
	require.NoError(t, db.NewSelect().Model(&rec).Where("run_id = ?", runID).Scan(context.Background()))
	return rec
}

func TestBeginCreatesRunningRecord(t *testing.T) {
	ctx := context.Background()
	db, l := setup(t)

	h, err := l.Begin(ctx, "batch-1", models.TableCustomers, models.SourceOlist)
	require.NoError(t, err)
	require.NotZero(t, h.RunID)

	rec := load(t, db, h.RunID)
	assert.Equal(t, models.RunRunning, rec.Status)
	assert.Equal(t, models.TableCustomers, rec.TableName)
	require.NotNil(t, rec.Source)
	assert.Equal(t, "olist_csv", *rec.Source)
	assert.False(t, rec.IsFinal())
	assert.False(t, rec.RunTimestamp.IsZero())
}

func TestCompleteSuccess(t *testing.T) {
	ctx := context.Background()
	db, l := setup(t)

	h, err := l.Begin(ctx, "batch-1", models.TableSellers, models.SourceOlist)
	require.NoError(t, err)

	report := validation.Validate(dataset.Dataset{{"seller_id": "s1"}}, validation.HubRules())
	require.NoError(t, l.Complete(ctx, h, Completion{Extracted: 3, Transformed: 2, Loaded: 2, Report: &report}))

	rec := load(t, db, h.RunID)
	assert.Equal(t, models.RunSuccess, rec.Status)
	assert.Equal(t, 3, *rec.RowsExtracted)
	assert.Equal(t, 2, *rec.RowsTransformed)
	assert.Equal(t, 2, *rec.RowsLoaded)
	require.NotNil(t, rec.ValidationPassed)
	assert.True(t, *rec.ValidationPassed)
	assert.Nil(t, rec.ValidationErrors)
	assert.True(t, rec.DurationSeconds.Valid)
}

func TestCompleteFailureRecordsReportAndError(t *testing.T) {
	ctx := context.Background()
	db, l := setup(t)

	h, err := l.Begin(ctx, "batch-1", models.TableCustomers, models.SourceFakeStore)
	require.NoError(t, err)

	report := validation.Validate(dataset.Dataset{
		{"customer_id": "c1"}, {"customer_id": "c1"},
	}, validation.ClientRules())
	require.False(t, report.Passed)

	require.NoError(t, l.Complete(ctx, h, Completion{Extracted: 2, Report: &report, Err: errors.New("validation failed")}))

	rec := load(t, db, h.RunID)
	assert.Equal(t, models.RunFailed, rec.Status)
	require.NotNil(t, rec.ValidationPassed)
	assert.False(t, *rec.ValidationPassed)
	require.NotNil(t, rec.ValidationErrors)
	assert.Contains(t, *rec.ValidationErrors, "uniqueness")
	require.NotNil(t, rec.ErrorMessage)
	assert.Equal(t, "validation failed", *rec.ErrorMessage)
}

func TestCompleteOnlyOnce(t *testing.T) {
	ctx := context.Background()
	db, l := setup(t)

	h, err := l.Begin(ctx, "", models.TableOrders, "")
	require.NoError(t, err)
	require.NoError(t, l.Complete(ctx, h, Completion{Status: models.RunFailed}))
	assert.ErrorIs(t, l.Complete(ctx, h, Completion{Status: models.RunSuccess}), ErrAlreadyCompleted)

	rec := load(t, db, h.RunID)
	assert.Equal(t, models.RunFailed, rec.Status)
	assert.Nil(t, rec.ValidationPassed, "skipped validation stays NULL")
	assert.Nil(t, rec.BatchID)
}

func TestCompleteWithCancelledContext(t *testing.T) {
	db, l := setup(t)

	h, err := l.Begin(context.Background(), "b", models.TableProducts, models.SourceFakeStore)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, l.Complete(ctx, h, Completion{Err: context.Canceled}))
	assert.Equal(t, models.RunFailed, load(t, db, h.RunID).Status)
}

func TestRecentAndForBatch(t *testing.T) {
	ctx := context.Background()
	_, l := setup(t)

	for _, table := range []string{models.TableCustomers, models.TableSellers, models.TableOrders} {
		h, err := l.Begin(ctx, "batch-a", table, models.SourceOlist)
		require.NoError(t, err)
		require.NoError(t, l.Complete(ctx, h, Completion{}))
	}
	h, err := l.Begin(ctx, "batch-b", models.TableProducts, models.SourceFakeStore)
	require.NoError(t, err)
	require.NoError(t, l.Complete(ctx, h, Completion{}))

	recent, err := l.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, models.TableProducts, recent[0].TableName)

	batch, err := l.ForBatch(ctx, "batch-a")
	require.NoError(t, err)
	require.Len(t, batch, 3)
	assert.Equal(t, models.TableCustomers, batch[0].TableName)
	for _, r := range batch {
		assert.True(t, r.IsFinal())
	}
}
