package migrations

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/database"
)

func TestRunMigrationsCreatesSchema(t *testing.T) {
	ctx := context.Background()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), false)
	require.NoError(t, err)
	defer db.Close()

	log := zaptest.NewLogger(t)
	require.NoError(t, RunMigrations(ctx, db, log))
	// second run is a no-op
	require.NoError(t, RunMigrations(ctx, db, log))

	for _, name := range []string{
		"customers", "sellers", "products", "orders", "order_items", "etl_run_log",
		"v_delivery_region_summary", "v_daily_deliveries", "idx_order_items_order_seq",
	} {
		var n int
		require.NoError(t, db.NewRaw("SELECT COUNT(*) FROM sqlite_master WHERE name = ?", name).Scan(ctx, &n))
		assert.Equalf(t, 1, n, "expected %s to exist", name)
	}
}

func TestLineItemSequenceIsUnique(t *testing.T) {
	ctx := context.Background()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), false)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, RunMigrations(ctx, db, nil))

	_, err = db.ExecContext(ctx, `INSERT INTO orders (order_id, order_purchase_timestamp) VALUES ('o1', '2024-01-01 10:00:00')`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO order_items (order_id, order_item_id, quantity) VALUES ('o1', 1, 1)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO order_items (order_id, order_item_id, quantity) VALUES ('o1', 1, 2)`)
	assert.Error(t, err)
}

func TestRollbackDropsViews(t *testing.T) {
	ctx := context.Background()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), false)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, RunMigrations(ctx, db, nil))
	require.NoError(t, Rollback(ctx, db, nil))

	var n int
	require.NoError(t, db.NewRaw("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'orders'").Scan(ctx, &n))
	assert.Equal(t, 0, n)
}
