package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		return execAll(ctx, db, []string{
			"CREATE UNIQUE INDEX IF NOT EXISTS idx_order_items_order_seq ON order_items(order_id, order_item_id)",
			"CREATE INDEX IF NOT EXISTS idx_order_items_product ON order_items(product_id)",
			"CREATE INDEX IF NOT EXISTS idx_order_items_seller ON order_items(seller_id)",
			"CREATE INDEX IF NOT EXISTS idx_orders_purchase_ts ON orders(order_purchase_timestamp)",
			"CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(order_status)",
			"CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id)",
			"CREATE INDEX IF NOT EXISTS idx_customers_state ON customers(customer_state)",
			"CREATE INDEX IF NOT EXISTS idx_products_category ON products(category)",
			"CREATE INDEX IF NOT EXISTS idx_run_log_table ON etl_run_log(table_name, run_timestamp)",
			"CREATE INDEX IF NOT EXISTS idx_run_log_batch ON etl_run_log(batch_id)",
		})
	}, func(ctx context.Context, db *bun.DB) error {
		return execAll(ctx, db, []string{
			"DROP INDEX IF EXISTS idx_order_items_order_seq",
			"DROP INDEX IF EXISTS idx_order_items_product",
			"DROP INDEX IF EXISTS idx_order_items_seller",
			"DROP INDEX IF EXISTS idx_orders_purchase_ts",
			"DROP INDEX IF EXISTS idx_orders_status",
			"DROP INDEX IF EXISTS idx_orders_customer",
			"DROP INDEX IF EXISTS idx_customers_state",
			"DROP INDEX IF EXISTS idx_products_category",
			"DROP INDEX IF EXISTS idx_run_log_table",
			"DROP INDEX IF EXISTS idx_run_log_batch",
		})
	})
}
