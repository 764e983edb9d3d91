package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

const regionSummaryView = `CREATE VIEW v_delivery_region_summary AS
SELECT
    c.customer_state AS region,
    COUNT(o.order_id) AS total_orders,
    ROUND(AVG(o.delivery_duration_hours), 2) AS avg_delivery_hours,
    SUM(CASE WHEN o.order_status = 'delivered' THEN 1 ELSE 0 END) AS delivered_orders,
    SUM(CASE WHEN o.order_status = 'canceled' THEN 1 ELSE 0 END) AS canceled_orders
FROM orders o
LEFT JOIN customers c ON c.customer_id = o.customer_id
GROUP BY c.customer_state`

const dailyDeliveriesView = `CREATE VIEW v_daily_deliveries AS
SELECT
    DATE(o.order_purchase_timestamp) AS day,
    COUNT(o.order_id) AS total_orders,
    SUM(CASE WHEN o.order_status = 'delivered' THEN 1 ELSE 0 END) AS delivered_orders,
    ROUND(AVG(o.delivery_duration_hours), 2) AS avg_delivery_hours
FROM orders o
GROUP BY DATE(o.order_purchase_timestamp)`

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		return execAll(ctx, db, []string{
			"DROP VIEW IF EXISTS v_delivery_region_summary",
			"DROP VIEW IF EXISTS v_daily_deliveries",
			regionSummaryView,
			dailyDeliveriesView,
		})
	}, func(ctx context.Context, db *bun.DB) error {
		return execAll(ctx, db, []string{
			"DROP VIEW IF EXISTS v_daily_deliveries",
			"DROP VIEW IF EXISTS v_delivery_region_summary",
		})
	})
}
