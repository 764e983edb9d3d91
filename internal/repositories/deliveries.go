package repositories

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/loader"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/models"
)

// RegionSummary is one row of v_delivery_region_summary.
type RegionSummary struct {
	Region           *string             `bun:"region" json:"region"`
	TotalOrders      int                 `bun:"total_orders" json:"total_orders"`
	AvgDeliveryHours decimal.NullDecimal `bun:"avg_delivery_hours" json:"avg_delivery_hours"`
	DeliveredOrders  int                 `bun:"delivered_orders" json:"delivered_orders"`
	CanceledOrders   int                 `bun:"canceled_orders" json:"canceled_orders"`
}

// DailyDeliveries is one row of v_daily_deliveries.
type DailyDeliveries struct {
	Day              string              `bun:"day" json:"day"`
	TotalOrders      int                 `bun:"total_orders" json:"total_orders"`
	DeliveredOrders  int                 `bun:"delivered_orders" json:"delivered_orders"`
	AvgDeliveryHours decimal.NullDecimal `bun:"avg_delivery_hours" json:"avg_delivery_hours"`
}

// GetDeliveryByID fetches an order with its client and line items.
func GetDeliveryByID(ctx context.Context, db *bun.DB, orderID string) (*models.Delivery, error) {
	d := new(models.Delivery)
	err := db.NewSelect().
		Model(d).
		Where("o.order_id = ?", orderID).
		Relation("Client").
		Relation("Items", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("order_item_id ASC")
		}).
		Scan(ctx)

	return d, err
}

// GetRegionSummaries returns per-state order figures, busiest region first.
func GetRegionSummaries(ctx context.Context, db *bun.DB) ([]RegionSummary, error) {
	var rows []RegionSummary
	err := db.NewRaw(`SELECT region, total_orders, avg_delivery_hours, delivered_orders, canceled_orders
        FROM v_delivery_region_summary
        ORDER BY total_orders DESC, region ASC`).
		Scan(ctx, &rows)

	return rows, err
}

// GetDailyDeliveries returns the most recent days of order activity.
func GetDailyDeliveries(ctx context.Context, db *bun.DB, limit int) ([]DailyDeliveries, error) {
	if limit <= 0 {
		limit = 30
	}
	var rows []DailyDeliveries
	err := db.NewRaw(`SELECT day, total_orders, delivered_orders, avg_delivery_hours
        FROM v_daily_deliveries
        ORDER BY day DESC
        LIMIT ?`, limit).
		Scan(ctx, &rows)

	return rows, err
}

// GetLateDeliveries lists delivered orders that missed their estimate, latest first.
func GetLateDeliveries(ctx context.Context, db *bun.DB, limit int) ([]*models.Delivery, error) {
	var orders []*models.Delivery
	err := db.NewSelect().
		Model(&orders).
		Where("o.order_status = ?", models.StatusDelivered).
		Where("o.order_delivered_customer_date > o.order_estimated_delivery_date").
		OrderExpr("o.order_purchase_timestamp DESC").
		Limit(limit).
		Scan(ctx)

	return orders, err
}

// CountRows returns the row count of every entity table.
func CountRows(ctx context.Context, db *bun.DB) (map[string]int, error) {
	counts := make(map[string]int)
	for _, t := range loader.Catalog() {
		n, err := db.NewSelect().Table(t.Name).Count(ctx)
		if err != nil {
			return nil, err
		}
		counts[t.Name] = n
	}
	return counts, nil
}
