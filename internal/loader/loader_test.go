package loader

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.uber.org/zap/zaptest"

	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/database"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/dataset"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/migrations"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/models"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func setup(t *testing.T) (*bun.DB, *Loader, *clock) {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.RunMigrations(context.Background(), db, nil))

	c := &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	return db, New(db, zaptest.NewLogger(t), WithClock(c.now), WithChunkSize(2)), c
}

func ts(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		panic(err)
	}
	return t
}

func count(t *testing.T, db *bun.DB, table string) int {
	t.Helper()
	n, err := db.NewSelect().Table(table).Count(context.Background())
	require.NoError(t, err)
	return n
}

func clientBatch() dataset.Dataset {
	return dataset.Dataset{
		{"customer_id": "c1", "customer_city": "sao paulo", "customer_state": "SP", "source": "olist_csv"},
		{"customer_id": "c2", "customer_city": "rio de janeiro", "customer_state": "RJ", "source": "olist_csv"},
		{"customer_id": "c3", "customer_city": "curitiba", "customer_state": nil, "source": "olist_csv"},
	}
}

func TestLoadIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, l, c := setup(t)

	first, err := l.Load(ctx, models.TableCustomers, clientBatch())
	require.NoError(t, err)
	assert.Equal(t, 3, first.RowsInserted)
	assert.Equal(t, 0, first.RowsUpdated)

	var before []models.Client
	require.NoError(t, db.NewSelect().Model(&before).Order("customer_id").Scan(ctx))

	c.t = c.t.Add(time.Hour)
	second, err := l.Load(ctx, models.TableCustomers, clientBatch())
	require.NoError(t, err)
	assert.Equal(t, 0, second.RowsInserted)
	assert.Equal(t, 3, second.RowsUpdated)
	assert.Equal(t, 3, second.Loaded())

	var after []models.Client
	require.NoError(t, db.NewSelect().Model(&after).Order("customer_id").Scan(ctx))
	require.Len(t, after, 3)
	for i := range after {
		assert.True(t, after[i].UpdatedAt.After(before[i].UpdatedAt))
		assert.True(t, after[i].CreatedAt.Equal(before[i].CreatedAt))
		after[i].UpdatedAt, before[i].UpdatedAt = time.Time{}, time.Time{}
		after[i].CreatedAt, before[i].CreatedAt = time.Time{}, time.Time{}
	}
	assert.Equal(t, before, after)
}

func TestLoadNullsMissingOptionalReference(t *testing.T) {
	ctx := context.Background()
	db, l, _ := setup(t)

	res, err := l.Load(ctx, models.TableOrders, dataset.Dataset{
		{"order_id": "o1", "customer_id": "ghost", "order_status": "created",
			"order_purchase_timestamp": ts("2024-01-01 10:00:00")},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.RowsInserted)
	assert.Zero(t, res.RowsRejected)

	var d models.Delivery
	require.NoError(t, db.NewSelect().Model(&d).Where("order_id = ?", "o1").Scan(ctx))
	assert.Nil(t, d.CustomerID)
}

func TestLoadRejectsItemsWithoutOrder(t *testing.T) {
	ctx := context.Background()
	db, l, _ := setup(t)

	_, err := l.Load(ctx, models.TableOrders, dataset.Dataset{
		{"order_id": "o1", "order_purchase_timestamp": ts("2024-01-01 10:00:00")},
	})
	require.NoError(t, err)

	res, err := l.Load(ctx, models.TableOrderItems, dataset.Dataset{
		{"order_id": "o1", "order_item_id": 1, "product_id": "p-missing", "quantity": 1},
		{"order_id": "o-missing", "order_item_id": 1, "quantity": 1},
		{"order_id": "o1", "order_item_id": 2, "quantity": 3},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.RowsInserted)
	assert.Equal(t, 1, res.RowsRejected)
	require.Len(t, res.RejectedReasons, 1)
	assert.Equal(t, 1, res.RejectedReasons[0].Index)
	assert.Equal(t, "o-missing|1", res.RejectedReasons[0].Key)
	assert.Equal(t, 2, count(t, db, models.TableOrderItems))

	var item models.DeliveryLineItem
	require.NoError(t, db.NewSelect().Model(&item).Where("order_id = ? AND order_item_id = ?", "o1", 1).Scan(ctx))
	assert.Nil(t, item.ProductID)
}

func TestLoadRollsBackWholeBatch(t *testing.T) {
	ctx := context.Background()
	db, l, _ := setup(t)

	batch := clientBatch()
	batch = append(batch, dataset.Record{"customer_id": "c1", "customer_state": "MG"})

	res, err := l.Load(ctx, models.TableCustomers, batch)
	assert.Nil(t, res)
	var txErr *TransactionError
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, models.TableCustomers, txErr.Table)
	assert.Equal(t, 0, count(t, db, models.TableCustomers))
}

func TestLoadMissingRequiredFieldFailsBatch(t *testing.T) {
	ctx := context.Background()
	db, l, _ := setup(t)

	_, err := l.Load(ctx, models.TableOrders, dataset.Dataset{
		{"order_id": "o1", "order_purchase_timestamp": ts("2024-01-01 10:00:00")},
		{"order_id": "o2"},
	})
	var txErr *TransactionError
	require.ErrorAs(t, err, &txErr)
	assert.True(t, errors.Is(err, ErrMissingRequired))
	assert.Equal(t, 0, count(t, db, models.TableOrders))
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	ctx := context.Background()
	db, l, _ := setup(t)

	res, err := l.Load(ctx, models.TableSellers, dataset.Dataset{
		{"seller_id": "s1", "seller_state": "SP"},
		{"seller_id": "s2", "warehouse_size": 12},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.RowsInserted)
	assert.Equal(t, 1, res.RowsRejected)
	assert.Contains(t, res.RejectedReasons[0].Reason, "warehouse_size")
	assert.Equal(t, 1, count(t, db, models.TableSellers))
}

func TestLoadRejectsOversizedKeys(t *testing.T) {
	ctx := context.Background()
	db, l, _ := setup(t)

	res, err := l.Load(ctx, models.TableSellers, dataset.Dataset{
		{"seller_id": "s1"},
		{"seller_id": strings.Repeat("s", models.MaxKeyLength+1)},
		{"seller_id": ""},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.RowsInserted)
	assert.Equal(t, 2, res.RowsRejected)
	assert.Contains(t, res.RejectedReasons[0].Reason, "exceeds 50 characters")
	assert.Contains(t, res.RejectedReasons[1].Reason, "seller_id is required")
	assert.Equal(t, 1, count(t, db, models.TableSellers))
}

func TestLoadDerivesFields(t *testing.T) {
	ctx := context.Background()
	db, l, _ := setup(t)

	_, err := l.Load(ctx, models.TableOrders, dataset.Dataset{
		{"order_id": "o1", "order_status": "delivered",
			"order_purchase_timestamp":      ts("2024-01-01 10:00:00"),
			"order_delivered_customer_date": ts("2024-01-02 12:30:00")},
		{"order_id": "o2", "order_status": "shipped",
			"order_purchase_timestamp": ts("2024-01-01 10:00:00")},
	})
	require.NoError(t, err)

	var orders []models.Delivery
	require.NoError(t, db.NewSelect().Model(&orders).Order("order_id").Scan(ctx))
	require.Len(t, orders, 2)
	require.True(t, orders[0].DeliveryDurationHours.Valid)
	assert.True(t, orders[0].DeliveryDurationHours.Decimal.Equal(decimal.RequireFromString("26.5")))
	assert.False(t, orders[1].DeliveryDurationHours.Valid)

	_, err = l.Load(ctx, models.TableOrderItems, dataset.Dataset{
		{"order_id": "o1", "order_item_id": 1, "quantity": 1,
			"price": decimal.RequireFromString("30"), "freight_value": decimal.RequireFromString("10")},
		{"order_id": "o1", "order_item_id": 2, "quantity": 1,
			"price": decimal.Zero, "freight_value": decimal.RequireFromString("5")},
		{"order_id": "o1", "order_item_id": 3, "quantity": 1,
			"price": decimal.RequireFromString("0.10"), "freight_value": decimal.RequireFromString("15")},
	})
	require.NoError(t, err)

	var items []models.DeliveryLineItem
	require.NoError(t, db.NewSelect().Model(&items).Order("order_item_id").Scan(ctx))
	require.Len(t, items, 3)
	assert.True(t, items[0].ShippingCostRatio.Decimal.Equal(decimal.RequireFromString("0.3333")))
	assert.False(t, items[1].ShippingCostRatio.Valid)
	assert.False(t, items[2].ShippingCostRatio.Valid, "ratio beyond DECIMAL(6,4) is stored absent")
}

func TestLoadUpdatesLineItemsByOrderSequence(t *testing.T) {
	ctx := context.Background()
	db, l, _ := setup(t)

	_, err := l.Load(ctx, models.TableOrders, dataset.Dataset{
		{"order_id": "o1", "order_purchase_timestamp": ts("2024-01-01 10:00:00")},
	})
	require.NoError(t, err)

	items := dataset.Dataset{
		{"order_id": "o1", "order_item_id": 1, "quantity": 1},
		{"order_id": "o1", "order_item_id": 2, "quantity": 1},
		{"order_id": "o1", "order_item_id": 3, "quantity": 1},
	}
	_, err = l.Load(ctx, models.TableOrderItems, items)
	require.NoError(t, err)

	items[1]["quantity"] = 4
	res, err := l.Load(ctx, models.TableOrderItems, items)
	require.NoError(t, err)
	assert.Equal(t, 0, res.RowsInserted)
	assert.Equal(t, 3, res.RowsUpdated)

	var item models.DeliveryLineItem
	require.NoError(t, db.NewSelect().Model(&item).Where("order_item_id = ?", 2).Scan(ctx))
	assert.Equal(t, 4, item.Quantity)
	assert.Equal(t, 3, count(t, db, models.TableOrderItems))
}

func TestDeleteAppliesReferenceRules(t *testing.T) {
	ctx := context.Background()
	db, l, _ := setup(t)

	_, err := l.Load(ctx, models.TableCustomers, clientBatch())
	require.NoError(t, err)
	_, err = l.Load(ctx, models.TableOrders, dataset.Dataset{
		{"order_id": "o1", "customer_id": "c1", "order_purchase_timestamp": ts("2024-01-01 10:00:00")},
	})
	require.NoError(t, err)
	_, err = l.Load(ctx, models.TableOrderItems, dataset.Dataset{
		{"order_id": "o1", "order_item_id": 1, "quantity": 1},
	})
	require.NoError(t, err)

	n, err := l.Delete(ctx, models.TableCustomers, []string{"c1"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var d models.Delivery
	require.NoError(t, db.NewSelect().Model(&d).Where("order_id = ?", "o1").Scan(ctx))
	assert.Nil(t, d.CustomerID)

	n, err = l.Delete(ctx, models.TableOrders, []string{"o1"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, count(t, db, models.TableOrderItems))

	_, err = l.Delete(ctx, models.TableOrderItems, []string{"x"})
	assert.ErrorIs(t, err, ErrCompositeKey)
}

func TestLoadUnknownTableAndCancellation(t *testing.T) {
	db, l, _ := setup(t)

	_, err := l.Load(context.Background(), "warehouses", nil)
	assert.ErrorIs(t, err, ErrUnknownTable)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Load(ctx, models.TableCustomers, clientBatch())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, count(t, db, models.TableCustomers))
}

func TestCatalogOrderedByRank(t *testing.T) {
	tables := Catalog()
	require.Len(t, tables, 5)
	for i := 1; i < len(tables); i++ {
		assert.LessOrEqual(t, tables[i-1].Rank, tables[i].Rank)
	}
	assert.Equal(t, models.TableOrderItems, tables[len(tables)-1].Name)
	assert.Equal(t, 1, Rank(models.TableOrders))
	assert.Equal(t, -1, Rank("nope"))
	assert.Len(t, Dependents(models.TableOrders), 1)
}
