package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DeliveryStatus is the lifecycle state of an order.
type DeliveryStatus string

const (
	StatusCreated     DeliveryStatus = "created"
	StatusPending     DeliveryStatus = "pending"
	StatusApproved    DeliveryStatus = "approved"
	StatusInvoiced    DeliveryStatus = "invoiced"
	StatusProcessing  DeliveryStatus = "processing"
	StatusShipped     DeliveryStatus = "shipped"
	StatusDelivered   DeliveryStatus = "delivered"
	StatusUnavailable DeliveryStatus = "unavailable"
	StatusCanceled    DeliveryStatus = "canceled"
)

// DeliveryStatuses is the allow-list used by validation.
func DeliveryStatuses() []string {
	return []string{
		string(StatusCreated),
		string(StatusPending),
		string(StatusApproved),
		string(StatusInvoiced),
		string(StatusProcessing),
		string(StatusShipped),
		string(StatusDelivered),
		string(StatusUnavailable),
		string(StatusCanceled),
	}
}

// RunStatus is the state of an etl_run_log row.
type RunStatus string

const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
)

// DataSource tags provenance of extracted rows.
type DataSource string

const (
	SourceFakeStore DataSource = "fake_store_api"
	SourceOlist     DataSource = "olist_csv"
)

// Table names as persisted.
const (
	TableCustomers  = "customers"
	TableSellers    = "sellers"
	TableProducts   = "products"
	TableOrders     = "orders"
	TableOrderItems = "order_items"
	TableRunLog     = "etl_run_log"
)

// DeliveryDurationHours returns purchase→delivery in hours rounded to 2 places.
// It is absent when either timestamp is absent or delivery precedes purchase.
func DeliveryDurationHours(purchase, delivered *time.Time) decimal.NullDecimal {
	if purchase == nil || delivered == nil || purchase.IsZero() || delivered.IsZero() {
		return decimal.NullDecimal{}
	}
	d := delivered.Sub(*purchase)
	if d < 0 {
		return decimal.NullDecimal{}
	}
	hours := decimal.NewFromInt(int64(d / time.Second)).Div(decimal.NewFromInt(3600))
	return decimal.NewNullDecimal(hours.Round(2))
}

// MaxShippingCostRatio is the largest value shipping_cost_ratio (DECIMAL(6,4)) holds.
var MaxShippingCostRatio = decimal.RequireFromString("99.9999")

// ShippingCostRatio returns freight/price rounded to 4 places.
// It is absent when price is absent or zero, or when the ratio does not fit
// the column.
func ShippingCostRatio(price, freight decimal.NullDecimal) decimal.NullDecimal {
	if !price.Valid || !freight.Valid || price.Decimal.IsZero() {
		return decimal.NullDecimal{}
	}
	ratio := freight.Decimal.Div(price.Decimal).Round(4)
	if ratio.Abs().GreaterThan(MaxShippingCostRatio) {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(ratio)
}
