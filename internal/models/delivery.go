package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Delivery is an order moving from purchase to the recipient (orders table).
type Delivery struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	OrderID               string              `bun:"order_id,pk,type:varchar(50)" json:"order_id"`
	CustomerID            *string             `bun:"customer_id,type:varchar(50)" json:"customer_id,omitempty"`
	Status                DeliveryStatus      `bun:"order_status,type:varchar(30)" json:"order_status"`
	PurchaseTimestamp     time.Time           `bun:"order_purchase_timestamp,notnull" json:"order_purchase_timestamp"`
	ApprovedAt            *time.Time          `bun:"order_approved_at" json:"order_approved_at,omitempty"`
	DeliveredCarrierDate  *time.Time          `bun:"order_delivered_carrier_date" json:"order_delivered_carrier_date,omitempty"`
	DeliveredCustomerDate *time.Time          `bun:"order_delivered_customer_date" json:"order_delivered_customer_date,omitempty"`
	EstimatedDeliveryDate *time.Time          `bun:"order_estimated_delivery_date" json:"order_estimated_delivery_date,omitempty"`
	DeliveryDurationHours decimal.NullDecimal `bun:"delivery_duration_hours,type:decimal(10,2)" json:"delivery_duration_hours"`
	Source                *string             `bun:"source,type:varchar(50)" json:"source,omitempty"`
	ExtractedAt           *time.Time          `bun:"extracted_at" json:"extracted_at,omitempty"`
	CreatedAt             time.Time           `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt             time.Time           `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`

	Client *Client             `bun:"rel:belongs-to,join:customer_id=customer_id" json:"client,omitempty"`
	Items  []*DeliveryLineItem `bun:"rel:has-many,join:order_id=order_id" json:"items,omitempty"`
}

// IsDelivered reports whether the order reached the recipient.
func (d *Delivery) IsDelivered() bool {
	return d.Status == StatusDelivered
}

// IsLate reports whether delivery happened after the estimate.
func (d *Delivery) IsLate() bool {
	if d.DeliveredCustomerDate == nil || d.EstimatedDeliveryDate == nil {
		return false
	}
	return d.DeliveredCustomerDate.After(*d.EstimatedDeliveryDate)
}

// Chronological reports whether the present timestamps are non-decreasing.
func Chronological(ts ...*time.Time) bool {
	var prev *time.Time
	for _, t := range ts {
		if t == nil || t.IsZero() {
			continue
		}
		if prev != nil && t.Before(*prev) {
			return false
		}
		prev = t
	}
	return true
}

// DeliveryLineItem is a single cargo line of an order (order_items table).
type DeliveryLineItem struct {
	bun.BaseModel `bun:"table:order_items,alias:oi"`

	ID                int64               `bun:"id,pk,autoincrement" json:"id"`
	OrderID           string              `bun:"order_id,notnull,type:varchar(50)" json:"order_id"`
	ProductID         *string             `bun:"product_id,type:varchar(50)" json:"product_id,omitempty"`
	SellerID          *string             `bun:"seller_id,type:varchar(50)" json:"seller_id,omitempty"`
	OrderItemID       int                 `bun:"order_item_id,notnull" json:"order_item_id"`
	Quantity          int                 `bun:"quantity,notnull,default:1" json:"quantity"`
	Price             decimal.NullDecimal `bun:"price,type:decimal(10,2)" json:"price"`
	FreightValue      decimal.NullDecimal `bun:"freight_value,type:decimal(10,2)" json:"freight_value"`
	ShippingCostRatio decimal.NullDecimal `bun:"shipping_cost_ratio,type:decimal(6,4)" json:"shipping_cost_ratio"`
	ShippingLimitDate *time.Time          `bun:"shipping_limit_date" json:"shipping_limit_date,omitempty"`
	Source            *string             `bun:"source,type:varchar(50)" json:"source,omitempty"`
	ExtractedAt       *time.Time          `bun:"extracted_at" json:"extracted_at,omitempty"`
	CreatedAt         time.Time           `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt         time.Time           `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`

	Delivery *Delivery `bun:"rel:belongs-to,join:order_id=order_id" json:"-"`
}
