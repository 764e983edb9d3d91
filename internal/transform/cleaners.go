// Package transform cleans extracted datasets before validation.
package transform

import (
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/dataset"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/models"
)

// Stats counts what a cleaning pass removed.
type Stats struct {
	Input      int
	Output     int
	Duplicates int
	Dropped    int
	Filled     int
}

type Cleaner struct {
	log *zap.Logger
}

func New(log *zap.Logger) *Cleaner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cleaner{log: log}
}

// Clean applies the table's cleaning steps and returns a new dataset.
// Unknown tables only get whitespace trimming.
func (c *Cleaner) Clean(table string, ds dataset.Dataset) (dataset.Dataset, Stats) {
	stats := Stats{Input: len(ds)}
	out := ds.Clone()
	TrimStrings(out)

	switch table {
	case models.TableCustomers:
		Rename(out, "user_id", "customer_id")
		out, stats.Dropped = DropMissing(out, "customer_id")
		out, stats.Duplicates = Dedupe(out, "customer_id")
		Normalize(out, strings.ToUpper, "customer_state")
		Normalize(out, strings.ToLower, "customer_city")

	case models.TableSellers:
		out, stats.Dropped = DropMissing(out, "seller_id")
		out, stats.Duplicates = Dedupe(out, "seller_id")
		Normalize(out, strings.ToUpper, "seller_state")
		Normalize(out, strings.ToLower, "seller_city")

	case models.TableProducts:
		Rename(out, "id", "product_id")
		out, stats.Dropped = DropMissing(out, "product_id")
		out, stats.Duplicates = Dedupe(out, "product_id")
		Normalize(out, strings.ToLower, "category")
		stats.Filled = FillMissing(out, "price", decimal.Zero)

	case models.TableOrders:
		Rename(out, "user_id", "customer_id")
		out, stats.Duplicates = Dedupe(out, "order_id")
		out, stats.Dropped = DropMissing(out, "order_id", "order_purchase_timestamp")
		Normalize(out, strings.ToLower, "order_status")
		for _, r := range out {
			r["delivery_duration_hours"] = dataset.FromNullDecimal(models.DeliveryDurationHours(
				r.TimePtr("order_purchase_timestamp"), r.TimePtr("order_delivered_customer_date")))
		}

	case models.TableOrderItems:
		out, stats.Dropped = DropMissing(out, "order_id", "order_item_id")
		out, stats.Duplicates = Dedupe(out, "order_id", "order_item_id")
		stats.Filled = FillMissing(out, "freight_value", decimal.Zero) + FillMissing(out, "quantity", 1)
		for _, r := range out {
			r["shipping_cost_ratio"] = dataset.FromNullDecimal(models.ShippingCostRatio(r.NullDecimal("price"), r.NullDecimal("freight_value")))
		}
	}

	stats.Output = len(out)
	c.log.Info("dataset cleaned",
		zap.String("table", table),
		zap.Int("input", stats.Input),
		zap.Int("output", stats.Output),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("dropped", stats.Dropped),
		zap.Int("filled", stats.Filled),
	)
	return out, stats
}

// Dedupe keeps the first record per key. Records with a null key component
// are kept.
func Dedupe(ds dataset.Dataset, fields ...string) (dataset.Dataset, int) {
	seen := make(map[string]bool, len(ds))
	out := ds[:0:0]
	for _, r := range ds {
		key, ok := r.Key(fields...)
		if ok && seen[key] {
			continue
		}
		if ok {
			seen[key] = true
		}
		out = append(out, r)
	}
	return out, len(ds) - len(out)
}

// DropMissing removes records where any of fields is null.
func DropMissing(ds dataset.Dataset, fields ...string) (dataset.Dataset, int) {
	out := ds[:0:0]
	for _, r := range ds {
		if _, ok := r.Key(fields...); ok {
			out = append(out, r)
		}
	}
	return out, len(ds) - len(out)
}

// FillMissing sets field to v wherever it is null and returns how many
// records changed.
func FillMissing(ds dataset.Dataset, field string, v any) int {
	n := 0
	for _, r := range ds {
		if r.IsNull(field) {
			r[field] = v
			n++
		}
	}
	return n
}

// Normalize applies fn to the string values of fields.
func Normalize(ds dataset.Dataset, fn func(string) string, fields ...string) {
	for _, r := range ds {
		for _, f := range fields {
			if s, ok := r[f].(string); ok {
				r[f] = fn(s)
			}
		}
	}
}

// Rename moves from to to unless to is already present.
func Rename(ds dataset.Dataset, from, to string) {
	for _, r := range ds {
		v, ok := r[from]
		if !ok {
			continue
		}
		if _, exists := r[to]; !exists {
			r[to] = v
		}
		delete(r, from)
	}
}

// TrimStrings strips surrounding whitespace and turns empty strings into nulls.
func TrimStrings(ds dataset.Dataset) {
	for _, r := range ds {
		for k, v := range r {
			s, ok := v.(string)
			if !ok {
				continue
			}
			if s = strings.TrimSpace(s); s == "" {
				r[k] = nil
			} else {
				r[k] = s
			}
		}
	}
}
