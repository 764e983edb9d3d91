package validation

import (
	"time"

	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/dataset"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/models"
)

// ClientRules checks the customers dataset.
func ClientRules() Ruleset {
	return Ruleset{
		NotNull("customer_id", 0),
		Uniqueness("customer_id"),
	}
}

// HubRules checks the sellers dataset.
func HubRules() Ruleset {
	return Ruleset{
		NotNull("seller_id", 0),
		Uniqueness("seller_id"),
	}
}

// CargoTypeRules checks the products dataset.
func CargoTypeRules() Ruleset {
	return Ruleset{
		NotNull("product_id", 0),
		Uniqueness("product_id"),
		AtLeast("price", 0),
		Between("rating_rate", 0, 5),
		AtLeast("rating_count", 0),
	}
}

// DeliveryRules checks the orders dataset.
func DeliveryRules() Ruleset {
	return Ruleset{
		NotNull("order_id", 0),
		NotNull("customer_id", 0),
		NotNull("order_purchase_timestamp", 0),
		Uniqueness("order_id"),
		OneOf("order_status", models.DeliveryStatuses()...),
		AtLeast("delivery_duration_hours", 0),
	}
}

// LineItemRules checks the order_items dataset.
func LineItemRules() Ruleset {
	return Ruleset{
		NotNull("order_id", 0),
		NotNull("product_id", 0),
		Uniqueness("order_id", "order_item_id"),
		AtLeast("quantity", 1),
		AtLeast("price", 0),
		AtLeast("freight_value", 0),
	}
}

// ForTable returns the stock ruleset for a persisted table name.
func ForTable(table string) Ruleset {
	switch table {
	case models.TableCustomers:
		return ClientRules()
	case models.TableSellers:
		return HubRules()
	case models.TableProducts:
		return CargoTypeRules()
	case models.TableOrders:
		return DeliveryRules()
	case models.TableOrderItems:
		return LineItemRules()
	}
	return nil
}

// Sequencing checks that order milestones (purchase, approval, carrier
// handoff, customer delivery) are in order, tolerating up to maxOutOfOrder of
// the records breaking the sequence.
func Sequencing(table string, maxOutOfOrder float64) Ruleset {
	if table != models.TableOrders {
		return nil
	}
	return Ruleset{Predicate{
		RuleName:        "chronological_timestamps",
		Check:           chronological,
		SampleField:     "order_id",
		MaxFailFraction: maxOutOfOrder,
	}}
}

func chronological(r dataset.Record) bool {
	fields := []string{
		"order_purchase_timestamp",
		"order_approved_at",
		"order_delivered_carrier_date",
		"order_delivered_customer_date",
	}
	chain := make([]*time.Time, 0, len(fields))
	for _, f := range fields {
		if t, ok := r.Time(f); ok {
			chain = append(chain, &t)
		}
	}
	return models.Chronological(chain...)
}

// Completeness returns not-null checks on descriptive columns every source
// populates, tolerating up to maxNull of the records being empty.
func Completeness(table string, maxNull float64) Ruleset {
	switch table {
	case models.TableCustomers:
		return Ruleset{NotNull("customer_city", maxNull)}
	case models.TableSellers:
		return Ruleset{NotNull("seller_city", maxNull)}
	case models.TableProducts:
		return Ruleset{NotNull("category", maxNull)}
	case models.TableOrders:
		return Ruleset{NotNull("order_status", maxNull)}
	}
	return nil
}
