package loader

import (
	"fmt"
	"sort"

	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/dataset"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/models"
)

// Reference is a foreign key from one of a table's columns to a parent table.
// Missing optional parents are stored as NULL, missing mandatory parents
// cause the record to be rejected.
type Reference struct {
	Field     string
	Table     string
	Column    string
	Mandatory bool
}

// Table describes how records for one persisted table are upserted.
type Table struct {
	Name       string
	Key        []string
	Identity   string
	Columns    []string
	Required   []string
	References []Reference
	Rank       int
	Derive     func(dataset.Record)
}

// Writable reports whether column may appear in an incoming record.
func (t Table) Writable(column string) bool {
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// IsKey reports whether column is part of the natural key.
func (t Table) IsKey(column string) bool {
	for _, k := range t.Key {
		if k == column {
			return true
		}
	}
	return false
}

// ignored columns are managed by the loader or the store.
func (t Table) ignored(column string) bool {
	return column == "created_at" || column == "updated_at" || (t.Identity != "" && column == t.Identity)
}

var provenance = []string{"source", "extracted_at"}

var catalog = []Table{
	{
		Name: models.TableCustomers,
		Key:  []string{"customer_id"},
		Columns: append([]string{
			"customer_id", "customer_unique_id", "customer_city", "customer_state", "customer_zip_code",
			"first_name", "last_name", "email", "phone", "street", "lat", "lng",
		}, provenance...),
		Required: []string{"customer_id"},
		Rank:     0,
	},
	{
		Name:     models.TableSellers,
		Key:      []string{"seller_id"},
		Columns:  append([]string{"seller_id", "seller_city", "seller_state", "seller_zip_code"}, provenance...),
		Required: []string{"seller_id"},
		Rank:     0,
	},
	{
		Name: models.TableProducts,
		Key:  []string{"product_id"},
		Columns: append([]string{
			"product_id", "title", "description", "category", "price", "image", "rating_rate", "rating_count",
		}, provenance...),
		Required: []string{"product_id"},
		Rank:     0,
	},
	{
		Name: models.TableOrders,
		Key:  []string{"order_id"},
		Columns: append([]string{
			"order_id", "customer_id", "order_status", "order_purchase_timestamp", "order_approved_at",
			"order_delivered_carrier_date", "order_delivered_customer_date", "order_estimated_delivery_date",
			"delivery_duration_hours",
		}, provenance...),
		Required: []string{"order_id", "order_purchase_timestamp"},
		References: []Reference{
			{Field: "customer_id", Table: models.TableCustomers, Column: "customer_id"},
		},
		Rank:   1,
		Derive: deriveDuration,
	},
	{
		Name:     models.TableOrderItems,
		Key:      []string{"order_id", "order_item_id"},
		Identity: "id",
		Columns: append([]string{
			"order_id", "order_item_id", "product_id", "seller_id", "quantity", "price", "freight_value",
			"shipping_cost_ratio", "shipping_limit_date",
		}, provenance...),
		Required: []string{"order_id", "order_item_id"},
		References: []Reference{
			{Field: "order_id", Table: models.TableOrders, Column: "order_id", Mandatory: true},
			{Field: "product_id", Table: models.TableProducts, Column: "product_id"},
			{Field: "seller_id", Table: models.TableSellers, Column: "seller_id"},
		},
		Rank:   2,
		Derive: deriveShippingRatio,
	},
}

// Catalog returns the entity tables ordered by dependency rank.
func Catalog() []Table {
	out := make([]Table, len(catalog))
	copy(out, catalog)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out
}

// Lookup finds a table by persisted name.
func Lookup(name string) (Table, error) {
	for _, t := range catalog {
		if t.Name == name {
			return t, nil
		}
	}
	return Table{}, fmt.Errorf("%w: %s", ErrUnknownTable, name)
}

// Rank returns the dependency rank of a table, or -1 when unknown.
func Rank(name string) int {
	t, err := Lookup(name)
	if err != nil {
		return -1
	}
	return t.Rank
}

// Dependent is a table holding a reference to some parent table.
type Dependent struct {
	Table Table
	Ref   Reference
}

// Dependents lists the tables referencing parent.
func Dependents(parent string) []Dependent {
	var out []Dependent
	for _, t := range catalog {
		for _, ref := range t.References {
			if ref.Table == parent {
				out = append(out, Dependent{Table: t, Ref: ref})
			}
		}
	}
	return out
}

func deriveDuration(r dataset.Record) {
	r["delivery_duration_hours"] = dataset.FromNullDecimal(models.DeliveryDurationHours(
		r.TimePtr("order_purchase_timestamp"),
		r.TimePtr("order_delivered_customer_date"),
	))
}

func deriveShippingRatio(r dataset.Record) {
	r["shipping_cost_ratio"] = dataset.FromNullDecimal(models.ShippingCostRatio(r.NullDecimal("price"), r.NullDecimal("freight_value")))
}
