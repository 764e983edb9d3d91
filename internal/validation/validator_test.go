package validation

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/dataset"
)

func clients() dataset.Dataset {
	return dataset.Dataset{
		{"customer_id": "c1", "customer_state": "SP"},
		{"customer_id": "c2", "customer_state": nil},
		{"customer_id": "c3", "customer_state": "RJ"},
	}
}

func TestNullStateFailsZeroThreshold(t *testing.T) {
	report := Validate(clients(), Ruleset{NotNull("customer_state", 0.0)})

	assert.False(t, report.Passed)
	assert.Equal(t, 3, report.TotalRecords)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "not_null_threshold", report.Errors[0].RuleName)
	assert.Equal(t, "customer_state", report.Errors[0].Field)
	assert.Equal(t, 1, report.Errors[0].FailingRecordCount)
}

func TestNotNullThresholdTolerance(t *testing.T) {
	report := Validate(clients(), Ruleset{NotNull("customer_state", 0.34)})
	assert.True(t, report.Passed)
	assert.Empty(t, report.Errors)

	empty := Validate(nil, Ruleset{NotNull("customer_state", 0)})
	assert.True(t, empty.Passed)
	assert.Equal(t, 0, empty.TotalRecords)
}

func TestAllRulesRunWithoutShortCircuit(t *testing.T) {
	ds := dataset.Dataset{
		{"order_id": "o1", "order_status": "delivered", "price": -1},
		{"order_id": "o1", "order_status": "lost", "price": 5},
		{"order_id": nil, "order_status": "shipped", "price": 12},
	}
	rules := Ruleset{
		NotNull("order_id", 0),
		Uniqueness("order_id"),
		OneOf("order_status", "delivered", "shipped"),
		Between("price", 0, 10),
		Custom("always_true", func(dataset.Record) bool { return true }),
	}

	report := Validate(ds, rules)

	assert.False(t, report.Passed)
	assert.Equal(t, []string{"not_null_threshold", "uniqueness", "allowed_values", "range"}, report.FailingRules())
	assert.Equal(t, 1, report.Errors[1].FailingRecordCount)
	assert.Equal(t, []any{"o1"}, report.Errors[1].SampleValues)
	assert.Equal(t, []any{"lost"}, report.Errors[2].SampleValues)
	assert.Equal(t, 2, report.Errors[3].FailingRecordCount)
}

func TestUniquenessOnTuplesIgnoresNulls(t *testing.T) {
	ds := dataset.Dataset{
		{"order_id": "o1", "order_item_id": 1},
		{"order_id": "o1", "order_item_id": 2},
		{"order_id": "o1", "order_item_id": nil},
		{"order_id": "o1", "order_item_id": nil},
	}
	report := Validate(ds, Ruleset{Uniqueness("order_id", "order_item_id")})
	assert.True(t, report.Passed)

	ds = append(ds, dataset.Record{"order_id": "o1", "order_item_id": 2})
	report = Validate(ds, Ruleset{Uniqueness("order_id", "order_item_id")})
	require.False(t, report.Passed)
	assert.Equal(t, "order_id,order_item_id", report.Errors[0].Field)
	assert.Equal(t, []any{"o1|2"}, report.Errors[0].SampleValues)
}

func TestRangeBoundsAndTypes(t *testing.T) {
	ds := dataset.Dataset{
		{"rating": decimal.RequireFromString("4.5")},
		{"rating": 5},
		{"rating": nil},
		{"rating": "n/a"},
		{"rating": 5.5},
	}

	report := Validate(ds, Ruleset{Between("rating", 0, 5)})
	require.Len(t, report.Errors, 1)
	assert.Equal(t, 2, report.Errors[0].FailingRecordCount)
	assert.Equal(t, []any{"n/a", "5.5"}, report.Errors[0].SampleValues)

	open := Validate(ds[:3], Ruleset{AtLeast("rating", 0), AtMost("rating", 5)})
	assert.True(t, open.Passed)
}

func TestSamplesAreCappedAndDistinct(t *testing.T) {
	ds := dataset.Dataset{}
	for _, s := range []string{"a", "b", "a", "c", "d", "e", "f", "g"} {
		ds = append(ds, dataset.Record{"status": s})
	}
	report := Validate(ds, Ruleset{OneOf("status", "z")})

	require.Len(t, report.Errors, 1)
	assert.Equal(t, 8, report.Errors[0].FailingRecordCount)
	assert.Equal(t, []any{"a", "b", "c", "d", "e"}, report.Errors[0].SampleValues)
}

func TestPredicatePanicsCountAsFailures(t *testing.T) {
	ds := dataset.Dataset{{"n": 1}, {"n": "x"}}
	rule := Predicate{
		RuleName:    "n_is_int",
		SampleField: "n",
		Check: func(r dataset.Record) bool {
			return r["n"].(int) > 0
		},
	}

	report := Validate(ds, Ruleset{rule})
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "n_is_int", report.Errors[0].RuleName)
	assert.Equal(t, "n", report.Errors[0].Field)
	assert.Equal(t, 1, report.Errors[0].FailingRecordCount)
	assert.Equal(t, []any{"x"}, report.Errors[0].SampleValues)
}

func TestErrorTextIsJSON(t *testing.T) {
	report := Validate(clients(), Ruleset{NotNull("customer_state", 0)})

	var decoded []RuleError
	require.NoError(t, json.Unmarshal([]byte(report.ErrorText()), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, 1, decoded[0].FailingRecordCount)

	assert.Empty(t, Validate(clients(), nil).ErrorText())
}

func TestDeliveryRules(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	ds := dataset.Dataset{
		{"order_id": "o1", "customer_id": "c1", "order_status": "delivered",
			"order_purchase_timestamp": t0, "order_delivered_customer_date": t0.Add(48 * time.Hour)},
		{"order_id": "o2", "customer_id": "c1", "order_status": "lost",
			"order_purchase_timestamp": t0},
	}

	report := Validate(ds, ForTable("orders"))
	require.False(t, report.Passed)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "allowed_values", report.Errors[0].RuleName)

	assert.NotEmpty(t, ForTable("order_items"))
	assert.Nil(t, ForTable("unknown"))
}

func TestSequencingToleratesCarrierBeforeApproval(t *testing.T) {
	t0 := time.Date(2018, 2, 1, 10, 0, 0, 0, time.UTC)
	order := func(id string, approved, carrier time.Duration) dataset.Record {
		return dataset.Record{
			"order_id": id, "customer_id": "c1", "order_status": "delivered",
			"order_purchase_timestamp":      t0,
			"order_approved_at":             t0.Add(approved),
			"order_delivered_carrier_date":  t0.Add(carrier),
			"order_delivered_customer_date": t0.Add(96 * time.Hour),
		}
	}
	ds := dataset.Dataset{
		order("o1", time.Hour, 24*time.Hour),
		order("o2", 3*time.Hour, time.Hour),
		order("o3", time.Hour, 24*time.Hour),
		order("o4", time.Hour, 24*time.Hour),
	}

	assert.True(t, Validate(ds, ForTable("orders")).Passed, "stock rules ignore milestone order")
	assert.True(t, Validate(ds, Sequencing("orders", 0.3)).Passed)

	strict := Validate(ds, Sequencing("orders", 0))
	require.False(t, strict.Passed)
	assert.Equal(t, "chronological_timestamps", strict.Errors[0].RuleName)
	assert.Equal(t, 1, strict.Errors[0].FailingRecordCount)
	assert.Equal(t, []any{"o2"}, strict.Errors[0].SampleValues)

	assert.Nil(t, Sequencing("customers", 0.3))
}

func TestCompletenessTolerance(t *testing.T) {
	ds := dataset.Dataset{
		{"customer_id": "c1", "customer_city": "x"},
		{"customer_id": "c2", "customer_city": nil},
		{"customer_id": "c3", "customer_city": "y"},
		{"customer_id": "c4", "customer_city": "z"},
	}
	assert.True(t, Validate(ds, Completeness("customers", 0.3)).Passed)
	assert.False(t, Validate(ds, Completeness("customers", 0.2)).Passed)
	assert.Nil(t, Completeness("order_items", 0.3))
}
