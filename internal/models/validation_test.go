package models

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func ts(s string) *time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestValidateKey(t *testing.T) {
	if err := ValidateKey("order_id", "o1"); err != nil {
		t.Fatalf("expected valid key, got %v", err)
	}
	if err := ValidateKey("order_id", ""); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey for empty key, got %v", err)
	}
	err := ValidateKey("order_id", strings.Repeat("x", MaxKeyLength+1))
	if !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey for oversized key, got %v", err)
	}
	if err.Error() != "invalid key: order_id exceeds 50 characters" {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestChronological(t *testing.T) {
	if !Chronological(ts("2024-01-01 10:00:00"), nil, ts("2024-01-02 10:00:00")) {
		t.Fatalf("absent timestamps should be skipped")
	}
	if Chronological(ts("2024-01-05 10:00:00"), ts("2024-01-03 10:00:00")) {
		t.Fatalf("expected out-of-order chain to fail")
	}
}

func TestDeliveryHelpers(t *testing.T) {
	d := &Delivery{
		Status:                StatusDelivered,
		DeliveredCustomerDate: ts("2024-01-10 00:00:00"),
		EstimatedDeliveryDate: ts("2024-01-08 00:00:00"),
	}
	if !d.IsDelivered() {
		t.Fatalf("expected delivered")
	}
	if !d.IsLate() {
		t.Fatalf("expected late delivery")
	}
	d.EstimatedDeliveryDate = nil
	if d.IsLate() {
		t.Fatalf("expected not late without estimate")
	}
}

func TestDeliveryDurationHours(t *testing.T) {
	got := DeliveryDurationHours(ts("2024-01-01 10:00:00"), ts("2024-01-02 12:30:00"))
	if !got.Valid {
		t.Fatalf("expected duration")
	}
	if want := decimal.RequireFromString("26.5"); !got.Decimal.Equal(want) {
		t.Fatalf("expected %s hours, got %s", want, got.Decimal)
	}

	third := DeliveryDurationHours(ts("2024-01-01 10:00:00"), ts("2024-01-01 10:20:00"))
	if want := decimal.RequireFromString("0.33"); !third.Decimal.Equal(want) {
		t.Fatalf("expected rounding to 2 places, got %s", third.Decimal)
	}

	if DeliveryDurationHours(ts("2024-01-01 10:00:00"), nil).Valid {
		t.Fatalf("expected absent duration without delivery date")
	}
	if DeliveryDurationHours(nil, ts("2024-01-01 10:00:00")).Valid {
		t.Fatalf("expected absent duration without purchase date")
	}
}

func TestShippingCostRatio(t *testing.T) {
	price := decimal.NewNullDecimal(decimal.RequireFromString("30"))
	freight := decimal.NewNullDecimal(decimal.RequireFromString("10"))

	got := ShippingCostRatio(price, freight)
	if !got.Valid || !got.Decimal.Equal(decimal.RequireFromString("0.3333")) {
		t.Fatalf("unexpected ratio: %v", got)
	}

	zero := decimal.NewNullDecimal(decimal.Zero)
	if ShippingCostRatio(zero, freight).Valid {
		t.Fatalf("expected absent ratio for zero price")
	}
	if ShippingCostRatio(decimal.NullDecimal{}, freight).Valid {
		t.Fatalf("expected absent ratio for missing price")
	}

	cheap := decimal.NewNullDecimal(decimal.RequireFromString("0.10"))
	heavy := decimal.NewNullDecimal(decimal.RequireFromString("15.00"))
	if ShippingCostRatio(cheap, heavy).Valid {
		t.Fatalf("expected absent ratio when it overflows DECIMAL(6,4)")
	}
	edge := ShippingCostRatio(decimal.NewNullDecimal(decimal.NewFromInt(1)), decimal.NewNullDecimal(MaxShippingCostRatio))
	if !edge.Valid || !edge.Decimal.Equal(MaxShippingCostRatio) {
		t.Fatalf("expected ratio at the column limit to be kept, got %v", edge)
	}
}

func TestRunRecordIsFinal(t *testing.T) {
	r := &RunRecord{Status: RunRunning}
	if r.IsFinal() {
		t.Fatalf("running record is not final")
	}
	r.Status = RunFailed
	if !r.IsFinal() {
		t.Fatalf("failed record is final")
	}
}
