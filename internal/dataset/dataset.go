// Package dataset holds the tabular shape exchanged between the extract,
// transform, validation and load stages.
package dataset

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Record is one row keyed by column name.
type Record map[string]any

// Dataset is an ordered sequence of uniformly shaped records.
type Dataset []Record

// IsNull reports whether field is missing or holds a null value.
func (r Record) IsNull(field string) bool {
	v, ok := r[field]
	if !ok {
		return true
	}
	return IsNullValue(v)
}

// IsNullValue reports whether v represents an absent value.
func IsNullValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case decimal.NullDecimal:
		return !val.Valid
	case *decimal.Decimal:
		return val == nil
	case *time.Time:
		return val == nil
	case *string:
		return val == nil
	case time.Time:
		return val.IsZero()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

// Value returns the dereferenced value of field, or nil when it is null.
func (r Record) Value(field string) any {
	if r.IsNull(field) {
		return nil
	}
	switch v := r[field].(type) {
	case decimal.NullDecimal:
		return v.Decimal
	case *decimal.Decimal:
		return *v
	case *time.Time:
		return *v
	case *string:
		return *v
	default:
		return v
	}
}

// Number coerces field to float64. ok is false for null or non-numeric values.
func (r Record) Number(field string) (float64, bool) {
	v := r.Value(field)
	if v == nil {
		return 0, false
	}
	return ToFloat(v)
}

// ToFloat converts common numeric representations to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case decimal.Decimal:
		return n.InexactFloat64(), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Decimal coerces field to a decimal. ok is false for null or non-numeric values.
func (r Record) Decimal(field string) (decimal.Decimal, bool) {
	switch v := r.Value(field).(type) {
	case nil:
		return decimal.Decimal{}, false
	case decimal.Decimal:
		return v, true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	default:
		f, ok := ToFloat(v)
		if !ok {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(f), true
	}
}

// Time returns field as a time. ok is false when null or not a time.
func (r Record) Time(field string) (time.Time, bool) {
	t, ok := r.Value(field).(time.Time)
	return t, ok
}

// String formats field for keys and report samples. Null values format as "".
func (r Record) String(field string) string {
	v := r.Value(field)
	if v == nil {
		return ""
	}
	return Format(v)
}

// Format renders a value the same way regardless of its concrete numeric type.
func Format(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case decimal.Decimal:
		return val.String()
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

// Key joins the formatted values of fields. ok is false if any part is null.
func (r Record) Key(fields ...string) (string, bool) {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if r.IsNull(f) {
			return "", false
		}
		parts = append(parts, r.String(f))
	}
	return strings.Join(parts, "|"), true
}

// Fields returns the record's column names in sorted order.
func (r Record) Fields() []string {
	names := make([]string, 0, len(r))
	for k := range r {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Clone returns a copy of the dataset with cloned records.
func (d Dataset) Clone() Dataset {
	out := make(Dataset, len(d))
	for i, r := range d {
		out[i] = r.Clone()
	}
	return out
}

// Column returns the values of field in record order.
func (d Dataset) Column(field string) []any {
	out := make([]any, len(d))
	for i, r := range d {
		out[i] = r.Value(field)
	}
	return out
}

// TimePtr returns field as a *time.Time, nil when absent.
func (r Record) TimePtr(field string) *time.Time {
	t, ok := r.Time(field)
	if !ok {
		return nil
	}
	return &t
}

// NullDecimal returns field as a decimal.NullDecimal.
func (r Record) NullDecimal(field string) decimal.NullDecimal {
	d, ok := r.Decimal(field)
	if !ok {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// FromNullDecimal unwraps d for storage in a Record, nil when invalid.
func FromNullDecimal(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal
}
