package validation

import (
	"fmt"
	"strings"

	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/dataset"
)

// maxSamples bounds the number of offending values kept per rule.
const maxSamples = 5

// Rule is a single declarative data-quality check.
type Rule interface {
	Name() string
	Field() string
	Evaluate(ds dataset.Dataset) Outcome
}

// Outcome is the result of evaluating one rule.
type Outcome struct {
	Passed       bool
	FailingCount int
	Samples      []any
}

// Ruleset is evaluated in order.
type Ruleset []Rule

// NotNullThreshold fails when the null fraction of Column exceeds MaxNullFraction.
type NotNullThreshold struct {
	Column          string
	MaxNullFraction float64
}

// NotNull builds a NotNullThreshold rule.
func NotNull(column string, maxNullFraction float64) NotNullThreshold {
	return NotNullThreshold{Column: column, MaxNullFraction: maxNullFraction}
}

func (r NotNullThreshold) Name() string  { return "not_null_threshold" }
func (r NotNullThreshold) Field() string { return r.Column }

func (r NotNullThreshold) Evaluate(ds dataset.Dataset) Outcome {
	nulls := 0
	for _, rec := range ds {
		if rec.IsNull(r.Column) {
			nulls++
		}
	}
	if len(ds) == 0 {
		return Outcome{Passed: true}
	}

	fraction := float64(nulls) / float64(len(ds))
	if fraction <= r.MaxNullFraction {
		return Outcome{Passed: true}
	}
	return Outcome{FailingCount: nulls}
}

// Unique fails when a non-null value, or tuple of values, repeats.
type Unique struct {
	Columns []string
}

// Uniqueness builds a Unique rule over one or more columns.
func Uniqueness(columns ...string) Unique {
	return Unique{Columns: columns}
}

func (r Unique) Name() string  { return "uniqueness" }
func (r Unique) Field() string { return strings.Join(r.Columns, ",") }

// Evaluate counts every occurrence after the first of a repeated key.
// Tuples with any null component are ignored.
func (r Unique) Evaluate(ds dataset.Dataset) Outcome {
	seen := make(map[string]int, len(ds))
	var out Outcome
	samples := newSampler()

	for _, rec := range ds {
		key, ok := rec.Key(r.Columns...)
		if !ok {
			continue
		}
		seen[key]++
		if seen[key] > 1 {
			out.FailingCount++
			samples.add(key)
		}
	}

	out.Passed = out.FailingCount == 0
	out.Samples = samples.values
	return out
}

// Range fails when a non-null value of Column falls outside [Min, Max].
// Nil bounds are open. Non-numeric values count as failures.
type Range struct {
	Column string
	Min    *float64
	Max    *float64
}

// Between builds a closed Range rule.
func Between(column string, min, max float64) Range {
	return Range{Column: column, Min: &min, Max: &max}
}

// AtLeast builds a Range rule with only a lower bound.
func AtLeast(column string, min float64) Range {
	return Range{Column: column, Min: &min}
}

// AtMost builds a Range rule with only an upper bound.
func AtMost(column string, max float64) Range {
	return Range{Column: column, Max: &max}
}

func (r Range) Name() string  { return "range" }
func (r Range) Field() string { return r.Column }

func (r Range) Evaluate(ds dataset.Dataset) Outcome {
	var out Outcome
	samples := newSampler()

	for _, rec := range ds {
		if rec.IsNull(r.Column) {
			continue
		}
		n, ok := rec.Number(r.Column)
		if ok && (r.Min == nil || n >= *r.Min) && (r.Max == nil || n <= *r.Max) {
			continue
		}
		out.FailingCount++
		samples.add(rec.Value(r.Column))
	}

	out.Passed = out.FailingCount == 0
	out.Samples = samples.values
	return out
}

// AllowedValues fails when a non-null value of Column is outside Values.
type AllowedValues struct {
	Column string
	Values []string
}

// OneOf builds an AllowedValues rule.
func OneOf(column string, values ...string) AllowedValues {
	return AllowedValues{Column: column, Values: values}
}

func (r AllowedValues) Name() string  { return "allowed_values" }
func (r AllowedValues) Field() string { return r.Column }

func (r AllowedValues) Evaluate(ds dataset.Dataset) Outcome {
	allowed := make(map[string]struct{}, len(r.Values))
	for _, v := range r.Values {
		allowed[v] = struct{}{}
	}

	var out Outcome
	samples := newSampler()
	for _, rec := range ds {
		if rec.IsNull(r.Column) {
			continue
		}
		if _, ok := allowed[rec.String(r.Column)]; ok {
			continue
		}
		out.FailingCount++
		samples.add(rec.Value(r.Column))
	}

	out.Passed = out.FailingCount == 0
	out.Samples = samples.values
	return out
}

// Predicate counts every record on which Check returns false or panics as
// failing. The rule fails when the failing fraction exceeds MaxFailFraction.
type Predicate struct {
	RuleName string
	Check    func(dataset.Record) bool
	// SampleField, when set, picks the value reported for failing records.
	SampleField     string
	MaxFailFraction float64
}

// Custom builds a Predicate rule.
func Custom(name string, check func(dataset.Record) bool) Predicate {
	return Predicate{RuleName: name, Check: check}
}

func (r Predicate) Name() string  { return r.RuleName }
func (r Predicate) Field() string { return r.SampleField }

func (r Predicate) Evaluate(ds dataset.Dataset) Outcome {
	var out Outcome
	samples := newSampler()

	for i, rec := range ds {
		if r.holds(rec) {
			continue
		}
		out.FailingCount++
		if r.SampleField != "" {
			samples.add(rec.Value(r.SampleField))
		} else {
			samples.add(fmt.Sprintf("record %d", i))
		}
	}

	out.Passed = out.FailingCount == 0 ||
		float64(out.FailingCount)/float64(len(ds)) <= r.MaxFailFraction
	out.Samples = samples.values
	return out
}

func (r Predicate) holds(rec dataset.Record) (ok bool) {
	if r.Check == nil {
		return false
	}
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return r.Check(rec)
}

type sampler struct {
	seen   map[string]struct{}
	values []any
}

func newSampler() *sampler {
	return &sampler{seen: make(map[string]struct{})}
}

// add keeps up to maxSamples distinct values in first-seen order.
func (s *sampler) add(v any) {
	if len(s.values) >= maxSamples {
		return
	}
	key := fmt.Sprint(v)
	if v != nil {
		key = dataset.Format(v)
	}
	if _, dup := s.seen[key]; dup {
		return
	}
	s.seen[key] = struct{}{}
	s.values = append(s.values, v)
}
