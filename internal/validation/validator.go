// Package validation evaluates declarative data-quality rules against a
// dataset and reports every failure in a single pass.
package validation

import (
	"encoding/json"

	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/dataset"
)

// Report summarizes a validation run.
type Report struct {
	Passed       bool        `json:"passed"`
	TotalRecords int         `json:"total_records"`
	Errors       []RuleError `json:"errors"`
}

// RuleError describes one failed rule.
type RuleError struct {
	RuleName           string `json:"rule_name"`
	Field              string `json:"field,omitempty"`
	FailingRecordCount int    `json:"failing_record_count"`
	SampleValues       []any  `json:"sample_values,omitempty"`
}

// Validate runs every rule in order. It never stops at the first failure.
func Validate(ds dataset.Dataset, rules Ruleset) Report {
	report := Report{Passed: true, TotalRecords: len(ds), Errors: []RuleError{}}

	for _, rule := range rules {
		outcome := rule.Evaluate(ds)
		if outcome.Passed {
			continue
		}
		report.Passed = false
		report.Errors = append(report.Errors, RuleError{
			RuleName:           rule.Name(),
			Field:              rule.Field(),
			FailingRecordCount: outcome.FailingCount,
			SampleValues:       formatSamples(outcome.Samples),
		})
	}

	return report
}

// FailingRules returns the names of the failed rules.
func (r Report) FailingRules() []string {
	names := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		names = append(names, e.RuleName)
	}
	return names
}

// ErrorText serializes the failures for the run log. Empty when the report passed.
func (r Report) ErrorText() string {
	if len(r.Errors) == 0 {
		return ""
	}
	b, err := json.Marshal(r.Errors)
	if err != nil {
		return ""
	}
	return string(b)
}

func formatSamples(values []any) []any {
	if len(values) == 0 {
		return nil
	}
	out := make([]any, len(values))
	for i, v := range values {
		if v == nil {
			continue
		}
		out[i] = dataset.Format(v)
	}
	return out
}
