package entity

import (
	"github.com/joseph-ayodele/form-filler/constants"
)

// QualityIssue is one problem found in a filled form.
type QualityIssue struct {
	FieldID         string              `json:"field_id"`
	FieldName       string              `json:"field_name,omitempty"`
	Type            constants.IssueType `json:"issue_type"`
	CurrentValue    string              `json:"current_value,omitempty"`
	ExpectedPattern string              `json:"expected_pattern,omitempty"`
	Confidence      float64             `json:"confidence"`
	Suggestion      string              `json:"suggestion"`
	Severity        constants.Severity  `json:"severity"`
}

// QualityAssessment summarizes one quality pass over a filled form.
type QualityAssessment struct {
	Score              float64        `json:"score"`
	Issues             []QualityIssue `json:"issues"`
	TotalChecks        int            `json:"total_checks"`
	PassedChecks       int            `json:"passed_checks"`
	RequiresCorrection bool           `json:"requires_correction"`
	Iteration          int            `json:"iteration"`
}

// NewAssessment derives score and the correction flag from the raw counts and issues.
func NewAssessment(issues []QualityIssue, total, passed, iteration int) QualityAssessment {
	if passed > total {
		passed = total
	}
	if passed < 0 {
		passed = 0
	}
	score := 0.0
	if total > 0 {
		score = float64(passed) / float64(total)
	}
	requires := false
	for _, is := range issues {
		if is.Severity.NeedsCorrection() {
			requires = true
			break
		}
	}
	if issues == nil {
		issues = []QualityIssue{}
	}
	return QualityAssessment{
		Score:              score,
		Issues:             issues,
		TotalChecks:        total,
		PassedChecks:       passed,
		RequiresCorrection: requires,
		Iteration:          iteration,
	}
}

// ReferencePattern is what a filled sample form teaches about one field.
type ReferencePattern struct {
	FieldID      string                     `json:"field_id"`
	Label        string                     `json:"label"`
	Value        string                     `json:"value"`
	Category     constants.SemanticCategory `json:"semantic_category"`
	FieldType    constants.FieldType        `json:"field_type"`
	ValuePattern constants.ValuePattern     `json:"value_pattern"`
}

// LabeledValue is one label/value row read from a filled sample form.
type LabeledValue struct {
	Label string `json:"label"`
	Value string `json:"value"`
}
