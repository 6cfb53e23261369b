package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/form-filler/constants"
	"github.com/joseph-ayodele/form-filler/internal/entity"
)

func TestNewAssessment(t *testing.T) {
	tests := []struct {
		name         string
		issues       []entity.QualityIssue
		total        int
		passed       int
		wantScore    float64
		wantRequires bool
	}{
		{name: "no checks", total: 0, passed: 0, wantScore: 0},
		{name: "all passed", total: 4, passed: 4, wantScore: 1},
		{
			name:      "low severity does not require correction",
			issues:    []entity.QualityIssue{{FieldID: "a", Type: constants.IssueFormatError, Severity: constants.SeverityLow}},
			total:     2,
			passed:    1,
			wantScore: 0.5,
		},
		{
			name:         "medium severity requires correction",
			issues:       []entity.QualityIssue{{FieldID: "a", Type: constants.IssueFormatError, Severity: constants.SeverityMedium}},
			total:        2,
			passed:       1,
			wantScore:    0.5,
			wantRequires: true,
		},
		{name: "passed capped at total", total: 2, passed: 5, wantScore: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := entity.NewAssessment(tt.issues, tt.total, tt.passed, 0)
			assert.InDelta(t, tt.wantScore, a.Score, 1e-9)
			assert.Equal(t, tt.wantRequires, a.RequiresCorrection)
			assert.LessOrEqual(t, a.PassedChecks, a.TotalChecks)
			assert.NotNil(t, a.Issues)
		})
	}
}

func TestFoundClampsConfidence(t *testing.T) {
	o := entity.Found(entity.FieldMapping{FieldID: "x", Value: "v", Confidence: 1.4})
	assert.True(t, o.IsFound())
	assert.Equal(t, 1.0, o.Mapping.Confidence)
	assert.Equal(t, "not_found", entity.NotFound().Kind.String())
	assert.Equal(t, "boom", entity.CollaboratorError("boom").Reason)
}

func TestFormStructureFields(t *testing.T) {
	s := entity.FormStructure{Sections: []entity.Section{
		{Name: "Applicant", Fields: []entity.FieldDescriptor{{ID: "1", Name: "Name", Required: true}, {ID: "2", Name: "Age"}}},
		{Name: "Employer", Fields: []entity.FieldDescriptor{{ID: "3", Name: "Company", Section: "Arbeitgeber"}}},
	}}
	fields := s.Fields()
	assert.Len(t, fields, 3)
	assert.Equal(t, "Applicant", fields[0].Section)
	assert.Equal(t, "Arbeitgeber", fields[2].Section)
	assert.True(t, fields[0].Required)
}
