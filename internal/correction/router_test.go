package correction_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/form-filler/constants"
	"github.com/joseph-ayodele/form-filler/internal/correction"
	"github.com/joseph-ayodele/form-filler/internal/entity"
	"github.com/joseph-ayodele/form-filler/internal/quality"
)

func router() *correction.Router {
	return correction.NewRouter(0, quality.NewClassifier(nil), nil)
}

func assessment(issues ...entity.QualityIssue) entity.QualityAssessment {
	return entity.NewAssessment(issues, 10, 10-len(issues), 0)
}

var birthAsDocumentDate = entity.QualityIssue{
	FieldID:      "eingang",
	FieldName:    "Eingangsdatum",
	Type:         constants.IssueTemporalInconsistency,
	CurrentValue: "12.03.1990",
	Suggestion:   "Use the date of the cover letter",
	Severity:     constants.SeverityHigh,
}

func TestRouteStates(t *testing.T) {
	formatHigh := entity.QualityIssue{FieldID: "mail", Type: constants.IssueFormatError, CurrentValue: "x", Severity: constants.SeverityHigh}
	formatMedium := entity.QualityIssue{FieldID: "mail", Type: constants.IssueFormatError, CurrentValue: "x", Severity: constants.SeverityMedium}
	missing := entity.QualityIssue{FieldID: "ort", Type: constants.IssueMissingField, Severity: constants.SeverityMedium}

	tests := []struct {
		name      string
		in        entity.QualityAssessment
		iteration int
		want      constants.CorrectionState
		wantIter  int
	}{
		{"clean form", assessment(), 0, constants.StateCompleted, 0},
		{"low severity only", assessment(entity.QualityIssue{FieldID: "a", Type: constants.IssueFormatError, Severity: constants.SeverityLow}), 0, constants.StateCompleted, 0},
		{"semantic issue", assessment(birthAsDocumentDate, formatHigh), 0, constants.StateSemanticCorrection, 1},
		{"high format issue", assessment(formatHigh), 1, constants.StateFormatCorrection, 2},
		{"medium format issue", assessment(formatMedium), 0, constants.StateCompleted, 0},
		{"missing field", assessment(missing), 0, constants.StateCompleted, 0},
		{"iteration bound", assessment(birthAsDocumentDate), 2, constants.StateCompleted, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			act := router().Route(tt.in, tt.iteration)
			assert.Equal(t, tt.want, act.State)
			assert.Equal(t, tt.wantIter, act.Iteration)
		})
	}
}

func TestSemanticCorrectionContext(t *testing.T) {
	act := router().Route(assessment(birthAsDocumentDate), 0)

	require.Equal(t, constants.StateSemanticCorrection, act.State)
	assert.Contains(t, act.ContextBlock, "expects a document/submission date, not a birth date")
	assert.Contains(t, act.ContextBlock, `avoid value "12.03.1990"`)
	assert.Contains(t, act.ContextBlock, "Use the date of the cover letter")

	hint := act.FieldHints["eingang"]
	assert.Equal(t, []string{"12.03.1990"}, hint.Avoid)
	assert.Equal(t, "Use the date of the cover letter", hint.Note)
}

func TestBirthDateContext(t *testing.T) {
	future := entity.QualityIssue{
		FieldID:      "geb",
		FieldName:    "Geburtsdatum",
		Type:         constants.IssueTemporalInconsistency,
		CurrentValue: "01.01.2030",
		Severity:     constants.SeverityCritical,
	}
	act := router().Route(assessment(future), 0)
	assert.Contains(t, act.ContextBlock, "expects the person's date of birth")
}

func TestLoopIsBounded(t *testing.T) {
	loop := router().NewLoop()
	bad := assessment(birthAsDocumentDate)

	var states []constants.CorrectionState
	for i := 0; i < 5; i++ {
		act := loop.Next(bad)
		states = append(states, act.State)
		if act.Done() {
			break
		}
	}

	assert.Equal(t, []constants.CorrectionState{
		constants.StateSemanticCorrection,
		constants.StateSemanticCorrection,
		constants.StateCompleted,
	}, states)
	assert.Equal(t, correction.DefaultMaxIterations, loop.Iteration())
	assert.Len(t, loop.History(), 3)

	loop.Reset()
	assert.Zero(t, loop.Iteration())
	assert.Equal(t, constants.StateSemanticCorrection, loop.Next(bad).State)
}
