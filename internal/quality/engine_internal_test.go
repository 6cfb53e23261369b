package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/form-filler/constants"
	"github.com/joseph-ayodele/form-filler/internal/entity"
)

func TestDedupeKeepsMostSevere(t *testing.T) {
	in := []entity.QualityIssue{
		{FieldID: "a", Type: constants.IssueFormatError, Severity: constants.SeverityMedium},
		{FieldID: "b", Type: constants.IssueFormatError, Severity: constants.SeverityLow},
		{FieldID: "a", Type: constants.IssueFormatError, Severity: constants.SeverityHigh},
		{FieldID: "a", Type: constants.IssueRangeError, Severity: constants.SeverityLow},
		{FieldID: "a", Type: constants.IssueFormatError, Severity: constants.SeverityLow},
	}

	out := dedupe(in)
	assert.Len(t, out, 3)
	assert.Equal(t, "a", out[0].FieldID)
	assert.Equal(t, constants.SeverityHigh, out[0].Severity)
	assert.Equal(t, "b", out[1].FieldID)
	assert.Equal(t, constants.IssueRangeError, out[2].Type)
}
