package match

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/form-filler/constants"
	"github.com/joseph-ayodele/form-filler/internal/entity"
)

func cand(s constants.Strategy, value string, score float64) *entity.CandidateMatch {
	return &entity.CandidateMatch{Strategy: s, Value: value, FinalScore: score}
}

func TestShouldUpdate(t *testing.T) {
	m := NewMatcher(nil)
	company := entity.FieldDescriptor{ID: "c", Name: "Arbeitgeber"}
	companyEmail := entity.FieldDescriptor{ID: "ce", Name: "Firma E-Mail", Type: constants.FieldEmail}
	plain := entity.FieldDescriptor{ID: "p", Name: "Telefon"}

	tests := []struct {
		name  string
		field entity.FieldDescriptor
		next  *entity.CandidateMatch
		cur   *entity.CandidateMatch
		want  bool
	}{
		{"no current", plain, cand(constants.StrategyPattern, "1", 0.1), nil, true},
		{"general margin not met", plain, cand(constants.StrategyLLM, "1", 0.84), cand(constants.StrategyPattern, "2", 0.8), false},
		{"general margin met", plain, cand(constants.StrategyLLM, "1", 0.86), cand(constants.StrategyPattern, "2", 0.8), true},
		{"company llm org suffix wins", company, cand(constants.StrategyLLM, "Acme GmbH", 0.6), cand(constants.StrategyPattern, "Jane Doe", 0.9), true},
		{"company suffix on both needs margin", company, cand(constants.StrategyLLM, "Acme GmbH", 0.95), cand(constants.StrategyPattern, "Beta AG", 0.9), false},
		{"company margin met", company, cand(constants.StrategyPattern, "Acme Holding", 0.85), cand(constants.StrategyLLM, "Acme", 0.7), true},
		{"company email strictly higher", companyEmail, cand(constants.StrategyPattern, "info@acme.de", 0.81), cand(constants.StrategyLLM, "x@acme.de", 0.8), true},
		{"company email equal", companyEmail, cand(constants.StrategyPattern, "info@acme.de", 0.8), cand(constants.StrategyLLM, "x@acme.de", 0.8), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.shouldUpdate(tt.next, tt.cur, tt.field))
		})
	}
}

func TestUpdateMarginsConfigurable(t *testing.T) {
	m := NewMatcher(nil, WithUpdateMargins(0, 0))
	plain := entity.FieldDescriptor{ID: "p", Name: "Telefon"}
	assert.True(t, m.shouldUpdate(cand(constants.StrategyLLM, "1", 0.81), cand(constants.StrategyPattern, "2", 0.8), plain))
}

func TestPatternsForEmailAreExclusive(t *testing.T) {
	m := NewMatcher(nil)
	pats := m.patternsFor(entity.FieldDescriptor{Name: "E-Mail Datum", Type: constants.FieldEmail})
	// date patterns registered before the email check are kept, nothing after it
	assert.Len(t, pats, len(datePatterns)+len(emailPatterns))
	pats = m.patternsFor(entity.FieldDescriptor{Name: "E-Mail", Type: constants.FieldEmail})
	assert.Len(t, pats, len(emailPatterns))
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "kundennummer", normalizeName("txt_Kunden-Nummer"))
	assert.Equal(t, "email", normalizeName("E Mail Field"))
}
