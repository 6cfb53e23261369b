package scoring_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/form-filler/constants"
	"github.com/joseph-ayodele/form-filler/internal/entity"
	"github.com/joseph-ayodele/form-filler/internal/scoring"
)

func candidates(values []string, context string) []*entity.CandidateMatch {
	out := make([]*entity.CandidateMatch, 0, len(values))
	for i, v := range values {
		out = append(out, &entity.CandidateMatch{
			Value:          v,
			BaseConfidence: 0.85,
			Position:       i * 100,
			Context:        context,
			Strategy:       constants.StrategyPattern,
		})
	}
	return out
}

func TestSelectBestPrefersOrgSuffixRegardlessOfOrder(t *testing.T) {
	s := scoring.New(nil)
	field := entity.FieldDescriptor{ID: "company_name", Name: "Firma", Type: constants.FieldText, Context: "employer"}

	orders := [][]string{
		{"Acme Solutions GmbH", "Jane Doe Consulting"},
		{"Jane Doe Consulting", "Acme Solutions GmbH"},
		{"Acme Solutions GmbH", "Jane Doe"},
		{"Jane Doe", "Acme Solutions GmbH"},
	}
	for _, values := range orders {
		best, ok := s.SelectBest(candidates(values, "Kontakt"), field)
		require.True(t, ok)
		assert.Equal(t, "Acme Solutions GmbH", best.Value, "order %v", values)
		assert.Greater(t, best.ContextScore, 0.0)
	}
}

func TestEmailDomainHeuristic(t *testing.T) {
	s := scoring.New(nil)
	values := []string{"max.mustermann@gmail.com", "info@acme-solutions.de"}

	company := entity.FieldDescriptor{ID: "e1", Name: "E-Mail Arbeitgeber", Type: constants.FieldEmail}
	best, ok := s.SelectBest(candidates(values, ""), company)
	require.True(t, ok)
	assert.Equal(t, "info@acme-solutions.de", best.Value)

	person := entity.FieldDescriptor{ID: "e2", Name: "E-Mail Bewerber", Type: constants.FieldEmail}
	best, ok = s.SelectBest(candidates(values, ""), person)
	require.True(t, ok)
	assert.Equal(t, "max.mustermann@gmail.com", best.Value)
}

func TestDocumentSourceHeuristic(t *testing.T) {
	s := scoring.New(nil)
	field := entity.FieldDescriptor{ID: "c", Name: "Name des Arbeitgebers"}

	fromCV := &entity.CandidateMatch{Value: "Universitätsklinikum Hamburg", BaseConfidence: 0.85, Context: "Lebenslauf\nBewerbung\nStationen: Universitätsklinikum Hamburg"}
	fromEmployer := &entity.CandidateMatch{Value: "Helios Klinikum Berlin", BaseConfidence: 0.85, Position: 500, Context: "Arbeitgeber\nFirma: Helios Klinikum Berlin"}

	best, ok := s.SelectBest([]*entity.CandidateMatch{fromCV, fromEmployer}, field)
	require.True(t, ok)
	assert.Equal(t, "Helios Klinikum Berlin", best.Value)
	assert.Equal(t, 1.0, best.FinalScore)
}

func TestExpectedEntity(t *testing.T) {
	s := scoring.New(nil)
	tests := []struct {
		field entity.FieldDescriptor
		want  scoring.Entity
	}{
		{entity.FieldDescriptor{Name: "Firma"}, scoring.EntityCompany},
		{entity.FieldDescriptor{Name: "Name", Context: "employer details"}, scoring.EntityCompany},
		{entity.FieldDescriptor{Name: "Ansprechpartner", Context: "Arbeitgeber"}, scoring.EntityPerson},
		{entity.FieldDescriptor{Name: "Name des Mitarbeiters"}, scoring.EntityPerson},
		{entity.FieldDescriptor{Name: "Geburtsdatum"}, scoring.EntityUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.field.Name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.ExpectedEntity(tt.field))
		})
	}
}

func TestClean(t *testing.T) {
	s := scoring.New(nil)
	tests := []struct {
		name  string
		value string
		field entity.FieldDescriptor
		want  string
	}{
		{"first name from full name", "Max Mustermann", entity.FieldDescriptor{Name: "Vorname"}, "Max"},
		{"last name from full name", "Max Mustermann", entity.FieldDescriptor{Name: "Nachname"}, "Mustermann"},
		{"trailing label removed", "Max Mustermann\nGeburtsdatum", entity.FieldDescriptor{Name: "Name"}, "Max Mustermann"},
		{"leading label removed", "Name: Max Mustermann", entity.FieldDescriptor{Name: "Name"}, "Max Mustermann"},
		{"greeting rejected", "Mit freundlichen Grüßen", entity.FieldDescriptor{Name: "Name"}, ""},
		{"company fragment rejected", "Digitale", entity.FieldDescriptor{Name: "Firma"}, ""},
		{"short company with suffix kept", "Acme AG", entity.FieldDescriptor{Name: "Firma"}, "Acme AG"},
		{"contact person not treated as company", "Dr. Ute Roth", entity.FieldDescriptor{Name: "Kontaktperson", Context: "Arbeitgeber"}, "Dr. Ute Roth"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Clean(tt.value, tt.field))
		})
	}
}

func TestScoreClamps(t *testing.T) {
	s := scoring.New(nil)
	field := entity.FieldDescriptor{Name: "Firma"}
	c := &entity.CandidateMatch{Value: "Acme Solutions GmbH", BaseConfidence: 0.95, Context: "Firma: Acme Solutions GmbH, Arbeitgeber"}
	assert.Equal(t, 1.0, s.Score(c, field))

	p := &entity.CandidateMatch{Value: "Jane Doe", BaseConfidence: 0.3, Context: "Lebenslauf Bewerbung"}
	assert.Equal(t, 0.0, s.Score(p, field))
}

func TestSelectBestEmpty(t *testing.T) {
	_, ok := scoring.New(nil).SelectBest(nil, entity.FieldDescriptor{})
	assert.False(t, ok)
}
