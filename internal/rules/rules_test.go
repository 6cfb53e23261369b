package rules_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/form-filler/internal/rules"
)

func TestDefaultTable(t *testing.T) {
	tbl := rules.Default()

	assert.True(t, tbl.ContainsAny(rules.CompanyField, "Name des Arbeitgebers"))
	assert.True(t, tbl.ContainsAny(rules.CompanyField, "Company name"))
	assert.False(t, tbl.ContainsAny(rules.CompanyField, "Vorname"))
	assert.Equal(t, 3, tbl.Count(rules.BirthVocab, "geboren am, Geburtsdatum"))
	assert.NotEmpty(t, tbl.Keywords(rules.KnownCities))
	assert.Len(t, tbl.Generation, 2)

	g, ok := tbl.SynonymGroup("Datum")
	require.True(t, ok)
	assert.Equal(t, "date", g)
}

func TestContainsWord(t *testing.T) {
	tbl := rules.Default()
	tests := []struct {
		text string
		want bool
	}{
		{"Acme Solutions GmbH", true},
		{"Siemens AG", true},
		{"Hamburger Hafen", false},
		{"Principal Engineer", false},
		{"Foo Inc.", true},
		{"Jane Doe", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, tbl.ContainsWord(rules.OrgSuffix, tt.text))
		})
	}
}

func TestLoadMergesOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
languages:
  fr:
    company_field: [entreprise, employeur]
generation:
  - name: signing_date
    kind: current_date
    name_keywords: [datum, date]
    context_categories: [signing_context]
    id_hints: ["58"]
`), 0o600))

	tbl, err := rules.Load(path)
	require.NoError(t, err)
	assert.True(t, tbl.ContainsAny(rules.CompanyField, "Nom de l'entreprise"))
	assert.True(t, tbl.ContainsAny(rules.CompanyField, "Arbeitgeber"))
	require.Len(t, tbl.Generation, 2)
	assert.Equal(t, []string{"58"}, tbl.Generation[1].IDHints)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := rules.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)

	tbl, err := rules.Load("")
	require.NoError(t, err)
	assert.Same(t, rules.Default(), tbl)
}
