package forms_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/form-filler/constants"
	"github.com/joseph-ayodele/form-filler/internal/common"
	"github.com/joseph-ayodele/form-filler/internal/entity"
	"github.com/joseph-ayodele/form-filler/internal/forms"
	"github.com/joseph-ayodele/form-filler/internal/rules"
)

func writeWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	const sheet = "Sheet1"

	cells := map[string]string{
		"A1": "Bewerbung",
		"A2": "Vorname:",
		"A3": "Geburtsdatum",
		"A4": "Arbeitgeber",
		"A5": "Firma",
		"A6": "Telefon",
	}
	for cell, v := range cells {
		require.NoError(t, f.SetCellValue(sheet, cell, v))
	}
	require.NoError(t, f.MergeCell(sheet, "A1", "B1"))
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle(sheet, "A4", "A4", bold))

	path := filepath.Join(t.TempDir(), "form.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestXLSXTargetLayout(t *testing.T) {
	loader := forms.NewLoader(nil, nil)
	target, err := loader.Open(writeWorkbook(t))
	require.NoError(t, err)
	defer func() { _ = target.Close() }()

	fields := target.Fields()
	require.Len(t, fields, 4)

	byID := map[string]entity.FieldDescriptor{}
	for _, f := range fields {
		byID[f.ID] = f
	}
	assert.Equal(t, "Vorname", byID["field_1"].Name)
	assert.Equal(t, "Bewerbung", byID["field_1"].Section)
	assert.Equal(t, constants.FieldDate, byID["field_2"].Type)
	assert.Equal(t, "Arbeitgeber", byID["field_4"].Section)
	assert.Equal(t, constants.FieldPhone, byID["field_5"].Type)
	assert.Equal(t, "Sheet1!B6", byID["field_5"].Location)
}

func TestXLSXWriteSaveAndReadReference(t *testing.T) {
	loader := forms.NewLoader(nil, nil)
	target, err := loader.Open(writeWorkbook(t))
	require.NoError(t, err)
	defer func() { _ = target.Close() }()

	written, rejected := forms.Apply(target, map[string]entity.FieldMapping{
		"field_1": {FieldID: "field_1", Value: "Anna"},
		"field_4": {FieldID: "field_4", Value: "Acme Solutions GmbH"},
		"missing": {FieldID: "missing", Value: "x"},
	})
	assert.Equal(t, 2, written)
	assert.Equal(t, []string{"missing"}, rejected)
	assert.Equal(t, map[string]string{"field_1": "Anna", "field_4": "Acme Solutions GmbH"}, target.Values())

	out := filepath.Join(t.TempDir(), "filled.xlsx")
	require.NoError(t, target.Save(out))

	ref, err := forms.ReadReference(out)
	require.NoError(t, err)
	assert.Equal(t, entity.LabeledValue{Label: "Vorname", Value: "Anna"}, ref["field_1"])
	assert.Equal(t, "Firma", ref["field_4"].Label)
	assert.NotContains(t, ref, "field_2")
}

func TestOpenMissingForm(t *testing.T) {
	_, err := forms.NewLoader(nil, nil).Open(filepath.Join(t.TempDir(), "nope.xlsx"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrPrecondition))
}

const structureJSON = `{
  "name": "Antrag",
  "sections": [
    {"name": "Person", "fields": [
      {"id": "vorname", "name": "Vorname"},
      {"id": "geburtsdatum", "name": "Geburtsdatum"},
      {"id": "alter", "name": "Alter"}
    ]},
    {"name": "Arbeitgeber", "fields": [{"id": "firma", "name": "Firma", "type": "text"}]}
  ],
  "field_relationships": [{"kind": "age_birth", "field_ids": ["alter", "geburtsdatum"]}]
}`

func TestParseStructure(t *testing.T) {
	s, err := forms.ParseStructure([]byte(structureJSON), rules.Default())
	require.NoError(t, err)

	fields := s.Fields()
	require.Len(t, fields, 4)
	assert.Equal(t, constants.FieldText, fields[0].Type)
	assert.Equal(t, constants.FieldDate, fields[1].Type)
	assert.Equal(t, constants.FieldNumber, fields[2].Type)
	assert.Equal(t, "Arbeitgeber", fields[3].Section)
	require.Len(t, s.Relationships, 1)

	_, err = forms.ParseStructure([]byte(`{"name": "x"}`), nil)
	require.Error(t, err)
	assert.Equal(t, "FORM_STRUCTURE_INVALID", common.ErrorCode(err))

	_, err = forms.ParseStructure([]byte(`{"sections": [{"fields": [{"id": "a"}, {"id": "a"}]}]}`), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestMemoryTarget(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "antrag.json")
	require.NoError(t, os.WriteFile(path, []byte(structureJSON), 0o644))

	target, err := forms.NewLoader(nil, nil).Open(path)
	require.NoError(t, err)
	assert.True(t, target.Write("vorname", "Anna"))
	assert.False(t, target.Write("unknown", "x"))
	assert.True(t, target.Write("alter", " "))
	assert.Equal(t, map[string]string{"vorname": "Anna"}, target.Values())

	out := filepath.Join(dir, "filled.json")
	require.NoError(t, target.Save(out))
	data, err := os.ReadFile(out)
	require.NoError(t, err)

	var saved struct {
		Form   string `json:"form"`
		Values []struct {
			FieldID string `json:"field_id"`
			Value   string `json:"value"`
		} `json:"values"`
	}
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, "Antrag", saved.Form)
	assert.Len(t, saved.Values, 2)
}

func TestRelationships(t *testing.T) {
	path := filepath.Join(t.TempDir(), "antrag.json")
	require.NoError(t, os.WriteFile(path, []byte(structureJSON), 0o644))
	loader := forms.NewLoader(nil, nil)

	target, err := loader.Open(path)
	require.NoError(t, err)
	rels := forms.Relationships(target)
	require.Len(t, rels, 1)
	assert.Equal(t, entity.RelationAgeBirth, rels[0].Kind)
	assert.Equal(t, []string{"alter", "geburtsdatum"}, rels[0].FieldIDs)

	xlsx, err := loader.Open(writeWorkbook(t))
	require.NoError(t, err)
	defer func() { _ = xlsx.Close() }()
	assert.Empty(t, forms.Relationships(xlsx))
}
