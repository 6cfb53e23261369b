package extract_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/form-filler/internal/common"
	"github.com/joseph-ayodele/form-filler/internal/entity"
	"github.com/joseph-ayodele/form-filler/internal/extract"
)

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDirectoryExtractor(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "lebenslauf.txt", "Name:\tAnna   Schmidt\r\nGeboren: 12.03.1990\r\n\r\n\r\n\r\nBerlin")
	write(t, dir, "sub/anschreiben.md", "Sehr geehrte Damen und Herren")
	write(t, dir, ".hidden/secret.txt", "ignored")
	write(t, dir, "scan.pdf", "binary")
	write(t, dir, "extracted.json", `{
		"vorname": {"value": "Anna", "origin_document": "lebenslauf.txt", "confidence": 0.9},
		"alter": 34,
		"leer": "  "
	}`)
	write(t, dir, "keyvalues.json", `{"Firma": "Acme Solutions GmbH", "PLZ": 10115}`)

	set, err := extract.NewDirectoryExtractor(nil).Extract(context.Background(), dir, "")
	require.NoError(t, err)

	require.Len(t, set.Documents, 2)
	assert.Equal(t, "lebenslauf.txt", set.Documents[0].Name)
	assert.Equal(t, "Name: Anna Schmidt\nGeboren: 12.03.1990\n\nBerlin", set.Documents[0].Text)
	assert.Equal(t, "sub/anschreiben.md", set.Documents[1].Name)

	assert.Equal(t, entity.ExtractedField{SourceID: "vorname", Value: "Anna", OriginDocument: "lebenslauf.txt", Confidence: 0.9}, set.Extracted["vorname"])
	assert.Equal(t, "34", set.Extracted["alter"].Value)
	assert.NotContains(t, set.Extracted, "leer")

	assert.Equal(t, []entity.KeyValue{
		{Key: "Firma", Value: "Acme Solutions GmbH"},
		{Key: "PLZ", Value: "10115"},
	}, set.KeyValues)
}

func TestDirectoryExtractorKeyValueList(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "keyvalues.json", `[{"key": "Telefon", "value": "030 1234567", "document": "cv.pdf"}]`)

	set, err := extract.NewDirectoryExtractor(nil).Extract(context.Background(), dir, "QUALITY CORRECTION")
	require.NoError(t, err)
	require.Len(t, set.KeyValues, 1)
	assert.Equal(t, "cv.pdf", set.KeyValues[0].Document)
}

func TestDirectoryExtractorPreconditions(t *testing.T) {
	_, err := extract.NewDirectoryExtractor(nil).Extract(context.Background(), filepath.Join(t.TempDir(), "missing"), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrPrecondition))

	set, err := extract.NewDirectoryExtractor(nil).Extract(context.Background(), t.TempDir(), "")
	require.NoError(t, err)
	assert.True(t, set.IsEmpty())

	dir := t.TempDir()
	write(t, dir, "extracted.json", `{not json`)
	_, err = extract.NewDirectoryExtractor(nil).Extract(context.Background(), dir, "")
	require.Error(t, err)
	assert.Equal(t, "EXTRACTED_INVALID", common.ErrorCode(err))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a b\n\nc", extract.Normalize("a  \t b\n\n\n\nc  "))
	assert.Equal(t, "Datum: 01.07.2025", extract.Normalize("Datum: 01.07.2025\n_____\n"))
	assert.Empty(t, extract.Normalize(""))
}
