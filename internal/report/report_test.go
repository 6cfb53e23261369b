package report_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/form-filler/constants"
	"github.com/joseph-ayodele/form-filler/internal/entity"
	"github.com/joseph-ayodele/form-filler/internal/report"
)

func sampleRun() *report.Run {
	r := report.NewRun("form.xlsx", "docs", time.Date(2025, time.July, 1, 9, 30, 0, 0, time.UTC))
	r.SetMappings(map[string]entity.FieldMapping{
		"field_4": {FieldID: "field_4", SourceID: "firma", Value: "Acme Solutions GmbH", Confidence: 0.95, Method: constants.StrategyLLM},
		"field_1": {FieldID: "field_1", SourceID: "vorname", Value: "Anna", Confidence: 1, Method: constants.StrategyDirectID},
	})
	r.SetAssessment(entity.NewAssessment([]entity.QualityIssue{{
		FieldID:      "field_2",
		Type:         constants.IssueTemporalInconsistency,
		CurrentValue: "12.03.1990",
		Severity:     constants.SeverityHigh,
		Suggestion:   "use the submission date",
	}}, 4, 3, 1))
	r.Iterations = 1
	return r
}

func TestWriteJSON(t *testing.T) {
	r := sampleRun()
	path, err := report.WriteJSON(filepath.Join(t.TempDir(), "reports"), r)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(filepath.Base(path), "fill_report_20250701_093000_"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, r.ID, got["run_id"])
	assert.EqualValues(t, 1, got["iterations"])
	mappings := got["mappings"].([]any)
	require.Len(t, mappings, 2)
	assert.Equal(t, "field_1", mappings[0].(map[string]any)["field_id"])
	assert.Len(t, got["issues"], 1)
}

type staticLister []*report.Run

func (s staticLister) List(context.Context, int) ([]*report.Run, error) { return s, nil }

func TestExportXLSX(t *testing.T) {
	buf, err := report.NewExporter(staticLister{sampleRun()}, nil).ExportRecentXLSX(context.Background(), 10)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(buf))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	mappings, err := f.GetRows("Mappings")
	require.NoError(t, err)
	require.Len(t, mappings, 3)
	assert.Equal(t, "Field", mappings[0][3])
	assert.Equal(t, "Anna", mappings[1][4])
	assert.Equal(t, "llm_semantic_match", mappings[2][6])

	issues, err := f.GetRows("Issues")
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, "temporal_inconsistency", issues[1][3])
	assert.Equal(t, "high", issues[1][4])
}
