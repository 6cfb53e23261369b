// Package report renders and writes the audit record of a fill run.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/form-filler/constants"
	"github.com/joseph-ayodele/form-filler/internal/entity"
)

// Run is one fill attempt: what was mapped, what the quality pass found, and how many
// correction iterations were used.
type Run struct {
	ID         string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Form      string `json:"form"`
	Documents string `json:"documents"`
	Reference string `json:"reference,omitempty"`
	Output    string `json:"output,omitempty"`

	Mappings []entity.FieldMapping `json:"mappings"`
	Unfilled []string              `json:"unfilled"`
	Failures map[string]string     `json:"failures,omitempty"`

	Issues             []entity.QualityIssue       `json:"issues"`
	Score              float64                     `json:"score"`
	RequiresCorrection bool                        `json:"requires_correction"`
	Iterations         int                         `json:"iterations"`
	States             []constants.CorrectionState `json:"states,omitempty"`
	Error              string                      `json:"error,omitempty"`
}

func NewRun(form, documents string, now time.Time) *Run {
	return &Run{
		ID:        uuid.NewString(),
		StartedAt: now.UTC(),
		Form:      form,
		Documents: documents,
		Mappings:  []entity.FieldMapping{},
		Unfilled:  []string{},
		Issues:    []entity.QualityIssue{},
	}
}

// SetMappings stores the mappings sorted by field id.
func (r *Run) SetMappings(m map[string]entity.FieldMapping) {
	r.Mappings = r.Mappings[:0]
	for _, v := range m {
		r.Mappings = append(r.Mappings, v)
	}
	sort.Slice(r.Mappings, func(i, j int) bool { return r.Mappings[i].FieldID < r.Mappings[j].FieldID })
}

// SetAssessment copies the final quality result onto the run.
func (r *Run) SetAssessment(a entity.QualityAssessment) {
	r.Issues = a.Issues
	if r.Issues == nil {
		r.Issues = []entity.QualityIssue{}
	}
	r.Score = a.Score
	r.RequiresCorrection = a.RequiresCorrection
}

// FileName is the report file name for the run.
func (r *Run) FileName() string {
	return fmt.Sprintf("fill_report_%s_%s.json", r.StartedAt.Format("20060102_150405"), r.ID[:8])
}

// WriteJSON writes the run into dir and returns the file path.
func WriteJSON(dir string, r *Run) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	path := filepath.Join(dir, r.FileName())
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
