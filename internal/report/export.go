package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"
)

// Lister is the part of a report store the exporter reads from.
type Lister interface {
	List(ctx context.Context, limit int) ([]*Run, error)
}

// Exporter renders stored runs into a review workbook.
type Exporter struct {
	runs   Lister
	logger *slog.Logger
}

func NewExporter(runs Lister, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{runs: runs, logger: logger}
}

// ExportRecentXLSX returns a workbook for the latest limit runs.
func (e *Exporter) ExportRecentXLSX(ctx context.Context, limit int) ([]byte, error) {
	start := time.Now()
	runs, err := e.runs.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	buf, err := ExportXLSX(runs)
	if err != nil {
		return nil, err
	}
	e.logger.Info("report.export.done", "runs", len(runs), "bytes", len(buf), "elapsed_ms", time.Since(start).Milliseconds())
	return buf, nil
}

const (
	mappingsSheet = "Mappings"
	issuesSheet   = "Issues"
)

// ExportXLSX renders runs into a workbook with one row per mapping and one row per issue.
func ExportXLSX(runs []*Run) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", mappingsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(issuesSheet); err != nil {
		return nil, err
	}
	activeIndex, _ := f.GetSheetIndex(mappingsSheet)
	f.SetActiveSheet(activeIndex)

	writeRow := func(sheet string, row int, values ...any) {
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	writeRow(mappingsSheet, 1, "Run", "Started", "Form", "Field", "Value", "Confidence", "Method", "Source")
	writeRow(issuesSheet, 1, "Run", "Form", "Field", "Issue", "Severity", "Current Value", "Suggestion", "Confidence")

	mRow, iRow := 2, 2
	for _, r := range runs {
		for _, m := range r.Mappings {
			writeRow(mappingsSheet, mRow, r.ID, r.StartedAt.Format("2006-01-02 15:04"), r.Form,
				m.FieldID, m.Value, fmt.Sprintf("%.2f", m.Confidence), string(m.Method), m.SourceID)
			mRow++
		}
		for _, is := range r.Issues {
			writeRow(issuesSheet, iRow, r.ID, r.Form, is.FieldID, string(is.Type), string(is.Severity),
				truncate(is.CurrentValue, 140), truncate(is.Suggestion, 200), fmt.Sprintf("%.2f", is.Confidence))
			iRow++
		}
	}

	_ = f.SetColWidth(mappingsSheet, "A", "A", 38)
	_ = f.SetColWidth(mappingsSheet, "B", "B", 17)
	_ = f.SetColWidth(mappingsSheet, "C", "C", 40)
	_ = f.SetColWidth(mappingsSheet, "D", "E", 28)
	_ = f.SetColWidth(mappingsSheet, "H", "H", 24)
	_ = f.SetColWidth(issuesSheet, "A", "A", 38)
	_ = f.SetColWidth(issuesSheet, "B", "B", 40)
	_ = f.SetColWidth(issuesSheet, "D", "D", 24)
	_ = f.SetColWidth(issuesSheet, "F", "G", 48)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
