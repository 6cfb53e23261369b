package forms

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/form-filler/internal/common"
	"github.com/joseph-ayodele/form-filler/internal/entity"
	"github.com/joseph-ayodele/form-filler/internal/rules"
)

const (
	labelColumn = "A"
	valueColumn = "B"
)

// layout is the analyzed structure of a label/value spreadsheet form.
type layout struct {
	sheet  string
	fields []entity.FieldDescriptor
	rows   map[string]int
}

// FieldID names the field whose label sits in the given 1-based row.
func FieldID(row int) string { return fmt.Sprintf("field_%d", row-1) }

// XLSXTarget fills a spreadsheet whose labels are in column A and values in column B.
type XLSXTarget struct {
	path   string
	file   *excelize.File
	layout layout
}

func (l *Loader) OpenXLSX(path string) (*XLSXTarget, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, common.PreconditionError(fmt.Sprintf("open workbook %s", path), err)
	}
	lay, err := l.layouts.GetFile(path, func(string) (layout, error) {
		return analyze(f, l.rules)
	})
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	l.logger.Info("forms.xlsx.opened", "path", path, "sheet", lay.sheet, "fields", len(lay.fields))
	return &XLSXTarget{path: path, file: f, layout: lay}, nil
}

func analyze(f *excelize.File, t *rules.Table) (layout, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return layout{}, common.PreconditionError("workbook has no sheets", nil)
	}
	sheet := sheets[0]
	rows, err := f.GetRows(sheet)
	if err != nil {
		return layout{}, fmt.Errorf("read rows: %w", err)
	}
	headers := mergedHeaderRows(f, sheet)

	lay := layout{sheet: sheet, rows: map[string]int{}}
	section := ""
	for i, row := range rows {
		rowNum := i + 1
		if len(row) == 0 {
			continue
		}
		label := strings.TrimSpace(row[0])
		if label == "" {
			continue
		}
		if headers[rowNum] || isBold(f, sheet, labelColumn+fmt.Sprint(rowNum)) {
			section = label
			continue
		}
		name := strings.TrimSpace(strings.TrimSuffix(label, ":"))
		id := FieldID(rowNum)
		lay.rows[id] = rowNum
		lay.fields = append(lay.fields, entity.FieldDescriptor{
			ID:       id,
			Name:     name,
			Type:     InferType(t, name),
			Context:  section,
			Section:  section,
			Location: fmt.Sprintf("%s!%s%d", sheet, valueColumn, rowNum),
		})
	}
	return lay, nil
}

// mergedHeaderRows returns rows whose label cell starts a merged range.
func mergedHeaderRows(f *excelize.File, sheet string) map[int]bool {
	out := map[int]bool{}
	merged, err := f.GetMergeCells(sheet)
	if err != nil {
		return out
	}
	for _, mc := range merged {
		col, row, err := excelize.CellNameToCoordinates(mc.GetStartAxis())
		if err == nil && col == 1 {
			out[row] = true
		}
	}
	return out
}

func isBold(f *excelize.File, sheet, cell string) bool {
	id, err := f.GetCellStyle(sheet, cell)
	if err != nil || id == 0 {
		return false
	}
	st, err := f.GetStyle(id)
	return err == nil && st != nil && st.Font != nil && st.Font.Bold
}

func (x *XLSXTarget) Fields() []entity.FieldDescriptor {
	return append([]entity.FieldDescriptor(nil), x.layout.fields...)
}

func (x *XLSXTarget) Write(fieldID, value string) bool {
	row, ok := x.layout.rows[fieldID]
	if !ok {
		return false
	}
	return x.file.SetCellValue(x.layout.sheet, fmt.Sprintf("%s%d", valueColumn, row), value) == nil
}

func (x *XLSXTarget) Values() map[string]string {
	out := make(map[string]string, len(x.layout.rows))
	for id, row := range x.layout.rows {
		v, err := x.file.GetCellValue(x.layout.sheet, fmt.Sprintf("%s%d", valueColumn, row))
		if err == nil && strings.TrimSpace(v) != "" {
			out[id] = v
		}
	}
	return out
}

func (x *XLSXTarget) Save(path string) error {
	if err := x.file.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx save %s: %w", path, err)
	}
	return nil
}

func (x *XLSXTarget) Close() error { return x.file.Close() }

// ReadReference reads the label/value rows of a filled sample workbook.
func ReadReference(path string) (map[string]entity.LabeledValue, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, common.PreconditionError(fmt.Sprintf("open reference %s", path), err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return map[string]entity.LabeledValue{}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	out := map[string]entity.LabeledValue{}
	for i, row := range rows {
		if len(row) < 2 {
			continue
		}
		label := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(row[0]), ":"))
		value := strings.TrimSpace(row[1])
		if label == "" || value == "" {
			continue
		}
		out[FieldID(i+1)] = entity.LabeledValue{Label: label, Value: value}
	}
	return out, nil
}
