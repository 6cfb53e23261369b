// Package forms adapts fillable forms (spreadsheets, JSON structure descriptions) to a
// common field-write interface.
package forms

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/joseph-ayodele/form-filler/constants"
	"github.com/joseph-ayodele/form-filler/internal/cache"
	"github.com/joseph-ayodele/form-filler/internal/common"
	"github.com/joseph-ayodele/form-filler/internal/entity"
	"github.com/joseph-ayodele/form-filler/internal/rules"
)

// Target is a form the pipeline can fill.
type Target interface {
	Fields() []entity.FieldDescriptor
	// Write sets a field value and reports whether the field exists.
	Write(fieldID, value string) bool
	// Values reads back every non-empty field value.
	Values() map[string]string
	Save(path string) error
	Close() error
}

// Relationships returns the field relationships a target declares. Only targets opened
// from a structure description carry any.
func Relationships(t Target) []entity.FieldRelationship {
	if s, ok := t.(interface{ Structure() entity.FormStructure }); ok {
		return s.Structure().Relationships
	}
	return nil
}

// Loader opens form targets. Analyzed layouts are cached per file version.
type Loader struct {
	rules      *rules.Table
	layouts    *cache.Cache[layout]
	structures *cache.Cache[entity.FormStructure]
	logger     *slog.Logger
}

func NewLoader(t *rules.Table, logger *slog.Logger) *Loader {
	if t == nil {
		t = rules.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		rules:      t,
		layouts:    cache.New[layout](),
		structures: cache.New[entity.FormStructure](),
		logger:     logger,
	}
}

// Open picks the adapter by file extension. A missing or unreadable form is a precondition failure.
func (l *Loader) Open(path string) (Target, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, common.PreconditionError(fmt.Sprintf("form %s not readable", path), err)
	}
	ext := filepath.Ext(path)
	switch {
	case constants.IsFormExt(ext):
		x, err := l.OpenXLSX(path)
		if err != nil {
			return nil, err
		}
		return x, nil
	case constants.NormalizeExt(ext) == "json":
		s, err := l.LoadStructure(path)
		if err != nil {
			return nil, err
		}
		return NewMemoryTarget(s), nil
	}
	return nil, common.PreconditionError(fmt.Sprintf("unsupported form type %q", ext), nil)
}

// InferType guesses a field type from its label.
func InferType(t *rules.Table, label string) constants.FieldType {
	switch {
	case t.ContainsAny(rules.DateField, label), t.ContainsAny(rules.BirthDateField, label):
		return constants.FieldDate
	case t.ContainsAny(rules.EmailField, label):
		return constants.FieldEmail
	case t.ContainsAny(rules.PhoneField, label):
		return constants.FieldPhone
	case t.ContainsWord(rules.AgeField, label), t.ContainsWord(rules.GradeField, label):
		return constants.FieldNumber
	}
	return constants.FieldText
}

// Apply writes every mapping into the target and returns the ids it could not place.
func Apply(t Target, mappings map[string]entity.FieldMapping) (written int, rejected []string) {
	ids := make([]string, 0, len(mappings))
	for id := range mappings {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if t.Write(id, mappings[id].Value) {
			written++
		} else {
			rejected = append(rejected, id)
		}
	}
	return written, rejected
}
