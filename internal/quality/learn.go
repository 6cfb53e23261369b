package quality

import (
	"regexp"
	"sort"
	"strings"

	"github.com/joseph-ayodele/form-filler/constants"
	"github.com/joseph-ayodele/form-filler/internal/entity"
	"github.com/joseph-ayodele/form-filler/internal/fieldvalue"
	"github.com/joseph-ayodele/form-filler/internal/rules"
)

// reShortNumber matches scalar quantities such as ages or grades, not phone or id numbers.
var reShortNumber = regexp.MustCompile(`^-?\d{1,6}(?:[.,]\d+)?$`)

// Classifier maps field labels onto semantic categories.
type Classifier struct {
	rules *rules.Table
}

func NewClassifier(t *rules.Table) Classifier {
	if t == nil {
		t = rules.Default()
	}
	return Classifier{rules: t}
}

// Category classifies a field by its label.
func (c Classifier) Category(label string) constants.SemanticCategory {
	l := strings.ToLower(label)
	switch {
	case c.rules.ContainsAny(rules.DateField, l):
		switch {
		case c.rules.ContainsAny(rules.BirthDateField, l):
			return constants.CategoryPersonalDate
		case c.rules.ContainsAny(rules.DocumentDateField, l):
			return constants.CategoryDocumentDate
		}
		return constants.CategoryDateGeneral
	case c.rules.ContainsAny(rules.NameField, l),
		c.rules.ContainsAny(rules.FirstNameField, l),
		c.rules.ContainsAny(rules.LastNameField, l):
		return constants.CategoryPersonalName
	case c.rules.ContainsAny(rules.EmailField, l), c.rules.ContainsAny(rules.PhoneField, l):
		return constants.CategoryContactInfo
	case c.rules.ContainsAny(rules.AddressField, l):
		return constants.CategoryAddressInfo
	case c.IsAgeField(l), c.IsGradeField(l):
		return constants.CategoryNumericValue
	}
	return constants.CategoryGeneralField
}

func (c Classifier) IsAgeField(label string) bool   { return c.rules.ContainsWord(rules.AgeField, label) }
func (c Classifier) IsGradeField(label string) bool { return c.rules.ContainsWord(rules.GradeField, label) }

// ValuePatternOf describes the shape of a sample value.
func ValuePatternOf(value string) constants.ValuePattern {
	v := strings.TrimSpace(value)
	switch {
	case fieldvalue.LooksLikeDate(v):
		return constants.PatternDateFormat
	case strings.Contains(v, "@"):
		return constants.PatternEmailFormat
	}
	if reShortNumber.MatchString(v) {
		return constants.PatternNumericValue
	}
	return constants.PatternTextValue
}

// FieldTypeOf infers a field type from a sample value.
func FieldTypeOf(value string) constants.FieldType {
	switch ValuePatternOf(value) {
	case constants.PatternDateFormat:
		return constants.FieldDate
	case constants.PatternEmailFormat:
		return constants.FieldEmail
	case constants.PatternNumericValue:
		return constants.FieldNumber
	}
	return constants.FieldText
}

// LearnPatterns derives a ReferencePattern per field of a filled sample form.
func (c Classifier) LearnPatterns(values map[string]entity.LabeledValue) map[string]entity.ReferencePattern {
	ids := make([]string, 0, len(values))
	for id := range values {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make(map[string]entity.ReferencePattern, len(values))
	for _, id := range ids {
		lv := values[id]
		out[id] = entity.ReferencePattern{
			FieldID:      id,
			Label:        lv.Label,
			Value:        lv.Value,
			Category:     c.Category(lv.Label),
			FieldType:    FieldTypeOf(lv.Value),
			ValuePattern: ValuePatternOf(lv.Value),
		}
	}
	return out
}
