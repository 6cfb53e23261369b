package constants

import (
	"strings"
)

type FieldType string

const (
	FieldText     FieldType = "text"
	FieldNumber   FieldType = "number"
	FieldDate     FieldType = "date"
	FieldEmail    FieldType = "email"
	FieldPhone    FieldType = "phone"
	FieldCheckbox FieldType = "checkbox"
	FieldDropdown FieldType = "dropdown"
)

var allFieldTypes = []FieldType{
	FieldText,
	FieldNumber,
	FieldDate,
	FieldEmail,
	FieldPhone,
	FieldCheckbox,
	FieldDropdown,
}

// CanonicalFieldType maps a declared field type onto the closed set.
// Unknown input falls back to text and reports false.
func CanonicalFieldType(input string) (FieldType, bool) {
	if input == "" {
		return FieldText, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	synonyms := map[string]FieldType{
		"string":    FieldText,
		"textarea":  FieldText,
		"currency":  FieldNumber,
		"integer":   FieldNumber,
		"int":       FieldNumber,
		"float":     FieldNumber,
		"decimal":   FieldNumber,
		"tel":       FieldPhone,
		"telephone": FieldPhone,
		"mail":      FieldEmail,
		"bool":      FieldCheckbox,
		"boolean":   FieldCheckbox,
		"select":    FieldDropdown,
		"choice":    FieldDropdown,
		"datetime":  FieldDate,
	}

	if ft, ok := synonyms[normalized]; ok {
		return ft, true
	}

	for _, ft := range allFieldTypes {
		if normalized == string(ft) {
			return ft, true
		}
	}

	return FieldText, false
}
