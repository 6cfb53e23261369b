// Package fieldvalue checks and normalizes candidate values against a declared field type.
package fieldvalue

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/joseph-ayodele/form-filler/constants"
)

// MinPhoneDigits is the fewest digits a phone value may carry.
const MinPhoneDigits = 7

var (
	checkboxTrue  = map[string]struct{}{"true": {}, "yes": {}, "ja": {}, "x": {}, "✓": {}, "checked": {}, "1": {}, "on": {}}
	checkboxFalse = map[string]struct{}{"false": {}, "no": {}, "nein": {}, "0": {}, "unchecked": {}, "off": {}, "-": {}}

	reNumberNoise = regexp.MustCompile(`[^\d.,\-]`)
	rePhoneNoise  = regexp.MustCompile(`[^\d+]`)
)

// Validate reports whether value is acceptable for a field of type t.
// It never panics; unknown types fall back to the text rule.
func Validate(value string, t constants.FieldType) bool {
	v := strings.TrimSpace(value)
	switch t {
	case constants.FieldDate:
		return isDate(v)
	case constants.FieldEmail:
		return isEmail(v)
	case constants.FieldPhone:
		return countDigits(v) >= MinPhoneDigits
	case constants.FieldNumber:
		_, ok := ParseNumber(v)
		return ok
	case constants.FieldCheckbox:
		_, ok := ParseCheckbox(v)
		return ok
	default:
		return v != ""
	}
}

func isEmail(v string) bool {
	at := strings.Index(v, "@")
	if at < 0 {
		return false
	}
	return strings.Contains(v[at+1:], ".")
}

func countDigits(v string) int {
	n := 0
	for _, r := range v {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

// ParseNumber reads a number written with either a decimal comma or thousands commas.
func ParseNumber(value string) (float64, bool) {
	v := strings.ReplaceAll(strings.TrimSpace(value), " ", "")
	if v == "" {
		return 0, false
	}
	hasComma := strings.Contains(v, ",")
	hasDot := strings.Contains(v, ".")
	switch {
	case hasComma && hasDot:
		v = strings.ReplaceAll(v, ",", "")
	case hasComma:
		v = strings.ReplaceAll(v, ",", ".")
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParseCheckbox maps the boolean vocabulary onto true/false.
func ParseCheckbox(value string) (bool, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	if _, ok := checkboxTrue[v]; ok {
		return true, true
	}
	if _, ok := checkboxFalse[v]; ok {
		return false, true
	}
	return false, false
}

// Format normalizes value for writing into a field of type t.
// Values that cannot be normalized are returned trimmed.
func Format(value string, t constants.FieldType) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return v
	}
	switch t {
	case constants.FieldDate:
		return formatDateValue(v)
	case constants.FieldPhone:
		return formatPhone(v)
	case constants.FieldEmail:
		return strings.ToLower(v)
	case constants.FieldNumber:
		return formatNumber(v)
	case constants.FieldCheckbox:
		if b, ok := ParseCheckbox(v); ok {
			if b {
				return "TRUE"
			}
			return "FALSE"
		}
		return v
	default:
		return v
	}
}

func formatPhone(v string) string {
	cleaned := rePhoneNoise.ReplaceAllString(v, "")
	if strings.HasPrefix(cleaned, "00") {
		cleaned = "+" + strings.TrimPrefix(cleaned, "00")
	}
	// keep only a leading plus
	if len(cleaned) > 1 {
		cleaned = cleaned[:1] + strings.ReplaceAll(cleaned[1:], "+", "")
	}
	if countDigits(cleaned) < MinPhoneDigits {
		return v
	}
	return cleaned
}

func formatNumber(v string) string {
	cleaned := reNumberNoise.ReplaceAllString(v, "")
	if cleaned == "" {
		return v
	}
	if strings.Contains(cleaned, ",") && strings.Contains(cleaned, ".") {
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	} else if strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}
	if _, err := strconv.ParseFloat(cleaned, 64); err != nil {
		return v
	}
	return cleaned
}
