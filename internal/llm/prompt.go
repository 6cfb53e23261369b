package llm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joseph-ayodele/form-filler/internal/entity"
)

const (
	// MaxPromptCandidates caps how many extracted keys are offered per field.
	MaxPromptCandidates = 20
	// MaxPromptValueLen caps each offered value.
	MaxPromptValueLen = 50
	// MaxPromptSourceLen caps the source data embedded in a contextual check.
	MaxPromptSourceLen = 4000
)

// BuildFieldMatchPrompts returns the system and user prompts asking the model to pick the
// extracted key that best fills field. hint carries correction guidance from a previous pass.
func BuildFieldMatchPrompts(field entity.FieldDescriptor, candidates []SourceCandidate, hint string) (string, string) {
	parts := []string{
		"You are a form field matching specialist. Find the best semantic match between a form field and the available extracted data.",
		"Match on meaning and business context, across German and English (vorname = first name, nachname = last name, geburtsdatum = date of birth, firma = company).",
		"Field name semantics override section placement. Use the section only to break ties between equally good names.",
		"The value must fit the field type.",
		"Company or employer fields should be filled from employer documents (job offers, employment contracts), never from a CV or a personal letter.",
		"Document and submission dates must not be birth dates.",
		"Respond with exactly one line: FIELD_NAME|CONFIDENCE (for example Kundenname|0.85) with confidence between 0.5 and 1.0, or NO_MATCH.",
	}

	var b strings.Builder
	b.WriteString("Form field to match:\n")
	fmt.Fprintf(&b, "- ID: %q\n- Name: %q\n- Type: %q\n", field.ID, field.Name, string(field.Type))
	if field.Context != "" {
		fmt.Fprintf(&b, "- Context: %q\n", field.Context)
	}
	if field.Section != "" {
		fmt.Fprintf(&b, "- Section: %q\n", field.Section)
	}
	b.WriteString("\nAvailable extracted data fields:\n")
	for i, c := range candidates {
		if i >= MaxPromptCandidates {
			break
		}
		fmt.Fprintf(&b, "- %s: %s", c.Key, Truncate(c.Value, MaxPromptValueLen))
		if c.Document != "" {
			fmt.Fprintf(&b, " (from %s)", c.Document)
		}
		b.WriteByte('\n')
	}
	if h := strings.TrimSpace(hint); h != "" {
		b.WriteString("\nCorrection guidance from the previous attempt:\n")
		b.WriteString(h)
		b.WriteByte('\n')
	}
	b.WriteString("\nWhich extracted field best matches this form field?")
	return strings.Join(parts, " "), b.String()
}

// BuildContextCheckPrompts asks whether value suits a document/submission date field given the source data.
func BuildContextCheckPrompts(fieldID, fieldName, value string, source map[string]string) (string, string) {
	sys := strings.Join([]string{
		"You review filled form values against their source documents.",
		"Return ONLY a JSON object with keys is_appropriate (boolean), confidence (0.0-1.0), issue_description and suggested_alternative.",
	}, " ")

	keys := make([]string, 0, len(source))
	for k := range source {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var data strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&data, "- %s: %s\n", k, source[k])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Field: %s (ID: %s)\n", fieldName, fieldID)
	fmt.Fprintf(&b, "Current value: %s\n", value)
	b.WriteString("Field purpose: document submission/received date\n\n")
	b.WriteString("Available source data:\n")
	b.WriteString(Truncate(data.String(), MaxPromptSourceLen))
	b.WriteString("\nIs the current value appropriate for a document submission/received date?\n")
	b.WriteString("Consider whether it is a personal date (birth date) instead of a document date, whether the source holds a better date, and whether it should be a recent date.")
	return sys, b.String()
}
