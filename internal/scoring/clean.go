package scoring

import (
	"strings"
	"unicode"

	"github.com/joseph-ayodele/form-filler/internal/entity"
	"github.com/joseph-ayodele/form-filler/internal/rules"
)

// MinCompanyNameLength is the shortest company value accepted without an org token.
const MinCompanyNameLength = 10

// Clean strips label spill-over from value and rejects fragments that cannot be
// the answer for f. An empty result means the candidate should be skipped.
func (s *Scorer) Clean(value string, f entity.FieldDescriptor) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return ""
	}
	v = s.stripLabels(v)
	if v == "" {
		return ""
	}

	name := strings.ToLower(f.Name)
	switch {
	case s.rules.ContainsAny(rules.NameField, name) && s.ExpectedEntity(f) != EntityCompany:
		return s.cleanName(v, name)
	case s.ExpectedEntity(f) == EntityCompany:
		lower := strings.ToLower(v)
		for _, frag := range s.rules.Keywords(rules.CompanyFragment) {
			if lower == frag {
				return ""
			}
		}
		if len([]rune(v)) < MinCompanyNameLength && !s.HasOrgSuffix(v) {
			return ""
		}
	}
	return strings.TrimSpace(v)
}

// stripLabels removes a leading form label and anything glued on after a trailing one.
func (s *Scorer) stripLabels(v string) string {
	for _, label := range s.rules.Keywords(rules.LabelNoise) {
		lower := strings.ToLower(v)
		idx := strings.Index(lower, label)
		switch {
		case idx == 0:
			v = strings.TrimSpace(v[len(label):])
		case idx > 0:
			v = strings.TrimSpace(v[:idx])
		}
	}
	return v
}

func (s *Scorer) cleanName(v, fieldName string) string {
	v = strings.TrimSpace(strings.ReplaceAll(v, "\n", " "))
	lower := strings.ToLower(v)
	for _, phrase := range s.rules.Keywords(rules.NonNamePhrases) {
		if lower == phrase || strings.HasPrefix(lower, phrase) {
			return ""
		}
	}
	words := strings.Fields(v)
	if len(words) < 2 || !capitalized(words[0]) || !capitalized(words[1]) {
		return v
	}
	switch {
	case s.rules.ContainsAny(rules.FirstNameField, fieldName):
		return words[0]
	case s.rules.ContainsAny(rules.LastNameField, fieldName):
		return words[len(words)-1]
	}
	return v
}

func capitalized(w string) bool {
	for _, r := range w {
		return unicode.IsUpper(r)
	}
	return false
}
