package match

import (
	"context"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/form-filler/constants"
	"github.com/joseph-ayodele/form-filler/internal/entity"
	"github.com/joseph-ayodele/form-filler/internal/fieldvalue"
	"github.com/joseph-ayodele/form-filler/internal/rules"
)

const (
	upper = `[A-ZÄÖÜ]`
	lower = `[a-zäöüß]+`
	word  = upper + lower

	// leftEdge stands in for \b before non-ASCII letters, which RE2 treats as non-word characters.
	leftEdge = `(?:^|[^\p{L}\p{N}])`
	orgTail  = `(?:GmbH|AG|Ltd|Inc|Corp|Klinikum|Solutions|Zentrum)`

	keywordWindow   = 100 // half-width searched for field keywords around a match
	scoringWindow   = 500 // half-width of the context handed to the scorer
	keywordBonus    = 0.1
	maxKeywordBonus = 0.3
)

type pattern struct {
	re   *regexp.Regexp
	conf float64
}

func newPattern(expr string, conf float64) pattern {
	return pattern{re: regexp.MustCompile(expr), conf: conf}
}

var (
	datePatterns = []pattern{
		newPattern(`\b(\d{1,2}[./]\d{1,2}[./]\d{4})\b`, 0.9),
		newPattern(`\b(\d{4}-\d{1,2}-\d{1,2})\b`, 0.8),
		newPattern(`(?i:geboren|birth|born).*?(\d{1,2}[./]\d{1,2}[./]\d{4})`, 0.9),
	}
	emailPatterns = []pattern{
		newPattern(`\b([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})\b`, 0.95),
	}
	phonePatterns = []pattern{
		newPattern(`(\+?\b\d{1,3}[ \-]?\(?\d{1,4}\)?[ \-]?\d{3,4}[ \-]?\d{4,})\b`, 0.8),
		newPattern(`(?i:tel|phone|telefon)[.:]?[ \t]*([+\d][+\d \-()/]{7,})`, 0.85),
	}
	firstNamePatterns = []pattern{
		newPattern(`\b(?i:vorname|first[ \t]*name)[: \t]*(`+word+`)`, 0.9),
		newPattern(`\b(?i:name):[ \t]*(`+word+`)[ \t]+`+word, 0.85),
		newPattern(`(?m)^(`+word+`)[ \t]+`+word+`[ \t]*$`, 0.7),
	}
	lastNamePatterns = []pattern{
		newPattern(`\b(?i:nachname|surname|last[ \t]*name)[: \t]*(`+word+`)`, 0.9),
		newPattern(`\b(?i:name):[ \t]*`+word+`[ \t]+(`+word+`)`, 0.85),
		newPattern(`(?m)^`+word+`[ \t]+(`+word+`)[ \t]*$`, 0.7),
	}
	namePatterns = []pattern{
		newPattern(`\b(?i:name|namen)[: \t]*(`+word+`(?:[ \t]+`+word+`)*)`, 0.7),
		newPattern(leftEdge+`(`+word+`[ \t]+`+word+`)`, 0.6),
	}
	companyPatterns = []pattern{
		newPattern(`(?i:firma|company|praxis|practice)[: \t]*([^:\n]+`+orgTail+`[^:\n]*)`, 0.95),
		newPattern(`(`+upper+`[a-zA-ZÄÖÜäöüß \t&.]*`+orgTail+`[^:\n]*)`, 0.85),
		newPattern(`((?i:dr\.[ \t]*med)[^:\n]*(?:GmbH|Zentrum|Praxis)[^:\n]*)`, 0.9),
		newPattern(`(?i:firma|company|praxis|practice)[: \t]*(`+upper+`[^:\n]+)`, 0.8),
		newPattern(`\b([A-Z][a-zA-Z]+[ \t]+[A-Z][a-zA-Z]+(?:[ \t]+[A-Z][a-zA-Z]+)*[ \t]+(?:GmbH|AG|Ltd|Inc|Corp))\b`, 0.75),
	}
	contactPatterns = []pattern{
		newPattern(`(?i:kontaktperson|ansprechpartner|contact[ \t]*person)[: \t]*(`+word+`[ \t]+`+word+`)`, 0.9),
		newPattern(`(?i:ansprechpartner|kontaktperson)[: \t]*([^:\n]+)`, 0.85),
		newPattern(`(Dr\.[ \t]*`+word+`[ \t]+`+word+`)`, 0.8),
	}
)

// patternsFor returns the regex sets that apply to f. Email fields get the email set only.
func (m *Matcher) patternsFor(f entity.FieldDescriptor) []pattern {
	name := strings.ToLower(f.Name)
	has := func(cat string) bool { return m.rules.ContainsAny(cat, name) }

	var out []pattern
	if f.Type == constants.FieldDate || has(rules.DateField) || has(rules.BirthDateField) {
		out = append(out, datePatterns...)
	}
	if f.Type == constants.FieldEmail || has(rules.EmailField) {
		return append(out, emailPatterns...)
	}
	if f.Type == constants.FieldPhone || has(rules.PhoneField) {
		out = append(out, phonePatterns...)
	}
	company := m.scorer.IsCompanyField(f)
	if !company {
		switch {
		case has(rules.FirstNameField):
			out = append(out, firstNamePatterns...)
		case has(rules.LastNameField):
			out = append(out, lastNamePatterns...)
		case has(rules.NameField):
			out = append(out, namePatterns...)
		}
	}
	if company || has(rules.CompanyField) {
		out = append(out, companyPatterns...)
	}
	if has(rules.ContactPersonField) {
		out = append(out, contactPatterns...)
	}
	return out
}

// keywordCategories picks the vocabulary whose presence near a match raises confidence.
func (m *Matcher) keywordCategories(f entity.FieldDescriptor) []string {
	name := strings.ToLower(f.Name)
	switch {
	case m.rules.ContainsAny(rules.NameField, name) && !m.scorer.IsCompanyField(f):
		return []string{rules.NameField, rules.NameContext}
	case m.rules.ContainsAny(rules.BirthDateField, name):
		return []string{rules.BirthContext}
	case m.rules.ContainsAny(rules.NationalityField, name):
		return []string{rules.NationalityContext}
	case m.rules.ContainsAny(rules.CompanyField, name), m.scorer.IsCompanyField(f):
		return []string{rules.EmployerNameContext}
	}
	return nil
}

func window(text string, start, end, radius int) string {
	lo := max(0, start-radius)
	hi := min(len(text), end+radius)
	return text[lo:hi]
}

// patternMatch runs every applicable regex over the combined text and lets the scorer pick.
func (m *Matcher) patternMatch(_ context.Context, f entity.FieldDescriptor, in *input) (*entity.CandidateMatch, error) {
	pats := m.patternsFor(f)
	if len(pats) == 0 || strings.TrimSpace(in.text) == "" {
		return nil, nil
	}
	cats := m.keywordCategories(f)

	var cands []*entity.CandidateMatch
	for _, pt := range pats {
		for _, loc := range pt.re.FindAllStringSubmatchIndex(in.text, -1) {
			start, end := loc[0], loc[1]
			if len(loc) >= 4 && loc[2] >= 0 {
				start, end = loc[2], loc[3]
			}
			value := strings.TrimSpace(in.text[start:end])
			if value == "" || strings.Contains(value, "---") || strings.HasSuffix(strings.ToLower(value), ".pdf") {
				continue
			}
			if !fieldvalue.Validate(value, f.Type) {
				continue
			}

			bonus := 0.0
			near := window(in.text, start, end, keywordWindow)
			for _, cat := range cats {
				bonus += float64(m.rules.Count(cat, near)) * keywordBonus
			}
			c := &entity.CandidateMatch{
				FieldID:        f.ID,
				SourceID:       "document_text",
				Strategy:       constants.StrategyPattern,
				Value:          value,
				BaseConfidence: min(1.0, pt.conf+min(maxKeywordBonus, bonus)),
				Position:       start,
				Context:        window(in.text, start, end, scoringWindow),
			}
			if m.acceptable(f, in, c) {
				cands = append(cands, c)
			}
		}
	}
	best, ok := m.scorer.SelectBest(cands, f)
	if !ok {
		return nil, nil
	}
	return best, nil
}
