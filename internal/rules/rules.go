// Package rules holds the keyword vocabulary the matcher, scorer and quality
// checks consult, as a language -> category -> keywords table.
package rules

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Category names referenced from code.
const (
	CompanyField        = "company_field"
	EmployeeField       = "employee_field"
	EmployerContext     = "employer_context"
	EmployeeContext     = "employee_context"
	EmployerIndicator   = "employer_indicator"
	CandidateIndicator  = "candidate_indicator"
	CompanyLabel        = "company_label"
	OrgSuffix           = "org_suffix"
	PublicEmailDomain   = "public_email_domain"
	SubmissionVocab     = "submission_vocab"
	SalutationVocab     = "salutation_vocab"
	BirthVocab          = "birth_vocab"
	CVVocab             = "cv_vocab"
	DocumentDateField   = "document_date_field"
	DocumentDateContext = "document_date_context"
	BirthDateField      = "birth_date_field"
	SigningContext      = "signing_context"
	LocationField       = "location_field"
	DateField           = "date_field"
	NameField           = "name_field"
	FirstNameField      = "first_name_field"
	LastNameField       = "last_name_field"
	ContactPersonField  = "contact_person_field"
	EmailField          = "email_field"
	PhoneField          = "phone_field"
	AddressField        = "address_field"
	AgeField            = "age_field"
	GradeField          = "grade_field"
	NationalityField    = "nationality_field"
	NameContext         = "name_context"
	BirthContext        = "birth_context"
	NationalityContext  = "nationality_context"
	EmployerNameContext = "employer_name_context"
	NonNamePhrases      = "non_name_phrases"
	LabelNoise          = "label_noise"
	VagueValues         = "vague_values"
	CompanyFragment     = "company_fragment"
	KnownCities         = "known_cities"
)

// GenerationRule describes a field whose value is derived from context rather than extracted.
type GenerationRule struct {
	Name                    string   `yaml:"name"`
	Kind                    string   `yaml:"kind"`
	NameKeywords            []string `yaml:"name_keywords"`
	ContextCategories       []string `yaml:"context_categories"`
	IDHints                 []string `yaml:"id_hints,omitempty"`
	EmployerDocumentMarkers []string `yaml:"employer_document_markers,omitempty"`
}

// Generation rule kinds.
const (
	KindEmployerLocation = "employer_location"
	KindCurrentDate      = "current_date"
)

// Table is the parsed rule document. It is immutable once built and safe for concurrent reads.
type Table struct {
	Languages  map[string]map[string][]string `yaml:"languages"`
	Synonyms   map[string][]string            `yaml:"synonyms"`
	Generation []GenerationRule               `yaml:"generation"`

	merged   map[string][]string
	wordRe   map[string]*regexp.Regexp
	synIndex map[string]string
}

var defaultTable = sync.OnceValue(func() *Table {
	t, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("rules: embedded default table: %v", err))
	}
	return t
})

// Default returns the built-in table.
func Default() *Table { return defaultTable() }

// Parse reads a rule document.
func Parse(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	t.build()
	return &t, nil
}

// Load returns the default table extended by the rule file at path.
// An empty path yields the default table.
func Load(path string) (*Table, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	override, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return Default().Merge(override), nil
}

// Merge returns a new table holding the union of both tables' keywords.
// Generation rules from other replace rules of the same name.
func (t *Table) Merge(other *Table) *Table {
	out := &Table{
		Languages: map[string]map[string][]string{},
		Synonyms:  map[string][]string{},
	}
	for _, src := range []*Table{t, other} {
		if src == nil {
			continue
		}
		for lang, cats := range src.Languages {
			if out.Languages[lang] == nil {
				out.Languages[lang] = map[string][]string{}
			}
			for cat, kws := range cats {
				out.Languages[lang][cat] = append(out.Languages[lang][cat], kws...)
			}
		}
		for group, words := range src.Synonyms {
			out.Synonyms[group] = append(out.Synonyms[group], words...)
		}
	}
	byName := map[string]int{}
	for _, src := range []*Table{t, other} {
		if src == nil {
			continue
		}
		for _, g := range src.Generation {
			if i, ok := byName[g.Name]; ok {
				out.Generation[i] = g
				continue
			}
			byName[g.Name] = len(out.Generation)
			out.Generation = append(out.Generation, g)
		}
	}
	out.build()
	return out
}

func (t *Table) build() {
	t.merged = map[string][]string{}
	seen := map[string]map[string]struct{}{}
	langs := make([]string, 0, len(t.Languages))
	for lang := range t.Languages {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	for _, lang := range langs {
		for cat, kws := range t.Languages[lang] {
			if seen[cat] == nil {
				seen[cat] = map[string]struct{}{}
			}
			for _, kw := range kws {
				kw = strings.ToLower(kw)
				if strings.TrimSpace(kw) == "" {
					continue
				}
				if _, dup := seen[cat][kw]; dup {
					continue
				}
				seen[cat][kw] = struct{}{}
				t.merged[cat] = append(t.merged[cat], kw)
			}
		}
	}

	t.wordRe = map[string]*regexp.Regexp{}
	for cat, kws := range t.merged {
		quoted := make([]string, len(kws))
		for i, kw := range kws {
			quoted[i] = regexp.QuoteMeta(strings.TrimSpace(kw))
		}
		t.wordRe[cat] = regexp.MustCompile(`(?:^|[^\p{L}\p{N}])(?:` + strings.Join(quoted, "|") + `)(?:[^\p{L}\p{N}]|$)`)
	}

	t.synIndex = map[string]string{}
	for group, words := range t.Synonyms {
		for _, w := range words {
			t.synIndex[strings.ToLower(w)] = group
		}
	}
}

// Keywords returns the lower-cased keywords of a category across all languages.
func (t *Table) Keywords(category string) []string {
	return t.merged[category]
}

// ContainsAny reports whether text contains any keyword of category.
func (t *Table) ContainsAny(category, text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range t.merged[category] {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Count returns how many distinct keywords of category occur in text.
func (t *Table) Count(category, text string) int {
	return len(t.Matching(category, text))
}

// Matching returns the keywords of category found in text.
func (t *Table) Matching(category, text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, kw := range t.merged[category] {
		if strings.Contains(lower, kw) {
			out = append(out, kw)
		}
	}
	return out
}

// ContainsWord is like ContainsAny but only matches whole words.
func (t *Table) ContainsWord(category, text string) bool {
	re, ok := t.wordRe[category]
	if !ok {
		return false
	}
	return re.MatchString(strings.ToLower(text))
}

// SynonymGroup returns the synonym group a word belongs to.
func (t *Table) SynonymGroup(word string) (string, bool) {
	g, ok := t.synIndex[strings.ToLower(strings.TrimSpace(word))]
	return g, ok
}
