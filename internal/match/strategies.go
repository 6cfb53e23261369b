package match

import (
	"context"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/form-filler/constants"
	"github.com/joseph-ayodele/form-filler/internal/entity"
	"github.com/joseph-ayodele/form-filler/internal/fieldvalue"
	"github.com/joseph-ayodele/form-filler/internal/llm"
	"github.com/joseph-ayodele/form-filler/internal/rules"
	"github.com/joseph-ayodele/form-filler/internal/temporal"
)

func fixed(f entity.FieldDescriptor, source, value string, s constants.Strategy, conf float64) *entity.CandidateMatch {
	return &entity.CandidateMatch{
		FieldID:        f.ID,
		SourceID:       source,
		Strategy:       s,
		Value:          strings.TrimSpace(value),
		BaseConfidence: conf,
		FinalScore:     conf,
	}
}

// generate applies the declarative generation rules (signing location, signing date).
func (m *Matcher) generate(f entity.FieldDescriptor, in *input) *entity.CandidateMatch {
	for _, rule := range m.rules.Generation {
		if !m.generationApplies(rule, f) {
			continue
		}
		switch rule.Kind {
		case rules.KindEmployerLocation:
			if city, ok := m.employerLocation(rule, in.Documents); ok {
				return fixed(f, rule.Name, city, constants.StrategyGenerated, constants.ConfidenceGenerated)
			}
		case rules.KindCurrentDate:
			return fixed(f, rule.Name, fieldvalue.FormatDate(m.now()), constants.StrategyGenerated, constants.ConfidenceGenerated)
		}
	}
	return nil
}

func (m *Matcher) generationApplies(rule rules.GenerationRule, f entity.FieldDescriptor) bool {
	name := strings.ToLower(f.Name)
	named := false
	for _, kw := range rule.NameKeywords {
		if strings.Contains(name, strings.ToLower(kw)) {
			named = true
			break
		}
	}
	if !named {
		return false
	}
	ctx := strings.ToLower(f.Context + " " + f.Section)
	for _, cat := range rule.ContextCategories {
		if m.rules.ContainsAny(cat, ctx) {
			return true
		}
	}
	id := strings.ToLower(f.ID)
	for _, h := range rule.IDHints {
		if h != "" && strings.Contains(id, strings.ToLower(h)) {
			return true
		}
	}
	return false
}

var (
	cityPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?m)\d{5}[ \t]+(` + upper + lower + `[ \t]+` + upper + lower + `)[ \t]*$`),
		regexp.MustCompile(`\d{5}[ \t]+(` + upper + lower + `)`),
		regexp.MustCompile(`(?m)(?:^|,[ \t]*)(` + upper + `[a-zäöüß]{3,})[ \t]*(?:,|$)`),
	}
	cityNoise = []string{"gmbh", "str", "email", "tel", "fax"}
)

// employerLocation finds the employer's city: postal-code or standalone city lines in
// employer documents first, then any known city mentioned anywhere.
func (m *Matcher) employerLocation(rule rules.GenerationRule, docs []entity.SourceDocument) (string, bool) {
	for _, doc := range docs {
		if !containsAnyFold(doc.Name, rule.EmployerDocumentMarkers) {
			continue
		}
		for _, re := range cityPatterns {
			for _, sm := range re.FindAllStringSubmatch(doc.Text, -1) {
				city := strings.TrimSpace(sm[1])
				if len([]rune(city)) >= 3 && !containsAnyFold(city, cityNoise) {
					return city, true
				}
			}
		}
	}
	for _, city := range m.rules.Keywords(rules.KnownCities) {
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(city))
		for _, doc := range docs {
			if found := re.FindString(doc.Text); found != "" {
				return found, true
			}
		}
	}
	return "", false
}

func containsAnyFold(s string, words []string) bool {
	lower := strings.ToLower(s)
	for _, w := range words {
		if w != "" && strings.Contains(lower, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

// direct tries the field id, then the exact name, then the name case-insensitively.
func (m *Matcher) direct(f entity.FieldDescriptor, in *input) *entity.CandidateMatch {
	if ef, ok := in.Extracted[f.ID]; ok && strings.TrimSpace(ef.Value) != "" {
		return fixed(f, f.ID, ef.Value, constants.StrategyDirectID, constants.ConfidenceDirectID)
	}
	if f.Name == "" {
		return nil
	}
	if ef, ok := in.Extracted[f.Name]; ok && strings.TrimSpace(ef.Value) != "" {
		return fixed(f, f.Name, ef.Value, constants.StrategyDirectName, constants.ConfidenceDirectName)
	}
	for _, k := range in.keys {
		if strings.EqualFold(k, f.Name) && strings.TrimSpace(in.Extracted[k].Value) != "" {
			return fixed(f, k, in.Extracted[k].Value, constants.StrategyCaseInsensitive, constants.ConfidenceCaseInsensitive)
		}
	}
	return nil
}

// hinted follows a source key the correction router re-mapped this field to.
func (m *Matcher) hinted(f entity.FieldDescriptor, in *input) *entity.CandidateMatch {
	key := strings.TrimSpace(in.hint(f.ID).SourceKey)
	if key == "" {
		return nil
	}
	for _, k := range in.keys {
		if strings.EqualFold(k, key) {
			return fixed(f, k, in.Extracted[k].Value, constants.StrategyCorrectionHint, constants.ConfidenceCorrectionHint)
		}
	}
	for _, kv := range in.KeyValues {
		if strings.EqualFold(kv.Key, key) {
			return fixed(f, kv.Key, kv.Value, constants.StrategyCorrectionHint, constants.ConfidenceCorrectionHint)
		}
	}
	return nil
}

// temporalMatch picks the submission date for document-date fields.
func (m *Matcher) temporalMatch(f entity.FieldDescriptor, in *input) *entity.CandidateMatch {
	if !temporal.IsDocumentDateField(m.rules, f) {
		return nil
	}
	cands := temporal.Scan(in.text)
	filtered := cands[:0:0]
	for _, c := range cands {
		if m.acceptable(f, in, &entity.CandidateMatch{Value: c.Value}) {
			filtered = append(filtered, c)
		}
	}
	best, _, ok := m.temporal.Disambiguate(filtered, f)
	if !ok {
		return nil
	}
	c := fixed(f, "document_text", best.Value, constants.StrategyTemporal, constants.ConfidenceTemporal)
	c.Position = best.Position
	c.Context = best.Context
	return c
}

// keyValueMatch takes the first structured pair whose key relates to the field and whose value validates.
func (m *Matcher) keyValueMatch(_ context.Context, f entity.FieldDescriptor, in *input) (*entity.CandidateMatch, error) {
	for _, kv := range in.KeyValues {
		if !m.keyRelevant(kv.Key, f) || !fieldvalue.Validate(kv.Value, f.Type) {
			continue
		}
		c := fixed(f, kv.Key, kv.Value, constants.StrategyStructuredKV, constants.ConfidenceStructuredKV)
		if !m.acceptable(f, in, c) {
			continue
		}
		return c, nil
	}
	return nil, nil
}

func (m *Matcher) keyRelevant(key string, f entity.FieldDescriptor) bool {
	k := strings.ToLower(key)
	for _, w := range strings.Fields(strings.ToLower(f.Name)) {
		if len([]rune(w)) >= 3 && strings.Contains(k, w) {
			return true
		}
	}
	name := strings.ToLower(f.Name)
	var concepts []string
	switch {
	case m.rules.ContainsAny(rules.NameField, name):
		concepts = []string{rules.NameField, rules.FirstNameField, rules.LastNameField}
	case m.rules.ContainsAny(rules.BirthDateField, name):
		concepts = []string{rules.BirthDateField, rules.BirthContext, rules.DateField}
	case m.rules.ContainsAny(rules.NationalityField, name):
		concepts = []string{rules.NationalityField, rules.NationalityContext}
	}
	for _, cat := range concepts {
		if m.rules.ContainsAny(cat, k) {
			return true
		}
	}
	return false
}

// llmMatch asks the completer which extracted key fits the field.
func (m *Matcher) llmMatch(ctx context.Context, f entity.FieldDescriptor, in *input) (*entity.CandidateMatch, error) {
	if m.completer == nil {
		return nil, nil
	}
	cands := make([]llm.SourceCandidate, 0, len(in.keys))
	for _, k := range in.keys {
		ef := in.Extracted[k]
		cands = append(cands, llm.SourceCandidate{Key: k, Value: ef.Value, Document: ef.OriginDocument})
	}
	lookup := map[string]string{}
	if len(cands) == 0 {
		for _, kv := range in.KeyValues {
			if _, dup := lookup[kv.Key]; dup {
				continue
			}
			lookup[kv.Key] = kv.Value
			cands = append(cands, llm.SourceCandidate{Key: kv.Key, Value: kv.Value, Document: kv.Document})
		}
	}
	if len(cands) == 0 {
		return nil, nil
	}

	sys, user := llm.BuildFieldMatchPrompts(f, cands, m.promptHint(f, in))
	resp, err := m.completer.Complete(ctx, sys, user)
	if err != nil {
		return nil, err
	}
	choice, ok := llm.ParseFieldChoice(resp)
	if !ok || choice.NoMatch {
		m.logger.Debug("match.llm.no_match", "field_id", f.ID, "response", llm.Truncate(resp, 80))
		return nil, nil
	}
	keys := make([]string, len(cands))
	for i, c := range cands {
		keys[i] = c.Key
	}
	key, ok := llm.ResolveKey(choice.Key, keys)
	if !ok {
		m.logger.Debug("match.llm.unknown_key", "field_id", f.ID, "key", choice.Key)
		return nil, nil
	}
	value, ok := lookup[key]
	if !ok {
		value = in.Extracted[key].Value
	}
	if !fieldvalue.Validate(value, f.Type) {
		return nil, nil
	}
	value = m.scorer.Clean(value, f)
	if value == "" {
		return nil, nil
	}
	return fixed(f, key, value, constants.StrategyLLM, choice.Confidence), nil
}

func (m *Matcher) promptHint(f entity.FieldDescriptor, in *input) string {
	var parts []string
	if g := strings.TrimSpace(in.Guidance); g != "" {
		parts = append(parts, g)
	}
	h := in.hint(f.ID)
	if n := strings.TrimSpace(h.Note); n != "" {
		parts = append(parts, n)
	}
	if len(h.Avoid) > 0 {
		parts = append(parts, "Do not use: "+strings.Join(h.Avoid, ", "))
	}
	return strings.Join(parts, "\n")
}

var reNameNoise = regexp.MustCompile(`[_\-\s]+`)

// normalizeName lower-cases a field or key name and drops separators and UI prefixes.
func normalizeName(s string) string {
	s = reNameNoise.ReplaceAllString(strings.ToLower(s), "")
	for _, affix := range []string{"txt", "field", "input", "cell"} {
		s = strings.TrimPrefix(s, affix)
		s = strings.TrimSuffix(s, affix)
	}
	return s
}

// similarity is the last resort: containment of normalized names or a shared synonym group.
// Values that fail validation for the field type are skipped.
func (m *Matcher) similarity(f entity.FieldDescriptor, in *input) *entity.CandidateMatch {
	field := normalizeName(f.Name)
	fieldGroup, fieldHasGroup := m.rules.SynonymGroup(field)
	for _, k := range in.keys {
		value := in.Extracted[k].Value
		if strings.TrimSpace(value) == "" || !fieldvalue.Validate(value, f.Type) {
			continue
		}
		key := normalizeName(k)
		similar := false
		if len([]rune(field)) >= m.similarityMinLen && len([]rune(key)) >= m.similarityMinLen {
			similar = strings.Contains(key, field) || strings.Contains(field, key)
		}
		if !similar && fieldHasGroup {
			g, ok := m.rules.SynonymGroup(key)
			similar = ok && g == fieldGroup
		}
		if similar {
			return fixed(f, k, value, constants.StrategySimilarity, constants.ConfidenceSimilarity)
		}
	}
	return nil
}
