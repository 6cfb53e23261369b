package quality

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/joseph-ayodele/form-filler/constants"
	"github.com/joseph-ayodele/form-filler/internal/entity"
	"github.com/joseph-ayodele/form-filler/internal/fieldvalue"
	"github.com/joseph-ayodele/form-filler/internal/llm"
	"github.com/joseph-ayodele/form-filler/internal/rules"
)

const (
	DefaultMaxDocumentAgeDays = 365
	MaxHumanAge               = 120
	MinGrade                  = 1
	MaxGrade                  = 6
	AgeTolerance              = 1

	// EmptyFormFieldID is the pseudo field an empty_form issue is attached to.
	EmptyFormFieldID = "form_general"
)

// Engine checks filled values against heuristics or learned reference patterns.
// It keeps no state between calls.
type Engine struct {
	rules      *rules.Table
	classifier Classifier
	completer  llm.Completer
	logger     *slog.Logger
	now        func() time.Time

	maxDocumentAgeDays int
}

type Option func(*Engine)

func WithRules(t *rules.Table) Option {
	return func(e *Engine) {
		if t != nil {
			e.rules = t
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithCompleter enables the LLM review of document-date fields against the source data.
func WithCompleter(c llm.Completer) Option {
	return func(e *Engine) { e.completer = c }
}

// WithMaxDocumentAge sets how old a document date may be before it is flagged.
func WithMaxDocumentAge(days int) Option {
	return func(e *Engine) {
		if days > 0 {
			e.maxDocumentAgeDays = days
		}
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		rules:              rules.Default(),
		logger:             slog.Default(),
		now:                time.Now,
		maxDocumentAgeDays: DefaultMaxDocumentAgeDays,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.classifier = NewClassifier(e.rules)
	return e
}

// Classifier exposes the label classifier the engine uses.
func (e *Engine) Classifier() Classifier { return e.classifier }

// Input is one filled form to assess.
type Input struct {
	// Fields supplies labels and types; values without a descriptor are checked by id.
	Fields []entity.FieldDescriptor
	// Relationships pair dependent fields, such as an age with its birth date.
	Relationships []entity.FieldRelationship
	Values        map[string]string
	Reference     map[string]entity.ReferencePattern
	Extracted     map[string]entity.ExtractedField
	Iteration     int
}

// tally counts checks and collects issues for one pass.
type tally struct {
	issues []entity.QualityIssue
	total  int
	passed int
}

func (t *tally) check(issue *entity.QualityIssue) {
	t.total++
	if issue == nil {
		t.passed++
		return
	}
	t.issues = append(t.issues, *issue)
}

// assessment holds the derived views of an Input shared by all checks.
type assessment struct {
	Input
	fields     map[string]entity.FieldDescriptor
	birthDates []string          // birth dates filled into this form
	birthOf    map[string]string // age field id -> related birth date field id
	srcBirths  []string // birth dates present in the extracted source data
}

// Assess runs one quality pass. With reference patterns every reference field is checked;
// without them each filled value gets the basic checks.
func (e *Engine) Assess(ctx context.Context, in Input) entity.QualityAssessment {
	start := time.Now()
	a := e.prepare(in)
	var t tally

	switch {
	case !a.hasValues():
		t.issues = append(t.issues, entity.QualityIssue{
			FieldID:    EmptyFormFieldID,
			FieldName:  "Form Completeness",
			Type:       constants.IssueEmptyForm,
			Confidence: 1.0,
			Suggestion: "Form appears to be empty or unreadable",
			Severity:   constants.SeverityCritical,
		})
		t.total = 1
	case len(in.Reference) > 0:
		e.referenceChecks(ctx, a, &t)
	default:
		e.basicChecks(ctx, a, &t)
	}

	res := entity.NewAssessment(dedupe(t.issues), t.total, t.passed, in.Iteration)
	e.logger.Info("quality.assess.done",
		"mode", mode(in),
		"score", res.Score,
		"issues", len(res.Issues),
		"total_checks", res.TotalChecks,
		"passed_checks", res.PassedChecks,
		"requires_correction", res.RequiresCorrection,
		"iteration", in.Iteration,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res
}

func mode(in Input) string {
	if len(in.Reference) > 0 {
		return "reference"
	}
	return "basic"
}

func (e *Engine) prepare(in Input) *assessment {
	a := &assessment{Input: in, fields: make(map[string]entity.FieldDescriptor, len(in.Fields))}
	for _, f := range in.Fields {
		a.fields[f.ID] = f
	}
	for _, id := range sortedKeys(in.Values) {
		v := strings.TrimSpace(in.Values[id])
		if v != "" && e.categoryOf(a, id) == constants.CategoryPersonalDate && fieldvalue.LooksLikeDate(v) {
			a.birthDates = append(a.birthDates, v)
		}
	}
	a.birthOf = e.pairAgeWithBirth(a, in.Relationships)
	for _, k := range sortedKeys(in.Extracted) {
		v := strings.TrimSpace(in.Extracted[k].Value)
		if v == "" || !fieldvalue.LooksLikeDate(v) {
			continue
		}
		if e.classifier.Category(k) == constants.CategoryPersonalDate ||
			e.rules.ContainsAny(rules.BirthContext, k) || e.rules.ContainsAny(rules.BirthDateField, k) {
			a.srcBirths = append(a.srcBirths, v)
		}
	}
	return a
}

// pairAgeWithBirth maps each age field of a relationship onto the first birth date
// field of the same relationship.
func (e *Engine) pairAgeWithBirth(a *assessment, rels []entity.FieldRelationship) map[string]string {
	out := map[string]string{}
	for _, rel := range rels {
		if rel.Kind != "" && rel.Kind != entity.RelationAgeBirth {
			continue
		}
		birth := ""
		for _, id := range rel.FieldIDs {
			if e.categoryOf(a, id) == constants.CategoryPersonalDate {
				birth = id
				break
			}
		}
		if birth == "" {
			continue
		}
		for _, id := range rel.FieldIDs {
			if _, ok := out[id]; !ok && e.classifier.IsAgeField(a.label(id)) {
				out[id] = birth
			}
		}
	}
	return out
}

func (a *assessment) hasValues() bool {
	for _, v := range a.Values {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

// label returns the best available human label for a field id.
func (a *assessment) label(id string) string {
	if f, ok := a.fields[id]; ok && f.Name != "" {
		return f.Name
	}
	if p, ok := a.Reference[id]; ok && p.Label != "" {
		return p.Label
	}
	return id
}

func (e *Engine) categoryOf(a *assessment, id string) constants.SemanticCategory {
	if p, ok := a.Reference[id]; ok && p.Category != "" {
		return p.Category
	}
	return e.classifier.Category(a.label(id))
}

// patternFor synthesizes a reference pattern from the descriptor when no sample exists.
func (e *Engine) patternFor(a *assessment, id string) entity.ReferencePattern {
	if p, ok := a.Reference[id]; ok {
		return p
	}
	label := a.label(id)
	return entity.ReferencePattern{
		FieldID:   id,
		Label:     label,
		Category:  e.classifier.Category(label),
		FieldType: a.fields[id].Type,
	}
}

func (e *Engine) basicChecks(ctx context.Context, a *assessment, t *tally) {
	for _, f := range a.Fields {
		if f.Required && strings.TrimSpace(a.Values[f.ID]) == "" {
			t.check(&entity.QualityIssue{
				FieldID:    f.ID,
				FieldName:  a.label(f.ID),
				Type:       constants.IssueMissingField,
				Confidence: 0.9,
				Suggestion: "Required field '" + a.label(f.ID) + "' is empty",
				Severity:   constants.SeverityMedium,
			})
		}
	}
	for _, id := range sortedKeys(a.Values) {
		v := strings.TrimSpace(a.Values[id])
		if v == "" {
			continue
		}
		p := e.patternFor(a, id)
		t.check(e.formatSanity(p, v))
		t.check(e.basicSemantics(p, v))
		t.check(e.contextual(ctx, a, p, v))
	}
}

func (e *Engine) referenceChecks(ctx context.Context, a *assessment, t *tally) {
	for _, id := range sortedKeys(a.Reference) {
		p := a.Reference[id]
		if p.Label == "" {
			p.Label = a.label(id)
		}
		v := strings.TrimSpace(a.Values[id])
		if v == "" {
			t.check(&entity.QualityIssue{
				FieldID:    id,
				FieldName:  p.Label,
				Type:       constants.IssueMissingField,
				Confidence: 0.9,
				Suggestion: "Field '" + p.Label + "' should be filled based on reference pattern",
				Severity:   constants.SeverityMedium,
			})
			continue
		}
		t.check(e.semanticConsistency(a, p, v))
		t.check(e.formatConsistency(p, v))
		t.check(e.contextual(ctx, a, p, v))
	}
}

// dedupe keeps one issue per field and issue type, preferring the more severe one.
func dedupe(issues []entity.QualityIssue) []entity.QualityIssue {
	type key struct {
		field string
		typ   constants.IssueType
	}
	idx := map[key]int{}
	out := make([]entity.QualityIssue, 0, len(issues))
	for _, is := range issues {
		k := key{is.FieldID, is.Type}
		if i, ok := idx[k]; ok {
			if is.Severity.AtLeast(out[i].Severity) && is.Severity != out[i].Severity {
				out[i] = is
			}
			continue
		}
		idx[k] = len(out)
		out = append(out, is)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
