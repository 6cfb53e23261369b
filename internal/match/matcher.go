package match

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/form-filler/constants"
	"github.com/joseph-ayodele/form-filler/internal/entity"
	"github.com/joseph-ayodele/form-filler/internal/fieldvalue"
	"github.com/joseph-ayodele/form-filler/internal/llm"
	"github.com/joseph-ayodele/form-filler/internal/rules"
	"github.com/joseph-ayodele/form-filler/internal/scoring"
	"github.com/joseph-ayodele/form-filler/internal/temporal"
)

// Matcher maps form fields onto extracted source data using an ordered set of strategies.
// It holds no per-run state and is safe for concurrent use.
type Matcher struct {
	completer llm.Completer
	logger    *slog.Logger
	rules     *rules.Table
	scorer    *scoring.Scorer
	temporal  *temporal.Disambiguator
	now       func() time.Time

	updateMargin        float64
	companyUpdateMargin float64
	minAccept           float64
	shortCircuit        float64
	similarityMinLen    int
}

// NewMatcher builds a Matcher. completer may be nil, in which case the LLM strategy is skipped.
func NewMatcher(completer llm.Completer, opts ...Option) *Matcher {
	m := &Matcher{
		completer:           completer,
		logger:              slog.Default(),
		rules:               rules.Default(),
		now:                 time.Now,
		updateMargin:        DefaultUpdateMargin,
		companyUpdateMargin: DefaultCompanyUpdateMargin,
		minAccept:           DefaultMinAcceptConfidence,
		shortCircuit:        DefaultShortCircuit,
		similarityMinLen:    DefaultSimilarityMinLength,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.scorer == nil {
		m.scorer = scoring.New(m.rules)
	}
	if m.temporal == nil {
		m.temporal = temporal.New(temporal.WithRules(m.rules), temporal.WithClock(m.now), temporal.WithLogger(m.logger))
	}
	return m
}

// Sources is everything a field can be matched against.
type Sources struct {
	entity.DocumentSet
	// Hints carries per-field guidance from the correction router.
	Hints map[string]entity.FieldHint
	// Guidance is free text added to every LLM prompt during a correction pass.
	Guidance string
}

// Result is the outcome of matching a whole form.
type Result struct {
	Mappings map[string]entity.FieldMapping `json:"mappings"`
	Unfilled []string                       `json:"unfilled"`
	Failures map[string]string              `json:"failures,omitempty"`
}

// input is Sources with the derived search text computed once per run.
type input struct {
	Sources
	text string
	keys []string
}

func newInput(src Sources) *input {
	in := &input{Sources: src, keys: src.SortedKeys()}
	var b strings.Builder
	b.WriteString(src.CombinedText())
	if len(in.keys) > 0 {
		b.WriteString("\n--- extracted fields ---\n")
		for _, k := range in.keys {
			fmt.Fprintf(&b, "%s: %s\n", k, src.Extracted[k].Value)
		}
	}
	in.text = b.String()
	return in
}

func (in *input) hint(fieldID string) entity.FieldHint {
	return in.Hints[fieldID]
}

// MatchAll matches every field sequentially. Each field gets at most one mapping.
func (m *Matcher) MatchAll(ctx context.Context, fields []entity.FieldDescriptor, src Sources) Result {
	start := time.Now()
	in := newInput(src)
	res := Result{
		Mappings: make(map[string]entity.FieldMapping, len(fields)),
		Failures: map[string]string{},
	}
	for _, f := range fields {
		if err := ctx.Err(); err != nil {
			res.Unfilled = append(res.Unfilled, f.ID)
			res.Failures[f.ID] = err.Error()
			continue
		}
		out := m.matchField(ctx, f, in)
		switch out.Kind {
		case entity.OutcomeFound:
			res.Mappings[f.ID] = out.Mapping
		case entity.OutcomeCollaboratorError:
			res.Unfilled = append(res.Unfilled, f.ID)
			res.Failures[f.ID] = out.Reason
		default:
			res.Unfilled = append(res.Unfilled, f.ID)
		}
	}
	m.logger.Info("match.all.done",
		"fields", len(fields),
		"mapped", len(res.Mappings),
		"unfilled", len(res.Unfilled),
		"failures", len(res.Failures),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res
}

// MatchField matches a single field.
func (m *Matcher) MatchField(ctx context.Context, f entity.FieldDescriptor, src Sources) entity.MatchOutcome {
	return m.matchField(ctx, f, newInput(src))
}

func (m *Matcher) matchField(ctx context.Context, f entity.FieldDescriptor, in *input) entity.MatchOutcome {
	for _, pre := range []func(entity.FieldDescriptor, *input) *entity.CandidateMatch{
		m.generate, m.direct, m.hinted, m.temporalMatch,
	} {
		if c := pre(f, in); c != nil && m.acceptable(f, in, c) {
			return m.found(f, c)
		}
	}

	var best *entity.CandidateMatch
	var failures []string
	for _, s := range m.chain(f) {
		if err := ctx.Err(); err != nil {
			failures = append(failures, err.Error())
			break
		}
		c, err := s.run(ctx, f, in)
		if err != nil {
			m.logger.Warn("match.strategy.failed", "field_id", f.ID, "strategy", s.name, "error", err)
			failures = append(failures, fmt.Sprintf("%s: %v", s.name, err))
			continue
		}
		if c == nil || !m.acceptable(f, in, c) {
			continue
		}
		if m.shouldUpdate(c, best, f) {
			m.logger.Debug("match.strategy.update", "field_id", f.ID, "strategy", s.name, "score", c.FinalScore)
			best = c
		}
		if best.FinalScore >= m.shortCircuit {
			break
		}
	}

	if best == nil {
		if c := m.similarity(f, in); c != nil && m.acceptable(f, in, c) {
			best = c
		}
	}
	if best != nil && best.FinalScore >= m.minAccept {
		return m.found(f, best)
	}
	if len(failures) > 0 {
		m.logger.Warn("match.field.collaborator_error", "field_id", f.ID, "reason", strings.Join(failures, "; "))
		return entity.CollaboratorError(strings.Join(failures, "; "))
	}
	m.logger.Debug("match.field.not_found", "field_id", f.ID, "field_name", f.Name)
	return entity.NotFound()
}

// acceptable rejects empty values and values a correction pass told us to avoid.
func (m *Matcher) acceptable(f entity.FieldDescriptor, in *input, c *entity.CandidateMatch) bool {
	v := strings.TrimSpace(c.Value)
	if v == "" {
		return false
	}
	for _, avoid := range in.hint(f.ID).Avoid {
		if strings.EqualFold(v, strings.TrimSpace(avoid)) ||
			fieldvalue.Format(v, f.Type) == fieldvalue.Format(avoid, f.Type) {
			return false
		}
	}
	return true
}

func (m *Matcher) found(f entity.FieldDescriptor, c *entity.CandidateMatch) entity.MatchOutcome {
	value := fieldvalue.Format(c.Value, f.Type)
	m.logger.Info("match.field.found",
		"field_id", f.ID,
		"field_name", f.Name,
		"method", c.Strategy,
		"source", c.SourceID,
		"confidence", c.FinalScore,
	)
	return entity.Found(entity.FieldMapping{
		FieldID:    f.ID,
		SourceID:   c.SourceID,
		Value:      value,
		Confidence: c.FinalScore,
		Method:     c.Strategy,
		Reasoning:  reasoning(c),
	})
}

func reasoning(c *entity.CandidateMatch) string {
	switch c.Strategy {
	case constants.StrategyPattern:
		return fmt.Sprintf("pattern match at position %d (context score %+.2f)", c.Position, c.ContextScore)
	case constants.StrategyGenerated:
		return "generated from " + c.SourceID
	case constants.StrategyTemporal:
		return "most plausible document date"
	}
	if c.SourceID != "" {
		return fmt.Sprintf("%s via %s", c.SourceID, c.Strategy)
	}
	return string(c.Strategy)
}

// shouldUpdate decides whether candidate n replaces the current best cur.
func (m *Matcher) shouldUpdate(n, cur *entity.CandidateMatch, f entity.FieldDescriptor) bool {
	if cur == nil {
		return true
	}
	company := m.scorer.IsCompanyField(f)
	if company && m.isEmailField(f) &&
		(n.Strategy == constants.StrategyLLM || n.Strategy == constants.StrategyPattern) {
		return n.FinalScore > cur.FinalScore
	}
	if company {
		if n.Strategy == constants.StrategyLLM && m.scorer.HasOrgSuffix(n.Value) && !m.scorer.HasOrgSuffix(cur.Value) {
			return true
		}
		return n.FinalScore > cur.FinalScore+m.companyUpdateMargin
	}
	return n.FinalScore > cur.FinalScore+m.updateMargin
}

func (m *Matcher) isEmailField(f entity.FieldDescriptor) bool {
	return f.Type == constants.FieldEmail || m.rules.ContainsAny(rules.EmailField, f.Name)
}

type strategy struct {
	name constants.Strategy
	run  func(context.Context, entity.FieldDescriptor, *input) (*entity.CandidateMatch, error)
}

// chain orders the scored strategies. Company fields consult the LLM first.
func (m *Matcher) chain(f entity.FieldDescriptor) []strategy {
	llmS := strategy{constants.StrategyLLM, m.llmMatch}
	pattern := strategy{constants.StrategyPattern, m.patternMatch}
	kv := strategy{constants.StrategyStructuredKV, m.keyValueMatch}
	if m.scorer.IsCompanyField(f) {
		return []strategy{llmS, pattern, kv}
	}
	return []strategy{pattern, kv, llmS}
}
