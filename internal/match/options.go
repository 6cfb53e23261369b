package match

import (
	"log/slog"
	"time"

	"github.com/joseph-ayodele/form-filler/internal/rules"
	"github.com/joseph-ayodele/form-filler/internal/scoring"
	"github.com/joseph-ayodele/form-filler/internal/temporal"
)

const (
	DefaultUpdateMargin        = 0.05
	DefaultCompanyUpdateMargin = 0.1
	DefaultMinAcceptConfidence = 0.5
	DefaultShortCircuit        = 0.95
	DefaultSimilarityMinLength = 3
)

// Option configures a Matcher.
type Option func(*Matcher)

func WithLogger(l *slog.Logger) Option {
	return func(m *Matcher) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithRules sets the keyword table. The scorer and disambiguator are built from it unless set explicitly.
func WithRules(t *rules.Table) Option {
	return func(m *Matcher) {
		if t != nil {
			m.rules = t
		}
	}
}

func WithScorer(s *scoring.Scorer) Option {
	return func(m *Matcher) { m.scorer = s }
}

func WithDisambiguator(d *temporal.Disambiguator) Option {
	return func(m *Matcher) { m.temporal = d }
}

// WithClock sets the clock used for generated dates.
func WithClock(now func() time.Time) Option {
	return func(m *Matcher) {
		if now != nil {
			m.now = now
		}
	}
}

// WithUpdateMargins sets how much a later strategy must beat the current best by.
func WithUpdateMargins(general, company float64) Option {
	return func(m *Matcher) {
		m.updateMargin = general
		m.companyUpdateMargin = company
	}
}

// WithMinAcceptConfidence drops winners scoring below c.
func WithMinAcceptConfidence(c float64) Option {
	return func(m *Matcher) { m.minAccept = c }
}

// WithShortCircuit stops the strategy chain once the best candidate reaches c.
func WithShortCircuit(c float64) Option {
	return func(m *Matcher) { m.shortCircuit = c }
}

// WithSimilarityMinLength sets the shortest normalized name the similarity fallback compares.
func WithSimilarityMinLength(n int) Option {
	return func(m *Matcher) {
		if n > 0 {
			m.similarityMinLen = n
		}
	}
}
