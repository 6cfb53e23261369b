// Package scoring ranks raw candidate values for a field using entity type,
// originating document and email domain signals.
package scoring

import (
	"sort"
	"strings"
	"unicode"

	"github.com/joseph-ayodele/form-filler/constants"
	"github.com/joseph-ayodele/form-filler/internal/entity"
	"github.com/joseph-ayodele/form-filler/internal/rules"
)

// Entity is what kind of party a field is about.
type Entity int

const (
	EntityUnknown Entity = iota
	EntityCompany
	EntityPerson
)

func (e Entity) String() string {
	switch e {
	case EntityCompany:
		return "company"
	case EntityPerson:
		return "person"
	}
	return "unknown"
}

// Weights are the additive adjustments applied on top of a candidate's base confidence.
type Weights struct {
	OrgSuffixBonus             float64
	CompanyLabelBonus          float64
	PersonNamePenalty          float64
	DocumentMatchBonus         float64
	DocumentMismatchPenalty    float64
	KeywordStep                float64
	OtherKeywordFactor         float64
	PublicDomainPersonBonus    float64
	BusinessDomainPersonMalus  float64
	PublicDomainCompanyMalus   float64
	BusinessDomainCompanyBonus float64
	VagueValuePenalty          float64
	PositionDivisor            float64
}

func DefaultWeights() Weights {
	return Weights{
		OrgSuffixBonus:             0.5,
		CompanyLabelBonus:          0.3,
		PersonNamePenalty:          0.6,
		DocumentMatchBonus:         0.8,
		DocumentMismatchPenalty:    0.8,
		KeywordStep:                0.1,
		OtherKeywordFactor:         0.5,
		PublicDomainPersonBonus:    0.6,
		BusinessDomainPersonMalus:  0.4,
		PublicDomainCompanyMalus:   0.7,
		BusinessDomainCompanyBonus: 0.2,
		VagueValuePenalty:          0.2,
		PositionDivisor:            10000,
	}
}

type Scorer struct {
	rules *rules.Table
	w     Weights
}

type Option func(*Scorer)

func WithWeights(w Weights) Option {
	return func(s *Scorer) { s.w = w }
}

func New(t *rules.Table, opts ...Option) *Scorer {
	if t == nil {
		t = rules.Default()
	}
	s := &Scorer{rules: t, w: DefaultWeights()}
	for _, o := range opts {
		o(s)
	}
	if s.w.PositionDivisor <= 0 {
		s.w.PositionDivisor = 10000
	}
	return s
}

// Rules exposes the vocabulary the scorer was built with.
func (s *Scorer) Rules() *rules.Table { return s.rules }

// ExpectedEntity infers from the field's name and context which party the value belongs to.
// Person vocabulary in the field name wins, so "contact person of the employer" is a person.
func (s *Scorer) ExpectedEntity(f entity.FieldDescriptor) Entity {
	name := strings.ToLower(f.Name + " " + f.ID)
	text := f.Text()
	switch {
	case s.rules.ContainsAny(rules.ContactPersonField, name), s.rules.ContainsAny(rules.EmployeeField, name):
		return EntityPerson
	case s.rules.ContainsAny(rules.CompanyField, text):
		return EntityCompany
	case s.rules.ContainsAny(rules.EmployeeField, text):
		return EntityPerson
	}
	return EntityUnknown
}

// IsCompanyField reports whether the field asks for an organization.
func (s *Scorer) IsCompanyField(f entity.FieldDescriptor) bool {
	return s.ExpectedEntity(f) == EntityCompany
}

// HasOrgSuffix reports whether value carries a legal-entity or organization token.
func (s *Scorer) HasOrgSuffix(value string) bool {
	return s.rules.ContainsWord(rules.OrgSuffix, value)
}

// LooksLikePersonName reports whether value is two capitalized words without an org token.
func (s *Scorer) LooksLikePersonName(value string) bool {
	words := strings.Fields(value)
	if len(words) != 2 || s.HasOrgSuffix(value) {
		return false
	}
	for _, w := range words {
		r := []rune(w)
		if !unicode.IsUpper(r[0]) {
			return false
		}
		for _, c := range r {
			if unicode.IsDigit(c) {
				return false
			}
		}
	}
	return true
}

func (s *Scorer) isEmailField(f entity.FieldDescriptor) bool {
	return f.Type == constants.FieldEmail || s.rules.ContainsAny(rules.EmailField, f.Name)
}

// Score sets c.ContextScore and c.FinalScore and returns the final score in [0, 1].
func (s *Scorer) Score(c *entity.CandidateMatch, f entity.FieldDescriptor) float64 {
	raw := s.rank(c, f)
	c.FinalScore = entity.ClampConfidence(raw)
	return c.FinalScore
}

// rank computes the unclamped score used for ordering.
func (s *Scorer) rank(c *entity.CandidateMatch, f entity.FieldDescriptor) float64 {
	ent := s.ExpectedEntity(f)
	ctx := strings.ToLower(c.Context)
	val := strings.ToLower(c.Value)

	adj := 0.0
	if s.isEmailField(f) && ent != EntityUnknown {
		adj += s.emailDomainAdjustment(val, ent)
	}
	if s.rules.ContainsAny(rules.VagueValues, val) {
		adj -= s.w.VagueValuePenalty
	}

	employerInd := s.rules.Count(rules.EmployerIndicator, ctx)
	candidateInd := s.rules.Count(rules.CandidateIndicator, ctx)

	switch ent {
	case EntityCompany:
		suffix := s.HasOrgSuffix(c.Value)
		if suffix {
			adj += s.w.OrgSuffixBonus
		}
		if s.rules.ContainsAny(rules.CompanyLabel, ctx) {
			adj += s.w.CompanyLabelBonus
		}
		if !suffix && s.LooksLikePersonName(c.Value) {
			adj -= s.w.PersonNamePenalty
		}
		own := s.rules.Count(rules.EmployerContext, ctx)
		other := s.rules.Count(rules.EmployeeContext, ctx)
		adj += (float64(own) - float64(other)*s.w.OtherKeywordFactor) * s.w.KeywordStep
		adj += s.documentAdjustment(employerInd, candidateInd)
	case EntityPerson:
		own := s.rules.Count(rules.EmployeeContext, ctx)
		other := s.rules.Count(rules.EmployerContext, ctx)
		adj += (float64(own) - float64(other)*s.w.OtherKeywordFactor) * s.w.KeywordStep
		adj += s.documentAdjustment(candidateInd, employerInd)
	}

	c.ContextScore = adj
	return c.BaseConfidence + adj - float64(c.Position)/s.w.PositionDivisor
}

// documentAdjustment rewards spans that read like the expected party's document.
func (s *Scorer) documentAdjustment(ownIndicators, otherIndicators int) float64 {
	switch {
	case ownIndicators > otherIndicators:
		return s.w.DocumentMatchBonus
	case otherIndicators > ownIndicators:
		return -s.w.DocumentMismatchPenalty
	}
	return 0
}

func (s *Scorer) emailDomainAdjustment(value string, ent Entity) float64 {
	domain := value
	if at := strings.LastIndex(value, "@"); at >= 0 {
		domain = value[at+1:]
	}
	public := s.rules.ContainsAny(rules.PublicEmailDomain, domain)
	switch ent {
	case EntityCompany:
		if public {
			return -s.w.PublicDomainCompanyMalus
		}
		return s.w.BusinessDomainCompanyBonus
	case EntityPerson:
		if public {
			return s.w.PublicDomainPersonBonus
		}
		return -s.w.BusinessDomainPersonMalus
	}
	return 0
}

// SelectBest ranks cands for f and returns the best one whose value survives cleaning.
// The returned candidate carries the cleaned value and its clamped final score.
func (s *Scorer) SelectBest(cands []*entity.CandidateMatch, f entity.FieldDescriptor) (*entity.CandidateMatch, bool) {
	if len(cands) == 0 {
		return nil, false
	}
	type ranked struct {
		c   *entity.CandidateMatch
		raw float64
	}
	all := make([]ranked, 0, len(cands))
	for _, c := range cands {
		all = append(all, ranked{c: c, raw: s.rank(c, f)})
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].raw != all[j].raw {
			return all[i].raw > all[j].raw
		}
		return all[i].c.Position < all[j].c.Position
	})
	for _, r := range all {
		cleaned := s.Clean(r.c.Value, f)
		if cleaned == "" {
			continue
		}
		r.c.Value = cleaned
		r.c.FinalScore = entity.ClampConfidence(r.raw)
		return r.c, true
	}
	return nil, false
}
