// Package temporal picks the document date out of text that also carries
// biographical dates, and holds the date realism checks shared with quality.
package temporal

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/joseph-ayodele/form-filler/constants"
	"github.com/joseph-ayodele/form-filler/internal/entity"
	"github.com/joseph-ayodele/form-filler/internal/fieldvalue"
	"github.com/joseph-ayodele/form-filler/internal/rules"
)

// ContextRadius is how many characters around a date are inspected.
const ContextRadius = 50

// Score contributions.
const (
	scoreSubmission = 30
	scoreSalutation = 20
	scoreCityDate   = 25
	scoreRecent     = 40
	scoreOld        = -50
	scoreBirth      = -60
	scoreCV         = -30
)

var (
	reDateToken = regexp.MustCompile(`\d{1,2}\.\d{1,2}\.\d{2,4}|\d{1,2}/\d{1,2}/\d{2,4}`)
	reCityComma = regexp.MustCompile(`\p{Lu}[\p{L}\-]+,\s*$`)
)

// Candidate is one date-like substring of the document text.
type Candidate struct {
	Value    string
	Position int
	Context  string
	// Before is the text immediately preceding the date inside the window.
	Before string
}

// Scan returns every date-like substring of text with its surrounding window.
func Scan(text string) []Candidate {
	locs := reDateToken.FindAllStringIndex(text, -1)
	out := make([]Candidate, 0, len(locs))
	for _, loc := range locs {
		start := max(0, loc[0]-ContextRadius)
		end := min(len(text), loc[1]+ContextRadius)
		out = append(out, Candidate{
			Value:    text[loc[0]:loc[1]],
			Position: loc[0],
			Context:  text[start:end],
			Before:   text[start:loc[0]],
		})
	}
	return out
}

// Disambiguator scores date candidates by surrounding prose and recency.
type Disambiguator struct {
	rules  *rules.Table
	now    func() time.Time
	logger *slog.Logger

	recentWindowYears int
	oldAfterYears     int
	minScore          int
}

type Option func(*Disambiguator)

func WithRules(t *rules.Table) Option {
	return func(d *Disambiguator) {
		if t != nil {
			d.rules = t
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Disambiguator) {
		if now != nil {
			d.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Disambiguator) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithRecentWindow sets how many calendar years from now still count as recent.
func WithRecentWindow(years int) Option {
	return func(d *Disambiguator) {
		if years >= 0 {
			d.recentWindowYears = years
		}
	}
}

// WithOldAfter sets how many years before the current year a date is considered clearly old.
func WithOldAfter(years int) Option {
	return func(d *Disambiguator) {
		if years > 0 {
			d.oldAfterYears = years
		}
	}
}

// WithMinScore sets the score a winner must exceed.
func WithMinScore(score int) Option {
	return func(d *Disambiguator) { d.minScore = score }
}

func New(opts ...Option) *Disambiguator {
	d := &Disambiguator{
		rules:             rules.Default(),
		now:               time.Now,
		logger:            slog.Default(),
		recentWindowYears: 1,
		oldAfterYears:     5,
		minScore:          10,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Score returns the signed plausibility of c being the document's own date.
func (d *Disambiguator) Score(c Candidate) int {
	ctx := strings.ToLower(c.Context)
	score := 0
	if d.rules.ContainsAny(rules.SubmissionVocab, ctx) {
		score += scoreSubmission
	}
	if d.rules.ContainsAny(rules.SalutationVocab, ctx) {
		score += scoreSalutation
	}
	if reCityComma.MatchString(c.Before) {
		score += scoreCityDate
	}
	if year, ok := candidateYear(c.Value); ok {
		current := d.now().Year()
		switch {
		case abs(current-year) <= d.recentWindowYears:
			score += scoreRecent
		case year < current-d.oldAfterYears:
			score += scoreOld
		}
	}
	if d.rules.ContainsAny(rules.BirthVocab, ctx) {
		score += scoreBirth
	}
	if d.rules.ContainsAny(rules.CVVocab, ctx) {
		score += scoreCV
	}
	return score
}

// Disambiguate returns the best scoring candidate, or false when no candidate
// clears the minimum score.
func (d *Disambiguator) Disambiguate(cands []Candidate, field entity.FieldDescriptor) (Candidate, int, bool) {
	if len(cands) == 0 {
		return Candidate{}, 0, false
	}
	type scored struct {
		c     Candidate
		score int
	}
	all := make([]scored, 0, len(cands))
	for _, c := range cands {
		all = append(all, scored{c: c, score: d.Score(c)})
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].score > all[j].score })
	best := all[0]

	d.logger.Debug("temporal.disambiguate",
		"field_id", field.ID,
		"candidates", len(all),
		"best", best.c.Value,
		"best_score", best.score,
	)
	if best.score <= d.minScore {
		return Candidate{}, best.score, false
	}
	return best.c, best.score, true
}

// DisambiguateText scans text and disambiguates in one step.
func (d *Disambiguator) DisambiguateText(text string, field entity.FieldDescriptor) (string, bool) {
	c, _, ok := d.Disambiguate(Scan(text), field)
	if !ok {
		return "", false
	}
	return c.Value, true
}

// IsDocumentDateField reports whether field asks for the date a document was
// written, submitted or received rather than a personal date.
func IsDocumentDateField(t *rules.Table, field entity.FieldDescriptor) bool {
	name := strings.ToLower(field.Name)
	ctx := strings.ToLower(field.Context)
	isDate := field.Type == constants.FieldDate || t.ContainsAny(rules.DateField, name)
	if !isDate {
		return false
	}
	if t.ContainsAny(rules.BirthDateField, name) {
		return false
	}
	return t.ContainsAny(rules.DocumentDateField, name) ||
		t.ContainsAny(rules.DocumentDateContext, ctx) ||
		t.ContainsAny(rules.SubmissionVocab, ctx)
}

func candidateYear(value string) (int, bool) {
	if t, ok := fieldvalue.ParseDate(value); ok {
		return t.Year(), true
	}
	// fall back to the trailing year token for impossible calendar dates
	sep := strings.LastIndexAny(value, "./")
	if sep < 0 || sep == len(value)-1 {
		return 0, false
	}
	y := 0
	for _, r := range value[sep+1:] {
		if r < '0' || r > '9' {
			return 0, false
		}
		y = y*10 + int(r-'0')
	}
	return fieldvalue.ExpandYear(y), true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
