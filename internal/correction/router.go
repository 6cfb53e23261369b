// Package correction decides how a filled form is corrected after a quality pass.
package correction

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/form-filler/constants"
	"github.com/joseph-ayodele/form-filler/internal/entity"
	"github.com/joseph-ayodele/form-filler/internal/quality"
)

const DefaultMaxIterations = 2

// Action is the router's decision for one assessment.
type Action struct {
	State     constants.CorrectionState `json:"state"`
	Iteration int                       `json:"iteration"`
	Issues    []entity.QualityIssue     `json:"issues,omitempty"`
	// ContextBlock is appended to the extraction request on semantic correction.
	ContextBlock string                      `json:"context_block,omitempty"`
	FieldHints   map[string]entity.FieldHint `json:"field_hints,omitempty"`
	Reason       string                      `json:"reason"`
}

// Done reports whether no further correction pass is needed.
func (a Action) Done() bool { return a.State == constants.StateCompleted }

type Router struct {
	MaxIterations int
	classifier    quality.Classifier
	logger        *slog.Logger
}

func NewRouter(maxIterations int, classifier quality.Classifier, logger *slog.Logger) *Router {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{MaxIterations: maxIterations, classifier: classifier, logger: logger}
}

// Route picks the next correction step. A correction increments the iteration by one;
// a completed action keeps it.
func (r *Router) Route(a entity.QualityAssessment, iteration int) Action {
	act := r.route(a, iteration)
	r.logger.Info("correction.route",
		"state", act.State,
		"iteration", act.Iteration,
		"issues", len(act.Issues),
		"score", a.Score,
		"reason", act.Reason,
	)
	return act
}

func (r *Router) route(a entity.QualityAssessment, iteration int) Action {
	done := func(reason string) Action {
		return Action{State: constants.StateCompleted, Iteration: iteration, Issues: a.Issues, Reason: reason}
	}
	if iteration >= r.MaxIterations {
		return done(fmt.Sprintf("max iterations reached (%d)", r.MaxIterations))
	}
	if !a.RequiresCorrection {
		return done("quality acceptable")
	}

	var semantic, format []entity.QualityIssue
	for _, is := range a.Issues {
		switch {
		case is.Type.IsSemantic():
			semantic = append(semantic, is)
		case is.Type.IsFormat() && is.Severity.RequiresAction():
			format = append(format, is)
		}
	}

	switch {
	case len(semantic) > 0:
		return Action{
			State:        constants.StateSemanticCorrection,
			Iteration:    iteration + 1,
			Issues:       semantic,
			ContextBlock: r.contextBlock(semantic, iteration+1),
			FieldHints:   hints(semantic),
			Reason:       fmt.Sprintf("%d semantic issue(s) need re-extraction", len(semantic)),
		}
	case len(format) > 0:
		return Action{
			State:      constants.StateFormatCorrection,
			Iteration:  iteration + 1,
			Issues:     format,
			FieldHints: hints(format),
			Reason:     fmt.Sprintf("%d format issue(s) need re-mapping", len(format)),
		}
	}
	return done("no correctable issues")
}

// hints builds the re-map table: each flagged value is avoided on the next pass.
func hints(issues []entity.QualityIssue) map[string]entity.FieldHint {
	out := make(map[string]entity.FieldHint, len(issues))
	for _, is := range issues {
		h := out[is.FieldID]
		if is.CurrentValue != "" && !containsFold(h.Avoid, is.CurrentValue) {
			h.Avoid = append(h.Avoid, is.CurrentValue)
		}
		if is.Suggestion != "" {
			if h.Note != "" {
				h.Note += "; "
			}
			h.Note += is.Suggestion
		}
		out[is.FieldID] = h
	}
	return out
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func (r *Router) contextBlock(issues []entity.QualityIssue, iteration int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "QUALITY CORRECTION (attempt %d):\n", iteration)
	for _, is := range issues {
		name := is.FieldName
		if name == "" {
			name = is.FieldID
		}
		fmt.Fprintf(&b, "- %s (%s): ", name, is.FieldID)
		switch is.Type {
		case constants.IssueTemporalInconsistency:
			if r.classifier.Category(name) == constants.CategoryPersonalDate {
				b.WriteString("this field expects the person's date of birth")
			} else {
				b.WriteString("this field expects a document/submission date, not a birth date")
			}
		case constants.IssueContextualError:
			b.WriteString("the current value contradicts the source documents")
		default:
			b.WriteString("the current value does not fit the meaning of this field")
		}
		if is.CurrentValue != "" {
			fmt.Fprintf(&b, "; avoid value %q", is.CurrentValue)
		}
		if is.Suggestion != "" {
			b.WriteString(". ")
			b.WriteString(is.Suggestion)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Loop tracks the correction iterations of one document/form pair.
type Loop struct {
	router    *Router
	iteration int
	history   []Action
}

func (r *Router) NewLoop() *Loop { return &Loop{router: r} }

// Next routes the assessment and advances the counter.
func (l *Loop) Next(a entity.QualityAssessment) Action {
	act := l.router.Route(a, l.iteration)
	l.iteration = act.Iteration
	l.history = append(l.history, act)
	return act
}

func (l *Loop) Iteration() int    { return l.iteration }
func (l *Loop) History() []Action { return l.history }

func (l *Loop) Reset() {
	l.iteration = 0
	l.history = nil
}
