// Package pipeline runs one fill session: extract, match, write, assess and correct.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/form-filler/constants"
	"github.com/joseph-ayodele/form-filler/internal/common"
	"github.com/joseph-ayodele/form-filler/internal/correction"
	"github.com/joseph-ayodele/form-filler/internal/entity"
	"github.com/joseph-ayodele/form-filler/internal/extract"
	"github.com/joseph-ayodele/form-filler/internal/forms"
	"github.com/joseph-ayodele/form-filler/internal/match"
	"github.com/joseph-ayodele/form-filler/internal/quality"
	"github.com/joseph-ayodele/form-filler/internal/report"
	"github.com/joseph-ayodele/form-filler/internal/repository"
)

// Job is one document/form pair.
type Job struct {
	Documents string `json:"documents" yaml:"documents"`
	Form      string `json:"form" yaml:"form"`
	Reference string `json:"reference,omitempty" yaml:"reference"`
	Output    string `json:"output,omitempty" yaml:"output"`
	ReportDir string `json:"report_dir,omitempty" yaml:"report_dir"`
}

func (j Job) validate() error {
	v := common.NewValidator().
		Field("documents", j.Documents, common.Required).
		Field("form", j.Form, common.Required)
	return common.ValidateAndReturnError(v)
}

// Outcome is the result of a finished session.
type Outcome struct {
	Run        *report.Run
	Mappings   map[string]entity.FieldMapping
	Unfilled   []string
	Assessment entity.QualityAssessment
	Iterations int
	Issues     []entity.QualityIssue
	ReportPath string
}

// Session holds the collaborators shared by every run. It keeps no per-run state,
// so one Session may serve concurrent runs.
type Session struct {
	logger    *slog.Logger
	forms     *forms.Loader
	extractor extract.Extractor
	matcher   *match.Matcher
	quality   *quality.Engine
	patterns  *quality.PatternCache
	router    *correction.Router
	store     repository.ReportStore
	now       func() time.Time
}

type Option func(*Session)

// WithStore persists every run report into store.
func WithStore(store repository.ReportStore) Option {
	return func(s *Session) { s.store = store }
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

func NewSession(
	loader *forms.Loader,
	extractor extract.Extractor,
	matcher *match.Matcher,
	engine *quality.Engine,
	router *correction.Router,
	logger *slog.Logger,
	opts ...Option,
) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		logger:    logger,
		forms:     loader,
		extractor: extractor,
		matcher:   matcher,
		quality:   engine,
		patterns:  quality.NewPatternCache(engine.Classifier(), forms.ReadReference),
		router:    router,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run fills job.Form from job.Documents and runs the bounded correction loop.
// Only precondition violations (missing form or documents, a form without fields)
// and output failures are returned as errors.
func (s *Session) Run(ctx context.Context, job Job) (Outcome, error) {
	if err := job.validate(); err != nil {
		return Outcome{}, err
	}
	start := s.now()
	run := report.NewRun(job.Form, job.Documents, start)
	run.Reference = job.Reference
	run.Output = job.Output
	ctx = common.WithRunID(ctx, run.ID)
	logger := common.LoggerFromContext(ctx, s.logger).With("run_id", run.ID)
	if p := common.JobPathFromContext(ctx); p != "" {
		logger = logger.With("job_path", p)
	}

	target, err := s.forms.Open(job.Form)
	if err != nil {
		logger.Error("session.form.failed", "form", job.Form, "error", err)
		return Outcome{}, err
	}
	defer target.Close()

	fields := target.Fields()
	if len(fields) == 0 {
		return Outcome{}, common.PreconditionError(fmt.Sprintf("form %s has no fillable fields", job.Form), nil)
	}

	relationships := forms.Relationships(target)
	reference := s.reference(logger, job.Reference)

	docs, err := s.extractor.Extract(ctx, job.Documents, "")
	if err != nil {
		logger.Error("session.extract.failed", "documents", job.Documents, "error", err)
		return Outcome{}, err
	}

	loop := s.router.NewLoop()
	src := match.Sources{DocumentSet: docs}
	written := map[string]bool{}
	var (
		res        match.Result
		assessment entity.QualityAssessment
	)
	for {
		res = s.matcher.MatchAll(ctx, fields, src)
		s.write(logger, target, res, written)

		assessment = s.quality.Assess(ctx, quality.Input{
			Fields:        fields,
			Relationships: relationships,
			Values:        target.Values(),
			Reference:     reference,
			Extracted:     src.Extracted,
			Iteration:     loop.Iteration(),
		})

		act := loop.Next(assessment)
		run.States = append(run.States, act.State)
		if act.Done() {
			break
		}

		hints := mergeHints(src.Hints, act.FieldHints)
		if act.State == constants.StateSemanticCorrection {
			docs, err = s.extractor.Extract(ctx, job.Documents, act.ContextBlock)
			if err != nil {
				logger.Error("session.reextract.failed", "iteration", act.Iteration, "error", err)
				return Outcome{}, err
			}
			src = match.Sources{DocumentSet: docs, Hints: hints, Guidance: act.ContextBlock}
		} else {
			src.Hints = hints
			src.Guidance = ""
		}
		logger.Info("session.correction",
			"state", act.State,
			"iteration", act.Iteration,
			"issues", len(act.Issues),
		)
	}

	run.SetMappings(res.Mappings)
	run.Unfilled = append(run.Unfilled, res.Unfilled...)
	run.Failures = res.Failures
	run.SetAssessment(assessment)
	run.Iterations = loop.Iteration()

	out := Outcome{
		Run:        run,
		Mappings:   res.Mappings,
		Unfilled:   res.Unfilled,
		Assessment: assessment,
		Iterations: loop.Iteration(),
		Issues:     assessment.Issues,
	}

	if job.Output != "" {
		if err := target.Save(job.Output); err != nil {
			return out, common.WrapError(err, "save filled form")
		}
	}
	run.FinishedAt = s.now().UTC()

	if job.ReportDir != "" {
		path, err := report.WriteJSON(job.ReportDir, run)
		if err != nil {
			return out, err
		}
		out.ReportPath = path
	}
	if s.store != nil {
		if err := s.store.Save(ctx, run); err != nil {
			logger.Warn("session.report.persist_failed", "error", err)
		}
	}

	logger.Info("session.run.done",
		"form", job.Form,
		"mapped", len(res.Mappings),
		"unfilled", len(res.Unfilled),
		"score", assessment.Score,
		"issues", len(assessment.Issues),
		"iterations", loop.Iteration(),
		"elapsed_ms", s.now().Sub(start).Milliseconds(),
	)
	return out, nil
}

// reference loads the learned patterns of a reference form. An unreadable reference
// degrades the run to basic quality checks.
func (s *Session) reference(logger *slog.Logger, path string) map[string]entity.ReferencePattern {
	if path == "" {
		return nil
	}
	patterns, err := s.patterns.Patterns(path)
	if err != nil {
		logger.Warn("session.reference.failed", "reference", path, "error", err)
		return nil
	}
	return patterns
}

// write applies the mappings and clears fields that an earlier pass filled but the
// current pass left unmapped.
func (s *Session) write(logger *slog.Logger, target forms.Target, res match.Result, written map[string]bool) {
	for id := range written {
		if _, ok := res.Mappings[id]; !ok {
			target.Write(id, "")
			delete(written, id)
		}
	}
	n, rejected := forms.Apply(target, res.Mappings)
	for id := range res.Mappings {
		written[id] = true
	}
	for _, id := range rejected {
		delete(written, id)
	}
	if len(rejected) > 0 {
		logger.Warn("session.write.rejected", "fields", rejected)
	}
	logger.Debug("session.write.done", "written", n)
}

// mergeHints keeps earlier avoid lists so a later pass cannot fall back to a value
// that was already rejected.
func mergeHints(prev, next map[string]entity.FieldHint) map[string]entity.FieldHint {
	out := make(map[string]entity.FieldHint, len(prev)+len(next))
	for id, h := range prev {
		out[id] = h
	}
	for id, h := range next {
		old, ok := out[id]
		if !ok {
			out[id] = h
			continue
		}
		for _, v := range old.Avoid {
			if !containsString(h.Avoid, v) {
				h.Avoid = append(h.Avoid, v)
			}
		}
		if h.SourceKey == "" {
			h.SourceKey = old.SourceKey
		}
		out[id] = h
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
