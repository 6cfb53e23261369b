package pipeline

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/form-filler/internal/common"
	"github.com/joseph-ayodele/form-filler/internal/correction"
	"github.com/joseph-ayodele/form-filler/internal/extract"
	"github.com/joseph-ayodele/form-filler/internal/forms"
	"github.com/joseph-ayodele/form-filler/internal/llm"
	"github.com/joseph-ayodele/form-filler/internal/llm/openai"
	"github.com/joseph-ayodele/form-filler/internal/match"
	"github.com/joseph-ayodele/form-filler/internal/quality"
	"github.com/joseph-ayodele/form-filler/internal/repository"
	"github.com/joseph-ayodele/form-filler/internal/rules"
	"github.com/joseph-ayodele/form-filler/internal/scoring"
	"github.com/joseph-ayodele/form-filler/internal/temporal"
)

// Wiring is a configured Session plus the resources it owns.
type Wiring struct {
	Session *Session
	// Store is nil when no storage DSN is configured.
	Store  repository.ReportStore
	logger *slog.Logger
}

// Wire builds a Session from cfg. The LLM strategies are enabled only when an API key is set.
func Wire(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*Wiring, error) {
	if logger == nil {
		logger = slog.Default()
	}
	table, err := rules.Load(cfg.Paths.RulesPath)
	if err != nil {
		return nil, common.NewAppError("CONFIG_ERROR", "load keyword rules", err)
	}

	var completer llm.Completer
	if cfg.LLM.APIKey != "" {
		completer = openai.NewClient(openai.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
			MaxRetries:  cfg.LLM.MaxRetries,
			Deployment:  cfg.LLM.Deployment,
			APIVersion:  cfg.LLM.APIVersion,
		}, logger)
		logger.Info("wire.llm.enabled", "model", cfg.LLM.Model, "deployment", cfg.LLM.Deployment)
	} else {
		logger.Warn("wire.llm.disabled", "reason", "no API key configured")
	}

	disambiguator := temporal.New(
		temporal.WithRules(table),
		temporal.WithLogger(logger),
		temporal.WithRecentWindow(cfg.Temporal.RecentWindowYears),
		temporal.WithOldAfter(cfg.Temporal.OldAfterYears),
		temporal.WithMinScore(cfg.Temporal.MinScore),
	)
	matcher := match.NewMatcher(completer,
		match.WithRules(table),
		match.WithLogger(logger),
		match.WithScorer(scoring.New(table)),
		match.WithDisambiguator(disambiguator),
		match.WithUpdateMargins(cfg.Matching.UpdateMargin, cfg.Matching.CompanyUpdateMargin),
		match.WithMinAcceptConfidence(cfg.Matching.MinConfidence),
		match.WithShortCircuit(cfg.Matching.ShortCircuit),
		match.WithSimilarityMinLength(cfg.Matching.SimilarityMinLength),
	)

	qopts := []quality.Option{
		quality.WithRules(table),
		quality.WithLogger(logger),
		quality.WithMaxDocumentAge(cfg.Quality.MaxDocumentAgeDays),
	}
	if cfg.Quality.ContextCheck && completer != nil {
		qopts = append(qopts, quality.WithCompleter(completer))
	}
	engine := quality.NewEngine(qopts...)
	router := correction.NewRouter(cfg.Quality.MaxIterations, engine.Classifier(), logger)

	w := &Wiring{logger: logger}
	var opts []Option
	if cfg.Storage.DSN != "" {
		store, err := repository.Open(ctx, repository.Config{
			DSN:             cfg.Storage.DSN,
			MaxConns:        cfg.Storage.MaxConns,
			MinConns:        cfg.Storage.MinConns,
			MaxConnLifetime: cfg.Storage.MaxConnLifetime,
			MaxConnIdleTime: cfg.Storage.MaxConnIdleTime,
			DialTimeout:     cfg.Storage.DialTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		w.Store = store
		opts = append(opts, WithStore(store))
	}

	w.Session = NewSession(
		forms.NewLoader(table, logger),
		extract.NewDirectoryExtractor(logger),
		matcher,
		engine,
		router,
		logger,
		opts...,
	)
	return w, nil
}

func (w *Wiring) Close() {
	if w.Store == nil {
		return
	}
	if err := w.Store.Close(); err != nil {
		w.logger.Warn("wire.store.close_failed", "error", err)
	}
}
