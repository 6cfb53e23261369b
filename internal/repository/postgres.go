package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/form-filler/internal/common"
	"github.com/joseph-ayodele/form-filler/internal/report"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS fill_runs (
	run_id              UUID PRIMARY KEY,
	started_at          TIMESTAMPTZ NOT NULL,
	finished_at         TIMESTAMPTZ,
	form                TEXT NOT NULL,
	documents           TEXT NOT NULL,
	score               DOUBLE PRECISION NOT NULL DEFAULT 0,
	iterations          INTEGER NOT NULL DEFAULT 0,
	issue_count         INTEGER NOT NULL DEFAULT 0,
	requires_correction BOOLEAN NOT NULL DEFAULT FALSE,
	report              JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fill_runs_started ON fill_runs(started_at DESC);
`

// PostgresStore keeps run reports in Postgres through a pgx pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// OpenPostgres creates a pgx pool, migrates the schema and returns the store.
func OpenPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*PostgresStore, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database config", "error", err)
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "form-filler"

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("repository.postgres.opened")
	return &PostgresStore{pool: pool, logger: logger}, nil
}

func (s *PostgresStore) Save(ctx context.Context, run *report.Run) error {
	body, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO fill_runs (run_id, started_at, finished_at, form, documents, score, iterations, issue_count, requires_correction, report)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (run_id) DO UPDATE SET
			finished_at = EXCLUDED.finished_at,
			score = EXCLUDED.score,
			iterations = EXCLUDED.iterations,
			issue_count = EXCLUDED.issue_count,
			requires_correction = EXCLUDED.requires_correction,
			report = EXCLUDED.report`,
		run.ID, run.StartedAt, run.FinishedAt, run.Form, run.Documents, run.Score,
		run.Iterations, len(run.Issues), run.RequiresCorrection, body)
	if err != nil {
		s.logger.Error("repository.save.failed", "run_id", run.ID, "error", err)
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, runID string) (*report.Run, error) {
	if common.NewValidator().Field("run_id", runID, common.UUID).HasErrors() {
		return nil, notFound(runID)
	}
	var body []byte
	err := s.pool.QueryRow(ctx, `SELECT report FROM fill_runs WHERE run_id = $1`, runID).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return decodeRun(body)
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]*report.Run, error) {
	rows, err := s.pool.Query(ctx, `SELECT report FROM fill_runs ORDER BY started_at DESC, run_id LIMIT $1`, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []*report.Run
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run, err := decodeRun(body)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
