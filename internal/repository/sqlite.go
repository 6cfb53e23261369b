package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/form-filler/internal/report"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS fill_runs (
	run_id              TEXT PRIMARY KEY,
	started_at          TEXT NOT NULL,
	finished_at         TEXT,
	form                TEXT NOT NULL,
	documents           TEXT NOT NULL,
	score               REAL NOT NULL DEFAULT 0,
	iterations          INTEGER NOT NULL DEFAULT 0,
	issue_count         INTEGER NOT NULL DEFAULT 0,
	requires_correction INTEGER NOT NULL DEFAULT 0,
	report              TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fill_runs_started ON fill_runs(started_at);
`

// SQLiteStore keeps run reports in a local SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == ":memory:" {
		// each connection would see its own empty :memory: database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	for _, p := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("repository.sqlite.opened", "path", path)
	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, run *report.Run) error {
	body, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO fill_runs (run_id, started_at, finished_at, form, documents, score, iterations, issue_count, requires_correction, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			finished_at = excluded.finished_at,
			score = excluded.score,
			iterations = excluded.iterations,
			issue_count = excluded.issue_count,
			requires_correction = excluded.requires_correction,
			report = excluded.report`,
		run.ID, run.StartedAt.UTC().Format(time.RFC3339Nano), run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.Form, run.Documents, run.Score, run.Iterations, len(run.Issues), run.RequiresCorrection, string(body))
	if err != nil {
		s.logger.Error("repository.save.failed", "run_id", run.ID, "error", err)
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, runID string) (*report.Run, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT report FROM fill_runs WHERE run_id = ?`, runID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return decodeRun([]byte(body))
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]*report.Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT report FROM fill_runs ORDER BY started_at DESC, run_id LIMIT ?`, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*report.Run
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run, err := decodeRun([]byte(body))
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteStore) Close() error { return s.db.Close() }

func decodeRun(body []byte) (*report.Run, error) {
	var run report.Run
	if err := json.Unmarshal(body, &run); err != nil {
		return nil, fmt.Errorf("decode run: %w", err)
	}
	return &run, nil
}
