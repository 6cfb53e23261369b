// Package repository persists fill run reports.
package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/form-filler/internal/common"
	"github.com/joseph-ayodele/form-filler/internal/report"
)

// ReportStore saves and reads back run reports.
type ReportStore interface {
	Save(ctx context.Context, run *report.Run) error
	Get(ctx context.Context, runID string) (*report.Run, error)
	List(ctx context.Context, limit int) ([]*report.Run, error)
	Ping(ctx context.Context) error
	Close() error
}

type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// DefaultListLimit bounds List when the caller passes no limit.
const DefaultListLimit = 50

// Open selects the backend from the DSN: postgres:// and postgresql:// use pgx,
// sqlite:<path>, a bare file path or :memory: use SQLite.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (ReportStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dsn := strings.TrimSpace(cfg.DSN)
	switch {
	case dsn == "":
		return nil, common.NewAppError("CONFIG_ERROR", "storage DSN is empty", common.ErrInvalidInput)
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		s, err := OpenPostgres(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		s, err := OpenSQLite(ctx, strings.TrimPrefix(dsn, "sqlite:"), logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// HealthCheck pings the store to catch DSN issues early.
func HealthCheck(ctx context.Context, store ReportStore, timeout time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	logger.Debug("pinging database")
	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	logger.Debug("database ping successful")
	return nil
}

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

func notFound(runID string) error {
	return common.NewAppError("RUN_NOT_FOUND", fmt.Sprintf("run %s", runID), common.ErrNotFound)
}
