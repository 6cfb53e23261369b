package repository_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/form-filler/internal/common"
	"github.com/joseph-ayodele/form-filler/internal/entity"
	"github.com/joseph-ayodele/form-filler/internal/report"
	"github.com/joseph-ayodele/form-filler/internal/repository"
)

func openMemory(t *testing.T) repository.ReportStore {
	t.Helper()
	store, err := repository.Open(context.Background(), repository.Config{DSN: "sqlite::memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func run(form string, started time.Time) *report.Run {
	r := report.NewRun(form, "docs", started)
	r.SetMappings(map[string]entity.FieldMapping{"field_1": {FieldID: "field_1", Value: "Anna", Confidence: 1}})
	r.FinishedAt = started.Add(time.Second)
	return r
}

func TestSQLiteSaveGetList(t *testing.T) {
	ctx := context.Background()
	store := openMemory(t)
	require.NoError(t, repository.HealthCheck(ctx, store, time.Second, nil))

	base := time.Date(2025, time.July, 1, 9, 0, 0, 0, time.UTC)
	older := run("a.xlsx", base)
	newer := run("b.xlsx", base.Add(time.Hour))
	require.NoError(t, store.Save(ctx, older))
	require.NoError(t, store.Save(ctx, newer))

	got, err := store.Get(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, "a.xlsx", got.Form)
	require.Len(t, got.Mappings, 1)
	assert.Equal(t, "Anna", got.Mappings[0].Value)

	older.Iterations = 2
	older.Score = 0.75
	require.NoError(t, store.Save(ctx, older))
	got, err = store.Get(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Iterations)

	list, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)

	list, err = store.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSQLiteGetMissing(t *testing.T) {
	_, err := openMemory(t).Get(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestOpenFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "runs.sqlite")
	store, err := repository.Open(context.Background(), repository.Config{DSN: path}, nil)
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), run("c.xlsx", time.Now())))
	require.NoError(t, store.Close())

	store, err = repository.Open(context.Background(), repository.Config{DSN: "sqlite:" + path}, nil)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	list, err := store.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestOpenEmptyDSN(t *testing.T) {
	_, err := repository.Open(context.Background(), repository.Config{}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}
