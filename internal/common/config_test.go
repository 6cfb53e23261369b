package common_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/form-filler/internal/common"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv(common.ConfigFileEnv, "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := common.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Quality.MaxIterations)
	assert.InDelta(t, 0.05, cfg.Matching.UpdateMargin, 1e-9)
	assert.InDelta(t, 0.1, cfg.Matching.CompanyUpdateMargin, 1e-9)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "formfill.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  model: gpt-4o
  timeout: 20s
matching:
  company_update_margin: 0.2
quality:
  max_iterations: 3
paths:
  inbox_dir: /srv/inbox
`), 0o644))
	t.Setenv(common.ConfigFileEnv, path)
	t.Setenv("QUALITY_MAX_ITERATIONS", "1")
	t.Setenv("OPENAI_MODEL", "")

	cfg, err := common.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 20*time.Second, cfg.LLM.Timeout)
	assert.InDelta(t, 0.2, cfg.Matching.CompanyUpdateMargin, 1e-9)
	assert.Equal(t, 1, cfg.Quality.MaxIterations)
	assert.Equal(t, "/srv/inbox", cfg.Paths.InboxDir)
	assert.InDelta(t, 0.05, cfg.Matching.UpdateMargin, 1e-9)
}

func TestLoadConfigBadFile(t *testing.T) {
	t.Setenv(common.ConfigFileEnv, filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := common.LoadConfig()
	require.Error(t, err)
	assert.Equal(t, "CONFIG_ERROR", common.ErrorCode(err))
}

func TestValidate(t *testing.T) {
	cfg := common.DefaultConfig()
	cfg.Matching.MinConfidence = 1.5
	cfg.Daemon.Workers = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
	assert.Contains(t, err.Error(), "matching.min_confidence")
	assert.Contains(t, err.Error(), "daemon.workers")
}

func TestPreconditionError(t *testing.T) {
	cause := errors.New("no such file")
	err := common.PreconditionError("documents directory missing", cause)

	assert.True(t, errors.Is(err, common.ErrPrecondition))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "PRECONDITION_FAILED", common.ErrorCode(err))
}
