package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"nl2code/internal/errdefs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate(true))

	assert.Equal(t, 4, cfg.Formatting.IndentWidth)
	assert.Equal(t, 1, cfg.Offload.MaxRetries)
	assert.Greater(t, cfg.Streaming.MaxChunkSize, cfg.Streaming.MinChunkSize)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Model.BaseURL, cfg.Model.BaseURL)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
model:
  provider: gemini
  temperature: 0.7
formatting:
  indent_width: 2
offload:
  task_timeout: 5s
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.Model.Provider)
	assert.Equal(t, 0.7, cfg.Model.Temperature)
	assert.Equal(t, 2, cfg.Formatting.IndentWidth)
	assert.Equal(t, 5*time.Second, cfg.Offload.TaskTimeoutDuration())

	// Untouched sections keep defaults.
	assert.Equal(t, Default().Streaming.MinChunkSize, cfg.Streaming.MinChunkSize)
}

func TestValidateStrictRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Model.Temperature = 9

	err := cfg.Validate(true)
	require.Error(t, err)
	var cerr *errdefs.ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "model.temperature", cerr.Field)
}

func TestValidateLenientClamps(t *testing.T) {
	cfg := Default()
	cfg.Model.Temperature = 9
	cfg.Formatting.IndentWidth = 99
	cfg.Offload.JobSizeCap = -1

	require.NoError(t, cfg.Validate(false))
	assert.Equal(t, 0.3, cfg.Model.Temperature)
	assert.Equal(t, 4, cfg.Formatting.IndentWidth)
	assert.Positive(t, cfg.Offload.JobSizeCap)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("NL2CODE_API_KEY", "sekret")
	t.Setenv("NL2CODE_PROVIDER", "gemini")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sekret", cfg.Model.APIKey)
	assert.Equal(t, "gemini", cfg.Model.Provider)
}
