package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvProvider, EnvHeadless, EnvScreenshotDir, EnvLogLevel, EnvLogFile, EnvStepDelay, EnvRetryDelay, EnvHistoryLimit} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load(filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, DefaultMaxSteps, cfg.MaxSteps)
	assert.Equal(t, DefaultScreenshotDir, cfg.ScreenshotDir)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, time.Second, cfg.StepDelay)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryDelay)
	assert.Equal(t, 5, cfg.HistoryLimit)
	assert.False(t, cfg.Headless)
	assert.Empty(t, cfg.Provider)
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvProvider, "anthropic")
	t.Setenv(EnvHeadless, "true")
	t.Setenv(EnvStepDelay, "250ms")
	t.Setenv(EnvRetryDelay, "100")
	t.Setenv(EnvHistoryLimit, "8")
	t.Setenv(EnvScreenshotDir, `"shots"`)

	cfg := Load(filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, "anthropic", cfg.Provider)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 250*time.Millisecond, cfg.StepDelay)
	assert.Equal(t, 100*time.Millisecond, cfg.RetryDelay)
	assert.Equal(t, 8, cfg.HistoryLimit)
	assert.Equal(t, "shots", cfg.ScreenshotDir)
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	os.Unsetenv(EnvLogFile)
	t.Setenv(EnvLogLevel, "warn")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("OPERATOR_LOG_LEVEL=debug\nOPERATOR_LOG_FILE=agent.log\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv(EnvLogFile) })

	cfg := Load(path)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "agent.log", cfg.LogFile)
}

func TestLoad_BadValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvStepDelay, "soon")
	t.Setenv(EnvHistoryLimit, "many")
	t.Setenv(EnvHeadless, "maybe")

	cfg := Load(filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, DefaultStepDelay, cfg.StepDelay)
	assert.Equal(t, DefaultHistoryLimit, cfg.HistoryLimit)
	assert.False(t, cfg.Headless)
}

func TestValidate(t *testing.T) {
	valid := Config{Goal: "find cats", MaxSteps: 1, HistoryLimit: 5}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name string
		cfg  Config
		msg  string
	}{
		{name: "empty goal", cfg: Config{Goal: "  ", MaxSteps: 3, HistoryLimit: 5}, msg: "goal is required"},
		{name: "zero steps", cfg: Config{Goal: "g", MaxSteps: 0, HistoryLimit: 5}, msg: "max steps"},
		{name: "zero history", cfg: Config{Goal: "g", MaxSteps: 2}, msg: "history limit"},
		{name: "negative delay", cfg: Config{Goal: "g", MaxSteps: 2, HistoryLimit: 5, StepDelay: -time.Second}, msg: "delays"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
