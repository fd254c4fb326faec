package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polzovatel/operator-agent/internal/agent"
	"github.com/polzovatel/operator-agent/internal/config"
	"github.com/polzovatel/operator-agent/internal/snapshot"
)

func baseConfig() config.Config {
	return config.Config{
		MaxSteps:      config.DefaultMaxSteps,
		ScreenshotDir: config.DefaultScreenshotDir,
		LogLevel:      config.DefaultLogLevel,
		StepDelay:     config.DefaultStepDelay,
		RetryDelay:    config.DefaultRetryDelay,
		HistoryLimit:  config.DefaultHistoryLimit,
	}
}

func TestResolveConfig_FlagsOverrideEnvironment(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{
		"--goal", "  search for cats ",
		"--max-steps", "7",
		"--start-url", "https://www.google.com",
		"--api-key", "sk-test",
		"--headless",
		"--log-level", "debug",
	}))

	cfg, err := resolveConfig(cmd, baseConfig())

	require.NoError(t, err)
	assert.Equal(t, "search for cats", cfg.Goal)
	assert.Equal(t, 7, cfg.MaxSteps)
	assert.Equal(t, "https://www.google.com", cfg.StartURL)
	assert.Equal(t, "sk-test", cfg.APIKey)
	assert.True(t, cfg.Headless)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, config.DefaultScreenshotDir, cfg.ScreenshotDir)
}

func TestResolveConfig_KeepsEnvironmentWhenFlagsUnset(t *testing.T) {
	env := baseConfig()
	env.Headless = true
	env.Provider = "anthropic"

	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--goal", "g"}))

	cfg, err := resolveConfig(cmd, env)

	require.NoError(t, err)
	assert.True(t, cfg.Headless)
	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, config.DefaultMaxSteps, cfg.MaxSteps)
}

func TestResolveConfig_Rejects(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "blank goal", args: []string{"--goal", "   "}},
		{name: "zero steps", args: []string{"--goal", "g", "--max-steps", "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCmd()
			require.NoError(t, cmd.ParseFlags(tt.args))
			_, err := resolveConfig(cmd, baseConfig())
			assert.Error(t, err)
		})
	}
}

func TestRootCmd_RequiresGoal(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{})
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))

	err := cmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "goal")
}

func TestAgentConfig(t *testing.T) {
	cfg := baseConfig()
	cfg.MaxSteps = 3
	cfg.StepDelay = 0
	cfg.RetryDelay = 50 * time.Millisecond
	cfg.HistoryLimit = 2

	ac := agentConfig(cfg)

	assert.Equal(t, 3, ac.MaxSteps)
	assert.Equal(t, time.Duration(0), ac.StepDelay)
	assert.Equal(t, 50*time.Millisecond, ac.RetryDelay)
	assert.Equal(t, 2, ac.HistoryLimit)
	assert.Equal(t, 3, ac.MaxAttempts)
	assert.Equal(t, snapshot.DefaultLimits(), ac.Limits)
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, &agent.RunResult{
		Goal:             "search for cats",
		StepsTaken:       3,
		GoalCompleted:    true,
		FinalObservation: snapshot.Observation{ImagePath: "screenshots/screenshot_5.png"},
	})

	out := buf.String()
	assert.Contains(t, out, "Goal: search for cats\n")
	assert.Contains(t, out, "Steps Taken: 3\n")
	assert.Contains(t, out, "Goal Completed: true\n")
	assert.Contains(t, out, "Final Screenshot: screenshots/screenshot_5.png\n")
}

func TestRun_InitErrorIsLoggedWithoutStack(t *testing.T) {
	cfg := baseConfig()
	cfg.Goal = "search"
	cfg.Provider = "bogus"
	cfg.ScreenshotDir = t.TempDir()

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), cfg, &stdout, &stderr)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm init")
	assert.Contains(t, stderr.String(), "run failed")
	assert.NotContains(t, stderr.String(), "goroutine")
	assert.Empty(t, stdout.String())
}
