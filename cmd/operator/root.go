package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/polzovatel/operator-agent/internal/agent"
	"github.com/polzovatel/operator-agent/internal/browser"
	"github.com/polzovatel/operator-agent/internal/config"
	"github.com/polzovatel/operator-agent/internal/llm"
	"github.com/polzovatel/operator-agent/internal/logging"
	"github.com/polzovatel/operator-agent/internal/snapshot"
)

var _ agent.Browser = (*browser.Session)(nil)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "operator",
		Short:         "Drive a browser toward a goal with a vision model",
		Long:          `operator repeatedly captures the page, asks a multimodal model for the next action and executes it until the goal is reported complete or the step budget runs out.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, config.Load())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.String("goal", "", "Goal to accomplish (required)")
	f.Int("max-steps", config.DefaultMaxSteps, "Maximum number of steps")
	f.String("api-key", "", "API key for the LLM provider (defaults to the provider's environment variable)")
	f.String("start-url", "", "URL to open before the first step")
	f.String("provider", "", "LLM provider: openai or anthropic")
	f.String("model", "", "Model name override")
	f.Bool("headless", false, "Run the browser without a window")
	f.Bool("install", false, "Download the Chromium driver before launching")
	f.String("screenshot-dir", "", "Directory for screenshots and metadata")
	f.String("log-level", "", "Log level: debug, info, warn, error")
	f.String("log-file", "", "Also write JSON logs to this file")
	_ = cmd.MarkFlagRequired("goal")
	return cmd
}

// resolveConfig applies explicitly set flags on top of the environment.
func resolveConfig(cmd *cobra.Command, cfg config.Config) (config.Config, error) {
	f := cmd.Flags()
	cfg.Goal, _ = f.GetString("goal")
	cfg.Goal = strings.TrimSpace(cfg.Goal)
	cfg.StartURL, _ = f.GetString("start-url")
	cfg.MaxSteps, _ = f.GetInt("max-steps")
	cfg.APIKey, _ = f.GetString("api-key")
	cfg.Model, _ = f.GetString("model")
	if f.Changed("provider") {
		cfg.Provider, _ = f.GetString("provider")
	}
	if f.Changed("headless") {
		cfg.Headless, _ = f.GetBool("headless")
	}
	cfg.InstallBrowser, _ = f.GetBool("install")
	if f.Changed("screenshot-dir") {
		cfg.ScreenshotDir, _ = f.GetString("screenshot-dir")
	}
	if f.Changed("log-level") {
		cfg.LogLevel, _ = f.GetString("log-level")
	}
	if f.Changed("log-file") {
		cfg.LogFile, _ = f.GetString("log-file")
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg config.Config, stdout, stderr io.Writer) (err error) {
	logger, closer := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile, Console: stderr})
	defer closer.Close()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("run panicked")
			err = fmt.Errorf("panic: %v", r)
			return
		}
		if err != nil {
			logger.Error().Err(err).Msg("run failed")
		}
	}()

	client, err := llm.New(llm.Options{
		Provider: cfg.Provider,
		APIKey:   cfg.APIKey,
		Model:    cfg.Model,
		Logger:   logging.Component(logger, "llm"),
	})
	if err != nil {
		return fmt.Errorf("llm init: %w", err)
	}

	store, err := snapshot.NewStore(cfg.ScreenshotDir)
	if err != nil {
		return fmt.Errorf("screenshot store: %w", err)
	}

	session, err := browser.Open(ctx, browser.Options{
		Headless: cfg.Headless,
		Install:  cfg.InstallBrowser,
		Store:    store,
		Logger:   logging.Component(logger, "browser"),
	})
	if err != nil {
		return fmt.Errorf("browser init: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			logger.Warn().Err(cerr).Msg("close browser")
		}
	}()

	ac := agentConfig(cfg)
	orch := agent.NewOrchestrator(
		ac,
		agent.NewPlanner(client, ac.Limits, logging.Component(logger, "planner")),
		session,
		logging.Component(logger, "orch"),
	)
	logger.Info().Str("model", client.Name()).Str("screenshots", store.Dir()).Msg("starting")

	res, err := orch.Run(ctx, agent.Task{Goal: cfg.Goal, StartURL: cfg.StartURL})
	if err != nil {
		return err
	}
	printSummary(stdout, res)
	return nil
}

func agentConfig(cfg config.Config) agent.Config {
	ac := agent.DefaultConfig()
	ac.MaxSteps = cfg.MaxSteps
	ac.StepDelay = cfg.StepDelay
	ac.RetryDelay = cfg.RetryDelay
	ac.HistoryLimit = cfg.HistoryLimit
	return ac
}

func printSummary(w io.Writer, res *agent.RunResult) {
	fmt.Fprintln(w, "\nExecution Summary:")
	fmt.Fprintf(w, "Goal: %s\n", res.Goal)
	fmt.Fprintf(w, "Steps Taken: %d\n", res.StepsTaken)
	fmt.Fprintf(w, "Goal Completed: %t\n", res.GoalCompleted)
	fmt.Fprintf(w, "Final Screenshot: %s\n", res.FinalObservation.ImagePath)
}
