package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/polzovatel/operator-agent/internal/action"
	"github.com/polzovatel/operator-agent/internal/snapshot"
)

const (
	defaultMaxSteps     = 20
	defaultStepDelay    = time.Second
	defaultHistoryLimit = 5
	finalCaptureTimeout = 30 * time.Second
)

type Config struct {
	MaxSteps     int
	StepDelay    time.Duration
	RetryDelay   time.Duration
	MaxAttempts  int
	HistoryLimit int
	Limits       snapshot.Limits
}

func DefaultConfig() Config {
	return Config{
		MaxSteps:     defaultMaxSteps,
		StepDelay:    defaultStepDelay,
		RetryDelay:   defaultRetryDelay,
		MaxAttempts:  defaultMaxAttempts,
		HistoryLimit: defaultHistoryLimit,
		Limits:       snapshot.DefaultLimits(),
	}
}

type Task struct {
	Goal     string
	StartURL string
}

// RunResult summarizes a finished run.
type RunResult struct {
	ID               string
	Goal             string
	StepsTaken       int
	History          []HistoryEntry
	FinalObservation snapshot.Observation
	GoalCompleted    bool
}

type Orchestrator struct {
	cfg        Config
	planner    Planner
	browser    Browser
	dispatcher *Dispatcher
	logger     zerolog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
	newID      func() string
}

func NewOrchestrator(cfg Config, planner Planner, b Browser, logger zerolog.Logger) *Orchestrator {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = defaultMaxSteps
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	return &Orchestrator{
		cfg:        cfg,
		planner:    planner,
		browser:    b,
		dispatcher: NewDispatcher(b, cfg.MaxAttempts, cfg.RetryDelay, logger),
		logger:     logger,
		sleep:      sleepCtx,
		newID:      func() string { return uuid.New().String() },
	}
}

// Run drives the perceive-decide-act loop until the goal is reported complete
// or the step budget is spent. Step failures are logged and the loop moves on;
// only a failed initial capture aborts the run.
func (o *Orchestrator) Run(ctx context.Context, task Task) (*RunResult, error) {
	if task.Goal == "" {
		return nil, errors.New("goal is required")
	}
	res := &RunResult{ID: o.newID(), Goal: task.Goal}
	logger := o.logger.With().Str("run", res.ID).Logger()
	logger.Info().Str("goal", task.Goal).Int("max_steps", o.cfg.MaxSteps).Msg("starting run")

	current, last, err := o.initial(ctx, task, logger)
	if err != nil {
		return nil, fmt.Errorf("initial observation: %w", err)
	}

	var history History
	for step := 1; step <= o.cfg.MaxSteps; step++ {
		if err := ctx.Err(); err != nil {
			logger.Warn().Err(err).Int("step", step).Msg("run interrupted")
			break
		}
		res.StepsTaken = step

		dec, err := o.planner.Next(ctx, State{
			Goal:        task.Goal,
			Step:        step,
			Observation: current,
			LastAction:  last,
			History:     history.Recent(o.cfg.HistoryLimit),
		})
		if err != nil {
			logger.Error().Err(err).Int("step", step).Str("error_type", classifyError(err)).Msg("decision failed")
			continue
		}
		res.GoalCompleted = dec.GoalCompleted
		if dec.Rationale != "" {
			logger.Debug().Int("step", step).Str("reasoning", dec.Rationale).Msg("agent reasoning")
		}

		if dec.GoalCompleted {
			history.Append(HistoryEntry{Step: step, Action: dec, Outcome: OutcomeCompleted})
			logger.Info().Int("step", step).Msg("goal reported complete")
			break
		}

		if repeated(history.Recent(2), dec) {
			logger.Warn().Int("step", step).Str("action", dec.Describe()).Msg("same action proposed again")
		}

		idx := history.Append(HistoryEntry{Step: step, Action: dec, Outcome: OutcomePending})
		obs, attempts, err := o.dispatcher.Dispatch(ctx, dec)
		if err != nil {
			history.Resolve(idx, OutcomeFailed, attempts, err)
			logger.Error().
				Err(err).
				Int("step", step).
				Str("kind", string(dec.Kind)).
				Interface("params", dec.Params).
				Int("attempts", attempts).
				Str("error_type", classifyError(err)).
				Msg("action failed")
			continue
		}
		history.Resolve(idx, OutcomeExecuted, attempts, nil)
		current = obs
		executed := dec
		last = &executed
		logger.Info().Int("step", step).Str("action", dec.Describe()).Str("screenshot", obs.ImagePath).Msg("step done")

		if err := o.sleep(ctx, o.cfg.StepDelay); err != nil {
			logger.Warn().Err(err).Int("step", step).Msg("run interrupted")
			break
		}
	}

	res.History = history.Entries()
	res.FinalObservation = o.finalCapture(ctx, current, logger)
	logger.Info().
		Int("steps", res.StepsTaken).
		Bool("goal_completed", res.GoalCompleted).
		Str("screenshot", res.FinalObservation.ImagePath).
		Msg("run finished")
	return res, nil
}

// initial produces the first observation. A start URL becomes the synthetic
// last action so the first request shows where the page came from.
func (o *Orchestrator) initial(ctx context.Context, task Task, logger zerolog.Logger) (snapshot.Observation, *action.Action, error) {
	if task.StartURL == "" {
		obs, err := o.browser.TakeScreenshot(ctx)
		return obs, nil, err
	}
	logger.Info().Str("url", task.StartURL).Msg("navigating to start url")
	obs, err := o.browser.BrowseTo(ctx, task.StartURL)
	if err != nil {
		return snapshot.Observation{}, nil, err
	}
	if obs.IsZero() {
		if obs, err = o.browser.TakeScreenshot(ctx); err != nil {
			return snapshot.Observation{}, nil, err
		}
	}
	return obs, &action.Action{
		Kind:      action.KindBrowseTo,
		Params:    action.Params{"url": task.StartURL},
		Rationale: "Initial navigation to starting URL",
	}, nil
}

// finalCapture runs even after ctx is cancelled. If it fails the last known
// observation is reported instead.
func (o *Orchestrator) finalCapture(ctx context.Context, current snapshot.Observation, logger zerolog.Logger) snapshot.Observation {
	cctx, cancel := snapshot.WithDeadline(context.WithoutCancel(ctx), finalCaptureTimeout)
	defer cancel()
	obs, err := o.browser.TakeScreenshot(cctx)
	if err != nil || obs.IsZero() {
		logger.Warn().Err(err).Msg("final capture failed, keeping last observation")
		return current
	}
	return obs
}

func repeated(recent []HistoryEntry, dec action.Action) bool {
	if len(recent) < 2 {
		return false
	}
	want := dec.Describe()
	for _, e := range recent {
		if e.Action.Describe() != want {
			return false
		}
	}
	return true
}

func classifyError(err error) string {
	var verr *action.ValidationError
	var xerr *action.ExhaustedError
	switch {
	case errors.As(err, &verr):
		return "validation"
	case errors.As(err, &xerr):
		return "exhausted"
	case errors.Is(err, ErrMalformedDecision):
		return "malformed_decision"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "runtime"
	}
}
