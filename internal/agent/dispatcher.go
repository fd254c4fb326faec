package agent

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/polzovatel/operator-agent/internal/action"
	"github.com/polzovatel/operator-agent/internal/snapshot"
)

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = 500 * time.Millisecond
)

// Browser is the set of primitives the agent drives. Each one returns the
// observation captured right after it.
type Browser interface {
	BrowseTo(ctx context.Context, url string) (snapshot.Observation, error)
	Click(ctx context.Context, at action.Point, button string) (snapshot.Observation, error)
	DoubleClick(ctx context.Context, at action.Point) (snapshot.Observation, error)
	Scroll(ctx context.Context, at *action.Point, dx, dy float64) (snapshot.Observation, error)
	Type(ctx context.Context, text string) (snapshot.Observation, error)
	Wait(ctx context.Context, d time.Duration) (snapshot.Observation, error)
	Move(ctx context.Context, to action.Point) (snapshot.Observation, error)
	Keypress(ctx context.Context, keys []string) (snapshot.Observation, error)
	Drag(ctx context.Context, path []action.Point) (snapshot.Observation, error)
	TakeScreenshot(ctx context.Context) (snapshot.Observation, error)
}

// Dispatcher turns proposed actions into browser calls. Clicks and double
// clicks are retried on alternative coordinates.
type Dispatcher struct {
	browser     Browser
	maxAttempts int
	retryDelay  time.Duration
	logger      zerolog.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewDispatcher(b Browser, maxAttempts int, retryDelay time.Duration, logger zerolog.Logger) *Dispatcher {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if retryDelay < 0 {
		retryDelay = defaultRetryDelay
	}
	return &Dispatcher{
		browser:     b,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		logger:      logger,
		sleep:       sleepCtx,
	}
}

// Dispatch validates a and executes it. The returned count is the number of
// browser calls made for it.
func (d *Dispatcher) Dispatch(ctx context.Context, a action.Action) (snapshot.Observation, int, error) {
	cmd, err := action.Normalize(a)
	if err != nil {
		return snapshot.Observation{}, 0, err
	}
	d.logger.Info().
		Str("kind", string(a.Kind)).
		Interface("params", a.Params).
		Msg("executing action")

	attempts := 1
	var obs snapshot.Observation
	switch c := cmd.(type) {
	case action.BrowseTo:
		obs, err = d.browser.BrowseTo(ctx, c.URL)
	case action.Click:
		obs, attempts, err = d.withRetry(ctx, a, c.At, func(pt action.Point) (snapshot.Observation, error) {
			return d.browser.Click(ctx, pt, c.Button)
		})
	case action.DoubleClick:
		obs, attempts, err = d.withRetry(ctx, a, c.At, func(pt action.Point) (snapshot.Observation, error) {
			return d.browser.DoubleClick(ctx, pt)
		})
	case action.Scroll:
		obs, err = d.browser.Scroll(ctx, c.At, c.DeltaX, c.DeltaY)
	case action.Type:
		obs, err = d.browser.Type(ctx, c.Text)
	case action.Wait:
		obs, err = d.browser.Wait(ctx, c.Duration)
	case action.Move:
		obs, err = d.browser.Move(ctx, c.To)
	case action.Keypress:
		obs, err = d.browser.Keypress(ctx, c.Keys)
	case action.Drag:
		obs, err = d.browser.Drag(ctx, c.Path)
	case action.TakeScreenshot:
		obs, err = d.browser.TakeScreenshot(ctx)
	default:
		return snapshot.Observation{}, 0, &action.ValidationError{Kind: a.Kind, Err: action.ErrUnknownKind}
	}
	if err != nil {
		return snapshot.Observation{}, attempts, err
	}
	if obs.IsZero() {
		d.logger.Debug().Str("kind", string(a.Kind)).Msg("primitive returned no observation, capturing")
		obs, err = d.browser.TakeScreenshot(ctx)
		if err != nil {
			return snapshot.Observation{}, attempts, err
		}
	}
	return obs, attempts, nil
}

// withRetry tries the primary point, then each alternative in order, up to
// maxAttempts calls in total.
func (d *Dispatcher) withRetry(ctx context.Context, a action.Action, primary action.Point, do func(action.Point) (snapshot.Observation, error)) (snapshot.Observation, int, error) {
	alts := a.Element.Alternatives()
	var lastErr error
	attempts := 0
	for i := 0; i < d.maxAttempts; i++ {
		pt, ok := coordinateFor(i, primary, alts)
		if !ok {
			break
		}
		attempts++
		obs, err := do(pt)
		if err == nil {
			if i > 0 {
				d.logger.Info().
					Str("kind", string(a.Kind)).
					Int("attempt", attempts).
					Float64("x", pt.X).
					Float64("y", pt.Y).
					Msg("succeeded with alternative coordinates")
			}
			return obs, attempts, nil
		}
		lastErr = err
		d.logger.Warn().
			Err(err).
			Str("kind", string(a.Kind)).
			Int("attempt", attempts).
			Int("max_attempts", d.maxAttempts).
			Float64("x", pt.X).
			Float64("y", pt.Y).
			Msg("attempt failed")
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return snapshot.Observation{}, attempts, err
		}
		if _, more := coordinateFor(i+1, primary, alts); !more || i+1 >= d.maxAttempts {
			break
		}
		if err := d.sleep(ctx, d.retryDelay); err != nil {
			return snapshot.Observation{}, attempts, err
		}
	}
	return snapshot.Observation{}, attempts, &action.ExhaustedError{Kind: a.Kind, Attempts: attempts, Err: lastErr}
}

// coordinateFor returns the point for the given zero-based attempt.
func coordinateFor(attempt int, primary action.Point, alts []action.Point) (action.Point, bool) {
	if attempt == 0 {
		return primary, true
	}
	if attempt-1 < len(alts) {
		return alts[attempt-1], true
	}
	return action.Point{}, false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
