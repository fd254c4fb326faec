package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/polzovatel/operator-agent/internal/action"
	"github.com/polzovatel/operator-agent/internal/snapshot"
)

// BrowseTo navigates to url. A failed navigation is logged and the current
// page is captured anyway so the loop can see where it ended up.
func (s *Session) BrowseTo(ctx context.Context, url string) (snapshot.Observation, error) {
	if err := ctx.Err(); err != nil {
		return snapshot.Observation{}, err
	}
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(float64(defaultNavTimeout.Milliseconds())),
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("url", url).Msg("navigation failed, capturing current page")
	}
	return s.TakeScreenshot(ctx)
}

func (s *Session) Click(ctx context.Context, at action.Point, button string) (snapshot.Observation, error) {
	if err := ctx.Err(); err != nil {
		return snapshot.Observation{}, err
	}
	if err := s.page.Mouse().Click(at.X, at.Y, playwright.MouseClickOptions{
		Button: mouseButton(button),
	}); err != nil {
		return snapshot.Observation{}, wrap(err)
	}
	return s.TakeScreenshot(ctx)
}

func (s *Session) DoubleClick(ctx context.Context, at action.Point) (snapshot.Observation, error) {
	if err := ctx.Err(); err != nil {
		return snapshot.Observation{}, err
	}
	if err := s.page.Mouse().Dblclick(at.X, at.Y); err != nil {
		return snapshot.Observation{}, wrap(err)
	}
	return s.TakeScreenshot(ctx)
}

// Scroll moves the pointer to at first when given, then turns the wheel.
func (s *Session) Scroll(ctx context.Context, at *action.Point, dx, dy float64) (snapshot.Observation, error) {
	if err := ctx.Err(); err != nil {
		return snapshot.Observation{}, err
	}
	if at != nil {
		if err := s.page.Mouse().Move(at.X, at.Y); err != nil {
			return snapshot.Observation{}, wrap(err)
		}
	}
	if err := s.page.Mouse().Wheel(dx, dy); err != nil {
		return snapshot.Observation{}, wrap(err)
	}
	return s.TakeScreenshot(ctx)
}

func (s *Session) Type(ctx context.Context, text string) (snapshot.Observation, error) {
	if err := ctx.Err(); err != nil {
		return snapshot.Observation{}, err
	}
	if err := s.page.Keyboard().Type(text); err != nil {
		return snapshot.Observation{}, wrap(err)
	}
	return s.TakeScreenshot(ctx)
}

func (s *Session) Wait(ctx context.Context, d time.Duration) (snapshot.Observation, error) {
	if d > 0 {
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return snapshot.Observation{}, ctx.Err()
		case <-timer.C:
		}
	}
	return s.TakeScreenshot(ctx)
}

func (s *Session) Move(ctx context.Context, to action.Point) (snapshot.Observation, error) {
	if err := ctx.Err(); err != nil {
		return snapshot.Observation{}, err
	}
	if err := s.page.Mouse().Move(to.X, to.Y); err != nil {
		return snapshot.Observation{}, wrap(err)
	}
	return s.TakeScreenshot(ctx)
}

// Keypress presses keys one after another.
func (s *Session) Keypress(ctx context.Context, keys []string) (snapshot.Observation, error) {
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return snapshot.Observation{}, err
		}
		if err := s.page.Keyboard().Press(normalizeKey(key)); err != nil {
			return snapshot.Observation{}, fmt.Errorf("press %q: %w", key, wrap(err))
		}
	}
	return s.TakeScreenshot(ctx)
}

// Drag presses at path[0], moves through every following point and releases.
func (s *Session) Drag(ctx context.Context, path []action.Point) (snapshot.Observation, error) {
	if err := ctx.Err(); err != nil {
		return snapshot.Observation{}, err
	}
	if len(path) == 0 {
		return snapshot.Observation{}, fmt.Errorf("drag: empty path")
	}
	mouse := s.page.Mouse()
	if err := mouse.Move(path[0].X, path[0].Y); err != nil {
		return snapshot.Observation{}, wrap(err)
	}
	if err := mouse.Down(); err != nil {
		return snapshot.Observation{}, wrap(err)
	}
	for _, pt := range path[1:] {
		if err := mouse.Move(pt.X, pt.Y); err != nil {
			_ = mouse.Up()
			return snapshot.Observation{}, wrap(err)
		}
	}
	if err := mouse.Up(); err != nil {
		return snapshot.Observation{}, wrap(err)
	}
	return s.TakeScreenshot(ctx)
}

func mouseButton(name string) *playwright.MouseButton {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "right":
		return playwright.MouseButtonRight
	case "middle":
		return playwright.MouseButtonMiddle
	default:
		return playwright.MouseButtonLeft
	}
}

// keyAliases maps the spellings models tend to produce onto Playwright key names.
var keyAliases = map[string]string{
	"CTRL":      "Control",
	"CONTROL":   "Control",
	"CMD":       "Meta",
	"META":      "Meta",
	"ALT":       "Alt",
	"SHIFT":     "Shift",
	"ENTER":     "Enter",
	"RETURN":    "Enter",
	"ESC":       "Escape",
	"ESCAPE":    "Escape",
	"TAB":       "Tab",
	"SPACE":     "Space",
	"DELETE":    "Delete",
	"DEL":       "Delete",
	"BACKSPACE": "Backspace",
	"UP":        "ArrowUp",
	"DOWN":      "ArrowDown",
	"LEFT":      "ArrowLeft",
	"RIGHT":     "ArrowRight",
	"PAGEUP":    "PageUp",
	"PAGEDOWN":  "PageDown",
	"HOME":      "Home",
	"END":       "End",
}

func normalizeKey(key string) string {
	k := strings.TrimSpace(key)
	if alias, ok := keyAliases[strings.ToUpper(k)]; ok {
		return alias
	}
	return k
}
