package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/polzovatel/operator-agent/internal/snapshot"
)

const windowScript = `() => ({
	width: window.innerWidth,
	height: window.innerHeight,
	scrollX: window.scrollX,
	scrollY: window.scrollY,
	devicePixelRatio: window.devicePixelRatio
})`

const domScript = `() => {
	const str = (v) => (typeof v === 'string' ? v : '');
	function describe(el) {
		const rect = el.getBoundingClientRect();
		const style = window.getComputedStyle(el);
		return {
			tagName: (el.tagName || '').toLowerCase(),
			id: str(el.id),
			className: str(el.className),
			type: str(el.type),
			name: str(el.name),
			value: str(el.value),
			placeholder: str(el.placeholder),
			href: str(el.href),
			ariaLabel: el.getAttribute('aria-label') || '',
			text: ((el.innerText || '') + '').trim(),
			isVisible: rect.width > 0 && rect.height > 0 && style.display !== 'none' && style.visibility !== 'hidden',
			position: {
				x: rect.left + rect.width / 2,
				y: rect.top + rect.height / 2,
				width: rect.width,
				height: rect.height,
				top: rect.top,
				left: rect.left,
				bottom: rect.bottom,
				right: rect.right
			}
		};
	}
	const selectors = [
		'a', 'button', 'input', 'textarea', 'select', 'option',
		'[role="button"]', '[role="link"]', '[role="checkbox"]', '[role="radio"]',
		'[role="tab"]', '[role="menuitem"]', '[role="combobox"]', '[role="textbox"]',
		'[tabindex]:not([tabindex="-1"])', '[onclick]', 'label'
	];
	const interactiveElements = [];
	document.querySelectorAll(selectors.join(', ')).forEach((el) => {
		const info = describe(el);
		if (info.isVisible) interactiveElements.push(info);
	});
	const forms = [];
	document.querySelectorAll('form').forEach((form) => {
		const elements = [];
		form.querySelectorAll('input, button, textarea, select').forEach((el) => elements.push(describe(el)));
		forms.push({ id: str(form.id), name: str(form.name), action: str(form.action), method: str(form.method), elements });
	});
	return {
		title: document.title,
		url: window.location.href,
		interactiveElements,
		forms,
		visibleText: ((document.body && document.body.innerText) || '').substring(0, 5000)
	};
}`

// TakeScreenshot captures the page image and its metadata and persists both.
// Metadata failures degrade to default geometry; only a failed image capture
// is an error.
func (s *Session) TakeScreenshot(ctx context.Context) (snapshot.Observation, error) {
	if err := ctx.Err(); err != nil {
		return snapshot.Observation{}, err
	}
	image, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		Timeout: playwright.Float(float64(screenshotTimeout(ctx, time.Now()).Milliseconds())),
	})
	if err != nil {
		return snapshot.Observation{}, fmt.Errorf("screenshot: %w", wrap(err))
	}
	now := time.Now()
	meta := &snapshot.Metadata{
		PageInfo:  s.pageInfo(now),
		DOM:       s.domData(),
		Timestamp: now.Unix(),
	}
	obs, err := s.store.Save(image, meta)
	if err != nil {
		return snapshot.Observation{}, err
	}
	s.logger.Debug().
		Str("path", obs.ImagePath).
		Str("url", meta.DOM.URL).
		Int("elements", len(meta.DOM.InteractiveElements)).
		Msg("captured observation")
	return obs, nil
}

// screenshotTimeout is captureTimeout unless ctx carries a deadline, in which
// case the time left until it is used.
func screenshotTimeout(ctx context.Context, now time.Time) time.Duration {
	dl, ok := ctx.Deadline()
	if !ok {
		return captureTimeout
	}
	left := dl.Sub(now)
	if left < time.Millisecond {
		return time.Millisecond
	}
	return left
}

func (s *Session) pageInfo(now time.Time) snapshot.PageInfo {
	info := snapshot.DefaultPageInfo(now)
	if vp := s.page.ViewportSize(); vp != nil {
		info.Viewport = snapshot.Size{Width: float64(vp.Width), Height: float64(vp.Height)}
	} else {
		s.logger.Warn().Msg("viewport size unavailable, using defaults")
	}
	var win snapshot.Window
	if err := s.evaluateInto(windowScript, &win); err != nil {
		s.logger.Warn().Err(err).Msg("window geometry unavailable, using defaults")
		return info
	}
	info.Window = win
	return info
}

func (s *Session) domData() snapshot.DOMData {
	var dom snapshot.DOMData
	if err := s.evaluateInto(domScript, &dom); err != nil {
		s.logger.Warn().Err(err).Msg("dom extraction failed, using defaults")
		return snapshot.DefaultDOM()
	}
	return dom
}

func (s *Session) evaluateInto(script string, out any) error {
	val, err := s.page.Evaluate(script)
	if err != nil {
		return wrap(err)
	}
	raw, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
