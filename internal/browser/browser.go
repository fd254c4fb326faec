package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"

	"github.com/polzovatel/operator-agent/internal/snapshot"
)

const (
	defaultNavTimeout = 30 * time.Second
	captureTimeout    = 10 * time.Second
)

type Options struct {
	Headless bool
	// Install downloads the Chromium driver before launching.
	Install bool
	Store   *snapshot.Store
	Logger  zerolog.Logger
}

// Launcher owns playwright lifecycle.
type Launcher struct {
	pw      *playwright.Playwright
	browser playwright.Browser
}

func NewLauncher(opts Options) (*Launcher, error) {
	if opts.Install {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return nil, fmt.Errorf("install playwright: %w", err)
		}
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args: []string{
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	return &Launcher{pw: pw, browser: browser}, nil
}

func (l *Launcher) Close() error {
	if l.browser != nil {
		_ = l.browser.Close()
	}
	if l.pw != nil {
		return l.pw.Stop()
	}
	return nil
}

// Session is the single live page the agent drives. Every primitive returns
// the observation captured right after it.
type Session struct {
	launcher *Launcher
	context  playwright.BrowserContext
	page     playwright.Page
	store    *snapshot.Store
	logger   zerolog.Logger

	closeOnce sync.Once
	closeErr  error
}

// Open launches Chromium and opens one page on a fresh context.
func Open(ctx context.Context, opts Options) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("browser: screenshot store is required")
	}
	launcher, err := NewLauncher(opts)
	if err != nil {
		return nil, err
	}
	bctx, err := launcher.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  snapshot.DefaultViewportWidth,
			Height: snapshot.DefaultViewportHeight,
		},
	})
	if err != nil {
		_ = launcher.Close()
		return nil, fmt.Errorf("new context: %w", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = launcher.Close()
		return nil, fmt.Errorf("new page: %w", err)
	}
	page.SetDefaultTimeout(float64(defaultNavTimeout.Milliseconds()))

	return &Session{
		launcher: launcher,
		context:  bctx,
		page:     page,
		store:    opts.Store,
		logger:   opts.Logger,
	}, nil
}

// Close releases page, context, browser and driver. Safe to call repeatedly.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.context != nil {
			if err := s.context.Close(); err != nil {
				s.logger.Warn().Err(err).Msg("close browser context")
			}
		}
		if s.launcher != nil {
			s.closeErr = wrap(s.launcher.Close())
		}
	})
	return s.closeErr
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("playwright: %w", err)
}
