package browser

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"
)

var (
	// ErrSessionUnavailable means the browser could not be launched or no page could be opened.
	ErrSessionUnavailable = errors.New("browser session unavailable")
	// ErrTimeout is the typed timeout condition for any bounded browser operation.
	ErrTimeout = errors.New("browser operation timed out")
)

type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	opts    *Options
	logger  *slog.Logger
}

type Options struct {
	Headless          bool
	Timeout           time.Duration
	UserAgent         string
	ViewportWidth     int
	ViewportHeight    int
	TimezoneID        string
	Locale            string
	NavigationRetries int
}

func DefaultOptions() *Options {
	return &Options{
		Headless:          true,
		Timeout:           30 * time.Second,
		UserAgent:         "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ViewportWidth:     1920,
		ViewportHeight:    1080,
		TimezoneID:        "America/Los_Angeles",
		Locale:            "en-US",
		NavigationRetries: 1,
	}
}

func New(opts *Options, logger *slog.Logger) (*Browser, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if logger == nil {
		logger = slog.Default()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
		Args: []string{
			"--no-sandbox",
			"--disable-dev-shm-usage",
			fmt.Sprintf("--window-size=%d,%d", opts.ViewportWidth, opts.ViewportHeight),
		},
	}
	if opts.Headless {
		launchOpts.Args = append(launchOpts.Args, "--disable-gpu")
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{
		UserAgent:         &opts.UserAgent,
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            &opts.Locale,
		TimezoneId:        &opts.TimezoneID,
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
	}

	context, err := browser.NewContext(contextOpts)
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	return &Browser{
		pw:      pw,
		browser: browser,
		context: context,
		opts:    opts,
		logger:  logger.With("component", "browser"),
	}, nil
}

// NewSession opens a page and wraps it as a Session.
func (b *Browser) NewSession() (Session, error) {
	page, err := b.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}

	page.SetDefaultTimeout(float64(b.opts.Timeout.Milliseconds()))

	return &pageSession{
		page:    page,
		timeout: b.opts.Timeout,
		retries: b.opts.NavigationRetries,
		logger:  b.logger,
	}, nil
}

func (b *Browser) Close() error {
	var errs []error

	if b.context != nil {
		if err := b.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}

	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	return errors.Join(errs...)
}

// WithSession launches a browser, opens one session and hands it to fn. The session
// and the browser are released on every return path, including a panic in fn.
func WithSession(opts *Options, logger *slog.Logger, fn func(Session) error) error {
	return withSession(func() (Session, io.Closer, error) {
		b, err := New(opts, logger)
		if err != nil {
			return nil, nil, err
		}
		session, err := b.NewSession()
		if err != nil {
			return nil, b, err
		}
		return session, b, nil
	}, logger, fn)
}

// launcher opens a session. The closer releases whatever backs the session and may be
// non-nil even when err is set.
type launcher func() (Session, io.Closer, error)

func withSession(launch launcher, logger *slog.Logger, fn func(Session) error) error {
	if logger == nil {
		logger = slog.Default()
	}

	session, closer, err := launch()
	if closer != nil {
		defer func() {
			logger.Info("closing browser")
			if err := closer.Close(); err != nil {
				logger.Warn("browser teardown incomplete", "error", err)
			}
		}()
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("failed to close page", "error", err)
		}
	}()

	return fn(session)
}
