package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maltedev/sameday-crawler/internal/browser"
)

const (
	ZipInputSelector  = "//input[@type='text' and contains(@placeholder, 'ZIP')]"
	ZipSubmitSelector = "//form//button[@type='submit']"
)

type LocationSetter struct {
	session     browser.Session
	diagnostics *browser.Diagnostics
	rootURL     string
	markers     []string
	timeout     time.Duration
	settle      time.Duration
	sleep       Sleeper
	logger      *slog.Logger
}

type LocationOptions struct {
	RootURL string
	// Markers are URL fragments that show the catalog is reachable after submission.
	Markers []string
	Timeout time.Duration
	Settle  time.Duration
}

func NewLocationSetter(session browser.Session, diag *browser.Diagnostics, opts LocationOptions, sleep Sleeper, logger *slog.Logger) *LocationSetter {
	if sleep == nil {
		sleep = Sleep
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LocationSetter{
		session:     session,
		diagnostics: diag,
		rootURL:     opts.RootURL,
		markers:     opts.Markers,
		timeout:     opts.Timeout,
		settle:      opts.Settle,
		sleep:       sleep,
		logger:      logger.With("component", "location"),
	}
}

// Set enters zip into the storefront's delivery form. A nil error means the browser
// landed on a catalog page; any failure wraps ErrLocationNotSet.
func (l *LocationSetter) Set(ctx context.Context, zip string) error {
	if err := l.session.Navigate(l.rootURL); err != nil {
		return l.fail(fmt.Errorf("navigate to storefront: %w", err))
	}
	l.logger.Info("navigated to storefront", "url", l.rootURL)

	l.diagnostics.Screenshot(l.session, "initial_page")

	input, err := l.session.WaitFor(ZipInputSelector, l.timeout)
	if err != nil {
		return l.fail(fmt.Errorf("zip input: %w", err))
	}

	if err := input.Fill(zip); err != nil {
		return l.fail(fmt.Errorf("enter zip: %w", err))
	}

	submit, err := l.session.WaitFor(ZipSubmitSelector, l.timeout)
	if err != nil {
		return l.fail(fmt.Errorf("submit button: %w", err))
	}
	if err := submit.Click(); err != nil {
		return l.fail(fmt.Errorf("submit zip: %w", err))
	}

	if err := l.sleep(ctx, l.settle); err != nil {
		return l.fail(err)
	}

	l.diagnostics.Screenshot(l.session, "after_zip_submission")

	current := l.session.URL()
	if !l.onCatalog(current) {
		return fmt.Errorf("%w: landed on %s", ErrLocationNotSet, current)
	}

	l.logger.Info("location set", "zip", zip, "url", current)
	return nil
}

func (l *LocationSetter) onCatalog(u string) bool {
	for _, m := range l.markers {
		if strings.Contains(u, m) {
			return true
		}
	}
	return false
}

func (l *LocationSetter) fail(err error) error {
	l.diagnostics.Screenshot(l.session, "location_error")
	return fmt.Errorf("%w: %w", ErrLocationNotSet, err)
}
