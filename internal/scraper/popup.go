package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/maltedev/sameday-crawler/internal/browser"
	"github.com/maltedev/sameday-crawler/internal/metrics"
)

// PopupSelectors match cookie banners and modal close controls, in the order they are tried.
var PopupSelectors = []string{
	"//button[contains(text(), 'Accept')]",
	"//button[contains(text(), 'Accept All')]",
	"//button[contains(text(), 'I Accept')]",
	"//button[contains(text(), 'Agree')]",
	"//button[contains(text(), 'Accept Cookies')]",
	"//button[contains(@class, 'cookie-accept')]",
	"//button[contains(@class, 'cookie-consent')]",
	"//button[contains(@class, 'modal-close')]",
	"//button[contains(@class, 'close-modal')]",
	"//button[contains(@aria-label, 'Close')]",
	"//div[contains(@class, 'modal')]//button[contains(@class, 'close')]",
	"//div[contains(@role, 'dialog')]//button",
	"//button[contains(@class, 'btn-close')]",
	"//span[contains(@class, 'close')]",
	"//i[contains(@class, 'close')]",
	"//i[contains(@class, 'fa-times')]",
}

type PopupDismisser struct {
	session   browser.Session
	selectors []string
	settle    time.Duration
	sleep     Sleeper
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewPopupDismisser(session browser.Session, settle time.Duration, sleep Sleeper, m *metrics.Metrics, logger *slog.Logger) *PopupDismisser {
	if sleep == nil {
		sleep = Sleep
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PopupDismisser{
		session:   session,
		selectors: PopupSelectors,
		settle:    settle,
		sleep:     sleep,
		metrics:   m,
		logger:    logger.With("component", "popups"),
	}
}

// Dismiss clicks every visible overlay control it can find and returns how many it
// clicked. It never fails: a rule that errors is skipped.
func (p *PopupDismisser) Dismiss(ctx context.Context) int {
	clicked := 0

	for _, selector := range p.selectors {
		els, err := p.session.FindAll(selector)
		if err != nil {
			p.logger.Debug("popup rule failed", "selector", selector, "error", err)
			continue
		}
		if len(els) == 0 {
			continue
		}

		p.logger.Debug("found popup elements", "selector", selector, "count", len(els))
		n, err := p.clickVisible(ctx, els)
		clicked += n
		if err != nil {
			p.logger.Warn("error handling popup", "selector", selector, "error", err)
		}
	}

	if clicked > 0 {
		p.logger.Info("dismissed popups", "count", clicked)
	}
	return clicked
}

// clickVisible stops at the first failing element, matching a rule-level skip.
func (p *PopupDismisser) clickVisible(ctx context.Context, els []browser.Element) (int, error) {
	clicked := 0
	for _, el := range els {
		visible, err := el.Visible()
		if err != nil {
			return clicked, err
		}
		if !visible {
			continue
		}

		if err := el.Click(); err != nil {
			return clicked, err
		}
		clicked++
		p.metrics.IncPopup()

		if err := p.sleep(ctx, p.settle); err != nil {
			return clicked, err
		}
	}
	return clicked, nil
}
