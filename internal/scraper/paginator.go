package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/maltedev/sameday-crawler/internal/browser"
	"github.com/maltedev/sameday-crawler/internal/metrics"
)

type ScrollState int

const (
	StateScrolling ScrollState = iota
	StateSettling
	StateConfirmingEnd
	StateDone
)

func (s ScrollState) String() string {
	switch s {
	case StateScrolling:
		return "scrolling"
	case StateSettling:
		return "settling"
	case StateConfirmingEnd:
		return "confirming_end"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// StopReason says why the paginator reached StateDone.
type StopReason string

const (
	StopStable StopReason = "stable"
	StopCap    StopReason = "cap"
	StopError  StopReason = "error"
)

type ScrollReport struct {
	// Heights holds every document height observed, starting with the one before the first scroll.
	Heights []int
	// Iterations counts scroll rounds that grew the page; it never exceeds the cap.
	Iterations int
	Scrolls    int
	Reason     StopReason
	Err        error
}

// Paginator scrolls an infinite-scroll page until its height stops changing twice in
// a row or the iteration cap is reached.
type Paginator struct {
	session    browser.Session
	settle     time.Duration
	maxScrolls int
	sleep      Sleeper
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewPaginator(session browser.Session, settle time.Duration, maxScrolls int, sleep Sleeper, m *metrics.Metrics, logger *slog.Logger) *Paginator {
	if sleep == nil {
		sleep = Sleep
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Paginator{
		session:    session,
		settle:     settle,
		maxScrolls: maxScrolls,
		sleep:      sleep,
		metrics:    m,
		logger:     logger.With("component", "paginator"),
	}
}

func (p *Paginator) Run(ctx context.Context) ScrollReport {
	var report ScrollReport

	last, err := p.session.ScrollHeight()
	if err != nil {
		return p.stop(report, StopError, err)
	}
	report.Heights = append(report.Heights, last)

	state := StateScrolling
	confirming := false

	for state != StateDone {
		switch state {
		case StateScrolling, StateConfirmingEnd:
			if err := p.session.ScrollToBottom(); err != nil {
				return p.stop(report, StopError, err)
			}
			report.Scrolls++
			p.metrics.IncScroll()
			p.logger.Debug("scrolled", "state", state, "scrolls", report.Scrolls)

			confirming = state == StateConfirmingEnd
			state = StateSettling

		case StateSettling:
			if err := p.sleep(ctx, p.settle); err != nil {
				return p.stop(report, StopError, err)
			}

			height, err := p.session.ScrollHeight()
			if err != nil {
				return p.stop(report, StopError, err)
			}
			report.Heights = append(report.Heights, height)

			if height == last {
				if confirming {
					return p.stop(report, StopStable, nil)
				}
				state = StateConfirmingEnd
				continue
			}

			last = height
			report.Iterations++
			if report.Iterations >= p.maxScrolls {
				return p.stop(report, StopCap, nil)
			}
			state = StateScrolling
		}
	}

	return report
}

func (p *Paginator) stop(report ScrollReport, reason StopReason, err error) ScrollReport {
	report.Reason = reason
	report.Err = err

	attrs := []any{"reason", reason, "iterations", report.Iterations, "scrolls", report.Scrolls}
	switch reason {
	case StopError:
		p.logger.Warn("scrolling stopped early", append(attrs, "error", err)...)
	case StopCap:
		p.logger.Info("scroll limit reached", attrs...)
	default:
		p.logger.Info("reached end of page", attrs...)
	}
	return report
}
