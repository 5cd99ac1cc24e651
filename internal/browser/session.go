package browser

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Scope is anything elements can be looked up under: the whole page or one element.
type Scope interface {
	FindAll(selector string) ([]Element, error)
}

type Element interface {
	Scope
	Attribute(name string) (string, error)
	Text() (string, error)
	Visible() (bool, error)
	Click() error
	Fill(value string) error
}

// Session is the single page a crawl run drives.
type Session interface {
	Scope
	Navigate(url string) error
	URL() string
	// WaitFor blocks until selector is attached to the DOM or timeout elapses.
	WaitFor(selector string, timeout time.Duration) (Element, error)
	ScrollHeight() (int, error)
	ScrollToBottom() error
	Content() (string, error)
	Screenshot(path string) error
	Close() error
}

type pageSession struct {
	page    playwright.Page
	timeout time.Duration
	retries int
	logger  *slog.Logger
}

func (s *pageSession) Navigate(url string) error {
	var lastErr error

	for i := 0; i < s.retries; i++ {
		if i > 0 {
			s.logger.Info("retrying navigation", "attempt", i+1, "url", url)
			time.Sleep(time.Duration(i) * time.Second)
		}

		_, err := s.page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   playwright.Float(float64(s.timeout.Milliseconds())),
		})
		if err == nil {
			return nil
		}

		lastErr = wrapErr(err)
		s.logger.Warn("navigation failed", "error", err, "attempt", i+1, "url", url)
	}

	return fmt.Errorf("navigate %s: %w", url, lastErr)
}

func (s *pageSession) URL() string {
	return s.page.URL()
}

func (s *pageSession) FindAll(selector string) ([]Element, error) {
	handles, err := s.page.QuerySelectorAll(normalizeSelector(selector))
	if err != nil {
		return nil, wrapErr(err)
	}
	return wrapHandles(handles), nil
}

func (s *pageSession) WaitFor(selector string, timeout time.Duration) (Element, error) {
	handle, err := s.page.WaitForSelector(normalizeSelector(selector), playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return nil, wrapErr(err)
	}
	if handle == nil {
		return nil, fmt.Errorf("%w: %s", ErrTimeout, selector)
	}
	return &elementHandle{handle: handle}, nil
}

func (s *pageSession) ScrollHeight() (int, error) {
	v, err := s.page.Evaluate(`() => document.body.scrollHeight`)
	if err != nil {
		return 0, wrapErr(err)
	}
	return toInt(v)
}

func (s *pageSession) ScrollToBottom() error {
	_, err := s.page.Evaluate(`() => window.scrollTo(0, document.body.scrollHeight)`)
	return wrapErr(err)
}

func (s *pageSession) Content() (string, error) {
	html, err := s.page.Content()
	return html, wrapErr(err)
}

func (s *pageSession) Screenshot(path string) error {
	_, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		Path: playwright.String(path),
	})
	return wrapErr(err)
}

func (s *pageSession) Close() error {
	return s.page.Close()
}

type elementHandle struct {
	handle playwright.ElementHandle
}

func wrapHandles(handles []playwright.ElementHandle) []Element {
	out := make([]Element, 0, len(handles))
	for _, h := range handles {
		out = append(out, &elementHandle{handle: h})
	}
	return out
}

func (e *elementHandle) FindAll(selector string) ([]Element, error) {
	handles, err := e.handle.QuerySelectorAll(normalizeSelector(selector))
	if err != nil {
		return nil, wrapErr(err)
	}
	return wrapHandles(handles), nil
}

func (e *elementHandle) Attribute(name string) (string, error) {
	v, err := e.handle.GetAttribute(name)
	return v, wrapErr(err)
}

// Text is the rendered text of the element, matching what a user sees.
func (e *elementHandle) Text() (string, error) {
	v, err := e.handle.InnerText()
	return v, wrapErr(err)
}

func (e *elementHandle) Visible() (bool, error) {
	v, err := e.handle.IsVisible()
	return v, wrapErr(err)
}

func (e *elementHandle) Click() error {
	return wrapErr(e.handle.Click())
}

// Fill clears the field before typing value.
func (e *elementHandle) Fill(value string) error {
	return wrapErr(e.handle.Fill(value))
}

// normalizeSelector makes XPath explicit for playwright, which only auto-detects
// expressions starting with "//" or "..".
func normalizeSelector(selector string) string {
	if strings.HasPrefix(selector, "./") || strings.HasPrefix(selector, "(") {
		return "xpath=" + selector
	}
	return selector
}

func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(math.Round(n)), nil
	default:
		return 0, fmt.Errorf("unexpected scroll height type %T", v)
	}
}
