// Package browsertest provides an in-memory browser.Session for tests. Pages and
// elements are addressed by the literal selector strings the code under test uses.
package browsertest

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/maltedev/sameday-crawler/internal/browser"
)

var ErrNoPage = errors.New("no page registered for url")

type Element struct {
	Attrs    map[string]string
	Content  string
	Hidden   bool
	Children map[string][]*Element

	AttrErr  error
	TextErr  error
	FindErr  error
	ClickErr error
	// OnClick runs after a successful click, e.g. to remove an overlay.
	OnClick func()

	Clicks int
	Filled []string
}

func (e *Element) FindAll(selector string) ([]browser.Element, error) {
	if e.FindErr != nil {
		return nil, e.FindErr
	}
	return asElements(e.Children[selector]), nil
}

func (e *Element) Attribute(name string) (string, error) {
	if e.AttrErr != nil {
		return "", e.AttrErr
	}
	return e.Attrs[name], nil
}

func (e *Element) Text() (string, error) {
	if e.TextErr != nil {
		return "", e.TextErr
	}
	return e.Content, nil
}

func (e *Element) Visible() (bool, error) {
	return !e.Hidden, nil
}

func (e *Element) Click() error {
	if e.ClickErr != nil {
		return e.ClickErr
	}
	e.Clicks++
	if e.OnClick != nil {
		e.OnClick()
	}
	return nil
}

func (e *Element) Fill(value string) error {
	e.Filled = append(e.Filled, value)
	return nil
}

type Page struct {
	Elements map[string][]*Element
	HTML     string
	// Heights[i] is reported after i scrolls; the last value repeats.
	Heights []int
	// RedirectTo, when set, is the URL the session reports after navigating here.
	RedirectTo string

	FindErr    error
	ContentErr error
}

// Remove drops el from every selector it is registered under.
func (p *Page) Remove(el *Element) {
	for sel, els := range p.Elements {
		kept := els[:0]
		for _, e := range els {
			if e != el {
				kept = append(kept, e)
			}
		}
		p.Elements[sel] = kept
	}
}

type Session struct {
	Pages       map[string]*Page
	NavigateErr map[string]error
	CurrentURL  string

	Navigations []string
	Scrolls     int
	Screenshots []string
	Closed      bool
}

func NewSession() *Session {
	return &Session{
		Pages:       make(map[string]*Page),
		NavigateErr: make(map[string]error),
	}
}

// AddPage registers p under url and returns it.
func (s *Session) AddPage(url string, p *Page) *Page {
	if p.Elements == nil {
		p.Elements = make(map[string][]*Element)
	}
	s.Pages[url] = p
	return p
}

func (s *Session) current() *Page {
	return s.Pages[s.CurrentURL]
}

func (s *Session) Navigate(url string) error {
	s.Navigations = append(s.Navigations, url)
	if err := s.NavigateErr[url]; err != nil {
		return err
	}
	p, ok := s.Pages[url]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoPage, url)
	}
	s.CurrentURL = url
	s.Scrolls = 0
	if p.RedirectTo != "" {
		s.CurrentURL = p.RedirectTo
	}
	return nil
}

func (s *Session) URL() string {
	return s.CurrentURL
}

func (s *Session) FindAll(selector string) ([]browser.Element, error) {
	p := s.current()
	if p == nil {
		return nil, nil
	}
	if p.FindErr != nil {
		return nil, p.FindErr
	}
	return asElements(p.Elements[selector]), nil
}

func (s *Session) WaitFor(selector string, timeout time.Duration) (browser.Element, error) {
	els, err := s.FindAll(selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: waiting %s for %s", browser.ErrTimeout, timeout, selector)
	}
	return els[0], nil
}

func (s *Session) ScrollHeight() (int, error) {
	p := s.current()
	if p == nil || len(p.Heights) == 0 {
		return 0, nil
	}
	i := s.Scrolls
	if i >= len(p.Heights) {
		i = len(p.Heights) - 1
	}
	return p.Heights[i], nil
}

func (s *Session) ScrollToBottom() error {
	s.Scrolls++
	return nil
}

func (s *Session) Content() (string, error) {
	p := s.current()
	if p == nil {
		return "", nil
	}
	if p.ContentErr != nil {
		return "", p.ContentErr
	}
	return p.HTML, nil
}

func (s *Session) Screenshot(path string) error {
	s.Screenshots = append(s.Screenshots, path)
	return os.WriteFile(path, []byte("png"), 0o644)
}

func (s *Session) Close() error {
	s.Closed = true
	return nil
}

func asElements(els []*Element) []browser.Element {
	out := make([]browser.Element, 0, len(els))
	for _, e := range els {
		out = append(out, e)
	}
	return out
}

var (
	_ browser.Session = (*Session)(nil)
	_ browser.Element = (*Element)(nil)
)
