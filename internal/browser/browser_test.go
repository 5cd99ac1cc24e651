package browser

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if !opts.Headless {
		t.Error("Expected headless to be true by default")
	}

	if opts.Timeout != 30*time.Second {
		t.Errorf("Expected timeout to be 30s, got %v", opts.Timeout)
	}

	if opts.ViewportWidth != 1920 || opts.ViewportHeight != 1080 {
		t.Errorf("Expected viewport to be 1920x1080, got %dx%d", opts.ViewportWidth, opts.ViewportHeight)
	}

	if opts.NavigationRetries != 1 {
		t.Errorf("Expected a single navigation attempt, got %d", opts.NavigationRetries)
	}
}

func TestNormalizeSelector(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"//a[contains(@href, '/products/')]", "//a[contains(@href, '/products/')]"},
		{".//img[@data-testid='item-card-image']", "xpath=.//img[@data-testid='item-card-image']"},
		{"(//img)[1]", "xpath=(//img)[1]"},
		{"a", "a"},
		{"button.close", "button.close"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeSelector(tt.input))
		})
	}
}

func TestWrapErrMarksTimeouts(t *testing.T) {
	assert.NoError(t, wrapErr(nil))

	timeout := wrapErr(fmt.Errorf("waiting for selector: %w", playwright.ErrTimeout))
	assert.True(t, errors.Is(timeout, ErrTimeout))

	other := wrapErr(errors.New("target closed"))
	assert.False(t, errors.Is(other, ErrTimeout))
}

func TestToInt(t *testing.T) {
	v, err := toInt(2048)
	require.NoError(t, err)
	assert.Equal(t, 2048, v)

	v, err = toInt(int64(10))
	require.NoError(t, err)
	assert.Equal(t, 10, v)

	v, err = toInt(1999.6)
	require.NoError(t, err)
	assert.Equal(t, 2000, v)

	_, err = toInt("tall")
	assert.Error(t, err)
}

type stubSession struct {
	Session
	html       string
	shots      []string
	shotErr    error
	contentErr error
	closed     int
}

func (s *stubSession) Close() error {
	s.closed++
	return nil
}

func (s *stubSession) Screenshot(path string) error {
	if s.shotErr != nil {
		return s.shotErr
	}
	s.shots = append(s.shots, path)
	return nil
}

func (s *stubSession) Content() (string, error) {
	return s.html, s.contentErr
}

func TestDiagnostics(t *testing.T) {
	t.Run("disabled does nothing", func(t *testing.T) {
		s := &stubSession{}
		d := NewDiagnostics(false, t.TempDir(), nil)

		d.Screenshot(s, "initial_page")
		d.DumpSource(s, "listing")

		assert.Empty(t, s.shots)
	})

	t.Run("nil is safe", func(t *testing.T) {
		var d *Diagnostics
		assert.NotPanics(t, func() {
			d.Screenshot(&stubSession{}, "x")
			d.DumpSource(&stubSession{}, "x")
		})
	})

	t.Run("writes artifacts", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "run")
		s := &stubSession{html: "<html></html>"}
		d := NewDiagnostics(true, dir, nil)

		d.Screenshot(s, "after_scrolling")
		d.DumpSource(s, "produce_page_source")

		assert.Equal(t, []string{filepath.Join(dir, "after_scrolling.png")}, s.shots)
		data, err := os.ReadFile(filepath.Join(dir, "produce_page_source.html"))
		require.NoError(t, err)
		assert.Equal(t, "<html></html>", string(data))
	})

	t.Run("failures are swallowed", func(t *testing.T) {
		s := &stubSession{shotErr: errors.New("page crashed"), contentErr: errors.New("detached")}
		d := NewDiagnostics(true, t.TempDir(), nil)

		assert.NotPanics(t, func() {
			d.Screenshot(s, "x")
			d.DumpSource(s, "x")
		})
	})
}

type stubCloser struct {
	closed int
	err    error
}

func (c *stubCloser) Close() error {
	c.closed++
	return c.err
}

func TestWithSessionReleasesResources(t *testing.T) {
	errCrawl := errors.New("location not set")

	t.Run("fn succeeds", func(t *testing.T) {
		page, b := &stubSession{}, &stubCloser{}
		var got Session

		err := withSession(func() (Session, io.Closer, error) { return page, b, nil }, nil, func(s Session) error {
			got = s
			return nil
		})

		require.NoError(t, err)
		assert.Same(t, page, got)
		assert.Equal(t, 1, page.closed)
		assert.Equal(t, 1, b.closed)
	})

	t.Run("fn fails", func(t *testing.T) {
		page, b := &stubSession{}, &stubCloser{}

		err := withSession(func() (Session, io.Closer, error) { return page, b, nil }, nil, func(Session) error {
			return errCrawl
		})

		assert.ErrorIs(t, err, errCrawl)
		assert.Equal(t, 1, page.closed)
		assert.Equal(t, 1, b.closed)
	})

	t.Run("fn panics", func(t *testing.T) {
		page, b := &stubSession{}, &stubCloser{}

		assert.Panics(t, func() {
			_ = withSession(func() (Session, io.Closer, error) { return page, b, nil }, nil, func(Session) error {
				panic("page crashed")
			})
		})

		assert.Equal(t, 1, page.closed)
		assert.Equal(t, 1, b.closed)
	})

	t.Run("page cannot be opened", func(t *testing.T) {
		b := &stubCloser{}
		called := false

		err := withSession(func() (Session, io.Closer, error) {
			return nil, b, errors.New("failed to create new page")
		}, nil, func(Session) error {
			called = true
			return nil
		})

		assert.ErrorIs(t, err, ErrSessionUnavailable)
		assert.False(t, called)
		assert.Equal(t, 1, b.closed)
	})

	t.Run("browser cannot be launched", func(t *testing.T) {
		err := withSession(func() (Session, io.Closer, error) {
			return nil, nil, errors.New("failed to launch browser")
		}, nil, func(Session) error {
			t.Fatal("fn must not run without a session")
			return nil
		})

		assert.ErrorIs(t, err, ErrSessionUnavailable)
	})

	t.Run("teardown errors do not mask the result", func(t *testing.T) {
		page, b := &stubSession{}, &stubCloser{err: errors.New("failed to stop playwright")}

		err := withSession(func() (Session, io.Closer, error) { return page, b, nil }, nil, func(Session) error {
			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, 1, b.closed)
	})
}
