package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/maltedev/sameday-crawler/internal/browser/browsertest"
)

const (
	acceptButton = "//button[contains(text(), 'Accept')]"
	closeButton  = "//button[contains(@aria-label, 'Close')]"
	dialogButton = "//div[contains(@role, 'dialog')]//button"
)

func TestPopupDismisserClicksVisibleOverlays(t *testing.T) {
	s := browsertest.NewSession()
	p := openPage(t, s, testBase, &browsertest.Page{})

	banner := &browsertest.Element{}
	banner.OnClick = func() { p.Remove(banner) }
	hidden := &browsertest.Element{Hidden: true}
	p.Elements[acceptButton] = []*browsertest.Element{banner, hidden}

	rec := &sleepRecorder{}
	d := NewPopupDismisser(s, time.Second, rec.sleep, nil, nil)

	assert.Equal(t, 1, d.Dismiss(context.Background()))
	assert.Equal(t, 1, banner.Clicks)
	assert.Zero(t, hidden.Clicks)
	assert.Equal(t, []time.Duration{time.Second}, rec.calls)

	assert.Equal(t, 0, d.Dismiss(context.Background()))
	assert.Equal(t, 1, banner.Clicks)
}

func TestPopupDismisserSkipsFailingRule(t *testing.T) {
	s := browsertest.NewSession()
	p := openPage(t, s, testBase, &browsertest.Page{})

	stale := &browsertest.Element{ClickErr: errors.New("element is detached")}
	afterStale := &browsertest.Element{}
	closer := &browsertest.Element{}
	p.Elements[acceptButton] = []*browsertest.Element{stale, afterStale}
	p.Elements[closeButton] = []*browsertest.Element{closer}

	d := NewPopupDismisser(s, 0, noSleep, nil, nil)

	assert.NotPanics(t, func() {
		assert.Equal(t, 1, d.Dismiss(context.Background()))
	})
	assert.Zero(t, afterStale.Clicks)
	assert.Equal(t, 1, closer.Clicks)
}

func TestPopupDismisserSurvivesLookupErrors(t *testing.T) {
	s := browsertest.NewSession()
	openPage(t, s, testBase, &browsertest.Page{FindErr: errors.New("execution context was destroyed")})

	d := NewPopupDismisser(s, 0, noSleep, nil, nil)

	assert.Equal(t, 0, d.Dismiss(context.Background()))
}

func TestPopupDismisserIdempotentOnCleanPage(t *testing.T) {
	s := browsertest.NewSession()
	p := openPage(t, s, testBase, &browsertest.Page{})
	content := &browsertest.Element{Content: "Produce"}
	p.Elements["//h1"] = []*browsertest.Element{content}

	d := NewPopupDismisser(s, time.Second, noSleep, nil, nil)

	assert.Equal(t, 0, d.Dismiss(context.Background()))
	assert.Equal(t, 0, d.Dismiss(context.Background()))

	assert.Equal(t, testBase, s.URL())
	assert.Equal(t, []string{testBase}, s.Navigations)
	assert.Len(t, p.Elements["//h1"], 1)
	assert.Zero(t, content.Clicks)
}

func TestPopupSelectorsOrder(t *testing.T) {
	assert.Len(t, PopupSelectors, 16)
	assert.Equal(t, acceptButton, PopupSelectors[0])
	assert.Equal(t, dialogButton, PopupSelectors[11])
}
