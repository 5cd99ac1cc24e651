package scraper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/maltedev/sameday-crawler/internal/browser/browsertest"
)

const (
	testBase     = "https://sameday.costco.com"
	testCategory = testBase + "/store/costco/collections/n-produce-50673"
)

func noSleep(context.Context, time.Duration) error { return nil }

type sleepRecorder struct {
	calls []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.calls = append(r.calls, d)
	return nil
}

// openPage registers p under url and navigates the session to it.
func openPage(t *testing.T, s *browsertest.Session, url string, p *browsertest.Page) *browsertest.Page {
	t.Helper()
	s.AddPage(url, p)
	require.NoError(t, s.Navigate(url))
	return p
}
