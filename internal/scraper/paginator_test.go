package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/sameday-crawler/internal/browser/browsertest"
	"github.com/maltedev/sameday-crawler/internal/metrics"
)

func scrollSession(t *testing.T, heights ...int) *browsertest.Session {
	t.Helper()
	s := browsertest.NewSession()
	openPage(t, s, testCategory, &browsertest.Page{Heights: heights})
	return s
}

func assertNonDecreasing(t *testing.T, heights []int) {
	t.Helper()
	for i := 1; i < len(heights); i++ {
		assert.GreaterOrEqual(t, heights[i], heights[i-1], "height %d decreased", i)
	}
}

func TestPaginatorStopsOnStableHeight(t *testing.T) {
	s := scrollSession(t, 1000, 2000, 2000, 2000)
	rec := &sleepRecorder{}

	report := NewPaginator(s, 3*time.Second, 10, rec.sleep, nil, nil).Run(context.Background())

	assert.Equal(t, StopStable, report.Reason)
	assert.NoError(t, report.Err)
	assert.Equal(t, []int{1000, 2000, 2000, 2000}, report.Heights)
	assert.Equal(t, 1, report.Iterations)
	assert.Equal(t, 3, report.Scrolls)
	assert.Len(t, rec.calls, 3)
	for _, d := range rec.calls {
		assert.Equal(t, 3*time.Second, d)
	}
}

func TestPaginatorConfirmsBeforeStopping(t *testing.T) {
	// The second observation repeats, but the confirming scroll reveals more content.
	s := scrollSession(t, 1000, 2000, 2000, 3000, 3000, 3000)

	report := NewPaginator(s, 0, 10, noSleep, nil, nil).Run(context.Background())

	assert.Equal(t, StopStable, report.Reason)
	assert.Equal(t, 2, report.Iterations)
	assert.Equal(t, 5, report.Scrolls)
	assert.Equal(t, 3000, report.Heights[len(report.Heights)-1])
	assertNonDecreasing(t, report.Heights)
}

func TestPaginatorEmptyPage(t *testing.T) {
	s := scrollSession(t, 800)

	report := NewPaginator(s, 0, 10, noSleep, nil, nil).Run(context.Background())

	assert.Equal(t, StopStable, report.Reason)
	assert.Zero(t, report.Iterations)
	assert.Equal(t, 2, report.Scrolls)
}

func TestPaginatorEnforcesCap(t *testing.T) {
	heights := make([]int, 50)
	for i := range heights {
		heights[i] = 1000 * (i + 1)
	}
	s := scrollSession(t, heights...)
	m := metrics.New()

	report := NewPaginator(s, 0, 10, noSleep, m, nil).Run(context.Background())

	assert.Equal(t, StopCap, report.Reason)
	assert.Equal(t, 10, report.Iterations)
	assert.Equal(t, 10, report.Scrolls)
	assert.Len(t, report.Heights, 11)
	assertNonDecreasing(t, report.Heights)
}

func TestPaginatorCapOfOne(t *testing.T) {
	s := scrollSession(t, 1000, 2000, 3000)

	report := NewPaginator(s, 0, 1, noSleep, nil, nil).Run(context.Background())

	assert.Equal(t, StopCap, report.Reason)
	assert.Equal(t, 1, report.Scrolls)
}

type flakyHeightSession struct {
	*browsertest.Session
	failAfter int
	calls     int
}

func (f *flakyHeightSession) ScrollHeight() (int, error) {
	f.calls++
	if f.calls > f.failAfter {
		return 0, errors.New("target closed")
	}
	return f.Session.ScrollHeight()
}

func TestPaginatorStopsOnHeightError(t *testing.T) {
	s := &flakyHeightSession{Session: scrollSession(t, 1000, 2000, 3000, 4000), failAfter: 2}

	report := NewPaginator(s, 0, 10, noSleep, nil, nil).Run(context.Background())

	assert.Equal(t, StopError, report.Reason)
	require.Error(t, report.Err)
	assert.Equal(t, []int{1000, 2000}, report.Heights)
	assert.Equal(t, 2, report.Scrolls)
}

func TestPaginatorStopsWhenSettleInterrupted(t *testing.T) {
	s := scrollSession(t, 1000, 2000)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := NewPaginator(s, time.Hour, 10, Sleep, nil, nil).Run(ctx)

	assert.Equal(t, StopError, report.Reason)
	assert.ErrorIs(t, report.Err, context.Canceled)
	assert.Equal(t, 1, report.Scrolls)
}

func TestScrollStateString(t *testing.T) {
	assert.Equal(t, "scrolling", StateScrolling.String())
	assert.Equal(t, "settling", StateSettling.String())
	assert.Equal(t, "confirming_end", StateConfirmingEnd.String())
	assert.Equal(t, "done", StateDone.String())
}
