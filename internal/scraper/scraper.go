// Package scraper drives the storefront crawl: location, overlays, infinite scroll,
// listing extraction and detail-page enrichment.
package scraper

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrLocationNotSet means the delivery region could not be confirmed; the run cannot continue.
	ErrLocationNotSet = errors.New("delivery location not set")
	ErrNoHref         = errors.New("product element has no link target")
)

// Sleeper waits out a settle delay. Tests replace it to run without real timing.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the default Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
