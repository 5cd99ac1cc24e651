package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/maltedev/sameday-crawler/internal/browser"
	"github.com/maltedev/sameday-crawler/internal/metrics"
	"github.com/maltedev/sameday-crawler/internal/models"
	"github.com/maltedev/sameday-crawler/internal/parser"
	"github.com/maltedev/sameday-crawler/internal/ratelimit"
	"github.com/maltedev/sameday-crawler/internal/selector"
)

// detailResult is what a detail page visit contributes to a record.
type detailResult struct {
	ID       string
	ImageURL string
}

type DetailEnricher struct {
	session browser.Session
	catalog *selector.Catalog
	popups  *PopupDismisser
	limiter ratelimit.RateLimiter
	cache   *lru.Cache[string, detailResult]
	settle  time.Duration
	sleep   Sleeper
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type DetailOptions struct {
	Settle time.Duration
	// CacheSize bounds the per-URL result cache; 0 disables it.
	CacheSize int
}

func NewDetailEnricher(session browser.Session, catalog *selector.Catalog, popups *PopupDismisser, limiter ratelimit.RateLimiter, opts DetailOptions, sleep Sleeper, m *metrics.Metrics, logger *slog.Logger) (*DetailEnricher, error) {
	if sleep == nil {
		sleep = Sleep
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &DetailEnricher{
		session: session,
		catalog: catalog,
		popups:  popups,
		limiter: limiter,
		settle:  opts.Settle,
		sleep:   sleep,
		metrics: m,
		logger:  logger.With("component", "detail"),
	}

	if opts.CacheSize > 0 {
		cache, err := lru.New[string, detailResult](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create detail cache: %w", err)
		}
		d.cache = cache
	}

	return d, nil
}

// EnrichAll visits every record's detail page in order. Each record is isolated: a
// failed visit yields the record with an error id instead of stopping the batch.
func (d *DetailEnricher) EnrichAll(ctx context.Context, records []models.PreliminaryRecord) []models.FinalRecord {
	return MapRecords(ctx, records,
		func(ctx context.Context, i int, rec models.PreliminaryRecord) (models.FinalRecord, error) {
			d.logger.Info("visiting product page", "index", i+1, "total", len(records), "name", rec.Name, "url", rec.URL)
			return d.Enrich(ctx, rec)
		},
		func(i int, rec models.PreliminaryRecord, err error) models.FinalRecord {
			d.logger.Warn("error processing product detail page", "position", rec.PagePosition, "url", rec.URL, "error", err)
			d.metrics.IncDetail(metrics.OutcomeError)
			d.recordOutcome(err)
			return rec.Finalize(models.ErrorID(rec.PagePosition))
		},
	)
}

// Enrich recovers the canonical id and a better image for one record. Only a failed
// visit returns an error; a page without an id falls back to the URL-derived id.
func (d *DetailEnricher) Enrich(ctx context.Context, rec models.PreliminaryRecord) (models.FinalRecord, error) {
	if cached, ok := d.lookup(rec.URL); ok {
		d.logger.Debug("detail cache hit", "url", rec.URL)
		d.metrics.IncDetail(metrics.OutcomeCached)
		return d.apply(rec, cached), nil
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return models.FinalRecord{}, fmt.Errorf("rate limiter: %w", err)
		}
	}

	start := time.Now()
	if err := d.session.Navigate(rec.URL); err != nil {
		return models.FinalRecord{}, fmt.Errorf("navigate: %w", err)
	}
	d.metrics.ObserveNavigation("detail", time.Since(start))

	if err := d.sleep(ctx, d.settle); err != nil {
		return models.FinalRecord{}, err
	}

	if d.popups != nil {
		d.popups.Dismiss(ctx)
	}

	result := detailResult{ID: d.resolveID(rec)}
	if res := d.catalog.DetailImage.Resolve(d.session); res.Found {
		result.ImageURL = res.Value
		d.metrics.IncRuleHit(string(selector.FieldDetailImage), res.Rule)
	}

	if d.cache != nil {
		d.cache.Add(rec.URL, result)
	}
	d.recordOutcome(nil)

	final := d.apply(rec, result)
	d.logger.Info("added product", "id", final.ID, "name", final.Name, "price", final.Price, "image_url", final.ImageURL)
	return final, nil
}

func (d *DetailEnricher) resolveID(rec models.PreliminaryRecord) string {
	if res := d.catalog.DetailID.Resolve(d.session); res.Found {
		d.metrics.IncRuleHit(string(selector.FieldDetailID), res.Rule)
		d.metrics.IncDetail(metrics.OutcomeCanonical)
		return res.Value
	}

	html, err := d.session.Content()
	if err == nil {
		var id string
		id, err = parser.ScanPageID(html)
		if err == nil && id != "" {
			d.logger.Debug("found item id by page scan", "id", id)
			d.metrics.IncDetail(metrics.OutcomeCanonical)
			return id
		}
	}
	if err != nil {
		d.logger.Warn("item id scan failed", "url", rec.URL, "error", err)
	}

	d.logger.Info("could not find item id on the product page", "url", rec.URL)
	d.metrics.IncDetail(metrics.OutcomeURL)
	return models.URLFallbackID(parser.URLSegmentID(rec.URL))
}

func (d *DetailEnricher) apply(rec models.PreliminaryRecord, result detailResult) models.FinalRecord {
	if result.ImageURL != "" {
		rec.ImageURL = result.ImageURL
	}
	return rec.Finalize(result.ID)
}

func (d *DetailEnricher) lookup(u string) (detailResult, bool) {
	if d.cache == nil {
		return detailResult{}, false
	}
	return d.cache.Get(u)
}

func (d *DetailEnricher) recordOutcome(err error) {
	fb, ok := d.limiter.(ratelimit.Feedback)
	if !ok {
		return
	}
	if err != nil {
		fb.RecordError()
	} else {
		fb.RecordSuccess()
	}
}

// MapRecords applies fn to every item in order. When fn fails or panics for an item,
// fallback produces that item's output instead; the error never reaches the caller.
func MapRecords[In, Out any](ctx context.Context, items []In, fn func(ctx context.Context, i int, item In) (Out, error), fallback func(i int, item In, err error) Out) []Out {
	out := make([]Out, 0, len(items))
	for i, item := range items {
		v, err := safeApply(ctx, i, item, fn)
		if err != nil {
			v = fallback(i, item, err)
		}
		out = append(out, v)
	}
	return out
}

func safeApply[In, Out any](ctx context.Context, i int, item In, fn func(context.Context, int, In) (Out, error)) (v Out, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx, i, item)
}
