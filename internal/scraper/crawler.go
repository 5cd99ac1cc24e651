package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/maltedev/sameday-crawler/internal/browser"
	"github.com/maltedev/sameday-crawler/internal/metrics"
	"github.com/maltedev/sameday-crawler/internal/models"
	"github.com/maltedev/sameday-crawler/internal/ratelimit"
	"github.com/maltedev/sameday-crawler/internal/selector"
)

// Observer receives progress updates, e.g. for a health endpoint.
type Observer interface {
	SetStage(stage string)
	SetRecords(n int)
}

type Options struct {
	BaseURL     string
	CategoryURL string
	Markers     []string
	ZipCode     string
	MaxItems    int

	LocationTimeout time.Duration
	NavigateSettle  time.Duration
	InitialSettle   time.Duration
	ScrollSettle    time.Duration
	SubmitSettle    time.Duration
	ClickSettle     time.Duration
	MaxScrolls      int
	DetailCacheSize int
}

type Crawler struct {
	session     browser.Session
	opts        Options
	catalog     *selector.Catalog
	diagnostics *browser.Diagnostics
	popups      *PopupDismisser
	location    *LocationSetter
	paginator   *Paginator
	listing     *ListingExtractor
	detail      *DetailEnricher
	observer    Observer
	metrics     *metrics.Metrics
	logger      *slog.Logger
	sleep       Sleeper
}

type Deps struct {
	Diagnostics *browser.Diagnostics
	Limiter     ratelimit.RateLimiter
	Metrics     *metrics.Metrics
	Observer    Observer
	Sleep       Sleeper
	Logger      *slog.Logger
}

func NewCrawler(session browser.Session, opts Options, deps Deps) (*Crawler, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sleep := deps.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	catalog := selector.NewCatalog(logger)
	popups := NewPopupDismisser(session, opts.ClickSettle, sleep, deps.Metrics, logger)

	listing, err := NewListingExtractor(catalog, opts.BaseURL, deps.Metrics, logger)
	if err != nil {
		return nil, err
	}

	detail, err := NewDetailEnricher(session, catalog, popups, deps.Limiter, DetailOptions{
		Settle:    opts.NavigateSettle,
		CacheSize: opts.DetailCacheSize,
	}, sleep, deps.Metrics, logger)
	if err != nil {
		return nil, err
	}

	return &Crawler{
		session:     session,
		opts:        opts,
		catalog:     catalog,
		diagnostics: deps.Diagnostics,
		popups:      popups,
		location: NewLocationSetter(session, deps.Diagnostics, LocationOptions{
			RootURL: opts.BaseURL,
			Markers: opts.Markers,
			Timeout: opts.LocationTimeout,
			Settle:  opts.SubmitSettle,
		}, sleep, logger),
		paginator: NewPaginator(session, opts.ScrollSettle, opts.MaxScrolls, sleep, deps.Metrics, logger),
		listing:   listing,
		detail:    detail,
		observer:  deps.Observer,
		metrics:   deps.Metrics,
		logger:    logger.With("component", "crawler"),
		sleep:     sleep,
	}, nil
}

// Run performs one full sweep of the category. It fails only when the delivery
// location cannot be set; every later problem degrades the output instead.
func (c *Crawler) Run(ctx context.Context) ([]models.FinalRecord, error) {
	c.stage("initial_visit")
	c.initialVisit(ctx)

	c.stage("location")
	if err := c.location.Set(ctx, c.opts.ZipCode); err != nil {
		c.logger.Error("failed to set location", "zip", c.opts.ZipCode, "error", err)
		return nil, err
	}
	c.popups.Dismiss(ctx)

	c.stage("listing")
	containers := c.loadListing(ctx)
	if len(containers) == 0 {
		c.stage("done")
		return nil, nil
	}

	records := c.listing.Extract(containers, c.opts.MaxItems)
	c.logger.Info("extracted listing records", "count", len(records), "containers", len(containers))
	c.progress(len(records))

	c.stage("detail")
	items := c.detail.EnrichAll(ctx, records)

	c.stage("done")
	c.logger.Info("crawl completed", "items", len(items))
	return items, nil
}

func (c *Crawler) initialVisit(ctx context.Context) {
	if err := c.navigate("storefront", c.opts.BaseURL); err != nil {
		c.logger.Warn("initial visit failed", "url", c.opts.BaseURL, "error", err)
		return
	}
	if err := c.sleep(ctx, c.opts.NavigateSettle); err != nil {
		c.logger.Warn("initial settle interrupted", "error", err)
	}
	c.diagnostics.Screenshot(c.session, "before_location")
	c.popups.Dismiss(ctx)
}

// loadListing opens the category page, scrolls it to the end and resolves the
// product containers. An empty result is a valid outcome.
func (c *Crawler) loadListing(ctx context.Context) []browser.Element {
	if err := c.navigate("listing", c.opts.CategoryURL); err != nil {
		c.logger.Error("failed to open listing page", "url", c.opts.CategoryURL, "error", err)
		c.metrics.IncError("listing_navigation")
		return nil
	}
	c.logger.Info("navigated to listing page", "url", c.opts.CategoryURL)

	c.diagnostics.DumpSource(c.session, "produce_page_source")
	c.popups.Dismiss(ctx)

	c.logger.Info("waiting for page to fully load")
	if err := c.sleep(ctx, c.opts.InitialSettle); err != nil {
		c.logger.Warn("listing settle interrupted", "error", err)
	}
	c.diagnostics.Screenshot(c.session, "produce_page_loaded")

	c.stage("scrolling")
	report := c.paginator.Run(ctx)
	c.logger.Info("scrolling finished", "reason", report.Reason, "iterations", report.Iterations, "heights", report.Heights)
	c.diagnostics.Screenshot(c.session, "after_scrolling")

	c.stage("resolving")
	if res := c.catalog.Products.Resolve(c.session); res.Found {
		c.logger.Info("found products", "count", len(res.Value), "rule", res.Rule)
		c.metrics.IncRuleHit(string(selector.FieldProducts), res.Rule)
		return res.Value
	}

	c.logger.Warn("could not find any products with selectors")
	c.diagnostics.Screenshot(c.session, "no_products_found")

	links, ok, err := c.catalog.ProductLinks.Resolve(c.session)
	if err != nil {
		c.logger.Warn("product link scan failed", "error", err)
		return nil
	}
	if !ok {
		c.logger.Warn("no product links found")
		return nil
	}

	c.logger.Info("found potential product links", "count", len(links))
	c.metrics.IncRuleHit(string(selector.FieldProducts), c.catalog.ProductLinks.Name())
	return links
}

func (c *Crawler) navigate(page, u string) error {
	start := time.Now()
	if err := c.session.Navigate(u); err != nil {
		return err
	}
	c.metrics.ObserveNavigation(page, time.Since(start))
	return nil
}

func (c *Crawler) stage(s string) {
	if c.observer != nil {
		c.observer.SetStage(s)
	}
}

func (c *Crawler) progress(n int) {
	if c.observer != nil {
		c.observer.SetRecords(n)
	}
}
