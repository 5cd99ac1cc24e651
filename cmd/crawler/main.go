package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/maltedev/sameday-crawler/internal/api"
	"github.com/maltedev/sameday-crawler/internal/browser"
	"github.com/maltedev/sameday-crawler/internal/config"
	"github.com/maltedev/sameday-crawler/internal/logger"
	"github.com/maltedev/sameday-crawler/internal/metrics"
	"github.com/maltedev/sameday-crawler/internal/models"
	"github.com/maltedev/sameday-crawler/internal/ratelimit"
	"github.com/maltedev/sameday-crawler/internal/scraper"
	"github.com/maltedev/sameday-crawler/internal/storage"
)

var version = "dev"

var (
	visible     bool
	zipCode     string
	outputFile  string
	maxItems    int
	debug       bool
	debugDir    string
	logLevel    string
	logFormat   string
	metricsAddr string
)

func main() {
	var rootCmd = &cobra.Command{
		Use:     "crawler",
		Short:   "Crawl the Costco Same-Day produce category into a CSV file",
		Version: version,
		Long: `crawler sets a delivery ZIP code on the Costco Same-Day storefront, scrolls
the produce category to its end, visits every product page to recover the
Costco item number and writes name, id, url, image_url and price to CSV.`,
		Example: `  # Headless crawl for the default ZIP code
  crawler

  # Watch the browser and stop after five products
  crawler --visible --max 5

  # Another region, explicit output file, debug artifacts
  crawler --zipcode 10001 --output nyc.csv --debug --debug-dir artifacts`,
		Args:         cobra.NoArgs,
		RunE:         run,
		SilenceUsage: true,
	}

	rootCmd.Flags().BoolVar(&visible, "visible", false, "Run with a visible browser window (headless by default)")
	rootCmd.Flags().StringVar(&zipCode, "zipcode", "94107", "ZIP code for the delivery location")
	rootCmd.Flags().StringVar(&outputFile, "output", "", "Output CSV file (default sameday_produce_<zip>_<date>.csv)")
	rootCmd.Flags().IntVar(&maxItems, "max", 0, "Maximum number of items to crawl (0 = no limit)")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "Save screenshots and page source for debugging")
	rootCmd.Flags().StringVar(&debugDir, "debug-dir", "debug", "Directory for debug artifacts")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&logFormat, "log-format", "json", "Log format (json, text)")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve /health and /metrics on this address while crawling (e.g. :9090)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	runID := uuid.New().String()
	startedAt := time.Now()
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format).With("run_id", runID)
	slog.SetDefault(log)

	if cfg.Crawl.OutputFile == "" {
		cfg.Crawl.OutputFile = config.DefaultOutputFile(cfg.Crawl.ZipCode, startedAt)
	}
	if cfg.Debug.Enabled {
		cfg.Debug.Dir = filepath.Join(cfg.Debug.Dir, runID)
	}

	log.Info("starting crawler",
		"headless", cfg.Browser.Headless,
		"zipcode", cfg.Crawl.ZipCode,
		"output", cfg.Crawl.OutputFile,
		"max_items", cfg.Crawl.MaxItems,
	)

	ctx := context.Background()
	status := api.NewStatus(runID, startedAt)

	var m *metrics.Metrics
	if cfg.Metrics.Addr != "" {
		m = metrics.New()
		stop := serveMetrics(cfg, status, m, log)
		defer stop()
	}

	limiter := ratelimit.NewAdaptiveRateLimiter(cfg.Crawl.DetailDelayMin, cfg.Crawl.DetailDelayMax)

	var items []models.FinalRecord
	err = browser.WithSession(browserOptions(cfg), log, func(session browser.Session) error {
		crawler, err := scraper.NewCrawler(session, crawlOptions(cfg), scraper.Deps{
			Diagnostics: browser.NewDiagnostics(cfg.Debug.Enabled, cfg.Debug.Dir, log),
			Limiter:     limiter,
			Metrics:     m,
			Observer:    status,
			Logger:      log,
		})
		if err != nil {
			return err
		}

		items, err = crawler.Run(ctx)
		return err
	})
	if err != nil {
		log.Error("crawl failed", "error", err)
		return err
	}

	if len(items) == 0 {
		log.Warn("no items found")
	}

	delayMin, delayMax := limiter.Delays()
	log.Info("detail pacing", "delay_min", delayMin.String(), "delay_max", delayMax.String())

	if err := storage.WriteCSV(cfg.Crawl.OutputFile, items); err != nil {
		log.Error("failed to save results", "file", cfg.Crawl.OutputFile, "error", err)
		return err
	}

	log.Info("data saved", "file", cfg.Crawl.OutputFile, "total_items", len(items), "duration", time.Since(startedAt).String())
	return nil
}

// applyFlags lets explicitly set flags override the environment.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("visible") {
		cfg.Browser.Headless = !visible
	}
	if flags.Changed("zipcode") {
		cfg.Crawl.ZipCode = zipCode
	}
	if flags.Changed("output") {
		cfg.Crawl.OutputFile = outputFile
	}
	if flags.Changed("max") {
		cfg.Crawl.MaxItems = maxItems
	}
	if flags.Changed("debug") {
		cfg.Debug.Enabled = debug
	}
	if flags.Changed("debug-dir") {
		cfg.Debug.Dir = debugDir
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = logFormat
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = metricsAddr
	}
}

func browserOptions(cfg *config.Config) *browser.Options {
	return &browser.Options{
		Headless:          cfg.Browser.Headless,
		Timeout:           cfg.Browser.Timeout,
		UserAgent:         cfg.Browser.UserAgent,
		ViewportWidth:     cfg.Browser.ViewportWidth,
		ViewportHeight:    cfg.Browser.ViewportHeight,
		TimezoneID:        cfg.Browser.TimezoneID,
		Locale:            cfg.Browser.Locale,
		NavigationRetries: cfg.Browser.NavigationRetries,
	}
}

func crawlOptions(cfg *config.Config) scraper.Options {
	return scraper.Options{
		BaseURL:         cfg.Site.BaseURL,
		CategoryURL:     cfg.CategoryURL(),
		Markers:         cfg.Site.CatalogMarkers,
		ZipCode:         cfg.Crawl.ZipCode,
		MaxItems:        cfg.Crawl.MaxItems,
		LocationTimeout: cfg.Crawl.LocationTimeout,
		NavigateSettle:  cfg.Crawl.NavigateSettle,
		InitialSettle:   cfg.Crawl.InitialSettle,
		ScrollSettle:    cfg.Crawl.ScrollSettle,
		SubmitSettle:    cfg.Crawl.SubmitSettle,
		ClickSettle:     cfg.Crawl.ClickSettle,
		MaxScrolls:      cfg.Crawl.MaxScrolls,
		DetailCacheSize: cfg.Crawl.DetailCacheSize,
	}
}

func serveMetrics(cfg *config.Config, status *api.Status, m *metrics.Metrics, log *slog.Logger) func() {
	server := &http.Server{
		Addr:         cfg.Metrics.Addr,
		Handler:      api.NewRouter(status, m.Registry, api.Options{AllowedOrigins: cfg.Metrics.AllowedOrigins}, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("metrics server starting", "addr", cfg.Metrics.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Error("metrics server shutdown failed", "error", err)
		}
	}
}
