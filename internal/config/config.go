package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Site    SiteConfig
	Browser BrowserConfig
	Crawl   CrawlConfig
	Debug   DebugConfig
	Logging LoggingConfig
	Metrics MetricsConfig
}

type SiteConfig struct {
	BaseURL        string
	CategoryPath   string
	CatalogMarkers []string
}

type BrowserConfig struct {
	Headless          bool
	Timeout           time.Duration
	ViewportWidth     int
	ViewportHeight    int
	UserAgent         string
	Locale            string
	TimezoneID        string
	NavigationRetries int
}

type CrawlConfig struct {
	ZipCode         string
	MaxItems        int
	OutputFile      string
	LocationTimeout time.Duration
	NavigateSettle  time.Duration
	InitialSettle   time.Duration
	ScrollSettle    time.Duration
	SubmitSettle    time.Duration
	ClickSettle     time.Duration
	MaxScrolls      int
	DetailDelayMin  time.Duration
	DetailDelayMax  time.Duration
	DetailCacheSize int
}

type DebugConfig struct {
	Enabled bool
	Dir     string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type MetricsConfig struct {
	Addr           string
	AllowedOrigins []string
}

func Load() (*Config, error) {
	cfg := &Config{
		Site: SiteConfig{
			BaseURL:        getEnvOrDefault("SITE_BASE_URL", "https://sameday.costco.com"),
			CategoryPath:   getEnvOrDefault("SITE_CATEGORY_PATH", "/store/costco/collections/n-produce-50673"),
			CatalogMarkers: getStringSliceOrDefault("SITE_CATALOG_MARKERS", []string{"collections", "store"}),
		},
		Browser: BrowserConfig{
			Headless:          getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:           getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			ViewportWidth:     getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight:    getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			UserAgent:         getEnvOrDefault("BROWSER_USER_AGENT", defaultUserAgent),
			Locale:            getEnvOrDefault("BROWSER_LOCALE", "en-US"),
			TimezoneID:        getEnvOrDefault("BROWSER_TIMEZONE", "America/Los_Angeles"),
			NavigationRetries: getIntOrDefault("BROWSER_NAVIGATION_RETRIES", 1),
		},
		Crawl: CrawlConfig{
			ZipCode:         getEnvOrDefault("CRAWL_ZIPCODE", "94107"),
			MaxItems:        getIntOrDefault("CRAWL_MAX_ITEMS", 0),
			OutputFile:      getEnvOrDefault("CRAWL_OUTPUT", ""),
			LocationTimeout: getDurationOrDefault("CRAWL_LOCATION_TIMEOUT", 15*time.Second),
			NavigateSettle:  getDurationOrDefault("CRAWL_NAVIGATE_SETTLE", 3*time.Second),
			InitialSettle:   getDurationOrDefault("CRAWL_INITIAL_SETTLE", 10*time.Second),
			ScrollSettle:    getDurationOrDefault("CRAWL_SCROLL_SETTLE", 3*time.Second),
			SubmitSettle:    getDurationOrDefault("CRAWL_SUBMIT_SETTLE", 3*time.Second),
			ClickSettle:     getDurationOrDefault("CRAWL_CLICK_SETTLE", 1*time.Second),
			MaxScrolls:      getIntOrDefault("CRAWL_MAX_SCROLLS", 10),
			DetailDelayMin:  getDurationOrDefault("CRAWL_DETAIL_DELAY_MIN", time.Second),
			DetailDelayMax:  getDurationOrDefault("CRAWL_DETAIL_DELAY_MAX", 3*time.Second),
			DetailCacheSize: getIntOrDefault("CRAWL_DETAIL_CACHE_SIZE", 256),
		},
		Debug: DebugConfig{
			Enabled: getBoolOrDefault("DEBUG_ARTIFACTS", false),
			Dir:     getEnvOrDefault("DEBUG_DIR", "debug"),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Addr:           getEnvOrDefault("METRICS_ADDR", ""),
			AllowedOrigins: getStringSliceOrDefault("METRICS_CORS_ORIGINS", nil),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.Site.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid SITE_BASE_URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("SITE_BASE_URL must be absolute, got %q", c.Site.BaseURL)
	}

	if !strings.HasPrefix(c.Site.CategoryPath, "/") {
		return fmt.Errorf("SITE_CATEGORY_PATH must start with /")
	}

	if len(c.Site.CatalogMarkers) == 0 {
		return fmt.Errorf("SITE_CATALOG_MARKERS cannot be empty")
	}

	if strings.TrimSpace(c.Crawl.ZipCode) == "" {
		return fmt.Errorf("zip code is required")
	}

	if c.Crawl.MaxItems < 0 {
		return fmt.Errorf("max items cannot be negative")
	}

	if c.Crawl.MaxScrolls < 1 {
		return fmt.Errorf("CRAWL_MAX_SCROLLS must be at least 1")
	}

	if c.Crawl.DetailDelayMin < 0 || c.Crawl.DetailDelayMin > c.Crawl.DetailDelayMax {
		return fmt.Errorf("CRAWL_DETAIL_DELAY_MIN must be between 0 and CRAWL_DETAIL_DELAY_MAX")
	}

	if c.Browser.Timeout <= 0 {
		return fmt.Errorf("BROWSER_TIMEOUT must be positive")
	}

	if c.Browser.NavigationRetries < 1 {
		return fmt.Errorf("BROWSER_NAVIGATION_RETRIES must be at least 1")
	}

	if c.Debug.Enabled && c.Debug.Dir == "" {
		return fmt.Errorf("DEBUG_DIR is required when debug artifacts are enabled")
	}

	return nil
}

// CategoryURL is the absolute listing page URL.
func (c *Config) CategoryURL() string {
	return strings.TrimRight(c.Site.BaseURL, "/") + c.Site.CategoryPath
}

// DefaultOutputFile derives the export filename from the ZIP code and the run date.
func DefaultOutputFile(zip string, now time.Time) string {
	return fmt.Sprintf("sameday_produce_%s_%s.csv", zip, now.Format("2006-01-02"))
}

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return defaultValue
}
