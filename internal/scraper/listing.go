package scraper

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/maltedev/sameday-crawler/internal/browser"
	"github.com/maltedev/sameday-crawler/internal/metrics"
	"github.com/maltedev/sameday-crawler/internal/models"
	"github.com/maltedev/sameday-crawler/internal/selector"
)

type ListingExtractor struct {
	catalog *selector.Catalog
	base    *url.URL
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewListingExtractor(catalog *selector.Catalog, baseURL string, m *metrics.Metrics, logger *slog.Logger) (*ListingExtractor, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ListingExtractor{
		catalog: catalog,
		base:    base,
		metrics: m,
		logger:  logger.With("component", "listing"),
	}, nil
}

// Extract turns product containers into preliminary records in document order.
// A container that cannot be read is skipped. maxItems > 0 keeps only the first
// maxItems records.
func (e *ListingExtractor) Extract(containers []browser.Element, maxItems int) []models.PreliminaryRecord {
	records := make([]models.PreliminaryRecord, 0, len(containers))

	for i, el := range containers {
		if maxItems > 0 && len(records) >= maxItems {
			e.logger.Info("limiting products", "max_items", maxItems, "found", len(containers))
			break
		}

		position := i + 1
		rec, err := e.extractOne(el, position)
		if err != nil {
			e.logger.Warn("error extracting basic details", "position", position, "error", err)
			e.metrics.IncError("listing")
			continue
		}
		records = append(records, rec)
	}

	e.metrics.SetListingRecords(len(records))
	return records
}

func (e *ListingExtractor) extractOne(el browser.Element, position int) (models.PreliminaryRecord, error) {
	href, err := el.Attribute("href")
	if err != nil {
		return models.PreliminaryRecord{}, fmt.Errorf("read href: %w", err)
	}
	link, err := e.absolute(href)
	if err != nil {
		return models.PreliminaryRecord{}, err
	}

	rec := models.PreliminaryRecord{
		URL:          link,
		Name:         models.UnnamedProduct(position),
		Price:        models.PriceNotFound,
		ImageURL:     models.ImageNotFound,
		PagePosition: position,
	}

	if res := e.catalog.Name.Resolve(el); res.Found {
		rec.Name = res.Value
		e.metrics.IncRuleHit(string(selector.FieldName), res.Rule)
	}
	if res := e.catalog.Price.Resolve(el); res.Found {
		rec.Price = res.Value
		e.metrics.IncRuleHit(string(selector.FieldPrice), res.Rule)
	}
	if res := e.catalog.Image.Resolve(el); res.Found {
		rec.ImageURL = res.Value
		e.metrics.IncRuleHit(string(selector.FieldImage), res.Rule)
	}

	e.logger.Debug("extracted listing record", "position", position, "name", rec.Name, "url", rec.URL)
	return rec, nil
}

func (e *ListingExtractor) absolute(href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", ErrNoHref
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid href %q: %w", href, err)
	}
	return e.base.ResolveReference(ref).String(), nil
}
