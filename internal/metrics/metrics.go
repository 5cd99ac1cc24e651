// Package metrics exposes Prometheus collectors for a crawl run. A nil *Metrics is
// valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Detail visit outcomes.
const (
	OutcomeCanonical = "canonical"
	OutcomeURL       = "url_fallback"
	OutcomeCached    = "cached"
	OutcomeError     = "error"
)

type Metrics struct {
	Registry          *prometheus.Registry
	NavigationsTotal  *prometheus.CounterVec
	NavigationSeconds prometheus.Histogram
	ScrollsTotal      prometheus.Counter
	ListingRecords    prometheus.Gauge
	RuleHitsTotal     *prometheus.CounterVec
	DetailsTotal      *prometheus.CounterVec
	PopupsTotal       prometheus.Counter
	ErrorsTotal       *prometheus.CounterVec
}

// New constructs and registers all collectors on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	navigations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_navigations_total",
			Help: "Page navigations issued by the crawler.",
		},
		[]string{"page"},
	)
	navigationSeconds := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crawler_navigation_duration_seconds",
			Help:    "Latency of page navigations.",
			Buckets: prometheus.DefBuckets,
		},
	)
	scrolls := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crawler_scrolls_total",
			Help: "Scroll-to-bottom actions on the listing page.",
		},
	)
	listing := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "crawler_listing_records",
			Help: "Preliminary records extracted from the listing page.",
		},
	)
	ruleHits := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_selector_rule_hits_total",
			Help: "Winning selector rules by field.",
		},
		[]string{"field", "rule"},
	)
	details := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_detail_visits_total",
			Help: "Detail page enrichments by outcome.",
		},
		[]string{"outcome"},
	)
	popups := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crawler_popups_dismissed_total",
			Help: "Overlay elements clicked away.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_errors_total",
			Help: "Recovered crawler errors by stage.",
		},
		[]string{"stage"},
	)

	registry.MustRegister(navigations, navigationSeconds, scrolls, listing, ruleHits, details, popups, errorsTotal)

	return &Metrics{
		Registry:          registry,
		NavigationsTotal:  navigations,
		NavigationSeconds: navigationSeconds,
		ScrollsTotal:      scrolls,
		ListingRecords:    listing,
		RuleHitsTotal:     ruleHits,
		DetailsTotal:      details,
		PopupsTotal:       popups,
		ErrorsTotal:       errorsTotal,
	}
}

func (m *Metrics) ObserveNavigation(page string, d time.Duration) {
	if m == nil {
		return
	}
	m.NavigationsTotal.WithLabelValues(page).Inc()
	m.NavigationSeconds.Observe(d.Seconds())
}

func (m *Metrics) IncScroll() {
	if m == nil {
		return
	}
	m.ScrollsTotal.Inc()
}

func (m *Metrics) SetListingRecords(n int) {
	if m == nil {
		return
	}
	m.ListingRecords.Set(float64(n))
}

// IncRuleHit counts the rule that won resolution for field.
func (m *Metrics) IncRuleHit(field, rule string) {
	if m == nil {
		return
	}
	m.RuleHitsTotal.WithLabelValues(field, rule).Inc()
}

func (m *Metrics) IncDetail(outcome string) {
	if m == nil {
		return
	}
	m.DetailsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncPopup() {
	if m == nil {
		return
	}
	m.PopupsTotal.Inc()
}

func (m *Metrics) IncError(stage string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(stage).Inc()
}
