package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	Registry            *prometheus.Registry
	SearchRequestsTotal *prometheus.CounterVec
	SearchDuration      prometheus.Histogram
	ProductsTotal       prometheus.Counter
	ExtractionFailures  prometheus.Counter
	ExtractionDuration  prometheus.Histogram
	CategoriesTotal     *prometheus.CounterVec
	ErrorsTotal         *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	searchRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_search_requests_total",
			Help: "Total search API requests by variant and outcome.",
		},
		[]string{"variant", "outcome"},
	)
	searchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_search_duration_seconds",
			Help:    "Search API request latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	products := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_products_extracted_total",
			Help: "Total number of product records extracted from detail pages.",
		},
	)
	extractionFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_extraction_failures_total",
			Help: "Total number of detail pages that could not be extracted.",
		},
	)
	extractionDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_extraction_duration_seconds",
			Help:    "Time spent extracting a single detail page.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
	)
	categories := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_categories_total",
			Help: "Categories processed by outcome.",
		},
		[]string{"outcome"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Total number of scraper errors by type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(searchRequests, searchDuration, products, extractionFailures, extractionDuration, categories, errorsTotal)

	return &Metrics{
		Registry:            registry,
		SearchRequestsTotal: searchRequests,
		SearchDuration:      searchDuration,
		ProductsTotal:       products,
		ExtractionFailures:  extractionFailures,
		ExtractionDuration:  extractionDuration,
		CategoriesTotal:     categories,
		ErrorsTotal:         errorsTotal,
	}
}

// IncSearch counts a search request for a variant.
func (m *Metrics) IncSearch(variant, outcome string) {
	if m == nil {
		return
	}
	if variant == "" {
		variant = "none"
	}
	m.SearchRequestsTotal.WithLabelValues(variant, outcome).Inc()
}

// ObserveSearch records a search request duration.
func (m *Metrics) ObserveSearch(d time.Duration) {
	if m == nil {
		return
	}
	m.SearchDuration.Observe(d.Seconds())
}

// ObserveExtraction records how long a detail page took.
func (m *Metrics) ObserveExtraction(d time.Duration) {
	if m == nil {
		return
	}
	m.ExtractionDuration.Observe(d.Seconds())
}

// IncProducts increments the extracted products counter.
func (m *Metrics) IncProducts() {
	if m == nil {
		return
	}
	m.ProductsTotal.Inc()
}

// IncExtractionFailure increments the failed extraction counter.
func (m *Metrics) IncExtractionFailure() {
	if m == nil {
		return
	}
	m.ExtractionFailures.Inc()
}

// IncCategory counts a finished category.
func (m *Metrics) IncCategory(outcome string) {
	if m == nil {
		return
	}
	m.CategoriesTotal.WithLabelValues(outcome).Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
