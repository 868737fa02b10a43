package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the crawler. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Registry             *prometheus.Registry
	PagesLoadedTotal     *prometheus.CounterVec
	PageLoadDuration     *prometheus.HistogramVec
	ProductsScrapedTotal *prometheus.CounterVec
	ProductsSavedTotal   *prometheus.CounterVec
	ErrorsTotal          *prometheus.CounterVec
	PersistOutcomesTotal *prometheus.CounterVec
	FrontierPending      prometheus.Gauge
}

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	pagesLoaded := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_pages_loaded_total",
			Help: "Total pages rendered by kind.",
		},
		[]string{"kind"},
	)
	pageLoadDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crawler_page_load_duration_seconds",
			Help:    "Time to navigate and render a page.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"kind"},
	)
	scraped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_products_scraped_total",
			Help: "Total products extracted and normalized.",
		},
		[]string{"brand"},
	)
	saved := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_products_saved_total",
			Help: "Total products confirmed by the persistence sink.",
		},
		[]string{"brand"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_errors_total",
			Help: "Total crawl errors by kind.",
		},
		[]string{"kind"},
	)
	outcomes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_persist_outcomes_total",
			Help: "Persistence results by outcome.",
		},
		[]string{"outcome"},
	)
	pending := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "crawler_frontier_pending",
			Help: "Entries waiting in the frontier.",
		},
	)

	registry.MustRegister(pagesLoaded, pageLoadDuration, scraped, saved, errorsTotal, outcomes, pending)

	return &Metrics{
		Registry:             registry,
		PagesLoadedTotal:     pagesLoaded,
		PageLoadDuration:     pageLoadDuration,
		ProductsScrapedTotal: scraped,
		ProductsSavedTotal:   saved,
		ErrorsTotal:          errorsTotal,
		PersistOutcomesTotal: outcomes,
		FrontierPending:      pending,
	}
}

// ObservePage records one rendered page and its load time.
func (m *Metrics) ObservePage(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.PagesLoadedTotal.WithLabelValues(kind).Inc()
	m.PageLoadDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (m *Metrics) IncScraped(brand string) {
	if m == nil {
		return
	}
	m.ProductsScrapedTotal.WithLabelValues(brand).Inc()
}

func (m *Metrics) IncSaved(brand string) {
	if m == nil {
		return
	}
	m.ProductsSavedTotal.WithLabelValues(brand).Inc()
}

// IncError increments the errors counter for a kind label.
func (m *Metrics) IncError(kind string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncOutcome(outcome string) {
	if m == nil {
		return
	}
	m.PersistOutcomesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.FrontierPending.Set(float64(n))
}
