// Package metrics exposes Prometheus instruments for the ingestion pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "newsdesk"

// Article outcomes recorded per processed source article.
const (
	OutcomeInserted      = "inserted"
	OutcomeDuplicate     = "duplicate"
	OutcomeRewriteFailed = "rewrite_failed"
	OutcomeError         = "error"
)

// Metrics holds the pipeline instruments. A nil *Metrics is a no-op.
type Metrics struct {
	RunsTotal          *prometheus.CounterVec
	RunDurationSeconds prometheus.Histogram
	RunInProgress      prometheus.Gauge
	ArticlesTotal      *prometheus.CounterVec
	FetchedTotal       *prometheus.CounterVec
}

// New creates and registers all instruments on reg.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Pipeline runs by final status",
		}, []string{"status"}),
		RunDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Wall time of a pipeline run",
			Buckets:   []float64{30, 60, 120, 300, 600, 1200, 1800, 3600, 7200},
		}),
		RunInProgress: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "run_in_progress",
			Help:      "1 while a run is executing",
		}),
		ArticlesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "articles_total",
			Help:      "Source articles handled, by category and outcome",
		}, []string{"category", "outcome"}),
		FetchedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetcher",
			Name:      "articles_fetched_total",
			Help:      "Source articles returned by the search service per category",
		}, []string{"category"}),
	}
}

// RunStarted flips the in-progress gauge.
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.RunInProgress.Set(1)
}

// RunFinished records the final status and duration.
func (m *Metrics) RunFinished(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RunInProgress.Set(0)
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDurationSeconds.Observe(elapsed.Seconds())
}

// Fetched counts source articles pulled for category.
func (m *Metrics) Fetched(category string, n int) {
	if m == nil {
		return
	}
	m.FetchedTotal.WithLabelValues(category).Add(float64(n))
}

// Article counts one processed source article.
func (m *Metrics) Article(category, outcome string) {
	if m == nil {
		return
	}
	m.ArticlesTotal.WithLabelValues(category, outcome).Inc()
}
