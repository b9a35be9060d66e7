package preview

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tverberg/blogsmith/internal/site"
)

// Metrics collects rebuild metrics for the dev server's /metrics endpoint.
type Metrics struct {
	registry *prom.Registry

	rebuildDuration prom.Histogram
	rebuildOutcome  *prom.CounterVec
	publishedPosts  prom.Gauge
}

// NewMetrics constructs and registers the dev server metrics.
func NewMetrics() *Metrics {
	reg := prom.NewRegistry()
	m := &Metrics{
		registry: reg,
		rebuildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "blogsmith",
			Name:      "rebuild_duration_seconds",
			Help:      "Total rebuild duration",
			Buckets:   prom.DefBuckets,
		}),
		rebuildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "blogsmith",
			Name:      "rebuild_outcomes_total",
			Help:      "Rebuild outcomes by final status",
		}, []string{"outcome"}),
		publishedPosts: prom.NewGauge(prom.GaugeOpts{
			Namespace: "blogsmith",
			Name:      "published_posts",
			Help:      "Number of posts in the last successful build",
		}),
	}
	reg.MustRegister(m.rebuildDuration, m.rebuildOutcome, m.publishedPosts)
	return m
}

// RecordBuild records the outcome of one rebuild.
func (m *Metrics) RecordBuild(report *site.BuildReport) {
	if m == nil || report == nil {
		return
	}
	m.rebuildDuration.Observe(report.Elapsed().Seconds())
	m.rebuildOutcome.WithLabelValues(string(report.Outcome)).Inc()
	if report.Outcome == site.OutcomeSuccess || report.Outcome == site.OutcomeWarning {
		m.publishedPosts.Set(float64(report.Posts))
	}
}

// Handler serves the registry in OpenMetrics format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
