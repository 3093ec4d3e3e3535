// Package metrics exposes Prometheus collectors for the crawl pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	crawlerCrawlsTotal          *prometheus.CounterVec
	crawlerCrawlDurationSeconds *prometheus.HistogramVec
	crawlerActiveCrawls         prometheus.Gauge
	crawlerConversionsTotal     *prometheus.CounterVec
	watcherRecordsTotal         *prometheus.CounterVec
	httpRequestsTotal           *prometheus.CounterVec
	httpRequestDurationSeconds  *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		crawlerCrawlsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_crawls_total",
				Help: "Total number of crawl executions, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		crawlerCrawlDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crawler_crawl_duration_seconds",
				Help:    "Histogram of crawl durations, labeled by outcome.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"outcome"},
		)

		crawlerActiveCrawls = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "crawler_active_crawls",
				Help: "Number of crawls currently in flight.",
			},
		)

		crawlerConversionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_conversions_total",
				Help: "Total number of markdown conversions, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		watcherRecordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watcher_records_total",
				Help: "Total change-capture records handled, labeled by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler exposing the Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// PipelineCollector feeds pipeline outcomes into the crawler collectors.
type PipelineCollector struct{}

// NewPipelineCollector initializes the collectors and returns a sink for the
// orchestrator.
func NewPipelineCollector() PipelineCollector {
	Init()
	return PipelineCollector{}
}

// CrawlStarted marks one crawl in flight.
func (PipelineCollector) CrawlStarted() {
	crawlerActiveCrawls.Inc()
}

// CrawlCompleted records the outcome and duration of one crawl.
func (PipelineCollector) CrawlCompleted(outcome string, duration time.Duration) {
	crawlerActiveCrawls.Dec()
	crawlerCrawlsTotal.WithLabelValues(outcome).Inc()
	crawlerCrawlDurationSeconds.WithLabelValues(outcome).Observe(duration.Seconds())
}

// ConversionCompleted records the outcome of one markdown conversion.
func (PipelineCollector) ConversionCompleted(outcome string) {
	crawlerConversionsTotal.WithLabelValues(outcome).Inc()
}

// WatcherCollector feeds change-capture outcomes into the watcher collectors.
type WatcherCollector struct{}

// NewWatcherCollector initializes the collectors and returns a sink for the
// watcher.
func NewWatcherCollector() WatcherCollector {
	Init()
	return WatcherCollector{}
}

// RecordProcessed counts a record that produced a published event.
func (WatcherCollector) RecordProcessed(op string) {
	watcherRecordsTotal.WithLabelValues(op, "processed").Inc()
}

// RecordSkipped counts a record that was classified away.
func (WatcherCollector) RecordSkipped(op string) {
	watcherRecordsTotal.WithLabelValues(op, "skipped").Inc()
}

// RecordFailed counts a record whose event failed to publish.
func (WatcherCollector) RecordFailed(op string) {
	watcherRecordsTotal.WithLabelValues(op, "failed").Inc()
}
