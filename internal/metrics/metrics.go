// Package metrics exposes Prometheus collectors for the pipeline service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pipelineItemsScrapedTotal  *prometheus.CounterVec
	pipelineItemsRejectedTotal *prometheus.CounterVec
	pipelineItemsSelectedTotal prometheus.Counter
	pipelineJobsTotal          *prometheus.CounterVec
	pipelineCostUnitsTotal     prometheus.Counter
	pipelineQuotaRemaining     prometheus.Gauge
	pipelineRunDurationSeconds *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		pipelineItemsScrapedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_items_scraped_total",
				Help: "Total number of items stored, labeled by source and discovery method.",
			},
			[]string{"source", "method"},
		)

		pipelineItemsRejectedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_items_rejected_total",
				Help: "Total number of candidate items rejected, labeled by reason.",
			},
			[]string{"reason"},
		)

		pipelineItemsSelectedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "pipeline_items_selected_total",
				Help: "Total number of items selected for dispatch.",
			},
		)

		pipelineJobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_jobs_total",
				Help: "Total number of submission jobs, labeled by status.",
			},
			[]string{"status"},
		)

		pipelineCostUnitsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "pipeline_cost_units_total",
				Help: "Total acquisition cost units consumed.",
			},
		)

		pipelineQuotaRemaining = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "pipeline_quota_remaining",
				Help: "Remaining daily submission quota observed at the last check.",
			},
		)

		pipelineRunDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipeline_run_duration_seconds",
				Help:    "Histogram of pipeline run durations, labeled by phase.",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"phase"},
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
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveItemScraped increments the stored-item counter.
func ObserveItemScraped(source, method string) {
	pipelineItemsScrapedTotal.WithLabelValues(SanitizeSite(source), method).Inc()
}

// ObserveItemRejected increments the rejection counter for the given reason.
func ObserveItemRejected(reason string) {
	pipelineItemsRejectedTotal.WithLabelValues(reason).Inc()
}

// ObserveItemsSelected adds to the selected-item counter.
func ObserveItemsSelected(n int) {
	pipelineItemsSelectedTotal.Add(float64(n))
}

// ObserveJob increments the job counter for the given status.
func ObserveJob(status string) {
	pipelineJobsTotal.WithLabelValues(status).Inc()
}

// ObserveCostUnits adds to the acquisition cost counter.
func ObserveCostUnits(n int) {
	if n > 0 {
		pipelineCostUnitsTotal.Add(float64(n))
	}
}

// SetQuotaRemaining records the last observed daily quota headroom.
func SetQuotaRemaining(n int) {
	pipelineQuotaRemaining.Set(float64(n))
}

// ObserveRunDuration records a pipeline phase duration.
func ObserveRunDuration(phase string, duration time.Duration) {
	pipelineRunDurationSeconds.WithLabelValues(phase).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
