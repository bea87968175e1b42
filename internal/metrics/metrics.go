// Package metrics exposes Prometheus collectors for the crawler.
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

// Page outcomes recorded by ObservePage.
const (
	OutcomePersisted      = "persisted"
	OutcomeSkippedVisited = "skipped_visited"
	OutcomeSkippedPattern = "skipped_pattern"
	OutcomeFetchFailed    = "fetch_failed"
)

var (
	crawlerPagesTotal          *prometheus.CounterVec
	crawlerBytesTotal          *prometheus.CounterVec
	crawlerFetchAttemptsTotal  *prometheus.CounterVec
	crawlerFetchRetriesTotal   prometheus.Counter
	crawlerFetchDuration       prometheus.Histogram
	crawlerDecodeFallbacks     *prometheus.CounterVec
	crawlerLinksEnqueuedTotal  prometheus.Counter
	crawlerPersistErrorsTotal  prometheus.Counter
	crawlerActiveWorkers       prometheus.Gauge
	crawlerFrontierPending     prometheus.Gauge
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		crawlerPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_pages_total",
				Help: "Total number of frontier entries processed, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)

		crawlerBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_bytes_total",
				Help: "Total number of page bytes persisted, labeled by site.",
			},
			[]string{"site"},
		)

		crawlerFetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_fetch_attempts_total",
				Help: "Total number of HTTP GET attempts, labeled by status class or error.",
			},
			[]string{"class"},
		)

		crawlerFetchRetriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_fetch_retries_total",
				Help: "Total number of fetch attempts that were retried after a transient failure.",
			},
		)

		crawlerFetchDuration = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crawler_fetch_duration_seconds",
				Help:    "Histogram of fetch latencies including retries.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		)

		crawlerDecodeFallbacks = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_decode_fallbacks_total",
				Help: "Total number of bodies kept as raw bytes, labeled by reason.",
			},
			[]string{"reason"},
		)

		crawlerLinksEnqueuedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_links_enqueued_total",
				Help: "Total number of discovered links pushed to the frontier.",
			},
		)

		crawlerPersistErrorsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_persist_errors_total",
				Help: "Total number of pages that could not be written to disk.",
			},
		)

		crawlerActiveWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "crawler_active_workers",
				Help: "Number of workers currently processing an entry.",
			},
		)

		crawlerFrontierPending = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "crawler_frontier_pending",
				Help: "Number of entries waiting in the frontier.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests served, labeled by method and code.",
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

// ObservePage records the outcome of one frontier entry.
func ObservePage(site, outcome string) {
	Init()
	crawlerPagesTotal.WithLabelValues(SanitizeSite(site), outcome).Inc()
}

// ObservePersisted records a page written to disk.
func ObservePersisted(site string, bytesWritten int) {
	Init()
	sanitizedSite := SanitizeSite(site)
	crawlerPagesTotal.WithLabelValues(sanitizedSite, OutcomePersisted).Inc()
	if bytesWritten > 0 {
		crawlerBytesTotal.WithLabelValues(sanitizedSite).Add(float64(bytesWritten))
	}
}

// ObserveFetchAttempt records a single GET attempt. Use code 0 for transport errors.
func ObserveFetchAttempt(code int) {
	Init()
	crawlerFetchAttemptsTotal.WithLabelValues(statusClass(code)).Inc()
}

// ObserveFetchRetry records a retried attempt.
func ObserveFetchRetry() {
	Init()
	crawlerFetchRetriesTotal.Inc()
}

// ObserveFetchDuration records the latency of a whole fetch, retries included.
func ObserveFetchDuration(duration time.Duration) {
	Init()
	crawlerFetchDuration.Observe(duration.Seconds())
}

// ObserveDecodeFallback records a body returned untranscoded.
func ObserveDecodeFallback(reason string) {
	Init()
	crawlerDecodeFallbacks.WithLabelValues(reason).Inc()
}

// AddLinksEnqueued adds n links pushed to the frontier.
func AddLinksEnqueued(n int) {
	Init()
	if n > 0 {
		crawlerLinksEnqueuedTotal.Add(float64(n))
	}
}

// ObservePersistError records a failed page write.
func ObservePersistError() {
	Init()
	crawlerPersistErrorsTotal.Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	Init()
	crawlerActiveWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	Init()
	crawlerActiveWorkers.Dec()
}

// SetFrontierPending sets the frontier backlog gauge.
func SetFrontierPending(n int) {
	Init()
	crawlerFrontierPending.Set(float64(n))
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

func statusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	case code == 0:
		return "error"
	default:
		return "other"
	}
}
