// Package metrics exposes the Prometheus metrics of the catalog packages.
// Metrics are defined with promauto next to the code that updates them
// (catalog, cache, ratelimit, session); this package serves them and keeps
// the catalogue below.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer the catalog packages register with.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer Handler reads from.
var Gatherer prometheus.Gatherer = prometheus.DefaultGatherer

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Names lists every metric family the catalog packages define.
var Names = []string{
	// pkg/catalog
	"catalog_requests_total",
	"catalog_request_duration_seconds",
	"catalog_errors_total",
	"catalog_retries_total",
	"catalog_retry_backoff_seconds",
	"catalog_retry_exhausted_total",

	// pkg/cache
	"catalog_cache_hits_total",
	"catalog_cache_misses_total",
	"catalog_cache_size_bytes",
	"catalog_conditional_requests_total",
	"catalog_304_responses_total",
	"catalog_cache_errors_total",

	// pkg/ratelimit
	"catalog_rate_limit_remaining",
	"catalog_rate_limit_blocks_total",
	"catalog_rate_limit_throttles_total",

	// pkg/session
	"catalog_bulk_walks_total",
	"catalog_bulk_pages_consumed_total",
	"catalog_selected_records",
}

// Metrics Documentation
//
// Request Metrics (pkg/catalog):
//   - catalog_requests_total{endpoint, status} (Counter): requests by endpoint and
//     outcome (HTTP status, "cache", "stale", "rate_limited", "network_error")
//   - catalog_request_duration_seconds{endpoint} (Histogram)
//   - catalog_errors_total{class} (Counter): client, server, rate_limit, network
//   - catalog_retries_total{error_class}, catalog_retry_backoff_seconds{error_class},
//     catalog_retry_exhausted_total{error_class}
//
// Cache Metrics (pkg/cache):
//   - catalog_cache_hits_total{layer}, catalog_cache_misses_total
//   - catalog_cache_size_bytes{layer} (Gauge)
//   - catalog_conditional_requests_total, catalog_304_responses_total
//   - catalog_cache_errors_total{operation}
//
// Rate Limit Metrics (pkg/ratelimit):
//   - catalog_rate_limit_remaining (Gauge)
//   - catalog_rate_limit_blocks_total, catalog_rate_limit_throttles_total
//
// Selection Metrics (pkg/session):
//   - catalog_bulk_walks_total{outcome}: satisfied, truncated, stalled, error
//   - catalog_bulk_pages_consumed_total
//   - catalog_selected_records (Gauge): across open sessions
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(catalog_cache_hits_total[5m])) /
//   (sum(rate(catalog_cache_hits_total[5m])) + sum(rate(catalog_cache_misses_total[5m])))
//
//   # Revalidation share
//   rate(catalog_304_responses_total[5m]) / rate(catalog_conditional_requests_total[5m])
//
//   # Bulk walks that ran out of catalog
//   rate(catalog_bulk_walks_total{outcome="truncated"}[1h])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(catalog_request_duration_seconds_bucket[5m]))
