// Package metrics exposes the Prometheus metrics of the Twitter client.
// The metrics themselves are defined in their packages (client, pagination,
// cache, ratelimit) and registered with the default registry via promauto.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Request metrics (pkg/client):
//   - twitter_requests_total{resource, family, status} (Counter): calls by HTTP
//     status, plus "cached" and "network_error"
//   - twitter_request_duration_seconds{resource} (Histogram): REST round trip,
//     or time until headers for streams
//   - twitter_errors_total{class} (Counter): client, server, rate_limit,
//     network, parse, unknown_endpoint
//   - twitter_stream_lines_total{kind} (Counter): message, keep_alive, malformed
//
// Pager metrics (pkg/pagination):
//   - twitter_pages_total{resource} (Counter): pages fetched
//
// Rate limit metrics (pkg/ratelimit):
//   - twitter_rate_limit_remaining{resource} (Gauge): last reported remaining calls
//   - twitter_rate_limit_exhausted_total{resource} (Counter): responses with no calls left
//
// Cache metrics (pkg/cache):
//   - twitter_cache_hits_total (Counter)
//   - twitter_cache_misses_total (Counter)
//   - twitter_cache_errors_total{operation} (Counter)
//
// Example queries:
//
//	# Streaming keep-alive share
//	rate(twitter_stream_lines_total{kind="keep_alive"}[5m]) / rate(twitter_stream_lines_total[5m])
//
//	# Resources close to their window limit
//	twitter_rate_limit_remaining < 10
//
//	# P95 REST latency
//	histogram_quantile(0.95, rate(twitter_request_duration_seconds_bucket[5m]))
