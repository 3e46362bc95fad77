package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"photo-rater/internal/metrics"
)

// MetricsConfig holds configuration for the metrics middleware.
type MetricsConfig struct {
	// SkipPaths are path prefixes that are not recorded.
	SkipPaths []string
}

// DefaultMetricsConfig skips the scrape endpoint and health probes.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		SkipPaths: []string{"/metrics", "/health", "/healthz", "/livez", "/readyz"},
	}
}

// Metrics records request counts, latency and response size per route.
func Metrics(config MetricsConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range config.SkipPaths {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			metrics.HTTPRequestsInFlight.Inc()
			defer metrics.HTTPRequestsInFlight.Dec()

			start := time.Now()
			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			route := normalizePath(r.URL.Path)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
			metrics.HTTPResponseBytes.WithLabelValues(route).Observe(float64(wrapped.bytesWritten))
		})
	}
}

// knownPaths are the fixed routes kept as their own label.
var knownPaths = map[string]bool{
	"/photo_ratings_login": true,
	"/get_unrated_images":  true,
	"/rate_image":          true,
	"/api/stats":           true,
	"/api/history":         true,
	"/version":             true,
}

// normalizePath maps a request path to a bounded route label. Image paths
// collapse to their route template and anything unknown becomes "other".
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, imagePathPrefix):
		return "/images/{partition}/{filename}"
	case knownPaths[path]:
		return path
	default:
		return "other"
	}
}
