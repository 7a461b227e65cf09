package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"gen-gallery/internal/metrics"
)

type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// MetricsConfig lists paths excluded from request metrics.
type MetricsConfig struct {
	SkipPaths []string
}

func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		SkipPaths: []string{"/metrics", "/health", "/healthz", "/livez", "/readyz"},
	}
}

// Metrics records Prometheus request counters and latency histograms.
func Metrics(config MetricsConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, path := range config.SkipPaths {
				if strings.HasPrefix(r.URL.Path, path) {
					next.ServeHTTP(w, r)
					return
				}
			}

			metrics.HTTPRequestsInFlight.Inc()
			defer metrics.HTTPRequestsInFlight.Dec()

			wrapped := &metricsResponseWriter{w, http.StatusOK}
			start := time.Now()
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			path := normalizePath(r.URL.Path)
			status := strconv.Itoa(wrapped.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
		})
	}
}

// normalizePath collapses identifier segments so blob tokens and artifact ids
// do not explode label cardinality.
func normalizePath(path string) string {
	for _, prefix := range []string{"/api/blob/", "/api/image/", "/api/generate/", "/api/folders/"} {
		if rest, ok := strings.CutPrefix(path, prefix); ok && rest != "" {
			if idx := strings.Index(rest, "/"); idx != -1 {
				return prefix + "{id}" + rest[idx:]
			}
			return prefix + "{id}"
		}
	}
	return path
}
