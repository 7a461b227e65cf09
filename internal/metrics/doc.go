// Package metrics defines the Prometheus metrics exported by the gallery
// service.
//
// Metrics are registered with promauto at package load. InitializeMetrics
// pre-populates known label combinations so dashboards see every series
// from the first scrape rather than only after the first event.
package metrics
