// Package middleware provides HTTP middleware for access logging, Prometheus
// request metrics, and gzip response compression.
package middleware
