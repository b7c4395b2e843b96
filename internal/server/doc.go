// Package server exposes a small HTTP API for monitoring a running recorder:
// health, sanitized configuration and Prometheus metrics.
package server
