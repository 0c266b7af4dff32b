// Package observability provides structured logging and Prometheus metrics
// for the catalog inventory API.
package observability
