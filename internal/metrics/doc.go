// Package metrics collects Prometheus metrics for validation scoring, the
// refinement loop, LLM traffic, graph gateway queries, and the HTTP API.
// This package is internal and should not be imported by external projects.
package metrics
