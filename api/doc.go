// Package api assembles the HTTP surface of the service: the question
// answering endpoint, health and readiness probes, run statistics, and the
// middleware chain (request IDs, request metrics, optional JWT auth).
package api
