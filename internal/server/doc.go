// Package server manages the HTTP server lifecycle: non-blocking start,
// graceful shutdown bounded by a timeout, SIGINT/SIGTERM handling, and
// asynchronous error propagation through Errors().
package server
