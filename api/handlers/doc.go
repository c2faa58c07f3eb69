// Package handlers contains the HTTP handlers for the question answering
// API along with the shared response envelope and error mapping.
package handlers
