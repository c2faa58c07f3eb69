// Package types defines the shared data model for cypherflow: validation
// reports, refinement attempts and results, and the structured error type
// used across the framework.
package types
