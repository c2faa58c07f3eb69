// Package schema models the graph database schema consumed by query
// generation and validation: node and edge type definitions, optional
// per-property value constraints, and free-text hints for prompting.
//
// The schema is loaded once and wrapped in an immutable Context that is
// passed by handle into the validator and the refinement controller.
// Contexts are safe for concurrent use; they hold no mutable state.
package schema
