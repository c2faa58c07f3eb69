// Package validate scores generated Cypher queries against the graph
// schema before they are allowed anywhere near the database.
//
// Validation is a pure function of the query text and the schema context:
// the same inputs always produce the same report. Structural findings are
// collected from a parsed form of the query rather than from the raw text,
// so nested property maps and odd whitespace do not confuse the checks.
// Checks that depend on schema data degrade to a silent pass when that
// data is unavailable; a half-loaded schema must not block generation.
package validate
