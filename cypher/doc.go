// Package cypher provides a small, fault-tolerant tokenizer and parser for
// graph pattern-matching queries. It produces a typed AST (match clauses,
// node and relationship patterns with direction, WHERE predicates, WITH
// bindings, RETURN projection) that the validator queries structurally
// instead of scraping the query text with regular expressions.
//
// The parser never fails: malformed input degrades to a partial AST with
// whatever could be extracted. Callers that cannot find the structure they
// need treat the corresponding check as "no information", not as an error.
package cypher
