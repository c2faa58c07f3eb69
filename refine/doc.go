// Package refine drives the bounded generate-validate-regenerate loop
// that turns an LLM's first Cypher attempt into a schema-conformant query.
//
// The controller owns no retry logic for the generator itself: a failing
// generator call aborts the run and surfaces to the caller. The loop only
// retries on low validation score, which is a different concern entirely.
package refine
