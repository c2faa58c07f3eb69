// Command cypherflow runs the question answering service: the HTTP API, the
// planner loop, and the generate-validate-refine Cypher pipeline behind it.
package main
