// Package agents implements the multi-agent orchestration layer: a planner
// that converses with an LLM and dispatches tool calls to sub-agents (graph
// query, literature search, entity template), plus the format agent that
// assembles the final answer from accumulated Cypher queries.
package agents
