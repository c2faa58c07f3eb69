// Package llm provides the chat-completion client used to generate Cypher
// queries. It speaks the OpenAI-compatible wire protocol, which covers the
// hosted providers as well as local inference servers, and layers
// client-side rate limiting and retry with exponential backoff on top.
package llm
