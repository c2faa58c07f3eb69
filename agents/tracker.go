package agents

import (
	"strings"
	"sync"
)

// TrackedQuery records one Cypher query executed during a planner round and
// whether the gateway returned any data for it.
type TrackedQuery struct {
	Query        string `json:"query"`
	ReturnedData bool   `json:"returned_data"`
}

// QueryTracker accumulates the Cypher queries executed while answering a
// single question. Sub-agents add to it concurrently during fan-out; the
// format agent reads it when the planner hands the answer back.
type QueryTracker struct {
	mu      sync.Mutex
	queries []TrackedQuery
}

// NewQueryTracker creates an empty tracker.
func NewQueryTracker() *QueryTracker {
	return &QueryTracker{}
}

// Reset clears the tracker for a new question.
func (t *QueryTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queries = nil
}

// Add records a query. Blank queries are ignored.
func (t *QueryTracker) Add(query string, returnedData bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queries = append(t.queries, TrackedQuery{Query: query, ReturnedData: returnedData})
}

// All returns every recorded query in execution order.
func (t *QueryTracker) All() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.queries))
	for _, q := range t.queries {
		out = append(out, q.Query)
	}
	return out
}

// WithData returns only the queries whose result set was non-empty.
func (t *QueryTracker) WithData() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []string
	for _, q := range t.queries {
		if q.ReturnedData {
			out = append(out, q.Query)
		}
	}
	return out
}
