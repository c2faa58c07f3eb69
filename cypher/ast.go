package cypher

// Direction is the direction of a relationship pattern.
type Direction int

const (
	// DirectionNone is an undirected pattern: (a)-[r]-(b).
	DirectionNone Direction = iota
	// DirectionOut points left to right: (a)-[r]->(b).
	DirectionOut
	// DirectionIn points right to left: (a)<-[r]-(b).
	DirectionIn
)

// NodePattern is a parenthesized node pattern binding an optional variable
// with an optional type label.
type NodePattern struct {
	Variable string
	Label    string
}

// RelPattern is a bracketed relationship pattern between two node patterns.
type RelPattern struct {
	Variable  string
	Type      string
	Direction Direction
	// Empty marks a bare "[]" with no content at all.
	Empty bool
	// Left and Right are the adjacent node patterns as written, left to
	// right, regardless of arrow direction. Either may be nil when the
	// pattern is malformed.
	Left  *NodePattern
	Right *NodePattern
}

// Source returns the node the relationship leaves and the node it enters,
// resolving the arrow direction. ok is false for undirected patterns.
func (r *RelPattern) Source() (src, dst *NodePattern, ok bool) {
	switch r.Direction {
	case DirectionOut:
		return r.Left, r.Right, true
	case DirectionIn:
		return r.Right, r.Left, true
	default:
		return nil, nil, false
	}
}

// PathPattern is one comma-separated pattern inside a MATCH clause.
type PathPattern struct {
	Nodes []*NodePattern
	Rels  []*RelPattern
}

// MatchClause is a MATCH (or OPTIONAL MATCH) clause with its patterns and
// an optional WHERE predicate.
type MatchClause struct {
	Optional bool
	Patterns []*PathPattern
	// HasWhere reports whether a WHERE clause followed this MATCH before
	// the next clause boundary.
	HasWhere bool
}

// Vars returns every variable bound by the clause's patterns.
func (m *MatchClause) Vars() []string {
	var vars []string
	for _, p := range m.Patterns {
		for _, n := range p.Nodes {
			if n.Variable != "" {
				vars = append(vars, n.Variable)
			}
		}
		for _, r := range p.Rels {
			if r.Variable != "" {
				vars = append(vars, r.Variable)
			}
		}
	}
	return vars
}

// CollectCall is one collect(...) aggregation expression.
type CollectCall struct {
	// Distinct reports whether the call requests duplicate elimination.
	Distinct bool
	// Args lists the bare identifier arguments of the call.
	Args []string
	// Raw is the call text as written.
	Raw string
}

// Term is one additive term of a WITH binding expression: a collect call,
// a bare identifier, or an empty list literal.
type Term struct {
	Collect   *CollectCall
	Ident     string
	EmptyList bool
}

// Binding is one "expr AS name" item of a WITH clause.
type Binding struct {
	Name  string
	Terms []Term
	// Raw is the expression text before AS.
	Raw string
}

// HasCollect reports whether any term of the binding is a collect call.
func (b *Binding) HasCollect() bool {
	for _, t := range b.Terms {
		if t.Collect != nil {
			return true
		}
	}
	return false
}

// IsEmptyList reports whether the binding is exactly the empty list
// literal "[]".
func (b *Binding) IsEmptyList() bool {
	return len(b.Terms) == 1 && b.Terms[0].EmptyList
}

// WithClause is a WITH clause with its bindings.
type WithClause struct {
	Bindings []*Binding
	// StrayDistinct marks a DISTINCT modifier that appears outside any
	// collect call, i.e. applied to the whole clause.
	StrayDistinct bool
}

// ReturnClause is the final projection.
type ReturnClause struct {
	Items []string
}

// PropertyAccess is one "variable.property" occurrence.
type PropertyAccess struct {
	Variable string
	Property string
}

// PropertyComparison is one "variable.property = 'literal'" occurrence.
type PropertyComparison struct {
	Variable string
	Property string
	Value    string
}

// Query is the parsed form of one query string.
type Query struct {
	Matches []*MatchClause
	// Withs lists every WITH clause in order. The aggregation checks
	// consider all of them between the first WITH and the final RETURN.
	Withs  []*WithClause
	Return *ReturnClause

	// Collects lists every collect call found anywhere in the query.
	Collects []*CollectCall
	// Accesses lists every variable.property access found anywhere.
	Accesses []PropertyAccess
	// Comparisons lists every literal-valued equality comparison.
	Comparisons []PropertyComparison

	// EndsWithNodesEdges reports whether, after whitespace normalization,
	// the query ends with "RETURN nodes, edges" plus an optional
	// statement terminator.
	EndsWithNodesEdges bool
}

// NodeLabels returns the sorted set of node type labels referenced by the
// query's patterns.
func (q *Query) NodeLabels() []string {
	set := make(map[string]struct{})
	for _, m := range q.Matches {
		for _, p := range m.Patterns {
			for _, n := range p.Nodes {
				if n.Label != "" {
					set[n.Label] = struct{}{}
				}
			}
		}
	}
	return sortedSet(set)
}

// RelationshipTypes returns the sorted set of relationship type labels
// referenced by the query's patterns.
func (q *Query) RelationshipTypes() []string {
	set := make(map[string]struct{})
	for _, m := range q.Matches {
		for _, p := range m.Patterns {
			for _, r := range p.Rels {
				if r.Type != "" {
					set[r.Type] = struct{}{}
				}
			}
		}
	}
	return sortedSet(set)
}

// BoundVars returns the set of variables bound by any pattern clause.
func (q *Query) BoundVars() map[string]struct{} {
	bound := make(map[string]struct{})
	for _, m := range q.Matches {
		for _, v := range m.Vars() {
			bound[v] = struct{}{}
		}
	}
	return bound
}

// Rels returns every relationship pattern across all match clauses.
func (q *Query) Rels() []*RelPattern {
	var rels []*RelPattern
	for _, m := range q.Matches {
		for _, p := range m.Patterns {
			rels = append(rels, p.Rels...)
		}
	}
	return rels
}
