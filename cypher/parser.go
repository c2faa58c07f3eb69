package cypher

import (
	"sort"
	"strings"
)

// Parse tokenizes and parses a query string into a Query. It never fails:
// structure that cannot be recognized is simply absent from the result.
func Parse(input string) *Query {
	p := &parser{toks: Lex(input), src: []rune(input)}
	q := &Query{}

	p.scanCollects(q)
	p.scanAccesses(q)
	q.EndsWithNodesEdges = p.endsWithNodesEdges()
	p.parseClauses(q)

	return q
}

type parser struct {
	toks []Token
	src  []rune
	pos  int
}

func (p *parser) cur() Token  { return p.toks[p.pos] }
func (p *parser) peek() Token { return p.at(p.pos + 1) }

func (p *parser) at(i int) Token {
	if i >= len(p.toks) {
		return Token{Kind: TokenEOF}
	}
	return p.toks[i]
}

func (p *parser) eof() bool { return p.cur().Kind == TokenEOF }

// ---------------------------------------------------------------------------
// Clause structure
// ---------------------------------------------------------------------------

func (p *parser) parseClauses(q *Query) {
	p.pos = 0
	var currentMatch *MatchClause

	for !p.eof() {
		t := p.cur()
		switch {
		case t.IsKeyword("OPTIONAL") && p.peek().IsKeyword("MATCH"):
			p.pos += 2
			currentMatch = p.parseMatch(true)
			q.Matches = append(q.Matches, currentMatch)

		case t.IsKeyword("MATCH"):
			p.pos++
			currentMatch = p.parseMatch(false)
			q.Matches = append(q.Matches, currentMatch)

		case t.IsKeyword("WHERE"):
			// A WHERE between a MATCH and the next clause boundary
			// constrains that MATCH.
			if currentMatch != nil {
				currentMatch.HasWhere = true
			}
			p.pos++
			p.skipToClauseBoundary()

		case t.IsKeyword("WITH"):
			currentMatch = nil
			p.pos++
			q.Withs = append(q.Withs, p.parseWith())

		case t.IsKeyword("RETURN"):
			currentMatch = nil
			p.pos++
			q.Return = p.parseReturn()

		default:
			p.pos++
		}
	}
}

// skipToClauseBoundary advances until the next top-level clause keyword,
// skipping over bracketed sub-expressions.
func (p *parser) skipToClauseBoundary() {
	depth := 0
	for !p.eof() {
		t := p.cur()
		switch t.Kind {
		case TokenLParen, TokenLBracket, TokenLBrace:
			depth++
		case TokenRParen, TokenRBracket, TokenRBrace:
			if depth > 0 {
				depth--
			}
		}
		if depth == 0 && isClauseBoundary(t) {
			return
		}
		p.pos++
	}
}

// ---------------------------------------------------------------------------
// MATCH patterns
// ---------------------------------------------------------------------------

func (p *parser) parseMatch(optional bool) *MatchClause {
	clause := &MatchClause{Optional: optional}
	for !p.eof() {
		t := p.cur()
		if isClauseBoundary(t) {
			break
		}
		if t.Kind == TokenLParen {
			clause.Patterns = append(clause.Patterns, p.parsePath())
			continue
		}
		// Commas between paths and anything unexpected.
		p.pos++
	}
	return clause
}

// parsePath parses one node pattern followed by any number of
// relationship/node continuations.
func (p *parser) parsePath() *PathPattern {
	path := &PathPattern{}
	node := p.parseNode()
	path.Nodes = append(path.Nodes, node)

	for {
		rel, next := p.parseRelAndNode()
		if rel == nil && next == nil {
			return path
		}
		if rel != nil {
			rel.Left = path.Nodes[len(path.Nodes)-1]
			rel.Right = next
			path.Rels = append(path.Rels, rel)
		}
		if next == nil {
			return path
		}
		path.Nodes = append(path.Nodes, next)
	}
}

// parseNode parses a parenthesized node pattern. The caller has verified
// the current token is "(".
func (p *parser) parseNode() *NodePattern {
	node := &NodePattern{}
	p.pos++ // consume "("

	if t := p.cur(); t.Kind == TokenIdent {
		node.Variable = t.Text
		p.pos++
	}
	if p.cur().Kind == TokenColon {
		p.pos++
		if t := p.cur(); t.Kind == TokenIdent {
			node.Label = t.Text
			p.pos++
		}
	}

	// Skip the remainder (property maps, extra labels) to the matching ")".
	depth := 1
	for !p.eof() && depth > 0 {
		switch p.cur().Kind {
		case TokenLParen:
			depth++
		case TokenRParen:
			depth--
		}
		p.pos++
	}
	return node
}

// parseRelAndNode parses a relationship continuation and the node that
// follows it. Unbracketed relationships ("--", "-->", "<--") are traversed
// but produce no RelPattern. Returns (nil, nil) when the path ends here.
func (p *parser) parseRelAndNode() (*RelPattern, *NodePattern) {
	var rel *RelPattern

	switch p.cur().Kind {
	case TokenDash:
		p.pos++
		switch p.cur().Kind {
		case TokenLBracket:
			rel = p.parseBracketRel()
			switch p.cur().Kind {
			case TokenArrow:
				rel.Direction = DirectionOut
				p.pos++
			case TokenDash:
				rel.Direction = DirectionNone
				p.pos++
			}
		case TokenArrow, TokenDash:
			// "-->" or "--": anonymous unbracketed relationship.
			p.pos++
		}

	case TokenLt:
		if p.peek().Kind != TokenDash {
			return nil, nil
		}
		p.pos += 2
		switch p.cur().Kind {
		case TokenLBracket:
			rel = p.parseBracketRel()
			rel.Direction = DirectionIn
			if p.cur().Kind == TokenDash {
				p.pos++
			}
		case TokenDash:
			p.pos++
		}

	default:
		return nil, nil
	}

	if p.cur().Kind != TokenLParen {
		return rel, nil
	}
	return rel, p.parseNode()
}

// parseBracketRel parses the bracketed segment of a relationship pattern.
// The caller has verified the current token is "[".
func (p *parser) parseBracketRel() *RelPattern {
	rel := &RelPattern{}
	p.pos++ // consume "["

	if p.cur().Kind == TokenRBracket {
		rel.Empty = true
		p.pos++
		return rel
	}

	if t := p.cur(); t.Kind == TokenIdent {
		rel.Variable = t.Text
		p.pos++
	}
	if p.cur().Kind == TokenColon {
		p.pos++
		if t := p.cur(); t.Kind == TokenIdent {
			rel.Type = t.Text
			p.pos++
		}
	}

	// Skip length specifiers and property maps to the matching "]".
	depth := 1
	for !p.eof() && depth > 0 {
		switch p.cur().Kind {
		case TokenLBracket:
			depth++
		case TokenRBracket:
			depth--
		}
		p.pos++
	}
	return rel
}

// ---------------------------------------------------------------------------
// WITH bindings
// ---------------------------------------------------------------------------

func (p *parser) parseWith() *WithClause {
	clause := &WithClause{}

	// Gather the clause's tokens up to the next top-level boundary.
	start := p.pos
	p.skipToClauseBoundary()
	toks := p.toks[start:p.pos]

	// Split into items on top-level commas.
	var items [][]Token
	depth := 0
	itemStart := 0
	for i, t := range toks {
		switch t.Kind {
		case TokenLParen, TokenLBracket, TokenLBrace:
			depth++
		case TokenRParen, TokenRBracket, TokenRBrace:
			depth--
		case TokenComma:
			if depth == 0 {
				items = append(items, toks[itemStart:i])
				itemStart = i + 1
			}
		}
	}
	if itemStart < len(toks) {
		items = append(items, toks[itemStart:])
	}

	for _, item := range items {
		clause.Bindings = append(clause.Bindings, p.parseBinding(item, clause))
	}
	return clause
}

// parseBinding parses one "expr AS name" item. Items without AS yield a
// binding with an empty name. DISTINCT outside a collect call marks the
// whole clause as misusing the modifier.
func (p *parser) parseBinding(item []Token, clause *WithClause) *Binding {
	b := &Binding{}

	// Locate the top-level AS.
	asIdx := -1
	depth := 0
	for i, t := range item {
		switch t.Kind {
		case TokenLParen, TokenLBracket, TokenLBrace:
			depth++
		case TokenRParen, TokenRBracket, TokenRBrace:
			depth--
		}
		if depth == 0 && t.IsKeyword("AS") {
			asIdx = i
		}
	}

	expr := item
	if asIdx >= 0 {
		expr = item[:asIdx]
		if asIdx+1 < len(item) && item[asIdx+1].Kind == TokenIdent {
			b.Name = item[asIdx+1].Text
		}
	}
	b.Raw = tokensText(expr)

	for i := 0; i < len(expr); {
		t := expr[i]
		switch {
		case t.IsKeyword("DISTINCT"):
			clause.StrayDistinct = true
			i++
		case t.IsKeyword("collect") && i+1 < len(expr) && expr[i+1].Kind == TokenLParen:
			call, next := parseCollectCall(expr, i)
			b.Terms = append(b.Terms, Term{Collect: call})
			i = next
		case t.Kind == TokenLBracket && i+1 < len(expr) && expr[i+1].Kind == TokenRBracket:
			b.Terms = append(b.Terms, Term{EmptyList: true})
			i += 2
		case t.Kind == TokenIdent:
			b.Terms = append(b.Terms, Term{Ident: t.Text})
			// Swallow a property access suffix.
			for i+2 < len(expr) && expr[i+1].Kind == TokenDot && expr[i+2].Kind == TokenIdent {
				i += 2
			}
			i++
		default:
			i++
		}
	}
	return b
}

// ---------------------------------------------------------------------------
// RETURN projection
// ---------------------------------------------------------------------------

func (p *parser) parseReturn() *ReturnClause {
	ret := &ReturnClause{}
	var current []string
	flush := func() {
		if len(current) > 0 {
			ret.Items = append(ret.Items, strings.Join(current, ""))
			current = nil
		}
	}
	for !p.eof() {
		t := p.cur()
		if isClauseBoundary(t) || t.Kind == TokenSemi {
			break
		}
		switch t.Kind {
		case TokenComma:
			flush()
		case TokenIdent, TokenDot, TokenNumber, TokenString:
			current = append(current, t.Text)
		}
		p.pos++
	}
	flush()
	return ret
}

// ---------------------------------------------------------------------------
// Whole-text scans
// ---------------------------------------------------------------------------

// scanCollects records every collect call anywhere in the token stream.
func (p *parser) scanCollects(q *Query) {
	for i := 0; i < len(p.toks); i++ {
		if p.toks[i].IsKeyword("collect") && p.at(i+1).Kind == TokenLParen {
			call, next := parseCollectCall(p.toks, i)
			call.Raw = p.rawBetween(p.toks[i].Pos, next)
			q.Collects = append(q.Collects, call)
			i = next - 1
		}
	}
}

// rawBetween slices source text from a rune position to the start of the
// token at index end.
func (p *parser) rawBetween(startPos, end int) string {
	stop := len(p.src)
	if end < len(p.toks) && p.toks[end].Kind != TokenEOF {
		stop = p.toks[end].Pos
	}
	return strings.TrimSpace(string(p.src[startPos:stop]))
}

// parseCollectCall parses a collect call starting at toks[i] (the
// "collect" identifier). Returns the call and the index just past the
// closing parenthesis.
func parseCollectCall(toks []Token, i int) (*CollectCall, int) {
	call := &CollectCall{}
	j := i + 2 // past "collect("
	depth := 1
	for j < len(toks) && depth > 0 {
		t := toks[j]
		switch t.Kind {
		case TokenLParen:
			depth++
		case TokenRParen:
			depth--
		case TokenIdent:
			if depth == 1 {
				switch {
				case t.IsKeyword("DISTINCT"):
					call.Distinct = true
				case j+1 < len(toks) && toks[j+1].Kind == TokenDot:
					// Property access: record the base variable only.
					call.Args = append(call.Args, t.Text)
					j += 2
				case j > 0 && toks[j-1].Kind == TokenDot:
					// Property suffix already consumed above.
				default:
					call.Args = append(call.Args, t.Text)
				}
			}
		}
		j++
	}
	return call, j
}

// scanAccesses records property accesses and literal comparisons anywhere
// in the token stream.
func (p *parser) scanAccesses(q *Query) {
	for i := 0; i+2 < len(p.toks); i++ {
		if p.toks[i].Kind == TokenIdent && p.toks[i+1].Kind == TokenDot && p.toks[i+2].Kind == TokenIdent {
			access := PropertyAccess{Variable: p.toks[i].Text, Property: p.toks[i+2].Text}
			q.Accesses = append(q.Accesses, access)
			if p.at(i+3).Kind == TokenEq && p.at(i+4).Kind == TokenString {
				q.Comparisons = append(q.Comparisons, PropertyComparison{
					Variable: access.Variable,
					Property: access.Property,
					Value:    p.at(i + 4).Text,
				})
			}
			i += 2
		}
	}
}

// endsWithNodesEdges checks that the token stream ends with
// "RETURN nodes, edges" plus optional semicolons.
func (p *parser) endsWithNodesEdges() bool {
	end := len(p.toks) - 1 // EOF
	for end > 0 && p.toks[end-1].Kind == TokenSemi {
		end--
	}
	if end < 4 {
		return false
	}
	return p.toks[end-4].IsKeyword("RETURN") &&
		p.toks[end-3].IsKeyword("nodes") &&
		p.toks[end-2].Kind == TokenComma &&
		p.toks[end-1].IsKeyword("edges")
}

// tokensText reconstructs a readable rendering of a token run.
func tokensText(toks []Token) string {
	parts := make([]string, 0, len(toks))
	for _, t := range toks {
		if t.Kind == TokenEOF {
			break
		}
		if t.Kind == TokenString {
			parts = append(parts, "'"+t.Text+"'")
			continue
		}
		parts = append(parts, t.Text)
	}
	return strings.Join(parts, " ")
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
