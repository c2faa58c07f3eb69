package cypher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexBasics(t *testing.T) {
	toks := Lex("MATCH (g:gene {name: 'INS'})-[r:is_biomarker_for]->(d:disease)")

	var kinds []TokenKind
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	assert.Equal(t, []TokenKind{
		TokenIdent, // MATCH
		TokenLParen, TokenIdent, TokenColon, TokenIdent, // (g:gene
		TokenLBrace, TokenIdent, TokenColon, TokenString, TokenRBrace, // {name: 'INS'}
		TokenRParen,
		TokenDash, TokenLBracket, TokenIdent, TokenColon, TokenIdent, TokenRBracket, // -[r:is_biomarker_for]
		TokenArrow,
		TokenLParen, TokenIdent, TokenColon, TokenIdent, TokenRParen, // (d:disease)
		TokenEOF,
	}, kinds)
}

func TestLexStringsAndComments(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Token
	}{
		{
			name:  "single quoted string keeps inner text",
			input: `'type 1 diabetes'`,
			want:  []Token{{Kind: TokenString, Text: "type 1 diabetes", Pos: 0}, {Kind: TokenEOF, Pos: 17}},
		},
		{
			name:  "escaped quote",
			input: `'it\'s'`,
			want:  []Token{{Kind: TokenString, Text: "it's", Pos: 0}, {Kind: TokenEOF, Pos: 7}},
		},
		{
			name:  "line comment skipped",
			input: "RETURN nodes // trailing\n",
			want: []Token{
				{Kind: TokenIdent, Text: "RETURN", Pos: 0},
				{Kind: TokenIdent, Text: "nodes", Pos: 7},
				{Kind: TokenEOF, Pos: 25},
			},
		},
		{
			name:  "block comment skipped",
			input: "a /* b */ c",
			want: []Token{
				{Kind: TokenIdent, Text: "a", Pos: 0},
				{Kind: TokenIdent, Text: "c", Pos: 10},
				{Kind: TokenEOF, Pos: 11},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Lex(tt.input))
		})
	}
}

func TestParsePatterns(t *testing.T) {
	q := Parse(`MATCH (sn:sensory_neuron)-[r1:expresses]->(g:gene)
		OPTIONAL MATCH (g)<-[r2:regulates]-(tf:transcription_factor)
		RETURN nodes, edges`)

	require.Len(t, q.Matches, 2)

	first := q.Matches[0]
	assert.False(t, first.Optional)
	require.Len(t, first.Patterns, 1)
	path := first.Patterns[0]
	require.Len(t, path.Nodes, 2)
	assert.Equal(t, "sn", path.Nodes[0].Variable)
	assert.Equal(t, "sensory_neuron", path.Nodes[0].Label)
	require.Len(t, path.Rels, 1)
	assert.Equal(t, "r1", path.Rels[0].Variable)
	assert.Equal(t, "expresses", path.Rels[0].Type)
	assert.Equal(t, DirectionOut, path.Rels[0].Direction)

	second := q.Matches[1]
	assert.True(t, second.Optional)
	rel := second.Patterns[0].Rels[0]
	assert.Equal(t, DirectionIn, rel.Direction)
	src, dst, ok := rel.Source()
	require.True(t, ok)
	assert.Equal(t, "tf", src.Variable)
	assert.Equal(t, "g", dst.Variable)
}

func TestParseRelationshipVariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantDir Direction
		empty   bool
		relVar  string
		relType string
	}{
		{"directed typed", "MATCH (a:x)-[r:likes]->(b:y) RETURN a", DirectionOut, false, "r", "likes"},
		{"undirected typed", "MATCH (a:x)-[r:likes]-(b:y) RETURN a", DirectionNone, false, "r", "likes"},
		{"incoming typed", "MATCH (a:x)<-[r:likes]-(b:y) RETURN a", DirectionIn, false, "r", "likes"},
		{"unnamed typed", "MATCH (a:x)-[:likes]->(b:y) RETURN a", DirectionOut, false, "", "likes"},
		{"named untyped", "MATCH (a:x)-[r]->(b:y) RETURN a", DirectionOut, false, "r", ""},
		{"empty brackets", "MATCH (a:x)-[]->(b:y) RETURN a", DirectionOut, true, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Parse(tt.input)
			rels := q.Rels()
			require.Len(t, rels, 1)
			assert.Equal(t, tt.wantDir, rels[0].Direction)
			assert.Equal(t, tt.empty, rels[0].Empty)
			assert.Equal(t, tt.relVar, rels[0].Variable)
			assert.Equal(t, tt.relType, rels[0].Type)
		})
	}
}

func TestParseAnonymousRelationships(t *testing.T) {
	// Unbracketed relationships are traversed but not recorded.
	q := Parse("MATCH (a:x)-->(b:y)<--(c:z) RETURN a")
	require.Len(t, q.Matches, 1)
	assert.Empty(t, q.Rels())
	assert.Len(t, q.Matches[0].Patterns[0].Nodes, 3)
	assert.Equal(t, []string{"x", "y", "z"}, q.NodeLabels())
}

func TestParseMultiplePaths(t *testing.T) {
	q := Parse("MATCH (a:x)-[r:likes]->(b:y), (c:z) RETURN a")
	require.Len(t, q.Matches, 1)
	require.Len(t, q.Matches[0].Patterns, 2)
	assert.ElementsMatch(t, []string{"a", "b", "c", "r"}, q.Matches[0].Vars())
}

func TestParseWhereAttachment(t *testing.T) {
	q := Parse(`MATCH (g:gene) WHERE g.name = 'INS'
		MATCH (d:disease)
		RETURN nodes, edges`)
	require.Len(t, q.Matches, 2)
	assert.True(t, q.Matches[0].HasWhere)
	assert.False(t, q.Matches[1].HasWhere)
}

func TestParseWithBindings(t *testing.T) {
	q := Parse(`MATCH (g:gene)-[r:is_biomarker_for]->(d:disease)
		WITH collect(DISTINCT g) + collect(DISTINCT d) AS nodes, collect(DISTINCT r) AS edges
		RETURN nodes, edges`)

	require.Len(t, q.Withs, 1)
	w := q.Withs[0]
	assert.False(t, w.StrayDistinct)
	require.Len(t, w.Bindings, 2)

	nodes := w.Bindings[0]
	assert.Equal(t, "nodes", nodes.Name)
	require.Len(t, nodes.Terms, 2)
	require.NotNil(t, nodes.Terms[0].Collect)
	assert.True(t, nodes.Terms[0].Collect.Distinct)
	assert.Equal(t, []string{"g"}, nodes.Terms[0].Collect.Args)

	edges := w.Bindings[1]
	assert.Equal(t, "edges", edges.Name)
	assert.True(t, edges.HasCollect())
}

func TestParseWithEmptyList(t *testing.T) {
	q := Parse(`MATCH (g:gene)
		WITH collect(DISTINCT g) AS nodes, [] AS edges
		RETURN nodes, edges`)
	require.Len(t, q.Withs, 1)
	require.Len(t, q.Withs[0].Bindings, 2)
	assert.True(t, q.Withs[0].Bindings[1].IsEmptyList())
	assert.False(t, q.Withs[0].Bindings[0].IsEmptyList())
}

func TestParseStrayDistinct(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"distinct applied to clause", "MATCH (g:gene) WITH DISTINCT g AS nodes RETURN nodes", true},
		{"distinct inside collect only", "MATCH (g:gene) WITH collect(DISTINCT g) AS nodes RETURN nodes", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Parse(tt.input)
			require.Len(t, q.Withs, 1)
			assert.Equal(t, tt.want, q.Withs[0].StrayDistinct)
		})
	}
}

func TestParseCollectScan(t *testing.T) {
	q := Parse(`MATCH (g:gene)-[r:expresses]->(p:protein)
		WITH collect(DISTINCT g) + collect(p) AS nodes, collect(DISTINCT r) AS edges
		RETURN nodes, edges`)

	require.Len(t, q.Collects, 3)
	assert.True(t, q.Collects[0].Distinct)
	assert.False(t, q.Collects[1].Distinct)
	assert.Equal(t, []string{"p"}, q.Collects[1].Args)
	assert.Equal(t, "collect(p)", q.Collects[1].Raw)
}

func TestParsePropertyAccesses(t *testing.T) {
	q := Parse(`MATCH (d:disease) WHERE d.name = 'type 1 diabetes' AND d.stage > 2 RETURN nodes, edges`)

	assert.Contains(t, q.Accesses, PropertyAccess{Variable: "d", Property: "name"})
	assert.Contains(t, q.Accesses, PropertyAccess{Variable: "d", Property: "stage"})

	require.Len(t, q.Comparisons, 1)
	assert.Equal(t, PropertyComparison{Variable: "d", Property: "name", Value: "type 1 diabetes"}, q.Comparisons[0])
}

func TestEndsWithNodesEdges(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"exact", "MATCH (g:gene) WITH collect(g) AS nodes, [] AS edges RETURN nodes, edges", true},
		{"trailing semicolon", "MATCH (g:gene) RETURN nodes, edges;", true},
		{"case insensitive", "match (g:gene) return NODES, EDGES", true},
		{"wrong order", "MATCH (g:gene) RETURN edges, nodes", false},
		{"extra item", "MATCH (g:gene) RETURN nodes, edges, g", false},
		{"property projection", "MATCH (g:gene) RETURN g.name", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.input).EndsWithNodesEdges)
		})
	}
}

func TestParseReturnItems(t *testing.T) {
	q := Parse("MATCH (g:gene) RETURN g.name, g")
	require.NotNil(t, q.Return)
	assert.Equal(t, []string{"g.name", "g"}, q.Return.Items)
}

func TestParseToleratesGarbage(t *testing.T) {
	tests := []string{
		"",
		"   ",
		"this is not cypher at all",
		"MATCH ((((",
		"WITH AS AS AS",
		"RETURN",
		"MATCH (a:x)-[r:y]->", // dangling relationship
		"]}])) -> <- ::",
	}
	for _, input := range tests {
		assert.NotPanics(t, func() { Parse(input) }, "input: %q", input)
	}
}

func TestQueryAccessors(t *testing.T) {
	q := Parse(`MATCH (b:beta_cell)-[r1:secretes]->(h:hormone)
		MATCH (h)-[r2:regulates]->(p:pathway)
		RETURN nodes, edges`)

	assert.Equal(t, []string{"beta_cell", "hormone", "pathway"}, q.NodeLabels())
	assert.Equal(t, []string{"regulates", "secretes"}, q.RelationshipTypes())

	bound := q.BoundVars()
	for _, v := range []string{"b", "h", "p", "r1", "r2"} {
		assert.Contains(t, bound, v)
	}
}
