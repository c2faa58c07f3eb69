package refine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pankgraph/cypherflow/schema"
	"github.com/pankgraph/cypherflow/validate"
)

const (
	goodQuery = `MATCH (g1:gene)-[reg:regulation]->(g2:gene) WHERE g1.name = 'INS' ` +
		`WITH collect(DISTINCT g1)+collect(DISTINCT g2) AS nodes, collect(DISTINCT reg) AS edges ` +
		`RETURN nodes, edges;`
	unnamedRelQuery = `MATCH (g:gene)-[:regulation]->(g2:gene) WHERE g.name = 'INS' ` +
		`WITH collect(g)+collect(g2) AS nodes, [] AS edges RETURN nodes, edges;` // score 55
	missingDistinctQuery = `MATCH (g:gene)-[r:regulation]->(g2:gene) WHERE g.name = 'INS' ` +
		`WITH collect(g)+collect(g2) AS nodes, collect(r) AS edges RETURN nodes, edges;` // score 85
)

func refineContext() *schema.Context {
	s := &schema.Schema{
		NodeTypes: map[string]schema.NodeType{
			"gene": {Properties: map[string]string{"name": "string", "symbol": "string"}},
		},
		EdgeTypes: map[string]schema.EdgeType{
			"regulation": {SourceNodeType: "gene", TargetNodeType: "gene"},
		},
	}
	return schema.NewContext(s, nil, nil)
}

// scriptedGenerator returns canned responses in order and records every
// prompt it was given.
type scriptedGenerator struct {
	responses []string
	errs      []error
	prompts   []string
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	i := len(g.prompts)
	g.prompts = append(g.prompts, prompt)
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if i >= len(g.responses) {
		panic("scripted generator ran out of responses")
	}
	return g.responses[i], nil
}

func newController(gen Generator, opts Options) *Controller {
	sc := refineContext()
	return NewController(validate.New(sc, nil), NewPromptBuilder(sc, nil), gen, opts, nil)
}

func TestRefineAcceptsFirstAttempt(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{goodQuery}}
	c := newController(gen, Options{})

	result, err := c.Refine(context.Background(), "genes regulating other genes")
	require.NoError(t, err)

	assert.Len(t, result.Attempts, 1)
	assert.Equal(t, 1, result.BestIteration)
	assert.Equal(t, 100, result.BestScore)
	assert.Equal(t, goodQuery, result.BestQuery)
	assert.Equal(t, 0, result.Improvement())
	assert.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "CRITICAL RULES")
	assert.Contains(t, gen.prompts[0], "Question: genes regulating other genes")
}

func TestRefineImprovesAcrossIterations(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{unnamedRelQuery, goodQuery}}
	c := newController(gen, Options{})

	result, err := c.Refine(context.Background(), "genes regulating other genes")
	require.NoError(t, err)

	assert.Len(t, result.Attempts, 2)
	assert.Equal(t, 2, result.BestIteration)
	assert.Equal(t, 100, result.BestScore)
	assert.Equal(t, goodQuery, result.BestQuery)
	assert.Equal(t, 45, result.Improvement())
	assert.Equal(t, 55, result.Attempts[0].Report.Score)
}

func TestRefineBudgetExhaustion(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		unnamedRelQuery, unnamedRelQuery, missingDistinctQuery,
	}}
	c := newController(gen, Options{MaxIterations: 3})

	result, err := c.Refine(context.Background(), "genes")
	require.NoError(t, err)

	assert.Len(t, result.Attempts, 3)
	assert.Equal(t, 85, result.BestScore)
	assert.Equal(t, 3, result.BestIteration)
	assert.Equal(t, missingDistinctQuery, result.BestQuery)
}

func TestRefineTieKeepsEarliestAttempt(t *testing.T) {
	variant := unnamedRelQuery + " "
	gen := &scriptedGenerator{responses: []string{unnamedRelQuery, variant}}
	c := newController(gen, Options{MaxIterations: 2})

	result, err := c.Refine(context.Background(), "genes")
	require.NoError(t, err)

	require.Len(t, result.Attempts, 2)
	assert.Equal(t, result.Attempts[0].Report.Score, result.Attempts[1].Report.Score)
	assert.Equal(t, 1, result.BestIteration)
	assert.Equal(t, unnamedRelQuery, result.BestQuery)
}

func TestRefineLowAcceptScoreReturnsImmediately(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{unnamedRelQuery}}
	c := newController(gen, Options{AcceptScore: 50})

	result, err := c.Refine(context.Background(), "genes")
	require.NoError(t, err)
	assert.Len(t, result.Attempts, 1)
	assert.Equal(t, 55, result.BestScore)
}

func TestRefineGeneratorFailurePropagates(t *testing.T) {
	boom := errors.New("upstream exploded")

	t.Run("first call", func(t *testing.T) {
		gen := &scriptedGenerator{errs: []error{boom}}
		c := newController(gen, Options{})
		result, err := c.Refine(context.Background(), "genes")
		assert.Nil(t, result)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("refinement call", func(t *testing.T) {
		gen := &scriptedGenerator{
			responses: []string{unnamedRelQuery, ""},
			errs:      []error{nil, boom},
		}
		c := newController(gen, Options{})
		result, err := c.Refine(context.Background(), "genes")
		assert.Nil(t, result)
		assert.ErrorIs(t, err, boom)
	})
}

func TestRefinementPromptCarriesFeedbackAndSchemaDetail(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{unnamedRelQuery, goodQuery}}
	c := newController(gen, Options{})

	_, err := c.Refine(context.Background(), "genes regulating other genes")
	require.NoError(t, err)
	require.Len(t, gen.prompts, 2)

	prompt := gen.prompts[1]
	assert.Contains(t, prompt, "Previous Cypher attempt:\n"+unnamedRelQuery)
	assert.Contains(t, prompt, "Validation feedback:")
	assert.Contains(t, prompt, "missing variable name")
	assert.Contains(t, prompt, "gene")
	assert.Contains(t, prompt, "symbol")
	assert.Contains(t, prompt, "Original question: genes regulating other genes")
	assert.Contains(t, prompt, "Cypher output:")
}

func TestGeneratorFunc(t *testing.T) {
	called := false
	gen := GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		called = true
		return "x", nil
	})
	out, err := gen.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "x", out)
}
