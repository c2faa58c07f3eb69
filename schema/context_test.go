package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() *Context {
	s := &Schema{
		NodeTypes: map[string]NodeType{
			"pankbase;donor": {Properties: map[string]string{"age": "integer", "sex": "string"}},
			"gene":           {Properties: map[string]string{"name": "string"}},
		},
		EdgeTypes: map[string]EdgeType{
			"associated_with": {
				SourceNodeType: "donor",
				TargetNodeType: "gene",
				Properties:     map[string]string{"confidence": "float"},
			},
		},
	}
	vv := &ValidValues{
		NodeProperties: map[string]map[string]Constraint{
			"donor": {"sex": {Values: []string{"male", "female"}, Note: "lowercase"}},
		},
	}
	return NewContext(s, vv, Hints{"donor": "donors are human"})
}

func TestNilContextDegrades(t *testing.T) {
	var c *Context
	assert.False(t, c.Available())
	assert.False(t, c.HasValidValues())
	assert.Nil(t, c.NodeLabels())
	assert.Nil(t, c.RelationshipTypes())
	assert.False(t, c.KnownProperty("name"))
	assert.Empty(t, c.MinimalPrompt())
	assert.Empty(t, c.DetailedProperties([]string{"donor"}, nil))

	_, ok := c.NodeProperties("donor")
	assert.False(t, ok)
	_, ok = c.EdgeSpec("associated_with")
	assert.False(t, ok)
}

func TestNodePropertiesCanonicalLookup(t *testing.T) {
	c := testContext()

	// Compound key resolves by its final segment.
	props, ok := c.NodeProperties("donor")
	require.True(t, ok)
	assert.Equal(t, "integer", props["age"])

	_, ok = c.NodeProperties("pankbase;donor")
	assert.False(t, ok)

	_, ok = c.NodeProperties("unknown")
	assert.False(t, ok)
}

func TestKnownProperty(t *testing.T) {
	c := testContext()
	assert.True(t, c.KnownProperty("age"))
	assert.True(t, c.KnownProperty("confidence"))
	assert.False(t, c.KnownProperty("weight"))
}

func TestMinimalPrompt(t *testing.T) {
	out := testContext().MinimalPrompt()
	assert.Contains(t, out, "donor: age, sex")
	assert.Contains(t, out, "(donor)-[associated_with]->(gene)")
	assert.Contains(t, out, "donors are human")
}

func TestDetailedProperties(t *testing.T) {
	c := testContext()

	out := c.DetailedProperties([]string{"donor", "donor", "unknown"}, []string{"associated_with"})
	assert.Contains(t, out, "Node 'donor':")
	assert.Contains(t, out, "- sex (string) valid values: ['male', 'female'] (lowercase)")
	assert.Contains(t, out, "Relationship 'associated_with' (donor -> gene):")
	assert.NotContains(t, out, "unknown")

	// Only requested entities appear.
	assert.NotContains(t, out, "Node 'gene'")
}

func TestFormatValues(t *testing.T) {
	assert.Equal(t, "['a', 'b']", FormatValues([]string{"a", "b"}))
	assert.Equal(t, "[]", FormatValues(nil))
}
