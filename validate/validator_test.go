package validate

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pankgraph/cypherflow/schema"
)

func testContext() *schema.Context {
	s := &schema.Schema{
		NodeTypes: map[string]schema.NodeType{
			"pankbase;gene": {Properties: map[string]string{"name": "string", "symbol": "string"}},
			"disease":       {Properties: map[string]string{"name": "string"}},
			"cell_type":     {Properties: map[string]string{"name": "string"}},
		},
		EdgeTypes: map[string]schema.EdgeType{
			"effector_gene_of": {
				SourceNodeType: "pankbase;gene",
				TargetNodeType: "disease",
				Properties:     map[string]string{"score": "float"},
			},
			"regulation": {
				SourceNodeType: "gene",
				TargetNodeType: "gene",
			},
			"DEG_in": {
				SourceNodeType: "gene",
				TargetNodeType: "cell_type",
				Properties:     map[string]string{"UpOrDownRegulation": "string"},
			},
		},
	}
	vv := &schema.ValidValues{
		NodeProperties: map[string]map[string]schema.Constraint{
			"disease": {
				"name": {Values: []string{"type 1 diabetes"}, Note: "only type 1 diabetes data is loaded"},
			},
		},
		RelationshipProperties: map[string]map[string]schema.Constraint{
			"DEG_in": {
				"UpOrDownRegulation": {Values: []string{"up", "down"}},
			},
		},
	}
	return schema.NewContext(s, vv, nil)
}

func TestValidateWellFormedQuery(t *testing.T) {
	v := New(testContext(), nil)
	report := v.Validate(`MATCH (g1:gene)-[reg:regulation]->(g2:gene) ` +
		`WITH collect(DISTINCT g1)+collect(DISTINCT g2) AS nodes, collect(DISTINCT reg) AS edges ` +
		`RETURN nodes, edges;`)

	assert.Equal(t, 100, report.Score)
	assert.Empty(t, report.Errors)
	assert.Contains(t, report.PassedChecks, "WITH clause properly structured with collect()")
	assert.Contains(t, report.PassedChecks, "All relationships have variable names")
	assert.Contains(t, report.PassedChecks, "Correct return format with nodes and edges")
	assert.Contains(t, report.PassedChecks, "All collect() use DISTINCT")
}

func TestValidateUnnamedRelAndMissingDistinct(t *testing.T) {
	v := New(testContext(), nil)
	report := v.Validate(`MATCH (g:gene)-[:function_annotation]->(fo:x) ` +
		`WITH collect(g) AS nodes, collect(fo) AS edges RETURN nodes, edges;`)

	assert.Equal(t, 55, report.Score)
	assert.Contains(t, report.Errors,
		"Relationship ':function_annotation' missing variable name (should be [var:function_annotation])")
	assert.Contains(t, report.Errors, "All collect() statements must use DISTINCT")
}

func TestValidateInvalidPropertyValue(t *testing.T) {
	v := New(testContext(), nil)

	t.Run("unconstrained vocabulary", func(t *testing.T) {
		report := v.Validate(`MATCH (d:disease) WHERE d.name = 'insulitis' ` +
			`WITH collect(DISTINCT d) AS nodes, [] AS edges RETURN nodes, edges;`)
		assert.Equal(t, 80, report.Score)
		require.Len(t, report.Errors, 1)
		assert.Contains(t, report.Errors[0], "Invalid value 'insulitis' for disease.name")
		assert.Contains(t, report.Errors[0], "Valid values: ['type 1 diabetes']")
		assert.Contains(t, report.Errors[0], "Note: only type 1 diabetes data is loaded")
	})

	t.Run("abbreviation triggers naming check too", func(t *testing.T) {
		report := v.Validate(`MATCH (d:disease) WHERE d.name = 'T1D' ` +
			`WITH collect(DISTINCT d) AS nodes, [] AS edges RETURN nodes, edges;`)
		assert.LessOrEqual(t, report.Score, 80)
		assert.Contains(t, report.Errors, "Use 'type 1 diabetes' instead of 'T1D'")
	})

	t.Run("relationship property constraint", func(t *testing.T) {
		report := v.Validate(`MATCH (g:gene)-[d:DEG_in]->(ct:cell_type) ` +
			`WHERE d.UpOrDownRegulation = 'sideways' ` +
			`WITH collect(DISTINCT g)+collect(DISTINCT ct) AS nodes, collect(DISTINCT d) AS edges ` +
			`RETURN nodes, edges;`)
		assert.Equal(t, 80, report.Score)
		require.Len(t, report.Errors, 1)
		assert.Contains(t, report.Errors[0], "Invalid value 'sideways' for DEG_in.UpOrDownRegulation")
	})
}

func TestValidateRelationshipDirection(t *testing.T) {
	v := New(testContext(), nil)

	t.Run("reversed direction flagged", func(t *testing.T) {
		report := v.Validate(`MATCH (d:disease)-[e:effector_gene_of]->(g:gene) ` +
			`WHERE d.name = 'type 1 diabetes' ` +
			`WITH collect(DISTINCT d)+collect(DISTINCT g) AS nodes, collect(DISTINCT e) AS edges ` +
			`RETURN nodes, edges;`)
		assert.Equal(t, 75, report.Score)
		require.Len(t, report.Errors, 1)
		assert.Contains(t, report.Errors[0], "Relationship 'effector_gene_of' has incorrect direction")
		assert.Contains(t, report.Errors[0], "Found: (disease)-[:effector_gene_of]->(gene)")
		assert.Contains(t, report.Errors[0], "Expected: (gene)-[:effector_gene_of]->(disease)")
	})

	t.Run("correct direction passes", func(t *testing.T) {
		report := v.Validate(`MATCH (g:gene)-[e:effector_gene_of]->(d:disease) ` +
			`WHERE d.name = 'type 1 diabetes' ` +
			`WITH collect(DISTINCT g)+collect(DISTINCT d) AS nodes, collect(DISTINCT e) AS edges ` +
			`RETURN nodes, edges;`)
		assert.Equal(t, 100, report.Score)
		assert.Contains(t, report.PassedChecks, "All relationships have correct source/target node types")
	})

	t.Run("incoming arrow resolves orientation", func(t *testing.T) {
		report := v.Validate(`MATCH (d:disease)<-[e:effector_gene_of]-(g:gene) ` +
			`WHERE d.name = 'type 1 diabetes' ` +
			`WITH collect(DISTINCT d)+collect(DISTINCT g) AS nodes, collect(DISTINCT e) AS edges ` +
			`RETURN nodes, edges;`)
		assert.Equal(t, 100, report.Score)
	})

	t.Run("undirected accepts either orientation", func(t *testing.T) {
		report := v.Validate(`MATCH (ct:cell_type)-[e:DEG_in]-(g:gene) ` +
			`WHERE ct.name = 'beta cell' ` +
			`WITH collect(DISTINCT ct)+collect(DISTINCT g) AS nodes, collect(DISTINCT e) AS edges ` +
			`RETURN nodes, edges;`)
		assert.Empty(t, report.Errors)
	})

	t.Run("undirected with wrong endpoint types flagged", func(t *testing.T) {
		report := v.Validate(`MATCH (d:disease)-[e:DEG_in]-(g:gene) ` +
			`WHERE d.name = 'type 1 diabetes' ` +
			`WITH collect(DISTINCT d)+collect(DISTINCT g) AS nodes, collect(DISTINCT e) AS edges ` +
			`RETURN nodes, edges;`)
		require.Len(t, report.Errors, 1)
		assert.Contains(t, report.Errors[0], "Relationship 'DEG_in' connects incorrect node types")
	})

	t.Run("unknown relationship type is out of scope", func(t *testing.T) {
		report := v.Validate(`MATCH (g:gene)-[r:mystery_rel]->(d:disease) ` +
			`WHERE d.name = 'type 1 diabetes' ` +
			`WITH collect(DISTINCT g)+collect(DISTINCT d) AS nodes, collect(DISTINCT r) AS edges ` +
			`RETURN nodes, edges;`)
		assert.Empty(t, report.Errors)
	})
}

func TestValidateAggregationClause(t *testing.T) {
	v := New(testContext(), nil)

	t.Run("missing nodes and edges bindings", func(t *testing.T) {
		report := v.Validate(`MATCH (g:gene) WHERE g.name = 'INS' ` +
			`WITH collect(DISTINCT g) AS stuff RETURN stuff`)
		assert.Equal(t, 40, report.Score)
		assert.Contains(t, report.Errors, "WITH clause must define 'nodes' variable (... AS nodes)")
		assert.Contains(t, report.Errors, "WITH clause must define 'edges' variable (... AS edges)")
	})

	t.Run("stray distinct and bare variable binding", func(t *testing.T) {
		report := v.Validate(`MATCH (sn:gene) WHERE sn.name = 'INS' ` +
			`WITH DISTINCT sn AS nodes, [] AS edges RETURN nodes, edges`)
		assert.Equal(t, 65, report.Score)
		found := false
		for _, err := range report.Errors {
			if strings.Contains(err, "DISTINCT must be inside collect()") {
				found = true
			}
		}
		assert.True(t, found, "expected stray DISTINCT error, got %v", report.Errors)
		assert.Contains(t, report.Errors,
			"Variables assigned to 'nodes' must use collect(). "+
				"Found: DISTINCT sn AS nodes. Should be: collect(DISTINCT ...) AS nodes")
	})

	t.Run("empty list accepted for edges only", func(t *testing.T) {
		report := v.Validate(`MATCH (g:gene) WHERE g.name = 'INS' ` +
			`WITH collect(DISTINCT g) AS nodes, [] AS edges RETURN nodes, edges;`)
		assert.Equal(t, 100, report.Score)
		assert.Empty(t, report.Errors)
	})

	t.Run("no WITH clause at all", func(t *testing.T) {
		report := v.Validate(`MATCH (g:gene) WHERE g.name = 'INS' RETURN g`)
		assert.Equal(t, 40, report.Score)
		assert.NotEmpty(t, report.Errors)
	})
}

func TestValidateRelationshipNaming(t *testing.T) {
	v := New(testContext(), nil)

	t.Run("empty brackets", func(t *testing.T) {
		report := v.Validate(`MATCH (g:gene)-[]->(d:disease) ` +
			`WHERE g.name = 'INS' ` +
			`WITH collect(DISTINCT g)+collect(DISTINCT d) AS nodes, [] AS edges RETURN nodes, edges;`)
		assert.Contains(t, report.Errors, "Relationship #1 is empty: -[]- (should have variable and type)")
		assert.Equal(t, 70, report.Score)
	})

	t.Run("second violation does not deduct again", func(t *testing.T) {
		one := v.Validate(`MATCH (g:gene)-[:regulation]->(g2:gene) WHERE g.name = 'INS' ` +
			`WITH collect(DISTINCT g)+collect(DISTINCT g2) AS nodes, [] AS edges RETURN nodes, edges;`)
		two := v.Validate(`MATCH (g:gene)-[:regulation]->(g2:gene)-[:regulation]->(g3:gene) WHERE g.name = 'INS' ` +
			`WITH collect(DISTINCT g)+collect(DISTINCT g2)+collect(DISTINCT g3) AS nodes, [] AS edges RETURN nodes, edges;`)
		assert.Equal(t, one.Score, two.Score)
		assert.Len(t, one.Errors, 1)
		assert.Len(t, two.Errors, 2)
	})
}

func TestValidateVocabulary(t *testing.T) {
	v := New(testContext(), nil)
	wrap := func(value string) string {
		return `MATCH (d:disease) WHERE d.name = '` + value + `' ` +
			`WITH collect(DISTINCT d) AS nodes, [] AS edges RETURN nodes, edges;`
	}

	tests := []struct {
		name    string
		value   string
		flagged bool
	}{
		{"canonical lowercase", "type 1 diabetes", false},
		{"uppercase abbreviation", "T1D", true},
		{"lowercase abbreviation", "t1d", true},
		{"title case", "Type 1 Diabetes", true},
		{"diabetic variant", "type 1 diabetic", true},
		{"reversed word order", "diabetes type 1", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := v.Validate(wrap(tt.value))
			hasNaming := false
			for _, err := range report.Errors {
				if strings.Contains(err, "instead of") {
					hasNaming = true
				}
			}
			assert.Equal(t, tt.flagged, hasNaming, "errors: %v", report.Errors)
		})
	}
}

func TestValidateCollectedVariableWarning(t *testing.T) {
	v := New(testContext(), nil)
	report := v.Validate(`MATCH (g:gene) WHERE g.name = 'INS' ` +
		`WITH collect(DISTINCT g)+collect(DISTINCT r1)+collect(DISTINCT r2) AS nodes, [] AS edges ` +
		`RETURN nodes, edges;`)

	assert.Equal(t, 95, report.Score)
	assert.Contains(t, report.Warnings, "Variables collected but not defined in MATCH: r1, r2")
}

func TestValidateUnfilteredMatchIsAdvisory(t *testing.T) {
	v := New(testContext(), nil)
	report := v.Validate(`MATCH (g1:gene)-[reg:regulation]->(g2:gene) ` +
		`WITH collect(DISTINCT g1)+collect(DISTINCT g2) AS nodes, collect(DISTINCT reg) AS edges ` +
		`RETURN nodes, edges;`)

	// The notice appears in the report but does not lower the score.
	assert.Equal(t, 100, report.Score)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "no WHERE constraint")
}

func TestValidatePropertyNameWarnings(t *testing.T) {
	v := New(testContext(), nil)

	t.Run("unknown property warned once per pair", func(t *testing.T) {
		report := v.Validate(`MATCH (g:gene) WHERE g.color = 'red' AND g.color = 'blue' ` +
			`WITH collect(DISTINCT g) AS nodes, [] AS edges RETURN nodes, edges;`)
		assert.Equal(t, 95, report.Score)
		count := 0
		for _, w := range report.Warnings {
			if strings.Contains(w, "'color'") {
				count++
			}
		}
		assert.Equal(t, 1, count)
	})

	t.Run("name and id always accepted", func(t *testing.T) {
		report := v.Validate(`MATCH (g:gene) WHERE g.name = 'INS' AND g.id = 'ENSG1' ` +
			`WITH collect(DISTINCT g) AS nodes, [] AS edges RETURN nodes, edges;`)
		assert.Equal(t, 100, report.Score)
	})

	t.Run("declared property accepted", func(t *testing.T) {
		report := v.Validate(`MATCH (g:gene) WHERE g.symbol = 'INS' ` +
			`WITH collect(DISTINCT g) AS nodes, [] AS edges RETURN nodes, edges;`)
		assert.Equal(t, 100, report.Score)
		assert.Contains(t, report.PassedChecks, "All properties appear valid")
	})
}

func TestValidateWithoutSchema(t *testing.T) {
	v := New(nil, nil)

	// Schema-dependent checks pass silently: the reversed direction and the
	// unknown property go unflagged.
	report := v.Validate(`MATCH (d:disease)-[e:effector_gene_of]->(g:gene) ` +
		`WHERE g.color = 'red' ` +
		`WITH collect(DISTINCT d)+collect(DISTINCT g) AS nodes, collect(DISTINCT e) AS edges ` +
		`RETURN nodes, edges;`)
	assert.Equal(t, 100, report.Score)
	assert.Empty(t, report.Errors)
}

func TestValidateEmptyQuery(t *testing.T) {
	v := New(testContext(), nil)
	report := v.Validate("")

	assert.Equal(t, 40, report.Score)
	assert.NotEmpty(t, report.Errors)
	assert.Empty(t, report.Warnings)
}

func TestValidateIdempotent(t *testing.T) {
	v := New(testContext(), nil)
	query := `MATCH (d:disease)-[e:effector_gene_of]->(g:gene) WHERE d.name = 'T1D' ` +
		`WITH collect(g) AS nodes, collect(e) AS edges RETURN nodes, edges;`

	first := v.Validate(query)
	second := v.Validate(query)
	assert.Equal(t, first, second)
}

func TestFormatReport(t *testing.T) {
	v := New(testContext(), nil)
	report := v.Validate(`MATCH (g:gene)-[:regulation]->(g2:gene) ` +
		`WITH collect(g)+collect(g2) AS nodes, [] AS edges RETURN nodes, edges;`)

	text := FormatReport(report)
	assert.Contains(t, text, "Validation Score: "+strconv.Itoa(report.Score)+"/100")
	assert.Contains(t, text, "ERRORS (must fix):")
	assert.Contains(t, text, "  1. Relationship ':regulation' missing variable name")
	assert.Contains(t, text, "WARNINGS (should fix):")
	assert.Contains(t, text, "PASSED CHECKS:")
}
