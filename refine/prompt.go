package refine

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"

	"github.com/pankgraph/cypherflow/cypher"
	"github.com/pankgraph/cypherflow/schema"
	"github.com/pankgraph/cypherflow/types"
	"github.com/pankgraph/cypherflow/validate"
)

// systemRules is the generation contract given to the model on every first
// attempt. The %s placeholder receives the distilled schema.
const systemRules = `Generate Cypher statement to query a biomedical graph database.
Use only the provided relationship types and properties in the schema.

CRITICAL RULES:
1. Every relationship MUST have a variable name: WRONG: [:regulation] RIGHT: [r:regulation]
2. Always return format: WITH collect(DISTINCT nodes...) AS nodes, collect(DISTINCT edges...) AS edges RETURN nodes, edges;
3. Disease name: ALWAYS use 'type 1 diabetes' (lowercase, never T1D or Type 1 Diabetes)
4. Name ALL variables in MATCH clause
5. Use DISTINCT in all collect()
6. ALWAYS use WHERE constraints to filter results (by name, id, or properties)
   - If query mentions specific entities (gene name, SNP name, etc.), add WHERE clause
   - Avoid unconstrained queries that return ALL nodes (e.g., MATCH (sn:snp) without WHERE)
   - Use properties like .name, .id, or relationship properties to filter

GOOD EXAMPLES:
Query: 'Find gene with name INS'
MATCH (g:gene) WHERE g.name = 'INS'
WITH collect(DISTINCT g) AS nodes, [] AS edges
RETURN nodes, edges;

Query: 'Get SNPs that have QTL_for relationships with gene MAFA'
MATCH (sn:snp)-[r:QTL_for]->(g:gene) WHERE g.name = 'MAFA'
WITH collect(DISTINCT sn)+collect(DISTINCT g) AS nodes, collect(DISTINCT r) AS edges
RETURN nodes, edges;

BAD EXAMPLES:
WRONG: MATCH (sn:snp)-[r:QTL_for]->(g:gene) (no WHERE - returns ALL SNPs!)
WRONG: MATCH (g:gene)-[:function_annotation]->(fo:gene_ontology) (missing variable name)
WRONG: MATCH (g:gene) (no WHERE - returns ALL genes!)

Schema:
%s
`

// refinementReminders closes every refinement prompt.
const refinementReminders = `Please fix the issues and regenerate the Cypher query.
Remember:
1. Every relationship needs a variable name like [r:type] not [:type]
2. Must end with: WITH collect(DISTINCT ...) AS nodes, collect(DISTINCT ...) AS edges RETURN nodes, edges;
3. Use 'type 1 diabetes' for disease name
4. Use ONLY the property names listed above - they are case-sensitive
`

// tokenBudget is the prompt size above which a warning is logged. Prompts
// are never truncated; an oversized prompt usually means the previous
// query referenced half the schema.
const tokenBudget = 8000

// PromptBuilder assembles generation and refinement prompts from the
// schema context and validator feedback.
type PromptBuilder struct {
	schema *schema.Context
	logger *zap.Logger

	encOnce sync.Once
	enc     *tiktoken.Tiktoken
}

// NewPromptBuilder creates a PromptBuilder. logger may be nil.
func NewPromptBuilder(sc *schema.Context, logger *zap.Logger) *PromptBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromptBuilder{
		schema: sc,
		logger: logger.With(zap.String("component", "prompt_builder")),
	}
}

// Base builds the first-iteration generation prompt for a question.
func (p *PromptBuilder) Base(question string) string {
	prompt := fmt.Sprintf(systemRules, p.schemaText()) +
		"\nQuestion: " + question + "\n\nCypher output:"
	p.checkBudget(prompt)
	return prompt
}

// Refinement builds a corrective prompt from the previous attempt. The
// schema detail is limited to entity types the previous query actually
// referenced, so the prompt carries exactly the documentation implicated
// by the failure instead of the whole schema.
func (p *PromptBuilder) Refinement(question, previousQuery string, report *types.ValidationReport) string {
	q := cypher.Parse(previousQuery)
	detail := ""
	if p.schema.Available() {
		detail = p.schema.DetailedProperties(q.NodeLabels(), q.RelationshipTypes())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Schema:\n%s\n\n", p.schemaText())
	fmt.Fprintf(&b, "Previous Cypher attempt:\n%s\n\n", previousQuery)
	fmt.Fprintf(&b, "Validation feedback:\n%s\n\n", validate.FormatReport(report))
	if detail != "" {
		b.WriteString(detail)
		b.WriteString("\n\n")
	}
	b.WriteString(refinementReminders)
	fmt.Fprintf(&b, "\nOriginal question: %s\n", question)
	b.WriteString("\nCypher output:")

	prompt := b.String()
	p.checkBudget(prompt)
	return prompt
}

func (p *PromptBuilder) schemaText() string {
	if !p.schema.Available() {
		return "(schema unavailable)"
	}
	return p.schema.MinimalPrompt()
}

// checkBudget logs a warning when a prompt exceeds the token budget.
// Counting falls back to a byte estimate if the encoding cannot load.
func (p *PromptBuilder) checkBudget(prompt string) {
	count := p.countTokens(prompt)
	if count > tokenBudget {
		p.logger.Warn("prompt exceeds token budget",
			zap.Int("tokens", count),
			zap.Int("budget", tokenBudget))
	}
}

func (p *PromptBuilder) countTokens(text string) int {
	p.encOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			p.logger.Warn("tiktoken encoding unavailable, using byte estimate", zap.Error(err))
			return
		}
		p.enc = enc
	})
	if p.enc == nil {
		return len(text) / 4
	}
	return len(p.enc.Encode(text, nil, nil))
}
