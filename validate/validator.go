package validate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/pankgraph/cypherflow/cypher"
	"github.com/pankgraph/cypherflow/schema"
	"github.com/pankgraph/cypherflow/types"
)

// Validator checks generated queries against the graph schema. It is
// stateless apart from the immutable schema context, so one Validator may
// be shared by any number of goroutines.
type Validator struct {
	schema *schema.Context
	logger *zap.Logger
}

// New creates a Validator. sc may be nil, in which case schema-dependent
// checks pass silently. logger may be nil.
func New(sc *schema.Context, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{
		schema: sc,
		logger: logger.With(zap.String("component", "validator")),
	}
}

// Validate inspects a query string and returns a scored report. It never
// fails: unparseable structure simply yields no findings for the checks
// that needed it.
func (v *Validator) Validate(query string) *types.ValidationReport {
	q := cypher.Parse(query)
	b := &reportBuilder{}
	agg := findAggregation(q)

	v.checkAggregation(q, agg, b)
	v.checkRelationshipNames(q, b)
	v.checkReturnFormat(q, agg, b)
	v.checkDistinctInCollect(q, b)
	v.checkVocabulary(query, b)
	v.checkCollectedVariables(q, b)
	v.checkFilterConstraints(q, b)
	v.checkPropertyNames(q, b)
	v.checkPropertyValues(q, b)
	v.checkRelationshipDirections(q, b)

	report := b.build()
	v.logger.Debug("validated query",
		zap.Int("score", report.Score),
		zap.Int("errors", len(report.Errors)),
		zap.Int("warnings", len(report.Warnings)))
	return report
}

// aggregation is the resolved view of the query's WITH clauses.
type aggregation struct {
	nodes, edges  *cypher.Binding
	strayDistinct bool
}

func findAggregation(q *cypher.Query) aggregation {
	var agg aggregation
	for _, w := range q.Withs {
		if w.StrayDistinct {
			agg.strayDistinct = true
		}
		for _, bind := range w.Bindings {
			switch strings.ToLower(bind.Name) {
			case "nodes":
				agg.nodes = bind
			case "edges":
				agg.edges = bind
			}
		}
	}
	return agg
}

// checkAggregation verifies the WITH clause binds both outputs through
// collect calls and keeps DISTINCT inside those calls.
func (v *Validator) checkAggregation(q *cypher.Query, agg aggregation, b *reportBuilder) {
	if len(q.Withs) == 0 {
		b.errorf(catAggregation,
			"WITH clause must define 'nodes' and 'edges' using collect() before RETURN")
		return
	}

	ok := true
	if agg.strayDistinct {
		b.errorf(catAggregation,
			"DISTINCT must be inside collect() functions. "+
				"Use: WITH collect(DISTINCT var) AS nodes, ... "+
				"Not: WITH DISTINCT var, ...")
		ok = false
	}
	if agg.nodes == nil {
		b.errorf(catAggregation, "WITH clause must define 'nodes' variable (... AS nodes)")
		ok = false
	}
	if agg.edges == nil {
		b.errorf(catAggregation, "WITH clause must define 'edges' variable (... AS edges)")
		ok = false
	}
	if agg.nodes != nil && !agg.nodes.HasCollect() {
		b.errorf(catAggregation, fmt.Sprintf(
			"Variables assigned to 'nodes' must use collect(). "+
				"Found: %s AS nodes. Should be: collect(DISTINCT ...) AS nodes",
			agg.nodes.Raw))
		ok = false
	}
	if agg.edges != nil && !agg.edges.HasCollect() && !agg.edges.IsEmptyList() {
		b.errorf(catAggregation, fmt.Sprintf(
			"Variables assigned to 'edges' must use collect() or []. "+
				"Found: %s AS edges. Should be: collect(DISTINCT ...) AS edges",
			agg.edges.Raw))
		ok = false
	}
	if ok {
		b.pass("WITH clause properly structured with collect()")
	}
}

// checkRelationshipNames requires every bracketed relationship pattern to
// bind a variable name.
func (v *Validator) checkRelationshipNames(q *cypher.Query, b *reportBuilder) {
	ok := true
	for i, rel := range q.Rels() {
		switch {
		case rel.Empty:
			b.errorf(catRelNaming, fmt.Sprintf(
				"Relationship #%d is empty: -[]- (should have variable and type)", i+1))
			ok = false
		case rel.Variable == "" && rel.Type != "":
			b.errorf(catRelNaming, fmt.Sprintf(
				"Relationship ':%s' missing variable name (should be [var:%s])",
				rel.Type, rel.Type))
			ok = false
		}
	}
	if ok {
		b.pass("All relationships have variable names")
	}
}

// checkReturnFormat requires the query to end with "RETURN nodes, edges".
func (v *Validator) checkReturnFormat(q *cypher.Query, agg aggregation, b *reportBuilder) {
	if agg.nodes == nil || agg.edges == nil || !q.EndsWithNodesEdges {
		b.errorf(catReturnFormat,
			"Query must end with: WITH collect(DISTINCT ...) AS nodes, "+
				"collect(DISTINCT ...) AS edges RETURN nodes, edges;")
		return
	}
	b.pass("Correct return format with nodes and edges")
}

// checkDistinctInCollect requires every collect call to deduplicate.
// A query with no collect calls passes vacuously.
func (v *Validator) checkDistinctInCollect(q *cypher.Query, b *reportBuilder) {
	for _, call := range q.Collects {
		if !call.Distinct {
			b.errorf(catDistinct, "All collect() statements must use DISTINCT")
			return
		}
	}
	b.pass("All collect() use DISTINCT")
}

// vocabularyVariants are the known wrong renderings of the canonical
// disease name "type 1 diabetes". The mixed-case pattern only counts when
// the match is not already all lowercase.
var vocabularyVariants = []struct {
	re            *regexp.Regexp
	name          string
	lowercaseOkay bool
}{
	{regexp.MustCompile(`(?i)\bT1D\b`), "T1D", false},
	{regexp.MustCompile(`(?i)\btype\s*1\s*diabetes\b`), "Type 1 Diabetes (should be lowercase)", true},
	{regexp.MustCompile(`(?i)\btype\s*1\s*diabetic\b`), "type 1 diabetic (should be 'type 1 diabetes')", false},
	{regexp.MustCompile(`(?i)\bdiabetes\s*type\s*1\b`), "diabetes type 1 (should be 'type 1 diabetes')", false},
}

// checkVocabulary flags known wrong spellings of the controlled disease
// term anywhere in the query text.
func (v *Validator) checkVocabulary(query string, b *reportBuilder) {
	ok := true
	for _, variant := range vocabularyVariants {
		flagged := false
		for _, m := range variant.re.FindAllString(query, -1) {
			if variant.lowercaseOkay && m == strings.ToLower(m) {
				continue
			}
			flagged = true
			break
		}
		if flagged {
			b.errorf(catVocabulary, fmt.Sprintf("Use 'type 1 diabetes' instead of '%s'", variant.name))
			ok = false
		}
	}
	if ok {
		lower := strings.ToLower(query)
		if strings.Contains(lower, "disease") || strings.Contains(lower, "t1d") ||
			strings.Contains(lower, "diabetes") {
			b.pass("Correct disease naming convention")
		}
	}
}

// checkCollectedVariables warns once, listing every variable that a
// deduplicated collect call references without a pattern clause binding it.
func (v *Validator) checkCollectedVariables(q *cypher.Query, b *reportBuilder) {
	bound := q.BoundVars()
	undefined := make(map[string]struct{})
	for _, call := range q.Collects {
		if !call.Distinct {
			continue
		}
		for _, arg := range call.Args {
			if _, ok := bound[arg]; !ok {
				undefined[arg] = struct{}{}
			}
		}
	}
	if len(undefined) == 0 {
		b.pass("All collected variables are defined in MATCH")
		return
	}
	names := make([]string, 0, len(undefined))
	for name := range undefined {
		names = append(names, name)
	}
	sort.Strings(names)
	b.warn("Variables collected but not defined in MATCH: " + strings.Join(names, ", "))
}

// checkFilterConstraints notes pattern clauses with no WHERE predicate.
// These notices are advisory: an unfiltered MATCH risks returning the
// whole entity set, but is sometimes exactly what was asked for.
func (v *Validator) checkFilterConstraints(q *cypher.Query, b *reportBuilder) {
	if len(q.Matches) == 0 {
		return
	}
	ok := true
	for i, m := range q.Matches {
		if m.HasWhere {
			continue
		}
		b.advise(fmt.Sprintf(
			"Query may return too many results: MATCH clause #%d has no WHERE constraint. "+
				"Consider filtering by name, id, or properties.", i+1))
		ok = false
	}
	if ok {
		b.pass("Query has appropriate WHERE constraints")
	}
}

// checkPropertyNames warns about property accesses that no referenced
// entity type declares. Skipped when no schema is loaded.
func (v *Validator) checkPropertyNames(q *cypher.Query, b *reportBuilder) {
	if !v.schema.Available() {
		return
	}

	known := make(map[string]struct{})
	for _, label := range q.NodeLabels() {
		if props, ok := v.schema.NodeProperties(label); ok {
			for name := range props {
				known[name] = struct{}{}
			}
		}
	}
	for _, relType := range q.RelationshipTypes() {
		if spec, ok := v.schema.EdgeSpec(relType); ok {
			for name := range spec.Properties {
				known[name] = struct{}{}
			}
		}
	}

	ok := true
	seen := make(map[string]struct{})
	for _, access := range q.Accesses {
		// name and id exist on everything in practice.
		if access.Property == "name" || access.Property == "id" {
			continue
		}
		if _, found := known[access.Property]; found {
			continue
		}
		key := access.Variable + "." + access.Property
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		b.warn(fmt.Sprintf("Property '%s' on variable '%s' may not exist in schema",
			access.Property, access.Variable))
		ok = false
	}
	if ok && len(q.Accesses) > 0 {
		b.pass("All properties appear valid")
	}
}

// checkPropertyValues verifies literal comparisons against the constrained
// value table for every entity type the query references. Skipped when no
// value constraints are loaded.
func (v *Validator) checkPropertyValues(q *cypher.Query, b *reportBuilder) {
	if !v.schema.HasValidValues() {
		return
	}

	ok := true
	flag := func(entity, prop, value string, con schema.Constraint) {
		msg := fmt.Sprintf("Invalid value '%s' for %s.%s. Valid values: %s",
			value, entity, prop, schema.FormatValues(con.Values))
		if con.Note != "" {
			msg += ". Note: " + con.Note
		}
		b.errorf(catValueValidity, msg)
		ok = false
	}

	for _, cmp := range q.Comparisons {
		for _, label := range q.NodeLabels() {
			con, found := v.schema.NodeConstraints(label)[cmp.Property]
			if found && len(con.Values) > 0 && !containsValue(con.Values, cmp.Value) {
				flag(label, cmp.Property, cmp.Value, con)
			}
		}
		for _, relType := range q.RelationshipTypes() {
			con, found := v.schema.RelConstraints(relType)[cmp.Property]
			if found && len(con.Values) > 0 && !containsValue(con.Values, cmp.Value) {
				flag(relType, cmp.Property, cmp.Value, con)
			}
		}
	}
	if ok && len(q.Comparisons) > 0 {
		b.pass("All property values are valid")
	}
}

func containsValue(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// checkRelationshipDirections verifies that labeled endpoints match the
// schema's declared source and target for each known relationship type.
// Unknown relationship types are out of scope, not wrong.
func (v *Validator) checkRelationshipDirections(q *cypher.Query, b *reportBuilder) {
	if !v.schema.Available() {
		return
	}

	var directed, undirected []labeledRel
	anyTyped := false

	for _, rel := range q.Rels() {
		if rel.Type != "" {
			anyTyped = true
		}
		if rel.Type == "" || rel.Left == nil || rel.Right == nil ||
			rel.Left.Label == "" || rel.Right.Label == "" {
			continue
		}
		spec, known := v.schema.EdgeSpec(rel.Type)
		if !known {
			continue
		}
		lr := labeledRel{rel: rel, left: rel.Left.Label, right: rel.Right.Label, spec: spec}
		if rel.Direction == cypher.DirectionNone {
			undirected = append(undirected, lr)
		} else {
			directed = append(directed, lr)
		}
	}

	ok := true
	for _, lr := range directed {
		src, dst, _ := lr.rel.Source()
		expSrc := schema.CanonicalName(lr.spec.SourceNodeType)
		expTgt := schema.CanonicalName(lr.spec.TargetNodeType)
		if src.Label == expSrc && dst.Label == expTgt {
			continue
		}
		found := fmt.Sprintf("(%s)-[:%s]->(%s)", lr.left, lr.rel.Type, lr.right)
		if lr.rel.Direction == cypher.DirectionIn {
			found = fmt.Sprintf("(%s)<-[:%s]-(%s)", lr.left, lr.rel.Type, lr.right)
		}
		b.errorf(catDirection, fmt.Sprintf(
			"Relationship '%s' has incorrect direction. Found: %s, Expected: (%s)-[:%s]->(%s)",
			lr.rel.Type, found, expSrc, lr.rel.Type, expTgt))
		ok = false
	}

	for _, lr := range undirected {
		if coveredByDirected(directed, lr.rel.Type, lr.left, lr.right) {
			continue
		}
		expSrc := schema.CanonicalName(lr.spec.SourceNodeType)
		expTgt := schema.CanonicalName(lr.spec.TargetNodeType)
		if (lr.left == expSrc && lr.right == expTgt) || (lr.right == expSrc && lr.left == expTgt) {
			continue
		}
		b.errorf(catDirection, fmt.Sprintf(
			"Relationship '%s' connects incorrect node types. "+
				"Found: (%s)-[:%s]-(%s), Expected: (%s)-[:%s]->(%s)",
			lr.rel.Type, lr.left, lr.rel.Type, lr.right, expSrc, lr.rel.Type, expTgt))
		ok = false
	}

	if ok && anyTyped {
		b.pass("All relationships have correct source/target node types")
	}
}

// labeledRel is a relationship pattern whose type and endpoint labels are
// all explicit and whose type the schema declares.
type labeledRel struct {
	rel         *cypher.RelPattern
	left, right string
	spec        schema.EdgeType
}

// coveredByDirected reports whether a directed pattern of the same type
// already spans the same endpoint labels in either orientation.
func coveredByDirected(directed []labeledRel, relType, a, b string) bool {
	for _, d := range directed {
		if d.rel.Type != relType {
			continue
		}
		if (d.left == a && d.right == b) || (d.left == b && d.right == a) {
			return true
		}
	}
	return false
}
