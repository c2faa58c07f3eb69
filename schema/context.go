package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Context is the immutable, process-lifetime view of the schema consumed by
// the validator and the refinement controller. A nil Context is valid and
// means "schema unavailable": schema-dependent checks degrade to no-ops.
type Context struct {
	schema      *Schema
	validValues *ValidValues
	hints       Hints
}

// NewContext builds a Context from a loaded schema. validValues and hints
// may be nil.
func NewContext(schema *Schema, validValues *ValidValues, hints Hints) *Context {
	return &Context{schema: schema, validValues: validValues, hints: hints}
}

// Available reports whether a schema is actually present.
func (c *Context) Available() bool {
	return c != nil && c.schema != nil
}

// HasValidValues reports whether a value-constraint table is present.
func (c *Context) HasValidValues() bool {
	return c != nil && c.validValues != nil
}

// NodeProperties returns the property map of a node type by canonical name.
func (c *Context) NodeProperties(label string) (map[string]string, bool) {
	if !c.Available() {
		return nil, false
	}
	spec, ok := c.schema.nodeType(label)
	if !ok {
		return nil, false
	}
	return spec.Properties, true
}

// EdgeSpec returns the edge type definition by canonical name.
func (c *Context) EdgeSpec(relType string) (EdgeType, bool) {
	if !c.Available() {
		return EdgeType{}, false
	}
	return c.schema.edgeType(relType)
}

// KnownProperty reports whether a property name exists on any node or edge
// type in the schema.
func (c *Context) KnownProperty(prop string) bool {
	if !c.Available() {
		return false
	}
	for _, spec := range c.schema.NodeTypes {
		if _, ok := spec.Properties[prop]; ok {
			return true
		}
	}
	for _, spec := range c.schema.EdgeTypes {
		if _, ok := spec.Properties[prop]; ok {
			return true
		}
	}
	return false
}

// NodeConstraints returns the value constraints declared for a node type,
// or nil when none exist.
func (c *Context) NodeConstraints(label string) map[string]Constraint {
	if !c.HasValidValues() {
		return nil
	}
	return c.validValues.NodeProperties[label]
}

// RelConstraints returns the value constraints declared for a relationship
// type, or nil when none exist.
func (c *Context) RelConstraints(relType string) map[string]Constraint {
	if !c.HasValidValues() {
		return nil
	}
	return c.validValues.RelationshipProperties[relType]
}

// NodeLabels returns all canonical node type names, sorted.
func (c *Context) NodeLabels() []string {
	if !c.Available() {
		return nil
	}
	return c.schema.nodeLabels()
}

// RelationshipTypes returns all canonical relationship type names, sorted.
func (c *Context) RelationshipTypes() []string {
	if !c.Available() {
		return nil
	}
	return c.schema.relTypes()
}

// MinimalPrompt renders a distilled schema section for generation prompts:
// node labels with their properties, relationships with source/target, and
// any hints. Kept deliberately small so it fits small-model context windows.
func (c *Context) MinimalPrompt() string {
	if !c.Available() {
		return ""
	}
	var b strings.Builder

	b.WriteString("Node labels and properties:\n")
	for _, label := range c.schema.nodeLabels() {
		spec, _ := c.schema.nodeType(label)
		b.WriteString(fmt.Sprintf("  %s: %s\n", label, joinSortedKeys(spec.Properties)))
	}

	b.WriteString("Relationships (source)-[type]->(target):\n")
	for _, rel := range c.schema.relTypes() {
		spec, _ := c.schema.edgeType(rel)
		b.WriteString(fmt.Sprintf("  (%s)-[%s]->(%s)\n", spec.SourceNodeType, rel, spec.TargetNodeType))
	}

	if len(c.hints) > 0 {
		b.WriteString("Notes:\n")
		for _, key := range sortedKeys(c.hints) {
			b.WriteString(fmt.Sprintf("  %s: %s\n", key, c.hints[key]))
		}
	}
	return b.String()
}

// DetailedProperties renders per-entity property documentation, including
// declared value constraints, for exactly the given node labels and
// relationship types. Unknown entities are skipped. This is the targeted
// enrichment appended to refinement prompts.
func (c *Context) DetailedProperties(nodeLabels, relTypes []string) string {
	if !c.Available() {
		return ""
	}
	var b strings.Builder
	b.WriteString("DETAILED PROPERTIES (case-sensitive):\n")

	for _, label := range dedupSorted(nodeLabels) {
		spec, ok := c.schema.nodeType(label)
		if !ok {
			continue
		}
		b.WriteString(fmt.Sprintf("\nNode '%s':\n", label))
		writeProperties(&b, spec.Properties, c.NodeConstraints(label))
	}

	for _, rel := range dedupSorted(relTypes) {
		spec, ok := c.schema.edgeType(rel)
		if !ok {
			continue
		}
		b.WriteString(fmt.Sprintf("\nRelationship '%s' (%s -> %s):\n", rel, spec.SourceNodeType, spec.TargetNodeType))
		writeProperties(&b, spec.Properties, c.RelConstraints(rel))
	}
	return b.String()
}

// writeProperties lists properties with types and, where constrained, the
// allowed values and note.
func writeProperties(b *strings.Builder, props map[string]string, constraints map[string]Constraint) {
	for _, name := range sortedKeys(props) {
		b.WriteString(fmt.Sprintf("  - %s (%s)", name, props[name]))
		if con, ok := constraints[name]; ok && len(con.Values) > 0 {
			b.WriteString(fmt.Sprintf(" valid values: %s", FormatValues(con.Values)))
			if con.Note != "" {
				b.WriteString(fmt.Sprintf(" (%s)", con.Note))
			}
		}
		b.WriteString("\n")
	}
}

// FormatValues renders a value list as ['a', 'b'] for reports and prompts.
func FormatValues(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + v + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func joinSortedKeys(m map[string]string) string {
	return strings.Join(sortedKeys(m), ", ")
}

func dedupSorted(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	sort.Strings(out)
	return out
}
