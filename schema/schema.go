package schema

import (
	"sort"
	"strings"
)

// NodeType describes one node type: its property names mapped to their
// declared value types.
type NodeType struct {
	Properties map[string]string `json:"properties"`
}

// EdgeType describes one relationship type: the declared source and target
// node types plus its own properties.
type EdgeType struct {
	SourceNodeType string            `json:"source_node_type"`
	TargetNodeType string            `json:"target_node_type"`
	Properties     map[string]string `json:"properties"`
}

// Schema is the full graph schema as provided by the schema document.
// Type keys may carry a compound-name prefix (semicolon-delimited
// namespace); only the final segment is the canonical type name.
type Schema struct {
	NodeTypes map[string]NodeType `json:"node_types"`
	EdgeTypes map[string]EdgeType `json:"edge_types"`
}

// Constraint restricts the acceptable literal values of one property,
// optionally with a human-readable note shown in prompts and errors.
type Constraint struct {
	Values []string `json:"values"`
	Note   string   `json:"note,omitempty"`
}

// ValidValues is the optional side-table constraining which literal values
// are acceptable for specific (entity type, property) pairs.
type ValidValues struct {
	NodeProperties         map[string]map[string]Constraint `json:"node_properties"`
	RelationshipProperties map[string]map[string]Constraint `json:"relationship_properties"`
}

// Hints carries free-text clarifications injected into generation prompts.
// The validator does not consume hints.
type Hints map[string]string

// CanonicalName returns the canonical type name for a possibly
// namespace-prefixed schema key: the segment after the last semicolon.
func CanonicalName(key string) string {
	if i := strings.LastIndex(key, ";"); i >= 0 {
		return key[i+1:]
	}
	return key
}

// nodeType resolves a node type by canonical name.
func (s *Schema) nodeType(label string) (NodeType, bool) {
	for key, spec := range s.NodeTypes {
		if CanonicalName(key) == label {
			return spec, true
		}
	}
	return NodeType{}, false
}

// edgeType resolves an edge type by canonical name.
func (s *Schema) edgeType(relType string) (EdgeType, bool) {
	for key, spec := range s.EdgeTypes {
		if CanonicalName(key) == relType {
			return spec, true
		}
	}
	return EdgeType{}, false
}

// nodeLabels returns all canonical node type names, sorted.
func (s *Schema) nodeLabels() []string {
	labels := make([]string, 0, len(s.NodeTypes))
	for key := range s.NodeTypes {
		labels = append(labels, CanonicalName(key))
	}
	sort.Strings(labels)
	return labels
}

// relTypes returns all canonical relationship type names, sorted.
func (s *Schema) relTypes() []string {
	rels := make([]string, 0, len(s.EdgeTypes))
	for key := range s.EdgeTypes {
		rels = append(rels, CanonicalName(key))
	}
	sort.Strings(rels)
	return rels
}
