// Package schema holds the typed configuration records (spec.md §4.3) and
// the tagged-variant config tree spec.md §9 DESIGN NOTES calls for:
// "Represent configurations as a typed tree (tagged variants for scalar /
// sequence / mapping) rather than opaque generic maps; field-level
// invariants can then be enforced at parse time." Node is that tree. It
// decodes from and encodes to YAML via gopkg.in/yaml.v3, whose own
// yaml.Node already distinguishes scalar/sequence/mapping kinds, so Node
// is a thin, merge/expansion-friendly wrapper rather than a
// reimplementation of YAML's data model.
package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind tags a Node's shape.
type Kind int

const (
	KindNull Kind = iota
	KindScalar
	KindSequence
	KindMapping
)

// Node is the tagged-variant config tree. Exactly one of Scalar, Items,
// or Fields is meaningful, selected by Kind.
type Node struct {
	Kind   Kind
	Scalar any
	Items  []*Node
	Fields map[string]*Node
}

// NewScalar wraps a Go scalar value as a Node.
func NewScalar(v any) *Node { return &Node{Kind: KindScalar, Scalar: v} }

// NewMapping returns an empty mapping Node.
func NewMapping() *Node { return &Node{Kind: KindMapping, Fields: map[string]*Node{}} }

// IsEmpty reports whether the node is nil or an explicit null.
func (n *Node) IsEmpty() bool { return n == nil || n.Kind == KindNull }

// Clone deep-copies a Node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case KindSequence:
		items := make([]*Node, len(n.Items))
		for i, it := range n.Items {
			items[i] = it.Clone()
		}
		return &Node{Kind: KindSequence, Items: items}
	case KindMapping:
		fields := make(map[string]*Node, len(n.Fields))
		for k, v := range n.Fields {
			fields[k] = v.Clone()
		}
		return &Node{Kind: KindMapping, Fields: fields}
	default:
		return &Node{Kind: n.Kind, Scalar: n.Scalar}
	}
}

// UnmarshalYAML converts a yaml.Node into our tagged-variant tree.
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	converted, err := fromYAMLNode(value)
	if err != nil {
		return err
	}
	*n = *converted
	return nil
}

func fromYAMLNode(value *yaml.Node) (*Node, error) {
	switch value.Kind {
	case yaml.DocumentNode:
		if len(value.Content) == 0 {
			return &Node{Kind: KindNull}, nil
		}
		return fromYAMLNode(value.Content[0])
	case yaml.ScalarNode:
		if value.Tag == "!!null" {
			return &Node{Kind: KindNull}, nil
		}
		var v any
		if err := value.Decode(&v); err != nil {
			return nil, err
		}
		return &Node{Kind: KindScalar, Scalar: v}, nil
	case yaml.SequenceNode:
		items := make([]*Node, len(value.Content))
		for i, c := range value.Content {
			child, err := fromYAMLNode(c)
			if err != nil {
				return nil, err
			}
			items[i] = child
		}
		return &Node{Kind: KindSequence, Items: items}, nil
	case yaml.MappingNode:
		fields := make(map[string]*Node, len(value.Content)/2)
		for i := 0; i+1 < len(value.Content); i += 2 {
			key := value.Content[i].Value
			child, err := fromYAMLNode(value.Content[i+1])
			if err != nil {
				return nil, err
			}
			fields[key] = child
		}
		return &Node{Kind: KindMapping, Fields: fields}, nil
	case yaml.AliasNode:
		return fromYAMLNode(value.Alias)
	default:
		return &Node{Kind: KindNull}, nil
	}
}

// MarshalYAML converts the tagged-variant tree back to a value yaml.v3
// knows how to encode, used when writing snapshots and serialized job
// files.
func (n *Node) MarshalYAML() (any, error) {
	return toPlain(n), nil
}

func toPlain(n *Node) any {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case KindNull:
		return nil
	case KindScalar:
		return n.Scalar
	case KindSequence:
		out := make([]any, len(n.Items))
		for i, it := range n.Items {
			out[i] = toPlain(it)
		}
		return out
	case KindMapping:
		out := make(map[string]any, len(n.Fields))
		for k, v := range n.Fields {
			out[k] = toPlain(v)
		}
		return out
	default:
		return nil
	}
}

// DeepMerge implements spec.md §4.2's merge law: "at each mapping key, if
// both sides are mappings, recurse; otherwise the later value wins. Lists
// are replaced wholesale (no element-wise merge)." b wins ties; either
// side may be nil/empty.
func DeepMerge(a, b *Node) *Node {
	if a.IsEmpty() {
		return b.Clone()
	}
	if b.IsEmpty() {
		return a.Clone()
	}
	if a.Kind == KindMapping && b.Kind == KindMapping {
		out := NewMapping()
		for k, v := range a.Fields {
			out.Fields[k] = v.Clone()
		}
		for k, v := range b.Fields {
			if existing, ok := out.Fields[k]; ok {
				out.Fields[k] = DeepMerge(existing, v)
			} else {
				out.Fields[k] = v.Clone()
			}
		}
		return out
	}
	return b.Clone()
}

// Get resolves a dotted path ("plugins.model.dummy.param") against a
// mapping tree, returning (nil, false) if any segment is missing or the
// tree isn't shaped like a mapping at that point.
func (n *Node) Get(path string) (*Node, bool) {
	if n == nil {
		return nil, false
	}
	cur := n
	if path == "" {
		return cur, true
	}
	for _, seg := range strings.Split(path, ".") {
		if cur == nil || cur.Kind != KindMapping {
			return nil, false
		}
		next, ok := cur.Fields[seg]
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Set writes a dotted path into a mapping tree, creating intermediate
// mappings as needed. n must be a non-nil mapping node.
func (n *Node) Set(path string, v *Node) error {
	if n.Kind != KindMapping {
		return fmt.Errorf("cannot Set on non-mapping node")
	}
	segs := strings.Split(path, ".")
	cur := n
	for i, seg := range segs {
		if i == len(segs)-1 {
			cur.Fields[seg] = v
			return nil
		}
		next, ok := cur.Fields[seg]
		if !ok || next.Kind != KindMapping {
			next = NewMapping()
			cur.Fields[seg] = next
		}
		cur = next
	}
	return nil
}

// Axis is a single sweep dimension found while walking a config tree:
// the dotted path to the list-valued field, and its candidate values.
type Axis struct {
	Path   string
	Values []*Node
}

// CollectAxes walks n (rooted at prefix, usually "engine"/"plugins"/
// "params") and returns every non-empty sequence-valued field as a sweep
// axis, sorted lexicographically by dotted path — spec.md §4.4's
// "preserving the axis key path" plus §4.4's "lexicographic order of the
// flattened key paths" used by cartesian expansion.
func CollectAxes(n *Node, prefix string) []Axis {
	var axes []Axis
	var walk func(node *Node, path string)
	walk = func(node *Node, path string) {
		if node == nil {
			return
		}
		switch node.Kind {
		case KindSequence:
			if len(node.Items) > 0 {
				axes = append(axes, Axis{Path: path, Values: node.Items})
			}
		case KindMapping:
			for k, v := range node.Fields {
				childPath := k
				if path != "" {
					childPath = path + "." + k
				}
				walk(v, childPath)
			}
		}
	}
	walk(n, prefix)
	sort.Slice(axes, func(i, j int) bool { return axes[i].Path < axes[j].Path })
	return axes
}

// ScalarString renders a scalar Node as a string for diagnostics.
// Non-scalars render as "<mapping>" / "<sequence>".
func (n *Node) ScalarString() string {
	if n == nil || n.Kind == KindNull {
		return "null"
	}
	switch n.Kind {
	case KindScalar:
		switch v := n.Scalar.(type) {
		case string:
			return v
		case float64:
			return strconv.FormatFloat(v, 'g', -1, 64)
		default:
			return fmt.Sprintf("%v", v)
		}
	case KindSequence:
		return "<sequence>"
	default:
		return "<mapping>"
	}
}
