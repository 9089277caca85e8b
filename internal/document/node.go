package document

import "strconv"

// Kind discriminates the three shapes a YAML node can take.
type Kind int

const (
	// KindScalar is a single value (string, bool, number, null, timestamp)
	KindScalar Kind = iota
	// KindSequence is an ordered list of nodes
	KindSequence
	// KindMapping is an ordered set of key/value pairs
	KindMapping
)

// String returns a human-readable name for the kind
func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// Node is one node of a parsed document tree. Mapping keys and sequence
// items keep their source order; Line and Column point at the node's
// position in the original text.
type Node struct {
	Kind   Kind
	Value  string // scalar value, as written
	Tag    string // resolved YAML tag for scalars (!!str, !!int, !!bool, ...)
	Items  []*Node
	Line   int
	Column int

	keys   []string
	fields map[string]*Node
}

// NewScalar creates a scalar node with the given value and resolved tag
func NewScalar(value, tag string) *Node {
	return &Node{Kind: KindScalar, Value: value, Tag: tag}
}

// NewSequence creates a sequence node holding the given items
func NewSequence(items ...*Node) *Node {
	return &Node{Kind: KindSequence, Items: items}
}

// NewMapping creates an empty mapping node
func NewMapping() *Node {
	return &Node{Kind: KindMapping, fields: make(map[string]*Node)}
}

// IsMapping reports whether the node is a mapping
func (n *Node) IsMapping() bool { return n != nil && n.Kind == KindMapping }

// IsSequence reports whether the node is a sequence
func (n *Node) IsSequence() bool { return n != nil && n.Kind == KindSequence }

// IsScalar reports whether the node is a scalar
func (n *Node) IsScalar() bool { return n != nil && n.Kind == KindScalar }

// IsNull reports whether the node is an explicit YAML null
func (n *Node) IsNull() bool {
	return n != nil && n.Kind == KindScalar && n.Tag == "!!null"
}

// Keys returns the mapping keys in declaration order
func (n *Node) Keys() []string {
	if !n.IsMapping() {
		return nil
	}
	return n.keys
}

// Get looks up a mapping key
func (n *Node) Get(key string) (*Node, bool) {
	if !n.IsMapping() {
		return nil, false
	}
	v, ok := n.fields[key]
	return v, ok
}

// Set inserts or replaces a mapping key. New keys are appended, existing
// keys keep their position.
func (n *Node) Set(key string, value *Node) {
	if n.fields == nil {
		n.fields = make(map[string]*Node)
	}
	if _, ok := n.fields[key]; !ok {
		n.keys = append(n.keys, key)
	}
	n.fields[key] = value
}

// Len returns the number of items (sequence) or keys (mapping)
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	switch n.Kind {
	case KindSequence:
		return len(n.Items)
	case KindMapping:
		return len(n.keys)
	default:
		return 0
	}
}

// Str returns the scalar value as a string. Non-scalars yield ""
func (n *Node) Str() string {
	if !n.IsScalar() {
		return ""
	}
	return n.Value
}

// Bool returns the scalar as a bool. The second return is false when the
// node is not a YAML boolean.
func (n *Node) Bool() (bool, bool) {
	if !n.IsScalar() || n.Tag != "!!bool" {
		return false, false
	}
	b, err := strconv.ParseBool(n.Value)
	if err != nil {
		return false, false
	}
	return b, true
}

// Int returns the scalar as an int. The second return is false when the
// node is not a YAML integer.
func (n *Node) Int() (int, bool) {
	if !n.IsScalar() || n.Tag != "!!int" {
		return 0, false
	}
	i, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, false
	}
	return i, true
}

// Clone deep-copies the node and everything below it
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{
		Kind:   n.Kind,
		Value:  n.Value,
		Tag:    n.Tag,
		Line:   n.Line,
		Column: n.Column,
	}
	if n.Items != nil {
		out.Items = make([]*Node, len(n.Items))
		for i, item := range n.Items {
			out.Items[i] = item.Clone()
		}
	}
	if n.fields != nil {
		out.keys = append([]string(nil), n.keys...)
		out.fields = make(map[string]*Node, len(n.fields))
		for k, v := range n.fields {
			out.fields[k] = v.Clone()
		}
	}
	return out
}
