package document

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// Encode serializes a tree back to YAML text. Mapping key order and
// sequence order come out exactly as they sit in the tree; comments from
// the original text are gone.
func Encode(n *Node) ([]byte, error) {
	yn := toYAML(n)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(yn); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func toYAML(n *Node) *yaml.Node {
	switch n.Kind {
	case KindScalar:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: n.Tag, Value: n.Value}

	case KindSequence:
		yn := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range n.Items {
			yn.Content = append(yn.Content, toYAML(item))
		}
		return yn

	case KindMapping:
		yn := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, key := range n.Keys() {
			val, _ := n.Get(key)
			yn.Content = append(yn.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
				toYAML(val))
		}
		return yn

	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}
