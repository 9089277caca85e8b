package document

import (
	"fmt"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ParseError reports malformed document syntax with the position of the
// first unparseable token. Line and Column are 1-based; zero means the
// position is unknown.
type ParseError struct {
	Line    int
	Column  int
	Message string
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("parse error at line %d, column %d: %s", e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error at line %d: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

var yamlLineRe = regexp.MustCompile(`(?:yaml: )?line (\d+):\s*(.*)`)

// Parse turns raw UTF-8 text into a document tree. Comments are discarded,
// mapping key order and sequence order are preserved, and duplicate keys
// within one mapping are rejected.
func Parse(data []byte) (*Node, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, wrapYAMLError(err)
	}

	// Empty document
	if root.Kind == 0 || len(root.Content) == 0 {
		return NewMapping(), nil
	}

	return convert(root.Content[0])
}

// wrapYAMLError converts a yaml.v3 error into a ParseError, recovering
// the line number from the library's message where possible.
func wrapYAMLError(err error) error {
	msg := err.Error()
	if m := yamlLineRe.FindStringSubmatch(msg); m != nil {
		line, err := strconv.Atoi(m[1])
		if err != nil {
			// The capture is all digits, so only an absurdly long line
			// count can fail to convert. Fall back to no position.
			return &ParseError{Message: msg}
		}
		return &ParseError{Line: line, Message: m[2]}
	}
	return &ParseError{Message: msg}
}

func convert(yn *yaml.Node) (*Node, error) {
	switch yn.Kind {
	case yaml.ScalarNode:
		n := NewScalar(yn.Value, yn.ShortTag())
		n.Line, n.Column = yn.Line, yn.Column
		return n, nil

	case yaml.SequenceNode:
		n := NewSequence()
		n.Line, n.Column = yn.Line, yn.Column
		n.Items = make([]*Node, 0, len(yn.Content))
		for _, item := range yn.Content {
			child, err := convert(item)
			if err != nil {
				return nil, err
			}
			n.Items = append(n.Items, child)
		}
		return n, nil

	case yaml.MappingNode:
		n := NewMapping()
		n.Line, n.Column = yn.Line, yn.Column
		for i := 0; i+1 < len(yn.Content); i += 2 {
			keyNode, valNode := yn.Content[i], yn.Content[i+1]
			key := keyNode.Value
			if _, dup := n.Get(key); dup {
				return nil, &ParseError{
					Line:    keyNode.Line,
					Column:  keyNode.Column,
					Message: fmt.Sprintf("duplicate key %q in mapping", key),
				}
			}
			child, err := convert(valNode)
			if err != nil {
				return nil, err
			}
			n.Set(key, child)
		}
		return n, nil

	case yaml.AliasNode:
		return convert(yn.Alias)

	default:
		return nil, &ParseError{
			Line:    yn.Line,
			Column:  yn.Column,
			Message: fmt.Sprintf("unsupported node kind %d", yn.Kind),
		}
	}
}
