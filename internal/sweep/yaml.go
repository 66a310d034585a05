package sweep

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML decodes a mapping of axis name to value list, keeping the
// mapping's key order. A bare scalar is treated as a single-value axis.
func (m *Matrix) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: matrix must be a mapping of axis name to values", node.Line)
	}

	out := make(Matrix, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]

		axis := Axis{Name: key.Value}
		switch val.Kind {
		case yaml.SequenceNode:
			for _, elem := range val.Content {
				v, err := decodeScalar(elem)
				if err != nil {
					return fmt.Errorf("axis %q: %w", axis.Name, err)
				}
				axis.Values = append(axis.Values, v)
			}
		case yaml.ScalarNode:
			v, err := decodeScalar(val)
			if err != nil {
				return fmt.Errorf("axis %q: %w", axis.Name, err)
			}
			axis.Values = []any{v}
		default:
			return fmt.Errorf("axis %q (line %d): values must be a list of scalars", axis.Name, val.Line)
		}
		out = append(out, axis)
	}

	if err := out.Validate(); err != nil {
		return err
	}
	*m = out
	return nil
}

func decodeScalar(n *yaml.Node) (any, error) {
	if n.Kind != yaml.ScalarNode {
		return nil, fmt.Errorf("line %d: nested values are not allowed", n.Line)
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, fmt.Errorf("line %d: %w", n.Line, err)
	}
	if v == nil || !IsScalar(v) {
		return nil, fmt.Errorf("line %d: %q is not an int, bool, string or float", n.Line, n.Value)
	}
	return v, nil
}

// MarshalYAML writes the matrix back as an ordered mapping.
func (m Matrix) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, a := range m {
		vals := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, v := range a.Values {
			var elem yaml.Node
			if err := elem.Encode(v); err != nil {
				return nil, fmt.Errorf("axis %q: %w", a.Name, err)
			}
			vals.Content = append(vals.Content, &elem)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: a.Name},
			vals,
		)
	}
	return node, nil
}
