// Package sweep expands a configuration matrix into the ordered list of
// variants a benchmark sweep visits.
//
// Axes declared earlier in the matrix vary fastest; the last-declared axis
// varies slowest. Declare axes that are expensive to change between runs
// (for example one that forces a rebuild of the target) last so that every
// cheaper combination is exhausted before the expensive value changes.
package sweep

import (
	"fmt"
	"strings"
)

// Axis is a named, ordered list of candidate values. Values are scalars:
// int, bool, string or float64.
type Axis struct {
	Name   string
	Values []any
}

// Matrix is the ordered set of axes to sweep over.
type Matrix []Axis

// Names returns the axis names in declaration order.
func (m Matrix) Names() []string {
	names := make([]string, len(m))
	for i, a := range m {
		names[i] = a.Name
	}
	return names
}

// Validate reports empty or duplicate axis names and non-scalar values.
func (m Matrix) Validate() error {
	seen := make(map[string]bool, len(m))
	for _, a := range m {
		if strings.TrimSpace(a.Name) == "" {
			return fmt.Errorf("axis with empty name")
		}
		if seen[a.Name] {
			return fmt.Errorf("duplicate axis %q", a.Name)
		}
		seen[a.Name] = true
		for i, v := range a.Values {
			if !IsScalar(v) {
				return fmt.Errorf("axis %q value[%d]: %T is not a scalar", a.Name, i, v)
			}
		}
	}
	return nil
}

// IsScalar reports whether v is a value an axis may hold.
func IsScalar(v any) bool {
	switch v.(type) {
	case int, int64, bool, string, float64:
		return true
	}
	return false
}

// Count returns the number of variants Expand would produce.
func Count(m Matrix) int {
	n := 1
	for _, a := range m {
		n *= len(a.Values)
	}
	return n
}

// Field is one axis assignment inside a Variant.
type Field struct {
	Axis  string `json:"axis"`
	Value any    `json:"value"`
}

// Variant assigns exactly one value to every axis of a matrix, in axis
// declaration order.
type Variant []Field

// Get returns the value assigned to axis name.
func (v Variant) Get(name string) (any, bool) {
	for _, f := range v {
		if f.Axis == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Map returns the assignments keyed by axis name.
func (v Variant) Map() map[string]any {
	m := make(map[string]any, len(v))
	for _, f := range v {
		m[f.Axis] = f.Value
	}
	return m
}

// String renders the variant as "a=1 b=true".
func (v Variant) String() string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = fmt.Sprintf("%s=%v", f.Axis, f.Value)
	}
	return strings.Join(parts, " ")
}

// set returns a copy of v with axis assigned to value, replacing an
// existing assignment in place or appending a new one.
func (v Variant) set(axis string, value any) Variant {
	out := make(Variant, len(v), len(v)+1)
	copy(out, v)
	for i := range out {
		if out[i].Axis == axis {
			out[i].Value = value
			return out
		}
	}
	return append(out, Field{Axis: axis, Value: value})
}

// Expand returns the full cross-product of m. The first axis varies
// fastest and the last slowest. An empty matrix yields one empty variant;
// an axis without values yields no variants at all.
func Expand(m Matrix) []Variant {
	acc := []Variant{{}}
	for _, axis := range m {
		next := make([]Variant, 0, len(acc)*len(axis.Values))
		for _, value := range axis.Values {
			for _, partial := range acc {
				next = append(next, partial.set(axis.Name, value))
			}
		}
		acc = next
	}
	return acc
}
