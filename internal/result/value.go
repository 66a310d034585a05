// Package result extracts the structured benchmark record a target prints
// on its output and flattens it for tabular export.
package result

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Kind tags a Value as a scalar leaf or a nested record.
type Kind uint8

const (
	KindScalar Kind = iota
	KindRecord
)

func (k Kind) String() string {
	if k == KindRecord {
		return "record"
	}
	return "scalar"
}

// Value is a decoded result node. Scalars hold a json.Number, string,
// bool, nil, or []any for arrays. Records hold their fields in document
// order.
type Value struct {
	Kind   Kind
	Scalar any
	Fields []Field
}

// Field is one key of a record.
type Field struct {
	Key   string
	Value Value
}

// Get returns the field named key of a record.
func (v *Value) Get(key string) (Value, bool) {
	if v == nil {
		return Value{}, false
	}
	for _, f := range v.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// set assigns key, keeping the position of the first occurrence when a
// key repeats.
func (v *Value) set(key string, val Value) {
	for i := range v.Fields {
		if v.Fields[i].Key == key {
			v.Fields[i].Value = val
			return
		}
	}
	v.Fields = append(v.Fields, Field{Key: key, Value: val})
}

// Parse decodes a JSON object into a record Value.
func Parse(payload string) (*Value, error) {
	v, err := decode([]byte(payload))
	if err != nil {
		return nil, err
	}
	if v.Kind != KindRecord {
		return nil, fmt.Errorf("payload is a %s, want an object", v.Kind)
	}
	return &v, nil
}

func decode(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Value{}, fmt.Errorf("unexpected data after value")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			rec := Value{Kind: KindRecord, Fields: []Field{}}
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := kt.(string)
				if !ok {
					return Value{}, fmt.Errorf("object key %v is not a string", kt)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return Value{}, fmt.Errorf("%s: %w", key, err)
				}
				rec.set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return rec, nil

		case '[':
			arr := []any{}
			for dec.More() {
				elem, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				arr = append(arr, elem.plain())
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Value{Kind: KindScalar, Scalar: arr}, nil
		}
		return Value{}, fmt.Errorf("unexpected delimiter %v", t)

	default:
		return Value{Kind: KindScalar, Scalar: tok}, nil
	}
}

// plain converts v into ordinary Go values (map[string]any for records).
func (v Value) plain() any {
	if v.Kind == KindScalar {
		return v.Scalar
	}
	m := make(map[string]any, len(v.Fields))
	for _, f := range v.Fields {
		m[f.Key] = f.Value.plain()
	}
	return m
}

// MarshalJSON writes records as objects in field order.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.Kind == KindScalar {
		return json.Marshal(v.Scalar)
	}
	var b bytes.Buffer
	b.WriteByte('{')
	for i, f := range v.Fields {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		val, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		b.Write(val)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	out, err := decode(data)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

// Format renders a scalar for a CSV cell. Nil renders empty.
func Format(s any) string {
	switch x := s.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case []any, map[string]any:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(data)
	}
	return fmt.Sprint(s)
}
