package result

// Entry is one leaf of a flattened result.
type Entry struct {
	Key   string
	Value any
}

// Flat is a flattened result in the order its leaves were visited.
type Flat []Entry

// Keys returns the entry keys in order.
func (f Flat) Keys() []string {
	keys := make([]string, len(f))
	for i, e := range f {
		keys[i] = e.Key
	}
	return keys
}

// Get returns the value stored under key.
func (f Flat) Get(key string) (any, bool) {
	for _, e := range f {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Map returns the entries keyed by path.
func (f Flat) Map() map[string]any {
	m := make(map[string]any, len(f))
	for _, e := range f {
		m[e.Key] = e.Value
	}
	return m
}

// Flatten walks a record and emits every scalar leaf under its dot-joined
// path, prefixed by prefix. Nested records contribute their key plus "."
// to the path of their children. A nil or scalar v yields no entries.
func Flatten(v *Value, prefix string) Flat {
	if v == nil || v.Kind != KindRecord {
		return Flat{}
	}
	out := Flat{}
	flatten(&out, *v, prefix)
	return out
}

func flatten(out *Flat, v Value, prefix string) {
	for _, f := range v.Fields {
		if f.Value.Kind == KindRecord {
			flatten(out, f.Value, prefix+f.Key+".")
			continue
		}
		*out = append(*out, Entry{Key: prefix + f.Key, Value: f.Value.Scalar})
	}
}
