package message

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var errArgsNotObject = errors.New("message: serviceArgs must be a JSON object")

// Args is an ordered name → value mapping. Keys are written to the wire in insertion
// order, which for a stub call is the declared parameter order.
//
// The zero value is an empty mapping ready to use.
type Args struct {
	keys   []string
	values map[string]any
}

// NewArgs builds Args from alternating name/value pairs. It panics on an odd count or a
// non-string name, so it is meant for literals in code and tests.
func NewArgs(pairs ...any) Args {
	if len(pairs)%2 != 0 {
		panic("message: NewArgs needs name/value pairs")
	}
	var a Args
	for i := 0; i < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			panic("message: NewArgs name must be a string")
		}
		a.Set(name, pairs[i+1])
	}
	return a
}

// Set inserts or replaces a value. A replaced key keeps its original position.
func (a *Args) Set(name string, value any) {
	if a.values == nil {
		a.values = make(map[string]any)
	}
	if _, ok := a.values[name]; !ok {
		a.keys = append(a.keys, name)
	}
	a.values[name] = value
}

// Get returns the value stored under name.
func (a Args) Get(name string) (any, bool) {
	v, ok := a.values[name]
	return v, ok
}

// Has reports whether name is present.
func (a Args) Has(name string) bool {
	_, ok := a.values[name]
	return ok
}

// Keys returns the names in order.
func (a Args) Keys() []string {
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

func (a Args) Len() int {
	return len(a.keys)
}

// Map returns an unordered copy, handy for comparisons.
func (a Args) Map() map[string]any {
	out := make(map[string]any, len(a.keys))
	for _, k := range a.keys {
		out[k] = a.values[k]
	}
	return out
}

// MarshalJSON writes the mapping as a JSON object in key order.
func (a Args) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range a.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalRaw(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := marshalRaw(a.values[k])
		if err != nil {
			return nil, &ArgError{Name: k, Err: err}
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, keeping the wire order of its keys.
// Numbers become int64 when integral and float64 otherwise.
func (a *Args) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errArgsNotObject
	}

	*a = Args{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return errArgsNotObject
		}
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		a.Set(name, normalize(raw))
	}
	// Closing brace
	_, err = dec.Token()
	return err
}

// marshalRaw encodes v without HTML escaping, matching the envelope codec.
func marshalRaw(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// ArgError reports the argument whose value could not be written as JSON.
type ArgError struct {
	Name string
	Err  error
}

func (e *ArgError) Error() string {
	return "argument " + e.Name + ": " + e.Err.Error()
}

func (e *ArgError) Unwrap() error { return e.Err }

// Clone returns an independent copy. Values themselves are not deep-copied.
func (a Args) Clone() Args {
	var out Args
	for _, k := range a.keys {
		out.Set(k, a.values[k])
	}
	return out
}

// Int returns the named argument as an int64. Integral floats are accepted.
func (a Args) Int(name string) (int64, error) {
	v, ok := a.values[name]
	if !ok {
		return 0, fmt.Errorf("missing argument %q", name)
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		if n == float64(int64(n)) {
			return int64(n), nil
		}
	}
	return 0, fmt.Errorf("argument %q: want int, got %T", name, v)
}

// Float returns the named argument as a float64.
func (a Args) Float(name string) (float64, error) {
	v, ok := a.values[name]
	if !ok {
		return 0, fmt.Errorf("missing argument %q", name)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	}
	return 0, fmt.Errorf("argument %q: want float, got %T", name, v)
}

// String returns the named argument as a string.
func (a Args) String(name string) (string, error) {
	v, ok := a.values[name]
	if !ok {
		return "", fmt.Errorf("missing argument %q", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q: want string, got %T", name, v)
	}
	return s, nil
}
