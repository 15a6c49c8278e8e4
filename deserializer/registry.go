// Package deserializer converts the text a service returns into the value a stub declared.
//
// A Registry maps a result Kind to a Converter. It ships with converters for the
// built-in kinds and accepts new ones at any time; the last registration for a kind
// wins and entries are never removed.
package deserializer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"stub-rpc/message"
)

// Kind is the stable tag a stub declares for its result.
type Kind string

// Built-in kinds.
const (
	KindNone   Kind = "none" // no declared result; always yields nil
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindString Kind = "string"
	KindList   Kind = "list"
	KindMap    Kind = "map"
)

// Converter parses response output into a value.
type Converter func(text string) (any, error)

// Registry is safe for concurrent use. Each Register replaces a single entry atomically.
type Registry struct {
	mu         sync.RWMutex
	converters map[Kind]Converter
}

// New returns a registry holding the built-in converters.
func New() *Registry {
	r := &Registry{converters: make(map[Kind]Converter)}
	r.Register(KindNone, func(string) (any, error) { return nil, nil })
	r.Register(KindInt, parseInt)
	r.Register(KindFloat, parseFloat)
	r.Register(KindString, func(text string) (any, error) { return text, nil })
	r.Register(KindList, parseList)
	r.Register(KindMap, parseMap)
	return r
}

// Get looks up the converter for kind.
func (r *Registry) Get(kind Kind) (Converter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conv, ok := r.converters[kind]
	return conv, ok
}

// Register inserts or overwrites the converter for kind.
func (r *Registry) Register(kind Kind, conv Converter) {
	if conv == nil {
		panic("deserializer: Register with nil converter for " + string(kind))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.converters[kind] = conv
}

// Deserialize applies the converter registered for kind to text.
func (r *Registry) Deserialize(text string, kind Kind) (any, error) {
	conv, ok := r.Get(kind)
	if !ok {
		return nil, &LookupError{Kind: kind}
	}
	v, err := conv(text)
	if err != nil {
		return nil, &ConversionError{Kind: kind, Text: text, Err: err}
	}
	return v, nil
}

// Kinds returns the registered kinds, sorted.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	out := make([]Kind, 0, len(r.converters))
	for k := range r.converters {
		out = append(out, k)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RegisterFunc registers a typed converter.
func RegisterFunc[T any](r *Registry, kind Kind, fn func(text string) (T, error)) {
	r.Register(kind, func(text string) (any, error) {
		v, err := fn(text)
		if err != nil {
			return nil, err
		}
		return v, nil
	})
}

// ParseKind reads a kind from user input. The empty string and "void" mean KindNone.
func ParseKind(s string) (Kind, error) {
	switch k := strings.ToLower(strings.TrimSpace(s)); k {
	case "", "void":
		return KindNone, nil
	case "integer":
		return KindInt, nil
	case "decimal", "double":
		return KindFloat, nil
	case "str", "text":
		return KindString, nil
	case "array", "sequence":
		return KindList, nil
	case "dict", "mapping", "object":
		return KindMap, nil
	default:
		if strings.ContainsAny(k, " \t\n") {
			return "", fmt.Errorf("deserializer: invalid kind %q", s)
		}
		return Kind(k), nil
	}
}

func parseInt(text string) (any, error) {
	return strconv.ParseInt(strings.TrimSpace(text), 10, 64)
}

func parseFloat(text string) (any, error) {
	return strconv.ParseFloat(strings.TrimSpace(text), 64)
}

func parseList(text string) (any, error) {
	v, err := message.DecodeValue([]byte(text))
	if err != nil {
		return nil, err
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected JSON array, got %s", jsonKind(v))
	}
	return list, nil
}

func parseMap(text string) (any, error) {
	v, err := message.DecodeValue([]byte(text))
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected JSON object, got %s", jsonKind(v))
	}
	return m, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case int64, float64:
		return "number"
	case []any:
		return "array"
	default:
		return "object"
	}
}
