package appstate

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Clone deep-copies a state tree. Nil stays nil.
func Clone(s State) State {
	if s == nil {
		return nil
	}
	return cloneValue(map[string]any(s)).(map[string]any)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case State:
		return State(cloneValue(map[string]any(t)).(map[string]any))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Equal reports whether two trees hold the same values.
func Equal(a, b State) bool {
	return reflect.DeepEqual(a, b)
}

// Decode parses a serialized state. JSON null yields a nil State.
func Decode(data []byte) (State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return s, nil
}

// Encode serializes a state for embedding in an HTML script element.
// encoding/json already escapes <, >, &, U+2028 and U+2029.
func Encode(s State) ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return b, nil
}

// Normalize round-trips s through JSON so its values take the shapes Decode
// produces (float64 numbers, map[string]any objects).
func Normalize(s State) (State, error) {
	b, err := Encode(s)
	if err != nil {
		return nil, err
	}
	return Decode(b)
}
