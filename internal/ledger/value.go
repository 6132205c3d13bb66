package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"unicode/utf16"
)

// Value is a sealed interface for journal argument values.
// Only String, Int, Uint, Bool, Array and Object implement it.
// There is no float type.
type Value interface {
	value()
}

// String is a string value.
type String string

func (String) value() {}

// Int is a signed integer value (timestamps).
type Int int64

func (Int) value() {}

// Uint is an unsigned integer value (token amounts).
type Uint uint64

func (Uint) value() {}

// Bool is a boolean value.
type Bool bool

func (Bool) value() {}

// Array is an ordered list of values.
type Array []Value

func (Array) value() {}

// Object maps string keys to values.
// Use SortedKeys for deterministic iteration.
type Object map[string]Value

func (Object) value() {}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings by UTF-16 code units.
// Go's default string comparison is by UTF-8 bytes, which orders
// supplementary-plane characters differently.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	for i := 0; i < len(a16) && i < len(b16); i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	return len(a16) - len(b16)
}

// ToNative converts a Value into plain Go values (string, int64, uint64,
// bool, []any, map[string]any) for display.
func ToNative(v Value) any {
	switch val := v.(type) {
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Uint:
		return uint64(val)
	case Bool:
		return bool(val)
	case Array:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToNative(elem)
		}
		return out
	case Object:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToNative(elem)
		}
		return out
	default:
		return nil
	}
}

// FromNative converts plain Go values into a Value.
func FromNative(v any) (Value, error) {
	switch val := v.(type) {
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint64:
		return Uint(val), nil
	case bool:
		return Bool(val), nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			converted, err := FromNative(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = converted
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			converted, err := FromNative(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj[k] = converted
		}
		return obj, nil
	case nil:
		return nil, fmt.Errorf("null is forbidden")
	case float32, float64:
		return nil, fmt.Errorf("floats are forbidden: %v", val)
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// ParseObject decodes a JSON object, such as one produced by
// MarshalCanonical, into an Object. Integers decode as Int when they fit
// in int64 and as Uint otherwise.
func ParseObject(data []byte) (Object, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse object: %w", err)
	}
	v, err := fromDecoded(raw)
	if err != nil {
		return nil, fmt.Errorf("parse object: %w", err)
	}
	return v.(Object), nil
}

func fromDecoded(v any) (Value, error) {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return Int(i), nil
		}
		u, err := strconv.ParseUint(val.String(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("number %s: %w", val, err)
		}
		return Uint(u), nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			converted, err := fromDecoded(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = converted
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			converted, err := fromDecoded(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj[k] = converted
		}
		return obj, nil
	default:
		return FromNative(val)
	}
}
