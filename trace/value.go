package trace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Value is a sealed interface representing an opaque domain payload.
// Only Null, String, Int, Float, Bool, Array, and Object implement it.
// The core never interprets a Value - it is carried, copied, and serialized,
// nothing more.
//
// A nil Value means "absent"; Null means an explicit JSON null.
type Value interface {
	value() // Sealed - only types in this package implement it
}

// Null represents an explicit JSON null payload.
// Using a concrete type (rather than a nil Value) distinguishes "the caller
// supplied null" from "the caller supplied nothing".
type Null struct{}

func (Null) value() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String represents a string payload.
type String string

func (String) value() {}

// Int represents an integer payload. Always int64.
type Int int64

func (Int) value() {}

// Float represents a floating-point payload.
type Float float64

func (Float) value() {}

// Bool represents a boolean payload.
type Bool bool

func (Bool) value() {}

// Array represents an ordered sequence of Values.
type Array []Value

func (Array) value() {}

// Object represents a mapping from string keys to Values.
type Object map[string]Value

func (Object) value() {}

// CloneValue returns a deep copy of v. Scalars are copied by value; Array
// and Object are copied recursively. A nil input returns nil.
func CloneValue(v Value) Value {
	switch val := v.(type) {
	case nil:
		return nil
	case Null, String, Int, Float, Bool:
		return val
	case Array:
		out := make(Array, len(val))
		for i, elem := range val {
			out[i] = CloneValue(elem)
		}
		return out
	case Object:
		out := make(Object, len(val))
		for k, elem := range val {
			out[k] = CloneValue(elem)
		}
		return out
	default:
		// Unreachable for values constructed through this package.
		return val
	}
}

// Clone returns a deep copy of the object. A nil Object clones to nil.
func (obj Object) Clone() Object {
	if obj == nil {
		return nil
	}
	return CloneValue(obj).(Object)
}

// FromGo converts a plain Go value (as produced by encoding/json or yaml
// decoding into any) to a Value. Supported inputs: nil, bool, string, all
// integer and float kinds, json.Number, []any, map[string]any, and values
// already implementing Value.
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return CloneValue(val), nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("integer out of int64 range: %d", val)
		}
		return Int(val), nil
	case float32:
		return Float(val), nil
	case float64:
		return Float(val), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("unparseable number: %s", val)
		}
		return Float(f), nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			converted, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = converted
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			converted, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = converted
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported payload type: %T", v)
	}
}

// UnmarshalValue decodes JSON bytes into a Value. Numbers with a fractional
// or exponent part become Float; whole numbers become Int.
func UnmarshalValue(data []byte) (Value, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty JSON value")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return String(s), nil

	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return Bool(b), nil

	case 'n':
		return Null{}, nil

	case '[':
		var arr Array
		if err := json.Unmarshal(data, &arr); err != nil {
			return nil, err
		}
		return arr, nil

	case '{':
		var obj Object
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, err
		}
		return obj, nil

	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, err
		}
		if i, err := n.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("unparseable number: %s", string(data))
		}
		return Float(f), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler for Object.
func (obj *Object) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*obj = make(Object, len(raw))
	for k, v := range raw {
		val, err := UnmarshalValue(v)
		if err != nil {
			return fmt.Errorf("object key %q: %w", k, err)
		}
		(*obj)[k] = val
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler for Array.
func (arr *Array) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*arr = make(Array, len(raw))
	for i, v := range raw {
		val, err := UnmarshalValue(v)
		if err != nil {
			return fmt.Errorf("array index %d: %w", i, err)
		}
		(*arr)[i] = val
	}
	return nil
}

// valueOrNil decodes a raw payload field from a shadow struct. An absent
// field decodes to nil, an explicit JSON null to Null{}, so payloads
// round-trip without losing the absent/null distinction.
func valueOrNil(raw json.RawMessage) (Value, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if bytes.Equal(raw, []byte("null")) {
		return Null{}, nil
	}
	return UnmarshalValue(raw)
}
