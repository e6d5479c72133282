// Package record provides the schema-less value model used for dataset records.
//
// A record is an arbitrary tree of objects, arrays and scalar leaves. Objects
// keep the order in which their keys were first seen so that field discovery
// is deterministic across runs.
package record

import (
	"strconv"
	"strings"
)

// Kind identifies the JSON type held by a Value.
type Kind uint8

const (
	// Undefined marks a missing value. It is never produced by decoding.
	Undefined Kind = iota
	Null
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "undefined"
	}
}

// Value is a recursive tagged value. The zero Value is Missing.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	arr  []Value
	obj  *object
}

type object struct {
	keys   []string
	values map[string]Value
}

// Missing is the value returned for a path that does not exist.
var Missing = Value{}

// NullValue returns a JSON null.
func NullValue() Value { return Value{kind: Null} }

// BoolValue wraps a boolean.
func BoolValue(b bool) Value { return Value{kind: Bool, b: b} }

// NumberValue wraps a number.
func NumberValue(n float64) Value { return Value{kind: Number, n: n} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: String, s: s} }

// ArrayValue wraps a list of values.
func ArrayValue(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: Array, arr: items}
}

// NewObject returns an empty object value.
func NewObject() Value {
	return Value{kind: Object, obj: &object{values: make(map[string]Value)}}
}

// ObjectOf builds an object from alternating key/value pairs, preserving order.
// It is mostly useful in tests.
func ObjectOf(pairs ...any) Value {
	o := NewObject()
	for i := 0; i+1 < len(pairs); i += 2 {
		o = o.With(pairs[i].(string), From(pairs[i+1]))
	}
	return o
}

// From converts plain Go values (as produced by encoding/json or literals in
// tests) into a Value. Map keys are sorted since Go maps carry no order.
func From(v any) Value {
	switch t := v.(type) {
	case nil:
		return NullValue()
	case Value:
		return t
	case bool:
		return BoolValue(t)
	case string:
		return StringValue(t)
	case int:
		return NumberValue(float64(t))
	case int32:
		return NumberValue(float64(t))
	case int64:
		return NumberValue(float64(t))
	case float32:
		return NumberValue(float64(t))
	case float64:
		return NumberValue(t)
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = From(item)
		}
		return ArrayValue(items...)
	case []Value:
		return ArrayValue(t...)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sortStrings(keys)
		o := NewObject()
		for _, k := range keys {
			o = o.With(k, From(t[k]))
		}
		return o
	default:
		return Missing
	}
}

// Kind returns the type tag of the value.
func (v Value) Kind() Kind { return v.kind }

// IsMissing reports whether the value is Undefined.
func (v Value) IsMissing() bool { return v.kind == Undefined }

// IsObject reports whether the value is an object.
func (v Value) IsObject() bool { return v.kind == Object }

// IsArray reports whether the value is an array.
func (v Value) IsArray() bool { return v.kind == Array }

// Bool returns the boolean payload.
func (v Value) Bool() bool { return v.b }

// Number returns the numeric payload.
func (v Value) Number() float64 { return v.n }

// Str returns the string payload.
func (v Value) Str() string { return v.s }

// Items returns the array elements.
func (v Value) Items() []Value { return v.arr }

// Len returns the number of elements of an array or keys of an object.
func (v Value) Len() int {
	switch v.kind {
	case Array:
		return len(v.arr)
	case Object:
		return len(v.obj.keys)
	}
	return 0
}

// Keys returns the object keys in insertion order.
func (v Value) Keys() []string {
	if v.kind != Object {
		return nil
	}
	return v.obj.keys
}

// Field returns the member stored under key.
func (v Value) Field(key string) (Value, bool) {
	if v.kind != Object {
		return Missing, false
	}
	val, ok := v.obj.values[key]
	return val, ok
}

// With returns a copy of the object with key set to val. An existing key keeps
// its original position.
func (v Value) With(key string, val Value) Value {
	if v.kind != Object {
		v = NewObject()
	}
	next := &object{
		keys:   make([]string, len(v.obj.keys), len(v.obj.keys)+1),
		values: make(map[string]Value, len(v.obj.values)+1),
	}
	copy(next.keys, v.obj.keys)
	for k, existing := range v.obj.values {
		next.values[k] = existing
	}
	if _, ok := next.values[key]; !ok {
		next.keys = append(next.keys, key)
	}
	next.values[key] = val
	return Value{kind: Object, obj: next}
}

// set mutates the object in place. Only used while decoding a fresh value.
func (v *Value) set(key string, val Value) {
	if _, ok := v.obj.values[key]; !ok {
		v.obj.keys = append(v.obj.keys, key)
	}
	v.obj.values[key] = val
}

// Get walks path through nested objects. It reports false when any segment is
// absent or traverses a non-object.
func (v Value) Get(path []string) (Value, bool) {
	if len(path) == 0 {
		return Missing, false
	}
	cur := v
	for _, seg := range path {
		next, ok := cur.Field(seg)
		if !ok {
			return Missing, false
		}
		cur = next
	}
	return cur, true
}

// String renders the value the way it participates in identity keys:
// strings are raw, numbers use the shortest representation and composite
// values use canonical JSON.
func (v Value) String() string {
	switch v.kind {
	case Undefined:
		return "undefined"
	case Null:
		return "null"
	case Bool:
		return strconv.FormatBool(v.b)
	case Number:
		return formatNumber(v.n)
	case String:
		return v.s
	default:
		var sb strings.Builder
		writeCanonical(&sb, v)
		return sb.String()
	}
}

// Canonical returns the JSON encoding of v with object keys sorted, so two
// deep-equal values always serialize identically.
func (v Value) Canonical() string {
	var sb strings.Builder
	writeCanonical(&sb, v)
	return sb.String()
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
