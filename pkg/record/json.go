package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// Parse decodes a single JSON document.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return Missing, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Missing, errors.New("unexpected data after top-level value")
	}
	return v, nil
}

// ParseStream decodes a sequence of concatenated or newline-delimited JSON
// documents, as written by arrow's RecordToJSON.
func ParseStream(r io.Reader) ([]Value, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var out []Value
	for {
		v, err := decodeValue(dec)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Missing, err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return NullValue(), nil
	case bool:
		return BoolValue(t), nil
	case string:
		return StringValue(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Missing, fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return NumberValue(f), nil
	case json.Delim:
		switch t {
		case '[':
			items := []Value{}
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return Missing, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Missing, err
			}
			return ArrayValue(items...), nil
		case '{':
			obj := NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Missing, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Missing, fmt.Errorf("invalid object key %v", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return Missing, err
				}
				obj.set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return Missing, err
			}
			return obj, nil
		}
	}
	return Missing, fmt.Errorf("unexpected token %v", tok)
}

// UnmarshalJSON implements json.Unmarshaler, preserving object key order.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// MarshalJSON implements json.Marshaler. Objects keep insertion order and a
// missing value renders as null.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeOrdered(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeOrdered(buf *bytes.Buffer, v Value) error {
	switch v.kind {
	case Undefined, Null:
		buf.WriteString("null")
	case Bool, Number:
		buf.WriteString(v.String())
	case String:
		b, err := json.Marshal(v.s)
		if err != nil {
			return err
		}
		buf.Write(b)
	case Array:
		buf.WriteByte('[')
		for i, item := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeOrdered(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Object:
		buf.WriteByte('{')
		for i, k := range v.obj.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := writeOrdered(buf, v.obj.values[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

func writeCanonical(sb *strings.Builder, v Value) {
	switch v.kind {
	case Undefined, Null:
		sb.WriteString("null")
	case Bool, Number:
		sb.WriteString(v.String())
	case String:
		b, _ := json.Marshal(v.s)
		sb.Write(b)
	case Array:
		sb.WriteByte('[')
		for i, item := range v.arr {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeCanonical(sb, item)
		}
		sb.WriteByte(']')
	case Object:
		keys := slices.Clone(v.obj.keys)
		slices.Sort(keys)
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			sb.Write(kb)
			sb.WriteByte(':')
			writeCanonical(sb, v.obj.values[k])
		}
		sb.WriteByte('}')
	}
}
