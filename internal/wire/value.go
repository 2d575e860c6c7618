// Package wire holds the dialect-neutral internal request/response model
// that every OpenAI, Anthropic, and Ollama codec decodes into and encodes
// from, plus the duck-typed JSON variant used to carry open-ended wire
// fields (tool arguments, message content parts) without resorting to
// bare `any`.
package wire

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ValueKind tags which shape a Value holds.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// Value is a tagged variant over the JSON data model, replacing
// duck-typed `any`/`map[string]any` with an explicit, exhaustively
// switchable type.
type Value struct {
	kind ValueKind
	b    bool
	n    float64
	s    string
	arr  []Value
	obj  map[string]Value
}

func Null() Value             { return Value{kind: KindNull} }
func Bool(b bool) Value       { return Value{kind: KindBool, b: b} }
func Number(n float64) Value  { return Value{kind: KindNumber, n: n} }
func String(s string) Value   { return Value{kind: KindString, s: s} }
func Array(v []Value) Value   { return Value{kind: KindArray, arr: v} }
func Object(m map[string]Value) Value {
	return Value{kind: KindObject, obj: m}
}

func (v Value) Kind() ValueKind        { return v.kind }
func (v Value) IsNull() bool           { return v.kind == KindNull }
func (v Value) Bool() bool             { return v.b }
func (v Value) Number() float64        { return v.n }
func (v Value) Str() string            { return v.s }
func (v Value) Items() []Value         { return v.arr }
func (v Value) Fields() map[string]Value { return v.obj }

// Get returns the field named key from an Object Value, or Null if the
// Value is not an object or has no such key.
func (v Value) Get(key string) Value {
	if v.kind != KindObject {
		return Null()
	}
	if f, ok := v.obj[key]; ok {
		return f
	}
	return Null()
}

// ParseValue decodes raw JSON into a Value.
func ParseValue(data []byte) (Value, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Value{}, err
	}
	return fromAny(raw), nil
}

func fromAny(raw any) Value {
	switch t := raw.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case float64:
		return Number(t)
	case string:
		return String(t)
	case []any:
		items := make([]Value, 0, len(t))
		for _, e := range t {
			items = append(items, fromAny(e))
		}
		return Array(items)
	case map[string]any:
		obj := make(map[string]Value, len(t))
		for k, e := range t {
			obj[k] = fromAny(e)
		}
		return Object(obj)
	default:
		return Null()
	}
}

// MarshalJSON implements json.Marshaler so a Value can be serialized
// back to wire JSON directly (used when re-serializing structured tool
// arguments into a JSON string, per §3's ToolCall convention).
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		if v.b {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case KindNumber:
		return json.Marshal(v.n)
	case KindString:
		return json.Marshal(v.s)
	case KindArray:
		return json.Marshal(v.arr)
	case KindObject:
		// Sort keys for deterministic output.
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf := []byte{'{'}
		for i, k := range keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			kb, _ := json.Marshal(k)
			buf = append(buf, kb...)
			buf = append(buf, ':')
			vb, err := v.obj[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf = append(buf, vb...)
		}
		buf = append(buf, '}')
		return buf, nil
	default:
		return nil, fmt.Errorf("wire: unknown value kind %d", v.kind)
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseValue(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
