package sc2ranks

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
)

type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	// KindRaw holds an object or array that is not one of the mapped shapes.
	KindRaw
	KindNode
	KindNodes
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindRaw:
		return "raw"
	case KindNode:
		return "node"
	case KindNodes:
		return "nodes"
	default:
		return "unknown"
	}
}

// Value is a single field of a Node.
type Value struct {
	kind  Kind
	raw   any
	node  *Node
	nodes []*Node
}

// ValueOf wraps a decoded JSON value. Nodes and node slices are kept as such.
func ValueOf(v any) Value {
	switch t := v.(type) {
	case nil:
		return Value{kind: KindNull}
	case Value:
		return t
	case *Node:
		if t == nil {
			return Value{kind: KindNull}
		}
		return Value{kind: KindNode, node: t}
	case []*Node:
		return Value{kind: KindNodes, nodes: t}
	case bool:
		return Value{kind: KindBool, raw: t}
	case string:
		return Value{kind: KindString, raw: t}
	case json.Number:
		return Value{kind: KindNumber, raw: t}
	case int:
		return Value{kind: KindNumber, raw: json.Number(strconv.Itoa(t))}
	case int64:
		return Value{kind: KindNumber, raw: json.Number(strconv.FormatInt(t, 10))}
	case float64:
		return Value{kind: KindNumber, raw: json.Number(strconv.FormatFloat(t, 'f', -1, 64))}
	default:
		return Value{kind: KindRaw, raw: t}
	}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// Raw returns the underlying decoded JSON value for scalar and raw kinds.
func (v Value) Raw() any {
	switch v.kind {
	case KindNode:
		return v.node
	case KindNodes:
		return v.nodes
	default:
		return v.raw
	}
}

func (v Value) Node() (*Node, bool) {
	return v.node, v.kind == KindNode
}

func (v Value) Nodes() ([]*Node, bool) {
	return v.nodes, v.kind == KindNodes
}

func (v Value) AsString() (string, bool) {
	switch v.kind {
	case KindString:
		return v.raw.(string), true
	case KindNumber:
		return v.raw.(json.Number).String(), true
	default:
		return "", false
	}
}

func (v Value) AsBool() (bool, bool) {
	b, ok := v.raw.(bool)
	return b, ok && v.kind == KindBool
}

// AsInt converts numbers and numeric strings; the API is not consistent about which it sends.
func (v Value) AsInt() (int64, bool) {
	switch v.kind {
	case KindNumber:
		n := v.raw.(json.Number)
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return int64(f), true
		}
	case KindString:
		if i, err := strconv.ParseInt(v.raw.(string), 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindNumber:
		f, err := v.raw.(json.Number).Float64()
		return f, err == nil
	case KindString:
		f, err := strconv.ParseFloat(v.raw.(string), 64)
		return f, err == nil
	}
	return 0, false
}

// Equal compares two values structurally. Numbers compare by numeric value.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindNumber:
		// ids exceed 2^53, compare them as integers when both sides are integral
		ai, aerr := v.raw.(json.Number).Int64()
		bi, berr := other.raw.(json.Number).Int64()
		if aerr == nil && berr == nil {
			return ai == bi
		}
		a, _ := v.AsFloat()
		b, _ := other.AsFloat()
		return a == b
	case KindNode:
		return v.node.Equal(other.node)
	case KindNodes:
		if len(v.nodes) != len(other.nodes) {
			return false
		}
		for i := range v.nodes {
			if !v.nodes[i].Equal(other.nodes[i]) {
				return false
			}
		}
		return true
	case KindRaw:
		return reflect.DeepEqual(normalize(v.raw), normalize(other.raw))
	default:
		return v.raw == other.raw
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindNode:
		return json.Marshal(v.node)
	case KindNodes:
		return json.Marshal(v.nodes)
	default:
		return json.Marshal(v.raw)
	}
}

func (v Value) format() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindNode:
		return v.node.String()
	case KindNodes:
		return fmt.Sprint(v.nodes)
	default:
		return fmt.Sprint(v.raw)
	}
}

// normalize turns numbers inside raw values into float64 so that values built by
// callers with plain Go ints compare equal to decoded json.Numbers.
func normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		f, _ := t.Float64()
		return f
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalize(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	default:
		return v
	}
}
