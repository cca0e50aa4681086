package sc2ranks

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

const (
	keyPortrait = "portrait"
	keyTeams    = "teams"
	keyMembers  = "members"
)

// Node is one JSON object returned by sc2ranks. Its field set is whatever the API sent;
// portrait, teams and members are mapped into nested nodes.
type Node struct {
	fields map[string]Value
}

// NewNode maps a decoded JSON object. An empty or nil map gives a node with no fields.
func NewNode(raw map[string]any) *Node {
	n := &Node{fields: make(map[string]Value, len(raw))}

	for key, value := range raw {
		switch key {
		case keyPortrait:
			if m, ok := value.(map[string]any); ok {
				n.fields[key] = ValueOf(NewNode(m))
				continue
			}
		case keyTeams, keyMembers:
			if list, ok := value.([]any); ok {
				n.fields[key] = ValueOf(mapList(list))
				continue
			}
		}
		n.fields[key] = ValueOf(value)
	}

	return n
}

// mapList maps every non-empty object of list, keeping order.
func mapList(list []any) []*Node {
	nodes := make([]*Node, 0, len(list))
	for _, item := range list {
		if isEmpty(item) {
			continue
		}
		// anything else than an object cannot become a node
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		nodes = append(nodes, NewNode(m))
	}
	return nodes
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case string:
		return t == ""
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 0
	case float64:
		return t == 0
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	default:
		return false
	}
}

// DecodeNode parses a JSON object into a node.
func DecodeNode(data []byte) (*Node, error) {
	raw, err := decodeJSON(data)
	if err != nil {
		return nil, &DecodeError{Body: truncate(data), Err: err}
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, &DecodeError{Err: errUnexpectedShape}
	}
	return NewNode(m), nil
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (n *Node) Get(key string) (Value, bool) {
	if n == nil {
		return Value{}, false
	}
	v, ok := n.fields[key]
	return v, ok
}

func (n *Node) Has(key string) bool {
	_, ok := n.Get(key)
	return ok
}

// Set stores v under key. Useful for building expected nodes; the client never mutates
// nodes after returning them. Set on a nil node does nothing.
func (n *Node) Set(key string, v any) {
	if n == nil {
		return
	}
	if n.fields == nil {
		n.fields = make(map[string]Value)
	}
	n.fields[key] = ValueOf(v)
}

// Keys returns the field names in sorted order.
func (n *Node) Keys() []string {
	if n == nil {
		return nil
	}
	keys := make([]string, 0, len(n.fields))
	for k := range n.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	return len(n.fields)
}

func (n *Node) GetString(key string) string {
	v, _ := n.Get(key)
	s, _ := v.AsString()
	return s
}

func (n *Node) GetInt(key string) int64 {
	v, _ := n.Get(key)
	i, _ := v.AsInt()
	return i
}

func (n *Node) GetFloat(key string) float64 {
	v, _ := n.Get(key)
	f, _ := v.AsFloat()
	return f
}

func (n *Node) GetBool(key string) bool {
	v, _ := n.Get(key)
	b, _ := v.AsBool()
	return b
}

// Child returns the nested node stored under key, or nil.
func (n *Node) Child(key string) *Node {
	v, _ := n.Get(key)
	child, _ := v.Node()
	return child
}

// Children returns the nested nodes stored under key, or nil.
func (n *Node) Children(key string) []*Node {
	v, _ := n.Get(key)
	children, _ := v.Nodes()
	return children
}

func (n *Node) Name() string { return n.GetString("name") }
func (n *Node) Region() string { return n.GetString("region") }
func (n *Node) BnetID() int64 { return n.GetInt("bnet_id") }
func (n *Node) ID() int64 { return n.GetInt("id") }
func (n *Node) CharacterCode() string { return n.GetString("character_code") }
func (n *Node) AchievementPoints() int64 { return n.GetInt("achievement_points") }
func (n *Node) Total() int64 { return n.GetInt("total") }
func (n *Node) Portrait() *Node { return n.Child(keyPortrait) }
func (n *Node) Teams() []*Node { return n.Children(keyTeams) }
func (n *Node) Members() []*Node { return n.Children(keyMembers) }
func (n *Node) Bracket() Bracket { return Bracket(n.GetInt("bracket")) }
func (n *Node) League() string { return n.GetString("league") }
func (n *Node) Points() int64 { return n.GetInt("points") }
func (n *Node) DivisionRank() int64 { return n.GetInt("division_rank") }
func (n *Node) UpdatedAt() string { return n.GetString("updated_at") }
func (n *Node) IsRandom() bool { return n.GetBool("is_random") }

// Equal reports whether both nodes hold the same keys with equal values.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n.Len() == 0 && other.Len() == 0
	}
	if len(n.fields) != len(other.fields) {
		return false
	}
	for key, value := range n.fields {
		theirs, ok := other.fields[key]
		if !ok || !value.Equal(theirs) {
			return false
		}
	}
	return true
}

func (n *Node) MarshalJSON() ([]byte, error) {
	if n == nil {
		return []byte("null"), nil
	}
	return json.Marshal(n.fields)
}

func (n *Node) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeNode(data)
	if err != nil {
		return err
	}
	*n = *decoded
	return nil
}

func (n *Node) String() string {
	var b strings.Builder
	b.WriteString("<Node(")
	for i, key := range n.Keys() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(n.fields[key].format())
	}
	b.WriteString(")>")
	return b.String()
}
