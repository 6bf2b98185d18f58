package nodetree

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// ValueKind discriminates the variants of Value
type ValueKind int

const (
	NullKind ValueKind = iota
	BoolKind
	IntKind
	FloatKind
	StringKind
	TimeKind
	ListKind
	MapKind
	NodeKind
)

var kindNames = [...]string{"null", "bool", "int", "float", "string", "time", "list", "map", "node"}

func (k ValueKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "ValueKind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a field value as carried between a node and its descriptor.
// The zero Value is null.
type Value struct {
	kind ValueKind
	b    bool
	i    int64
	f    float64
	s    string
	t    time.Time
	list []Value
	m    map[string]Value
	node Node
}

func Null() Value { return Value{} }
func Bool(b bool) Value { return Value{kind: BoolKind, b: b} }
func Int(i int64) Value { return Value{kind: IntKind, i: i} }
func Float(f float64) Value { return Value{kind: FloatKind, f: f} }
func String(s string) Value { return Value{kind: StringKind, s: s} }
func Time(t time.Time) Value { return Value{kind: TimeKind, t: t} }
func List(items ...Value) Value { return Value{kind: ListKind, list: items} }

func Map(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: MapKind, m: m}
}

// NodeValue wraps a nested node. A nil node is null.
func NodeValue(n Node) Value {
	if n == nil {
		return Null()
	}
	return Value{kind: NodeKind, node: n}
}

// Strings builds a list of string values
func Strings(items ...string) Value {
	vals := make([]Value, len(items))
	for i, s := range items {
		vals[i] = String(s)
	}
	return List(vals...)
}

// StringMap builds a map of string values
func StringMap(m map[string]string) Value {
	vals := make(map[string]Value, len(m))
	for k, s := range m {
		vals[k] = String(s)
	}
	return Map(vals)
}

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsNull() bool { return v.kind == NullKind }

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == BoolKind }
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == IntKind }
func (v Value) AsString() (string, bool) { return v.s, v.kind == StringKind }
func (v Value) AsTime() (time.Time, bool) { return v.t, v.kind == TimeKind }
func (v Value) AsList() ([]Value, bool) { return v.list, v.kind == ListKind }
func (v Value) AsMap() (map[string]Value, bool) { return v.m, v.kind == MapKind }
func (v Value) AsNode() (Node, bool) { return v.node, v.kind == NodeKind }

// AsFloat returns the value of a float, or an int widened to float
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case FloatKind:
		return v.f, true
	case IntKind:
		return float64(v.i), true
	}
	return 0, false
}

// AsStrings returns a list whose items are all strings
func (v Value) AsStrings() ([]string, bool) {
	if v.kind != ListKind {
		return nil, false
	}
	out := make([]string, 0, len(v.list))
	for _, item := range v.list {
		s, ok := item.AsString()
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// AsStringMap returns a map whose values are all strings
func (v Value) AsStringMap() (map[string]string, bool) {
	if v.kind != MapKind {
		return nil, false
	}
	out := make(map[string]string, len(v.m))
	for k, item := range v.m {
		s, ok := item.AsString()
		if !ok {
			return nil, false
		}
		out[k] = s
	}
	return out, true
}

// Equal reports deep equality. Times compare by instant and nested nodes by
// type tag and encoded fields; directory bindings are ignored.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case NullKind:
		return true
	case BoolKind:
		return v.b == o.b
	case IntKind:
		return v.i == o.i
	case FloatKind:
		return v.f == o.f
	case StringKind:
		return v.s == o.s
	case TimeKind:
		return v.t.Equal(o.t)
	case ListKind:
		return slices.EqualFunc(v.list, o.list, Value.Equal)
	case MapKind:
		return maps.EqualFunc(v.m, o.m, Value.Equal)
	case NodeKind:
		return NodesEqual(v.node, o.node)
	}
	return false
}

// NodesEqual compares two nodes by type tag and encoded fields
func NodesEqual(a, b Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.NodeType() != b.NodeType() {
		return false
	}
	af, aErr := a.EncodeFields()
	bf, bErr := b.EncodeFields()
	if aErr != nil || bErr != nil {
		return false
	}
	return maps.EqualFunc(af, bf, Value.Equal)
}

func (v Value) String() string {
	switch v.kind {
	case NullKind:
		return "null"
	case BoolKind:
		return strconv.FormatBool(v.b)
	case IntKind:
		return strconv.FormatInt(v.i, 10)
	case FloatKind:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case StringKind:
		return v.s
	case TimeKind:
		return v.t.Format(time.RFC3339Nano)
	case ListKind:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, " ") + "]"
	case MapKind:
		keys := slices.Sorted(maps.Keys(v.m))
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ":" + v.m[k].String()
		}
		return "{" + strings.Join(parts, " ") + "}"
	case NodeKind:
		if s, ok := v.node.(fmt.Stringer); ok {
			return s.String()
		}
		return v.node.NodeType()
	}
	return ""
}

// ValueOf converts a plain Go value. Unsupported types fail with ErrFieldEncoding.
func ValueOf(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return uintValue(uint64(t))
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		return uintValue(t)
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case string:
		return String(t), nil
	case time.Time:
		return Time(t), nil
	case Node:
		return NodeValue(t), nil
	case []string:
		return Strings(t...), nil
	case map[string]string:
		return StringMap(t), nil
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			v, err := ValueOf(item)
			if err != nil {
				return Value{}, errors.Wrapf(err, "index %d", i)
			}
			items[i] = v
		}
		return List(items...), nil
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, item := range t {
			v, err := ValueOf(item)
			if err != nil {
				return Value{}, errors.Wrapf(err, "key %q", k)
			}
			m[k] = v
		}
		return Map(m), nil
	}
	return Value{}, errors.Wrapf(ErrFieldEncoding, "unsupported type %T", x)
}

// MustValueOf is ValueOf for literals known to convert
func MustValueOf(x any) Value {
	v, err := ValueOf(x)
	if err != nil {
		panic(err)
	}
	return v
}

func uintValue(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Value{}, errors.Wrapf(ErrFieldEncoding, "integer %d overflows int64", u)
	}
	return Int(int64(u)), nil
}

// Fields converts a plain map into node fields
func Fields(m map[string]any) (map[string]Value, error) {
	out := make(map[string]Value, len(m))
	for k, x := range m {
		v, err := ValueOf(x)
		if err != nil {
			return nil, errors.Wrapf(err, "field %q", k)
		}
		out[k] = v
	}
	return out, nil
}
