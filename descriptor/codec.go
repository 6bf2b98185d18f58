// Package descriptor turns nodes into self-describing records and back.
//
// A record is a string-keyed map holding the node's type tag under [TypeKey]
// and one entry per declared field. Nested nodes become nested records,
// timestamps become [TimeFormat] text and floats are written so that they
// never read back as integers.
package descriptor

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/brettbedarf/nodetree"
	"github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"
)

const (
	// TypeKey holds the type tag in every record
	TypeKey = "node_type"
	// TimeFormat is the canonical textual timestamp
	TimeFormat = time.RFC3339Nano
)

// Encode produces the record for n
func Encode(n nodetree.Node) (map[string]any, error) {
	fields, err := n.EncodeFields()
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "encode %s fields", n.NodeType()), nodetree.ErrFieldEncoding)
	}

	rec := make(map[string]any, len(fields)+1)
	for key, v := range fields {
		if key == TypeKey {
			return nil, errors.Wrapf(nodetree.ErrFieldEncoding, "%s declares reserved field %q", n.NodeType(), TypeKey)
		}
		enc, err := encodeValue(v)
		if err != nil {
			return nil, errors.Wrapf(err, "%s field %q", n.NodeType(), key)
		}
		rec[key] = enc
	}
	rec[TypeKey] = n.NodeType()
	return rec, nil
}

func encodeValue(v nodetree.Value) (any, error) {
	switch v.Kind() {
	case nodetree.NullKind:
		return nil, nil
	case nodetree.BoolKind:
		b, _ := v.AsBool()
		return b, nil
	case nodetree.IntKind:
		i, _ := v.AsInt()
		return i, nil
	case nodetree.FloatKind:
		f, _ := v.AsFloat()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, errors.Wrapf(nodetree.ErrFieldEncoding, "float %v", f)
		}
		return formatFloat(f), nil
	case nodetree.StringKind:
		s, _ := v.AsString()
		return s, nil
	case nodetree.TimeKind:
		t, _ := v.AsTime()
		return t.Format(TimeFormat), nil
	case nodetree.ListKind:
		items, _ := v.AsList()
		out := make([]any, len(items))
		for i, item := range items {
			enc, err := encodeValue(item)
			if err != nil {
				return nil, errors.Wrapf(err, "index %d", i)
			}
			out[i] = enc
		}
		return out, nil
	case nodetree.MapKind:
		m, _ := v.AsMap()
		out := make(map[string]any, len(m))
		for k, item := range m {
			enc, err := encodeValue(item)
			if err != nil {
				return nil, errors.Wrapf(err, "key %q", k)
			}
			out[k] = enc
		}
		return out, nil
	case nodetree.NodeKind:
		n, _ := v.AsNode()
		return Encode(n)
	}
	return nil, errors.Wrapf(nodetree.ErrFieldEncoding, "value kind %s", v.Kind())
}

// formatFloat keeps a fraction or exponent in the text so integral floats
// are not decoded as integers.
func formatFloat(f float64) json.Number {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return json.Number(s)
}

// Decode rebuilds a node from rec using the constructors registered in r.
// Nested records are decoded only when their own type tag is registered.
func (r *Registry) Decode(rec map[string]any) (nodetree.Node, error) {
	raw, ok := rec[TypeKey]
	if !ok {
		return nil, errors.Wrapf(nodetree.ErrUnknownNodeType, "record has no %q", TypeKey)
	}
	tag, ok := raw.(string)
	if !ok {
		return nil, errors.Wrapf(nodetree.ErrUnknownNodeType, "%q is %T, not a string", TypeKey, raw)
	}
	if !r.Has(tag) {
		return nil, errors.Wrapf(nodetree.ErrUnknownNodeType, "%q", tag)
	}

	fields := make(map[string]nodetree.Value, len(rec))
	for key, x := range rec {
		if key == TypeKey {
			continue
		}
		v, err := r.decodeValue(x)
		if err != nil {
			return nil, errors.Wrapf(err, "%s field %q", tag, key)
		}
		fields[key] = v
	}
	return r.New(tag, fields)
}

func (r *Registry) decodeValue(x any) (nodetree.Value, error) {
	switch t := x.(type) {
	case nil:
		return nodetree.Null(), nil
	case bool:
		return nodetree.Bool(t), nil
	case json.Number:
		return decodeNumber(string(t))
	case jsoniter.Number:
		return decodeNumber(string(t))
	case float64:
		return nodetree.Float(t), nil
	case int:
		return nodetree.Int(int64(t)), nil
	case int64:
		return nodetree.Int(t), nil
	case string:
		if ts, ok := ParseTime(t); ok {
			return nodetree.Time(ts), nil
		}
		return nodetree.String(t), nil
	case []any:
		items := make([]nodetree.Value, len(t))
		for i, item := range t {
			v, err := r.decodeValue(item)
			if err != nil {
				return nodetree.Value{}, errors.Wrapf(err, "index %d", i)
			}
			items[i] = v
		}
		return nodetree.List(items...), nil
	case map[string]any:
		if tag, ok := t[TypeKey].(string); ok && r.Has(tag) {
			n, err := r.Decode(t)
			if err != nil {
				return nodetree.Value{}, err
			}
			return nodetree.NodeValue(n), nil
		}
		m := make(map[string]nodetree.Value, len(t))
		for k, item := range t {
			v, err := r.decodeValue(item)
			if err != nil {
				return nodetree.Value{}, errors.Wrapf(err, "key %q", k)
			}
			m[k] = v
		}
		return nodetree.Map(m), nil
	}
	return nodetree.Value{}, errors.Wrapf(nodetree.ErrConstruction, "unsupported record value %T", x)
}

// ParseTime reports whether s is a timestamp in canonical [TimeFormat] form.
// Text the parser accepts but would format differently, such as "+00:00"
// for UTC, stays a string so it reads back unchanged.
func ParseTime(s string) (time.Time, bool) {
	ts, err := time.Parse(TimeFormat, s)
	if err != nil || ts.Format(TimeFormat) != s {
		return time.Time{}, false
	}
	return ts, true
}

func decodeNumber(s string) (nodetree.Value, error) {
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return nodetree.Int(i), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nodetree.Value{}, errors.Mark(errors.Wrapf(err, "number %q", s), nodetree.ErrCorruptDescriptor)
	}
	return nodetree.Float(f), nil
}
