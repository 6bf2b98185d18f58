// Package nodes holds the built-in node kinds. Register them with
// [RegisterBuiltins] before loading a tree that uses them.
package nodes

import (
	"maps"
	"time"

	"github.com/brettbedarf/nodetree"
	"github.com/cockroachdb/errors"
)

// RequiredChildrenKey persists the required children declaration
const RequiredChildrenKey = "required_children"

// Base carries the directory binding and the required children declaration
// shared by every built-in kind.
type Base struct {
	nodetree.Binding
	Required map[string]string // slot name -> type tag
}

func (b *Base) RequiredChildren() map[string]string {
	return maps.Clone(b.Required)
}

// Require declares slot as a required child of kind tag
func (b *Base) Require(slot, tag string) {
	if b.Required == nil {
		b.Required = map[string]string{}
	}
	b.Required[slot] = tag
}

func (b *Base) baseFields() map[string]nodetree.Value {
	return map[string]nodetree.Value{
		RequiredChildrenKey: nodetree.StringMap(b.Required),
	}
}

// decodeBase reads required_children, falling back to defaults when the
// descriptor does not carry it.
func (b *Base) decodeBase(fields map[string]nodetree.Value, defaults map[string]string) error {
	v, ok := fields[RequiredChildrenKey]
	if !ok || v.IsNull() {
		b.Required = maps.Clone(defaults)
		if b.Required == nil {
			b.Required = map[string]string{}
		}
		return nil
	}
	req, ok := v.AsStringMap()
	if !ok {
		return errors.Newf("%s must map slot names to type tags, got %s", RequiredChildrenKey, v.Kind())
	}
	b.Required = req
	return nil
}

func stringField(fields map[string]nodetree.Value, key string, required bool) (string, error) {
	v, ok := fields[key]
	if !ok || v.IsNull() {
		if required {
			return "", errors.Newf("missing field %q", key)
		}
		return "", nil
	}
	// Strings that happen to look like timestamps are decoded as times
	if t, ok := v.AsTime(); ok {
		return t.Format(time.RFC3339Nano), nil
	}
	s, ok := v.AsString()
	if !ok {
		return "", errors.Newf("field %q must be a string, got %s", key, v.Kind())
	}
	return s, nil
}

// timeField returns the field as a time, or fallback when absent
func timeField(fields map[string]nodetree.Value, key string, fallback time.Time) (time.Time, error) {
	v, ok := fields[key]
	if !ok || v.IsNull() {
		return fallback, nil
	}
	t, ok := v.AsTime()
	if !ok {
		return time.Time{}, errors.Newf("field %q must be a timestamp, got %s", key, v.Kind())
	}
	return t, nil
}

func stringsField(fields map[string]nodetree.Value, key string) ([]string, error) {
	v, ok := fields[key]
	if !ok || v.IsNull() {
		return nil, nil
	}
	out, ok := v.AsStrings()
	if !ok {
		return nil, errors.Newf("field %q must be a list of strings", key)
	}
	return out, nil
}
