package main

import (
	"math"
	"strconv"
	"strings"

	"github.com/brettbedarf/nodetree"
	"github.com/brettbedarf/nodetree/descriptor"
	"github.com/brettbedarf/nodetree/nodes"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

// fieldFlags collects --set and --require values for commands that build nodes
type fieldFlags struct {
	set     []string
	require []string
}

func (f *fieldFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.set, "set", nil,
		"Field as key=value; ints, floats, bools, null and timestamps are detected")
	cmd.Flags().StringArrayVar(&f.require, "require", nil,
		"Required child as slot=Type (replaces the kind's defaults)")
}

func (f *fieldFlags) fields() (map[string]nodetree.Value, error) {
	fields := make(map[string]nodetree.Value, len(f.set)+1)
	for _, kv := range f.set {
		key, raw, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, errors.Newf("--set %q must be key=value", kv)
		}
		if key == descriptor.TypeKey {
			return nil, errors.Newf("--set cannot change %s", descriptor.TypeKey)
		}
		fields[key] = parseScalar(raw)
	}

	if len(f.require) > 0 {
		required := make(map[string]string, len(f.require))
		for _, kv := range f.require {
			slot, tag, ok := strings.Cut(kv, "=")
			if !ok || slot == "" || tag == "" {
				return nil, errors.Newf("--require %q must be slot=Type", kv)
			}
			required[slot] = tag
		}
		fields[nodes.RequiredChildrenKey] = nodetree.StringMap(required)
	}
	return fields, nil
}

// parseScalar guesses the most specific value for command line text.
// Quote a value ("'20'") to force a string.
func parseScalar(raw string) nodetree.Value {
	if len(raw) >= 2 && raw[0] == '\'' && raw[len(raw)-1] == '\'' {
		return nodetree.String(raw[1 : len(raw)-1])
	}
	if raw == "null" {
		return nodetree.Null()
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return nodetree.Int(i)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return nodetree.Float(f)
	}
	if raw == "true" || raw == "false" {
		return nodetree.Bool(raw == "true")
	}
	if t, ok := descriptor.ParseTime(raw); ok {
		return nodetree.Time(t)
	}
	return nodetree.String(raw)
}
