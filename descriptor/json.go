package descriptor

import (
	"bytes"
	"strings"

	"github.com/brettbedarf/nodetree"
	"github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"
	"github.com/tailscale/hujson"
)

// Sorted keys make an unchanged record serialize to identical bytes
var jsonAPI = jsoniter.Config{
	EscapeHTML:  false,
	SortMapKeys: true,
	UseNumber:   true,
}.Froze()

// Marshal serializes rec as the descriptor file body, indented by indent
// spaces (0 writes compact JSON) and terminated by a newline.
func Marshal(rec map[string]any, indent int) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if indent > 0 {
		data, err = jsonAPI.MarshalIndent(rec, "", strings.Repeat(" ", indent))
	} else {
		data, err = jsonAPI.Marshal(rec)
	}
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "marshal descriptor"), nodetree.ErrFieldEncoding)
	}
	return append(data, '\n'), nil
}

// Unmarshal parses a descriptor file body. Comments and trailing commas are
// tolerated so descriptors can be edited by hand.
func Unmarshal(data []byte) (map[string]any, error) {
	std, err := hujson.Standardize(bytes.Clone(data))
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "parse descriptor"), nodetree.ErrCorruptDescriptor)
	}

	var rec map[string]any
	if err := jsonAPI.Unmarshal(std, &rec); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode descriptor"), nodetree.ErrCorruptDescriptor)
	}
	if rec == nil {
		return nil, errors.Wrap(nodetree.ErrCorruptDescriptor, "descriptor is not an object")
	}
	return rec, nil
}

// Read decodes a descriptor file body into a node
func (r *Registry) Read(data []byte) (nodetree.Node, error) {
	rec, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return r.Decode(rec)
}

// Write encodes n into a descriptor file body
func Write(n nodetree.Node, indent int) ([]byte, error) {
	rec, err := Encode(n)
	if err != nil {
		return nil, err
	}
	return Marshal(rec, indent)
}
