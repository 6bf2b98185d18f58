package descriptor

import (
	"github.com/brettbedarf/nodetree"
	"github.com/cockroachdb/errors"
)

const (
	leafType = "Leaf"
	boxType  = "Box"
)

// leaf holds a single value of any kind
type leaf struct {
	nodetree.Binding
	value nodetree.Value
}

func newLeaf(fields map[string]nodetree.Value) (nodetree.Node, error) {
	v, ok := fields["value"]
	if !ok {
		return nil, errors.New(`missing field "value"`)
	}
	return &leaf{value: v}, nil
}

func (l *leaf) NodeType() string { return leafType }

func (l *leaf) EncodeFields() (map[string]nodetree.Value, error) {
	return map[string]nodetree.Value{"value": l.value}, nil
}

// box keeps every decoded field, exercising nested values
type box struct {
	nodetree.Binding
	fields map[string]nodetree.Value
}

func newBox(fields map[string]nodetree.Value) (nodetree.Node, error) {
	return &box{fields: fields}, nil
}

func (b *box) NodeType() string { return boxType }

func (b *box) EncodeFields() (map[string]nodetree.Value, error) {
	return b.fields, nil
}

func testRegistry() *Registry {
	r := NewRegistry()
	r.Register(leafType, newLeaf)
	r.Register(boxType, newBox)
	return r
}
