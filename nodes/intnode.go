package nodes

import (
	"maps"

	"github.com/brettbedarf/nodetree"
	"github.com/cockroachdb/errors"
)

const IntNodeType = "BaseIntNode"

// IntNode is a leaf holding a single integer value. Any value is accepted at
// construction; a non-integer value makes the node invalid.
type IntNode struct {
	Base
	Value nodetree.Value
}

// NewIntNode returns an unbound IntNode holding v
func NewIntNode(v int64) *IntNode {
	return &IntNode{Base: Base{Required: map[string]string{}}, Value: nodetree.Int(v)}
}

func newIntNodeFromFields(fields map[string]nodetree.Value) (nodetree.Node, error) {
	v, ok := fields["value"]
	if !ok {
		return nil, errors.New(`missing field "value"`)
	}
	n := &IntNode{Value: v}
	if err := n.decodeBase(fields, nil); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *IntNode) NodeType() string { return IntNodeType }

func (n *IntNode) EncodeFields() (map[string]nodetree.Value, error) {
	fields := n.baseFields()
	fields["value"] = n.Value
	return fields, nil
}

// Int returns the value when it is an integer
func (n *IntNode) Int() (int64, bool) {
	return n.Value.AsInt()
}

func (n *IntNode) Check() error {
	if _, ok := n.Value.AsInt(); !ok {
		return errors.Newf("value %s is a %s, not an int", n.Value, n.Value.Kind())
	}
	return nil
}

func (n *IntNode) String() string {
	return n.Value.String()
}

const WithChildrenNodeType = "NodeWithChildren"

// DefaultRequiredChildren is applied to a NodeWithChildren whose descriptor
// does not declare its own.
func DefaultRequiredChildren() map[string]string {
	return map[string]string{"child1": IntNodeType}
}

// WithChildren is a container node whose validity depends on its required children
type WithChildren struct {
	Base
}

// NewWithChildren returns an unbound node requiring required, or the
// defaults when required is nil.
func NewWithChildren(required map[string]string) *WithChildren {
	if required == nil {
		required = DefaultRequiredChildren()
	}
	return &WithChildren{Base: Base{Required: maps.Clone(required)}}
}

func newWithChildrenFromFields(fields map[string]nodetree.Value) (nodetree.Node, error) {
	n := &WithChildren{}
	if err := n.decodeBase(fields, DefaultRequiredChildren()); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *WithChildren) NodeType() string { return WithChildrenNodeType }

func (n *WithChildren) EncodeFields() (map[string]nodetree.Value, error) {
	return n.baseFields(), nil
}

func (n *WithChildren) String() string {
	return WithChildrenNodeType
}
