package nodetree

import "time"

// Node is one addressable entity in the hierarchy. Concrete kinds are
// registered by type tag (see descriptor.Registry) and persisted as a
// descriptor file inside the directory they are bound to.
type Node interface {
	// NodeType returns the type tag written to the descriptor's node_type key
	NodeType() string

	// Dir returns the bound directory or "" when the node is unbound
	Dir() string

	// SetDir rebinds the node. It does not touch the filesystem.
	SetDir(dir string)

	// EncodeFields returns the node's declared fields keyed by descriptor key.
	// The directory binding is never part of the result.
	EncodeFields() (map[string]Value, error)
}

// Constructor builds an unbound instance of a concrete kind from decoded fields.
// Unknown keys must be ignored so newer descriptors stay readable.
type Constructor func(fields map[string]Value) (Node, error)

// ChildRequirer is implemented by kinds that declare required children
// as slot name -> type tag.
type ChildRequirer interface {
	RequiredChildren() map[string]string
}

// Checker is implemented by kinds with extra validity rules. It is combined
// with the required children check, never a replacement for it.
type Checker interface {
	Check() error
}

// BeforeSaver is implemented by kinds that stamp fields right before their
// descriptor is written.
type BeforeSaver interface {
	BeforeSave(now time.Time)
}

// Binding is embedded by concrete kinds to carry the directory binding.
type Binding struct {
	dir string
}

func (b *Binding) Dir() string {
	return b.dir
}

func (b *Binding) SetDir(dir string) {
	b.dir = dir
}

// IsBound reports whether n has a directory binding
func IsBound(n Node) bool {
	return n != nil && n.Dir() != ""
}
