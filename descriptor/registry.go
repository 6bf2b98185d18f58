package descriptor

import (
	"slices"

	"github.com/brettbedarf/nodetree"
	"github.com/brettbedarf/nodetree/internal/util"
	"github.com/cockroachdb/errors"
	"github.com/puzpuzpuz/xsync/v4"
)

// Registry maps type tags to node constructors. It is safe for concurrent use,
// but is expected to be populated at startup before any descriptor is decoded.
type Registry struct {
	ctors *xsync.Map[string, nodetree.Constructor]
}

func NewRegistry() *Registry {
	return &Registry{ctors: xsync.NewMap[string, nodetree.Constructor]()}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry used when none is supplied
func Default() *Registry {
	return defaultRegistry
}

// Register ties a constructor to a type tag on the [Default] registry
func Register(tag string, ctor nodetree.Constructor) {
	defaultRegistry.Register(tag, ctor)
}

// Register ties a constructor to a type tag. Registering a tag again replaces
// the previous constructor.
func (r *Registry) Register(tag string, ctor nodetree.Constructor) {
	if _, loaded := r.ctors.LoadAndStore(tag, ctor); loaded {
		logger := util.GetLogger("Registry")
		logger.Debug().Str("type", tag).Msg("Replaced constructor for node type")
	}
}

// Lookup returns the constructor registered for tag
func (r *Registry) Lookup(tag string) (nodetree.Constructor, bool) {
	return r.ctors.Load(tag)
}

// Has reports whether tag is registered
func (r *Registry) Has(tag string) bool {
	_, ok := r.ctors.Load(tag)
	return ok
}

// Types returns every registered tag in sorted order
func (r *Registry) Types() []string {
	tags := make([]string, 0, r.ctors.Size())
	r.ctors.Range(func(tag string, _ nodetree.Constructor) bool {
		tags = append(tags, tag)
		return true
	})
	slices.Sort(tags)
	return tags
}

// New constructs an unbound node of kind tag from fields.
// Constructor failures, including panics, are reported as [nodetree.ErrConstruction].
func (r *Registry) New(tag string, fields map[string]nodetree.Value) (n nodetree.Node, err error) {
	ctor, ok := r.Lookup(tag)
	if !ok {
		return nil, errors.Wrapf(nodetree.ErrUnknownNodeType, "%q", tag)
	}
	if fields == nil {
		fields = map[string]nodetree.Value{}
	}

	defer func() {
		if p := recover(); p != nil {
			n = nil
			err = errors.Mark(errors.Newf("constructor for %q panicked: %v", tag, p), nodetree.ErrConstruction)
		}
	}()

	n, err = ctor(fields)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "construct %q", tag), nodetree.ErrConstruction)
	}
	if n == nil {
		return nil, errors.Wrapf(nodetree.ErrConstruction, "constructor for %q returned no node", tag)
	}
	if n.NodeType() != tag {
		return nil, errors.Wrapf(nodetree.ErrConstruction, "constructor for %q built a %q", tag, n.NodeType())
	}
	return n, nil
}
