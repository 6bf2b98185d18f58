package nodes

import (
	"github.com/brettbedarf/nodetree"
	"github.com/brettbedarf/nodetree/descriptor"
)

var builtins = map[string]nodetree.Constructor{
	IntNodeType:          newIntNodeFromFields,
	WithChildrenNodeType: newWithChildrenFromFields,
	BookNodeType:         newBookFromFields,
	ChapterNodeType:      newChapterFromFields,
	LinkNodeType:         newLinkFromFields,
}

// BuiltinTypes lists the tags of every built-in kind
func BuiltinTypes() []string {
	return []string{IntNodeType, WithChildrenNodeType, BookNodeType, ChapterNodeType, LinkNodeType}
}

// RegisterBuiltins registers all built-in kinds on reg by default
// or only the specific ones if tags are provided. Unknown tags are ignored.
// A nil reg registers on [descriptor.Default].
func RegisterBuiltins(reg *descriptor.Registry, tags ...string) {
	if reg == nil {
		reg = descriptor.Default()
	}
	if len(tags) == 0 {
		tags = BuiltinTypes()
	}

	for _, tag := range tags {
		if ctor, ok := builtins[tag]; ok {
			reg.Register(tag, ctor)
		}
	}
}
