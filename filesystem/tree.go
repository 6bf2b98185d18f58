package filesystem

import (
	"github.com/brettbedarf/nodetree"
	"github.com/brettbedarf/nodetree/internal/util"
	"github.com/cockroachdb/errors"
)

// Tree is a cursor over a node hierarchy. It persists nothing of its own;
// all state lives in the root node's directory.
type Tree struct {
	fs   *FileSystem
	root nodetree.Node
	cur  nodetree.Node
}

func NewTree(fs *FileSystem) *Tree {
	return &Tree{fs: fs}
}

func (t *Tree) FS() *FileSystem        { return t.fs }
func (t *Tree) Root() nodetree.Node    { return t.root }
func (t *Tree) Current() nodetree.Node { return t.cur }

// CreateRoot constructs a node of kind tag, saves it to dir and places the
// cursor on it.
func (t *Tree) CreateRoot(tag, dir string, fields map[string]nodetree.Value) (nodetree.Node, error) {
	logger := util.GetLogger("Tree.CreateRoot")

	if t.root != nil {
		return nil, errors.Wrapf(nodetree.ErrRootExists, "at %s", t.root.Dir())
	}
	n, err := t.fs.reg.New(tag, fields)
	if err != nil {
		return nil, err
	}
	if err := t.fs.SaveToDirectory(n, dir); err != nil {
		return nil, err
	}
	t.root, t.cur = n, n
	logger.Debug().Str("type", tag).Str("dir", dir).Msg("Created root")
	return n, nil
}

// LoadRoot loads an existing tree from dir and places the cursor on its root.
// found is false when dir holds no node.
func (t *Tree) LoadRoot(dir string) (found bool, err error) {
	if t.root != nil {
		return false, errors.Wrapf(nodetree.ErrRootExists, "at %s", t.root.Dir())
	}
	n, found, err := t.fs.LoadFromDirectory(dir)
	if err != nil || !found {
		return found, err
	}
	t.root, t.cur = n, n
	return true, nil
}

// NavigateTo moves the cursor to the managed child named name. When there is
// no cursor or no such child, ok is false and the cursor stays put.
func (t *Tree) NavigateTo(name string) (n nodetree.Node, ok bool, err error) {
	if t.cur == nil {
		return nil, false, nil
	}
	children, err := t.fs.Children(t.cur)
	if err != nil {
		return nil, false, err
	}
	child, ok := children[name]
	if !ok {
		return nil, false, nil
	}
	t.cur = child
	return child, true, nil
}

// NavigatePath follows names from the cursor. Either every step succeeds or
// the cursor is left where it was.
func (t *Tree) NavigatePath(names ...string) (nodetree.Node, bool, error) {
	start := t.cur
	for _, name := range names {
		if _, ok, err := t.NavigateTo(name); err != nil || !ok {
			t.cur = start
			return nil, false, err
		}
	}
	return t.cur, t.cur != nil, nil
}

// AddChildAtCursor constructs a node of kind tag and attaches it to the
// cursor node under slot.
func (t *Tree) AddChildAtCursor(tag, slot string, fields map[string]nodetree.Value) (nodetree.Node, error) {
	if t.cur == nil {
		return nil, errors.Wrapf(nodetree.ErrNoCursor, "add %s", tag)
	}
	n, err := t.fs.reg.New(tag, fields)
	if err != nil {
		return nil, err
	}
	if err := t.fs.AddChild(t.cur, n, slot); err != nil {
		return nil, err
	}
	return n, nil
}

// ResetToRoot moves the cursor back to the root, or clears it when there is no root
func (t *Tree) ResetToRoot() {
	t.cur = t.root
}

// Save writes the root node's descriptor
func (t *Tree) Save() error {
	if t.root == nil {
		return errors.Wrap(nodetree.ErrNoCursor, "tree has no root")
	}
	return t.fs.SaveToDirectory(t.root, "")
}
