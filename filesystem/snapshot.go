package filesystem

import (
	"iter"
	"path/filepath"

	"github.com/brettbedarf/nodetree"
)

// Snapshot is an in-memory copy of a subtree taken in a single walk.
// Unlike [FileSystem.Children] it does not follow later filesystem changes.
type Snapshot struct {
	Name     string // slot name, or the directory base name for the top node
	Dir      string
	Node     nodetree.Node
	Problems error // nil when the node was valid at snapshot time
	Children []*Snapshot
	Foreign  []nodetree.Foreign
	Invalid  []nodetree.Invalid
}

func (s *Snapshot) Valid() bool {
	return s.Problems == nil
}

// Child returns the direct child snapshot in slot
func (s *Snapshot) Child(slot string) (*Snapshot, bool) {
	for _, c := range s.Children {
		if c.Name == slot {
			return c, true
		}
	}
	return nil, false
}

// All yields s and every descendant depth first, parents before children
func (s *Snapshot) All() iter.Seq[*Snapshot] {
	return func(yield func(*Snapshot) bool) {
		s.walk(yield)
	}
}

func (s *Snapshot) walk(yield func(*Snapshot) bool) bool {
	if !yield(s) {
		return false
	}
	for _, c := range s.Children {
		if !c.walk(yield) {
			return false
		}
	}
	return true
}

// Count returns the number of nodes in the snapshot
func (s *Snapshot) Count() int {
	cnt := 0
	for range s.All() {
		cnt++
	}
	return cnt
}

// Snapshot walks the whole subtree under n once. Invalid descendants are
// recorded on their parent; they never abort the walk.
func (fs *FileSystem) Snapshot(n nodetree.Node) (*Snapshot, error) {
	if n.Dir() == "" {
		return &Snapshot{Node: n, Problems: fs.Problems(n)}, nil
	}
	return fs.snapshot(filepath.Base(n.Dir()), n)
}

func (fs *FileSystem) snapshot(name string, n nodetree.Node) (*Snapshot, error) {
	entries, err := fs.Entries(n)
	if err != nil {
		return nil, err
	}

	s := &Snapshot{
		Name:     name,
		Dir:      n.Dir(),
		Node:     n,
		Problems: problemsFrom(n, entries),
	}
	for _, e := range entries {
		switch e.Kind {
		case nodetree.ManagedEntry:
			child, err := fs.snapshot(e.Name, e.Node)
			if err != nil {
				return nil, err
			}
			s.Children = append(s.Children, child)
		case nodetree.ForeignEntry:
			s.Foreign = append(s.Foreign, nodetree.Foreign{Name: e.Name, IsDir: e.IsDir})
		case nodetree.InvalidEntry:
			s.Invalid = append(s.Invalid, nodetree.Invalid{Name: e.Name, Err: e.Err})
		}
	}
	return s, nil
}
