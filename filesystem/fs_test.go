package filesystem

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/brettbedarf/nodetree"
	"github.com/brettbedarf/nodetree/config"
	"github.com/brettbedarf/nodetree/descriptor"
	"github.com/brettbedarf/nodetree/internal/mocks"
	"github.com/brettbedarf/nodetree/nodes"
	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func createTestConfig() *config.Config {
	return config.NewDefaultConfig()
}

// createTestFS returns an in-memory FileSystem with the built-in kinds registered
func createTestFS(t *testing.T, opts ...Option) *FileSystem {
	t.Helper()
	reg := descriptor.NewRegistry()
	nodes.RegisterBuiltins(reg)
	opts = append([]Option{
		WithFs(afero.NewMemMapFs()),
		WithRegistry(reg),
		WithClock(func() time.Time { return testNow }),
	}, opts...)
	return NewFS(createTestConfig(), opts...)
}

// createParent saves a NodeWithChildren requiring child1 at dir
func createParent(t *testing.T, fs *FileSystem, dir string) *nodes.WithChildren {
	t.Helper()
	parent := nodes.NewWithChildren(nil)
	require.NoError(t, fs.SaveToDirectory(parent, dir))
	return parent
}

func writeFile(t *testing.T, fs *FileSystem, path, content string) {
	t.Helper()
	require.NoError(t, fs.Fs().MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, afero.WriteFile(fs.Fs(), path, []byte(content), 0o644))
}

func exists(t *testing.T, fs *FileSystem, path string) bool {
	t.Helper()
	ok, err := afero.Exists(fs.Fs(), path)
	require.NoError(t, err)
	return ok
}

func collectOther(t *testing.T, fs *FileSystem, n nodetree.Node) []nodetree.Foreign {
	t.Helper()
	var out []nodetree.Foreign
	for f, err := range fs.OtherEntries(n) {
		require.NoError(t, err)
		out = append(out, f)
	}
	return out
}

func TestNewFS_Defaults(t *testing.T) {
	t.Parallel()

	fs := NewFS(nil)
	require.NotNil(t, fs.Config())
	assert.Equal(t, config.DefaultDescriptorName, fs.Config().DescriptorName)
	assert.Same(t, descriptor.Default(), fs.Registry())
	assert.IsType(t, &afero.OsFs{}, fs.Fs())
	assert.Equal(t, filepath.Join("a", "node_data.json"), fs.DescriptorPath("a"))
}

func TestSaveToDirectory(t *testing.T) {
	t.Parallel()

	t.Run("unbound", func(t *testing.T) {
		t.Parallel()
		fs := createTestFS(t)
		err := fs.SaveToDirectory(nodes.NewIntNode(1), "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, nodetree.ErrUnboundDirectory), "got %v", err)
	})
	t.Run("binds and creates missing directories", func(t *testing.T) {
		t.Parallel()
		fs := createTestFS(t)
		n := nodes.NewIntNode(1)
		require.NoError(t, fs.SaveToDirectory(n, "/data/a/b/"))
		assert.Equal(t, filepath.Clean("/data/a/b"), n.Dir())
		assert.True(t, exists(t, fs, fs.DescriptorPath("/data/a/b")))
	})
	t.Run("existing directory and descriptor", func(t *testing.T) {
		t.Parallel()
		fs := createTestFS(t)
		writeFile(t, fs, "/data/notes.txt", "keep me")
		n := nodes.NewIntNode(1)
		require.NoError(t, fs.SaveToDirectory(n, "/data"))

		n.Value = nodetree.Int(2)
		require.NoError(t, fs.SaveToDirectory(n, ""), "saving again uses the binding")

		got, found, err := fs.LoadFromDirectory("/data")
		require.NoError(t, err)
		require.True(t, found)
		v, _ := got.(*nodes.IntNode).Int()
		assert.EqualValues(t, 2, v)

		data, err := afero.ReadFile(fs.Fs(), "/data/notes.txt")
		require.NoError(t, err)
		assert.Equal(t, "keep me", string(data), "siblings are never touched")
	})
	t.Run("encoding failure writes nothing", func(t *testing.T) {
		t.Parallel()
		fs := createTestFS(t)
		m := &mocks.MockNode{}
		m.On("NodeType").Return("Mock")
		m.On("EncodeFields").Return(nil, errors.New("nope"))

		err := fs.SaveToDirectory(m, "/data")
		require.Error(t, err)
		assert.True(t, errors.Is(err, nodetree.ErrFieldEncoding))
		assert.False(t, exists(t, fs, "/data"))
	})
	t.Run("stamps before save", func(t *testing.T) {
		t.Parallel()
		fs := createTestFS(t)
		book := nodes.NewBook("Notes")
		require.NoError(t, fs.SaveToDirectory(book, "/book"))
		assert.Equal(t, testNow, book.LastSave)

		got, _, err := fs.LoadFromDirectory("/book")
		require.NoError(t, err)
		assert.True(t, got.(*nodes.Book).LastSave.Equal(testNow))
	})
}

func TestSaveToDirectory_Idempotent(t *testing.T) {
	t.Parallel()

	for _, atomic := range []bool{true, false} {
		fs := createTestFS(t)
		fs.Config().AtomicWrites = atomic

		n := nodes.NewWithChildren(nil)
		require.NoError(t, fs.SaveToDirectory(n, "/root"))
		first, err := afero.ReadFile(fs.Fs(), fs.DescriptorPath("/root"))
		require.NoError(t, err)

		require.NoError(t, fs.SaveToDirectory(n, "/root"))
		second, err := afero.ReadFile(fs.Fs(), fs.DescriptorPath("/root"))
		require.NoError(t, err)

		assert.Equal(t, string(first), string(second), "atomic=%v", atomic)
		assert.False(t, exists(t, fs, fs.DescriptorPath("/root")+".tmp"), "no temp file is left behind")
	}
}

func TestSaveToDirectory_OsFsAtomic(t *testing.T) {
	t.Parallel()

	reg := descriptor.NewRegistry()
	nodes.RegisterBuiltins(reg)
	fs := NewFS(createTestConfig(), WithRegistry(reg))
	dir := filepath.Join(t.TempDir(), "node")

	n := nodes.NewIntNode(7)
	require.NoError(t, fs.SaveToDirectory(n, dir))
	require.NoError(t, fs.SaveToDirectory(n, dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "only the descriptor remains")
	assert.Equal(t, config.DefaultDescriptorName, entries[0].Name())

	info, err := os.Stat(fs.DescriptorPath(dir))
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}

func TestLoadFromDirectory_AbsenceVsCorruption(t *testing.T) {
	t.Parallel()

	fs := createTestFS(t)
	require.NoError(t, fs.Fs().MkdirAll("/plain", 0o755))
	writeFile(t, fs, "/ghost/node_data.json", `{"node_type": "Ghost"}`)
	writeFile(t, fs, "/garbage/node_data.json", `{{{`)
	writeFile(t, fs, "/badvalue/node_data.json", `{"node_type": "BaseIntNode"}`)
	require.NoError(t, fs.Fs().MkdirAll("/dirdesc/node_data.json", 0o755))

	tests := []struct {
		name  string
		dir   string
		found bool
		kind  error
	}{
		{"missing directory", "/nowhere", false, nil},
		{"no descriptor", "/plain", false, nil},
		{"unregistered type", "/ghost", true, nodetree.ErrUnknownNodeType},
		{"garbage", "/garbage", true, nodetree.ErrCorruptDescriptor},
		{"construction failure", "/badvalue", true, nodetree.ErrConstruction},
		{"descriptor is a directory", "/dirdesc", true, nodetree.ErrCorruptDescriptor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			n, found, err := fs.LoadFromDirectory(tt.dir)
			assert.Nil(t, n)
			assert.Equal(t, tt.found, found)
			if tt.kind == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
			assert.Contains(t, err.Error(), tt.dir, "errors name the failing directory")
		})
	}
}

func TestLoadFromDirectory_Binds(t *testing.T) {
	t.Parallel()

	fs := createTestFS(t)
	require.NoError(t, fs.SaveToDirectory(nodes.NewIntNode(15), "/leaf"))

	n, found, err := fs.LoadFromDirectory("/leaf/")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, filepath.Clean("/leaf"), n.Dir())
	assert.Equal(t, nodes.IntNodeType, n.NodeType())
}

func TestChildren_ExcludesForeign(t *testing.T) {
	t.Parallel()

	fs := createTestFS(t)
	parent := createParent(t, fs, "/root")
	require.NoError(t, fs.AddChild(parent, nodes.NewIntNode(20), "child1"))
	require.NoError(t, fs.Fs().MkdirAll("/root/plainDir", 0o755))
	writeFile(t, fs, "/root/plainDir/readme.md", "hi")

	children, err := fs.Children(parent)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Contains(t, children, "child1")
	assert.Equal(t, filepath.Join("/root", "child1"), children["child1"].Dir())

	assert.Equal(t, []nodetree.Foreign{{Name: "plainDir", IsDir: true}}, collectOther(t, fs, parent))
}

func TestEntries_ThreeWayClassification(t *testing.T) {
	t.Parallel()

	fs := createTestFS(t)
	parent := createParent(t, fs, "/root")
	require.NoError(t, fs.AddChild(parent, nodes.NewIntNode(1), "b_node"))
	writeFile(t, fs, "/root/a_notes.txt", "x")
	writeFile(t, fs, "/root/c_broken/node_data.json", `{"node_type": "Ghost"}`)
	require.NoError(t, fs.Fs().MkdirAll("/root/d_plain", 0o755))

	entries, err := fs.Entries(parent)
	require.NoError(t, err)

	names := make([]string, len(entries))
	kinds := make([]nodetree.EntryKind, len(entries))
	for i, e := range entries {
		names[i] = e.Name
		kinds[i] = e.Kind
	}
	assert.Equal(t, []string{"a_notes.txt", "b_node", "c_broken", "d_plain"}, names,
		"sorted, without the node's own descriptor")
	assert.Equal(t, []nodetree.EntryKind{
		nodetree.ForeignEntry, nodetree.ManagedEntry, nodetree.InvalidEntry, nodetree.ForeignEntry,
	}, kinds)
	assert.True(t, errors.Is(entries[2].Err, nodetree.ErrUnknownNodeType))

	children, err := fs.Children(parent)
	require.NoError(t, err)
	assert.Len(t, children, 1, "invalid entries are not children")

	assert.Equal(t, []nodetree.Foreign{
		{Name: "a_notes.txt", IsDir: false},
		{Name: "d_plain", IsDir: true},
	}, collectOther(t, fs, parent), "invalid entries are not foreign either")

	invalid, err := fs.InvalidEntries(parent)
	require.NoError(t, err)
	require.Len(t, invalid, 1)
	assert.Equal(t, "c_broken", invalid[0].Name)
}

func TestChildren_Unbound(t *testing.T) {
	t.Parallel()

	fs := createTestFS(t)
	n := nodes.NewWithChildren(nil)

	children, err := fs.Children(n)
	require.NoError(t, err)
	assert.Empty(t, children)
	assert.Empty(t, collectOther(t, fs, n))
}

func TestChildren_ReflectsExternalChanges(t *testing.T) {
	t.Parallel()

	fs := createTestFS(t)
	parent := createParent(t, fs, "/root")

	children, err := fs.Children(parent)
	require.NoError(t, err)
	assert.Empty(t, children)

	// Another writer adds a node directly on disk
	writeFile(t, fs, "/root/ext/node_data.json", `{"node_type": "BaseIntNode", "value": 3}`)

	children, err = fs.Children(parent)
	require.NoError(t, err)
	assert.Contains(t, children, "ext")
}

func TestOtherEntries_RestartableAndStoppable(t *testing.T) {
	t.Parallel()

	fs := createTestFS(t)
	parent := createParent(t, fs, "/root")
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		writeFile(t, fs, filepath.Join("/root", name), name)
	}

	seq := fs.OtherEntries(parent)
	var first []string
	for f, err := range seq {
		require.NoError(t, err)
		first = append(first, f.Name)
		if len(first) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a.txt", "b.txt"}, first)

	var all []string
	for f, err := range seq {
		require.NoError(t, err)
		all = append(all, f.Name)
	}
	assert.Equal(t, []string{"a.txt", "b.txt", "c.txt"}, all)
}

func TestOtherEntries_ListingError(t *testing.T) {
	t.Parallel()

	fs := createTestFS(t)
	writeFile(t, fs, "/file", "not a directory")
	n := nodes.NewIntNode(1)
	n.SetDir("/file")

	var errs []error
	for _, err := range fs.OtherEntries(n) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.Error(t, errs[0])
}

func TestAddChild(t *testing.T) {
	t.Parallel()

	t.Run("unbound parent", func(t *testing.T) {
		t.Parallel()
		fs := createTestFS(t)
		err := fs.AddChild(nodes.NewWithChildren(nil), nodes.NewIntNode(1), "child1")
		require.Error(t, err)
		assert.True(t, errors.Is(err, nodetree.ErrNoDirectoryBound))
	})
	t.Run("binds and saves", func(t *testing.T) {
		t.Parallel()
		fs := createTestFS(t)
		parent := createParent(t, fs, "/root")
		child := nodes.NewIntNode(20)
		require.NoError(t, fs.AddChild(parent, child, "child1"))
		assert.Equal(t, filepath.Join("/root", "child1"), child.Dir())
		assert.True(t, exists(t, fs, fs.DescriptorPath(child.Dir())))
	})
	t.Run("derived slot name", func(t *testing.T) {
		t.Parallel()
		fs := createTestFS(t)
		parent := createParent(t, fs, "/root")
		require.NoError(t, fs.AddChild(parent, nodes.NewIntNode(20), ""))
		require.NoError(t, fs.AddChild(parent, nodes.NewLink("../x y"), ""))

		children, err := fs.Children(parent)
		require.NoError(t, err)
		assert.Contains(t, children, "BaseIntNode_20")
		assert.Contains(t, children, "Link_-__.._x_y")
	})
	t.Run("derived slot name disabled", func(t *testing.T) {
		t.Parallel()
		fs := createTestFS(t)
		fs.Config().DeriveSlotNames = false
		parent := createParent(t, fs, "/root")
		err := fs.AddChild(parent, nodes.NewIntNode(20), "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, nodetree.ErrInvalidSlotName))
	})
	t.Run("slot exists", func(t *testing.T) {
		t.Parallel()
		fs := createTestFS(t)
		parent := createParent(t, fs, "/root")
		require.NoError(t, fs.AddChild(parent, nodes.NewIntNode(1), "child1"))
		require.NoError(t, fs.Fs().MkdirAll("/root/plain", 0o755))

		for _, slot := range []string{"child1", "plain"} {
			child := nodes.NewIntNode(2)
			err := fs.AddChild(parent, child, slot)
			require.Error(t, err)
			assert.True(t, errors.Is(err, nodetree.ErrSlotExists), "slot %s: %v", slot, err)
			assert.Empty(t, child.Dir(), "child stays unbound")
		}

		got, _, err := fs.LoadFromDirectory("/root/child1")
		require.NoError(t, err)
		v, _ := got.(*nodes.IntNode).Int()
		assert.EqualValues(t, 1, v, "existing child is not overwritten")
	})
	t.Run("invalid slot names", func(t *testing.T) {
		t.Parallel()
		fs := createTestFS(t)
		parent := createParent(t, fs, "/root")
		for _, slot := range []string{".", "..", "a/b", `a\b`, config.DefaultDescriptorName} {
			err := fs.AddChild(parent, nodes.NewIntNode(1), slot)
			require.Error(t, err, slot)
			assert.True(t, errors.Is(err, nodetree.ErrInvalidSlotName), "slot %q: %v", slot, err)
		}
	})
	t.Run("failed save restores binding", func(t *testing.T) {
		t.Parallel()
		fs := createTestFS(t)
		parent := createParent(t, fs, "/root")

		m := &mocks.MockNode{}
		m.On("NodeType").Return("Mock")
		m.On("EncodeFields").Return(nil, errors.New("nope"))
		m.SetDir("/elsewhere")

		err := fs.AddChild(parent, m, "child1")
		require.Error(t, err)
		assert.Equal(t, "/elsewhere", m.Dir())
		assert.False(t, exists(t, fs, "/root/child1"))
	})
	t.Run("read only filesystem", func(t *testing.T) {
		t.Parallel()
		base := afero.NewMemMapFs()
		require.NoError(t, base.MkdirAll("/root", 0o755))
		fs := createTestFS(t, WithFs(afero.NewReadOnlyFs(base)))
		parent := nodes.NewWithChildren(nil)
		parent.SetDir("/root")

		child := nodes.NewIntNode(1)
		err := fs.AddChild(parent, child, "child1")
		require.Error(t, err)
		assert.Empty(t, child.Dir(), "binding is rolled back")
	})
}

func TestRemoveChild(t *testing.T) {
	t.Parallel()

	t.Run("unbound parent", func(t *testing.T) {
		t.Parallel()
		fs := createTestFS(t)
		err := fs.RemoveChild(nodes.NewWithChildren(nil), "child1")
		assert.True(t, errors.Is(err, nodetree.ErrNoDirectoryBound))
	})
	t.Run("not a child", func(t *testing.T) {
		t.Parallel()
		fs := createTestFS(t)
		parent := createParent(t, fs, "/root")
		require.NoError(t, fs.Fs().MkdirAll("/root/plain", 0o755))
		writeFile(t, fs, "/root/broken/node_data.json", "{")

		for _, slot := range []string{"missing", "plain", "broken"} {
			err := fs.RemoveChild(parent, slot)
			require.Error(t, err)
			assert.True(t, errors.Is(err, nodetree.ErrChildNotFound), "slot %s: %v", slot, err)
		}
		assert.True(t, exists(t, fs, "/root/plain"), "foreign content is never deleted")
		assert.True(t, exists(t, fs, "/root/broken"))
	})
	t.Run("invalid slot", func(t *testing.T) {
		t.Parallel()
		fs := createTestFS(t)
		parent := createParent(t, fs, "/root/sub")
		err := fs.RemoveChild(parent, "..")
		assert.True(t, errors.Is(err, nodetree.ErrInvalidSlotName))
		assert.True(t, exists(t, fs, "/root/sub"))
	})
	t.Run("detach is total", func(t *testing.T) {
		t.Parallel()
		fs := createTestFS(t)
		parent := createParent(t, fs, "/root")
		child := nodes.NewWithChildren(nil)
		require.NoError(t, fs.AddChild(parent, child, "child1"))
		grandchild := nodes.NewWithChildren(nil)
		require.NoError(t, fs.AddChild(child, grandchild, "deep"))
		require.NoError(t, fs.AddChild(grandchild, nodes.NewIntNode(1), "child1"))
		writeFile(t, fs, "/root/child1/deep/notes.txt", "x")

		require.NoError(t, fs.RemoveChild(parent, "child1"))

		for _, p := range []string{"/root/child1", "/root/child1/deep", "/root/child1/deep/child1"} {
			assert.False(t, exists(t, fs, p), "%s must be gone", p)
		}
		assert.True(t, exists(t, fs, fs.DescriptorPath("/root")), "parent is kept")
	})
}

func TestValid_RequiredChildrenSequence(t *testing.T) {
	t.Parallel()

	fs := createTestFS(t)
	parent := nodes.NewWithChildren(map[string]string{"child1": nodes.IntNodeType})

	assert.False(t, fs.Valid(parent), "unbound")
	assert.True(t, errors.Is(fs.Problems(parent), nodetree.ErrUnboundDirectory))

	require.NoError(t, fs.SaveToDirectory(parent, "/root"))
	assert.False(t, fs.Valid(parent), "bound without children")

	require.NoError(t, fs.AddChild(parent, nodes.NewIntNode(20), "child1"))
	assert.True(t, fs.Valid(parent), "required child present")

	require.NoError(t, fs.AddChild(parent, nodes.NewLink("x"), "extra"))
	assert.True(t, fs.Valid(parent), "unrelated children do not matter")

	require.NoError(t, fs.RemoveChild(parent, "child1"))
	assert.False(t, fs.Valid(parent), "required child detached")

	require.NoError(t, fs.AddChild(parent, nodes.NewLink("y"), "child1"))
	assert.False(t, fs.Valid(parent), "required child of the wrong type")
	problems := fs.Problems(parent)
	assert.True(t, errors.Is(problems, nodetree.ErrRequiredChild), "got %v", problems)
	assert.Contains(t, problems.Error(), "want BaseIntNode")
}

func TestProblems(t *testing.T) {
	t.Parallel()

	t.Run("invalid required child", func(t *testing.T) {
		t.Parallel()
		fs := createTestFS(t)
		parent := createParent(t, fs, "/root")
		writeFile(t, fs, "/root/child1/node_data.json", `{"node_type": "Ghost"}`)

		problems := fs.Problems(parent)
		require.Error(t, problems)
		assert.Contains(t, problems.Error(), "cannot be loaded")
	})
	t.Run("foreign required child", func(t *testing.T) {
		t.Parallel()
		fs := createTestFS(t)
		parent := createParent(t, fs, "/root")
		require.NoError(t, fs.Fs().MkdirAll("/root/child1", 0o755))

		problems := fs.Problems(parent)
		require.Error(t, problems)
		assert.Contains(t, problems.Error(), "not a node")
	})
	t.Run("own check combined with required children", func(t *testing.T) {
		t.Parallel()
		fs := createTestFS(t)
		writeFile(t, fs, "/leaf/node_data.json",
			`{"node_type": "BaseIntNode", "value": "5", "required_children": {"c": "BaseIntNode"}}`)
		n, found, err := fs.LoadFromDirectory("/leaf")
		require.NoError(t, err)
		require.True(t, found)

		problems := fs.Problems(n)
		require.Error(t, problems)
		assert.Contains(t, problems.Error(), "not an int")
		assert.Contains(t, problems.Error(), `"c"`)
		assert.False(t, fs.Valid(n))
	})
	t.Run("checker through mock", func(t *testing.T) {
		t.Parallel()
		fs := createTestFS(t)
		m := &mocks.MockRequirer{}
		m.On("NodeType").Return("Mock")
		m.On("RequiredChildren").Return(nil)
		m.On("Check").Return(errors.New("custom rule")).Once()
		m.On("Check").Return(nil)
		m.SetDir("/mock")

		assert.False(t, fs.Valid(m))
		assert.True(t, fs.Valid(m))
		m.AssertNumberOfCalls(t, "Check", 2)
	})
}

func TestDeriveSlotName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "BaseIntNode_20", DeriveSlotName(nodes.NewIntNode(20)))
	assert.Equal(t, "NodeWithChildren_NodeWithChildren", DeriveSlotName(nodes.NewWithChildren(nil)))

	long := nodes.NewChapter(string(slices.Repeat([]byte("x"), 500)))
	assert.Len(t, DeriveSlotName(long), maxSlotLen)

	m := &mocks.MockNode{}
	m.On("NodeType").Return("Mock")
	assert.Equal(t, "Mock", DeriveSlotName(m), "kinds without text use the tag alone")
}

// failingWriteFs creates files normally but fails every write to them
type failingWriteFs struct {
	afero.Fs
}

func (f failingWriteFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	file, err := f.Fs.OpenFile(name, flag, perm)
	if err != nil || flag&os.O_CREATE == 0 {
		return file, err
	}
	return failingFile{file}, nil
}

type failingFile struct {
	afero.File
}

func (failingFile) Write([]byte) (int, error) { return 0, os.ErrPermission }

// statErrFs fails Stat for one path with a permission error
type statErrFs struct {
	afero.Fs
	path string
}

func (f statErrFs) Stat(name string) (os.FileInfo, error) {
	if name == f.path {
		return nil, &os.PathError{Op: "stat", Path: name, Err: os.ErrPermission}
	}
	return f.Fs.Stat(name)
}

func TestSaveToDirectory_FailedWriteLeavesNoTempFile(t *testing.T) {
	t.Parallel()

	fs := createTestFS(t, WithFs(failingWriteFs{afero.NewMemMapFs()}))
	require.True(t, fs.Config().AtomicWrites)

	n := nodes.NewIntNode(1)
	err := fs.SaveToDirectory(n, "/data")
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrPermission), "got %v", err)

	assert.False(t, exists(t, fs, fs.DescriptorPath("/data")+".tmp"))
	parent := nodes.NewWithChildren(nil)
	parent.SetDir("/data")
	assert.Empty(t, collectOther(t, fs, parent), "no stray files show up as foreign entries")
}

func TestAddChild_FailedWriteRemovesCreatedDirectories(t *testing.T) {
	t.Parallel()

	fs := createTestFS(t, WithFs(failingWriteFs{afero.NewMemMapFs()}))
	parent := nodes.NewWithChildren(nil)
	parent.SetDir("/unsaved/parent")

	child := nodes.NewIntNode(1)
	err := fs.AddChild(parent, child, "child1")
	require.Error(t, err)
	assert.Empty(t, child.Dir())
	assert.False(t, exists(t, fs, "/unsaved"), "directories created on the way are removed")
}

func TestAddChild_FailedWriteKeepsExistingParent(t *testing.T) {
	t.Parallel()

	base := afero.NewMemMapFs()
	require.NoError(t, base.MkdirAll("/root", 0o755))
	require.NoError(t, afero.WriteFile(base, "/root/notes.txt", []byte("x"), 0o644))
	fs := createTestFS(t, WithFs(failingWriteFs{base}))
	parent := nodes.NewWithChildren(nil)
	parent.SetDir("/root")

	require.Error(t, fs.AddChild(parent, nodes.NewIntNode(1), "child1"))
	assert.False(t, exists(t, fs, "/root/child1"))
	assert.True(t, exists(t, fs, "/root/notes.txt"), "only what the attempt created is removed")
}

func TestRemoveChild_SurfacesIOErrors(t *testing.T) {
	t.Parallel()

	base := afero.NewMemMapFs()
	mem := createTestFS(t, WithFs(base))
	parent := createParent(t, mem, "/root")
	require.NoError(t, mem.AddChild(parent, nodes.NewIntNode(1), "child1"))

	fs := createTestFS(t, WithFs(statErrFs{Fs: base, path: mem.DescriptorPath("/root/child1")}))
	err := fs.RemoveChild(parent, "child1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrPermission), "got %v", err)
	assert.False(t, errors.Is(err, nodetree.ErrChildNotFound), "I/O failures are not reported as missing children")
	assert.True(t, exists(t, fs, "/root/child1"), "nothing is deleted")
}
