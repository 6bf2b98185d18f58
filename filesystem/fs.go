package filesystem

import (
	"iter"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/brettbedarf/nodetree"
	"github.com/brettbedarf/nodetree/config"
	"github.com/brettbedarf/nodetree/descriptor"
	"github.com/brettbedarf/nodetree/internal/util"
	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
)

// maxSlotLen bounds derived slot names well below common NAME_MAX limits
const maxSlotLen = 200

// FileSystem persists nodes as directories holding one descriptor file each.
// Nothing is cached: every read re-derives the structure from the filesystem,
// so external changes are always observed.
type FileSystem struct {
	cfg *config.Config
	afs afero.Fs
	reg *descriptor.Registry
	now func() time.Time
}

type Option func(*FileSystem)

// WithFs sets the backing filesystem (default is the OS filesystem)
func WithFs(afs afero.Fs) Option {
	return func(fs *FileSystem) { fs.afs = afs }
}

// WithRegistry sets the registry used to decode descriptors (default [descriptor.Default])
func WithRegistry(reg *descriptor.Registry) Option {
	return func(fs *FileSystem) { fs.reg = reg }
}

// WithClock sets the time source passed to [nodetree.BeforeSaver] kinds
func WithClock(now func() time.Time) Option {
	return func(fs *FileSystem) { fs.now = now }
}

func NewFS(cfg *config.Config, opts ...Option) *FileSystem {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	fs := &FileSystem{
		cfg: cfg,
		afs: afero.NewOsFs(),
		reg: descriptor.Default(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(fs)
	}
	return fs
}

func (fs *FileSystem) Config() *config.Config         { return fs.cfg }
func (fs *FileSystem) Registry() *descriptor.Registry { return fs.reg }
func (fs *FileSystem) Fs() afero.Fs                   { return fs.afs }

// DescriptorPath returns where the descriptor of a node bound to dir lives
func (fs *FileSystem) DescriptorPath(dir string) string {
	return filepath.Join(dir, fs.cfg.DescriptorName)
}

// SaveToDirectory writes n's descriptor. A non-empty dir rebinds n first.
// The directory is created when missing and an existing descriptor is
// overwritten; siblings and children are never touched.
func (fs *FileSystem) SaveToDirectory(n nodetree.Node, dir string) error {
	logger := util.GetLogger("FS.SaveToDirectory")

	if dir != "" {
		n.SetDir(filepath.Clean(dir))
	}
	target := n.Dir()
	if target == "" {
		return errors.Wrapf(nodetree.ErrUnboundDirectory, "save %s", n.NodeType())
	}

	if bs, ok := n.(nodetree.BeforeSaver); ok {
		bs.BeforeSave(fs.now())
	}
	data, err := descriptor.Write(n, fs.cfg.Indent)
	if err != nil {
		return errors.Wrapf(err, "save %s to %s", n.NodeType(), target)
	}

	if err := fs.afs.MkdirAll(target, fs.cfg.DirPerm); err != nil {
		return errors.Wrapf(err, "create node directory %s", target)
	}
	if err := fs.writeDescriptor(fs.DescriptorPath(target), data); err != nil {
		return errors.Wrapf(err, "write descriptor in %s", target)
	}
	logger.Debug().Str("type", n.NodeType()).Str("dir", target).Msg("Saved node")
	return nil
}

func (fs *FileSystem) writeDescriptor(path string, data []byte) error {
	if !fs.cfg.AtomicWrites {
		return afero.WriteFile(fs.afs, path, data, fs.cfg.FilePerm)
	}
	if _, ok := fs.afs.(*afero.OsFs); ok {
		return writeFileAtomic(path, data, fs.cfg.FilePerm)
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(fs.afs, tmp, data, fs.cfg.FilePerm); err != nil {
		_ = fs.afs.Remove(tmp)
		return err
	}
	if err := fs.afs.Rename(tmp, path); err != nil {
		_ = fs.afs.Remove(tmp)
		return err
	}
	return nil
}

// LoadFromDirectory reads the node stored in dir. found is false, with a nil
// error, when dir holds no descriptor. A descriptor that exists but cannot be
// read or decoded returns found true and the error.
func (fs *FileSystem) LoadFromDirectory(dir string) (n nodetree.Node, found bool, err error) {
	logger := util.GetLogger("FS.LoadFromDirectory")

	dir = filepath.Clean(dir)
	path := fs.DescriptorPath(dir)
	info, err := fs.afs.Stat(path)
	if err != nil {
		if isAbsent(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "stat descriptor in %s", dir)
	}
	if info.IsDir() {
		return nil, true, errors.Wrapf(nodetree.ErrCorruptDescriptor, "%s is a directory", path)
	}

	data, err := afero.ReadFile(fs.afs, path)
	if err != nil {
		return nil, true, errors.Wrapf(err, "read descriptor in %s", dir)
	}
	n, err = fs.reg.Read(data)
	if err != nil {
		return nil, true, errors.Wrapf(err, "load node from %s", dir)
	}
	n.SetDir(dir)
	logger.Trace().Str("type", n.NodeType()).Str("dir", dir).Msg("Loaded node")
	return n, true, nil
}

func isAbsent(err error) bool {
	return errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

// isDecodeFailure reports whether err came from a descriptor that was read
// but could not be turned into a node, as opposed to an I/O failure
func isDecodeFailure(err error) bool {
	return errors.Is(err, nodetree.ErrUnknownNodeType) ||
		errors.Is(err, nodetree.ErrConstruction) ||
		errors.Is(err, nodetree.ErrCorruptDescriptor)
}

// listDir returns the entries of dir sorted by name. A missing directory is empty.
func (fs *FileSystem) listDir(dir string) ([]os.FileInfo, error) {
	infos, err := afero.ReadDir(fs.afs, dir)
	if err != nil {
		if isAbsent(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "list %s", dir)
	}
	return infos, nil
}

// classify sorts one directory entry into managed, foreign or invalid.
// ok is false for the node's own descriptor.
func (fs *FileSystem) classify(dir string, info os.FileInfo) (e nodetree.Entry, ok bool) {
	name := info.Name()
	if !info.IsDir() {
		if name == fs.cfg.DescriptorName {
			return e, false
		}
		return nodetree.Entry{Name: name, Kind: nodetree.ForeignEntry}, true
	}

	child, found, err := fs.LoadFromDirectory(filepath.Join(dir, name))
	switch {
	case err != nil:
		logger := util.GetLogger("FS.classify")
		logger.Warn().Err(err).Str("dir", dir).Str("entry", name).Msg("Invalid node entry")
		return nodetree.Entry{Name: name, Kind: nodetree.InvalidEntry, IsDir: true, Err: err}, true
	case !found:
		return nodetree.Entry{Name: name, Kind: nodetree.ForeignEntry, IsDir: true}, true
	default:
		return nodetree.Entry{Name: name, Kind: nodetree.ManagedEntry, IsDir: true, Node: child}, true
	}
}

// Entries classifies every immediate entry of n's directory, sorted by name.
// A single entry failing to load is reported as [nodetree.InvalidEntry] and
// never aborts the listing. An unbound node has no entries.
func (fs *FileSystem) Entries(n nodetree.Node) ([]nodetree.Entry, error) {
	dir := n.Dir()
	if dir == "" {
		return nil, nil
	}
	infos, err := fs.listDir(dir)
	if err != nil {
		return nil, err
	}
	entries := make([]nodetree.Entry, 0, len(infos))
	for _, info := range infos {
		if e, ok := fs.classify(dir, info); ok {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// Children returns the managed children of n keyed by slot name
func (fs *FileSystem) Children(n nodetree.Node) (map[string]nodetree.Node, error) {
	entries, err := fs.Entries(n)
	if err != nil {
		return nil, err
	}
	children := make(map[string]nodetree.Node, len(entries))
	for _, e := range entries {
		if e.Kind == nodetree.ManagedEntry {
			children[e.Name] = e.Node
		}
	}
	return children, nil
}

// Child loads the managed child in slot
func (fs *FileSystem) Child(n nodetree.Node, slot string) (nodetree.Node, bool, error) {
	if n.Dir() == "" || fs.ValidateSlot(slot) != nil {
		return nil, false, nil
	}
	child, found, err := fs.LoadFromDirectory(filepath.Join(n.Dir(), slot))
	if err != nil || !found {
		return nil, false, err
	}
	return child, true, nil
}

// OtherEntries lazily yields the foreign entries of n's directory. Each range
// lists the directory again. A listing failure is yielded once as the error
// and ends the sequence.
func (fs *FileSystem) OtherEntries(n nodetree.Node) iter.Seq2[nodetree.Foreign, error] {
	return func(yield func(nodetree.Foreign, error) bool) {
		dir := n.Dir()
		if dir == "" {
			return
		}
		infos, err := fs.listDir(dir)
		if err != nil {
			yield(nodetree.Foreign{}, err)
			return
		}
		for _, info := range infos {
			e, ok := fs.classify(dir, info)
			if !ok || e.Kind != nodetree.ForeignEntry {
				continue
			}
			if !yield(nodetree.Foreign{Name: e.Name, IsDir: e.IsDir}, nil) {
				return
			}
		}
	}
}

// InvalidEntries returns the sub-directories of n that hold a descriptor
// which fails to load, with the load error.
func (fs *FileSystem) InvalidEntries(n nodetree.Node) ([]nodetree.Invalid, error) {
	entries, err := fs.Entries(n)
	if err != nil {
		return nil, err
	}
	var invalid []nodetree.Invalid
	for _, e := range entries {
		if e.Kind == nodetree.InvalidEntry {
			invalid = append(invalid, nodetree.Invalid{Name: e.Name, Err: e.Err})
		}
	}
	return invalid, nil
}

// ValidateSlot checks that slot can name a child directory
func (fs *FileSystem) ValidateSlot(slot string) error {
	switch {
	case slot == "":
		return errors.Wrap(nodetree.ErrInvalidSlotName, "slot name is empty")
	case slot == "." || slot == "..":
		return errors.Wrapf(nodetree.ErrInvalidSlotName, "%q", slot)
	case strings.ContainsAny(slot, "/\\\x00"):
		return errors.Wrapf(nodetree.ErrInvalidSlotName, "%q contains a path separator", slot)
	case slot == fs.cfg.DescriptorName:
		return errors.Wrapf(nodetree.ErrInvalidSlotName, "%q is the descriptor file name", slot)
	}
	return nil
}

// DeriveSlotName builds "<type>_<text>" from the child's type tag and its
// String form, keeping only characters safe in a directory name.
func DeriveSlotName(child nodetree.Node) string {
	name := child.NodeType()
	if s, ok := child.(interface{ String() string }); ok {
		if text := s.String(); text != "" {
			name += "_" + text
		}
	}
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
	if len(safe) > maxSlotLen {
		safe = safe[:maxSlotLen]
	}
	return safe
}

// AddChild binds child to parent's directory under slot and saves it.
// An empty slot is derived from the child when the config allows it. The
// slot must not exist yet. On failure the child keeps its previous binding
// and every directory the attempt created is removed, including a parent
// directory that did not exist yet. A [nodetree.BeforeSaver] stamp applied
// before the failure is not undone.
func (fs *FileSystem) AddChild(parent, child nodetree.Node, slot string) error {
	logger := util.GetLogger("FS.AddChild")

	pdir := parent.Dir()
	if pdir == "" {
		return errors.Wrapf(nodetree.ErrNoDirectoryBound, "add %s", child.NodeType())
	}
	if slot == "" {
		if !fs.cfg.DeriveSlotNames {
			return errors.Wrap(nodetree.ErrInvalidSlotName, "slot name is required")
		}
		slot = DeriveSlotName(child)
	}
	if err := fs.ValidateSlot(slot); err != nil {
		return err
	}

	target := filepath.Join(pdir, slot)
	if _, err := fs.afs.Stat(target); err == nil {
		return errors.Wrapf(nodetree.ErrSlotExists, "%s", target)
	} else if !isAbsent(err) {
		return errors.Wrapf(err, "stat %s", target)
	}

	created := fs.outermostMissing(target)
	prev := child.Dir()
	if err := fs.SaveToDirectory(child, target); err != nil {
		child.SetDir(prev)
		if rmErr := fs.afs.RemoveAll(created); rmErr != nil {
			logger.Warn().Err(rmErr).Str("dir", created).Msg("Failed to clean up after failed add")
		}
		return errors.Wrapf(err, "add child %q", slot)
	}
	logger.Debug().Str("parent", pdir).Str("slot", slot).Str("type", child.NodeType()).Msg("Added child")
	return nil
}

// outermostMissing returns the highest directory on the way to the missing dir
// that does not exist yet
func (fs *FileSystem) outermostMissing(dir string) string {
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		if ok, _ := afero.DirExists(fs.afs, parent); ok {
			return dir
		}
		dir = parent
	}
}

// RemoveChild deletes the managed child in slot together with its whole subtree.
// Nodes loaded from the removed directories become stale.
func (fs *FileSystem) RemoveChild(parent nodetree.Node, slot string) error {
	logger := util.GetLogger("FS.RemoveChild")

	pdir := parent.Dir()
	if pdir == "" {
		return errors.Wrapf(nodetree.ErrNoDirectoryBound, "remove %q", slot)
	}
	if err := fs.ValidateSlot(slot); err != nil {
		return err
	}

	target := filepath.Join(pdir, slot)
	_, found, err := fs.LoadFromDirectory(target)
	if err != nil {
		if isDecodeFailure(err) {
			return errors.Mark(errors.Wrapf(err, "%q is not a loadable node", slot), nodetree.ErrChildNotFound)
		}
		return errors.Wrapf(err, "remove %q", slot)
	}
	if !found {
		return errors.Wrapf(nodetree.ErrChildNotFound, "%q in %s", slot, pdir)
	}

	if err := fs.afs.RemoveAll(target); err != nil {
		return errors.Wrapf(err, "remove %s", target)
	}
	logger.Debug().Str("parent", pdir).Str("slot", slot).Msg("Removed child")
	return nil
}
