// Package watch re-reads a node tree whenever its directories change on disk.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/brettbedarf/nodetree/filesystem"
	"github.com/brettbedarf/nodetree/internal/util"
	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// DefaultDelay coalesces bursts of events such as a recursive delete
const DefaultDelay = 50 * time.Millisecond

// ErrNoRoot is reported when the watched directory holds no node
var ErrNoRoot = errors.New("no node at watched directory")

// ChangeFunc receives a fresh snapshot of the tree, or the error that
// prevented taking one.
type ChangeFunc func(snap *filesystem.Snapshot, err error)

// Watcher follows every directory under a tree root
type Watcher struct {
	fs   *filesystem.FileSystem
	root string
	log  zerolog.Logger

	watcher *fsnotify.Watcher
	mu      sync.Mutex
	dirs    map[string]struct{}

	changed   chan struct{}
	debounced func(func())
	closeOnce sync.Once
}

// New prepares a watcher for the tree rooted at root. The filesystem must be
// backed by the OS filesystem.
func New(fsys *filesystem.FileSystem, root string, delay time.Duration) (*Watcher, error) {
	if _, ok := fsys.Fs().(*afero.OsFs); !ok {
		return nil, errors.Newf("watching requires the OS filesystem, got %T", fsys.Fs())
	}
	if delay <= 0 {
		delay = DefaultDelay
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create fsnotify watcher")
	}

	root = filepath.Clean(root)
	w := &Watcher{
		fs:        fsys,
		root:      root,
		log:       util.GetLogger("Watcher").With().Str("root", root).Logger(),
		watcher:   fsw,
		dirs:      make(map[string]struct{}),
		changed:   make(chan struct{}, 1),
		debounced: debounce.New(delay),
	}
	if err := w.addRecursive(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run reports the current tree once and then after every settled burst of
// changes, until ctx is done. The watcher is closed when Run returns.
func (w *Watcher) Run(ctx context.Context, onChange ChangeFunc) error {
	defer w.Close()

	onChange(w.snapshot())
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error().Err(err).Msg("Watcher error")

		case <-w.changed:
			onChange(w.snapshot())
		}
	}
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.watcher.Close()
	})
	return err
}

// Dirs returns the watched directories
func (w *Watcher) Dirs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return util.SortedKeys(w.dirs)
}

func (w *Watcher) snapshot() (*filesystem.Snapshot, error) {
	n, found, err := w.fs.LoadFromDirectory(w.root)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.Wrapf(ErrNoRoot, "%s", w.root)
	}
	return w.fs.Snapshot(n)
}

func (w *Watcher) handle(event fsnotify.Event) {
	w.log.Trace().Str("path", event.Name).Str("op", event.Op.String()).Msg("Event")
	switch {
	case event.Has(fsnotify.Create):
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.log.Warn().Err(err).Str("path", event.Name).Msg("Unable to watch new directory")
			}
		}
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.forget(event.Name)
	}
	w.debounced(w.signal)
}

// signal never blocks; one pending change is enough to trigger a re-read
func (w *Watcher) signal() {
	select {
	case w.changed <- struct{}{}:
	default:
	}
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Wrapf(err, "walk %s", path)
		}
		if !d.IsDir() {
			return nil
		}
		path = filepath.Clean(path)

		w.mu.Lock()
		if _, found := w.dirs[path]; found {
			w.mu.Unlock()
			return nil
		}
		w.dirs[path] = struct{}{}
		w.mu.Unlock()

		if err := w.watcher.Add(path); err != nil {
			return errors.Wrapf(err, "watch %s", path)
		}
		return nil
	})
}

func (w *Watcher) forget(path string) {
	path = filepath.Clean(path)
	prefix := path + string(filepath.Separator)

	w.mu.Lock()
	defer w.mu.Unlock()
	for dir := range w.dirs {
		if dir == path || strings.HasPrefix(dir, prefix) {
			// fsnotify drops removed directories itself; this only errors for those
			_ = w.watcher.Remove(dir)
			delete(w.dirs, dir)
		}
	}
}
