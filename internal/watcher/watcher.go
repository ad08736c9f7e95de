// Package watcher re-scans document directories when their files change.
// Events are debounced per root so a burst of writes triggers one re-scan.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher watches root directories and calls onChange with the root whose
// documents changed.
type Watcher struct {
	roots      []string
	extensions []string
	recursive  bool
	debounce   time.Duration
	ignore     map[string]bool
	onChange   func(root string)
	logger     *zap.Logger

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	timers   map[string]*time.Timer
	done     chan struct{}
	started  bool
	stopped  bool
	stopOnce sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets a logger for debug output (directory changes, file events, etc.).
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// WithExtensions limits which files trigger a re-scan. Empty means all.
func WithExtensions(exts []string) WatcherOption {
	return func(w *Watcher) { w.extensions = exts }
}

// WithRecursive controls whether subdirectories are watched. Default true.
func WithRecursive(r bool) WatcherOption {
	return func(w *Watcher) { w.recursive = r }
}

// WithDebounce sets the quiet period before a re-scan.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithIgnore skips events for the given paths, such as report files
// written inside a watched directory.
func WithIgnore(paths ...string) WatcherOption {
	return func(w *Watcher) {
		for _, p := range paths {
			if abs, err := filepath.Abs(p); err == nil {
				w.ignore[abs] = true
			}
		}
	}
}

// NewWatcher creates a watcher over roots. onChange runs on its own
// goroutine once per debounced burst of changes under a root.
func NewWatcher(roots []string, onChange func(root string), opts ...WatcherOption) *Watcher {
	w := &Watcher{
		recursive: true,
		debounce:  defaultDebounce,
		ignore:    make(map[string]bool),
		onChange:  onChange,
		logger:    zap.NewNop(),
		timers:    make(map[string]*time.Timer),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	for _, r := range roots {
		if abs, err := filepath.Abs(r); err == nil {
			w.roots = append(w.roots, filepath.Clean(abs))
		}
	}
	return w
}

// Start begins watching. Every root must be an existing directory. It runs
// until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	if w.stopped {
		return errors.New("watcher already stopped")
	}
	if len(w.roots) == 0 {
		return errors.New("no directories to watch")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, root := range w.roots {
		if err := w.addTree(fw, root); err != nil {
			_ = fw.Close()
			return fmt.Errorf("watch %s: %w", root, err)
		}
	}
	w.watcher = fw
	w.started = true
	w.logger.Debug("watcher started",
		zap.Strings("roots", w.roots),
		zap.Strings("extensions", w.extensions),
		zap.Bool("recursive", w.recursive),
		zap.Duration("debounce", w.debounce))
	go w.run(ctx, fw)
	return nil
}

func (w *Watcher) addTree(fw *fsnotify.Watcher, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", root)
	}
	if !w.recursive {
		return fw.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fw.Add(path)
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handleEvent(fw, ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(fw *fsnotify.Watcher, ev fsnotify.Event) {
	if ev.Op == fsnotify.Chmod {
		return
	}
	path := filepath.Clean(ev.Name)
	root := w.rootOf(path)
	if root == "" || w.ignored(path) {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if w.recursive {
				if err := w.addTree(fw, path); err != nil {
					w.logger.Warn("watcher failed to add directory", zap.String("path", path), zap.Error(err))
				}
			}
			w.schedule(root)
			return
		}
	}
	// A removed or renamed directory has no extension; re-scan anyway.
	gone := ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
	if matchExtension(path, w.extensions) || (gone && filepath.Ext(path) == "") {
		w.schedule(root)
	}
}

func (w *Watcher) ignored(path string) bool {
	if w.ignore[path] {
		return true
	}
	// Atomic writers stage hidden temp files next to the target.
	return strings.HasPrefix(filepath.Base(path), ".")
}

// rootOf returns the deepest root containing path.
func (w *Watcher) rootOf(path string) string {
	best := ""
	for _, root := range w.roots {
		if (root == path || inDir(root, path)) && len(root) > len(best) {
			best = root
		}
	}
	return best
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

func (w *Watcher) schedule(root string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	if t, ok := w.timers[root]; ok {
		t.Stop()
	}
	w.timers[root] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, root)
		active := w.started
		w.mu.Unlock()
		if !active {
			return
		}
		w.logger.Debug("watcher re-scan", zap.String("root", root))
		if w.onChange != nil {
			w.onChange(root)
		}
	})
}

// Directories returns the watched root directories.
func (w *Watcher) Directories() []string {
	return append([]string(nil), w.roots...)
}

// Stop stops the watcher and cancels pending re-scans. A stopped watcher
// cannot be started again.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	for root, t := range w.timers {
		t.Stop()
		delete(w.timers, root)
	}
	_ = w.watcher.Close()
	w.started = false
	w.stopped = true
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
