// Package watch turns filesystem notifications under a project root into
// LSP workspace/didChangeWatchedFiles traffic, supplementing the core
// transport engine with the file-watching feature the teacher's own
// daemon carried (there for a C++ project tree; here generalized to any
// language server).
package watch

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lspconn/lspconn/logger"
	"github.com/lspconn/lspconn/protocol"
)

// defaultIgnoredDirs lists directory basenames Watcher skips by default —
// build output and VCS metadata that changes constantly and never holds
// source a language server cares about.
var defaultIgnoredDirs = map[string]bool{
	".git":    true,
	".hg":     true,
	".svn":    true,
	"node_modules": true,
	"build":   true,
	"out":     true,
	"bin":     true,
	"obj":     true,
}

// Watcher recursively watches a project tree and debounces bursts of
// filesystem events (a save in most editors fires several) into a single
// callback per quiet period.
type Watcher struct {
	fsw      *fsnotify.Watcher
	root     string
	ignore   map[string]bool
	debounce time.Duration
	onChange func([]string)

	mu      sync.Mutex
	pending map[string]bool
	timer   *time.Timer

	stop   chan struct{}
	logger logger.Logger
}

// Options configures a Watcher.
type Options struct {
	// IgnoreDirs is merged with defaultIgnoredDirs; both are skipped.
	IgnoreDirs map[string]bool
	// Debounce controls how long to wait after the last event in a burst
	// before invoking onChange. Defaults to 300ms.
	Debounce time.Duration
	Logger   logger.Logger
}

// New creates a Watcher rooted at root. onChange is called with the
// absolute paths that changed once a debounce period elapses with no
// further activity.
func New(root string, onChange func(changed []string), opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = logger.NullLogger{}
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}

	ignore := make(map[string]bool, len(defaultIgnoredDirs)+len(opts.IgnoreDirs))
	for k := range defaultIgnoredDirs {
		ignore[k] = true
	}
	for k, v := range opts.IgnoreDirs {
		ignore[k] = v
	}

	w := &Watcher{
		fsw:      fsw,
		root:     root,
		ignore:   ignore,
		debounce: debounce,
		onChange: onChange,
		pending:  make(map[string]bool),
		stop:     make(chan struct{}),
		logger:   log,
	}

	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}

	go w.run()

	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if w.ignore[filepath.Base(path)] || strings.HasPrefix(filepath.Base(path), ".") && path != root {
				return filepath.SkipDir
			}
			if err := w.fsw.Add(path); err != nil {
				w.logger.Info("watch: failed to watch %s: %v", path, err)
			}
		}
		return nil
	})
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Info("watch: fsnotify error: %v", err)
		case <-w.stop:
			return
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.addTree(event.Name)
		}
	}

	w.mu.Lock()
	w.pending[event.Name] = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
	w.mu.Unlock()
}

func (w *Watcher) flush() {
	w.mu.Lock()
	changed := make([]string, 0, len(w.pending))
	for path := range w.pending {
		changed = append(changed, path)
	}
	w.pending = make(map[string]bool)
	w.mu.Unlock()

	if len(changed) > 0 && w.onChange != nil {
		w.onChange(changed)
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.stop)
	return w.fsw.Close()
}

// ToFileEvents converts a slice of absolute file paths into LSP FileEvent
// values, all tagged as "changed" — the common case for a debounced burst
// where create-vs-modify distinctions aren't worth threading through.
func ToFileEvents(paths []string) []protocol.FileEvent {
	events := make([]protocol.FileEvent, len(paths))
	for i, p := range paths {
		events[i] = protocol.FileEvent{
			URI:  "file://" + filepath.ToSlash(p),
			Type: protocol.FileChangeChanged,
		}
	}
	return events
}
