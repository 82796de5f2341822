package monitor

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/curatorhq/curator/internal/config"
	"github.com/curatorhq/curator/internal/docstore"
	"github.com/curatorhq/curator/internal/similarity"
)

// Logger is the minimal logging surface the watcher needs from the daemon.
type Logger interface {
	Log(format string, args ...interface{})
}

// Watcher monitors the priority directory trees using filesystem events and
// feeds debounced create/write events into the engine.
type Watcher struct {
	fsw       *fsnotify.Watcher
	engine    *Engine
	rules     config.Rules
	roots     []string
	debouncer *KeyedDebouncer
	log       Logger
}

// NewWatcher creates a watcher over roots. Events settle for the debounce
// window before the engine observes the path.
func NewWatcher(engine *Engine, roots []string, rules config.Rules, debounce time.Duration, log Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:    fsw,
		engine: engine,
		rules:  rules,
		roots:  roots,
		log:    log,
	}
	w.debouncer = NewKeyedDebouncer(debounce, w.observe)

	for _, root := range roots {
		if err := w.addTree(root); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Roots returns the watched root directories.
func (w *Watcher) Roots() []string {
	return w.roots
}

// Start consumes filesystem events until the context is canceled.
// Runs in a background goroutine.
func (w *Watcher) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-w.fsw.Events:
				if !ok {
					return
				}
				w.handleEvent(event)

			case err, ok := <-w.fsw.Errors:
				if !ok {
					return
				}
				w.log.Log("Warning: watcher error: %v", err)
			}
		}
	}()
}

// Close stops the watcher and cancels pending debounced observations.
func (w *Watcher) Close() error {
	w.debouncer.Cancel()
	return w.fsw.Close()
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := filepath.Clean(event.Name)
	if w.Excluded(path) {
		return
	}

	// New directories must be added to the watch before their contents
	// produce events.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.addTree(path); err != nil {
				w.log.Log("Warning: cannot watch new directory %s: %v", path, err)
			}
			return
		}
	}

	if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
		w.debouncer.Trigger(path)
	}
	// Remove/Rename need no action here: the prune pass drops records for
	// paths that are gone from disk.
}

func (w *Watcher) observe(path string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := w.engine.Observe(ctx, path); err != nil {
		w.log.Log("Warning: observe %s: %v", path, err)
		if isTransient(err) {
			// Re-arm the debouncer so the path gets another pass once
			// the collaborator recovers.
			w.debouncer.Trigger(path)
		}
	}
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.log.Log("Warning: cannot walk %s: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.Excluded(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.log.Log("Warning: cannot watch %s: %v", path, err)
		}
		return nil
	})
}

// Excluded applies the include/exclude rule sets to a path.
func (w *Watcher) Excluded(path string) bool {
	for _, prefix := range w.rules.ExcludePaths {
		if isUnder(path, prefix) || path == filepath.Clean(prefix) {
			return true
		}
	}
	base := filepath.Base(path)
	for _, dirname := range w.rules.ExcludeDirnames {
		if base == dirname {
			return true
		}
		if strings.Contains(path, string(filepath.Separator)+dirname+string(filepath.Separator)) {
			return true
		}
	}
	for _, pattern := range w.rules.ExcludeGlobs {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	if len(w.rules.IncludePaths) > 0 {
		for _, prefix := range w.rules.IncludePaths {
			if isUnder(path, prefix) || path == filepath.Clean(prefix) {
				return false
			}
		}
		// Keep roots and their ancestors visible so directory watches
		// still register.
		for _, root := range w.roots {
			if path == filepath.Clean(root) {
				return false
			}
		}
		return true
	}
	return false
}

func isTransient(err error) bool {
	return errors.Is(err, docstore.ErrUnavailable) || errors.Is(err, similarity.ErrUnavailable)
}
