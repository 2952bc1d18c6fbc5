// Package watch reloads shade-style snippets from disk when their files change.
// A reload marks the style dirty, so the next draw rebuilds its program.
package watch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/Carmen-Shannon/oxy-gl/engine/logger"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/shader"
	"github.com/fsnotify/fsnotify"
)

type binding struct {
	style shader.ShadeStyle
	kind  shader.Snippet
}

// watcher is the implementation of the Watcher interface.
type watcher struct {
	mu *sync.Mutex

	fs     *fsnotify.Watcher
	logger *slog.Logger

	// bindings is keyed by cleaned absolute path. Directories are watched instead of files
	// so editors that save by rename keep triggering reloads.
	bindings map[string][]binding
	dirs     map[string]bool

	onReload  func(path string)
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
	wg        sync.WaitGroup
}

// Watcher binds snippet files to style fields.
type Watcher interface {
	// Watch loads path into the kind snippet of style now and again on every change.
	//
	// Parameters:
	//   - style: the style to update
	//   - kind: the snippet field to replace
	//   - path: the snippet file
	//
	// Returns:
	//   - error: an error if the file cannot be read or watched
	Watch(style shader.ShadeStyle, kind shader.Snippet, path string) error

	// Close stops watching. Bound styles keep their last loaded snippets. Later calls return
	// the result of the first.
	Close() error
}

var _ Watcher = &watcher{}

// NewWatcher starts a watcher with its event loop running.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - Watcher: the running watcher
//   - error: an error if the platform watcher cannot be created
func NewWatcher(options ...WatcherBuilderOption) (Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	w := &watcher{
		mu:       &sync.Mutex{},
		fs:       fsw,
		bindings: make(map[string][]binding),
		dirs:     make(map[string]bool),
		done:     make(chan struct{}),
	}
	for _, opt := range options {
		opt(w)
	}
	w.logger = logger.Or(w.logger)

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *watcher) Watch(style shader.ShadeStyle, kind shader.Snippet, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve snippet path %q: %w", path, err)
	}
	abs = filepath.Clean(abs)

	src, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("read snippet %q: %w", abs, err)
	}
	style.SetSnippet(kind, string(src))

	w.mu.Lock()
	defer w.mu.Unlock()
	dir := filepath.Dir(abs)
	if !w.dirs[dir] {
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("watch %q: %w", dir, err)
		}
		w.dirs[dir] = true
	}
	w.bindings[abs] = append(w.bindings[abs], binding{style: style, kind: kind})
	w.logger.Debug("[Watch] bound snippet", "path", abs, "snippet", kind.String())
	return nil
}

func (w *watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.reload(filepath.Clean(ev.Name))
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("[Watch] watcher error", "error", err)
		}
	}
}

func (w *watcher) reload(path string) {
	w.mu.Lock()
	bound := w.bindings[path]
	w.mu.Unlock()
	if len(bound) == 0 {
		return
	}

	src, err := os.ReadFile(path)
	if err != nil {
		// A rename-based save briefly removes the file; the following create reloads it.
		w.logger.Debug("[Watch] snippet unreadable", "path", path, "error", err)
		return
	}
	for _, b := range bound {
		b.style.SetSnippet(b.kind, string(src))
		b.style.MarkDirty()
	}
	w.logger.Info("[Watch] reloaded snippet", "path", path, "styles", len(bound))
	if w.onReload != nil {
		w.onReload(path)
	}
}

func (w *watcher) Close() error {
	w.closeOnce.Do(func() {
		close(w.done)
		w.closeErr = w.fs.Close()
		w.wg.Wait()
	})
	return w.closeErr
}
