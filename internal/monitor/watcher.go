// Package monitor protects files as they appear in monitored folders.
package monitor

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

	"hs-go/internal/hs"
)

// Protector is the part of the engine the watcher drives.
type Protector interface {
	Protect(path string) (*hs.ProtectResult, error)
	ProtectFolder(ctx context.Context, folder string, progress hs.ProgressFunc) (*hs.SweepResult, error)
	ShouldSkip(root, path string) bool
}

// Activity reports what the watcher did about one filesystem event.
type Activity struct {
	Time time.Time
	Path string
	// Protected counts files newly protected because of the event.
	Protected int
	Err       error
}

// ActivityFunc receives activities on the watcher goroutine.
type ActivityFunc func(Activity)

// Watcher keeps monitored folders protected between sweeps. New files are
// protected when they are created or first written; new directories are
// watched and swept.
type Watcher struct {
	watcher  *fsnotify.Watcher
	engine   Protector
	logger   hs.Logger
	clock    hs.Clock
	mu       sync.Mutex
	roots    []string
	watching map[string]struct{}
}

// NewWatcher creates a Watcher. Call Add for each folder, then Run.
func NewWatcher(engine Protector, logger hs.Logger, clock hs.Clock) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	return &Watcher{
		watcher:  fw,
		engine:   engine,
		logger:   logger,
		clock:    clock,
		watching: make(map[string]struct{}),
	}, nil
}

// Add watches root and every directory below it, except those the engine
// skips (the backup store in particular).
func (w *Watcher) Add(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", root, err)
	}

	w.mu.Lock()
	w.roots = append(w.roots, abs)
	w.mu.Unlock()

	return w.watchTree(abs, abs)
}

// Watched returns the number of directories currently watched.
func (w *Watcher) Watched() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.watching)
}

func (w *Watcher) watchTree(root, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			w.logger.Warn("cannot watch directory", "path", p, "error", err)
			return fs.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && w.engine.ShouldSkip(root, p) {
			return fs.SkipDir
		}
		return w.watchDir(p)
	})
}

func (w *Watcher) watchDir(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.watching[dir]; ok {
		return nil
	}
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	w.watching[dir] = struct{}{}
	return nil
}

// Run processes filesystem events until ctx is done, then releases the
// underlying watcher. report may be nil.
func (w *Watcher) Run(ctx context.Context, report ActivityFunc) error {
	defer w.watcher.Close()
	if report == nil {
		report = func(Activity) {}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.logger.Warn("event queue overflowed, rescanning")
				w.rescan(ctx, report)
				continue
			}
			w.logger.Warn("watch error", "error", err)
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, ev, report)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event, report ActivityFunc) {
	path := filepath.Clean(ev.Name)

	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.forget(path)
		return
	case !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write):
		return
	}

	root := w.rootOf(path)
	if root == "" || w.engine.ShouldSkip(root, path) {
		return
	}

	info, err := os.Lstat(path)
	if err != nil {
		// Gone again before we got to it.
		return
	}

	switch {
	case info.IsDir() && ev.Has(fsnotify.Create):
		w.handleNewDir(ctx, root, path, report)
	case info.Mode().IsRegular():
		w.handleFile(path, report)
	}
}

func (w *Watcher) handleFile(path string, report ActivityFunc) {
	res, err := w.engine.Protect(path)
	act := Activity{Time: w.clock.Now(), Path: path, Err: err}
	if err != nil {
		w.logger.Warn("watch protect failed", "path", path, "error", err)
		report(act)
		return
	}
	if res.AlreadyProtected {
		return
	}
	act.Protected = 1
	report(act)
}

// handleNewDir watches a directory that appeared and sweeps it, since files
// may have landed in it before the watch was in place.
func (w *Watcher) handleNewDir(ctx context.Context, root, dir string, report ActivityFunc) {
	if err := w.watchTree(root, dir); err != nil {
		w.logger.Warn("cannot watch new directory", "path", dir, "error", err)
	}
	res, err := w.engine.ProtectFolder(ctx, dir, nil)
	act := Activity{Time: w.clock.Now(), Path: dir, Err: err}
	if res != nil {
		act.Protected = res.Protected
	}
	if err != nil || act.Protected > 0 {
		report(act)
	}
}

// rescan sweeps every root after events were lost.
func (w *Watcher) rescan(ctx context.Context, report ActivityFunc) {
	w.mu.Lock()
	roots := append([]string(nil), w.roots...)
	w.mu.Unlock()

	for _, root := range roots {
		if err := w.watchTree(root, root); err != nil {
			w.logger.Warn("cannot rewatch folder", "path", root, "error", err)
		}
		res, err := w.engine.ProtectFolder(ctx, root, nil)
		act := Activity{Time: w.clock.Now(), Path: root, Err: err}
		if res != nil {
			act.Protected = res.Protected
		}
		report(act)
	}
}

// forget drops bookkeeping for a removed or renamed directory. fsnotify
// removes the watch itself.
func (w *Watcher) forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	prefix := path + string(filepath.Separator)
	for dir := range w.watching {
		if dir == path || strings.HasPrefix(dir, prefix) {
			delete(w.watching, dir)
		}
	}
}

// Close releases the watcher without running it. Run closes it on return.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// rootOf returns the monitored root containing path, preferring the deepest.
func (w *Watcher) rootOf(path string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	best := ""
	for _, r := range w.roots {
		if (path == r || strings.HasPrefix(path, r+string(filepath.Separator))) && len(r) > len(best) {
			best = r
		}
	}
	return best
}
