// Package watcher reports debounced changes to a dataset tree.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors a directory tree with fsnotify. Bursts of events are
// coalesced into a single change notification once the tree has been quiet
// for the configured debounce period.
type Watcher struct {
	logger  *slog.Logger
	opts    Options
	watcher *fsnotify.Watcher
	roots   []string

	stopOnce sync.Once
}

// New creates a new watcher. Call Watch to register directories.
func New(logger *slog.Logger, opts Options) (*Watcher, error) {
	opts.setDefaults()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		logger:  logger,
		opts:    opts,
		watcher: w,
	}, nil
}

// Watch adds path and every visible directory below it.
func (w *Watcher) Watch(path string) error {
	path = filepath.Clean(path)

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", path)
	}
	w.roots = append(w.roots, path)
	return w.watchDir(path)
}

// relative returns p relative to the watched root containing it, so that
// ignore rules never match components of the root path itself.
func (w *Watcher) relative(p string) string {
	for _, root := range w.roots {
		rel, err := filepath.Rel(root, p)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return rel
		}
	}
	return p
}

func (w *Watcher) watchDir(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("failed to access path", "path", p, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && w.opts.shouldIgnore(w.relative(p)) {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(p); err != nil {
			return fmt.Errorf("add watch %s: %w", p, err)
		}
		w.logger.Debug("added watch", "path", p)
		return nil
	})
}

// Run blocks until ctx is done, calling onChange after each debounced burst
// of changes. onChange runs on the caller's goroutine, so events arriving
// while it runs are coalesced into the next notification.
func (w *Watcher) Run(ctx context.Context, onChange func()) error {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.handleEvent(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
			} else {
				timer.Reset(w.opts.Debounce)
			}
			fire = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case <-fire:
			fire = nil
			onChange()
		}
	}
}

// handleEvent reports whether event counts as a change to the tree.
// New directories are added to the watch set.
func (w *Watcher) handleEvent(event fsnotify.Event) bool {
	if w.opts.shouldIgnore(w.relative(event.Name)) {
		return false
	}
	// Permission and timestamp changes do not alter the layout.
	if event.Op == fsnotify.Chmod {
		return false
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watchDir(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
			}
		}
	}

	w.logger.Debug("change detected", "path", event.Name, "op", event.Op.String())
	return true
}

// Stop releases the underlying watches. It is safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		err = w.watcher.Close()
	})
	return err
}

// Shutdown implements do.Shutdowner.
func (w *Watcher) Shutdown() error {
	return w.Stop()
}
