// Package watch reports tracked files that disappear while rmbloat runs.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"rmbloat/internal/logging"
)

// Watcher watches the directories of tracked files and emits a path on
// Vanished when a Remove or Rename leaves it missing.
type Watcher struct {
	fs       *fsnotify.Watcher
	logger   *slog.Logger
	vanished chan string

	mu      sync.Mutex
	tracked map[string]struct{}
	dirs    map[string]int
}

// New creates a Watcher. Call Run to start delivering events.
func New(logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	return &Watcher{
		fs:       fsw,
		logger:   logging.NewComponentLogger(logger, "watch"),
		vanished: make(chan string, 64),
		tracked:  make(map[string]struct{}),
		dirs:     make(map[string]int),
	}, nil
}

// Vanished delivers paths of tracked files that no longer exist.
func (w *Watcher) Vanished() <-chan string {
	return w.vanished
}

// Track starts watching path. Tracking the same path twice is a no-op.
func (w *Watcher) Track(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.tracked[path]; ok {
		return nil
	}
	dir := filepath.Dir(path)
	if w.dirs[dir] == 0 {
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	w.dirs[dir]++
	w.tracked[path] = struct{}{}
	return nil
}

// Untrack stops watching path and drops its directory once unused.
func (w *Watcher) Untrack(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.untrackLocked(path)
}

func (w *Watcher) untrackLocked(path string) {
	if _, ok := w.tracked[path]; !ok {
		return
	}
	delete(w.tracked, path)
	dir := filepath.Dir(path)
	w.dirs[dir]--
	if w.dirs[dir] <= 0 {
		delete(w.dirs, dir)
		_ = w.fs.Remove(dir)
	}
}

// Tracked reports whether path is being watched.
func (w *Watcher) Tracked(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.tracked[path]
	return ok
}

// Run delivers events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.handleGone(ctx, event.Name)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logging.WarnWithContext(w.logger, "file watcher error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "vanished files may go unnoticed until the next probe"),
			)
		}
	}
}

func (w *Watcher) handleGone(ctx context.Context, path string) {
	w.mu.Lock()
	_, ok := w.tracked[path]
	if ok {
		if _, err := os.Lstat(path); !errors.Is(err, os.ErrNotExist) {
			ok = false
		} else {
			w.untrackLocked(path)
		}
	}
	w.mu.Unlock()
	if !ok {
		return
	}
	w.logger.Info("tracked file vanished",
		logging.String(logging.FieldEventType, "candidate_vanished"),
		logging.String(logging.FieldCandidate, path),
	)
	select {
	case w.vanished <- path:
	case <-ctx.Done():
	}
}

// Close stops the underlying watcher.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
