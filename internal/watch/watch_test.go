package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"rmbloat/internal/logging"
)

func newWatcher(t *testing.T) (*Watcher, context.CancelFunc) {
	t.Helper()
	w, err := New(logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)
	t.Cleanup(func() {
		cancel()
		w.Close()
	})
	return w, cancel
}

func TestVanishedOnRemove(t *testing.T) {
	w, _ := newWatcher(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "movie.mkv")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := w.Track(path); err != nil {
		t.Fatalf("Track: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	select {
	case got := <-w.Vanished():
		if got != path {
			t.Fatalf("unexpected vanished path %s", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("expected vanished notification")
	}
	if w.Tracked(path) {
		t.Fatal("vanished path should no longer be tracked")
	}
}

func TestUntrackedFilesIgnored(t *testing.T) {
	w, _ := newWatcher(t)
	dir := t.TempDir()
	tracked := filepath.Join(dir, "keep.mkv")
	other := filepath.Join(dir, "other.mkv")
	for _, p := range []string{tracked, other} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Track(tracked); err != nil {
		t.Fatalf("Track: %v", err)
	}
	if err := os.Remove(other); err != nil {
		t.Fatal(err)
	}
	select {
	case got := <-w.Vanished():
		t.Fatalf("unexpected notification for %s", got)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestUntrackDropsDirectory(t *testing.T) {
	w, _ := newWatcher(t)
	dir := t.TempDir()
	a := filepath.Join(dir, "a.mkv")
	b := filepath.Join(dir, "b.mkv")
	for _, p := range []string{a, b} {
		if err := w.Track(p); err != nil {
			t.Fatalf("Track: %v", err)
		}
	}
	w.Untrack(a)
	if w.dirs[dir] != 1 {
		t.Fatalf("expected one remaining reference, got %d", w.dirs[dir])
	}
	w.Untrack(b)
	if _, ok := w.dirs[dir]; ok {
		t.Fatal("expected directory dropped")
	}
}
