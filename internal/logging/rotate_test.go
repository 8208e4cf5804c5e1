package logging

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRotatingFileRollsToBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rmbloat.log")
	w := newRotatingFile(path)
	defer w.Close()

	if _, err := w.Write([]byte("first\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Rotate(); err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if _, err := w.Write([]byte("second\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	backups, err := filepath.Glob(filepath.Join(dir, BackupPattern("rmbloat")))
	if err != nil || len(backups) != 1 {
		t.Fatalf("expected one rolled generation, got %v err=%v", backups, err)
	}
	rolled, err := os.ReadFile(backups[0])
	if err != nil || string(rolled) != "first\n" {
		t.Fatalf("rolled = %q err=%v", rolled, err)
	}
	current, err := os.ReadFile(path)
	if err != nil || string(current) != "second\n" {
		t.Fatalf("current = %q err=%v", current, err)
	}
}

func TestRotatingFileWriteAfterCloseReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "rmbloat.log")
	w := newRotatingFile(path)
	if _, err := w.Write([]byte("one\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := w.Write([]byte("two\n")); err != nil {
		t.Fatalf("write after close: %v", err)
	}
	defer w.Close()

	content, err := os.ReadFile(path)
	if err != nil || string(content) != "one\ntwo\n" {
		t.Fatalf("content = %q err=%v", content, err)
	}
}
