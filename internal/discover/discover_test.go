package discover

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestIsVideo(t *testing.T) {
	cases := map[string]bool{
		"movie.MKV":         true,
		"clip.ts":           true,
		"notes.txt":         false,
		"TEMP.movie.mkv":    false,
		"ORIG.movie.mkv":    false,
		"SAMPLE.28.foo.mkv": true,
	}
	for name, want := range cases {
		if got := IsVideo(name); got != want {
			t.Fatalf("IsVideo(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestPathsWalksSortedAndDedupes(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b", "Zeta.mkv"))
	touch(t, filepath.Join(root, "b", "alpha.mp4"))
	touch(t, filepath.Join(root, "A", "middle.avi"))
	touch(t, filepath.Join(root, "A", "TEMP.middle.mkv"))
	touch(t, filepath.Join(root, "A", "cover.jpg"))
	loose := filepath.Join(t.TempDir(), "loose.mkv")
	touch(t, loose)

	got, err := Paths([]string{loose, root, filepath.Join(root, "b", "alpha.mp4"), root}, nil)
	if err != nil {
		t.Fatalf("Paths: %v", err)
	}
	want := []string{
		filepath.Join(root, "A", "middle.avi"),
		filepath.Join(root, "b", "alpha.mp4"),
		filepath.Join(root, "b", "Zeta.mkv"),
		loose,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Paths = %v\nwant %v", got, want)
	}
}

func TestPathsReadsStdin(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.mkv")
	touch(t, a)
	got, err := Paths([]string{"-"}, strings.NewReader("\n"+a+"\n"+filepath.Join(dir, "missing.mkv")+"\n"))
	if err != nil {
		t.Fatalf("Paths: %v", err)
	}
	if len(got) != 1 || got[0] != a {
		t.Fatalf("unexpected paths %v", got)
	}
}
