package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"rmbloat/internal/config"
)

// NewConfig returns the default configuration with its state directory moved
// under a fresh temp directory. mutate, when given, runs before returning.
func NewConfig(t testing.TB, mutate ...func(*config.Config)) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(t.TempDir(), "state")
	for _, fn := range mutate {
		fn(&cfg)
	}
	return &cfg
}

// BaseDir is the temp directory that holds cfg's state directory; tests put
// media, stubs and HOME beside it.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}

// StubTools writes one shell script per entry of scripts into base/bin and
// makes that directory the whole PATH for the test, so host binaries stay
// out of discovery.
func StubTools(t testing.TB, base string, scripts map[string]string) string {
	t.Helper()
	dir := StubDir(t, base)
	for name, body := range scripts {
		WriteStub(t, dir, name, body)
	}
	t.Setenv("PATH", dir)
	return dir
}

// StubDir creates base/bin and puts it in front of PATH for the test.
func StubDir(t testing.TB, base string) string {
	t.Helper()
	dir := filepath.Join(base, "bin")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
	return dir
}

// WriteStub writes an executable /bin/sh script and returns its path.
func WriteStub(t testing.TB, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return path
}
