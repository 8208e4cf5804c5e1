package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// ebmlMagic starts every Matroska file; fixtures carry it so they look like
// video to anything sniffing the first bytes.
var ebmlMagic = []byte{0x1a, 0x45, 0xdf, 0xa3}

// WriteFile creates path (and its parents) holding exactly size bytes of
// fixture video data. Sizes below one are raised to one.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()
	size = max(size, 1)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	body := bytes.Repeat([]byte{0x42}, int(size))
	copy(body, ebmlMagic)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", path, err)
	}
}
