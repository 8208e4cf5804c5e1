package probe

import (
	"fmt"
	"os"
	"path/filepath"
)

// Fingerprint identifies a file's content state for cache lookups. Any change
// to size or modification time produces a different key.
type Fingerprint struct {
	Path    string
	Size    int64
	ModTime int64
}

// Key renders the fingerprint as a stable string.
func (f Fingerprint) Key() string {
	return fmt.Sprintf("%s|%d|%d", f.Path, f.Size, f.ModTime)
}

// FingerprintFile stats path and returns its fingerprint. The path is made
// absolute so the same file reached through different relative paths matches.
func FingerprintFile(path string) (Fingerprint, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Fingerprint{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Fingerprint{}, err
	}
	if info.IsDir() {
		return Fingerprint{}, fmt.Errorf("%s is a directory", abs)
	}
	return Fingerprint{Path: abs, Size: info.Size(), ModTime: info.ModTime().UnixNano()}, nil
}
