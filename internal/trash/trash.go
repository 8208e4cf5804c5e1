// Package trash moves files into the freedesktop.org trash instead of
// deleting them.
//
// Files on the home filesystem go to $XDG_DATA_HOME/Trash. Files on other
// filesystems go to $topdir/.Trash-$uid so the move stays a rename.
package trash

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/sys/unix"
)

// Trash is a freedesktop trash rooted at the home trash directory.
type Trash struct {
	home string
	now  func() time.Time
}

// New resolves the home trash from XDG_DATA_HOME or ~/.local/share.
func New() (*Trash, error) {
	data := os.Getenv("XDG_DATA_HOME")
	if data == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		data = filepath.Join(home, ".local", "share")
	}
	return NewAt(filepath.Join(data, "Trash")), nil
}

// NewAt uses dir as the home trash.
func NewAt(dir string) *Trash {
	return &Trash{home: dir, now: time.Now}
}

// Put moves path into the trash and returns its new location.
func (t *Trash) Put(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Lstat(abs); err != nil {
		return "", err
	}

	dest, err := t.moveInto(t.home, abs)
	if errors.Is(err, unix.EXDEV) {
		top, topErr := mountRoot(filepath.Dir(abs))
		if topErr != nil {
			return "", fmt.Errorf("trash %s: %w", abs, topErr)
		}
		dest, err = t.moveInto(filepath.Join(top, ".Trash-"+strconv.Itoa(os.Getuid())), abs)
	}
	if err != nil {
		return "", fmt.Errorf("trash %s: %w", abs, err)
	}
	return dest, nil
}

func (t *Trash) moveInto(root, abs string) (string, error) {
	filesDir := filepath.Join(root, "files")
	infoDir := filepath.Join(root, "info")
	for _, dir := range []string{filesDir, infoDir} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return "", err
		}
	}

	base := filepath.Base(abs)
	ext := filepath.Ext(base)
	stem := base[:len(base)-len(ext)]
	info := "[Trash Info]\nPath=" + (&url.URL{Path: abs}).EscapedPath() +
		"\nDeletionDate=" + t.now().Format("2006-01-02T15:04:05") + "\n"

	for n := 1; n < 10000; n++ {
		name := base
		if n > 1 {
			name = stem + "." + strconv.Itoa(n) + ext
		}
		infoPath := filepath.Join(infoDir, name+".trashinfo")
		f, err := os.OpenFile(infoPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		_, writeErr := f.WriteString(info)
		closeErr := f.Close()
		if err := errors.Join(writeErr, closeErr); err != nil {
			_ = os.Remove(infoPath)
			return "", err
		}
		dest := filepath.Join(filesDir, name)
		if err := os.Rename(abs, dest); err != nil {
			_ = os.Remove(infoPath)
			return "", err
		}
		return dest, nil
	}
	return "", fmt.Errorf("no free trash name for %s", base)
}

// mountRoot walks up from dir to the top directory of its filesystem.
func mountRoot(dir string) (string, error) {
	var st unix.Stat_t
	if err := unix.Stat(dir, &st); err != nil {
		return "", err
	}
	dev := st.Dev
	current := dir
	for {
		parent := filepath.Dir(current)
		if parent == current {
			return current, nil
		}
		if err := unix.Stat(parent, &st); err != nil {
			return "", err
		}
		if st.Dev != dev {
			return current, nil
		}
		current = parent
	}
}
