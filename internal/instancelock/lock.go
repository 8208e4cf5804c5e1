// Package instancelock guarantees a single orchestration engine per state
// directory.
//
// Acquire takes a non-blocking exclusive flock on a file under the per-user
// state directory. A second caller gets services.ErrLockBusy immediately and
// leaves nothing behind; the lock file itself is never removed so the inode
// stays stable across instances.
package instancelock

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"rmbloat/internal/services"
)

// Token proves the holder owns the instance lock. Pass it to anything that
// must not run concurrently with another instance.
type Token struct {
	path string
	lock *flock.Flock
	once sync.Once
	err  error
}

// Acquire takes the lock at path without blocking.
func Acquire(path string) (*Token, error) {
	if strings.TrimSpace(path) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "instancelock", "acquire", "lock path is empty", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		holder := readHolder(path)
		message := "another rmbloat instance is running"
		if holder != "" {
			message += " (pid " + holder + ")"
		}
		return nil, services.Wrap(services.ErrLockBusy, "instancelock", "acquire", message, nil)
	}
	// The pid is only for the busy message; flock is advisory so rewriting the
	// locked file is harmless.
	_ = os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
	return &Token{path: path, lock: lock}, nil
}

// Path returns the lock file location.
func (t *Token) Path() string {
	if t == nil {
		return ""
	}
	return t.path
}

// Valid reports whether the token still holds the lock.
func (t *Token) Valid() bool {
	return t != nil && t.lock != nil && t.lock.Locked()
}

// Release drops the lock. It is safe to call more than once.
func (t *Token) Release() error {
	if t == nil || t.lock == nil {
		return nil
	}
	t.once.Do(func() {
		t.err = t.lock.Unlock()
	})
	return t.err
}

func readHolder(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	pid := strings.TrimSpace(string(data))
	if _, err := strconv.Atoi(pid); err != nil {
		return ""
	}
	return pid
}
