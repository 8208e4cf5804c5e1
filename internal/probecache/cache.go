package probecache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"rmbloat/internal/logging"
	"rmbloat/internal/probe"
)

const fileVersion = 1

// flushEvery bounds how many stores may be lost on a crash.
const flushEvery = 25

// Entry is one cached probe.
type Entry struct {
	Size     int64        `json:"size"`
	ModTime  int64        `json:"mtime"`
	Result   probe.Result `json:"probe"`
	CachedAt time.Time    `json:"cached_at"`
}

type fileFormat struct {
	Version int                        `json:"version"`
	Entries map[string]json.RawMessage `json:"entries"`
}

// Cache provides thread-safe access to the probe cache.
type Cache struct {
	path    string
	logger  *slog.Logger
	mu      sync.RWMutex
	entries map[string]Entry // keyed by absolute path
	pending int
	dropped int
}

// NewCache creates a cache backed by path and loads any existing content. If
// path is empty, the cache is memory-only.
func NewCache(path string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "probecache")

	c := &Cache{
		path:    path,
		logger:  logger,
		entries: make(map[string]Entry),
	}
	if path == "" {
		return c
	}
	if err := c.load(); err != nil {
		logging.WarnWithContext(logger, "failed to load probe cache", "probe_cache_load_failed",
			logging.Error(err),
			logging.String("path", path),
			logging.String(logging.FieldErrorHint, "cache will start empty and be rewritten"),
			logging.String(logging.FieldImpact, "every file is re-probed this run"))
	}
	return c
}

// Lookup returns the cached result when fp matches the stored file state.
func (c *Cache) Lookup(fp probe.Fingerprint) (probe.Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[fp.Path]
	if !ok || entry.Size != fp.Size || entry.ModTime != fp.ModTime {
		return probe.Result{}, false
	}
	return entry.Result, true
}

// Store records a successful probe. The file is rewritten every flushEvery
// stores; call Flush to persist the remainder.
func (c *Cache) Store(fp probe.Fingerprint, result probe.Result) error {
	if fp.Path == "" {
		return errors.New("probe cache: empty path")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[fp.Path] = Entry{Size: fp.Size, ModTime: fp.ModTime, Result: result, CachedAt: time.Now().UTC()}
	c.pending++
	if c.pending < flushEvery {
		return nil
	}
	return c.saveLocked()
}

// Forget removes the entry for path, typically after the file was replaced.
func (c *Cache) Forget(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[path]; !ok {
		return nil
	}
	delete(c.entries, path)
	c.pending++
	return c.saveLocked()
}

// Prune drops entries whose files no longer exist and persists the result.
func (c *Cache) Prune() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for path := range c.entries {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			delete(c.entries, path)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	c.pending += removed
	if err := c.saveLocked(); err != nil {
		return removed, err
	}
	c.logger.Debug("pruned probe cache", logging.Int("removed", removed))
	return removed, nil
}

// Flush persists pending changes.
func (c *Cache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == 0 && c.dropped == 0 {
		return nil
	}
	return c.saveLocked()
}

// Count returns the number of entries in the cache.
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Paths returns the cached paths sorted for display.
func (c *Cache) Paths() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.entries))
	for path := range c.entries {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// load reads the cache from disk into memory, dropping malformed entries.
func (c *Cache) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read cache file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var file fileFormat
	if err := json.Unmarshal(data, &file); err != nil {
		c.dropped++
		return fmt.Errorf("parse cache file: %w", err)
	}
	if file.Version != fileVersion {
		c.dropped++
		return fmt.Errorf("unsupported cache version %d", file.Version)
	}

	for path, raw := range file.Entries {
		var entry Entry
		if err := json.Unmarshal(raw, &entry); err != nil || !entry.valid() {
			c.dropped++
			logging.WarnWithContext(c.logger, "dropped malformed probe cache entry", "probe_cache_corrupt",
				logging.String(logging.FieldCandidate, path),
				logging.String(logging.FieldErrorHint, "entry will be rebuilt by the next probe"),
				logging.String(logging.FieldImpact, "file is re-probed"))
			continue
		}
		c.entries[path] = entry
	}

	c.logger.Debug("loaded probe cache",
		logging.Int("entry_count", len(c.entries)),
		logging.String("path", c.path))
	return nil
}

func (e Entry) valid() bool {
	r := e.Result
	return e.Size >= 0 && r.Width > 0 && r.Height > 0 && r.BitrateKbps > 0 && r.Codec != ""
}

// saveLocked writes the cache atomically. Callers hold c.mu.
func (c *Cache) saveLocked() error {
	if c.path == "" {
		c.pending = 0
		return nil
	}
	file := fileFormat{Version: fileVersion, Entries: make(map[string]json.RawMessage, len(c.entries))}
	for path, entry := range c.entries {
		raw, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal entry %s: %w", path, err)
		}
		file.Entries[path] = raw
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	c.pending = 0
	c.dropped = 0
	return nil
}
