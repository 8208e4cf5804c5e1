// Package probecache persists normalized probe results across runs.
//
// # Storage
//
// The cache is a JSON file in the state directory (default
// ~/.config/rmbloat/probe_cache.json). Entries are keyed by absolute path and
// carry the size and modification time they were probed at; a lookup only
// hits when the caller's fingerprint matches exactly, so a changed file is
// re-probed instead of served stale.
//
// Writes go to a temp file in the same directory which is synced and renamed
// over the previous cache. An unreadable file or malformed entry is dropped
// with a warning and never blocks startup. Failed probes are never stored.
package probecache
