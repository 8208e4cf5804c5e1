// Package runlog persists the durable record of every batch.
//
// The store is a small SQLite database under the state directory. It keeps
// one row per run (keyed by a UUID), an append-only event table covering
// every terminal and retryable outcome, per-fingerprint attempt counters for
// probe and convert failures, and the latest benchmark verdict per host and
// strategy. Batches run unattended, so anything an operator might want to
// audit afterwards lands here regardless of what the UI showed.
//
// Writes retry briefly on SQLITE_BUSY because `rmbloat log` may read the
// database while a batch is writing to it.
package runlog
