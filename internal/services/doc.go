// Package services defines shared utilities consumed by the engine, the job
// runner, and the external tool wrappers.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, candidate paths, and strategy names
//     for logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures as per-candidate (retryable) or batch-fatal.
package services
