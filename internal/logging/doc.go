// Package logging assembles structured slog loggers and formatting helpers used
// across rmbloat.
//
// It owns the configurable console/JSON handlers, the size-capped log file,
// and context-aware helpers so engine and job code automatically tag log lines
// with run IDs, candidate paths, and strategy names. The package also provides
// a no-op logger for tests and wiring code that cannot fail.
package logging
