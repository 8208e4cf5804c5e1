// Package candidate holds the per-file state machine and the ranked view the
// orchestration engine drives.
//
// Every discovered file becomes one Candidate keyed by its absolute path. A
// Candidate carries an optional probe result, the bloat score derived from
// it, a tagged Status, a selection flag, and saturating failure counters.
// Registry is the only writer; callers receive copies.
//
// Transitions:
//
//	UNPROBED --probe ok--> PROBED --select--> SELECTED --begin--> IN_PROGRESS
//	UNPROBED --probe fail--> PROBE_FAILED(n+1)
//	IN_PROGRESS --outcome--> CONVERTED_OK | CONVERTED_SHORT | CONVERT_FAILED(n+1)
//	IN_PROGRESS --abort--> SELECTED
//
// Bulk selection operations are pure re-derivations from the current status
// and score and only touch candidates visible through the active filter.
package candidate
