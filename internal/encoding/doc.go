// Package encoding runs one conversion job against the external encoder.
//
// A Runner plans the output names, builds the strategy-specific ffmpeg
// invocation, and supervises the process: stderr is split on carriage
// returns and newlines, progress lines are parsed into Progress snapshots
// published on a channel at a bounded rate, and a liveness timeout kills the
// process group when progress stops. Operator aborts arrive as context
// cancellation and leave no partial output behind.
//
// When the encoder succeeds the output size is compared against the source.
// Insufficient shrink leaves the original untouched; otherwise the original
// is recycled (or kept as ORIG.<name>), the output takes the standard name,
// timestamps are carried over, and companion files are renamed to match.
package encoding
