// Command rmbloat finds oversized video files and re-encodes them to HEVC.
//
// Paths given on the command line (or "-" for stdin) are walked for video
// files, probed with ffprobe, and scored for bloat. The run command converts
// the selected candidates one at a time under the single-instance lock; list,
// probe, strategies, and log are read-mostly helpers around the same state
// directory.
package main
