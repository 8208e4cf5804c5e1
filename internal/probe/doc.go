// Package probe turns raw ffprobe output into the domain view the engine
// works with: codec, geometry, bitrate in kbps, colour metadata, and audio and
// subtitle stream descriptors.
//
// Subtitle streams are classified once, at probe time, as SAFE (text formats
// that transcode to SRT) or UNSAFE (bitmap formats the encoder cannot turn
// into text). The classification travels with the cached result.
//
// Prober wraps ffprobe with a bounded timeout and consults a fingerprint
// keyed cache before invoking the tool.
package probe
