// Package bloat computes the bloat metric and the needs-conversion predicate.
package bloat

import (
	"math"
	"strings"

	"rmbloat/internal/probe"
)

// Policy holds the thresholds a probe is scored against.
type Policy struct {
	Threshold     int
	MaxHeight     int
	AllowedCodecs string // "x265", "x26*", or "all"
}

// Score is the result of evaluating one probe. Each cause is reported
// separately so callers can show why a file was flagged.
type Score struct {
	Bloat      float64
	OverBloat  bool
	OverHeight bool
	BadCodec   bool
}

// Exceeds reports whether any condition flags the file for conversion.
func (s Score) Exceeds() bool {
	return s.OverBloat || s.OverHeight || s.BadCodec
}

// Value computes 1000 * kbps / sqrt(width*height). Zero-area input yields 0.
func Value(kbps float64, width, height int) float64 {
	area := float64(width) * float64(height)
	if area <= 0 || kbps <= 0 {
		return 0
	}
	return 1000 * kbps / math.Sqrt(area)
}

// Evaluate scores a probe result against the policy.
func Evaluate(result probe.Result, policy Policy) Score {
	value := Value(result.BitrateKbps, result.Width, result.Height)
	return Score{
		Bloat:      value,
		OverBloat:  value > float64(policy.Threshold),
		OverHeight: policy.MaxHeight > 0 && result.Height > policy.MaxHeight,
		BadCodec:   !CodecAllowed(result.Codec, policy.AllowedCodecs),
	}
}

// CodecAllowed reports whether codec satisfies the allow-list mode. "x265"
// accepts only HEVC, "x26*" accepts HEVC or H.264, and "all" accepts anything.
func CodecAllowed(codec, mode string) bool {
	codec = strings.ToLower(strings.TrimSpace(codec))
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "all":
		return true
	case "x26*":
		return codec == "hevc" || codec == "h265" || codec == "h264"
	default:
		return codec == "hevc" || codec == "h265"
	}
}
